package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/solindex-labs/solindex/pkg/event"
	"github.com/solindex-labs/solindex/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeBackend struct {
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeBackend) Get(_ context.Context, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	v, ok := f.values[key]
	if !ok {
		return "", errors.New("redis: nil")
	}
	return v, nil
}

func (f *fakeBackend) SetEx(_ context.Context, key, value string, ttl time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.values[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *fakeBackend) Expire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if _, ok := f.values[key]; !ok {
		return false, nil
	}
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeBackend) Del(_ context.Context, key string) error {
	if f.err != nil {
		return f.err
	}
	delete(f.values, key)
	delete(f.ttls, key)
	return nil
}

func testJob(id int64, name string) *store.Job {
	return &store.Job{
		ID:     id,
		Name:   name,
		Type:   event.CategoryMint.String(),
		Status: store.JobStatusRunning,
	}
}

func TestCachePutGet(t *testing.T) {
	backend := newFakeBackend()
	cache := New(backend, zaptest.NewLogger(t))
	ctx := context.Background()

	_, ok := cache.Get(ctx, event.CategoryMint)
	assert.False(t, ok, "expected miss on empty cache")

	jobs := []*store.Job{testJob(1, "alpha"), testJob(2, "beta")}
	require.True(t, cache.Put(ctx, event.CategoryMint, jobs, 0))

	got, ok := cache.Get(ctx, event.CategoryMint)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, "beta", got[1].Name)

	assert.Equal(t, DefaultTTL, backend.ttls["job_subscriptions:nft_mint"])
}

func TestCacheCategoryIsolation(t *testing.T) {
	backend := newFakeBackend()
	cache := New(backend, zaptest.NewLogger(t))
	ctx := context.Background()

	require.True(t, cache.Put(ctx, event.CategoryMint, []*store.Job{testJob(1, "alpha")}, 0))

	_, ok := cache.Get(ctx, event.CategorySale)
	assert.False(t, ok, "sale category must not see mint entries")
}

func TestCacheTouchTTL(t *testing.T) {
	backend := newFakeBackend()
	cache := New(backend, zaptest.NewLogger(t))
	ctx := context.Background()

	assert.False(t, cache.TouchTTL(ctx, event.CategoryMint, time.Minute), "no entry to refresh")

	require.True(t, cache.Put(ctx, event.CategoryMint, []*store.Job{testJob(1, "alpha")}, 0))
	assert.True(t, cache.TouchTTL(ctx, event.CategoryMint, time.Minute))
	assert.Equal(t, time.Minute, backend.ttls["job_subscriptions:nft_mint"])
}

func TestCacheAppendIdempotent(t *testing.T) {
	backend := newFakeBackend()
	cache := New(backend, zaptest.NewLogger(t))
	ctx := context.Background()

	require.True(t, cache.Append(ctx, event.CategoryMint, testJob(1, "alpha"), 0))
	require.True(t, cache.Append(ctx, event.CategoryMint, testJob(2, "beta"), 0))
	require.True(t, cache.Append(ctx, event.CategoryMint, testJob(1, "alpha"), 0))

	got, ok := cache.Get(ctx, event.CategoryMint)
	require.True(t, ok)
	assert.Len(t, got, 2)
}

func TestCacheRemove(t *testing.T) {
	backend := newFakeBackend()
	cache := New(backend, zaptest.NewLogger(t))
	ctx := context.Background()

	jobs := []*store.Job{testJob(1, "alpha"), testJob(2, "beta")}
	require.True(t, cache.Put(ctx, event.CategoryMint, jobs, 0))

	assert.True(t, cache.Remove(ctx, event.CategoryMint, 1))
	got, ok := cache.Get(ctx, event.CategoryMint)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)

	assert.False(t, cache.Remove(ctx, event.CategoryMint, 99), "unknown id leaves entry unchanged")

	assert.True(t, cache.Remove(ctx, event.CategoryMint, 2))
	_, ok = cache.Get(ctx, event.CategoryMint)
	assert.False(t, ok, "empty entry should be deleted")
}

func TestCacheBackendFailureIsMiss(t *testing.T) {
	backend := newFakeBackend()
	backend.err = errors.New("connection refused")
	cache := New(backend, zaptest.NewLogger(t))
	ctx := context.Background()

	_, ok := cache.Get(ctx, event.CategoryMint)
	assert.False(t, ok)
	assert.False(t, cache.Put(ctx, event.CategoryMint, []*store.Job{testJob(1, "alpha")}, 0))
	assert.False(t, cache.TouchTTL(ctx, event.CategoryMint, time.Minute))
}

func TestCacheNilIsAlwaysMiss(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	_, ok := cache.Get(ctx, event.CategoryMint)
	assert.False(t, ok)
	assert.False(t, cache.Put(ctx, event.CategoryMint, nil, 0))
	assert.False(t, cache.TouchTTL(ctx, event.CategoryMint, 0))
	assert.False(t, cache.Append(ctx, event.CategoryMint, testJob(1, "alpha"), 0))
	assert.False(t, cache.Remove(ctx, event.CategoryMint, 1))

	assert.Nil(t, New(nil, zaptest.NewLogger(t)))
}
