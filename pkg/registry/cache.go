// Package registry caches the set of subscriber jobs per event category in
// Redis. The cache is purely an optimization: every operation swallows
// backend errors and reports a miss, so dispatch keeps working when Redis is
// degraded or absent.
package registry

import (
	"context"
	"time"

	"github.com/go-jose/go-jose/v4/json"
	"github.com/solindex-labs/solindex/pkg/event"
	"github.com/solindex-labs/solindex/pkg/redis"
	"github.com/solindex-labs/solindex/pkg/store"
	"go.uber.org/zap"
)

// DefaultTTL bounds the staleness window of an unused cache entry.
const DefaultTTL = time.Hour

const keyPrefix = "job_subscriptions:"

// Backend is the minimal key-value surface the cache needs. *redis.Client
// satisfies it; tests substitute an in-memory fake.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	SetEx(ctx context.Context, key, value string, ttl time.Duration) error
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
}

// Cache is the job registry cache. A nil *Cache is valid and always misses.
type Cache struct {
	backend Backend
	logger  *zap.Logger
}

// New returns a Cache over the given backend. Returns nil when backend is
// nil so callers can wire "cache absent" mode with a plain nil check.
func New(backend Backend, logger *zap.Logger) *Cache {
	if backend == nil {
		return nil
	}
	return &Cache{backend: backend, logger: logger}
}

func key(c event.Category) string {
	return keyPrefix + c.String()
}

// Get returns the cached jobs for a category. ok is false on a miss, on a
// backend error, or when the cache is absent.
func (c *Cache) Get(ctx context.Context, cat event.Category) ([]*store.Job, bool) {
	if c == nil {
		return nil, false
	}

	raw, err := c.backend.Get(ctx, key(cat))
	if err != nil {
		if !redis.IsNil(err) {
			c.logger.Warn("Job cache read failed, treating as miss",
				zap.String("category", cat.String()),
				zap.Error(err))
		}
		return nil, false
	}

	var jobs []*store.Job
	if err := json.Unmarshal([]byte(raw), &jobs); err != nil {
		c.logger.Warn("Job cache entry corrupt, treating as miss",
			zap.String("category", cat.String()),
			zap.Error(err))
		return nil, false
	}
	return jobs, true
}

// Put replaces the cached job list for a category. This is the authoritative
// bulk refresh; incremental changes go through Append/Remove.
func (c *Cache) Put(ctx context.Context, cat event.Category, jobs []*store.Job, ttl time.Duration) bool {
	if c == nil {
		return false
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	raw, err := json.Marshal(jobs)
	if err != nil {
		return false
	}
	if err := c.backend.SetEx(ctx, key(cat), string(raw), ttl); err != nil {
		c.logger.Warn("Job cache write failed",
			zap.String("category", cat.String()),
			zap.Error(err))
		return false
	}
	return true
}

// TouchTTL refreshes the TTL of a category's entry so actively-used entries
// do not expire under load. Returns false when the entry does not exist.
func (c *Cache) TouchTTL(ctx context.Context, cat event.Category, ttl time.Duration) bool {
	if c == nil {
		return false
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	ok, err := c.backend.Expire(ctx, key(cat), ttl)
	if err != nil {
		c.logger.Warn("Job cache TTL refresh failed",
			zap.String("category", cat.String()),
			zap.Error(err))
		return false
	}
	return ok
}

// Append adds one job to a category's entry. Idempotent: a job already
// present (by id) leaves the entry unchanged.
func (c *Cache) Append(ctx context.Context, cat event.Category, job *store.Job, ttl time.Duration) bool {
	if c == nil || job == nil {
		return false
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	jobs, _ := c.Get(ctx, cat)
	for _, cached := range jobs {
		if cached.ID == job.ID {
			return true
		}
	}
	jobs = append(jobs, job)
	return c.Put(ctx, cat, jobs, ttl)
}

// Remove deletes one job from a category's entry by id. Returns true when
// the entry changed. An entry left empty is removed altogether.
func (c *Cache) Remove(ctx context.Context, cat event.Category, jobID int64) bool {
	if c == nil {
		return false
	}

	jobs, ok := c.Get(ctx, cat)
	if !ok {
		return false
	}

	kept := jobs[:0]
	for _, cached := range jobs {
		if cached.ID != jobID {
			kept = append(kept, cached)
		}
	}
	if len(kept) == len(jobs) {
		return false
	}

	if len(kept) == 0 {
		if err := c.backend.Del(ctx, key(cat)); err != nil {
			c.logger.Warn("Job cache delete failed",
				zap.String("category", cat.String()),
				zap.Error(err))
			return false
		}
		return true
	}
	return c.Put(ctx, cat, kept, DefaultTTL)
}
