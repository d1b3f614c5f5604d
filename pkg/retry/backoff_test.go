package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestBackoffDoubles(t *testing.T) {
	cfg := QueueConfig()

	assert.Equal(t, time.Second, Backoff(cfg, 1))
	assert.Equal(t, 2*time.Second, Backoff(cfg, 2))
	assert.Equal(t, 4*time.Second, Backoff(cfg, 3))
}

func TestBackoffCapsAtMaxDelay(t *testing.T) {
	cfg := QueueConfig()

	assert.Equal(t, cfg.MaxDelay, Backoff(cfg, 10))
}

func TestBackoffJitterStaysNearTarget(t *testing.T) {
	cfg := DefaultConfig()

	for i := 0; i < 50; i++ {
		d := Backoff(cfg, 2)
		assert.GreaterOrEqual(t, d, time.Duration(float64(4*time.Second)*0.85))
		assert.LessOrEqual(t, d, time.Duration(float64(4*time.Second)*1.15))
	}
}

func TestWithBackoffSucceedsAfterFailures(t *testing.T) {
	cfg := Config{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2.0}

	calls := 0
	err := WithBackoff(context.Background(), cfg, zaptest.NewLogger(t), "test-op", func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithBackoffExhaustsRetries(t *testing.T) {
	cfg := Config{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2.0}

	failure := errors.New("down")
	err := WithBackoff(context.Background(), cfg, zaptest.NewLogger(t), "test-op", func() error {
		return failure
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, failure)
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestWithBackoffRespectsContext(t *testing.T) {
	cfg := Config{MaxRetries: 10, InitialDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 2.0}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- WithBackoff(ctx, cfg, zaptest.NewLogger(t), "test-op", func() error {
			return errors.New("down")
		})
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("WithBackoff did not return after cancellation")
	}
}
