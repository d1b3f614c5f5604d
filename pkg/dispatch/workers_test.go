package dispatch

import (
	"sync"
	"testing"
	"time"

	"github.com/solindex-labs/solindex/pkg/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestWorkersPoolPerCategory(t *testing.T) {
	w := &Workers{Concurrency: 2, Logger: zaptest.NewLogger(t)}
	w.startPools()

	require.Len(t, w.pools, len(event.All()))
	for _, cat := range event.All() {
		require.NotNil(t, w.pools[cat], cat.String())
	}

	// Saturate the mint pool, then verify a sale delivery still runs.
	block := make(chan struct{})
	var occupied sync.WaitGroup
	occupied.Add(w.Concurrency)
	for i := 0; i < w.Concurrency; i++ {
		w.pools[event.CategoryMint].Submit(func() {
			occupied.Done()
			<-block
		})
	}
	occupied.Wait()

	done := make(chan struct{})
	w.pools[event.CategorySale].Submit(func() {
		close(done)
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("sale delivery stalled behind a saturated mint pool")
	}

	close(block)
	for _, pool := range w.pools {
		pool.StopAndWait()
	}
}

func TestRetryTaskCarriesBackoffDeadline(t *testing.T) {
	before := time.Now().Add(2 * time.Second).UnixMilli()
	task := Task{
		Category:  event.CategorySale,
		JobID:     7,
		Payload:   []byte(`{"signature":"sig"}`),
		Attempt:   2,
		NotBefore: before,
	}

	parsed, err := ParseTask(taskValues(task))
	require.NoError(t, err)
	assert.Equal(t, task.Attempt, parsed.Attempt)
	assert.Equal(t, before, parsed.NotBefore)
}

func TestFirstAttemptHasNoDeadline(t *testing.T) {
	task := Task{
		Category: event.CategoryMint,
		JobID:    1,
		Payload:  []byte(`{}`),
		Attempt:  1,
	}

	values := taskValues(task)
	_, hasDeadline := values["not_before"]
	assert.False(t, hasDeadline)

	parsed, err := ParseTask(values)
	require.NoError(t, err)
	assert.Zero(t, parsed.NotBefore)
}
