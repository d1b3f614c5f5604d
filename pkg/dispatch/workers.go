package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/puzpuzpuz/xsync/v4"
	goredis "github.com/redis/go-redis/v9"
	"github.com/solindex-labs/solindex/pkg/event"
	"github.com/solindex-labs/solindex/pkg/normalize"
	"github.com/solindex-labs/solindex/pkg/redis"
	"github.com/solindex-labs/solindex/pkg/retry"
	"github.com/solindex-labs/solindex/pkg/store"
	"github.com/solindex-labs/solindex/pkg/utils"
	"go.uber.org/zap"
)

const (
	// DefaultConcurrency is the worker pool size per category.
	DefaultConcurrency = 25

	consumerGroup = "nft-indexer"

	readBatchSize = 100
	readBlock     = 5 * time.Second
)

// Stats is a point-in-time snapshot of worker throughput for one category.
type Stats struct {
	Processed    int64 `json:"processed"`
	Failed       int64 `json:"failed"`
	DeadLettered int64 `json:"deadLettered"`
}

type counters struct {
	processed    *xsync.Counter
	failed       *xsync.Counter
	deadLettered *xsync.Counter
}

// Workers consumes the per-category queue streams and writes events to
// subscriber databases. One read loop and one bounded pool run per category,
// so a surge in one category cannot stall deliveries in the others.
type Workers struct {
	Redis       *redis.Client
	Store       store.Store
	Queue       *Queue
	Processor   *Processor
	Logger      *zap.Logger
	Concurrency int
	Consumer    string

	pools map[event.Category]pond.Pool
	stats map[event.Category]*counters
}

// NewWorkers wires a worker set over the given queue. Returns nil when redis
// is nil, meaning the deployment runs in synchronous-only mode.
func NewWorkers(client *redis.Client, st store.Store, queue *Queue, processor *Processor, logger *zap.Logger) *Workers {
	if client == nil || queue == nil {
		return nil
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "worker"
	}

	stats := make(map[event.Category]*counters, len(event.All()))
	for _, cat := range event.All() {
		stats[cat] = &counters{
			processed:    xsync.NewCounter(),
			failed:       xsync.NewCounter(),
			deadLettered: xsync.NewCounter(),
		}
	}

	return &Workers{
		Redis:       client,
		Store:       st,
		Queue:       queue,
		Processor:   processor,
		Logger:      logger,
		Concurrency: utils.EnvInt("WORKER_CONCURRENCY", DefaultConcurrency),
		Consumer:    utils.Env("WORKER_NAME", hostname),
		stats:       stats,
	}
}

// Stats returns per-category throughput counters.
func (w *Workers) Stats() map[string]Stats {
	if w == nil {
		return nil
	}
	out := make(map[string]Stats, len(w.stats))
	for cat, c := range w.stats {
		out[cat.String()] = Stats{
			Processed:    c.processed.Value(),
			Failed:       c.failed.Value(),
			DeadLettered: c.deadLettered.Value(),
		}
	}
	return out
}

func (w *Workers) startPools() {
	w.pools = make(map[event.Category]pond.Pool, len(event.All()))
	for _, cat := range event.All() {
		w.pools[cat] = pond.NewPool(w.Concurrency)
	}
}

// Run consumes all category streams until ctx is cancelled. Blocks.
func (w *Workers) Run(ctx context.Context) error {
	w.startPools()

	for _, cat := range event.All() {
		if err := w.Redis.XGroupCreateMkStream(ctx, cat.Stream(), consumerGroup, "0"); err != nil {
			return err
		}
	}

	w.Logger.Info("Queue workers started",
		zap.Int("concurrency", w.Concurrency),
		zap.String("consumer", w.Consumer))

	var wg sync.WaitGroup
	for _, cat := range event.All() {
		wg.Add(1)
		go func(cat event.Category) {
			defer wg.Done()
			w.consume(ctx, cat)
		}(cat)
	}
	wg.Wait()

	for _, pool := range w.pools {
		pool.StopAndWait()
	}
	w.Logger.Info("Queue workers stopped")
	return ctx.Err()
}

// consume is the read loop for one category stream. It first replays entries
// this consumer was delivered but never acknowledged (work in flight when a
// previous process died), then blocks on new entries. Transient read errors
// back off exponentially.
func (w *Workers) consume(ctx context.Context, cat event.Category) {
	retryInterval := time.Second
	const maxRetryInterval = 30 * time.Second

	lastID := "0"
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		streams, err := w.Redis.XReadGroup(ctx, consumerGroup, w.Consumer,
			[]string{cat.Stream()}, []string{lastID}, readBatchSize, readBlock)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			if errors.Is(err, goredis.Nil) {
				continue
			}

			w.Logger.Warn("Error reading queue stream, will retry",
				zap.String("stream", cat.Stream()),
				zap.Duration("retryIn", retryInterval),
				zap.Error(err))
			select {
			case <-time.After(retryInterval):
				retryInterval = min(retryInterval*2, maxRetryInterval)
			case <-ctx.Done():
				return
			}
			continue
		}
		retryInterval = time.Second

		replayed := 0
		for _, stream := range streams {
			for _, msg := range stream.Messages {
				if lastID != ">" {
					replayed++
					lastID = msg.ID
				}
				msg := msg
				w.pools[cat].Submit(func() {
					w.handle(ctx, cat, msg)
				})
			}
		}

		// The pending replay is exhausted once a read comes back empty;
		// switch to new entries.
		if lastID != ">" && replayed == 0 {
			lastID = ">"
		}
	}
}

// handle delivers one queued task. Permanent failures (malformed tasks,
// missing or stopped jobs) are acknowledged and dropped; transient failures
// are re-enqueued with a backoff timestamp before the original entry is
// acknowledged, so a crash never loses the redelivery.
func (w *Workers) handle(ctx context.Context, cat event.Category, msg goredis.XMessage) {
	task, err := ParseTask(msg.Values)
	if err != nil {
		w.Logger.Error("Dropping malformed queue entry",
			zap.String("stream", cat.Stream()),
			zap.String("id", msg.ID),
			zap.Error(err))
		w.ack(ctx, cat, msg.ID)
		return
	}

	// Retry entries carry their backoff as a timestamp; wait out the
	// remainder. A shutdown during the wait leaves the entry pending for
	// replay at the next start.
	if remaining := time.Until(time.UnixMilli(task.NotBefore)); task.NotBefore > 0 && remaining > 0 {
		select {
		case <-time.After(remaining):
		case <-ctx.Done():
			return
		}
	}

	job, err := w.Store.GetJob(ctx, task.JobID)
	if err != nil || job == nil {
		w.Logger.Warn("Dropping task for unknown job",
			zap.Int64("job_id", task.JobID),
			zap.Error(err))
		w.ack(ctx, cat, msg.ID)
		return
	}
	if job.Status != store.JobStatusRunning {
		w.Logger.Info("Dropping task for inactive job",
			zap.Int64("job_id", job.ID),
			zap.String("status", job.Status))
		w.ack(ctx, cat, msg.ID)
		return
	}

	err = w.process(ctx, task, job)
	if err == nil {
		w.stats[cat].processed.Inc()
		w.ack(ctx, cat, msg.ID)
		return
	}

	w.stats[cat].failed.Inc()
	if task.Attempt >= MaxAttempts {
		w.stats[cat].deadLettered.Inc()
		if dlErr := w.Queue.DeadLetter(ctx, task, err); dlErr != nil {
			w.Logger.Error("Failed to dead-letter task",
				zap.Int64("job_id", task.JobID),
				zap.Error(dlErr))
			// Keep the original pending rather than lose the task.
			return
		}
		w.ack(ctx, cat, msg.ID)
		return
	}

	if !w.requeue(task, err) {
		// Do not ack: the entry stays pending and is replayed later.
		return
	}
	w.ack(ctx, cat, msg.ID)
}

func (w *Workers) process(ctx context.Context, task Task, job *store.Job) error {
	var raw event.RawEvent
	if err := json.Unmarshal(task.Payload, &raw); err != nil {
		return err
	}

	rec, err := normalize.Normalize(task.Category, &raw)
	if err != nil {
		return err
	}
	return w.Processor.Process(ctx, job, rec)
}

// requeue writes the redelivery entry, stamped with its exponential backoff
// deadline, before the caller acknowledges the original. Reports whether the
// entry was durably enqueued.
func (w *Workers) requeue(task Task, cause error) bool {
	cfg := retry.QueueConfig()
	delay := retry.Backoff(cfg, task.Attempt)

	w.Logger.Warn("Task failed, scheduling retry",
		zap.Int64("job_id", task.JobID),
		zap.String("category", task.Category.String()),
		zap.Int("attempt", task.Attempt),
		zap.Duration("delay", delay),
		zap.Error(cause))

	next := task
	next.Attempt++
	next.NotBefore = time.Now().Add(delay).UnixMilli()

	enqueueCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := w.Queue.Enqueue(enqueueCtx, next); err != nil {
		w.Logger.Error("Failed to re-enqueue task",
			zap.Int64("job_id", next.JobID),
			zap.Int("attempt", next.Attempt),
			zap.Error(err))
		return false
	}
	return true
}

func (w *Workers) ack(ctx context.Context, cat event.Category, id string) {
	if _, err := w.Redis.XAck(ctx, cat.Stream(), consumerGroup, id); err != nil {
		w.Logger.Warn("Failed to ack queue entry",
			zap.String("stream", cat.Stream()),
			zap.String("id", id),
			zap.Error(err))
	}
}
