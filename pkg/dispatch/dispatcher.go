// Package dispatch routes incoming webhook events to their subscriber jobs.
// Delivery prefers the durable Redis Streams queue; when no queue is
// configured (or an enqueue fails) it falls back to a synchronous fan-out so
// an unavailable Redis never drops events.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alitto/pond/v2"
	"github.com/solindex-labs/solindex/pkg/event"
	"github.com/solindex-labs/solindex/pkg/normalize"
	"github.com/solindex-labs/solindex/pkg/registry"
	"github.com/solindex-labs/solindex/pkg/store"
	"go.uber.org/zap"
)

// UnsupportedTypeError is returned when an event's transaction type maps to
// no known category. The event must produce zero side effects.
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported transaction type %q", e.Type)
}

// Dispatcher fans one webhook event out to every running subscriber job of
// its category.
type Dispatcher struct {
	Store     store.Store
	Cache     *registry.Cache
	Queue     *Queue
	Processor *Processor
	Pool      pond.Pool
	Logger    *zap.Logger
}

// Dispatch validates, normalizes, and delivers one event. payload is the
// original request body for this event; when nil the event is re-marshaled
// for queueing. Returns one Result per subscriber job.
func (d *Dispatcher) Dispatch(ctx context.Context, raw *event.RawEvent, payload json.RawMessage) ([]Result, error) {
	cat, ok := event.ParseCategory(raw.Type)
	if !ok {
		return nil, &UnsupportedTypeError{Type: raw.Type}
	}

	jobs, err := d.subscribers(ctx, cat)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		d.Logger.Debug("No subscribers for event",
			zap.String("category", cat.String()),
			zap.String("signature", raw.Signature))
		return []Result{}, nil
	}

	rec, err := normalize.Normalize(cat, raw)
	if err != nil {
		return nil, err
	}

	if payload == nil {
		payload, err = json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("marshal event %s: %w", raw.Signature, err)
		}
	}

	results := make([]Result, len(jobs))
	group := d.Pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	for i, job := range jobs {
		i, job := i, job
		group.Submit(func() {
			if err := groupCtx.Err(); err != nil {
				results[i] = Result{JobID: job.ID, JobName: job.Name, Status: StatusError, Error: err.Error()}
				return
			}
			results[i] = d.deliver(groupCtx, job, rec, payload)
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		d.Logger.Warn("Dispatch group encountered error",
			zap.String("category", cat.String()),
			zap.Error(err))
	}

	d.Cache.TouchTTL(ctx, cat, registry.DefaultTTL)
	return results, nil
}

// deliver hands one subscriber its copy of the event: queued when a queue is
// configured, written synchronously otherwise. An enqueue failure degrades
// to the synchronous path rather than dropping the event.
func (d *Dispatcher) deliver(ctx context.Context, job *store.Job, rec normalize.Record, payload json.RawMessage) Result {
	if d.Queue != nil {
		task := Task{Category: rec.EventCategory(), JobID: job.ID, Payload: payload, Attempt: 1}
		_, err := d.Queue.Enqueue(ctx, task)
		if err == nil {
			return Result{JobID: job.ID, JobName: job.Name, Status: StatusQueued}
		}
		d.Logger.Warn("Enqueue failed, writing synchronously",
			zap.Int64("job_id", job.ID),
			zap.Error(err))
	}

	if err := d.Processor.Process(ctx, job, rec); err != nil {
		return Result{JobID: job.ID, JobName: job.Name, Status: StatusError, Error: err.Error()}
	}
	return Result{JobID: job.ID, JobName: job.Name, Status: StatusSuccess}
}

// subscribers resolves the running jobs for a category. A cache miss is
// filled from the store; a cache hit is still reconciled against the store
// best-effort so jobs created since the last cache write receive this event
// in the same pass. A store failure during reconciliation keeps the cached
// set, never fails the dispatch.
func (d *Dispatcher) subscribers(ctx context.Context, cat event.Category) ([]*store.Job, error) {
	cached, hit := d.Cache.Get(ctx, cat)
	if !hit {
		jobs, err := d.Store.JobsByCategory(ctx, cat)
		if err != nil {
			return nil, fmt.Errorf("look up %s subscribers: %w", cat, err)
		}
		d.Cache.Put(ctx, cat, jobs, registry.DefaultTTL)
		return jobs, nil
	}

	fresh, err := d.Store.JobsByCategory(ctx, cat)
	if err != nil {
		d.Logger.Warn("Subscriber reconciliation failed, using cached set",
			zap.String("category", cat.String()),
			zap.Error(err))
		return cached, nil
	}

	known := make(map[int64]bool, len(cached))
	for _, job := range cached {
		known[job.ID] = true
	}
	merged := cached
	for _, job := range fresh {
		if !known[job.ID] {
			merged = append(merged, job)
		}
	}
	if len(merged) != len(cached) {
		d.Cache.Put(ctx, cat, merged, registry.DefaultTTL)
	}
	return merged, nil
}
