package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/solindex-labs/solindex/pkg/normalize"
	"github.com/solindex-labs/solindex/pkg/registry"
	"github.com/solindex-labs/solindex/pkg/store"
	"github.com/solindex-labs/solindex/pkg/tenant"
	"go.uber.org/zap"
)

// RecordWriter writes one normalized record into a subscriber database.
// *tenant.Writer is the production implementation.
type RecordWriter interface {
	Write(ctx context.Context, job *store.Job, rec normalize.Record) error
}

// Processor carries one normalized record through the delivery pipeline for
// one subscriber: tenant write, entry counter, job log, cache TTL refresh.
type Processor struct {
	Store  store.Store
	Writer RecordWriter
	Cache  *registry.Cache
	Logger *zap.Logger
}

// Process delivers rec to job's database and records the outcome. A
// duplicate signature is a benign no-op. Bookkeeping failures after a
// successful write are logged but do not fail the delivery.
func (p *Processor) Process(ctx context.Context, job *store.Job, rec normalize.Record) error {
	cat := rec.EventCategory()
	start := time.Now()

	if err := p.Writer.Write(ctx, job, rec); err != nil {
		if tenant.IsConstraint(err) {
			p.Logger.Info("Skipping duplicate event",
				zap.Int64("job_id", job.ID),
				zap.String("category", cat.String()),
				zap.String("signature", rec.NaturalKey()))
			p.Cache.TouchTTL(ctx, cat, registry.DefaultTTL)
			return nil
		}
		p.logFailure(ctx, job, cat.String(), err)
		return fmt.Errorf("write %s event for job %d: %w", cat, job.ID, err)
	}

	if err := p.Store.IncrementEntriesProcessed(ctx, job.ID); err != nil {
		p.Logger.Warn("Failed to increment entries counter",
			zap.Int64("job_id", job.ID),
			zap.Error(err))
	}

	message := fmt.Sprintf("processed %s event %s", cat, rec.NaturalKey())
	if err := p.Store.AppendLog(ctx, job.ID, message, store.LogTagInfo); err != nil {
		p.Logger.Warn("Failed to append job log",
			zap.Int64("job_id", job.ID),
			zap.Error(err))
	}

	p.Cache.TouchTTL(ctx, cat, registry.DefaultTTL)

	p.Logger.Info("Event delivered",
		zap.Int64("job_id", job.ID),
		zap.String("job", job.Name),
		zap.String("category", cat.String()),
		zap.String("signature", rec.NaturalKey()),
		zap.Duration("took", time.Since(start)))
	return nil
}

// logFailure writes a diagnosis-bearing ERROR entry to the job log. The
// store write is best effort.
func (p *Processor) logFailure(ctx context.Context, job *store.Job, category string, cause error) {
	message := fmt.Sprintf("failed to process %s event: %v", category, cause)
	var connErr *tenant.ConnectionError
	if errors.As(cause, &connErr) {
		message = fmt.Sprintf("failed to process %s event: %s", category, connErr.Diagnosis())
	}

	if err := p.Store.AppendLog(ctx, job.ID, message, store.LogTagError); err != nil {
		p.Logger.Warn("Failed to append job log",
			zap.Int64("job_id", job.ID),
			zap.Error(err))
	}

	p.Logger.Error("Event delivery failed",
		zap.Int64("job_id", job.ID),
		zap.String("job", job.Name),
		zap.String("category", category),
		zap.Error(cause))
}
