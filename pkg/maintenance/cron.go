// Package maintenance schedules the housekeeping the control-plane store
// needs: pruning old job logs and the monthly reset of per-job entry
// counters.
package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/solindex-labs/solindex/pkg/store"
	"github.com/solindex-labs/solindex/pkg/utils"
	"go.uber.org/zap"
)

// Log retention windows. Routine INFO entries churn quickly; warnings and
// errors stay long enough to debug tenant outages.
const (
	InfoRetention  = time.Hour
	ErrorRetention = 24 * time.Hour
)

// Scheduler owns the cron jobs over the control-plane store.
type Scheduler struct {
	Store  store.Store
	Logger *zap.Logger
	Cron   *cron.Cron

	pruneSpec string
	resetSpec string
}

// New builds a Scheduler with the hourly prune and monthly counter reset
// registered. Specs can be overridden via PRUNE_CRON and RESET_CRON.
func New(ctx context.Context, st store.Store, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		Store:     st,
		Logger:    logger,
		Cron:      cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		pruneSpec: utils.Env("PRUNE_CRON", "0 * * * *"),
		resetSpec: utils.Env("RESET_CRON", "0 0 1 * *"),
	}

	if _, err := s.Cron.AddFunc(s.pruneSpec, func() {
		rctx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		s.PruneLogs(rctx)
	}); err != nil {
		return nil, err
	}

	if _, err := s.Cron.AddFunc(s.resetSpec, func() {
		rctx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		s.ResetCounters(rctx)
	}); err != nil {
		return nil, err
	}

	return s, nil
}

// Start begins running the schedule in the background.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Info("Maintenance scheduler started",
		zap.String("pruneSpec", s.pruneSpec),
		zap.String("resetSpec", s.resetSpec))
}

// Stop halts the schedule and waits for any in-flight run.
func (s *Scheduler) Stop() {
	if s.Cron != nil {
		<-s.Cron.Stop().Done()
	}
	s.Logger.Info("Maintenance scheduler stopped")
}

// PruneLogs removes aged job log entries, tag by tag.
func (s *Scheduler) PruneLogs(ctx context.Context) {
	now := time.Now()
	windows := []struct {
		tag    string
		cutoff time.Time
	}{
		{store.LogTagInfo, now.Add(-InfoRetention)},
		{store.LogTagWarning, now.Add(-ErrorRetention)},
		{store.LogTagError, now.Add(-ErrorRetention)},
	}

	for _, w := range windows {
		pruned, err := s.Store.PruneLogs(ctx, w.tag, w.cutoff)
		if err != nil {
			s.Logger.Error("Failed to prune job logs",
				zap.String("tag", w.tag),
				zap.Error(err))
			continue
		}
		if pruned > 0 {
			s.Logger.Info("Pruned job logs",
				zap.String("tag", w.tag),
				zap.Int64("removed", pruned),
				zap.Time("olderThan", w.cutoff))
		}
	}
}

// ResetCounters zeroes every job's entries_processed counter.
func (s *Scheduler) ResetCounters(ctx context.Context) {
	affected, err := s.Store.ResetEntriesProcessed(ctx)
	if err != nil {
		s.Logger.Error("Failed to reset entry counters", zap.Error(err))
		return
	}
	s.Logger.Info("Reset entry counters", zap.Int64("jobs", affected))
}
