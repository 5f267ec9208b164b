// Package scheduler runs the periodic sync jobs on cron schedules.
// Overlapping triggers of the same kind are skipped, not queued: a
// full backfill that outlives its interval must not pile up behind
// itself.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"mma_v2/ingestion/internal/backfill"
	"mma_v2/ingestion/internal/config"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// SyncRunner is the orchestrator surface the scheduler drives
type SyncRunner interface {
	RunIncremental(ctx context.Context) (*backfill.RunStats, error)
	RunFull(ctx context.Context) (*backfill.RunStats, error)
}

// Scheduler owns the cron entries for incremental sync and full backfill
type Scheduler struct {
	cfg    *config.Config
	syncer SyncRunner
	cron   *cron.Cron

	// one mutex per job kind; TryLock is the overlap guard
	incrementalRunning sync.Mutex
	fullRunning        sync.Mutex
}

// New creates a scheduler around the given sync runner
func New(cfg *config.Config, syncer SyncRunner) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		syncer: syncer,
		cron:   cron.New(),
	}
}

// Start registers the cron entries and begins firing them. The context
// is carried into every triggered run so shutdown cancels in-flight
// work.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.cfg.IncrementalSyncCron, func() {
		s.runGuarded(ctx, "incremental_sync", &s.incrementalRunning, s.syncer.RunIncremental)
	}); err != nil {
		return fmt.Errorf("failed to schedule incremental sync: %w", err)
	}

	if _, err := s.cron.AddFunc(s.cfg.FullBackfillCron, func() {
		s.runGuarded(ctx, "full_backfill", &s.fullRunning, s.syncer.RunFull)
	}); err != nil {
		return fmt.Errorf("failed to schedule full backfill: %w", err)
	}

	s.cron.Start()
	log.Info().
		Str("incremental", s.cfg.IncrementalSyncCron).
		Str("full", s.cfg.FullBackfillCron).
		Msg("Scheduler started")

	return nil
}

// Stop halts the cron loop. Already-running jobs finish on their own;
// cancel the Start context to interrupt them.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Info().Msg("Scheduler stopped")
}

// runGuarded fires one job unless the previous run of the same kind is
// still going, in which case this trigger is dropped
func (s *Scheduler) runGuarded(ctx context.Context, name string, guard *sync.Mutex, run func(context.Context) (*backfill.RunStats, error)) {
	if !guard.TryLock() {
		log.Warn().Str("job", name).Msg("Previous run still in progress, skipping trigger")
		return
	}
	defer guard.Unlock()

	log.Info().Str("job", name).Msg("Scheduled run starting")

	stats, err := run(ctx)
	if err != nil {
		log.Error().Err(err).Str("job", name).Msg("Scheduled run failed")
		return
	}

	log.Info().
		Str("job", name).
		Str("status", stats.Status()).
		Int("processed", stats.Processed).
		Int("added", stats.Added).
		Int("failed", stats.Failed).
		Msg("Scheduled run finished")
}
