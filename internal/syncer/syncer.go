// Package syncer orchestrates reconciliation and backfill over a
// candidate fighter population and records one job-run row per
// invocation.
package syncer

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"mma_v2/ingestion/internal/backfill"
	"mma_v2/ingestion/internal/metrics"
	"mma_v2/ingestion/internal/models"
	"mma_v2/ingestion/internal/reconcile"
)

// CandidateSource selects the fighter population for a run
type CandidateSource interface {
	ListActiveIDs(ctx context.Context, since time.Time) ([]int, error)
	ListIDs(ctx context.Context) ([]int, error)
}

// Differ computes one fighter's remote-vs-local diff
type Differ interface {
	Diff(ctx context.Context, fighterID int) (*reconcile.Diff, error)
}

// Executor backfills a set of missing events
type Executor interface {
	Run(ctx context.Context, eventIDs []int) (*backfill.RunStats, error)
}

// JobRecorder persists the outcome of a run
type JobRecorder interface {
	Record(ctx context.Context, run *models.JobRun) error
}

// Syncer drives the two sync modes over the same primitives
type Syncer struct {
	fighters   CandidateSource
	reconciler Differ
	executor   Executor
	jobs       JobRecorder

	lookback  time.Duration
	batchSize int
}

// New creates a Syncer
func New(fighters CandidateSource, reconciler Differ, executor Executor, jobs JobRecorder, lookback time.Duration, batchSize int) *Syncer {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Syncer{
		fighters:   fighters,
		reconciler: reconciler,
		executor:   executor,
		jobs:       jobs,
		lookback:   lookback,
		batchSize:  batchSize,
	}
}

// RunIncremental reconciles fighters with activity inside the lookback
// window and backfills the union of their missing events in one
// executor pass. Intended for frequent, short runs.
func (s *Syncer) RunIncremental(ctx context.Context) (*backfill.RunStats, error) {
	started := time.Now()
	since := started.Add(-s.lookback)

	candidates, err := s.fighters.ListActiveIDs(ctx, since)
	if err != nil {
		return s.failRun(ctx, models.JobIncrementalSync, started, fmt.Errorf("failed to select incremental candidates: %w", err))
	}

	log.Info().
		Int("candidates", len(candidates)).
		Time("since", since).
		Msg("Starting incremental sync")

	stats := backfill.NewRunStats()
	missing := s.diffCandidates(ctx, candidates, stats)

	execStats, execErr := s.executor.Run(ctx, missing)
	stats.Merge(execStats)

	return s.finishRun(ctx, models.JobIncrementalSync, "incremental", started, stats, execErr)
}

// RunFull reconciles the entire fighter population in fixed-size
// batches, backfilling each batch's missing-event union before moving
// on. Intended for infrequent, comprehensive runs.
func (s *Syncer) RunFull(ctx context.Context) (*backfill.RunStats, error) {
	started := time.Now()

	all, err := s.fighters.ListIDs(ctx)
	if err != nil {
		return s.failRun(ctx, models.JobFullBackfill, started, fmt.Errorf("failed to list fighter population: %w", err))
	}

	log.Info().
		Int("population", len(all)).
		Int("batch_size", s.batchSize).
		Msg("Starting full backfill")

	stats := backfill.NewRunStats()
	for start := 0; start < len(all); start += s.batchSize {
		end := start + s.batchSize
		if end > len(all) {
			end = len(all)
		}
		batch := all[start:end]

		log.Debug().
			Int("batch_start", start).
			Int("batch_len", len(batch)).
			Msg("Processing backfill batch")

		batchStats := backfill.NewRunStats()
		missing := s.diffCandidates(ctx, batch, batchStats)

		execStats, execErr := s.executor.Run(ctx, missing)
		batchStats.Merge(execStats)
		stats.Merge(batchStats)

		if execErr != nil {
			// Store unreachable or run cancelled: no point continuing
			return s.finishRun(ctx, models.JobFullBackfill, "full", started, stats, execErr)
		}
	}

	return s.finishRun(ctx, models.JobFullBackfill, "full", started, stats, nil)
}

// diffCandidates reconciles each candidate sequentially and returns the
// union of missing event IDs. A fighter whose diff fails is absorbed as
// one processed+failed unit so a discovery-only failure still shows up
// in the run status.
func (s *Syncer) diffCandidates(ctx context.Context, fighterIDs []int, stats *backfill.RunStats) []int {
	seen := make(map[int]struct{})
	var missing []int

	for _, fighterID := range fighterIDs {
		if ctx.Err() != nil {
			return missing
		}

		diff, err := s.reconciler.Diff(ctx, fighterID)
		if err != nil {
			log.Error().Err(err).Int("fighter_id", fighterID).Msg("Failed to diff fighter")
			metrics.RecordError("syncer", "diff")
			stats.Processed++
			stats.Failed++
			stats.Errors = append(stats.Errors, backfill.RunError{
				Scope: "fighter",
				ID:    fighterID,
				Error: err.Error(),
			})
			continue
		}

		for _, eventID := range diff.MissingEventIDs {
			if _, ok := seen[eventID]; ok {
				continue
			}
			seen[eventID] = struct{}{}
			missing = append(missing, eventID)
		}
	}

	return missing
}

// finishRun derives the final status, records the job-run row exactly
// once, and emits metrics
func (s *Syncer) finishRun(ctx context.Context, jobName, mode string, started time.Time, stats *backfill.RunStats, runErr error) (*backfill.RunStats, error) {
	status := stats.Status()
	errMsg := stats.FirstError()
	if runErr != nil {
		status = models.RunStatusFailed
		errMsg = runErr.Error()
	}

	s.recordRun(ctx, jobName, started, stats, status, errMsg)
	metrics.RecordSync(mode, status, time.Since(started).Seconds())

	log.Info().
		Str("job", jobName).
		Str("run_id", stats.RunID).
		Str("status", status).
		Int("processed", stats.Processed).
		Int("added", stats.Added).
		Int("failed", stats.Failed).
		Dur("elapsed", time.Since(started)).
		Msg("Sync run complete")

	return stats, runErr
}

// failRun handles a candidate-selection failure: the run is marked
// failed before any work starts, and the row is still written.
func (s *Syncer) failRun(ctx context.Context, jobName string, started time.Time, err error) (*backfill.RunStats, error) {
	log.Error().Err(err).Str("job", jobName).Msg("Sync run failed before any work started")
	metrics.RecordError("syncer", "candidate_selection")

	stats := backfill.NewRunStats()
	s.recordRun(ctx, jobName, started, stats, models.RunStatusFailed, err.Error())

	mode := "incremental"
	if jobName == models.JobFullBackfill {
		mode = "full"
	}
	metrics.RecordSync(mode, models.RunStatusFailed, time.Since(started).Seconds())

	return stats, err
}

// recordRun writes the single job_runs row for this invocation
func (s *Syncer) recordRun(ctx context.Context, jobName string, started time.Time, stats *backfill.RunStats, status, errMsg string) {
	const maxErrLen = 500
	if len(errMsg) > maxErrLen {
		errMsg = errMsg[:maxErrLen]
	}

	run := &models.JobRun{
		JobName:    jobName,
		RunID:      stats.RunID,
		Status:     status,
		Processed:  stats.Processed,
		Added:      stats.Added,
		Failed:     stats.Failed,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if errMsg != "" {
		run.Error = sql.NullString{String: errMsg, Valid: true}
	}

	if err := s.jobs.Record(ctx, run); err != nil {
		log.Error().Err(err).Str("job", jobName).Msg("Failed to record job run")
		metrics.RecordError("syncer", "record_run")
	}
}
