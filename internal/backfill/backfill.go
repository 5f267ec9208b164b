// Package backfill fetches missing event bundles from the upstream API
// and lands them in the store through a bounded worker pool. One failing
// event never aborts the batch; only a wholly unreachable store does.
package backfill

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"mma_v2/ingestion/internal/client"
	"mma_v2/ingestion/internal/metrics"
	"mma_v2/ingestion/internal/models"
)

// BundleFetcher fetches the full payload for one event
type BundleFetcher interface {
	FetchEventBundle(ctx context.Context, eventID int) (*models.EventBundle, error)
}

// BundleStore lands a bundle and answers health checks
type BundleStore interface {
	UpsertEventBundle(ctx context.Context, bundle *models.EventBundle) error
	Health(ctx context.Context) error
}

// RunError records one failed unit of work within a run
type RunError struct {
	// Scope is "event" for backfill failures and "fighter" for diff failures
	Scope string `json:"scope"`
	ID    int    `json:"id"`
	Error string `json:"error"`
}

// RunStats aggregates the outcome of one run. Processed counts
// attempted units, Added successful ones, Failed the difference.
type RunStats struct {
	RunID     string        `json:"run_id"`
	Processed int           `json:"processed"`
	Added     int           `json:"added"`
	Failed    int           `json:"failed"`
	Errors    []RunError    `json:"errors,omitempty"`
	Warnings  []string      `json:"warnings,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// NewRunStats creates an empty RunStats with a fresh run ID
func NewRunStats() *RunStats {
	return &RunStats{RunID: uuid.NewString()}
}

// Merge folds another run's counters into this one, keeping this run's
// ID. Used to aggregate per-batch stats in full-backfill mode.
func (s *RunStats) Merge(other *RunStats) {
	if other == nil {
		return
	}
	s.Processed += other.Processed
	s.Added += other.Added
	s.Failed += other.Failed
	s.Errors = append(s.Errors, other.Errors...)
	s.Warnings = append(s.Warnings, other.Warnings...)
	s.Duration += other.Duration
}

// Status derives the three-valued job status from the counters
func (s *RunStats) Status() string {
	switch {
	case s.Failed == 0:
		return models.RunStatusSuccess
	case s.Processed > 0:
		return models.RunStatusPartial
	default:
		return models.RunStatusFailed
	}
}

// FirstError returns a truncated message suitable for the job_runs row
func (s *RunStats) FirstError() string {
	if len(s.Errors) == 0 {
		return ""
	}
	msg := s.Errors[0].Error
	if len(s.Errors) > 1 {
		msg = fmt.Sprintf("%s (and %d more)", msg, len(s.Errors)-1)
	}
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}

// Executor is the bounded-concurrency backfill worker pool
type Executor struct {
	fetcher BundleFetcher
	store   BundleStore
	workers int
}

// New creates an Executor with the given pool width
func New(fetcher BundleFetcher, store BundleStore, workers int) *Executor {
	if workers < 1 {
		workers = 1
	}
	return &Executor{fetcher: fetcher, store: store, workers: workers}
}

// Run fetches and upserts every event in eventIDs exactly once.
// Duplicate IDs (the same event missing through several fighters) are
// collapsed first. Safe to re-run with an overlapping set: the bundle
// upsert is idempotent.
//
// The returned error is non-nil only for run-level failures (store
// unreachable, context cancelled); per-event failures live in
// RunStats.Errors.
func (e *Executor) Run(ctx context.Context, eventIDs []int) (*RunStats, error) {
	stats := NewRunStats()
	start := time.Now()

	deduped := dedupe(eventIDs)
	if len(deduped) == 0 {
		stats.Duration = time.Since(start)
		return stats, nil
	}

	log.Info().
		Str("run_id", stats.RunID).
		Int("requested", len(eventIDs)).
		Int("unique", len(deduped)).
		Int("workers", e.workers).
		Msg("Starting backfill run")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu        sync.Mutex
		storeDown bool
	)

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < e.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for eventID := range jobs {
				if runCtx.Err() != nil {
					continue // drain remaining work after cancellation
				}
				e.processEvent(runCtx, eventID, stats, &mu, &storeDown, cancel)
			}
		}()
	}

feed:
	for _, eventID := range deduped {
		select {
		case jobs <- eventID:
		case <-runCtx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	stats.Duration = time.Since(start)

	log.Info().
		Str("run_id", stats.RunID).
		Int("processed", stats.Processed).
		Int("added", stats.Added).
		Int("failed", stats.Failed).
		Dur("duration", stats.Duration).
		Msg("Backfill run finished")

	if storeDown {
		return stats, fmt.Errorf("backfill aborted: store unreachable")
	}
	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("backfill interrupted: %w", err)
	}
	return stats, nil
}

// processEvent handles one event: fetch, upsert, account
func (e *Executor) processEvent(ctx context.Context, eventID int, stats *RunStats, mu *sync.Mutex, storeDown *bool, cancel context.CancelFunc) {
	bundle, err := e.fetcher.FetchEventBundle(ctx, eventID)
	if err != nil {
		if client.IsNotFound(err) {
			log.Warn().Int("event_id", eventID).Msg("Event gone upstream, skipping")
		} else {
			log.Error().Err(err).Int("event_id", eventID).Msg("Failed to fetch event bundle")
		}
		metrics.RecordBackfillEvent("fetch_failed")
		metrics.RecordError("backfill", "fetch")

		mu.Lock()
		stats.Processed++
		stats.Failed++
		stats.Errors = append(stats.Errors, RunError{Scope: "event", ID: eventID, Error: err.Error()})
		mu.Unlock()
		return
	}

	if err := e.store.UpsertEventBundle(ctx, bundle); err != nil {
		log.Error().Err(err).Int("event_id", eventID).Msg("Failed to upsert event bundle")
		metrics.RecordBackfillEvent("store_failed")
		metrics.RecordError("backfill", "store")

		mu.Lock()
		stats.Processed++
		stats.Failed++
		stats.Errors = append(stats.Errors, RunError{Scope: "event", ID: eventID, Error: err.Error()})
		mu.Unlock()

		// One bad bundle is tolerable; a dead store is not
		if healthErr := e.store.Health(ctx); healthErr != nil {
			log.Error().Err(healthErr).Msg("Store unreachable, aborting remaining backfill work")
			mu.Lock()
			*storeDown = true
			mu.Unlock()
			cancel()
		}
		return
	}

	metrics.RecordBackfillEvent("added")

	mu.Lock()
	stats.Processed++
	stats.Added++
	stats.Warnings = append(stats.Warnings, bundle.Warnings...)
	mu.Unlock()

	if len(bundle.Warnings) > 0 {
		log.Warn().
			Int("event_id", eventID).
			Strs("warnings", bundle.Warnings).
			Msg("Event added with incomplete pieces")
	}
}

// dedupe collapses duplicate event IDs preserving first-seen order
func dedupe(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
