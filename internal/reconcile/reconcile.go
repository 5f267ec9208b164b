// Package reconcile computes, per fighter, which remotely known fights
// are absent from the local store. The diff is pure: it reads remote
// and local state and returns the difference without writing anything.
package reconcile

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"mma_v2/ingestion/internal/cache"
	"mma_v2/ingestion/internal/metrics"
	"mma_v2/ingestion/internal/models"
)

// maxEventlogPages bounds pagination in case the upstream ever hands
// back a cursor cycle. No real fighter career comes close.
const maxEventlogPages = 100

// EventlogFetcher fetches one page of a fighter's remote eventlog
type EventlogFetcher interface {
	FetchEventlog(ctx context.Context, fighterID int, cursor string) ([]models.EventlogEntry, string, error)
}

// FightKeySource returns the composite fight keys already stored for a fighter
type FightKeySource interface {
	ExistingFightKeys(ctx context.Context, fighterID int) (map[models.FightKey]struct{}, error)
}

// Diff is the result of one reconciliation pass for one fighter
type Diff struct {
	FighterID    int
	RemoteFights int

	// MissingEventIDs are the events owning at least one missing fight,
	// deduplicated, in eventlog order
	MissingEventIDs []int

	// MissingFightKeys are the remote fight keys absent locally
	MissingFightKeys []models.FightKey
}

// Empty returns true when the local store already holds every remote fight
func (d *Diff) Empty() bool {
	return len(d.MissingFightKeys) == 0
}

// Reconciler diffs a fighter's remote eventlog against the local store
type Reconciler struct {
	remote EventlogFetcher
	local  FightKeySource
	cache  *cache.RedisCache
}

// New creates a Reconciler. cache may be nil to skip eventlog caching.
func New(remote EventlogFetcher, local FightKeySource, c *cache.RedisCache) *Reconciler {
	return &Reconciler{remote: remote, local: local, cache: c}
}

// fetchFullEventlog walks pagination to exhaustion, through the cache
// when one is configured
func (r *Reconciler) fetchFullEventlog(ctx context.Context, fighterID int) ([]models.EventlogEntry, error) {
	if entries, ok := r.cache.GetEventlog(ctx, fighterID); ok {
		log.Debug().
			Int("fighter_id", fighterID).
			Int("entries", len(entries)).
			Msg("Eventlog served from cache")
		return entries, nil
	}

	var entries []models.EventlogEntry
	cursor := ""
	for page := 0; page < maxEventlogPages; page++ {
		pageEntries, nextCursor, err := r.remote.FetchEventlog(ctx, fighterID, cursor)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch eventlog page for fighter %d: %w", fighterID, err)
		}

		entries = append(entries, pageEntries...)
		if nextCursor == "" {
			r.cache.SetEventlog(ctx, fighterID, entries)
			return entries, nil
		}
		cursor = nextCursor
	}

	log.Warn().
		Int("fighter_id", fighterID).
		Int("pages", maxEventlogPages).
		Msg("Eventlog pagination cap hit, treating as complete")
	return entries, nil
}

// Diff returns the remote fight references absent from the local store.
// The comparison runs at fight-key granularity: an event that already
// exists locally through another fighter still shows up here when this
// fighter's bout from it is missing.
func (r *Reconciler) Diff(ctx context.Context, fighterID int) (*Diff, error) {
	entries, err := r.fetchFullEventlog(ctx, fighterID)
	if err != nil {
		return nil, err
	}

	existing, err := r.local.ExistingFightKeys(ctx, fighterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load local fight keys for fighter %d: %w", fighterID, err)
	}

	diff := &Diff{
		FighterID:    fighterID,
		RemoteFights: len(entries),
	}

	seenEvents := make(map[int]struct{})
	for i := range entries {
		key := entries[i].Key()
		if _, ok := existing[key]; ok {
			continue
		}

		diff.MissingFightKeys = append(diff.MissingFightKeys, key)
		if _, ok := seenEvents[key.EventID]; !ok {
			seenEvents[key.EventID] = struct{}{}
			diff.MissingEventIDs = append(diff.MissingEventIDs, key.EventID)
		}
	}

	metrics.RecordMissingFights(len(diff.MissingFightKeys))

	log.Debug().
		Int("fighter_id", fighterID).
		Int("remote_fights", diff.RemoteFights).
		Int("local_fights", len(existing)).
		Int("missing_fights", len(diff.MissingFightKeys)).
		Int("missing_events", len(diff.MissingEventIDs)).
		Msg("Computed fighter diff")

	return diff, nil
}
