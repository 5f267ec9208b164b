package repository

import (
	"context"
	"fmt"

	"mma_v2/ingestion/internal/models"

	"github.com/rs/zerolog/log"
)

// UpsertEventBundle applies one fetched event bundle as a single
// transaction in referential order: event first, then the corner
// fighters (stub rows on first discovery), then fights, then odds and
// statistics. Every write is an ON CONFLICT natural-key upsert, so
// re-applying an identical bundle changes nothing and two workers
// landing the same bundle concurrently resolve to last writer wins.
// Any failure rolls the whole bundle back.
func (db *Database) UpsertEventBundle(ctx context.Context, bundle *models.EventBundle) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin bundle transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	event := bundle.Event.ToEvent()
	if err := db.Events.UpsertTx(ctx, tx, event); err != nil {
		return fmt.Errorf("failed to upsert bundle event %d: %w", event.EventID, err)
	}

	for i := range bundle.Fights {
		input := &bundle.Fights[i]

		if err := db.Fighters.EnsureExistsTx(ctx, tx, input.Fighter1ID, input.Fighter1Name); err != nil {
			return err
		}
		if err := db.Fighters.EnsureExistsTx(ctx, tx, input.Fighter2ID, input.Fighter2Name); err != nil {
			return err
		}

		fight := input.ToFight()
		if err := db.Fights.UpsertTx(ctx, tx, fight); err != nil {
			return fmt.Errorf("failed to upsert bundle fight %d: %w", fight.FightID, err)
		}
	}

	for fightID, oddsInputs := range bundle.OddsByFight {
		for i := range oddsInputs {
			odds := oddsInputs[i].ToFightOdds()
			if err := db.Odds.UpsertTx(ctx, tx, odds); err != nil {
				return fmt.Errorf("failed to upsert bundle odds for fight %d: %w", fightID, err)
			}
		}
	}

	for fightID, statsInputs := range bundle.StatsByFight {
		for i := range statsInputs {
			stats := statsInputs[i].ToFightStats()
			if err := db.FightStats.UpsertTx(ctx, tx, stats); err != nil {
				return fmt.Errorf("failed to upsert bundle stats for fight %d: %w", fightID, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit bundle transaction: %w", err)
	}

	log.Debug().
		Int("event_id", event.EventID).
		Str("promotion", event.Promotion).
		Int("fights", len(bundle.Fights)).
		Int("odds_fights", len(bundle.OddsByFight)).
		Int("stats_fights", len(bundle.StatsByFight)).
		Msg("Event bundle upserted")

	return nil
}
