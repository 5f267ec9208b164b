package repository

import (
	"context"
	"fmt"

	"mma_v2/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// FightRepository handles fight database operations
type FightRepository struct {
	db *Database
}

const upsertFightQuery = `
	INSERT INTO fights (
		fight_id, event_id, promotion, fighter1_id, fighter2_id,
		weight_class, scheduled_rounds, status,
		winner_fighter_id, is_draw, is_no_contest, method, round, result_time,
		odds_url
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	ON CONFLICT (fight_id) DO UPDATE SET
		event_id = EXCLUDED.event_id,
		promotion = EXCLUDED.promotion,
		fighter1_id = EXCLUDED.fighter1_id,
		fighter2_id = EXCLUDED.fighter2_id,
		weight_class = EXCLUDED.weight_class,
		scheduled_rounds = EXCLUDED.scheduled_rounds,
		status = EXCLUDED.status,
		winner_fighter_id = EXCLUDED.winner_fighter_id,
		is_draw = EXCLUDED.is_draw,
		is_no_contest = EXCLUDED.is_no_contest,
		method = EXCLUDED.method,
		round = EXCLUDED.round,
		result_time = EXCLUDED.result_time,
		odds_url = EXCLUDED.odds_url,
		updated_at = NOW()
	RETURNING id, created_at, updated_at
`

// Upsert inserts or updates a fight keyed by fight_id
func (r *FightRepository) Upsert(ctx context.Context, fight *models.Fight) error {
	err := r.db.Pool.QueryRow(
		ctx, upsertFightQuery,
		fight.FightID, fight.EventID, fight.Promotion, fight.Fighter1ID, fight.Fighter2ID,
		fight.WeightClass, fight.ScheduledRounds, fight.Status,
		fight.WinnerFighterID, fight.IsDraw, fight.IsNoContest,
		fight.Method, fight.Round, fight.ResultTime,
		fight.OddsURL,
	).Scan(&fight.ID, &fight.CreatedAt, &fight.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert fight: %w", err)
	}

	return nil
}

// UpsertTx is Upsert running inside a bundle transaction. Re-upserting
// overwrites populated result fields (last writer wins); an actual
// result correction is logged with both values before it lands.
func (r *FightRepository) UpsertTx(ctx context.Context, tx pgx.Tx, fight *models.Fight) error {
	var prevWinner *int
	var prevMethod *string
	err := tx.QueryRow(
		ctx,
		`SELECT winner_fighter_id, method FROM fights WHERE fight_id = $1`,
		fight.FightID,
	).Scan(&prevWinner, &prevMethod)

	if err != nil && err != pgx.ErrNoRows {
		return fmt.Errorf("failed to check existing fight result: %w", err)
	}

	if prevWinner != nil && fight.WinnerFighterID.Valid && int32(*prevWinner) != fight.WinnerFighterID.Int32 {
		log.Warn().
			Int("fight_id", fight.FightID).
			Int("previous_winner", *prevWinner).
			Int32("new_winner", fight.WinnerFighterID.Int32).
			Msg("Fight result correction, overwriting previous result")
	}

	err = tx.QueryRow(
		ctx, upsertFightQuery,
		fight.FightID, fight.EventID, fight.Promotion, fight.Fighter1ID, fight.Fighter2ID,
		fight.WeightClass, fight.ScheduledRounds, fight.Status,
		fight.WinnerFighterID, fight.IsDraw, fight.IsNoContest,
		fight.Method, fight.Round, fight.ResultTime,
		fight.OddsURL,
	).Scan(&fight.ID, &fight.CreatedAt, &fight.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert fight: %w", err)
	}

	return nil
}

// ExistingFightKeys returns every stored composite fight key involving
// the fighter, in either corner. This is the local half of the
// remote-vs-local diff.
func (r *FightRepository) ExistingFightKeys(ctx context.Context, fighterID int) (map[models.FightKey]struct{}, error) {
	query := `
		SELECT event_id, promotion, fight_id
		FROM fights
		WHERE fighter1_id = $1 OR fighter2_id = $1
	`

	rows, err := r.db.Pool.Query(ctx, query, fighterID)
	if err != nil {
		return nil, fmt.Errorf("failed to get fight keys for fighter %d: %w", fighterID, err)
	}
	defer rows.Close()

	keys := make(map[models.FightKey]struct{})
	for rows.Next() {
		var key models.FightKey
		if err := rows.Scan(&key.EventID, &key.Promotion, &key.FightID); err != nil {
			return nil, fmt.Errorf("failed to scan fight key: %w", err)
		}
		keys[key] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fight keys: %w", err)
	}

	return keys, nil
}

// GetByFightID retrieves a fight by its remote natural ID
func (r *FightRepository) GetByFightID(ctx context.Context, fightID int) (*models.Fight, error) {
	query := `
		SELECT id, fight_id, event_id, promotion, fighter1_id, fighter2_id,
		       weight_class, scheduled_rounds, status,
		       winner_fighter_id, is_draw, is_no_contest, method, round, result_time,
		       odds_url, created_at, updated_at
		FROM fights
		WHERE fight_id = $1
	`

	var fight models.Fight
	err := r.db.Pool.QueryRow(ctx, query, fightID).Scan(
		&fight.ID, &fight.FightID, &fight.EventID, &fight.Promotion,
		&fight.Fighter1ID, &fight.Fighter2ID,
		&fight.WeightClass, &fight.ScheduledRounds, &fight.Status,
		&fight.WinnerFighterID, &fight.IsDraw, &fight.IsNoContest,
		&fight.Method, &fight.Round, &fight.ResultTime,
		&fight.OddsURL, &fight.CreatedAt, &fight.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("fight not found: fight_id=%d", fightID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fight: %w", err)
	}

	return &fight, nil
}

// ListByEvent retrieves all fights on one card
func (r *FightRepository) ListByEvent(ctx context.Context, eventID int, promotion string) ([]*models.Fight, error) {
	query := `
		SELECT id, fight_id, event_id, promotion, fighter1_id, fighter2_id,
		       weight_class, scheduled_rounds, status,
		       winner_fighter_id, is_draw, is_no_contest, method, round, result_time,
		       odds_url, created_at, updated_at
		FROM fights
		WHERE event_id = $1 AND promotion = $2
		ORDER BY fight_id
	`

	rows, err := r.db.Pool.Query(ctx, query, eventID, promotion)
	if err != nil {
		return nil, fmt.Errorf("failed to list fights by event: %w", err)
	}
	defer rows.Close()

	var fights []*models.Fight
	for rows.Next() {
		var fight models.Fight
		err := rows.Scan(
			&fight.ID, &fight.FightID, &fight.EventID, &fight.Promotion,
			&fight.Fighter1ID, &fight.Fighter2ID,
			&fight.WeightClass, &fight.ScheduledRounds, &fight.Status,
			&fight.WinnerFighterID, &fight.IsDraw, &fight.IsNoContest,
			&fight.Method, &fight.Round, &fight.ResultTime,
			&fight.OddsURL, &fight.CreatedAt, &fight.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fight: %w", err)
		}
		fights = append(fights, &fight)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fights: %w", err)
	}

	return fights, nil
}

// Count returns the total number of fights
func (r *FightRepository) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM fights`

	var count int
	err := r.db.Pool.QueryRow(ctx, query).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count fights: %w", err)
	}

	return count, nil
}
