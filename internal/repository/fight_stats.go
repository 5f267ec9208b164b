package repository

import (
	"context"
	"fmt"

	"mma_v2/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
)

// FightStatsRepository handles fight statistics database operations
type FightStatsRepository struct {
	db *Database
}

const upsertFightStatsQuery = `
	INSERT INTO fight_stats (
		event_id, promotion, fight_id, fighter_id,
		knockdowns, sig_strikes_landed, sig_strikes_attempts,
		total_strikes_landed, takedowns_landed, takedowns_attempts,
		submission_attempts, control_seconds, metrics
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (event_id, promotion, fight_id, fighter_id) DO UPDATE SET
		knockdowns = EXCLUDED.knockdowns,
		sig_strikes_landed = EXCLUDED.sig_strikes_landed,
		sig_strikes_attempts = EXCLUDED.sig_strikes_attempts,
		total_strikes_landed = EXCLUDED.total_strikes_landed,
		takedowns_landed = EXCLUDED.takedowns_landed,
		takedowns_attempts = EXCLUDED.takedowns_attempts,
		submission_attempts = EXCLUDED.submission_attempts,
		control_seconds = EXCLUDED.control_seconds,
		metrics = EXCLUDED.metrics,
		updated_at = NOW()
	RETURNING id, created_at, updated_at
`

// Upsert inserts or updates one fighter's metrics for a fight
func (r *FightStatsRepository) Upsert(ctx context.Context, stats *models.FightStats) error {
	err := r.db.Pool.QueryRow(
		ctx, upsertFightStatsQuery,
		stats.EventID, stats.Promotion, stats.FightID, stats.FighterID,
		stats.Knockdowns, stats.SigStrikesLanded, stats.SigStrikesAttempts,
		stats.TotalStrikesLanded, stats.TakedownsLanded, stats.TakedownsAttempts,
		stats.SubmissionAttempts, stats.ControlSeconds, stats.Metrics,
	).Scan(&stats.ID, &stats.CreatedAt, &stats.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert fight stats: %w", err)
	}

	return nil
}

// UpsertTx is Upsert running inside a bundle transaction
func (r *FightStatsRepository) UpsertTx(ctx context.Context, tx pgx.Tx, stats *models.FightStats) error {
	err := tx.QueryRow(
		ctx, upsertFightStatsQuery,
		stats.EventID, stats.Promotion, stats.FightID, stats.FighterID,
		stats.Knockdowns, stats.SigStrikesLanded, stats.SigStrikesAttempts,
		stats.TotalStrikesLanded, stats.TakedownsLanded, stats.TakedownsAttempts,
		stats.SubmissionAttempts, stats.ControlSeconds, stats.Metrics,
	).Scan(&stats.ID, &stats.CreatedAt, &stats.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert fight stats: %w", err)
	}

	return nil
}

// ListByFight retrieves both fighters' metrics for one fight
func (r *FightStatsRepository) ListByFight(ctx context.Context, fightID int) ([]*models.FightStats, error) {
	query := `
		SELECT id, event_id, promotion, fight_id, fighter_id,
		       knockdowns, sig_strikes_landed, sig_strikes_attempts,
		       total_strikes_landed, takedowns_landed, takedowns_attempts,
		       submission_attempts, control_seconds, metrics,
		       created_at, updated_at
		FROM fight_stats
		WHERE fight_id = $1
		ORDER BY fighter_id
	`

	rows, err := r.db.Pool.Query(ctx, query, fightID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fight stats: %w", err)
	}
	defer rows.Close()

	var results []*models.FightStats
	for rows.Next() {
		var stats models.FightStats
		err := rows.Scan(
			&stats.ID, &stats.EventID, &stats.Promotion, &stats.FightID, &stats.FighterID,
			&stats.Knockdowns, &stats.SigStrikesLanded, &stats.SigStrikesAttempts,
			&stats.TotalStrikesLanded, &stats.TakedownsLanded, &stats.TakedownsAttempts,
			&stats.SubmissionAttempts, &stats.ControlSeconds, &stats.Metrics,
			&stats.CreatedAt, &stats.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fight stats: %w", err)
		}
		results = append(results, &stats)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fight stats: %w", err)
	}

	return results, nil
}

// Count returns the total number of fight stats rows
func (r *FightStatsRepository) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM fight_stats`

	var count int
	err := r.db.Pool.QueryRow(ctx, query).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count fight stats: %w", err)
	}

	return count, nil
}
