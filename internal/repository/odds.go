package repository

import (
	"context"
	"fmt"

	"mma_v2/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
)

// OddsRepository handles fight odds database operations
type OddsRepository struct {
	db *Database
}

const upsertOddsQuery = `
	INSERT INTO fight_odds (
		fight_id, provider,
		fighter1_moneyline, fighter2_moneyline,
		fighter1_by_ko, fighter1_by_submission, fighter1_by_decision,
		fighter2_by_ko, fighter2_by_submission, fighter2_by_decision,
		over_rounds, over_payout, under_payout, fetched_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	ON CONFLICT (provider, fight_id) DO UPDATE SET
		fighter1_moneyline = EXCLUDED.fighter1_moneyline,
		fighter2_moneyline = EXCLUDED.fighter2_moneyline,
		fighter1_by_ko = EXCLUDED.fighter1_by_ko,
		fighter1_by_submission = EXCLUDED.fighter1_by_submission,
		fighter1_by_decision = EXCLUDED.fighter1_by_decision,
		fighter2_by_ko = EXCLUDED.fighter2_by_ko,
		fighter2_by_submission = EXCLUDED.fighter2_by_submission,
		fighter2_by_decision = EXCLUDED.fighter2_by_decision,
		over_rounds = EXCLUDED.over_rounds,
		over_payout = EXCLUDED.over_payout,
		under_payout = EXCLUDED.under_payout,
		fetched_at = EXCLUDED.fetched_at,
		updated_at = NOW()
	RETURNING id, created_at, updated_at
`

// Upsert inserts or updates a betting line keyed by (provider, fight_id)
func (r *OddsRepository) Upsert(ctx context.Context, odds *models.FightOdds) error {
	err := r.db.Pool.QueryRow(
		ctx, upsertOddsQuery,
		odds.FightID, odds.Provider,
		odds.Fighter1Moneyline, odds.Fighter2Moneyline,
		odds.Fighter1ByKO, odds.Fighter1BySubmission, odds.Fighter1ByDecision,
		odds.Fighter2ByKO, odds.Fighter2BySubmission, odds.Fighter2ByDecision,
		odds.OverRounds, odds.OverPayout, odds.UnderPayout, odds.FetchedAt,
	).Scan(&odds.ID, &odds.CreatedAt, &odds.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert odds: %w", err)
	}

	return nil
}

// UpsertTx is Upsert running inside a bundle transaction
func (r *OddsRepository) UpsertTx(ctx context.Context, tx pgx.Tx, odds *models.FightOdds) error {
	err := tx.QueryRow(
		ctx, upsertOddsQuery,
		odds.FightID, odds.Provider,
		odds.Fighter1Moneyline, odds.Fighter2Moneyline,
		odds.Fighter1ByKO, odds.Fighter1BySubmission, odds.Fighter1ByDecision,
		odds.Fighter2ByKO, odds.Fighter2BySubmission, odds.Fighter2ByDecision,
		odds.OverRounds, odds.OverPayout, odds.UnderPayout, odds.FetchedAt,
	).Scan(&odds.ID, &odds.CreatedAt, &odds.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert odds: %w", err)
	}

	return nil
}

// ListByFight retrieves every provider's lines for one fight
func (r *OddsRepository) ListByFight(ctx context.Context, fightID int) ([]*models.FightOdds, error) {
	query := `
		SELECT id, fight_id, provider,
		       fighter1_moneyline, fighter2_moneyline,
		       fighter1_by_ko, fighter1_by_submission, fighter1_by_decision,
		       fighter2_by_ko, fighter2_by_submission, fighter2_by_decision,
		       over_rounds, over_payout, under_payout,
		       fetched_at, created_at, updated_at
		FROM fight_odds
		WHERE fight_id = $1
		ORDER BY provider
	`

	rows, err := r.db.Pool.Query(ctx, query, fightID)
	if err != nil {
		return nil, fmt.Errorf("failed to list odds by fight: %w", err)
	}
	defer rows.Close()

	var results []*models.FightOdds
	for rows.Next() {
		var odds models.FightOdds
		err := rows.Scan(
			&odds.ID, &odds.FightID, &odds.Provider,
			&odds.Fighter1Moneyline, &odds.Fighter2Moneyline,
			&odds.Fighter1ByKO, &odds.Fighter1BySubmission, &odds.Fighter1ByDecision,
			&odds.Fighter2ByKO, &odds.Fighter2BySubmission, &odds.Fighter2ByDecision,
			&odds.OverRounds, &odds.OverPayout, &odds.UnderPayout,
			&odds.FetchedAt, &odds.CreatedAt, &odds.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan odds: %w", err)
		}
		results = append(results, &odds)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating odds: %w", err)
	}

	return results, nil
}

// Count returns the total number of odds records
func (r *OddsRepository) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM fight_odds`

	var count int
	err := r.db.Pool.QueryRow(ctx, query).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count odds: %w", err)
	}

	return count, nil
}
