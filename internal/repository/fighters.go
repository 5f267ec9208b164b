package repository

import (
	"context"
	"fmt"
	"time"

	"mma_v2/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// FighterRepository handles fighter database operations
type FighterRepository struct {
	db *Database
}

// Upsert inserts or updates a fighter keyed by the remote fighter_id
func (r *FighterRepository) Upsert(ctx context.Context, fighter *models.Fighter) error {
	query := `
		INSERT INTO fighters (
			fighter_id, name, nickname, weight_class, country,
			wins, losses, draws, no_contests, last_fight_at, next_fight_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (fighter_id) DO UPDATE SET
			name = EXCLUDED.name,
			nickname = EXCLUDED.nickname,
			weight_class = EXCLUDED.weight_class,
			country = EXCLUDED.country,
			wins = EXCLUDED.wins,
			losses = EXCLUDED.losses,
			draws = EXCLUDED.draws,
			no_contests = EXCLUDED.no_contests,
			last_fight_at = EXCLUDED.last_fight_at,
			next_fight_at = EXCLUDED.next_fight_at,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.db.Pool.QueryRow(
		ctx, query,
		fighter.FighterID, fighter.Name, fighter.Nickname, fighter.WeightClass, fighter.Country,
		fighter.Wins, fighter.Losses, fighter.Draws, fighter.NoContests,
		fighter.LastFightAt, fighter.NextFightAt,
	).Scan(&fighter.ID, &fighter.CreatedAt, &fighter.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert fighter: %w", err)
	}

	return nil
}

// EnsureExistsTx creates a stub fighter row on first discovery inside a
// bundle transaction. Existing rows are left untouched; the periodic
// profile refresh owns the full attribute set.
func (r *FighterRepository) EnsureExistsTx(ctx context.Context, tx pgx.Tx, fighterID int, name string) error {
	if name == "" {
		name = fmt.Sprintf("Fighter %d", fighterID)
	}

	query := `
		INSERT INTO fighters (fighter_id, name)
		VALUES ($1, $2)
		ON CONFLICT (fighter_id) DO NOTHING
	`

	if _, err := tx.Exec(ctx, query, fighterID, name); err != nil {
		return fmt.Errorf("failed to ensure fighter %d exists: %w", fighterID, err)
	}

	return nil
}

// GetByFighterID retrieves a fighter by its remote natural ID
func (r *FighterRepository) GetByFighterID(ctx context.Context, fighterID int) (*models.Fighter, error) {
	query := `
		SELECT id, fighter_id, name, nickname, weight_class, country,
		       wins, losses, draws, no_contests, last_fight_at, next_fight_at,
		       created_at, updated_at
		FROM fighters
		WHERE fighter_id = $1
	`

	var fighter models.Fighter
	err := r.db.Pool.QueryRow(ctx, query, fighterID).Scan(
		&fighter.ID, &fighter.FighterID, &fighter.Name, &fighter.Nickname,
		&fighter.WeightClass, &fighter.Country,
		&fighter.Wins, &fighter.Losses, &fighter.Draws, &fighter.NoContests,
		&fighter.LastFightAt, &fighter.NextFightAt,
		&fighter.CreatedAt, &fighter.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("fighter not found: fighter_id=%d", fighterID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fighter: %w", err)
	}

	return &fighter, nil
}

// ListIDs returns the remote IDs of the entire fighter population,
// used by full-backfill candidate selection
func (r *FighterRepository) ListIDs(ctx context.Context) ([]int, error) {
	query := `SELECT fighter_id FROM fighters ORDER BY fighter_id`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list fighter ids: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan fighter id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fighter ids: %w", err)
	}

	return ids, nil
}

// ListActiveIDs returns fighters with activity inside the lookback
// window: a fight on or after since, or an upcoming booking. Used by
// incremental candidate selection.
func (r *FighterRepository) ListActiveIDs(ctx context.Context, since time.Time) ([]int, error) {
	query := `
		SELECT fighter_id
		FROM fighters
		WHERE last_fight_at >= $1 OR next_fight_at >= $1
		ORDER BY fighter_id
	`

	rows, err := r.db.Pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list active fighter ids: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan fighter id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating active fighter ids: %w", err)
	}

	log.Debug().
		Int("count", len(ids)).
		Time("since", since).
		Msg("Selected active fighters")

	return ids, nil
}

// List retrieves all fighters
func (r *FighterRepository) List(ctx context.Context) ([]*models.Fighter, error) {
	query := `
		SELECT id, fighter_id, name, nickname, weight_class, country,
		       wins, losses, draws, no_contests, last_fight_at, next_fight_at,
		       created_at, updated_at
		FROM fighters
		ORDER BY name
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list fighters: %w", err)
	}
	defer rows.Close()

	var fighters []*models.Fighter
	for rows.Next() {
		var fighter models.Fighter
		err := rows.Scan(
			&fighter.ID, &fighter.FighterID, &fighter.Name, &fighter.Nickname,
			&fighter.WeightClass, &fighter.Country,
			&fighter.Wins, &fighter.Losses, &fighter.Draws, &fighter.NoContests,
			&fighter.LastFightAt, &fighter.NextFightAt,
			&fighter.CreatedAt, &fighter.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fighter: %w", err)
		}
		fighters = append(fighters, &fighter)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fighters: %w", err)
	}

	return fighters, nil
}

// Count returns the total number of fighters
func (r *FighterRepository) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM fighters`

	var count int
	err := r.db.Pool.QueryRow(ctx, query).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count fighters: %w", err)
	}

	return count, nil
}
