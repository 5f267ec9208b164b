package repository

import (
	"context"
	"fmt"

	"mma_v2/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
)

// EventRepository handles event (fight card) database operations
type EventRepository struct {
	db *Database
}

const upsertEventQuery = `
	INSERT INTO events (event_id, promotion, name, event_date, venue, city, country)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (event_id, promotion) DO UPDATE SET
		name = EXCLUDED.name,
		event_date = EXCLUDED.event_date,
		venue = EXCLUDED.venue,
		city = EXCLUDED.city,
		country = EXCLUDED.country,
		updated_at = NOW()
	RETURNING id, created_at, updated_at
`

// Upsert inserts or updates an event keyed by (event_id, promotion).
// Venue and date corrections from a re-fetch land through the same path.
func (r *EventRepository) Upsert(ctx context.Context, event *models.Event) error {
	err := r.db.Pool.QueryRow(
		ctx, upsertEventQuery,
		event.EventID, event.Promotion, event.Name, event.EventDate,
		event.Venue, event.City, event.Country,
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert event: %w", err)
	}

	return nil
}

// UpsertTx is Upsert running inside a bundle transaction
func (r *EventRepository) UpsertTx(ctx context.Context, tx pgx.Tx, event *models.Event) error {
	err := tx.QueryRow(
		ctx, upsertEventQuery,
		event.EventID, event.Promotion, event.Name, event.EventDate,
		event.Venue, event.City, event.Country,
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert event: %w", err)
	}

	return nil
}

// GetByNaturalKey retrieves an event by its composite natural key
func (r *EventRepository) GetByNaturalKey(ctx context.Context, eventID int, promotion string) (*models.Event, error) {
	query := `
		SELECT id, event_id, promotion, name, event_date, venue, city, country,
		       created_at, updated_at
		FROM events
		WHERE event_id = $1 AND promotion = $2
	`

	var event models.Event
	err := r.db.Pool.QueryRow(ctx, query, eventID, promotion).Scan(
		&event.ID, &event.EventID, &event.Promotion, &event.Name,
		&event.EventDate, &event.Venue, &event.City, &event.Country,
		&event.CreatedAt, &event.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("event not found: event_id=%d promotion=%s", eventID, promotion)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	return &event, nil
}

// List retrieves all events ordered by date, most recent first
func (r *EventRepository) List(ctx context.Context) ([]*models.Event, error) {
	query := `
		SELECT id, event_id, promotion, name, event_date, venue, city, country,
		       created_at, updated_at
		FROM events
		ORDER BY event_date DESC NULLS LAST
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		var event models.Event
		err := rows.Scan(
			&event.ID, &event.EventID, &event.Promotion, &event.Name,
			&event.EventDate, &event.Venue, &event.City, &event.Country,
			&event.CreatedAt, &event.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// Count returns the total number of events
func (r *EventRepository) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM events`

	var count int
	err := r.db.Pool.QueryRow(ctx, query).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}

	return count, nil
}
