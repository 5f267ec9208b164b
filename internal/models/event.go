package models

import (
	"database/sql"
	"time"
)

// Event represents a fight card put on by a promotion.
// The natural key is (event_id, promotion): the upstream API numbers
// events per source and the promotion column disambiguates.
type Event struct {
	ID        int            `db:"id"`
	EventID   int            `db:"event_id"`
	Promotion string         `db:"promotion"`
	Name      string         `db:"name"`
	EventDate sql.NullTime   `db:"event_date"`
	Venue     sql.NullString `db:"venue"`
	City      sql.NullString `db:"city"`
	Country   sql.NullString `db:"country"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

// EventInput is used for creating/updating events from API
type EventInput struct {
	EventID   int    `json:"EventId"`
	Promotion string `json:"Promotion"`
	Name      string `json:"Name"`
	EventDate string `json:"EventDate"` // ISO 8601
	Venue     string `json:"Venue"`
	City      string `json:"City"`
	Country   string `json:"Country"`
}

// ToEvent converts EventInput (from API) to Event model
func (ei *EventInput) ToEvent() *Event {
	event := &Event{
		EventID:   ei.EventID,
		Promotion: ei.Promotion,
		Name:      ei.Name,
	}

	if t, err := time.Parse(time.RFC3339, ei.EventDate); err == nil {
		event.EventDate = sql.NullTime{Time: t, Valid: true}
	}
	if ei.Venue != "" {
		event.Venue = sql.NullString{String: ei.Venue, Valid: true}
	}
	if ei.City != "" {
		event.City = sql.NullString{String: ei.City, Valid: true}
	}
	if ei.Country != "" {
		event.Country = sql.NullString{String: ei.Country, Valid: true}
	}

	return event
}
