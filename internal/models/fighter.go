package models

import (
	"database/sql"
	"time"
)

// Fighter represents a professional MMA fighter
type Fighter struct {
	ID          int            `db:"id"`
	FighterID   int            `db:"fighter_id"`
	Name        string         `db:"name"`
	Nickname    sql.NullString `db:"nickname"`
	WeightClass sql.NullString `db:"weight_class"`
	Country     sql.NullString `db:"country"`
	Wins        int            `db:"wins"`
	Losses      int            `db:"losses"`
	Draws       int            `db:"draws"`
	NoContests  int            `db:"no_contests"`

	// Activity window, drives incremental candidate selection
	LastFightAt sql.NullTime `db:"last_fight_at"`
	NextFightAt sql.NullTime `db:"next_fight_at"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// FighterInput is used for creating/updating fighters from API
type FighterInput struct {
	FighterID   int    `json:"FighterId"`
	Name        string `json:"Name"`
	Nickname    string `json:"Nickname"`
	WeightClass string `json:"WeightClass"`
	Country     string `json:"Country"`
	Wins        *int   `json:"Wins,omitempty"`
	Losses      *int   `json:"Losses,omitempty"`
	Draws       *int   `json:"Draws,omitempty"`
	NoContests  *int   `json:"NoContests,omitempty"`

	LastFightDate string `json:"LastFightDate"` // ISO 8601
	NextFightDate string `json:"NextFightDate"` // ISO 8601
}

// ToFighter converts FighterInput (from API) to Fighter model
func (fi *FighterInput) ToFighter() *Fighter {
	fighter := &Fighter{
		FighterID: fi.FighterID,
		Name:      fi.Name,
	}

	if fi.Nickname != "" {
		fighter.Nickname = sql.NullString{String: fi.Nickname, Valid: true}
	}
	if fi.WeightClass != "" {
		fighter.WeightClass = sql.NullString{String: fi.WeightClass, Valid: true}
	}
	if fi.Country != "" {
		fighter.Country = sql.NullString{String: fi.Country, Valid: true}
	}

	// Record
	if fi.Wins != nil {
		fighter.Wins = *fi.Wins
	}
	if fi.Losses != nil {
		fighter.Losses = *fi.Losses
	}
	if fi.Draws != nil {
		fighter.Draws = *fi.Draws
	}
	if fi.NoContests != nil {
		fighter.NoContests = *fi.NoContests
	}

	// Activity window
	if t, err := time.Parse(time.RFC3339, fi.LastFightDate); err == nil {
		fighter.LastFightAt = sql.NullTime{Time: t, Valid: true}
	}
	if t, err := time.Parse(time.RFC3339, fi.NextFightDate); err == nil {
		fighter.NextFightAt = sql.NullTime{Time: t, Valid: true}
	}

	return fighter
}

// IsActiveSince returns true if the fighter fought or has a booking
// within the window starting at since
func (f *Fighter) IsActiveSince(since time.Time) bool {
	if f.LastFightAt.Valid && !f.LastFightAt.Time.Before(since) {
		return true
	}
	if f.NextFightAt.Valid && !f.NextFightAt.Time.Before(since) {
		return true
	}
	return false
}
