package models

import (
	"database/sql"
	"time"
)

// FightKey identifies a fight by its natural composite key. Diffing
// against the remote eventlog operates on these, never on event IDs
// alone: an event shared by several fighters can be present locally
// while one fighter's bout from it is still missing.
type FightKey struct {
	EventID   int
	Promotion string
	FightID   int
}

// Fight represents a single bout on an event card
type Fight struct {
	ID        int    `db:"id"`
	FightID   int    `db:"fight_id"`
	EventID   int    `db:"event_id"`
	Promotion string `db:"promotion"`

	Fighter1ID      int            `db:"fighter1_id"`
	Fighter2ID      int            `db:"fighter2_id"`
	WeightClass     sql.NullString `db:"weight_class"`
	ScheduledRounds sql.NullInt32  `db:"scheduled_rounds"`
	Status          string         `db:"status"`

	// Result fields: null until the bout occurs, re-populated by a
	// later run when the result was published after the first fetch
	WinnerFighterID sql.NullInt32  `db:"winner_fighter_id"`
	IsDraw          sql.NullBool   `db:"is_draw"`
	IsNoContest     sql.NullBool   `db:"is_no_contest"`
	Method          sql.NullString `db:"method"`
	Round           sql.NullInt32  `db:"round"`
	ResultTime      sql.NullString `db:"result_time"` // "M:SS" into the round

	OddsURL sql.NullString `db:"odds_url"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// FightInput is used for creating/updating fights from API
type FightInput struct {
	FightID   int    `json:"FightId"`
	EventID   int    `json:"EventId"`
	Promotion string `json:"Promotion"`

	Fighter1ID   int    `json:"Fighter1Id"`
	Fighter2ID   int    `json:"Fighter2Id"`
	Fighter1Name string `json:"Fighter1Name"`
	Fighter2Name string `json:"Fighter2Name"`

	WeightClass     string `json:"WeightClass"`
	ScheduledRounds *int   `json:"ScheduledRounds,omitempty"`
	Status          string `json:"Status"`

	WinnerFighterID *int   `json:"WinnerFighterId,omitempty"`
	IsDraw          *bool  `json:"IsDraw,omitempty"`
	IsNoContest     *bool  `json:"IsNoContest,omitempty"`
	Method          string `json:"Method"`
	Round           *int   `json:"Round,omitempty"`
	ResultTime      string `json:"Time"`

	OddsURL string `json:"OddsUrl"`
}

// Key returns the composite fight key
func (f *Fight) Key() FightKey {
	return FightKey{EventID: f.EventID, Promotion: f.Promotion, FightID: f.FightID}
}

// Key returns the composite fight key for the remote payload
func (fi *FightInput) Key() FightKey {
	return FightKey{EventID: fi.EventID, Promotion: fi.Promotion, FightID: fi.FightID}
}

// ToFight converts FightInput (from API) to Fight model
func (fi *FightInput) ToFight() *Fight {
	fight := &Fight{
		FightID:    fi.FightID,
		EventID:    fi.EventID,
		Promotion:  fi.Promotion,
		Fighter1ID: fi.Fighter1ID,
		Fighter2ID: fi.Fighter2ID,
		Status:     fi.Status,
	}

	if fi.WeightClass != "" {
		fight.WeightClass = sql.NullString{String: fi.WeightClass, Valid: true}
	}
	if fi.ScheduledRounds != nil {
		fight.ScheduledRounds = sql.NullInt32{Int32: int32(*fi.ScheduledRounds), Valid: true}
	}

	// Result
	if fi.WinnerFighterID != nil {
		fight.WinnerFighterID = sql.NullInt32{Int32: int32(*fi.WinnerFighterID), Valid: true}
	}
	if fi.IsDraw != nil {
		fight.IsDraw = sql.NullBool{Bool: *fi.IsDraw, Valid: true}
	}
	if fi.IsNoContest != nil {
		fight.IsNoContest = sql.NullBool{Bool: *fi.IsNoContest, Valid: true}
	}
	if fi.Method != "" {
		fight.Method = sql.NullString{String: fi.Method, Valid: true}
	}
	if fi.Round != nil {
		fight.Round = sql.NullInt32{Int32: int32(*fi.Round), Valid: true}
	}
	if fi.ResultTime != "" {
		fight.ResultTime = sql.NullString{String: fi.ResultTime, Valid: true}
	}

	if fi.OddsURL != "" {
		fight.OddsURL = sql.NullString{String: fi.OddsURL, Valid: true}
	}

	return fight
}

// HasResult returns true once any result field is populated
func (f *Fight) HasResult() bool {
	if f.WinnerFighterID.Valid {
		return true
	}
	if f.IsDraw.Valid && f.IsDraw.Bool {
		return true
	}
	if f.IsNoContest.Valid && f.IsNoContest.Bool {
		return true
	}
	return false
}

// IsScheduled returns true if the fight has not happened yet
func (f *Fight) IsScheduled() bool {
	return f.Status == "Scheduled"
}

// IsFinal returns true if the fight is completed
func (f *Fight) IsFinal() bool {
	return f.Status == "Final"
}

// Involves returns true if the given fighter is in either corner
func (f *Fight) Involves(fighterID int) bool {
	return f.Fighter1ID == fighterID || f.Fighter2ID == fighterID
}
