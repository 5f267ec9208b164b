package models

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// FightStats represents one fighter's performance metrics for a fight.
// Rows exist only after the fight occurred. The headline numbers are
// extracted into columns, the full remote payload is kept as JSONB.
type FightStats struct {
	ID        int    `db:"id"`
	EventID   int    `db:"event_id"`
	Promotion string `db:"promotion"`
	FightID   int    `db:"fight_id"`
	FighterID int    `db:"fighter_id"`

	Knockdowns         sql.NullInt32 `db:"knockdowns"`
	SigStrikesLanded   sql.NullInt32 `db:"sig_strikes_landed"`
	SigStrikesAttempts sql.NullInt32 `db:"sig_strikes_attempts"`
	TotalStrikesLanded sql.NullInt32 `db:"total_strikes_landed"`
	TakedownsLanded    sql.NullInt32 `db:"takedowns_landed"`
	TakedownsAttempts  sql.NullInt32 `db:"takedowns_attempts"`
	SubmissionAttempts sql.NullInt32 `db:"submission_attempts"`
	ControlSeconds     sql.NullInt32 `db:"control_seconds"`

	// Full metric payload (JSONB)
	Metrics json.RawMessage `db:"metrics"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// FightStatsInput is used for creating/updating fight statistics from API
type FightStatsInput struct {
	EventID   int    `json:"EventId"`
	Promotion string `json:"Promotion"`
	FightID   int    `json:"FightId"`
	FighterID int    `json:"FighterId"`

	Knockdowns         *int `json:"Knockdowns,omitempty"`
	SigStrikesLanded   *int `json:"SignificantStrikesLanded,omitempty"`
	SigStrikesAttempts *int `json:"SignificantStrikesAttempted,omitempty"`
	TotalStrikesLanded *int `json:"TotalStrikesLanded,omitempty"`
	TakedownsLanded    *int `json:"TakedownsLanded,omitempty"`
	TakedownsAttempts  *int `json:"TakedownsAttempted,omitempty"`
	SubmissionAttempts *int `json:"SubmissionAttempts,omitempty"`
	ControlTime        string `json:"ControlTime"` // Format: "MM:SS"

	// Everything else the endpoint returns, kept verbatim
	Metrics map[string]interface{} `json:"Metrics,omitempty"`
}

// ToFightStats converts FightStatsInput (from API) to FightStats model
func (si *FightStatsInput) ToFightStats() *FightStats {
	stats := &FightStats{
		EventID:   si.EventID,
		Promotion: si.Promotion,
		FightID:   si.FightID,
		FighterID: si.FighterID,
	}

	if si.Knockdowns != nil {
		stats.Knockdowns = sql.NullInt32{Int32: int32(*si.Knockdowns), Valid: true}
	}
	if si.SigStrikesLanded != nil {
		stats.SigStrikesLanded = sql.NullInt32{Int32: int32(*si.SigStrikesLanded), Valid: true}
	}
	if si.SigStrikesAttempts != nil {
		stats.SigStrikesAttempts = sql.NullInt32{Int32: int32(*si.SigStrikesAttempts), Valid: true}
	}
	if si.TotalStrikesLanded != nil {
		stats.TotalStrikesLanded = sql.NullInt32{Int32: int32(*si.TotalStrikesLanded), Valid: true}
	}
	if si.TakedownsLanded != nil {
		stats.TakedownsLanded = sql.NullInt32{Int32: int32(*si.TakedownsLanded), Valid: true}
	}
	if si.TakedownsAttempts != nil {
		stats.TakedownsAttempts = sql.NullInt32{Int32: int32(*si.TakedownsAttempts), Valid: true}
	}
	if si.SubmissionAttempts != nil {
		stats.SubmissionAttempts = sql.NullInt32{Int32: int32(*si.SubmissionAttempts), Valid: true}
	}

	// Parse control time (format: "MM:SS")
	if si.ControlTime != "" {
		var minutes, seconds int
		if n, _ := fmt.Sscanf(si.ControlTime, "%d:%d", &minutes, &seconds); n == 2 {
			stats.ControlSeconds = sql.NullInt32{Int32: int32(minutes*60 + seconds), Valid: true}
		}
	}

	// Full payload as JSONB
	if len(si.Metrics) > 0 {
		if jsonData, err := json.Marshal(si.Metrics); err == nil {
			stats.Metrics = jsonData
		}
	}

	return stats
}
