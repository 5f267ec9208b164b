package models

import (
	"database/sql"
	"time"
)

// FightOdds represents betting lines for a fight from a single provider.
// Several providers may post lines for the same fight; each
// (provider, fight) pair is stored once.
type FightOdds struct {
	ID       int    `db:"id"`
	FightID  int    `db:"fight_id"`
	Provider string `db:"provider"`

	// Moneyline
	Fighter1Moneyline sql.NullInt32 `db:"fighter1_moneyline"`
	Fighter2Moneyline sql.NullInt32 `db:"fighter2_moneyline"`

	// Method lines
	Fighter1ByKO         sql.NullInt32 `db:"fighter1_by_ko"`
	Fighter1BySubmission sql.NullInt32 `db:"fighter1_by_submission"`
	Fighter1ByDecision   sql.NullInt32 `db:"fighter1_by_decision"`
	Fighter2ByKO         sql.NullInt32 `db:"fighter2_by_ko"`
	Fighter2BySubmission sql.NullInt32 `db:"fighter2_by_submission"`
	Fighter2ByDecision   sql.NullInt32 `db:"fighter2_by_decision"`

	// Rounds total
	OverRounds  sql.NullFloat64 `db:"over_rounds"`
	OverPayout  sql.NullInt32   `db:"over_payout"`
	UnderPayout sql.NullInt32   `db:"under_payout"`

	FetchedAt time.Time `db:"fetched_at"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// OddsInput is used for creating/updating fight odds from API
type OddsInput struct {
	FightID  int    `json:"FightId"`
	Provider string `json:"Provider"`

	Fighter1Moneyline *int `json:"Fighter1MoneyLine"`
	Fighter2Moneyline *int `json:"Fighter2MoneyLine"`

	Fighter1ByKO         *int `json:"Fighter1ByKo"`
	Fighter1BySubmission *int `json:"Fighter1BySubmission"`
	Fighter1ByDecision   *int `json:"Fighter1ByDecision"`
	Fighter2ByKO         *int `json:"Fighter2ByKo"`
	Fighter2BySubmission *int `json:"Fighter2BySubmission"`
	Fighter2ByDecision   *int `json:"Fighter2ByDecision"`

	OverRounds  *float64 `json:"OverRounds"`
	OverPayout  *int     `json:"OverPayout"`
	UnderPayout *int     `json:"UnderPayout"`
}

// ToFightOdds converts OddsInput (from API) to FightOdds model
func (oi *OddsInput) ToFightOdds() *FightOdds {
	odds := &FightOdds{
		FightID:   oi.FightID,
		Provider:  oi.Provider,
		FetchedAt: time.Now(),
	}

	// Moneyline
	if oi.Fighter1Moneyline != nil {
		odds.Fighter1Moneyline = sql.NullInt32{Int32: int32(*oi.Fighter1Moneyline), Valid: true}
	}
	if oi.Fighter2Moneyline != nil {
		odds.Fighter2Moneyline = sql.NullInt32{Int32: int32(*oi.Fighter2Moneyline), Valid: true}
	}

	// Method lines
	if oi.Fighter1ByKO != nil {
		odds.Fighter1ByKO = sql.NullInt32{Int32: int32(*oi.Fighter1ByKO), Valid: true}
	}
	if oi.Fighter1BySubmission != nil {
		odds.Fighter1BySubmission = sql.NullInt32{Int32: int32(*oi.Fighter1BySubmission), Valid: true}
	}
	if oi.Fighter1ByDecision != nil {
		odds.Fighter1ByDecision = sql.NullInt32{Int32: int32(*oi.Fighter1ByDecision), Valid: true}
	}
	if oi.Fighter2ByKO != nil {
		odds.Fighter2ByKO = sql.NullInt32{Int32: int32(*oi.Fighter2ByKO), Valid: true}
	}
	if oi.Fighter2BySubmission != nil {
		odds.Fighter2BySubmission = sql.NullInt32{Int32: int32(*oi.Fighter2BySubmission), Valid: true}
	}
	if oi.Fighter2ByDecision != nil {
		odds.Fighter2ByDecision = sql.NullInt32{Int32: int32(*oi.Fighter2ByDecision), Valid: true}
	}

	// Rounds total
	if oi.OverRounds != nil {
		odds.OverRounds = sql.NullFloat64{Float64: *oi.OverRounds, Valid: true}
	}
	if oi.OverPayout != nil {
		odds.OverPayout = sql.NullInt32{Int32: int32(*oi.OverPayout), Valid: true}
	}
	if oi.UnderPayout != nil {
		odds.UnderPayout = sql.NullInt32{Int32: int32(*oi.UnderPayout), Valid: true}
	}

	return odds
}
