package models

// EventlogEntry is one row of a fighter's remote fight history. It
// carries just enough context to derive the local composite fight key
// and to decide whether the referenced event needs a backfill.
type EventlogEntry struct {
	FightID    int    `json:"FightId"`
	EventID    int    `json:"EventId"`
	Promotion  string `json:"Promotion"`
	EventName  string `json:"EventName"`
	EventDate  string `json:"EventDate"` // ISO 8601
	OpponentID int    `json:"OpponentId"`
	Result     string `json:"Result"`
}

// Key returns the composite fight key this entry refers to
func (e *EventlogEntry) Key() FightKey {
	return FightKey{EventID: e.EventID, Promotion: e.Promotion, FightID: e.FightID}
}

// EventlogPage represents one page of the eventlog-by-fighter endpoint.
// An empty NextCursor marks the last page.
type EventlogPage struct {
	FighterID  int             `json:"FighterId"`
	Entries    []EventlogEntry `json:"Entries"`
	NextCursor string          `json:"NextCursor"`
}
