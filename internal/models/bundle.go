package models

// EventDetailResponse represents the card-detail endpoint payload:
// the event itself plus every fight on the card
type EventDetailResponse struct {
	Event  EventInput   `json:"Event"`
	Fights []FightInput `json:"Fights"`
}

// FightOddsResponse represents the per-fight odds endpoint payload
type FightOddsResponse struct {
	FightID int         `json:"FightId"`
	Odds    []OddsInput `json:"Odds"`
}

// FightStatsResponse represents the per-fight statistics endpoint payload
type FightStatsResponse struct {
	FightID int               `json:"FightId"`
	Stats   []FightStatsInput `json:"Stats"`
}

// EventBundle is the assembled payload for one event: card detail, its
// fights, and per-fight odds and statistics keyed by fight ID. Odds or
// statistics that could not be fetched are simply absent, with the
// reason noted in Warnings; an absent piece never invalidates the rest
// of the bundle.
type EventBundle struct {
	Event        EventInput
	Fights       []FightInput
	OddsByFight  map[int][]OddsInput
	StatsByFight map[int][]FightStatsInput
	Warnings     []string
}

// FightKeys returns the composite keys of every fight in the bundle
func (b *EventBundle) FightKeys() []FightKey {
	keys := make([]FightKey, 0, len(b.Fights))
	for i := range b.Fights {
		keys = append(keys, b.Fights[i].Key())
	}
	return keys
}
