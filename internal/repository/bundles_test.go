//go:build integration

package repository

import (
	"context"
	"sync"
	"testing"

	"mma_v2/ingestion/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBundle(eventID int) *models.EventBundle {
	f1 := eventID*10 + 1
	f2 := eventID*10 + 2
	fightID := eventID * 100
	winner := f1
	odds1 := -150
	odds2 := 130

	return &models.EventBundle{
		Event: models.EventInput{
			EventID:   eventID,
			Promotion: "UFC",
			Name:      "UFC Bundle Night",
			EventDate: "2026-06-13T22:00:00Z",
			Venue:     "T-Mobile Arena",
		},
		Fights: []models.FightInput{
			{
				FightID:         fightID,
				EventID:         eventID,
				Promotion:       "UFC",
				Fighter1ID:      f1,
				Fighter2ID:      f2,
				Fighter1Name:    "Bundle Fighter One",
				Fighter2Name:    "Bundle Fighter Two",
				Status:          "Final",
				WinnerFighterID: &winner,
				Method:          "Decision - Unanimous",
			},
		},
		OddsByFight: map[int][]models.OddsInput{
			fightID: {
				{
					FightID:           fightID,
					Provider:          "TestBook",
					Fighter1Moneyline: &odds1,
					Fighter2Moneyline: &odds2,
				},
			},
		},
		StatsByFight: map[int][]models.FightStatsInput{
			fightID: {
				{EventID: eventID, Promotion: "UFC", FightID: fightID, FighterID: f1},
				{EventID: eventID, Promotion: "UFC", FightID: fightID, FighterID: f2},
			},
		},
	}
}

func bundleRowCounts(t *testing.T, db *Database) (int, int, int, int) {
	t.Helper()
	ctx := context.Background()

	events, err := db.Events.Count(ctx)
	require.NoError(t, err)
	fights, err := db.Fights.Count(ctx)
	require.NoError(t, err)
	odds, err := db.Odds.Count(ctx)
	require.NoError(t, err)
	stats, err := db.FightStats.Count(ctx)
	require.NoError(t, err)

	return events, fights, odds, stats
}

func TestUpsertEventBundle_Idempotent(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	bundle := testBundle(160001)

	err := db.UpsertEventBundle(ctx, bundle)
	require.NoError(t, err, "First upsert should succeed")

	e1, f1, o1, s1 := bundleRowCounts(t, db)

	err = db.UpsertEventBundle(ctx, bundle)
	require.NoError(t, err, "Second identical upsert should succeed")

	e2, f2, o2, s2 := bundleRowCounts(t, db)

	assert.Equal(t, e1, e2, "Event row count must not change on re-upsert")
	assert.Equal(t, f1, f2, "Fight row count must not change on re-upsert")
	assert.Equal(t, o1, o2, "Odds row count must not change on re-upsert")
	assert.Equal(t, s1, s2, "Stats row count must not change on re-upsert")
}

func TestUpsertEventBundle_CreatesStubFighters(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	bundle := testBundle(160002)
	require.NoError(t, db.UpsertEventBundle(ctx, bundle))

	fighter, err := db.Fighters.GetByFighterID(ctx, bundle.Fights[0].Fighter1ID)
	require.NoError(t, err, "Corner fighter should exist after bundle upsert")
	assert.Equal(t, "Bundle Fighter One", fighter.Name)

	// A later bundle must not clobber the stub back to a placeholder
	fighter.Wins = 5
	require.NoError(t, db.Fighters.Upsert(ctx, fighter))
	require.NoError(t, db.UpsertEventBundle(ctx, bundle))

	again, err := db.Fighters.GetByFighterID(ctx, fighter.FighterID)
	require.NoError(t, err)
	assert.Equal(t, 5, again.Wins, "Stub insert must leave existing rows untouched")
}

func TestUpsertEventBundle_PartialPiecesAbsent(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	// Bundle whose odds sub-fetch failed upstream: odds map empty
	bundle := testBundle(160003)
	fightID := bundle.Fights[0].FightID
	bundle.OddsByFight = map[int][]models.OddsInput{}
	bundle.Warnings = []string{"odds fetch failed"}

	require.NoError(t, db.UpsertEventBundle(ctx, bundle), "Bundle without odds should land")

	_, err := db.Events.GetByNaturalKey(ctx, 160003, "UFC")
	require.NoError(t, err, "Event should be persisted")

	fights, err := db.Fights.ListByEvent(ctx, 160003, "UFC")
	require.NoError(t, err)
	assert.Len(t, fights, 1, "Fights should be persisted")

	odds, err := db.Odds.ListByFight(ctx, fightID)
	require.NoError(t, err)
	assert.Empty(t, odds, "Odds table should be untouched for this fight")
}

func TestUpsertEventBundle_ConcurrentSameKey(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	bundle := testBundle(160004)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = db.UpsertEventBundle(ctx, bundle)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0], "Concurrent upsert should succeed")
	require.NoError(t, errs[1], "Concurrent upsert should succeed")

	fights, err := db.Fights.ListByEvent(ctx, 160004, "UFC")
	require.NoError(t, err)
	assert.Len(t, fights, 1, "Same key must resolve to a single row")
	assert.True(t, fights[0].HasResult(), "Row must reflect a complete write, not a half-state")
}
