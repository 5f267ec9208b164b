//go:build integration

package repository

import (
	"database/sql"
	"testing"
	"time"

	"mma_v2/ingestion/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFighterRepository_Upsert(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	fighter := &models.Fighter{
		FighterID:   140000001,
		Name:        "Jon Jones",
		Nickname:    sql.NullString{String: "Bones", Valid: true},
		WeightClass: sql.NullString{String: "Heavyweight", Valid: true},
		Wins:        27,
		Losses:      1,
	}

	// Insert new fighter
	err := db.Fighters.Upsert(ctx, fighter)
	require.NoError(t, err, "Should successfully insert fighter")
	assert.NotZero(t, fighter.ID, "Should populate serial id")

	// Verify fighter was created
	retrieved, err := db.Fighters.GetByFighterID(ctx, fighter.FighterID)
	require.NoError(t, err, "Should retrieve inserted fighter")
	assert.Equal(t, fighter.Name, retrieved.Name, "Names should match")
	assert.Equal(t, "Bones", retrieved.Nickname.String)

	// Update existing fighter
	fighter.Wins = 28
	err = db.Fighters.Upsert(ctx, fighter)
	require.NoError(t, err, "Should successfully update fighter")

	updated, err := db.Fighters.GetByFighterID(ctx, fighter.FighterID)
	require.NoError(t, err, "Should retrieve updated fighter")
	assert.Equal(t, 28, updated.Wins, "Record should be updated")
}

func TestFighterRepository_ListActiveIDs(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	now := time.Now()

	fighters := []*models.Fighter{
		{
			FighterID:   140000010,
			Name:        "Recently Fought",
			LastFightAt: sql.NullTime{Time: now.Add(-10 * 24 * time.Hour), Valid: true},
		},
		{
			FighterID:   140000011,
			Name:        "Upcoming Booking",
			NextFightAt: sql.NullTime{Time: now.Add(14 * 24 * time.Hour), Valid: true},
		},
		{
			FighterID:   140000012,
			Name:        "Long Retired",
			LastFightAt: sql.NullTime{Time: now.Add(-5 * 365 * 24 * time.Hour), Valid: true},
		},
	}

	for _, f := range fighters {
		require.NoError(t, db.Fighters.Upsert(ctx, f), "Should insert fighter")
	}

	since := now.Add(-90 * 24 * time.Hour)
	ids, err := db.Fighters.ListActiveIDs(ctx, since)
	require.NoError(t, err, "Should list active fighters")

	assert.Contains(t, ids, 140000010, "Recent fight is inside the window")
	assert.Contains(t, ids, 140000011, "Upcoming booking is inside the window")
	assert.NotContains(t, ids, 140000012, "Retired fighter is outside the window")
}

func TestFighterRepository_ListIDs(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	fighter := &models.Fighter{FighterID: 140000020, Name: "Population Member"}
	require.NoError(t, db.Fighters.Upsert(ctx, fighter))

	ids, err := db.Fighters.ListIDs(ctx)
	require.NoError(t, err, "Should list the full population")
	assert.Contains(t, ids, 140000020)
}

func TestFighterRepository_GetNotFound(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	_, err := db.Fighters.GetByFighterID(ctx, 999999999)
	assert.Error(t, err, "Should return error for non-existent fighter")
}
