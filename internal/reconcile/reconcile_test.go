package reconcile

import (
	"context"
	"errors"
	"testing"

	"mma_v2/ingestion/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEventlog serves a canned eventlog split into pages of pageSize
type fakeEventlog struct {
	entries  map[int][]models.EventlogEntry
	pageSize int
	calls    int
	err      error
}

func (f *fakeEventlog) FetchEventlog(_ context.Context, fighterID int, cursor string) ([]models.EventlogEntry, string, error) {
	f.calls++
	if f.err != nil {
		return nil, "", f.err
	}

	all := f.entries[fighterID]
	size := f.pageSize
	if size <= 0 {
		size = len(all)
	}

	// cursor encodes the start offset
	start := 0
	if cursor != "" {
		start = atoiCursor(cursor)
	}

	end := start + size
	next := ""
	if end >= len(all) {
		end = len(all)
	} else {
		next = itoaCursor(end)
	}

	return all[start:end], next, nil
}

func atoiCursor(c string) int { return int(c[0] - '0') }
func itoaCursor(i int) string { return string(rune('0' + i)) }

// fakeKeys is an in-memory FightKeySource
type fakeKeys struct {
	keys map[int]map[models.FightKey]struct{}
	err  error
}

func (f *fakeKeys) ExistingFightKeys(_ context.Context, fighterID int) (map[models.FightKey]struct{}, error) {
	if f.err != nil {
		return nil, f.err
	}
	keys := f.keys[fighterID]
	if keys == nil {
		keys = make(map[models.FightKey]struct{})
	}
	return keys, nil
}

func entry(fightID, eventID int) models.EventlogEntry {
	return models.EventlogEntry{FightID: fightID, EventID: eventID, Promotion: "UFC"}
}

func key(fightID, eventID int) models.FightKey {
	return models.FightKey{EventID: eventID, Promotion: "UFC", FightID: fightID}
}

func TestDiff_SetDifference(t *testing.T) {
	// 8 remote entries, 3 events (101, 102, 103) absent locally
	remote := &fakeEventlog{
		entries: map[int][]models.EventlogEntry{
			7: {
				entry(1, 11), entry(2, 12), entry(3, 13), entry(4, 14), entry(5, 15),
				entry(6, 101), entry(7, 102), entry(8, 103),
			},
		},
	}
	local := &fakeKeys{
		keys: map[int]map[models.FightKey]struct{}{
			7: {
				key(1, 11): {}, key(2, 12): {}, key(3, 13): {}, key(4, 14): {}, key(5, 15): {},
			},
		},
	}

	r := New(remote, local, nil)
	diff, err := r.Diff(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, 8, diff.RemoteFights)
	assert.Equal(t, []int{101, 102, 103}, diff.MissingEventIDs, "Exactly the absent events")
	assert.Equal(t, []models.FightKey{key(6, 101), key(7, 102), key(8, 103)}, diff.MissingFightKeys)
	assert.False(t, diff.Empty())
}

func TestDiff_FightKeyGranularity(t *testing.T) {
	// Event 50 exists locally through fighter A's bout; fighter B's bout
	// on the same card is missing and must still be reported.
	remote := &fakeEventlog{
		entries: map[int][]models.EventlogEntry{
			2: {entry(200, 50)},
		},
	}
	local := &fakeKeys{
		keys: map[int]map[models.FightKey]struct{}{
			// Fighter B has no stored fights; event 50 is present only
			// through fighter A's key, which does not involve B.
			2: {},
		},
	}

	r := New(remote, local, nil)
	diff, err := r.Diff(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, []int{50}, diff.MissingEventIDs, "Shared event must not mask the missing fight")
	assert.Equal(t, []models.FightKey{key(200, 50)}, diff.MissingFightKeys)
}

func TestDiff_NothingMissing(t *testing.T) {
	remote := &fakeEventlog{
		entries: map[int][]models.EventlogEntry{
			3: {entry(1, 10), entry(2, 20)},
		},
	}
	local := &fakeKeys{
		keys: map[int]map[models.FightKey]struct{}{
			3: {key(1, 10): {}, key(2, 20): {}},
		},
	}

	r := New(remote, local, nil)
	diff, err := r.Diff(context.Background(), 3)
	require.NoError(t, err)

	assert.True(t, diff.Empty(), "Diff must never report keys already present locally")
	assert.Empty(t, diff.MissingEventIDs)
}

func TestDiff_WalksAllPages(t *testing.T) {
	remote := &fakeEventlog{
		entries: map[int][]models.EventlogEntry{
			4: {entry(1, 10), entry(2, 20), entry(3, 30), entry(4, 40), entry(5, 50)},
		},
		pageSize: 2,
	}
	local := &fakeKeys{}

	r := New(remote, local, nil)
	diff, err := r.Diff(context.Background(), 4)
	require.NoError(t, err)

	assert.Equal(t, 5, diff.RemoteFights, "All pages must be walked")
	assert.Equal(t, 3, remote.calls, "Five entries at page size two is three pages")
	assert.Len(t, diff.MissingFightKeys, 5)
}

func TestDiff_DedupesEventIDs(t *testing.T) {
	// Two missing fights from the same card yield one missing event
	remote := &fakeEventlog{
		entries: map[int][]models.EventlogEntry{
			5: {entry(1, 60), entry(2, 60)},
		},
	}
	local := &fakeKeys{}

	r := New(remote, local, nil)
	diff, err := r.Diff(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, []int{60}, diff.MissingEventIDs)
	assert.Len(t, diff.MissingFightKeys, 2)
}

func TestDiff_RemoteErrorPropagates(t *testing.T) {
	remote := &fakeEventlog{err: errors.New("upstream down")}
	local := &fakeKeys{}

	r := New(remote, local, nil)
	_, err := r.Diff(context.Background(), 1)
	assert.Error(t, err, "Eventlog failure must surface to the caller")
}

func TestDiff_LocalErrorPropagates(t *testing.T) {
	remote := &fakeEventlog{entries: map[int][]models.EventlogEntry{1: {entry(1, 10)}}}
	local := &fakeKeys{err: errors.New("store down")}

	r := New(remote, local, nil)
	_, err := r.Diff(context.Background(), 1)
	assert.Error(t, err)
}
