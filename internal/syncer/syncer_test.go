package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"mma_v2/ingestion/internal/backfill"
	"mma_v2/ingestion/internal/models"
	"mma_v2/ingestion/internal/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCandidates struct {
	active    []int
	all       []int
	activeErr error
	allErr    error
	lastSince time.Time
}

func (f *fakeCandidates) ListActiveIDs(_ context.Context, since time.Time) ([]int, error) {
	f.lastSince = since
	return f.active, f.activeErr
}

func (f *fakeCandidates) ListIDs(_ context.Context) ([]int, error) {
	return f.all, f.allErr
}

// fakeDiffer maps fighter ID to missing event IDs, or to an error
type fakeDiffer struct {
	missing  map[int][]int
	failWith map[int]error
	diffed   []int
}

func (f *fakeDiffer) Diff(_ context.Context, fighterID int) (*reconcile.Diff, error) {
	f.diffed = append(f.diffed, fighterID)
	if err, ok := f.failWith[fighterID]; ok {
		return nil, err
	}
	return &reconcile.Diff{
		FighterID:       fighterID,
		MissingEventIDs: f.missing[fighterID],
	}, nil
}

// fakeExecutor records every Run call and returns canned stats
type fakeExecutor struct {
	calls [][]int
	stats func(eventIDs []int) *backfill.RunStats
	err   error
}

func (f *fakeExecutor) Run(_ context.Context, eventIDs []int) (*backfill.RunStats, error) {
	f.calls = append(f.calls, eventIDs)
	if f.stats != nil {
		return f.stats(eventIDs), f.err
	}
	return &backfill.RunStats{Processed: len(eventIDs), Added: len(eventIDs)}, f.err
}

type fakeJobs struct {
	recorded []*models.JobRun
	err      error
}

func (f *fakeJobs) Record(_ context.Context, run *models.JobRun) error {
	f.recorded = append(f.recorded, run)
	return f.err
}

func TestRunIncremental_HappyPath(t *testing.T) {
	candidates := &fakeCandidates{active: []int{1, 2}}
	differ := &fakeDiffer{missing: map[int][]int{1: {101}, 2: {102, 103}}}
	executor := &fakeExecutor{}
	jobs := &fakeJobs{}

	s := New(candidates, differ, executor, jobs, 14*24*time.Hour, 100)
	stats, err := s.RunIncremental(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, differ.diffed)
	require.Len(t, executor.calls, 1, "Incremental mode runs one executor pass")
	assert.Equal(t, []int{101, 102, 103}, executor.calls[0])

	assert.Equal(t, 3, stats.Processed)
	assert.Equal(t, models.RunStatusSuccess, stats.Status())

	require.Len(t, jobs.recorded, 1, "Exactly one job-run row per invocation")
	run := jobs.recorded[0]
	assert.Equal(t, models.JobIncrementalSync, run.JobName)
	assert.Equal(t, models.RunStatusSuccess, run.Status)
	assert.Equal(t, stats.RunID, run.RunID)
	assert.False(t, run.Error.Valid)
}

func TestRunIncremental_LookbackWindow(t *testing.T) {
	candidates := &fakeCandidates{}
	s := New(candidates, &fakeDiffer{}, &fakeExecutor{}, &fakeJobs{}, 48*time.Hour, 100)

	_, err := s.RunIncremental(context.Background())
	require.NoError(t, err)

	assert.WithinDuration(t, time.Now().Add(-48*time.Hour), candidates.lastSince, 5*time.Second)
}

func TestRunIncremental_DiffErrorAbsorbed(t *testing.T) {
	candidates := &fakeCandidates{active: []int{1, 2, 3}}
	differ := &fakeDiffer{
		missing:  map[int][]int{1: {101}, 3: {103}},
		failWith: map[int]error{2: errors.New("eventlog fetch failed")},
	}
	executor := &fakeExecutor{}
	jobs := &fakeJobs{}

	s := New(candidates, differ, executor, jobs, time.Hour, 100)
	stats, err := s.RunIncremental(context.Background())
	require.NoError(t, err, "A single fighter's diff failure is not a run-level error")

	require.Len(t, executor.calls, 1)
	assert.Equal(t, []int{101, 103}, executor.calls[0], "Remaining fighters still get backfilled")

	assert.Equal(t, 3, stats.Processed, "Failed diff counts as one processed unit")
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, models.RunStatusPartial, stats.Status())

	require.Len(t, stats.Errors, 1)
	assert.Equal(t, "fighter", stats.Errors[0].Scope)
	assert.Equal(t, 2, stats.Errors[0].ID)

	require.Len(t, jobs.recorded, 1)
	assert.Equal(t, models.RunStatusPartial, jobs.recorded[0].Status)
	assert.True(t, jobs.recorded[0].Error.Valid)
	assert.Contains(t, jobs.recorded[0].Error.String, "eventlog fetch failed")
}

func TestRunIncremental_UnionDedupesAcrossFighters(t *testing.T) {
	// Two fighters on the same missing card yield one backfill target
	candidates := &fakeCandidates{active: []int{1, 2}}
	differ := &fakeDiffer{missing: map[int][]int{1: {500}, 2: {500, 501}}}
	executor := &fakeExecutor{}

	s := New(candidates, differ, executor, &fakeJobs{}, time.Hour, 100)
	_, err := s.RunIncremental(context.Background())
	require.NoError(t, err)

	require.Len(t, executor.calls, 1)
	assert.Equal(t, []int{500, 501}, executor.calls[0])
}

func TestRunIncremental_CandidateSelectionFailure(t *testing.T) {
	candidates := &fakeCandidates{activeErr: errors.New("connection refused")}
	executor := &fakeExecutor{}
	jobs := &fakeJobs{}

	s := New(candidates, &fakeDiffer{}, executor, jobs, time.Hour, 100)
	_, err := s.RunIncremental(context.Background())
	require.Error(t, err)

	assert.Empty(t, executor.calls, "No backfill without a candidate set")
	require.Len(t, jobs.recorded, 1, "The failed run is still recorded")
	run := jobs.recorded[0]
	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Contains(t, run.Error.String, "connection refused")
}

func TestRunFull_Batches(t *testing.T) {
	candidates := &fakeCandidates{all: []int{1, 2, 3, 4, 5}}
	differ := &fakeDiffer{missing: map[int][]int{
		1: {10}, 2: {20}, 3: {30}, 4: {40}, 5: {50},
	}}
	executor := &fakeExecutor{}
	jobs := &fakeJobs{}

	s := New(candidates, differ, executor, jobs, time.Hour, 2)
	stats, err := s.RunFull(context.Background())
	require.NoError(t, err)

	require.Len(t, executor.calls, 3, "Five fighters at batch size two is three batches")
	assert.Equal(t, []int{10, 20}, executor.calls[0])
	assert.Equal(t, []int{30, 40}, executor.calls[1])
	assert.Equal(t, []int{50}, executor.calls[2])

	assert.Equal(t, 5, stats.Processed, "Aggregate spans all batches")
	assert.Equal(t, models.RunStatusSuccess, stats.Status())

	require.Len(t, jobs.recorded, 1, "One row regardless of batch count")
	assert.Equal(t, models.JobFullBackfill, jobs.recorded[0].JobName)
}

func TestRunFull_StoreDownAbortsRemainingBatches(t *testing.T) {
	candidates := &fakeCandidates{all: []int{1, 2, 3, 4}}
	differ := &fakeDiffer{missing: map[int][]int{1: {10}, 2: {20}, 3: {30}, 4: {40}}}
	executor := &fakeExecutor{err: errors.New("backfill aborted: store unreachable")}
	jobs := &fakeJobs{}

	s := New(candidates, differ, executor, jobs, time.Hour, 2)
	_, err := s.RunFull(context.Background())
	require.Error(t, err)

	assert.Len(t, executor.calls, 1, "Later batches are not attempted")
	require.Len(t, jobs.recorded, 1)
	assert.Equal(t, models.RunStatusFailed, jobs.recorded[0].Status)
	assert.Contains(t, jobs.recorded[0].Error.String, "store unreachable")
}

func TestRunFull_PopulationListFailure(t *testing.T) {
	candidates := &fakeCandidates{allErr: errors.New("timeout")}
	jobs := &fakeJobs{}

	s := New(candidates, &fakeDiffer{}, &fakeExecutor{}, jobs, time.Hour, 100)
	_, err := s.RunFull(context.Background())
	require.Error(t, err)

	require.Len(t, jobs.recorded, 1)
	assert.Equal(t, models.JobFullBackfill, jobs.recorded[0].JobName)
	assert.Equal(t, models.RunStatusFailed, jobs.recorded[0].Status)
}

func TestRunIncremental_RecordFailureDoesNotChangeOutcome(t *testing.T) {
	// A job_runs write failure is logged, not escalated
	candidates := &fakeCandidates{active: []int{1}}
	differ := &fakeDiffer{missing: map[int][]int{1: {101}}}
	jobs := &fakeJobs{err: errors.New("insert failed")}

	s := New(candidates, differ, &fakeExecutor{}, jobs, time.Hour, 100)
	stats, err := s.RunIncremental(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSuccess, stats.Status())
}
