package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"mma_v2/ingestion/internal/backfill"
	"mma_v2/ingestion/internal/models"
	"mma_v2/ingestion/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	incremental *backfill.RunStats
	full        *backfill.RunStats
	err         error
	block       chan struct{}
	calls       int
	mu          sync.Mutex
}

func (f *fakeRunner) RunIncremental(_ context.Context) (*backfill.RunStats, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return f.incremental, f.err
}

func (f *fakeRunner) RunFull(_ context.Context) (*backfill.RunStats, error) {
	return f.full, f.err
}

type fakeJobStore struct {
	runs map[string]*models.JobRun
	err  error
}

func (f *fakeJobStore) Get(_ context.Context, jobName string) (*models.JobRun, error) {
	if f.err != nil {
		return nil, f.err
	}
	run, ok := f.runs[jobName]
	if !ok {
		return nil, repository.ErrJobRunNotFound
	}
	return run, nil
}

func (f *fakeJobStore) List(_ context.Context) ([]*models.JobRun, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.JobRun
	for _, run := range f.runs {
		out = append(out, run)
	}
	return out, nil
}

type fakeHealth struct {
	err error
}

func (f *fakeHealth) Health(_ context.Context) error { return f.err }

func testRun() *models.JobRun {
	return &models.JobRun{
		JobName:    models.JobIncrementalSync,
		RunID:      "f6c2a1e0-0000-0000-0000-000000000001",
		Status:     models.RunStatusPartial,
		Processed:  10,
		Added:      9,
		Failed:     1,
		Error:      sql.NullString{String: "event 102: fetch failed", Valid: true},
		StartedAt:  time.Now().Add(-time.Minute),
		FinishedAt: time.Now(),
	}
}

func TestTriggerIncrementalSync(t *testing.T) {
	runner := &fakeRunner{
		incremental: &backfill.RunStats{RunID: "run-1", Processed: 3, Added: 3},
	}
	router := NewRouter(runner, &fakeJobStore{}, &fakeHealth{}, true)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/incremental", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status string            `json:"status"`
		Stats  backfill.RunStats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.RunStatusSuccess, body.Status)
	assert.Equal(t, 3, body.Stats.Added)
}

func TestTriggerSync_RunError(t *testing.T) {
	runner := &fakeRunner{
		full: &backfill.RunStats{RunID: "run-2", Processed: 1, Failed: 1},
		err:  errors.New("backfill aborted: store unreachable"),
	}
	router := NewRouter(runner, &fakeJobStore{}, &fakeHealth{}, true)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/full", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "store unreachable")
}

func TestTriggerSync_ConcurrentRunsRejected(t *testing.T) {
	runner := &fakeRunner{
		incremental: &backfill.RunStats{RunID: "run-3"},
		block:       make(chan struct{}),
	}
	router := NewRouter(runner, &fakeJobStore{}, &fakeHealth{}, true)

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/sync/incremental", nil))
	}()

	// Wait for the first request to take the lock
	require.Eventually(t, func() bool {
		runner.mu.Lock()
		defer runner.mu.Unlock()
		return runner.calls == 1
	}, time.Second, 5*time.Millisecond)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/sync/incremental", nil))
	assert.Equal(t, http.StatusConflict, w.Code)

	close(runner.block)
	<-firstDone
}

func TestListJobs(t *testing.T) {
	jobs := &fakeJobStore{runs: map[string]*models.JobRun{
		models.JobIncrementalSync: testRun(),
	}}
	router := NewRouter(&fakeRunner{}, jobs, &fakeHealth{}, true)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Jobs []jobRunResponse `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Jobs, 1)
	assert.Equal(t, models.JobIncrementalSync, body.Jobs[0].JobName)
	assert.Equal(t, 9, body.Jobs[0].Added)
	require.NotNil(t, body.Jobs[0].Error)
	assert.Contains(t, *body.Jobs[0].Error, "fetch failed")
}

func TestGetJob(t *testing.T) {
	jobs := &fakeJobStore{runs: map[string]*models.JobRun{
		models.JobIncrementalSync: testRun(),
	}}
	router := NewRouter(&fakeRunner{}, jobs, &fakeHealth{}, true)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/incremental_sync", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var body jobRunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.RunStatusPartial, body.Status)
	assert.Equal(t, 10, body.Processed)
}

func TestGetJob_NotFound(t *testing.T) {
	router := NewRouter(&fakeRunner{}, &fakeJobStore{}, &fakeHealth{}, true)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/never_ran", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	router := NewRouter(&fakeRunner{}, &fakeJobStore{}, &fakeHealth{}, true)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestHealth_Unhealthy(t *testing.T) {
	router := NewRouter(&fakeRunner{}, &fakeJobStore{}, &fakeHealth{err: errors.New("connection refused")}, true)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "unhealthy")
}
