package models

import (
	"database/sql"
	"time"
)

// Job run statuses
const (
	RunStatusSuccess = "success"
	RunStatusPartial = "partial"
	RunStatusFailed  = "failed"
)

// Job names written by the sync entry points
const (
	JobIncrementalSync = "incremental_sync"
	JobFullBackfill    = "full_backfill"
)

// JobRun records the most recent outcome of a named job. One row per
// job name, overwritten on every invocation; this subsystem keeps no
// run history.
type JobRun struct {
	ID        int            `db:"id"`
	JobName   string         `db:"job_name"`
	RunID     string         `db:"run_id"`
	Status    string         `db:"status"`
	Processed int            `db:"processed"`
	Added     int            `db:"added"`
	Failed    int            `db:"failed"`
	Error     sql.NullString `db:"error"`
	StartedAt time.Time      `db:"started_at"`
	FinishedAt time.Time     `db:"finished_at"`
}

// Succeeded returns true if the last run completed without failures
func (j *JobRun) Succeeded() bool {
	return j.Status == RunStatusSuccess
}
