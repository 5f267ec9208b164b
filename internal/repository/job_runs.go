package repository

import (
	"context"
	"fmt"

	"mma_v2/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// JobRunRepository handles job-run bookkeeping. One row per job name,
// overwritten on every run; any caller needing freshness reads the row
// instead of sharing in-process state.
type JobRunRepository struct {
	db *Database
}

// Record overwrites the run row for the job. Called exactly once at the
// end of each orchestrator invocation.
func (r *JobRunRepository) Record(ctx context.Context, run *models.JobRun) error {
	query := `
		INSERT INTO job_runs (
			job_name, run_id, status, processed, added, failed, error,
			started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (job_name) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			status = EXCLUDED.status,
			processed = EXCLUDED.processed,
			added = EXCLUDED.added,
			failed = EXCLUDED.failed,
			error = EXCLUDED.error,
			started_at = EXCLUDED.started_at,
			finished_at = EXCLUDED.finished_at
		RETURNING id
	`

	err := r.db.Pool.QueryRow(
		ctx, query,
		run.JobName, run.RunID, run.Status,
		run.Processed, run.Added, run.Failed, run.Error,
		run.StartedAt, run.FinishedAt,
	).Scan(&run.ID)

	if err != nil {
		return fmt.Errorf("failed to record job run: %w", err)
	}

	log.Debug().
		Str("job", run.JobName).
		Str("run_id", run.RunID).
		Str("status", run.Status).
		Msg("Job run recorded")

	return nil
}

// Get retrieves the last run for a job name
func (r *JobRunRepository) Get(ctx context.Context, jobName string) (*models.JobRun, error) {
	query := `
		SELECT id, job_name, run_id, status, processed, added, failed, error,
		       started_at, finished_at
		FROM job_runs
		WHERE job_name = $1
	`

	var run models.JobRun
	err := r.db.Pool.QueryRow(ctx, query, jobName).Scan(
		&run.ID, &run.JobName, &run.RunID, &run.Status,
		&run.Processed, &run.Added, &run.Failed, &run.Error,
		&run.StartedAt, &run.FinishedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, ErrJobRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job run: %w", err)
	}

	return &run, nil
}

// List retrieves the last run of every known job
func (r *JobRunRepository) List(ctx context.Context) ([]*models.JobRun, error) {
	query := `
		SELECT id, job_name, run_id, status, processed, added, failed, error,
		       started_at, finished_at
		FROM job_runs
		ORDER BY job_name
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list job runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.JobRun
	for rows.Next() {
		var run models.JobRun
		err := rows.Scan(
			&run.ID, &run.JobName, &run.RunID, &run.Status,
			&run.Processed, &run.Added, &run.Failed, &run.Error,
			&run.StartedAt, &run.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job run: %w", err)
		}
		runs = append(runs, &run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating job runs: %w", err)
	}

	return runs, nil
}
