package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// JobLock is the persisted run state of a scheduled job.
type JobLock struct {
	JobName   string         `db:"job_name" json:"job_name"`
	IsRunning bool           `db:"is_running" json:"is_running"`
	LastRunAt sql.NullTime   `db:"last_run_at" json:"-"`
	LastError sql.NullString `db:"last_error" json:"-"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// SchedulerRepository keeps per-job execution locks so that only one
// instance runs a job at a time.
type SchedulerRepository struct {
	db *sqlx.DB
}

// NewSchedulerRepository creates a new SchedulerRepository
func NewSchedulerRepository(db *sqlx.DB) *SchedulerRepository {
	return &SchedulerRepository{db: db}
}

// EnsureJob registers a job row if missing.
func (r *SchedulerRepository) EnsureJob(ctx context.Context, job string) error {
	query := fmt.Sprintf("INSERT IGNORE INTO %s (job_name, is_running, updated_at) VALUES (?, FALSE, ?)", TableSchedulerLock)
	_, err := r.db.ExecContext(ctx, query, job, time.Now().UTC())
	return err
}

// AcquireExecutionLock atomically sets is_running = true if not already
// running. Locks older than staleAfter are taken over.
func (r *SchedulerRepository) AcquireExecutionLock(ctx context.Context, job string, staleAfter time.Duration) (bool, error) {
	now := time.Now().UTC()
	query := fmt.Sprintf(`UPDATE %s SET is_running = TRUE, updated_at = ?
		WHERE job_name = ? AND (is_running = FALSE OR updated_at < ?)`, TableSchedulerLock)

	result, err := r.db.ExecContext(ctx, query, now, job, now.Add(-staleAfter))
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

// ReleaseExecutionLock clears the lock and records the run outcome.
func (r *SchedulerRepository) ReleaseExecutionLock(ctx context.Context, job string, runErr error) error {
	var lastError interface{}
	if runErr != nil {
		lastError = runErr.Error()
	}
	now := time.Now().UTC()
	query := fmt.Sprintf("UPDATE %s SET is_running = FALSE, last_run_at = ?, last_error = ?, updated_at = ? WHERE job_name = ?", TableSchedulerLock)
	_, err := r.db.ExecContext(ctx, query, now, lastError, now, job)
	return err
}

// ListJobs returns the run state of every registered job.
func (r *SchedulerRepository) ListJobs(ctx context.Context) ([]JobLock, error) {
	jobs := []JobLock{}
	query := fmt.Sprintf("SELECT job_name, is_running, last_run_at, last_error, updated_at FROM %s ORDER BY job_name", TableSchedulerLock)
	if err := sqlx.SelectContext(ctx, r.db, &jobs, query); err != nil {
		return nil, err
	}
	return jobs, nil
}
