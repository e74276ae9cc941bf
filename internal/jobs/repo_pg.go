package jobs

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const jobColumns = `id, lead_id, thread_id, run_id, status, attempts, last_error, created_at, updated_at`

// Create inserts a new job.
func (r *PGRepo) Create(ctx context.Context, job Job) error {
	const query = `
INSERT INTO analysis_jobs (id, lead_id, thread_id, run_id, status, attempts, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, 0, NOW(), NOW())`
	status := job.Status
	if status == "" {
		status = StatusPending
	}
	_, err := r.DB.ExecContext(ctx, query, job.ID, job.LeadID, job.ThreadID, job.RunID, status)
	return err
}

// GetByID returns a job by ID.
func (r *PGRepo) GetByID(ctx context.Context, jobID string) (Job, error) {
	query := `SELECT ` + jobColumns + ` FROM analysis_jobs WHERE id = $1 LIMIT 1`
	job, err := scanJob(r.DB.QueryRowContext(ctx, query, jobID))
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	return job, err
}

// ListPending returns pending jobs oldest first.
func (r *PGRepo) ListPending(ctx context.Context, maxAttempts int) ([]Job, error) {
	query := `SELECT ` + jobColumns + `
FROM analysis_jobs
WHERE status = 'pending' AND ($1 <= 0 OR attempts < $1)
ORDER BY created_at ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, maxAttempts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkCompleted transitions a pending job to completed.
func (r *PGRepo) MarkCompleted(ctx context.Context, jobID string) error {
	const query = `
UPDATE analysis_jobs
SET status = 'completed', updated_at = NOW()
WHERE id = $1 AND status = 'pending'`
	res, err := r.DB.ExecContext(ctx, query, jobID)
	if err != nil {
		return err
	}
	return r.checkTransition(ctx, res, jobID)
}

// RecordAttempt increments the attempt counter of a pending job.
func (r *PGRepo) RecordAttempt(ctx context.Context, jobID string, reason string) error {
	const query = `
UPDATE analysis_jobs
SET attempts = attempts + 1, last_error = $2, updated_at = NOW()
WHERE id = $1 AND status = 'pending'`
	res, err := r.DB.ExecContext(ctx, query, jobID, reason)
	if err != nil {
		return err
	}
	return r.checkTransition(ctx, res, jobID)
}

// PendingForLead counts pending jobs of a lead.
func (r *PGRepo) PendingForLead(ctx context.Context, leadID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM analysis_jobs WHERE lead_id = $1 AND status = 'pending'`
	var count int
	if err := r.DB.QueryRowContext(ctx, query, leadID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// checkTransition tells a missing job apart from one that is no longer pending.
func (r *PGRepo) checkTransition(ctx context.Context, res sql.Result, jobID string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	var status string
	err = r.DB.QueryRowContext(ctx, `SELECT status FROM analysis_jobs WHERE id = $1`, jobID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrAlreadyCompleted
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (Job, error) {
	var job Job
	var lastError sql.NullString
	if err := row.Scan(
		&job.ID,
		&job.LeadID,
		&job.ThreadID,
		&job.RunID,
		&job.Status,
		&job.Attempts,
		&lastError,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return Job{}, err
	}
	job.LastError = lastError.String
	return job, nil
}
