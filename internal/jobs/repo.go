package jobs

import "context"

// Repo defines persistence operations for analysis jobs.
type Repo interface {
	Create(ctx context.Context, job Job) error
	GetByID(ctx context.Context, jobID string) (Job, error)
	// ListPending returns pending jobs oldest first. maxAttempts > 0 excludes jobs
	// that already reached that many failed attempts.
	ListPending(ctx context.Context, maxAttempts int) ([]Job, error)
	// MarkCompleted moves a pending job to completed. It returns ErrAlreadyCompleted
	// when the job was completed before.
	MarkCompleted(ctx context.Context, jobID string) error
	RecordAttempt(ctx context.Context, jobID string, reason string) error
	// PendingForLead counts pending jobs of a lead.
	PendingForLead(ctx context.Context, leadID int64) (int, error)
}
