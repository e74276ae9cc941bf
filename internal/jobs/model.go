package jobs

import (
	"errors"
	"time"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

var (
	ErrNotFound         = errors.New("job not found")
	ErrAlreadyCompleted = errors.New("job already completed")
)

// Job tracks one analysis run queued with the document-analysis service.
type Job struct {
	ID        string    `json:"id"`
	LeadID    int64     `json:"leadId"`
	ThreadID  string    `json:"threadId"`
	RunID     string    `json:"runId"`
	Status    string    `json:"status"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"lastError,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Pending reports whether the job still waits for a result.
func (j Job) Pending() bool {
	return j.Status == StatusPending
}
