package jobs

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores jobs in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Job
	now  func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID: make(map[string]Job),
		now:  time.Now,
	}
}

// Create stores the job.
func (r *MemoryRepo) Create(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := r.now().UTC()
	if job.Status == "" {
		job.Status = StatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[job.ID] = job
	return nil
}

// GetByID returns a job by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, jobID string) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.byID[jobID]
	if !ok {
		return Job{}, ErrNotFound
	}
	return job, nil
}

// ListPending returns pending jobs ordered by creation time.
func (r *MemoryRepo) ListPending(ctx context.Context, maxAttempts int) ([]Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Job, 0, len(r.byID))
	for _, job := range r.byID {
		if !job.Pending() {
			continue
		}
		if maxAttempts > 0 && job.Attempts >= maxAttempts {
			continue
		}
		out = append(out, job)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// MarkCompleted transitions a pending job to completed.
func (r *MemoryRepo) MarkCompleted(ctx context.Context, jobID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byID[jobID]
	if !ok {
		return ErrNotFound
	}
	if !job.Pending() {
		return ErrAlreadyCompleted
	}
	job.Status = StatusCompleted
	job.UpdatedAt = r.now().UTC()
	r.byID[jobID] = job
	return nil
}

// RecordAttempt increments the attempt counter of a pending job.
func (r *MemoryRepo) RecordAttempt(ctx context.Context, jobID string, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byID[jobID]
	if !ok {
		return ErrNotFound
	}
	if !job.Pending() {
		return ErrAlreadyCompleted
	}
	job.Attempts++
	job.LastError = reason
	job.UpdatedAt = r.now().UTC()
	r.byID[jobID] = job
	return nil
}

// PendingForLead counts pending jobs of a lead.
func (r *MemoryRepo) PendingForLead(ctx context.Context, leadID int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, job := range r.byID {
		if job.LeadID == leadID && job.Pending() {
			count++
		}
	}
	return count, nil
}
