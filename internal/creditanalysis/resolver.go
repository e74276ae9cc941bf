package creditanalysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/extraction"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/jobs"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/llm"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/telemetry"
)

// JobResolver checks one job against the analysis service.
type JobResolver interface {
	Resolve(ctx context.Context, job jobs.Job) (*extraction.StatementExtraction, error)
}

// Resolver turns completed runs into validated extractions.
type Resolver struct {
	Service   llm.AnalysisService
	Jobs      jobs.Repo
	Tolerance float64
}

// Resolve returns the extraction of a job whose run completed, or nil when there is
// nothing to do yet. The job is marked completed only after the extraction validates.
func (r *Resolver) Resolve(ctx context.Context, job jobs.Job) (*extraction.StatementExtraction, error) {
	if !job.Pending() {
		return nil, nil
	}
	fields := map[string]any{"job_id": job.ID, "lead_id": job.LeadID}
	if job.ThreadID == "" || job.RunID == "" || job.LeadID <= 0 {
		telemetry.Warn("analysis.job.incomplete", fields)
		return nil, nil
	}

	status, err := r.Service.GetRunStatus(ctx, job.ThreadID, job.RunID)
	if err != nil {
		return nil, &TransientPollError{JobID: job.ID, Err: fmt.Errorf("get run status: %w", err)}
	}
	fields["run_status"] = status.Status
	if !status.Completed() {
		if status.LastError != "" {
			fields["run_error"] = status.LastError
		}
		telemetry.Info("analysis.run.status", fields)
		return nil, nil
	}

	msg, err := r.Service.LatestMessage(ctx, job.ThreadID)
	if err != nil {
		return nil, &TransientPollError{JobID: job.ID, Err: fmt.Errorf("latest message: %w", err)}
	}
	if msg.Type != llm.MessageTypeText {
		return nil, r.malformed(ctx, job, fmt.Errorf("%w: content type %q", extraction.ErrMalformed, msg.Type))
	}
	ex, err := extraction.Parse(msg.Text)
	if err != nil {
		return nil, r.malformed(ctx, job, err)
	}

	if err := r.Jobs.MarkCompleted(ctx, job.ID); err != nil {
		if errors.Is(err, jobs.ErrAlreadyCompleted) {
			telemetry.Info("analysis.job.already_completed", fields)
			return nil, nil
		}
		return nil, &TransientPollError{JobID: job.ID, Err: fmt.Errorf("mark completed: %w", err)}
	}

	r.logDiscrepancies(job, ex)
	telemetry.Info("analysis.job.completed", fields)
	return &ex, nil
}

func (r *Resolver) malformed(ctx context.Context, job jobs.Job, cause error) error {
	if err := r.Jobs.RecordAttempt(ctx, job.ID, cause.Error()); err != nil {
		telemetry.Warn("analysis.job.record_attempt_failed", map[string]any{
			"job_id": job.ID,
			"error":  err.Error(),
		})
	}
	return &MalformedExtractionError{JobID: job.ID, Err: cause}
}

func (r *Resolver) logDiscrepancies(job jobs.Job, ex extraction.StatementExtraction) {
	tolerance := r.Tolerance
	if tolerance <= 0 {
		tolerance = extraction.DefaultTolerance
	}
	for _, d := range ex.Discrepancies(tolerance) {
		telemetry.Warn("analysis.extraction.discrepancy", map[string]any{
			"job_id":   job.ID,
			"lead_id":  job.LeadID,
			"month":    d.Month,
			"field":    d.Field,
			"expected": d.Expected,
			"actual":   d.Actual,
		})
	}
}
