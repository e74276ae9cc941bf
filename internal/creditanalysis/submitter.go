package creditanalysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/extraction"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/jobs"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/llm"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/metrics"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/telemetry"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/statements"
)

const queuedMessage = "statements queued for analysis"

// SubmitResult is the outcome reported to callers of Submit.
type SubmitResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	JobID   string `json:"jobId,omitempty"`
}

// Submitter uploads statements to the analysis service and records a pending job.
type Submitter struct {
	Service     llm.AnalysisService
	Jobs        jobs.Repo
	AssistantID string
	NewID       func() string
}

// Submit queues one analysis run for the lead. Nothing is persisted unless every step succeeds.
func (s *Submitter) Submit(ctx context.Context, leadID int64, docs []statements.Document) (SubmitResult, error) {
	jobID, err := s.submit(ctx, leadID, docs)
	if err != nil {
		metrics.IncSubmissionFailure()
		fields := map[string]any{"lead_id": leadID, "error": err.Error()}
		var se *SubmissionError
		if errors.As(err, &se) {
			fields["stage"] = se.Stage
		}
		telemetry.Error("submit.failed", fields)
		return SubmitResult{Success: false, Error: err.Error()}, err
	}

	metrics.IncSubmission()
	telemetry.Info("submit.queued", map[string]any{"lead_id": leadID, "job_id": jobID})
	return SubmitResult{Success: true, Message: queuedMessage, JobID: jobID}, nil
}

// Queue satisfies the profile flow's queue contract.
func (s *Submitter) Queue(ctx context.Context, leadID int64, docs []statements.Document) error {
	_, err := s.Submit(ctx, leadID, docs)
	return err
}

func (s *Submitter) submit(ctx context.Context, leadID int64, docs []statements.Document) (string, error) {
	if leadID <= 0 {
		return "", &SubmissionError{Stage: StageValidate, Err: ErrInvalidLead}
	}
	if len(docs) != statements.Count {
		return "", &SubmissionError{Stage: StageValidate, Err: fmt.Errorf("%w: got %d", ErrStatementCount, len(docs))}
	}
	for i, doc := range docs {
		if _, err := statements.Inspect(ctx, doc.Data, doc.ContentType); err != nil {
			return "", &SubmissionError{Stage: StageValidate, Err: fmt.Errorf("statement %d: %w", i+1, err)}
		}
	}

	fileIDs := make([]string, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	for i, doc := range docs {
		i, doc := i, doc
		g.Go(func() error {
			name := fmt.Sprintf(llm.StatementFilePattern, i+1)
			id, err := s.Service.UploadFile(gctx, name, doc.Reader())
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			fileIDs[i] = id
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", &SubmissionError{Stage: StageUpload, Err: err}
	}

	threadID, err := s.Service.CreateThread(ctx)
	if err != nil {
		return "", &SubmissionError{Stage: StageThread, Err: err}
	}
	if err := s.Service.PostMessage(ctx, threadID, extraction.Instructions, fileIDs); err != nil {
		return "", &SubmissionError{Stage: StageMessage, Err: err}
	}
	runID, err := s.Service.CreateRun(ctx, threadID, s.AssistantID)
	if err != nil {
		return "", &SubmissionError{Stage: StageRun, Err: err}
	}

	s.warnOnLiveJob(ctx, leadID)

	job := jobs.Job{
		ID:       s.newID(),
		LeadID:   leadID,
		ThreadID: threadID,
		RunID:    runID,
		Status:   jobs.StatusPending,
	}
	if err := s.Jobs.Create(ctx, job); err != nil {
		return "", &SubmissionError{Stage: StageJob, Err: err}
	}
	return job.ID, nil
}

// warnOnLiveJob logs when a lead already has a pending job; the new one is still queued.
func (s *Submitter) warnOnLiveJob(ctx context.Context, leadID int64) {
	count, err := s.Jobs.PendingForLead(ctx, leadID)
	if err != nil {
		telemetry.Warn("submit.pending_lookup_failed", map[string]any{"lead_id": leadID, "error": err.Error()})
		return
	}
	if count > 0 {
		telemetry.Warn("submit.duplicate_pending", map[string]any{"lead_id": leadID, "pending": count})
	}
}

func (s *Submitter) newID() string {
	if s.NewID != nil {
		if id := strings.TrimSpace(s.NewID()); id != "" {
			return id
		}
	}
	return uuid.NewString()
}
