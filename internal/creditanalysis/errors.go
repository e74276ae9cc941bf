package creditanalysis

import (
	"errors"
	"fmt"
)

var (
	ErrStatementCount  = errors.New("exactly three statements are required")
	ErrInvalidLead     = errors.New("lead id must be positive")
	ErrCycleInProgress = errors.New("poll cycle already in progress")
	ErrPollerStarted   = errors.New("poller already started")
)

// Submission stages.
const (
	StageValidate = "validate"
	StageUpload   = "upload"
	StageThread   = "thread"
	StageMessage  = "message"
	StageRun      = "run"
	StageJob      = "job"
)

// SubmissionError reports the step at which queueing an analysis failed.
type SubmissionError struct {
	Stage string
	Err   error
}

func (e *SubmissionError) Error() string {
	if e.Err == nil {
		return "submit " + e.Stage
	}
	return "submit " + e.Stage + ": " + e.Err.Error()
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// TransientPollError leaves the job pending for the next cycle.
type TransientPollError struct {
	JobID string
	Err   error
}

func (e *TransientPollError) Error() string {
	return fmt.Sprintf("poll job %s: %v", e.JobID, e.Err)
}

func (e *TransientPollError) Unwrap() error { return e.Err }

// MalformedExtractionError means a completed run returned unusable content.
type MalformedExtractionError struct {
	JobID string
	Err   error
}

func (e *MalformedExtractionError) Error() string {
	return fmt.Sprintf("malformed extraction for job %s: %v", e.JobID, e.Err)
}

func (e *MalformedExtractionError) Unwrap() error { return e.Err }

// PropagationError reports a failure to persist or publish a lead's result.
type PropagationError struct {
	LeadID int64
	Err    error
}

func (e *PropagationError) Error() string {
	return fmt.Sprintf("propagate lead %d: %v", e.LeadID, e.Err)
}

func (e *PropagationError) Unwrap() error { return e.Err }
