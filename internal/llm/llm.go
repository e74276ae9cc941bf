package llm

import (
	"context"
	"errors"
	"io"
)

// Run statuses reported by the analysis service.
const (
	RunQueued         = "queued"
	RunInProgress     = "in_progress"
	RunRequiresAction = "requires_action"
	RunCancelling     = "cancelling"
	RunCancelled      = "cancelled"
	RunFailed         = "failed"
	RunCompleted      = "completed"
	RunIncomplete     = "incomplete"
	RunExpired        = "expired"
)

// MessageTypeText is the only message content type the pipeline consumes.
const MessageTypeText = "text"

// ErrNoMessages is returned when a thread has no messages yet.
var ErrNoMessages = errors.New("thread has no messages")

// RunStatus is the state of an asynchronous analysis run.
type RunStatus struct {
	ID        string
	Status    string
	LastError string
}

// Completed reports whether the run produced its final message.
func (s RunStatus) Completed() bool {
	return s.Status == RunCompleted
}

// Message is the first content part of a thread message.
type Message struct {
	ID   string
	Role string
	Type string
	Text string
}

// AssistantSpec describes the analyst assistant registered with the service.
type AssistantSpec struct {
	Model        string
	Name         string
	Description  string
	Instructions string
	SchemaName   string
	Schema       map[string]any
}

// AnalysisService abstracts the asynchronous document-analysis provider.
type AnalysisService interface {
	UploadFile(ctx context.Context, name string, r io.Reader) (string, error)
	CreateThread(ctx context.Context) (string, error)
	PostMessage(ctx context.Context, threadID, text string, fileIDs []string) error
	CreateRun(ctx context.Context, threadID, assistantID string) (string, error)
	GetRunStatus(ctx context.Context, threadID, runID string) (RunStatus, error)
	LatestMessage(ctx context.Context, threadID string) (Message, error)
	EnsureAssistant(ctx context.Context, spec AssistantSpec) (string, error)
}
