package creditanalysis

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/crm"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/extraction"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/jobs"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/llm"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/statements"
)

// samplePDF builds a one-page PDF with a valid xref table.
func samplePDF() []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>",
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func sampleDocs() []statements.Document {
	docs := make([]statements.Document, statements.Count)
	for i := range docs {
		docs[i] = statements.Document{
			Name:        fmt.Sprintf("enero-%d.pdf", i+1),
			ContentType: "application/pdf",
			Data:        samplePDF(),
		}
	}
	return docs
}

func month(name string, credits, debits float64) string {
	return fmt.Sprintf(`{"mes": %q, "saldo_inicial": 0, "total_debitos": %v, "total_creditos": %v, "saldo_final": 0,
  "ingresos": {"fijos": %v, "variables": 0}, "gastos": {"fijos": %v, "variables": 0}}`, name, debits, credits, credits, debits)
}

// extractionJSON renders a three-month extraction with flat totals.
func extractionJSON(credits, debits float64) string {
	return `{"datos_generales": {"nombre_cuentahabiente": "Ana", "numero_cuenta": "1", "tipo_cuenta": "monetaria"},
 "resumen_mensual": [` + strings.Join([]string{
		month("Enero", credits, debits),
		month("Febrero", credits, debits),
		month("Marzo", credits, debits),
	}, ",") + `],
 "promedio_mensual": {"promedio_ingresos_fijos": 0, "promedio_ingresos_variables": 0,
  "promedio_gastos_fijos": 0, "promedio_gastos_variables": 0, "disponibilidad_economica": 0}}`
}

func flatExtraction(credits, debits float64) extraction.StatementExtraction {
	ex, err := extraction.Parse(extractionJSON(credits, debits))
	if err != nil {
		panic(err)
	}
	return ex
}

type postedMessage struct {
	ThreadID string
	Text     string
	FileIDs  []string
}

type fakeService struct {
	mu sync.Mutex

	uploads  []string
	messages []postedMessage
	runs     []string
	threads  int

	uploadErr  error
	threadErr  error
	messageErr error
	runErr     error

	// per thread
	status     map[string]llm.RunStatus
	statusErr  error
	latest     map[string]llm.Message
	latestErr  error
	statusHits int
	panicOn    string
}

func newFakeService() *fakeService {
	return &fakeService{
		status: map[string]llm.RunStatus{},
		latest: map[string]llm.Message{},
	}
}

func (f *fakeService) UploadFile(ctx context.Context, name string, r io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads = append(f.uploads, name)
	return "file-" + strings.TrimSuffix(name, ".pdf"), nil
}

func (f *fakeService) CreateThread(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.threadErr != nil {
		return "", f.threadErr
	}
	f.threads++
	return fmt.Sprintf("thread-%d", f.threads), nil
}

func (f *fakeService) PostMessage(ctx context.Context, threadID, text string, fileIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.messageErr != nil {
		return f.messageErr
	}
	f.messages = append(f.messages, postedMessage{ThreadID: threadID, Text: text, FileIDs: append([]string(nil), fileIDs...)})
	return nil
}

func (f *fakeService) CreateRun(ctx context.Context, threadID, assistantID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.runErr != nil {
		return "", f.runErr
	}
	f.runs = append(f.runs, assistantID)
	return "run-" + threadID, nil
}

func (f *fakeService) GetRunStatus(ctx context.Context, threadID, runID string) (llm.RunStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusHits++
	if f.panicOn != "" && f.panicOn == threadID {
		panic("boom")
	}
	if f.statusErr != nil {
		return llm.RunStatus{}, f.statusErr
	}
	if st, ok := f.status[threadID]; ok {
		return st, nil
	}
	return llm.RunStatus{ID: runID, Status: llm.RunInProgress}, nil
}

func (f *fakeService) LatestMessage(ctx context.Context, threadID string) (llm.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.latestErr != nil {
		return llm.Message{}, f.latestErr
	}
	msg, ok := f.latest[threadID]
	if !ok {
		return llm.Message{}, llm.ErrNoMessages
	}
	return msg, nil
}

func (f *fakeService) EnsureAssistant(ctx context.Context, spec llm.AssistantSpec) (string, error) {
	return "asst-test", nil
}

// complete makes the run of threadID finish with text.
func (f *fakeService) complete(threadID, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[threadID] = llm.RunStatus{ID: "run-" + threadID, Status: llm.RunCompleted}
	f.latest[threadID] = llm.Message{ID: "msg-" + threadID, Role: "assistant", Type: llm.MessageTypeText, Text: text}
}

func (f *fakeService) statusCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusHits
}

type fakeCRM struct {
	mu            sync.Mutex
	opportunities []crm.Opportunity
	attachments   []crm.Attachment
	err           error
}

func (f *fakeCRM) CreateOpportunity(ctx context.Context, opp crm.Opportunity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.opportunities = append(f.opportunities, opp)
	return nil
}

func (f *fakeCRM) CreateAttachment(ctx context.Context, att crm.Attachment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.attachments = append(f.attachments, att)
	return nil
}

// recordingHandler captures completion calls in order.
type recordingHandler struct {
	mu     sync.Mutex
	leads  []int64
	failOn map[int64]error
}

func (h *recordingHandler) Complete(ctx context.Context, leadID int64, ex extraction.StatementExtraction) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leads = append(h.leads, leadID)
	if err := h.failOn[leadID]; err != nil {
		return &PropagationError{LeadID: leadID, Err: err}
	}
	return nil
}

func (h *recordingHandler) calls() []int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]int64(nil), h.leads...)
}

func pendingJob(id string, leadID int64) jobs.Job {
	return jobs.Job{
		ID:       id,
		LeadID:   leadID,
		ThreadID: "thread-" + id,
		RunID:    "run-thread-" + id,
		Status:   jobs.StatusPending,
	}
}
