package creditanalysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/jobs"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/statements"
)

type handlerFixture struct {
	svc    *fakeService
	repo   *jobs.MemoryRepo
	router *gin.Engine
	poller *Poller
}

func newHandlerFixture(t *testing.T, results ResultSource) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := newFakeService()
	repo := jobs.NewMemoryRepo()
	submitter := &Submitter{Service: svc, Jobs: repo, AssistantID: "asst-1"}
	poller := &Poller{Jobs: repo, Resolver: &Resolver{Service: svc, Jobs: repo}, Handler: &recordingHandler{}}
	router := gin.New()
	NewHandler(submitter, poller, repo, results).RegisterRoutes(router.Group("/api/v1"))
	return &handlerFixture{svc: svc, repo: repo, router: router, poller: poller}
}

func multipartBody(t *testing.T, leadID string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if leadID != "" {
		if err := w.WriteField("leadId", leadID); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for field, data := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+field+`.pdf"`)
		h.Set("Content-Type", "application/pdf")
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &body, w.FormDataContentType()
}

func threeStatements() map[string][]byte {
	return map[string][]byte{"first": samplePDF(), "second": samplePDF(), "third": samplePDF()}
}

func (f *handlerFixture) post(t *testing.T, leadID string, files map[string][]byte) (*httptest.ResponseRecorder, SubmitResult) {
	t.Helper()
	body, contentType := multipartBody(t, leadID, files)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/credit-analysis", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)
	var res SubmitResult
	if err := json.Unmarshal(resp.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v (%s)", err, resp.Body.String())
	}
	return resp, res
}

func TestSubmitHandlerAccepted(t *testing.T) {
	f := newHandlerFixture(t, nil)
	resp, res := f.post(t, "42", threeStatements())
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.Code, resp.Body.String())
	}
	if !res.Success || res.JobID == "" {
		t.Fatalf("unexpected result: %+v", res)
	}
	count, err := f.repo.PendingForLead(context.Background(), 42)
	if err != nil || count != 1 {
		t.Fatalf("expected one pending job, got %d (%v)", count, err)
	}
}

func TestSubmitHandlerValidation(t *testing.T) {
	f := newHandlerFixture(t, nil)

	resp, res := f.post(t, "abc", threeStatements())
	if resp.Code != http.StatusBadRequest || res.Success {
		t.Fatalf("bad lead: got %d %+v", resp.Code, res)
	}

	files := threeStatements()
	delete(files, "third")
	resp, res = f.post(t, "42", files)
	if resp.Code != http.StatusBadRequest || res.Error == "" {
		t.Fatalf("missing file: got %d %+v", resp.Code, res)
	}

	files = threeStatements()
	files["second"] = []byte("hola")
	resp, _ = f.post(t, "42", files)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("non pdf: expected 400, got %d", resp.Code)
	}
	if len(f.svc.uploads) != 0 {
		t.Fatalf("expected no uploads, got %v", f.svc.uploads)
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func TestSubmitHandlerRejectsOversizedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := newFakeService()
	repo := jobs.NewMemoryRepo()
	h := NewHandler(&Submitter{Service: svc, Jobs: repo, AssistantID: "asst-1"}, nil, repo, nil)
	h.MaxBodyBytes = 16 << 10
	router := gin.New()
	h.RegisterRoutes(router.Group("/api/v1"))

	big := bytes.Repeat([]byte("x"), 64<<10)
	body, contentType := multipartBody(t, "42", map[string][]byte{"first": big, "second": big, "third": big})
	total := int64(body.Len())
	counter := &countingReader{r: body}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/credit-analysis", counter)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", resp.Code, resp.Body.String())
	}
	if counter.n >= total {
		t.Fatalf("read %d of %d bytes, expected the body to be cut short", counter.n, total)
	}
	if len(svc.uploads) != 0 {
		t.Fatalf("expected no uploads, got %v", svc.uploads)
	}
}

func TestSubmitBodyCapFitsThreeStatements(t *testing.T) {
	if maxSubmitBody <= statements.Count*statements.MaxSize {
		t.Fatalf("maxSubmitBody %d leaves no room for form fields", maxSubmitBody)
	}
}

func TestSubmitHandlerUpstreamFailure(t *testing.T) {
	f := newHandlerFixture(t, nil)
	f.svc.threadErr = errors.New("openai unavailable")
	resp, res := f.post(t, "42", threeStatements())
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
	if res.Success || res.Error == "" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestPollHandlerTriggersCycle(t *testing.T) {
	f := newHandlerFixture(t, nil)
	job := pendingJob("a", 1)
	if err := f.repo.Create(context.Background(), job); err != nil {
		t.Fatalf("seed: %v", err)
	}
	f.svc.complete(job.ThreadID, extractionJSON(10000, 6000))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/credit-analysis/poll", nil)
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["success"] != true {
		t.Fatalf("unexpected payload: %v", payload)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := f.poller.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	stored, err := f.repo.GetByID(context.Background(), "a")
	if err != nil || stored.Pending() {
		t.Fatalf("expected job completed, got %+v (%v)", stored, err)
	}
}

func TestListJobsHandler(t *testing.T) {
	f := newHandlerFixture(t, nil)
	if err := f.repo.Create(context.Background(), pendingJob("a", 1)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/credit-analysis/jobs", nil)
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var payload struct {
		Jobs []jobs.Job `json:"jobs"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Jobs) != 1 || payload.Jobs[0].ID != "a" {
		t.Fatalf("unexpected jobs: %+v", payload.Jobs)
	}
}

func TestResultsRouteOnlyWithCollector(t *testing.T) {
	f := newHandlerFixture(t, nil)
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/credit-analysis/results", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without collector, got %d", resp.Code)
	}

	collector := NewCollector()
	collector.BeginCycle()
	if err := collector.Complete(context.Background(), 5, flatExtraction(10000, 6000)); err != nil {
		t.Fatalf("complete: %v", err)
	}
	collector.EndCycle()
	f = newHandlerFixture(t, collector)
	resp = httptest.NewRecorder()
	f.router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/credit-analysis/results", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var payload struct {
		Results map[string]json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := payload.Results["5"]; !ok {
		t.Fatalf("missing lead 5 in %s", resp.Body.String())
	}
}
