package creditanalysis

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/jobs"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/server/respond"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/statements"
)

var statementFields = [statements.Count]string{"first", "second", "third"}

// maxSubmitBody bounds a submission: every statement at its size limit plus form overhead.
const maxSubmitBody = statements.Count*statements.MaxSize + 1<<20

const multipartMemory = 32 << 20

// Handler exposes submission, manual polling and job listing over HTTP.
type Handler struct {
	Submitter *Submitter
	Poller    *Poller
	Jobs      jobs.Repo
	// Results is set when the collecting strategy is active.
	Results ResultSource
	// MaxBodyBytes caps the submit request body; zero means maxSubmitBody.
	MaxBodyBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(submitter *Submitter, poller *Poller, jobRepo jobs.Repo, results ResultSource) *Handler {
	return &Handler{Submitter: submitter, Poller: poller, Jobs: jobRepo, Results: results}
}

// RegisterRoutes attaches credit-analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/credit-analysis", h.submit)
	rg.POST("/credit-analysis/poll", h.poll)
	rg.GET("/credit-analysis/jobs", h.listJobs)
	if h.Results != nil {
		rg.GET("/credit-analysis/results", h.results)
	}
}

func (h *Handler) submit(c *gin.Context) {
	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = maxSubmitBody
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.JSON(c, http.StatusRequestEntityTooLarge, SubmitResult{Success: false, Error: fmt.Sprintf("request body exceeds %d bytes", limit)})
			return
		}
		respond.JSON(c, http.StatusBadRequest, SubmitResult{Success: false, Error: "invalid multipart form"})
		return
	}

	leadID, err := strconv.ParseInt(strings.TrimSpace(c.PostForm("leadId")), 10, 64)
	if err != nil || leadID <= 0 {
		respond.JSON(c, http.StatusBadRequest, SubmitResult{Success: false, Error: "leadId must be a positive integer"})
		return
	}
	c.Set("leadId", leadID)

	docs := make([]statements.Document, 0, statements.Count)
	for _, field := range statementFields {
		header, err := c.FormFile(field)
		if err != nil {
			respond.JSON(c, http.StatusBadRequest, SubmitResult{Success: false, Error: fmt.Sprintf("file %q is required", field)})
			return
		}
		doc, err := readDocument(header)
		if err != nil {
			respond.JSON(c, http.StatusBadRequest, SubmitResult{Success: false, Error: err.Error()})
			return
		}
		docs = append(docs, doc)
	}

	res, err := h.Submitter.Submit(c.Request.Context(), leadID, docs)
	if err != nil {
		var se *SubmissionError
		if errors.As(err, &se) && se.Stage == StageValidate {
			respond.JSON(c, http.StatusBadRequest, res)
			return
		}
		respond.JSON(c, http.StatusBadGateway, res)
		return
	}
	c.Set("jobId", res.JobID)
	respond.Accepted(c, res)
}

func readDocument(header *multipart.FileHeader) (statements.Document, error) {
	f, err := header.Open()
	if err != nil {
		return statements.Document{}, fmt.Errorf("open %s: %w", header.Filename, err)
	}
	defer f.Close()
	data, err := statements.ReadAll(f)
	if err != nil {
		return statements.Document{}, fmt.Errorf("read %s: %w", header.Filename, err)
	}
	return statements.Document{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func (h *Handler) poll(c *gin.Context) {
	if h.Poller == nil {
		respond.Error(c, http.StatusServiceUnavailable, respond.CodeUnavailable, "polling is not configured", nil)
		return
	}
	started := h.Poller.Trigger(c.Request.Context())
	respond.Accepted(c, gin.H{"success": true, "started": started})
}

func (h *Handler) listJobs(c *gin.Context) {
	pending, err := h.Jobs.ListPending(c.Request.Context(), 0)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, err.Error(), nil)
		return
	}
	if pending == nil {
		pending = []jobs.Job{}
	}
	respond.OK(c, gin.H{"jobs": pending})
}

func (h *Handler) results(c *gin.Context) {
	out := make(map[string]any)
	for leadID, ex := range h.Results.Results() {
		out[strconv.FormatInt(leadID, 10)] = ex
	}
	respond.OK(c, gin.H{"results": out})
}
