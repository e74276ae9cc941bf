package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	submissionsTotal        atomic.Uint64
	submissionFailuresTotal atomic.Uint64
	pollCyclesTotal         atomic.Uint64
	pollCyclesSkippedTotal  atomic.Uint64
	runsCompletedTotal      atomic.Uint64
	malformedTotal          atomic.Uint64
	pollErrorsTotal         atomic.Uint64
	propagationsTotal       atomic.Uint64
	propagationFailures     atomic.Uint64
	rateLimitedTotal        atomic.Uint64

	pollCycleDuration = newHistogram([]float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000})
)

// IncSubmission counts a statement set queued for analysis.
func IncSubmission() { submissionsTotal.Add(1) }

// IncSubmissionFailure counts a submission aborted by an external error.
func IncSubmissionFailure() { submissionFailuresTotal.Add(1) }

// IncPollCycle counts a poll cycle that ran.
func IncPollCycle() { pollCyclesTotal.Add(1) }

// IncPollCycleSkipped counts a trigger dropped because a cycle was already running.
func IncPollCycleSkipped() { pollCyclesSkippedTotal.Add(1) }

// IncRunCompleted counts a run resolved into a valid extraction.
func IncRunCompleted() { runsCompletedTotal.Add(1) }

// IncMalformedExtraction counts completed runs whose output could not be used.
func IncMalformedExtraction() { malformedTotal.Add(1) }

// IncPollError counts transient errors talking to the analysis service.
func IncPollError() { pollErrorsTotal.Add(1) }

// IncPropagation counts results delivered by the completion strategy.
func IncPropagation() { propagationsTotal.Add(1) }

// IncPropagationFailure counts results the completion strategy could not deliver.
func IncPropagationFailure() { propagationFailures.Add(1) }

// IncRateLimited counts requests rejected with 429.
func IncRateLimited() { rateLimitedTotal.Add(1) }

// ObservePollCycleDurationMs records a poll cycle duration in milliseconds.
func ObservePollCycleDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	pollCycleDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "credit_submissions_total", "Statement sets queued for analysis", submissionsTotal.Load())
	writeCounter(&buf, "credit_submission_failures_total", "Statement submissions that failed", submissionFailuresTotal.Load())
	writeCounter(&buf, "credit_poll_cycles_total", "Poll cycles executed", pollCyclesTotal.Load())
	writeCounter(&buf, "credit_poll_cycles_skipped_total", "Poll triggers skipped while a cycle was running", pollCyclesSkippedTotal.Load())
	writeCounter(&buf, "credit_runs_completed_total", "Analysis runs resolved into an extraction", runsCompletedTotal.Load())
	writeCounter(&buf, "credit_malformed_extractions_total", "Completed runs with unusable output", malformedTotal.Load())
	writeCounter(&buf, "credit_poll_errors_total", "Transient analysis service errors while polling", pollErrorsTotal.Load())
	writeCounter(&buf, "credit_propagations_total", "Underwriting results delivered", propagationsTotal.Load())
	writeCounter(&buf, "credit_propagation_failures_total", "Underwriting results that failed to deliver", propagationFailures.Load())
	writeCounter(&buf, "credit_http_rate_limited_total", "Requests rejected by the rate limiter", rateLimitedTotal.Load())
	writeHistogram(&buf, "credit_poll_cycle_duration_ms", "Poll cycle duration in milliseconds", pollCycleDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// Since returns the milliseconds elapsed since start.
func Since(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
