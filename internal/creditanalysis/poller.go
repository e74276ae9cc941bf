package creditanalysis

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/extraction"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/jobs"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/metrics"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/telemetry"
)

const defaultPollInterval = 10 * time.Second

// PollerConfig tunes the polling loop.
type PollerConfig struct {
	Interval time.Duration
	// Concurrency > 1 resolves jobs of a cycle in parallel.
	Concurrency int
	// MaxAttempts > 0 stops polling jobs with that many malformed results.
	MaxAttempts int
	// CycleTimeout > 0 bounds a single cycle.
	CycleTimeout time.Duration
}

// Poller periodically resolves pending jobs and hands completed extractions to Handler.
// At most one cycle runs at a time per Poller.
type Poller struct {
	Jobs     jobs.Repo
	Resolver JobResolver
	Handler  CompletionHandler
	Locker   JobLocker
	Config   PollerConfig

	running atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Start launches the ticker loop. It returns ErrPollerStarted when already running.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return ErrPollerStarted
	}
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel

	interval := p.Config.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				p.Trigger(loopCtx)
			}
		}
	}()
	telemetry.Info("poll.started", map[string]any{
		"interval_ms":  interval.Milliseconds(),
		"concurrency":  p.concurrency(),
		"max_attempts": p.Config.MaxAttempts,
	})
	return nil
}

// Stop ends the ticker loop and waits for in-flight cycles until ctx is done.
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		telemetry.Info("poll.stopped", nil)
		return nil
	case <-ctx.Done():
		telemetry.Warn("poll.stop_timeout", map[string]any{"error": ctx.Err().Error()})
		return ctx.Err()
	}
}

// Trigger starts a cycle in the background unless one is already running.
// It reports whether the cycle was started.
func (p *Poller) Trigger(ctx context.Context) bool {
	if !p.running.CompareAndSwap(false, true) {
		p.skipped()
		return false
	}
	cycleCtx := context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.running.Store(false)
		_ = p.cycle(cycleCtx)
	}()
	return true
}

// RunCycle runs one cycle synchronously. It returns ErrCycleInProgress without doing
// anything when another cycle holds the lock.
func (p *Poller) RunCycle(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		p.skipped()
		return ErrCycleInProgress
	}
	defer p.running.Store(false)
	return p.cycle(ctx)
}

// IsRunning reports whether a cycle currently holds the lock.
func (p *Poller) IsRunning() bool {
	return p.running.Load()
}

func (p *Poller) skipped() {
	metrics.IncPollCycleSkipped()
	telemetry.Info("poll.cycle.skipped", nil)
}

func (p *Poller) cycle(ctx context.Context) (err error) {
	start := time.Now()
	metrics.IncPollCycle()
	defer func() {
		if rec := recover(); rec != nil {
			metrics.IncPollError()
			telemetry.Error("poll.cycle.panic", map[string]any{
				"error": fmt.Sprint(rec),
				"stack": string(debug.Stack()),
			})
			err = fmt.Errorf("poll cycle panic: %v", rec)
		}
		metrics.ObservePollCycleDurationMs(metrics.Since(start))
	}()

	if p.Config.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Config.CycleTimeout)
		defer cancel()
	}
	if hook, ok := p.Handler.(CycleHook); ok {
		hook.BeginCycle()
		defer hook.EndCycle()
	}

	pending, err := p.Jobs.ListPending(ctx, p.Config.MaxAttempts)
	if err != nil {
		metrics.IncPollError()
		telemetry.Error("poll.list_failed", map[string]any{"error": err.Error()})
		return fmt.Errorf("list pending jobs: %w", err)
	}

	results := p.resolveAll(ctx, pending)
	err = p.complete(ctx, results)
	telemetry.Info("poll.cycle.done", map[string]any{
		"pending":     len(pending),
		"completed":   len(results),
		"duration_ms": metrics.Since(start),
	})
	return err
}

// resolveAll resolves every job and returns the extractions keyed by lead.
// A later job of the same lead replaces an earlier one.
func (p *Poller) resolveAll(ctx context.Context, pending []jobs.Job) map[int64]extraction.StatementExtraction {
	results := make(map[int64]extraction.StatementExtraction)
	if len(pending) == 0 {
		return results
	}

	if p.concurrency() <= 1 {
		for _, job := range pending {
			if ex := p.resolveJob(ctx, job); ex != nil {
				results[job.LeadID] = *ex
			}
		}
		return results
	}

	extractions := make([]*extraction.StatementExtraction, len(pending))
	var g errgroup.Group
	g.SetLimit(p.concurrency())
	for i, job := range pending {
		i, job := i, job
		g.Go(func() error {
			extractions[i] = p.resolveJob(ctx, job)
			return nil
		})
	}
	_ = g.Wait()
	for i, job := range pending {
		if extractions[i] != nil {
			results[job.LeadID] = *extractions[i]
		}
	}
	return results
}

func (p *Poller) resolveJob(ctx context.Context, job jobs.Job) (ex *extraction.StatementExtraction) {
	fields := map[string]any{"job_id": job.ID, "lead_id": job.LeadID}
	defer func() {
		if rec := recover(); rec != nil {
			metrics.IncPollError()
			fields["error"] = fmt.Sprint(rec)
			fields["stack"] = string(debug.Stack())
			telemetry.Error("poll.job.panic", fields)
			ex = nil
		}
	}()

	if p.Locker != nil {
		unlock, acquired, err := p.Locker.Lock(ctx, job.ID)
		if err != nil {
			metrics.IncPollError()
			fields["error"] = err.Error()
			telemetry.Warn("poll.job.lock_failed", fields)
			return nil
		}
		if !acquired {
			telemetry.Info("poll.job.locked", fields)
			return nil
		}
		defer unlock()
	}

	ex, err := p.Resolver.Resolve(ctx, job)
	if err != nil {
		fields["error"] = err.Error()
		var transient *TransientPollError
		var malformed *MalformedExtractionError
		switch {
		case errors.As(err, &malformed):
			metrics.IncMalformedExtraction()
			telemetry.Warn("poll.job.malformed", fields)
		case errors.As(err, &transient):
			metrics.IncPollError()
			telemetry.Warn("poll.job.transient", fields)
		default:
			metrics.IncPollError()
			telemetry.Error("poll.job.failed", fields)
		}
		return nil
	}
	if ex != nil {
		metrics.IncRunCompleted()
	}
	return ex
}

// complete hands each lead's extraction to the handler in lead order.
// Failures are isolated per lead and joined.
func (p *Poller) complete(ctx context.Context, results map[int64]extraction.StatementExtraction) error {
	if p.Handler == nil || len(results) == 0 {
		return nil
	}
	leadIDs := make([]int64, 0, len(results))
	for id := range results {
		leadIDs = append(leadIDs, id)
	}
	sort.Slice(leadIDs, func(i, j int) bool { return leadIDs[i] < leadIDs[j] })

	var errs []error
	for _, leadID := range leadIDs {
		if err := p.completeLead(ctx, leadID, results[leadID]); err != nil {
			telemetry.Error("poll.completion_failed", map[string]any{"lead_id": leadID, "error": err.Error()})
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Poller) completeLead(ctx context.Context, leadID int64, ex extraction.StatementExtraction) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			telemetry.Error("poll.completion_panic", map[string]any{
				"lead_id": leadID,
				"error":   fmt.Sprint(rec),
				"stack":   string(debug.Stack()),
			})
			err = fmt.Errorf("completion panic for lead %d: %v", leadID, rec)
		}
	}()
	return p.Handler.Complete(ctx, leadID, ex)
}

func (p *Poller) concurrency() int {
	if p.Config.Concurrency < 1 {
		return 1
	}
	return p.Config.Concurrency
}
