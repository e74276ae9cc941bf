package creditanalysis

import (
	"context"
	"sync"

	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/extraction"
)

// CompletionHandler receives the extraction of each lead whose run completed in a cycle.
type CompletionHandler interface {
	Complete(ctx context.Context, leadID int64, ex extraction.StatementExtraction) error
}

// CycleHook is implemented by handlers that track cycle boundaries.
type CycleHook interface {
	BeginCycle()
	EndCycle()
}

// ResultSource exposes the extractions gathered by the last cycle.
type ResultSource interface {
	Results() map[int64]extraction.StatementExtraction
}

// Collector keeps the extractions of the last finished cycle in memory.
type Collector struct {
	mu      sync.RWMutex
	current map[int64]extraction.StatementExtraction
	last    map[int64]extraction.StatementExtraction
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{last: map[int64]extraction.StatementExtraction{}}
}

func (c *Collector) BeginCycle() {
	c.mu.Lock()
	c.current = map[int64]extraction.StatementExtraction{}
	c.mu.Unlock()
}

func (c *Collector) EndCycle() {
	c.mu.Lock()
	if c.current != nil {
		c.last = c.current
		c.current = nil
	}
	c.mu.Unlock()
}

// Complete records ex for the running cycle.
func (c *Collector) Complete(ctx context.Context, leadID int64, ex extraction.StatementExtraction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		c.current = map[int64]extraction.StatementExtraction{}
	}
	c.current[leadID] = ex
	return nil
}

// Results returns a copy of the last cycle's extractions keyed by lead.
func (c *Collector) Results() map[int64]extraction.StatementExtraction {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[int64]extraction.StatementExtraction, len(c.last))
	for k, v := range c.last {
		out[k] = v
	}
	return out
}
