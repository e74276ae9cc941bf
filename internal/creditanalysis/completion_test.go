package creditanalysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/extraction"
)

func TestCollectorPublishesOnEndCycle(t *testing.T) {
	c := NewCollector()
	ctx := context.Background()

	c.BeginCycle()
	require.NoError(t, c.Complete(ctx, 7, extraction.StatementExtraction{}))
	assert.Empty(t, c.Results(), "results visible before the cycle ended")

	c.EndCycle()
	got := c.Results()
	require.Len(t, got, 1)
	assert.Contains(t, got, int64(7))
}

func TestCollectorReplacesPreviousCycle(t *testing.T) {
	c := NewCollector()
	ctx := context.Background()

	c.BeginCycle()
	require.NoError(t, c.Complete(ctx, 1, extraction.StatementExtraction{}))
	c.EndCycle()

	c.BeginCycle()
	require.NoError(t, c.Complete(ctx, 2, extraction.StatementExtraction{}))
	c.EndCycle()

	got := c.Results()
	assert.NotContains(t, got, int64(1))
	assert.Contains(t, got, int64(2))
}

func TestCollectorEmptyCycleClearsResults(t *testing.T) {
	c := NewCollector()
	c.BeginCycle()
	require.NoError(t, c.Complete(context.Background(), 3, extraction.StatementExtraction{}))
	c.EndCycle()

	c.BeginCycle()
	c.EndCycle()
	assert.Empty(t, c.Results())
}

func TestCollectorResultsIsACopy(t *testing.T) {
	c := NewCollector()
	c.BeginCycle()
	require.NoError(t, c.Complete(context.Background(), 4, extraction.StatementExtraction{}))
	c.EndCycle()

	got := c.Results()
	delete(got, 4)
	assert.Contains(t, c.Results(), int64(4))
}

func TestCollectorCompleteHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewCollector()
	c.BeginCycle()
	assert.ErrorIs(t, c.Complete(ctx, 5, extraction.StatementExtraction{}), context.Canceled)
}
