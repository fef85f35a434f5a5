package optimizer

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-ai/scholar-discovery/internal/domain"
)

func rankedCount(n int) []domain.RankedResult {
	titles := make([]string, n)
	for i := range titles {
		titles[i] = fmt.Sprintf("Paper %d", i+1)
	}
	return rankedSet(titles...)
}

func TestProgressiveLoaderBatches(t *testing.T) {
	loader := NewProgressiveLoader(10, zerolog.Nop())

	sessionID, first := loader.InitSession(rankedCount(25), 10)
	require.NotEmpty(t, sessionID)

	second, err := loader.NextBatch(sessionID)
	require.NoError(t, err)
	third, err := loader.NextBatch(sessionID)
	require.NoError(t, err)

	batches := []*LoadBatch{first, second, third}
	wantSizes := []int{10, 10, 5}
	wantLoaded := []int{10, 20, 25}
	wantComplete := []bool{false, false, true}

	for i, batch := range batches {
		assert.Len(t, batch.Results, wantSizes[i], "batch %d size", i+1)
		assert.Equal(t, wantLoaded[i], batch.LoadedCount, "batch %d loaded", i+1)
		assert.Equal(t, 25, batch.TotalCount, "batch %d total", i+1)
		assert.Equal(t, wantComplete[i], batch.IsComplete, "batch %d complete", i+1)
	}

	// Batches preserve rank order across the whole session.
	assert.Equal(t, "Paper 1", first.Results[0].Result.Title)
	assert.Equal(t, "Paper 11", second.Results[0].Result.Title)
	assert.Equal(t, "Paper 25", third.Results[4].Result.Title)
}

func TestProgressiveLoaderExhaustedSession(t *testing.T) {
	loader := NewProgressiveLoader(10, zerolog.Nop())

	sessionID, first := loader.InitSession(rankedCount(3), 10)
	assert.True(t, first.IsComplete)

	again, err := loader.NextBatch(sessionID)
	require.NoError(t, err)
	assert.Empty(t, again.Results)
	assert.True(t, again.IsComplete)
	assert.Equal(t, 3, again.LoadedCount)
}

func TestProgressiveLoaderUnknownSession(t *testing.T) {
	loader := NewProgressiveLoader(10, zerolog.Nop())

	_, err := loader.NextBatch("no-such-session")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProgressiveLoaderEndSession(t *testing.T) {
	loader := NewProgressiveLoader(10, zerolog.Nop())

	sessionID, _ := loader.InitSession(rankedCount(5), 2)
	assert.Equal(t, 1, loader.SessionCount())

	loader.EndSession(sessionID)
	assert.Zero(t, loader.SessionCount())

	_, err := loader.NextBatch(sessionID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Ending twice is harmless.
	loader.EndSession(sessionID)
}

func TestProgressiveLoaderDefaultBatchSize(t *testing.T) {
	loader := NewProgressiveLoader(4, zerolog.Nop())

	_, first := loader.InitSession(rankedCount(10), 0)
	assert.Len(t, first.Results, 4)
}

func TestProgressiveLoaderEmptyResults(t *testing.T) {
	loader := NewProgressiveLoader(10, zerolog.Nop())

	_, first := loader.InitSession(nil, 10)
	assert.Empty(t, first.Results)
	assert.True(t, first.IsComplete)
	assert.Zero(t, first.TotalCount)
}
