package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-ai/scholar-discovery/internal/config"
	"github.com/inkwell-ai/scholar-discovery/internal/dedup"
	"github.com/inkwell-ai/scholar-discovery/internal/domain"
	"github.com/inkwell-ai/scholar-discovery/internal/feedback"
	"github.com/inkwell-ai/scholar-discovery/internal/optimizer"
	"github.com/inkwell-ai/scholar-discovery/internal/query"
	"github.com/inkwell-ai/scholar-discovery/internal/ranking"
	"github.com/inkwell-ai/scholar-discovery/internal/scholar"
)

type fakeSearchClient struct {
	mu      sync.Mutex
	calls   int
	queries []string
	results []domain.ScholarResult
	err     error
}

func (f *fakeSearchClient) Search(_ context.Context, queryString string, _ scholar.SearchFilters) ([]domain.ScholarResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.queries = append(f.queries, queryString)
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *fakeSearchClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeContentProvider struct {
	mu       sync.Mutex
	calls    int
	contents []domain.ExtractedContent
	err      error
}

func (f *fakeContentProvider) Fetch(_ context.Context, _ []SourceRef) ([]domain.ExtractedContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.contents, nil
}

type fakeFeedbackStore struct {
	events []domain.FeedbackEvent
}

func (f *fakeFeedbackStore) Record(_ context.Context, event *domain.FeedbackEvent) error {
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeFeedbackStore) ListBySession(_ context.Context, _ string) ([]domain.FeedbackEvent, error) {
	return f.events, nil
}

func (f *fakeFeedbackStore) ListByUser(_ context.Context, userID string, _ int) ([]domain.FeedbackEvent, error) {
	out := make([]domain.FeedbackEvent, 0)
	for _, e := range f.events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func mlContent() domain.ExtractedContent {
	return domain.ExtractedContent{
		SourceType: domain.SourceTypeNote,
		SourceID:   "note-1",
		Keywords:   []string{"machine learning", "NLP"},
		Topics:     []string{"AI"},
		Confidence: 0.9,
	}
}

func searchResults() []domain.ScholarResult {
	return []domain.ScholarResult{
		{
			Title:     "Attention Is All You Need",
			Authors:   []string{"Ashish Vaswani", "Noam Shazeer"},
			Journal:   "NeurIPS",
			Year:      2017,
			Citations: 90000,
			DOI:       "10.1/a",
			Abstract:  "Transformer architecture for machine learning and NLP tasks.",
			Keywords:  []string{"machine learning", "NLP"},
		},
		{
			Title:    "A Minor Note",
			Authors:  []string{"B. Author"},
			Year:     1999,
			Abstract: "Unrelated topic.",
		},
		{
			Title:     "Language Models Are Few-Shot Learners",
			Authors:   []string{"Tom Brown"},
			Journal:   "NeurIPS",
			Year:      2020,
			Citations: 50000,
			DOI:       "10.1/c",
			Abstract:  "Large language models for NLP.",
			Keywords:  []string{"NLP"},
		},
	}
}

type testDeps struct {
	service  *Service
	search   *fakeSearchClient
	provider *fakeContentProvider
	store    *fakeFeedbackStore
}

func newTestService(t *testing.T) *testDeps {
	t.Helper()

	cache := config.CacheConfig{TTL: time.Hour, MaxEntries: 50, MaxAccessCount: 50}
	opt, err := optimizer.New(config.OptimizerConfig{
		SearchCache:      cache,
		ContentCache:     cache,
		QueryCache:       cache,
		SweepInterval:    time.Minute,
		WorkerInterval:   time.Second,
		WorkerBatchSize:  3,
		WorkerPoolSize:   2,
		TaskMaxRetries:   1,
		DefaultBatchSize: 10,
	}, nil, nil, zerolog.Nop())
	require.NoError(t, err)

	search := &fakeSearchClient{results: searchResults()}
	provider := &fakeContentProvider{contents: []domain.ExtractedContent{mlContent()}}
	store := &fakeFeedbackStore{}

	service := NewService(
		provider,
		search,
		query.NewGenerator(query.Options{}, zerolog.Nop()),
		ranking.NewScorer(ranking.Weights{}, zerolog.Nop()),
		dedup.NewDetector(dedup.Config{}, zerolog.Nop()),
		feedback.NewLearner(store, zerolog.Nop()),
		opt,
		nil,
		zerolog.Nop(),
	)
	return &testDeps{service: service, search: search, provider: provider, store: store}
}

func TestExecuteEndToEnd(t *testing.T) {
	deps := newTestService(t)

	resp, err := deps.service.Execute(context.Background(), Request{
		ContentSources: []SourceRef{{Source: "note", ID: "note-1"}},
	})
	require.NoError(t, err)
	require.True(t, resp.Success)

	// The generated query carries both quoted keywords joined with AND.
	require.Len(t, deps.search.queries, 1)
	assert.Contains(t, deps.search.queries[0], `"machine learning"`)
	assert.Contains(t, deps.search.queries[0], `"NLP"`)
	assert.Contains(t, deps.search.queries[0], " AND ")

	assert.Equal(t, 3, resp.TotalResults)
	assert.Equal(t, 3, resp.LoadedResults)
	assert.False(t, resp.HasMore)
	assert.NotEmpty(t, resp.SessionID)

	require.Len(t, resp.Results, 3)
	for i, r := range resp.Results {
		assert.Equal(t, i+1, r.Rank)
		if i > 0 {
			assert.GreaterOrEqual(t, resp.Results[i-1].OverallScore, r.OverallScore)
		}
	}
	// The highly cited, on-topic paper outranks the unrelated note.
	assert.Equal(t, "Attention Is All You Need", resp.Results[0].Result.Title)

	require.NotNil(t, resp.PerformanceMetrics)
	assert.GreaterOrEqual(t, resp.PerformanceMetrics.TotalTime, 0.0)
	require.NotNil(t, resp.SearchMetadata)
	assert.Greater(t, resp.SearchMetadata.QueryComplexity, 0.0)
	assert.False(t, resp.LearningApplied)
}

func TestExecuteRequiresInput(t *testing.T) {
	deps := newTestService(t)

	resp, err := deps.service.Execute(context.Background(), Request{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	require.NotNil(t, resp)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "Failed to execute AI search workflow")
	assert.Empty(t, resp.Results)
}

func TestExecuteSearchFailureFailsWhole(t *testing.T) {
	deps := newTestService(t)
	deps.search.err = errors.New("index unreachable")

	resp, err := deps.service.Execute(context.Background(), Request{Query: `"machine learning"`})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStageFailed)

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "Failed to execute AI search workflow")
	assert.Contains(t, resp.Error, "index unreachable")
	assert.Empty(t, resp.Results, "no partial results on failure")
}

func TestExecutePrebuiltQuerySkipsExtraction(t *testing.T) {
	deps := newTestService(t)

	resp, err := deps.service.Execute(context.Background(), Request{Query: `"deep learning"`})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Zero(t, deps.provider.calls)
	assert.Equal(t, []string{`"deep learning"`}, deps.search.queries)
}

func TestExecuteCachesSearchResults(t *testing.T) {
	deps := newTestService(t)
	req := Request{Query: `"machine learning"`}

	first, err := deps.service.Execute(context.Background(), req)
	require.NoError(t, err)
	second, err := deps.service.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, deps.search.callCount(), "second run should hit the search cache")
	assert.Equal(t, first.TotalResults, second.TotalResults)
	assert.NotEqual(t, first.SessionID, second.SessionID, "each run gets its own loading session")
}

func TestExecuteQueryOptionsAreNotSharedAcrossRequests(t *testing.T) {
	deps := newTestService(t)
	sources := []SourceRef{{Source: "note", ID: "note-1"}}

	narrow, err := deps.service.Execute(context.Background(), Request{
		ContentSources: sources,
		QueryOptions:   QueryOptions{MaxKeywords: 1},
	})
	require.NoError(t, err)
	require.True(t, narrow.Success)

	wide, err := deps.service.Execute(context.Background(), Request{
		ContentSources: sources,
		QueryOptions:   QueryOptions{MaxKeywords: 5},
	})
	require.NoError(t, err)
	require.True(t, wide.Success)

	// Same sources, different generation options: each request generates
	// and searches its own query instead of reusing the first one's.
	require.Len(t, deps.search.queries, 2)
	assert.NotEqual(t, deps.search.queries[0], deps.search.queries[1])
	assert.NotContains(t, deps.search.queries[0], `"NLP"`)
	assert.Contains(t, deps.search.queries[1], `"machine learning"`)
	assert.Contains(t, deps.search.queries[1], `"NLP"`)
}

func TestExecuteProgressiveBatching(t *testing.T) {
	deps := newTestService(t)

	resp, err := deps.service.Execute(context.Background(), Request{
		Query:     `"machine learning"`,
		BatchSize: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, resp.TotalResults)
	assert.Equal(t, 2, resp.LoadedResults)
	assert.True(t, resp.HasMore)
	assert.Len(t, resp.Results, 2)

	batch, err := deps.service.NextBatch(resp.SessionID)
	require.NoError(t, err)
	assert.Len(t, batch.Results, 1)
	assert.True(t, batch.IsComplete)
	assert.Equal(t, 3, batch.LoadedCount)
}

func TestExecuteAppliesFeedback(t *testing.T) {
	deps := newTestService(t)

	liked := searchResults()[2]
	for i := 0; i < feedback.MinPatternEvents; i++ {
		deps.store.events = append(deps.store.events,
			*domain.NewFeedbackEvent("s-1", "user-1", liked, domain.ActionAdded))
	}

	resp, err := deps.service.Execute(context.Background(), Request{
		Query:  `"machine learning"`,
		UserID: "user-1",
	})
	require.NoError(t, err)
	assert.True(t, resp.LearningApplied)
	assert.Equal(t, 3, resp.TotalResults)
}

func TestExecuteTaskPreloadWarmsCache(t *testing.T) {
	deps := newTestService(t)

	task := optimizer.NewPreloadTask(optimizer.PriorityHigh, optimizer.PreloadPayload{Query: `"machine learning"`})
	require.NoError(t, deps.service.ExecuteTask(context.Background(), task))
	require.Equal(t, 1, deps.search.callCount())

	resp, err := deps.service.Execute(context.Background(), Request{Query: `"machine learning"`})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 1, deps.search.callCount(), "preloaded query should not hit the index again")
}

func TestExecuteTaskRejectsMissingPayload(t *testing.T) {
	deps := newTestService(t)

	task := &optimizer.BackgroundTask{Type: optimizer.TaskSearchPreload}
	err := deps.service.ExecuteTask(context.Background(), task)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
