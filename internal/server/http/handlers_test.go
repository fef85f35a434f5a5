package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/inkwell-ai/scholar-discovery/internal/domain"
	"github.com/inkwell-ai/scholar-discovery/internal/optimizer"
	"github.com/inkwell-ai/scholar-discovery/internal/pipeline"
)

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

// mockPipeline implements PipelineService for HTTP handler tests.
type mockPipeline struct {
	executeFn   func(ctx context.Context, req pipeline.Request) (*pipeline.Response, error)
	nextBatchFn func(sessionID string) (*optimizer.LoadBatch, error)
	ended       []string
}

func (m *mockPipeline) Execute(ctx context.Context, req pipeline.Request) (*pipeline.Response, error) {
	if m.executeFn != nil {
		return m.executeFn(ctx, req)
	}
	return &pipeline.Response{
		Success:       true,
		Results:       []domain.RankedResult{{Result: domain.ScholarResult{Title: "Attention Is All You Need"}, Rank: 1}},
		TotalResults:  1,
		LoadedResults: 1,
		SessionID:     "session-1",
	}, nil
}

func (m *mockPipeline) NextBatch(sessionID string) (*optimizer.LoadBatch, error) {
	if m.nextBatchFn != nil {
		return m.nextBatchFn(sessionID)
	}
	return nil, domain.NewNotFoundError("load session", sessionID)
}

func (m *mockPipeline) EndSession(sessionID string) {
	m.ended = append(m.ended, sessionID)
}

// mockFeedback implements FeedbackService for HTTP handler tests.
type mockFeedback struct {
	recordFn func(ctx context.Context, event *domain.FeedbackEvent) error
	listFn   func(ctx context.Context, sessionID string) ([]domain.FeedbackEvent, error)
	recorded []*domain.FeedbackEvent
}

func (m *mockFeedback) Record(ctx context.Context, event *domain.FeedbackEvent) error {
	if m.recordFn != nil {
		return m.recordFn(ctx, event)
	}
	m.recorded = append(m.recorded, event)
	return nil
}

func (m *mockFeedback) ListBySession(ctx context.Context, sessionID string) ([]domain.FeedbackEvent, error) {
	if m.listFn != nil {
		return m.listFn(ctx, sessionID)
	}
	return []domain.FeedbackEvent{}, nil
}

// mockPreferences implements PreferenceReader for HTTP handler tests.
type mockPreferences struct {
	patternFn func(ctx context.Context, userID string) (*domain.UserPreferencePattern, error)
	metricsFn func(ctx context.Context, userID string) (*domain.LearningMetrics, error)
}

func (m *mockPreferences) Pattern(ctx context.Context, userID string) (*domain.UserPreferencePattern, error) {
	if m.patternFn != nil {
		return m.patternFn(ctx, userID)
	}
	return &domain.UserPreferencePattern{UserID: userID}, nil
}

func (m *mockPreferences) Metrics(ctx context.Context, userID string) (*domain.LearningMetrics, error) {
	if m.metricsFn != nil {
		return m.metricsFn(ctx, userID)
	}
	return &domain.LearningMetrics{}, nil
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// newTestHTTPServer creates a Server configured for testing with mocked dependencies.
func newTestHTTPServer(p PipelineService, f FeedbackService, pr PreferenceReader) *Server {
	s := &Server{
		pipeline:    p,
		feedback:    f,
		preferences: pr,
		contents:    pipeline.NewMemoryProvider(),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		logger:      zerolog.Nop(),
	}
	s.router = s.buildRouter()
	return s
}

// serveHTTP dispatches a request through the test server's router and returns the recorder.
func serveHTTP(s *Server, r *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, r)
	return rr
}

func postJSON(t *testing.T, path string, body interface{}) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}
	return httptest.NewRequest("POST", path, bytes.NewReader(raw))
}

// ---------------------------------------------------------------------------
// Search handler tests
// ---------------------------------------------------------------------------

func TestExecuteSearch_Success(t *testing.T) {
	var captured pipeline.Request
	mp := &mockPipeline{
		executeFn: func(_ context.Context, req pipeline.Request) (*pipeline.Response, error) {
			captured = req
			return &pipeline.Response{
				Success:       true,
				Results:       []domain.RankedResult{{Result: domain.ScholarResult{Title: "Attention Is All You Need"}, Rank: 1}},
				TotalResults:  1,
				LoadedResults: 1,
				SessionID:     "session-1",
			}, nil
		},
	}
	s := newTestHTTPServer(mp, &mockFeedback{}, &mockPreferences{})

	req := postJSON(t, "/api/v1/search", map[string]interface{}{
		"user_id": "user-1",
		"query":   "transformer architectures",
		"filters": map[string]interface{}{"max_results": 20},
	})
	rr := serveHTTP(s, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp pipeline.Response
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Error("expected success=true")
	}
	if resp.SessionID != "session-1" {
		t.Errorf("expected session-1, got %s", resp.SessionID)
	}
	if resp.TotalResults != 1 || len(resp.Results) != 1 {
		t.Errorf("expected one result, got total=%d len=%d", resp.TotalResults, len(resp.Results))
	}
	if captured.Query != "transformer architectures" {
		t.Errorf("expected query forwarded, got %q", captured.Query)
	}
	if captured.Filters.MaxResults != 20 {
		t.Errorf("expected max_results 20, got %d", captured.Filters.MaxResults)
	}
}

func TestExecuteSearch_InvalidJSON(t *testing.T) {
	s := newTestHTTPServer(&mockPipeline{}, &mockFeedback{}, &mockPreferences{})

	req := httptest.NewRequest("POST", "/api/v1/search", bytes.NewReader([]byte("{not json")))
	rr := serveHTTP(s, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestExecuteSearch_RequiresQueryOrSources(t *testing.T) {
	s := newTestHTTPServer(&mockPipeline{}, &mockFeedback{}, &mockPreferences{})

	req := postJSON(t, "/api/v1/search", map[string]interface{}{"user_id": "user-1"})
	rr := serveHTTP(s, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestExecuteSearch_RejectsOutOfRangeBatchSize(t *testing.T) {
	s := newTestHTTPServer(&mockPipeline{}, &mockFeedback{}, &mockPreferences{})

	req := postJSON(t, "/api/v1/search", map[string]interface{}{
		"query":      "transformers",
		"batch_size": 500,
	})
	rr := serveHTTP(s, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestExecuteSearch_StageFailureMapsToBadGateway(t *testing.T) {
	mp := &mockPipeline{
		executeFn: func(_ context.Context, _ pipeline.Request) (*pipeline.Response, error) {
			err := domain.NewStageError("search_execution", domain.ErrServiceUnavailable)
			return &pipeline.Response{
				Success: false,
				Error:   "Failed to execute AI search workflow: " + err.Error(),
			}, err
		},
	}
	s := newTestHTTPServer(mp, &mockFeedback{}, &mockPreferences{})

	req := postJSON(t, "/api/v1/search", map[string]interface{}{"query": "transformers"})
	rr := serveHTTP(s, req)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp pipeline.Response
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Success {
		t.Error("expected success=false in failure envelope")
	}
	if resp.Error == "" {
		t.Error("expected error message in failure envelope")
	}
}

func TestExecuteSearch_RateLimitMapsToTooManyRequests(t *testing.T) {
	mp := &mockPipeline{
		executeFn: func(_ context.Context, _ pipeline.Request) (*pipeline.Response, error) {
			err := &domain.RateLimitError{Source: "scholar", RetryAfter: time.Second}
			return &pipeline.Response{Success: false, Error: err.Error()}, err
		},
	}
	s := newTestHTTPServer(mp, &mockFeedback{}, &mockPreferences{})

	req := postJSON(t, "/api/v1/search", map[string]interface{}{"query": "transformers"})
	rr := serveHTTP(s, req)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
}

func TestNextBatch_Success(t *testing.T) {
	mp := &mockPipeline{
		nextBatchFn: func(sessionID string) (*optimizer.LoadBatch, error) {
			return &optimizer.LoadBatch{
				SessionID:   sessionID,
				Results:     []domain.RankedResult{{Rank: 11}},
				LoadedCount: 11,
				TotalCount:  25,
			}, nil
		},
	}
	s := newTestHTTPServer(mp, &mockFeedback{}, &mockPreferences{})

	req := httptest.NewRequest("GET", "/api/v1/search/session-1/next", nil)
	rr := serveHTTP(s, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var batch optimizer.LoadBatch
	if err := json.Unmarshal(rr.Body.Bytes(), &batch); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if batch.SessionID != "session-1" {
		t.Errorf("expected session-1, got %s", batch.SessionID)
	}
	if batch.LoadedCount != 11 || batch.TotalCount != 25 {
		t.Errorf("unexpected counts: loaded=%d total=%d", batch.LoadedCount, batch.TotalCount)
	}
}

func TestNextBatch_UnknownSession(t *testing.T) {
	s := newTestHTTPServer(&mockPipeline{}, &mockFeedback{}, &mockPreferences{})

	req := httptest.NewRequest("GET", "/api/v1/search/missing/next", nil)
	rr := serveHTTP(s, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestEndSession(t *testing.T) {
	mp := &mockPipeline{}
	s := newTestHTTPServer(mp, &mockFeedback{}, &mockPreferences{})

	req := httptest.NewRequest("DELETE", "/api/v1/search/session-1", nil)
	rr := serveHTTP(s, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if len(mp.ended) != 1 || mp.ended[0] != "session-1" {
		t.Errorf("expected session-1 ended, got %v", mp.ended)
	}
}

// ---------------------------------------------------------------------------
// Content handler tests
// ---------------------------------------------------------------------------

func TestRegisterContent_Success(t *testing.T) {
	provider := pipeline.NewMemoryProvider()
	s := newTestHTTPServer(&mockPipeline{}, &mockFeedback{}, &mockPreferences{})
	s.contents = provider

	req := postJSON(t, "/api/v1/content", map[string]interface{}{
		"source_type": "note",
		"source_id":   "note-1",
		"title":       "Transformer Notes",
		"keywords":    []string{"attention", "transformer"},
		"confidence":  0.9,
	})
	rr := serveHTTP(s, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if provider.Len() != 1 {
		t.Fatalf("expected one registered content, got %d", provider.Len())
	}

	contents, err := provider.Fetch(context.Background(), []pipeline.SourceRef{{Source: "note", ID: "note-1"}})
	if err != nil {
		t.Fatalf("fetch registered content: %v", err)
	}
	if contents[0].Title != "Transformer Notes" {
		t.Errorf("expected title registered, got %q", contents[0].Title)
	}
}

func TestRegisterContent_UnsupportedSourceType(t *testing.T) {
	s := newTestHTTPServer(&mockPipeline{}, &mockFeedback{}, &mockPreferences{})

	req := postJSON(t, "/api/v1/content", map[string]interface{}{
		"source_type": "webpage",
		"source_id":   "page-1",
		"keywords":    []string{"attention"},
	})
	rr := serveHTTP(s, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestRegisterContent_RequiresTerms(t *testing.T) {
	s := newTestHTTPServer(&mockPipeline{}, &mockFeedback{}, &mockPreferences{})

	req := postJSON(t, "/api/v1/content", map[string]interface{}{
		"source_type": "note",
		"source_id":   "note-1",
		"content":     "plain text without derived terms",
	})
	rr := serveHTTP(s, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

// ---------------------------------------------------------------------------
// Feedback handler tests
// ---------------------------------------------------------------------------

func TestRecordFeedback_Success(t *testing.T) {
	mf := &mockFeedback{}
	s := newTestHTTPServer(&mockPipeline{}, mf, &mockPreferences{})

	req := postJSON(t, "/api/v1/feedback", map[string]interface{}{
		"session_id": "session-1",
		"user_id":    "user-1",
		"action":     "added",
		"result": map[string]interface{}{
			"title": "Attention Is All You Need",
			"doi":   "10.5555/3295222",
		},
	})
	rr := serveHTTP(s, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	if len(mf.recorded) != 1 {
		t.Fatalf("expected one recorded event, got %d", len(mf.recorded))
	}
	event := mf.recorded[0]
	if event.SessionID != "session-1" || event.UserID != "user-1" {
		t.Errorf("unexpected event keys: session=%s user=%s", event.SessionID, event.UserID)
	}
	if event.Action != domain.ActionAdded {
		t.Errorf("expected action added, got %s", event.Action)
	}
	if event.ResultID != "doi:10.5555/3295222" {
		t.Errorf("unexpected result identity: %s", event.ResultID)
	}

	var resp recordFeedbackResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Recorded {
		t.Error("expected recorded=true")
	}
	if resp.EventID == "" {
		t.Error("expected non-empty event_id")
	}
}

func TestRecordFeedback_UnsupportedAction(t *testing.T) {
	s := newTestHTTPServer(&mockPipeline{}, &mockFeedback{}, &mockPreferences{})

	req := postJSON(t, "/api/v1/feedback", map[string]interface{}{
		"session_id": "session-1",
		"user_id":    "user-1",
		"action":     "starred",
		"result":     map[string]interface{}{"title": "Some Paper"},
	})
	rr := serveHTTP(s, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestRecordFeedback_MissingSessionID(t *testing.T) {
	s := newTestHTTPServer(&mockPipeline{}, &mockFeedback{}, &mockPreferences{})

	req := postJSON(t, "/api/v1/feedback", map[string]interface{}{
		"user_id": "user-1",
		"action":  "added",
		"result":  map[string]interface{}{"title": "Some Paper"},
	})
	rr := serveHTTP(s, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestRecordFeedback_MissingResultIdentity(t *testing.T) {
	s := newTestHTTPServer(&mockPipeline{}, &mockFeedback{}, &mockPreferences{})

	req := postJSON(t, "/api/v1/feedback", map[string]interface{}{
		"session_id": "session-1",
		"user_id":    "user-1",
		"action":     "added",
		"result":     map[string]interface{}{"year": 2020},
	})
	rr := serveHTTP(s, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestListSessionFeedback(t *testing.T) {
	mf := &mockFeedback{
		listFn: func(_ context.Context, sessionID string) ([]domain.FeedbackEvent, error) {
			return []domain.FeedbackEvent{
				*domain.NewFeedbackEvent(sessionID, "user-1", domain.ScholarResult{Title: "First"}, domain.ActionViewed),
				*domain.NewFeedbackEvent(sessionID, "user-1", domain.ScholarResult{Title: "Second"}, domain.ActionAdded),
			}, nil
		},
	}
	s := newTestHTTPServer(&mockPipeline{}, mf, &mockPreferences{})

	req := httptest.NewRequest("GET", "/api/v1/search/session-1/feedback", nil)
	rr := serveHTTP(s, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp sessionFeedbackResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TotalCount != 2 || len(resp.Events) != 2 {
		t.Fatalf("expected two events, got total=%d len=%d", resp.TotalCount, len(resp.Events))
	}
	if resp.Events[0].Action != string(domain.ActionViewed) {
		t.Errorf("expected first event viewed, got %s", resp.Events[0].Action)
	}
	if resp.Events[1].Result.Title != "Second" {
		t.Errorf("expected result snapshot in response, got %q", resp.Events[1].Result.Title)
	}
}

// ---------------------------------------------------------------------------
// Preference handler tests
// ---------------------------------------------------------------------------

func TestUserPreferences(t *testing.T) {
	mp := &mockPreferences{
		patternFn: func(_ context.Context, userID string) (*domain.UserPreferencePattern, error) {
			return &domain.UserPreferencePattern{
				UserID:           userID,
				PreferredAuthors: []string{"ashish vaswani"},
				YearRange:        domain.IntRange{Min: 2017, Max: 2023},
				SampleSize:       12,
			}, nil
		},
	}
	s := newTestHTTPServer(&mockPipeline{}, &mockFeedback{}, mp)

	req := httptest.NewRequest("GET", "/api/v1/users/user-1/preferences", nil)
	rr := serveHTTP(s, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var pattern domain.UserPreferencePattern
	if err := json.Unmarshal(rr.Body.Bytes(), &pattern); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if pattern.UserID != "user-1" {
		t.Errorf("expected user-1, got %s", pattern.UserID)
	}
	if pattern.SampleSize != 12 {
		t.Errorf("expected sample size 12, got %d", pattern.SampleSize)
	}
	if len(pattern.PreferredAuthors) != 1 {
		t.Errorf("expected one preferred author, got %v", pattern.PreferredAuthors)
	}
}

func TestUserLearningMetrics(t *testing.T) {
	mp := &mockPreferences{
		metricsFn: func(_ context.Context, _ string) (*domain.LearningMetrics, error) {
			return &domain.LearningMetrics{
				PositiveFeedback: 3,
				NegativeFeedback: 1,
				TotalFeedback:    4,
				AverageRating:    0.75,
			}, nil
		},
	}
	s := newTestHTTPServer(&mockPipeline{}, &mockFeedback{}, mp)

	req := httptest.NewRequest("GET", "/api/v1/users/user-1/learning-metrics", nil)
	rr := serveHTTP(s, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var metrics domain.LearningMetrics
	if err := json.Unmarshal(rr.Body.Bytes(), &metrics); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if metrics.TotalFeedback != 4 {
		t.Errorf("expected total feedback 4, got %d", metrics.TotalFeedback)
	}
	if metrics.AverageRating != 0.75 {
		t.Errorf("expected average rating 0.75, got %f", metrics.AverageRating)
	}
}

func TestUserPreferences_StoreFailure(t *testing.T) {
	mp := &mockPreferences{
		patternFn: func(_ context.Context, _ string) (*domain.UserPreferencePattern, error) {
			return nil, domain.ErrInternalError
		},
	}
	s := newTestHTTPServer(&mockPipeline{}, &mockFeedback{}, mp)

	req := httptest.NewRequest("GET", "/api/v1/users/user-1/preferences", nil)
	rr := serveHTTP(s, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", rr.Code, rr.Body.String())
	}
}
