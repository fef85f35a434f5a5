// Package pipeline orchestrates a discovery request end to end: content
// retrieval, query generation, the external index search, scoring,
// duplicate detection, feedback re-ranking, and progressive loading. A
// failure in any stage fails the whole request; partial results are never
// returned.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/inkwell-ai/scholar-discovery/internal/dedup"
	"github.com/inkwell-ai/scholar-discovery/internal/domain"
	"github.com/inkwell-ai/scholar-discovery/internal/feedback"
	"github.com/inkwell-ai/scholar-discovery/internal/observability"
	"github.com/inkwell-ai/scholar-discovery/internal/optimizer"
	"github.com/inkwell-ai/scholar-discovery/internal/query"
	"github.com/inkwell-ai/scholar-discovery/internal/ranking"
	"github.com/inkwell-ai/scholar-discovery/internal/scholar"
)

// failurePrefix opens every pipeline failure message.
const failurePrefix = "Failed to execute AI search workflow"

// Pipeline stage names, used in errors and metrics labels.
const (
	stageContentExtraction   = "content_extraction"
	stageQueryGeneration     = "query_generation"
	stageSearchExecution     = "search_execution"
	stageResultProcessing    = "result_processing"
	stageDuplicateDetection  = "duplicate_detection"
	stageFeedbackApplication = "feedback_application"
)

// SearchClient is the external index collaborator.
type SearchClient interface {
	Search(ctx context.Context, query string, filters scholar.SearchFilters) ([]domain.ScholarResult, error)
}

// ContentProvider retrieves extracted content for the caller's source
// references. It is consumed here, implemented by the surrounding
// application.
type ContentProvider interface {
	Fetch(ctx context.Context, refs []SourceRef) ([]domain.ExtractedContent, error)
}

// SourceRef identifies one content source in the caller's system.
type SourceRef struct {
	Source string `json:"source" validate:"required"`
	ID     string `json:"id" validate:"required"`
}

// QueryOptions are the caller-tunable query generation knobs.
type QueryOptions struct {
	MaxKeywords         int  `json:"max_keywords" validate:"omitempty,min=1,max=20"`
	OptimizeForAcademic bool `json:"optimize_for_academic"`
	IncludeAlternatives bool `json:"include_alternatives"`
}

// Filters narrow the external index search.
type Filters struct {
	YearFrom   int    `json:"year_from" validate:"omitempty,min=1000"`
	YearTo     int    `json:"year_to" validate:"omitempty,min=1000"`
	SortBy     string `json:"sort_by" validate:"omitempty,oneof=relevance date"`
	MaxResults int    `json:"max_results" validate:"omitempty,min=1,max=100"`
}

// Request is one discovery pipeline invocation. Either ContentSources or
// Query must be set.
type Request struct {
	UserID         string       `json:"user_id"`
	ContentSources []SourceRef  `json:"content_sources" validate:"omitempty,dive"`
	Query          string       `json:"query"`
	QueryOptions   QueryOptions `json:"query_options"`
	Filters        Filters      `json:"filters"`
	BatchSize      int          `json:"batch_size" validate:"omitempty,min=1,max=100"`
}

// PerformanceMetrics carries per-stage wall-clock timings in seconds.
type PerformanceMetrics struct {
	ContentExtractionTime   float64 `json:"content_extraction_time"`
	QueryGenerationTime     float64 `json:"query_generation_time"`
	SearchExecutionTime     float64 `json:"search_execution_time"`
	ResultProcessingTime    float64 `json:"result_processing_time"`
	DuplicateDetectionTime  float64 `json:"duplicate_detection_time"`
	FeedbackApplicationTime float64 `json:"feedback_application_time"`
	TotalTime               float64 `json:"total_time"`
}

// SearchMetadata summarizes the quality of one completed search.
type SearchMetadata struct {
	QueryComplexity          float64 `json:"query_complexity"`
	ResultDiversity          float64 `json:"result_diversity"`
	UserSatisfactionEstimate float64 `json:"user_satisfaction_estimate"`
	AverageResultQuality     float64 `json:"average_result_quality"`
}

// Response is the pipeline output contract. On failure only Success, Error,
// and ProcessingTime are meaningful.
type Response struct {
	Success bool                  `json:"success"`
	Results []domain.RankedResult `json:"results,omitempty"`
	Error   string                `json:"error,omitempty"`

	TotalResults  int    `json:"total_results"`
	LoadedResults int    `json:"loaded_results"`
	HasMore       bool   `json:"has_more"`
	SessionID     string `json:"sessionId"`

	ProcessingTime  float64 `json:"processingTime"`
	LearningApplied bool    `json:"learningApplied"`

	PerformanceMetrics *PerformanceMetrics `json:"performance_metrics,omitempty"`
	SearchMetadata     *SearchMetadata     `json:"search_metadata,omitempty"`
}

// Service runs the discovery pipeline. All collaborators are injected; the
// optimizer instance is shared across requests, everything else is
// request-scoped.
type Service struct {
	contents  ContentProvider
	search    SearchClient
	generator *query.Generator
	scorer    *ranking.Scorer
	detector  *dedup.Detector
	learner   *feedback.Learner
	optimizer *optimizer.Optimizer

	metrics *observability.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

// NewService creates a pipeline service.
func NewService(
	contents ContentProvider,
	search SearchClient,
	generator *query.Generator,
	scorer *ranking.Scorer,
	detector *dedup.Detector,
	learner *feedback.Learner,
	opt *optimizer.Optimizer,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Service {
	return &Service{
		contents:  contents,
		search:    search,
		generator: generator,
		scorer:    scorer,
		detector:  detector,
		learner:   learner,
		optimizer: opt,
		metrics:   metrics,
		logger:    logger.With().Str("component", "pipeline").Logger(),
		now:       time.Now,
	}
}

// Execute runs the full pipeline for one request. It always returns a
// non-nil response; when the returned error is non-nil the response carries
// Success=false and the matching error message.
func (s *Service) Execute(ctx context.Context, req Request) (*Response, error) {
	started := s.now()
	logger := observability.LoggerFromContext(ctx, s.logger)

	resp, err := s.execute(ctx, req, logger)
	elapsed := s.now().Sub(started).Seconds()
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordPipelineFailure(elapsed)
		}
		logger.Error().Err(err).Float64("elapsed_s", elapsed).Msg("pipeline execution failed")
		return &Response{
			Success:        false,
			Error:          fmt.Sprintf("%s: %v", failurePrefix, err),
			ProcessingTime: elapsed,
		}, err
	}

	resp.ProcessingTime = elapsed
	resp.PerformanceMetrics.TotalTime = elapsed
	if s.metrics != nil {
		s.metrics.RecordPipelineSuccess(elapsed)
	}
	logger.Info().
		Int("total_results", resp.TotalResults).
		Int("loaded_results", resp.LoadedResults).
		Bool("learning_applied", resp.LearningApplied).
		Float64("elapsed_s", elapsed).
		Msg("pipeline execution completed")
	return resp, nil
}

func (s *Service) execute(ctx context.Context, req Request, logger zerolog.Logger) (*Response, error) {
	if len(req.ContentSources) == 0 && req.Query == "" {
		return nil, domain.NewValidationError("request", "either content sources or a query is required")
	}

	perf := &PerformanceMetrics{}

	contents, err := s.extractContent(ctx, req, perf)
	if err != nil {
		return nil, domain.NewStageError(stageContentExtraction, err)
	}

	queryString, queries, err := s.generateQueries(ctx, req, contents, perf)
	if err != nil {
		return nil, domain.NewStageError(stageQueryGeneration, err)
	}

	filters := scholar.SearchFilters{
		YearFrom:   req.Filters.YearFrom,
		YearTo:     req.Filters.YearTo,
		SortBy:     req.Filters.SortBy,
		MaxResults: req.Filters.MaxResults,
	}

	// A cache hit skips the search, scoring, and dedup stages; their
	// timings stay zero.
	cacheKey := searchKey(queryString, filters)
	deduped, hit := s.optimizer.SearchCache.Get(cacheKey)
	if !hit {
		results, err := s.executeSearch(ctx, queryString, filters, perf)
		if err != nil {
			return nil, domain.NewStageError(stageSearchExecution, err)
		}

		ranked := s.processResults(results, contents, queries, perf)

		deduped = s.deduplicate(ranked, perf)
		s.optimizer.SearchCache.Put(cacheKey, deduped)
	}

	final, learningApplied, satisfaction, err := s.applyFeedback(ctx, req.UserID, deduped, perf)
	if err != nil {
		return nil, domain.NewStageError(stageFeedbackApplication, err)
	}

	sessionID, batch := s.optimizer.Loader.InitSession(final, req.BatchSize)
	logger.Debug().
		Str("query", queryString).
		Bool("cache_hit", hit).
		Int("deduped_results", len(deduped)).
		Int("final_results", len(final)).
		Str("session_id", sessionID).
		Msg("pipeline stages completed")

	return &Response{
		Success:            true,
		Results:            batch.Results,
		TotalResults:       batch.TotalCount,
		LoadedResults:      batch.LoadedCount,
		HasMore:            !batch.IsComplete,
		SessionID:          sessionID,
		LearningApplied:    learningApplied,
		PerformanceMetrics: perf,
		SearchMetadata:     buildMetadata(queryString, final, satisfaction),
	}, nil
}

func (s *Service) extractContent(ctx context.Context, req Request, perf *PerformanceMetrics) ([]domain.ExtractedContent, error) {
	if len(req.ContentSources) == 0 {
		return nil, nil
	}

	started := s.now()
	defer func() { s.recordStage(stageContentExtraction, started, &perf.ContentExtractionTime) }()

	key := contentsKey(req.ContentSources)
	if cached, ok := s.optimizer.ContentCache.Get(key); ok {
		return cached, nil
	}

	contents, err := s.contents.Fetch(ctx, req.ContentSources)
	if err != nil {
		return nil, err
	}
	s.optimizer.ContentCache.Put(key, contents)
	return contents, nil
}

func (s *Service) generateQueries(ctx context.Context, req Request, contents []domain.ExtractedContent, perf *PerformanceMetrics) (string, []domain.SearchQuery, error) {
	started := s.now()
	defer func() { s.recordStage(stageQueryGeneration, started, &perf.QueryGenerationTime) }()

	// A pre-built query bypasses generation entirely.
	if req.Query != "" {
		return req.Query, nil, nil
	}

	opts := query.Options{
		MaxKeywords:         req.QueryOptions.MaxKeywords,
		OptimizeForAcademic: req.QueryOptions.OptimizeForAcademic,
		IncludeAlternatives: req.QueryOptions.IncludeAlternatives,
	}

	// The options are part of the key: the same sources under different
	// generation options produce different queries.
	key := optimizer.QueryKey(contents, opts.Key())
	if cached, ok := s.optimizer.QueryCache.Get(key); ok && len(cached) > 0 {
		return cached[0].Query, cached, nil
	}

	queries, err := s.generator.Generate(ctx, contents, opts)
	if err != nil {
		return "", nil, err
	}
	if s.metrics != nil {
		for i := range queries {
			s.metrics.QueriesGenerated.WithLabelValues(string(queries[i].QueryType)).Inc()
		}
	}

	s.optimizer.QueryCache.Put(key, queries)
	return queries[0].Query, queries, nil
}

func (s *Service) executeSearch(ctx context.Context, queryString string, filters scholar.SearchFilters, perf *PerformanceMetrics) ([]domain.ScholarResult, error) {
	started := s.now()
	defer func() { s.recordStage(stageSearchExecution, started, &perf.SearchExecutionTime) }()

	if s.metrics != nil {
		s.metrics.SearchesStarted.Inc()
	}
	results, err := s.search.Search(ctx, queryString, filters)
	if err != nil {
		if s.metrics != nil {
			s.metrics.SearchesFailed.WithLabelValues(errorType(err)).Inc()
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordSearch(s.now().Sub(started).Seconds(), len(results))
	}
	return results, nil
}

func (s *Service) processResults(results []domain.ScholarResult, contents []domain.ExtractedContent, queries []domain.SearchQuery, perf *PerformanceMetrics) []domain.RankedResult {
	started := s.now()
	defer func() { s.recordStage(stageResultProcessing, started, &perf.ResultProcessingTime) }()

	return s.scorer.Rank(results, contents, queries)
}

func (s *Service) deduplicate(ranked []domain.RankedResult, perf *PerformanceMetrics) []domain.RankedResult {
	started := s.now()
	defer func() { s.recordStage(stageDuplicateDetection, started, &perf.DuplicateDetectionTime) }()

	deduped := s.detector.Deduplicate(ranked)
	if merged := len(ranked) - len(deduped); merged > 0 && s.metrics != nil {
		s.metrics.DuplicatesMerged.Add(float64(merged))
	}
	return deduped
}

func (s *Service) applyFeedback(ctx context.Context, userID string, ranked []domain.RankedResult, perf *PerformanceMetrics) ([]domain.RankedResult, bool, float64, error) {
	started := s.now()
	defer func() { s.recordStage(stageFeedbackApplication, started, &perf.FeedbackApplicationTime) }()

	if userID == "" || s.learner == nil {
		return ranked, false, 0, nil
	}

	pattern, err := s.learner.Pattern(ctx, userID)
	if err != nil {
		return nil, false, 0, err
	}
	if pattern.SampleSize < feedback.MinPatternEvents {
		return ranked, false, 0, nil
	}

	metrics, err := s.learner.Metrics(ctx, userID)
	if err != nil {
		return nil, false, 0, err
	}

	if s.metrics != nil {
		s.metrics.FeedbackRankingApplied.Inc()
	}
	return s.learner.ApplyRanking(ranked, pattern), true, metrics.AverageRating, nil
}

func (s *Service) recordStage(stage string, started time.Time, out *float64) {
	elapsed := s.now().Sub(started).Seconds()
	*out = elapsed
	if s.metrics != nil {
		s.metrics.RecordStage(stage, elapsed)
	}
}

// NextBatch returns the next progressive batch for a session created by a
// previous Execute call.
func (s *Service) NextBatch(sessionID string) (*optimizer.LoadBatch, error) {
	return s.optimizer.Loader.NextBatch(sessionID)
}

// EndSession discards a progressive loading session.
func (s *Service) EndSession(sessionID string) {
	s.optimizer.Loader.EndSession(sessionID)
}

// CacheSearchResults stores a ranked result set under the query it answers.
// It is used by both the pipeline and the search preload background task.
func (s *Service) CacheSearchResults(queryString string, filters scholar.SearchFilters, results []domain.RankedResult) {
	s.optimizer.SearchCache.Put(searchKey(queryString, filters), results)
}

func searchKey(queryString string, filters scholar.SearchFilters) string {
	return optimizer.SearchKey(queryString, filters.Key())
}

func contentsKey(refs []SourceRef) string {
	parts := make([]string, 0, len(refs))
	for _, ref := range refs {
		parts = append(parts, ref.Source+":"+ref.ID)
	}
	return optimizer.ContentKey(parts)
}

func errorType(err error) string {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limit"
	case errors.Is(err, domain.ErrInvalidInput):
		return "validation"
	default:
		return "external"
	}
}
