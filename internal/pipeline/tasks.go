package pipeline

import (
	"context"
	"fmt"

	"github.com/inkwell-ai/scholar-discovery/internal/domain"
	"github.com/inkwell-ai/scholar-discovery/internal/optimizer"
	"github.com/inkwell-ai/scholar-discovery/internal/query"
	"github.com/inkwell-ai/scholar-discovery/internal/scholar"
)

// ExecuteTask runs one background task. It is the worker's ExecuteFunc:
// each task type warms the matching cache so a later request can
// short-circuit.
func (s *Service) ExecuteTask(ctx context.Context, task *optimizer.BackgroundTask) error {
	switch task.Type {
	case optimizer.TaskContentExtraction:
		return s.runExtractionTask(ctx, task)
	case optimizer.TaskQueryGeneration:
		return s.runGenerationTask(ctx, task)
	case optimizer.TaskSearchPreload:
		return s.runPreloadTask(ctx, task)
	default:
		return domain.NewValidationError("task_type", fmt.Sprintf("unknown background task type %q", task.Type))
	}
}

func (s *Service) runExtractionTask(ctx context.Context, task *optimizer.BackgroundTask) error {
	payload := task.Extraction
	if payload == nil {
		return domain.NewValidationError("task", "extraction task has no payload")
	}

	refs := []SourceRef{{Source: string(payload.SourceType), ID: payload.SourceID}}
	contents, err := s.contents.Fetch(ctx, refs)
	if err != nil {
		return err
	}
	s.optimizer.ContentCache.Put(contentsKey(refs), contents)
	return nil
}

func (s *Service) runGenerationTask(ctx context.Context, task *optimizer.BackgroundTask) error {
	payload := task.Generation
	if payload == nil {
		return domain.NewValidationError("task", "generation task has no payload")
	}

	// Background generation runs with default options so the warmed entry
	// matches a later request that tunes nothing.
	opts := query.Options{}
	queries, err := s.generator.Generate(ctx, payload.Contents, opts)
	if err != nil {
		return err
	}
	s.optimizer.QueryCache.Put(optimizer.QueryKey(payload.Contents, opts.Key()), queries)
	return nil
}

func (s *Service) runPreloadTask(ctx context.Context, task *optimizer.BackgroundTask) error {
	payload := task.Preload
	if payload == nil {
		return domain.NewValidationError("task", "preload task has no payload")
	}

	filters := scholar.SearchFilters{MaxResults: payload.MaxResults}
	results, err := s.search.Search(ctx, payload.Query, filters)
	if err != nil {
		return err
	}

	ranked := s.scorer.Rank(results, nil, nil)
	deduped := s.detector.Deduplicate(ranked)
	s.CacheSearchResults(payload.Query, filters, deduped)
	return nil
}
