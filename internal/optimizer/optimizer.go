package optimizer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/inkwell-ai/scholar-discovery/internal/config"
	"github.com/inkwell-ai/scholar-discovery/internal/domain"
	"github.com/inkwell-ai/scholar-discovery/internal/observability"
)

// Cache names used in metrics labels and stats.
const (
	searchCacheName  = "search"
	contentCacheName = "content"
	queryCacheName   = "query"
)

// Stats is a point-in-time snapshot of the whole optimizer.
type Stats struct {
	SearchCache  CacheStats `json:"search_cache"`
	ContentCache CacheStats `json:"content_cache"`
	QueryCache   CacheStats `json:"query_cache"`
	QueuedTasks  int        `json:"queued_tasks"`
	LiveSessions int        `json:"live_sessions"`
}

// Optimizer bundles the three caches, the background task queue and worker,
// and the progressive loader behind one lifecycle.
type Optimizer struct {
	SearchCache  *Cache[[]domain.RankedResult]
	ContentCache *Cache[[]domain.ExtractedContent]
	QueryCache   *Cache[[]domain.SearchQuery]

	Queue  *TaskQueue
	Loader *ProgressiveLoader

	worker        *Worker
	sweepInterval time.Duration
	logger        zerolog.Logger

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates an optimizer from configuration. The execute function runs
// dequeued background tasks; pass nil to disable the worker.
func New(cfg config.OptimizerConfig, execute ExecuteFunc, metrics *observability.Metrics, logger zerolog.Logger) (*Optimizer, error) {
	searchCache, err := NewCache(searchCacheName, cfg.SearchCache, CloneRankedResults, metrics)
	if err != nil {
		return nil, fmt.Errorf("creating search cache: %w", err)
	}
	contentCache, err := NewCache(contentCacheName, cfg.ContentCache, CloneContents, metrics)
	if err != nil {
		return nil, fmt.Errorf("creating content cache: %w", err)
	}
	queryCache, err := NewCache(queryCacheName, cfg.QueryCache, CloneQueries, metrics)
	if err != nil {
		return nil, fmt.Errorf("creating query cache: %w", err)
	}

	queue := NewTaskQueue(metrics)

	o := &Optimizer{
		SearchCache:   searchCache,
		ContentCache:  contentCache,
		QueryCache:    queryCache,
		Queue:         queue,
		Loader:        NewProgressiveLoader(cfg.DefaultBatchSize, logger),
		sweepInterval: cfg.SweepInterval,
		logger:        logger.With().Str("component", "optimizer").Logger(),
		stop:          make(chan struct{}),
	}

	if execute != nil {
		worker, err := NewWorker(cfg, queue, execute, metrics, logger)
		if err != nil {
			return nil, fmt.Errorf("creating task worker: %w", err)
		}
		o.worker = worker
	}

	return o, nil
}

// Start launches the background worker and the periodic cache sweep.
func (o *Optimizer) Start(ctx context.Context) {
	if o.worker != nil {
		o.worker.Start(ctx)
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()

		ticker := time.NewTicker(o.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-o.stop:
				return
			case <-ticker.C:
				removed := o.SearchCache.Sweep() + o.ContentCache.Sweep() + o.QueryCache.Sweep()
				if removed > 0 {
					o.logger.Debug().Int("removed", removed).Msg("cache sweep evicted entries")
				}
			}
		}
	}()
}

// Stop halts the sweep and drains the worker.
func (o *Optimizer) Stop() {
	o.stopOnce.Do(func() { close(o.stop) })
	o.wg.Wait()
	if o.worker != nil {
		o.worker.Stop()
	}
}

// Stats returns a snapshot across all optimizer components.
func (o *Optimizer) Stats() Stats {
	return Stats{
		SearchCache:  o.SearchCache.Stats(),
		ContentCache: o.ContentCache.Stats(),
		QueryCache:   o.QueryCache.Stats(),
		QueuedTasks:  o.Queue.Len(),
		LiveSessions: o.Loader.SessionCount(),
	}
}

// Reset clears all caches, the task queue, and all loading sessions.
func (o *Optimizer) Reset() {
	o.SearchCache.Purge()
	o.ContentCache.Purge()
	o.QueryCache.Purge()
	o.Queue.Purge()
	o.Loader.Reset()
	o.logger.Info().Msg("optimizer state reset")
}

// SearchKey builds the search cache key for a query string and the canonical
// filter key produced by scholar.SearchFilters.Key. Requests that differ in
// year range, sort order, or result limit never share an entry.
func SearchKey(query, filtersKey string) string {
	return domain.ComputeContentHash("search", strings.ToLower(strings.TrimSpace(query)), filtersKey)
}

// ContentKey builds the content cache key for an ordered list of
// "source:id" references.
func ContentKey(refs []string) string {
	return domain.ComputeContentHash(append([]string{"contents"}, refs...)...)
}

// QueryKey builds the query cache key for a set of content sources and the
// canonical generation-options key produced by query.Options.Key. The source
// part is order-independent: the same sources under the same options always
// hit the same entry, while differing options never share one.
func QueryKey(contents []domain.ExtractedContent, optionsKey string) string {
	parts := make([]string, 0, len(contents)+2)
	parts = append(parts, "query", "opts:"+optionsKey)
	ids := make([]string, 0, len(contents))
	for i := range contents {
		ids = append(ids, string(contents[i].SourceType)+":"+contents[i].SourceID+":"+strings.Join(contents[i].Terms(), ","))
	}
	sort.Strings(ids)
	return domain.ComputeContentHash(append(parts, ids...)...)
}
