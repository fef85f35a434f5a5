package optimizer

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/inkwell-ai/scholar-discovery/internal/domain"
	"github.com/inkwell-ai/scholar-discovery/internal/observability"
)

// TaskType identifies the kind of work a background task performs.
type TaskType string

// Background task types.
const (
	// TaskContentExtraction pre-extracts terms from source material.
	TaskContentExtraction TaskType = "content_extraction"

	// TaskQueryGeneration pre-generates queries from extracted content.
	TaskQueryGeneration TaskType = "query_generation"

	// TaskSearchPreload warms the search cache for an anticipated query.
	TaskSearchPreload TaskType = "search_preload"
)

// TaskPriority orders tasks in the queue. Higher runs first; equal
// priorities run in enqueue order.
type TaskPriority int

// Task priorities.
const (
	PriorityLow TaskPriority = iota
	PriorityMedium
	PriorityHigh
)

// String returns the priority label used in logs and metrics.
func (p TaskPriority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	default:
		return "low"
	}
}

// ExtractionPayload is the input of a content extraction task.
type ExtractionPayload struct {
	SourceType domain.SourceType
	SourceID   string
	Title      string
	Content    string
}

// GenerationPayload is the input of a query generation task.
type GenerationPayload struct {
	Contents []domain.ExtractedContent
}

// PreloadPayload is the input of a search preload task.
type PreloadPayload struct {
	Query      string
	MaxResults int
}

// BackgroundTask is one queued unit of work. Exactly one payload field is
// set, matching Type.
type BackgroundTask struct {
	ID         uuid.UUID
	Type       TaskType
	Priority   TaskPriority
	EnqueuedAt time.Time

	// Attempts counts executions so far, including the first.
	Attempts int

	// NotBefore holds the task in the queue until it passes. A failed task
	// is re-enqueued with NotBefore pushed out by its backoff schedule.
	NotBefore time.Time

	Extraction *ExtractionPayload
	Generation *GenerationPayload
	Preload    *PreloadPayload

	// retry carries the task's backoff state across re-enqueues.
	retry backoff.BackOff
}

// NewExtractionTask creates a content extraction task.
func NewExtractionTask(priority TaskPriority, payload ExtractionPayload) *BackgroundTask {
	return newTask(TaskContentExtraction, priority, &payload, nil, nil)
}

// NewGenerationTask creates a query generation task.
func NewGenerationTask(priority TaskPriority, payload GenerationPayload) *BackgroundTask {
	return newTask(TaskQueryGeneration, priority, nil, &payload, nil)
}

// NewPreloadTask creates a search preload task.
func NewPreloadTask(priority TaskPriority, payload PreloadPayload) *BackgroundTask {
	return newTask(TaskSearchPreload, priority, nil, nil, &payload)
}

func newTask(t TaskType, priority TaskPriority, e *ExtractionPayload, g *GenerationPayload, p *PreloadPayload) *BackgroundTask {
	return &BackgroundTask{
		ID:         uuid.New(),
		Type:       t,
		Priority:   priority,
		EnqueuedAt: time.Now(),
		Extraction: e,
		Generation: g,
		Preload:    p,
	}
}

// TaskQueue is a priority queue of background tasks. Dequeue order is by
// descending priority, then enqueue order.
type TaskQueue struct {
	mu      sync.Mutex
	tasks   []*BackgroundTask
	metrics *observability.Metrics
}

// NewTaskQueue creates an empty task queue.
func NewTaskQueue(metrics *observability.Metrics) *TaskQueue {
	return &TaskQueue{metrics: metrics}
}

// Enqueue inserts the task after the last task of equal or higher priority.
func (q *TaskQueue) Enqueue(task *BackgroundTask) {
	q.mu.Lock()
	defer q.mu.Unlock()

	pos := len(q.tasks)
	for i, queued := range q.tasks {
		if queued.Priority < task.Priority {
			pos = i
			break
		}
	}

	q.tasks = append(q.tasks, nil)
	copy(q.tasks[pos+1:], q.tasks[pos:])
	q.tasks[pos] = task

	if q.metrics != nil {
		q.metrics.TasksEnqueued.WithLabelValues(string(task.Type), task.Priority.String()).Inc()
	}
}

// DequeueBatch removes and returns up to n ready tasks in priority order.
// Tasks whose NotBefore has not passed stay queued without losing their
// position.
func (q *TaskQueue) DequeueBatch(n int) []*BackgroundTask {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n <= 0 || len(q.tasks) == 0 {
		return nil
	}

	now := time.Now()
	var batch []*BackgroundTask
	kept := q.tasks[:0]
	for _, task := range q.tasks {
		if len(batch) < n && !task.NotBefore.After(now) {
			batch = append(batch, task)
			continue
		}
		kept = append(kept, task)
	}
	q.tasks = kept
	return batch
}

// Len returns the number of queued tasks.
func (q *TaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Purge drops all queued tasks.
func (q *TaskQueue) Purge() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = nil
}
