package optimizer

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"

	"github.com/inkwell-ai/scholar-discovery/internal/config"
	"github.com/inkwell-ai/scholar-discovery/internal/observability"
)

// ExecuteFunc performs one background task. A non-nil error re-enqueues the
// task with exponential backoff.
type ExecuteFunc func(ctx context.Context, task *BackgroundTask) error

// Worker drains the task queue on a fixed tick and executes tasks on a
// shared goroutine pool. A failed task goes back on the queue with a delayed
// ready time rather than blocking its pool slot; tasks that exhaust their
// retries are dropped.
type Worker struct {
	queue   *TaskQueue
	pool    *ants.Pool
	execute ExecuteFunc

	interval   time.Duration
	batchSize  int
	maxRetries int

	metrics *observability.Metrics
	logger  zerolog.Logger

	// policy builds the retry schedule for one task.
	policy func() backoff.BackOff

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWorker creates a background task worker sized from the optimizer
// configuration.
func NewWorker(cfg config.OptimizerConfig, queue *TaskQueue, execute ExecuteFunc, metrics *observability.Metrics, logger zerolog.Logger) (*Worker, error) {
	pool, err := ants.NewPool(cfg.WorkerPoolSize)
	if err != nil {
		return nil, err
	}
	w := &Worker{
		queue:      queue,
		pool:       pool,
		execute:    execute,
		interval:   cfg.WorkerInterval,
		batchSize:  cfg.WorkerBatchSize,
		maxRetries: cfg.TaskMaxRetries,
		metrics:    metrics,
		logger:     logger.With().Str("component", "task-worker").Logger(),
		stop:       make(chan struct{}),
	}
	w.policy = func() backoff.BackOff {
		return backoff.NewExponentialBackOff()
	}
	return w, nil
}

// Start launches the tick loop. It returns immediately; call Stop to drain.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stop:
				return
			case <-ticker.C:
				w.tick(ctx)
			}
		}
	}()
}

// Stop halts the tick loop, waits for in-flight tasks, and releases the pool.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	w.wg.Wait()
	w.pool.Release()
}

func (w *Worker) tick(ctx context.Context) {
	for _, task := range w.queue.DequeueBatch(w.batchSize) {
		task := task
		w.wg.Add(1)
		if err := w.pool.Submit(func() {
			defer w.wg.Done()
			w.run(ctx, task)
		}); err != nil {
			w.wg.Done()
			w.logger.Warn().
				Err(err).
				Str("task_id", task.ID.String()).
				Msg("task submission rejected")
		}
	}
}

// run executes the task once. On failure it either re-enqueues the task
// with a delayed ready time or, once the retry budget is spent, drops it.
func (w *Worker) run(ctx context.Context, task *BackgroundTask) {
	task.Attempts++
	err := w.execute(ctx, task)
	if err == nil {
		if w.metrics != nil {
			w.metrics.TasksCompleted.WithLabelValues(string(task.Type)).Inc()
		}
		w.logger.Debug().
			Str("task_id", task.ID.String()).
			Str("task_type", string(task.Type)).
			Int("attempts", task.Attempts).
			Msg("background task completed")
		return
	}

	if task.retry == nil {
		task.retry = w.policy()
	}
	delay := task.retry.NextBackOff()

	// The initial attempt plus maxRetries re-executions.
	if task.Attempts > w.maxRetries || delay == backoff.Stop {
		if w.metrics != nil {
			w.metrics.TasksFailed.WithLabelValues(string(task.Type)).Inc()
		}
		w.logger.Warn().
			Err(err).
			Str("task_id", task.ID.String()).
			Str("task_type", string(task.Type)).
			Int("attempts", task.Attempts).
			Msg("background task dropped after exhausting retries")
		return
	}

	if w.metrics != nil {
		w.metrics.TasksRetried.WithLabelValues(string(task.Type)).Inc()
	}
	task.NotBefore = time.Now().Add(delay)
	w.queue.Enqueue(task)
	w.logger.Debug().
		Err(err).
		Str("task_id", task.ID.String()).
		Str("task_type", string(task.Type)).
		Int("attempts", task.Attempts).
		Dur("delay", delay).
		Msg("background task re-enqueued after failure")
}
