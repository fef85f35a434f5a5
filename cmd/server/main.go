// Package main provides the entry point for the scholar discovery server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/inkwell-ai/scholar-discovery/internal/config"
	"github.com/inkwell-ai/scholar-discovery/internal/database"
	"github.com/inkwell-ai/scholar-discovery/internal/dedup"
	"github.com/inkwell-ai/scholar-discovery/internal/feedback"
	"github.com/inkwell-ai/scholar-discovery/internal/observability"
	"github.com/inkwell-ai/scholar-discovery/internal/optimizer"
	"github.com/inkwell-ai/scholar-discovery/internal/pipeline"
	"github.com/inkwell-ai/scholar-discovery/internal/query"
	"github.com/inkwell-ai/scholar-discovery/internal/ranking"
	"github.com/inkwell-ai/scholar-discovery/internal/scholar"
	httpserver "github.com/inkwell-ai/scholar-discovery/internal/server/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("scholar-discovery server starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL.
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	// Run migrations if configured.
	if cfg.Database.MigrationAutoRun {
		migrator, err := database.NewMigrator(db, cfg.Database.MigrationPath, logger)
		if err != nil {
			return fmt.Errorf("create migrator: %w", err)
		}
		defer func() {
			if closeErr := migrator.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close migrator")
			}
		}()

		if err := migrator.Up(); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	// Prometheus metrics registry.
	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics("scholar")
	}

	// External index client.
	searchClient := scholar.NewClient(scholar.Config{
		BaseURL:           cfg.Scholar.BaseURL,
		APIKey:            cfg.Scholar.APIKey,
		Timeout:           cfg.Scholar.Timeout,
		RequestsPerMinute: cfg.Scholar.RequestsPerMinute,
		RequestsPerHour:   cfg.Scholar.RequestsPerHour,
		RateLimit:         cfg.Scholar.RateLimit,
		BurstSize:         cfg.Scholar.BurstSize,
		MaxRetries:        cfg.Scholar.MaxRetries,
		RetryDelay:        cfg.Scholar.RetryDelay,
		MaxResults:        cfg.Scholar.MaxResults,
	}, nil, logger)

	// Request-processing collaborators.
	generator := query.NewGenerator(query.Options{
		MaxKeywords:         cfg.Query.MaxKeywords,
		MaxTopics:           cfg.Query.MaxTopics,
		OptimizeForAcademic: cfg.Query.OptimizeForAcademic,
	}, logger)
	scorer := ranking.NewScorer(ranking.DefaultWeights, logger)
	detector := dedup.NewDetector(dedup.Config{}, logger)

	// Feedback store, publisher, and learner.
	feedbackStore := feedback.NewPgStore(db.Pool())
	publisher := feedback.NewPublisher(cfg.Kafka, logger)
	defer func() {
		if closeErr := publisher.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close feedback publisher")
		}
	}()
	feedbackSvc := feedback.NewService(feedbackStore, publisher, metrics, logger)
	learner := feedback.NewLearner(feedbackStore, logger)

	// Content provider for source-based searches.
	contentProvider := pipeline.NewMemoryProvider()

	// The optimizer's background worker executes pipeline tasks, and the
	// pipeline service uses the optimizer's caches. The execute closure
	// resolves the cycle: it is only invoked after svc is assigned.
	var svc *pipeline.Service
	opt, err := optimizer.New(cfg.Optimizer, func(taskCtx context.Context, task *optimizer.BackgroundTask) error {
		return svc.ExecuteTask(taskCtx, task)
	}, metrics, logger)
	if err != nil {
		return fmt.Errorf("create optimizer: %w", err)
	}

	svc = pipeline.NewService(
		contentProvider,
		searchClient,
		generator,
		scorer,
		detector,
		learner,
		opt,
		metrics,
		logger,
	)

	opt.Start(ctx)
	defer opt.Stop()

	// HTTP REST API server.
	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}

	httpSrv := httpserver.NewServer(
		httpCfg,
		svc,
		feedbackSvc,
		learner,
		contentProvider,
		db,
		logger,
	)

	// Set up Prometheus metrics handler on a separate port if configured.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
	}

	// Channel to collect server errors.
	errCh := make(chan error, 2)

	// Start HTTP REST API server in background.
	go func() {
		logger.Info().
			Str("address", httpCfg.Address).
			Msg("HTTP REST API server starting")
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Start metrics server if configured.
	if metricsServer != nil {
		go func() {
			logger.Info().
				Str("address", metricsServer.Addr).
				Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().Str("http_address", httpCfg.Address)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("scholar-discovery is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown.
	logger.Info().Msg("shutting down scholar-discovery")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Shut down HTTP REST API server with timeout.
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// Shut down metrics server if running.
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("scholar-discovery shutdown complete")
	return nil
}
