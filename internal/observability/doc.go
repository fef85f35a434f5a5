// Package observability provides logging and metrics support for the
// scholar discovery service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for the pipeline, searches, caches, tasks, and feedback
//   - Context helpers for propagating request/session/user identifiers
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("session_id", sessionID).Msg("search started")
//
// Add search context to a logger:
//
//	logger = observability.WithSearchContext(logger, sessionID, query)
//
// # Metrics
//
// Initialize and record metrics:
//
//	metrics := observability.NewMetrics("scholar_discovery")
//	metrics.SearchesStarted.Inc()
//	metrics.CacheHits.WithLabelValues("search").Inc()
//
// # Standard Fields
//
// Common fields used across the service:
//
//   - request_id: HTTP request identifier
//   - session_id: Search/progressive-loading session identifier
//   - user_id: User identifier for feedback learning
//   - query: Generated search query string
//   - stage: Pipeline stage name
//   - task_id, task_type: Background task identifiers
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
