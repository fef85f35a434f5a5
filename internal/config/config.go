// Package config provides configuration management for the scholar discovery service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SSL mode constants for database connections.
const (
	// SSLModeDisable disables SSL (use only for local development).
	SSLModeDisable = "disable"
	// SSLModeRequire requires SSL but does not verify certificates.
	SSLModeRequire = "require"
	// SSLModeVerifyCA verifies the server certificate against a CA.
	SSLModeVerifyCA = "verify-ca"
	// SSLModeVerifyFull verifies the server certificate and hostname.
	SSLModeVerifyFull = "verify-full"
)

// Config holds all configuration for the scholar discovery service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Database contains PostgreSQL connection settings for the feedback store.
	Database DatabaseConfig `mapstructure:"database"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Scholar contains external scholarly index client settings.
	Scholar ScholarConfig `mapstructure:"scholar"`
	// Query contains query generation settings.
	Query QueryConfig `mapstructure:"query"`
	// Optimizer contains cache, worker, and progressive loading settings.
	Optimizer OptimizerConfig `mapstructure:"optimizer"`
	// Kafka contains feedback event publisher settings.
	Kafka KafkaConfig `mapstructure:"kafka"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// IdleTimeout is the maximum duration to keep idle connections open.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password (loaded from SCHOLAR_DATABASE_PASSWORD).
	Password string `mapstructure:"-"`
	// Name is the database name.
	Name string `mapstructure:"name"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	// Default is "require" for production security. Use "disable" only for local development.
	SSLMode string `mapstructure:"ssl_mode"`
	// MaxConns is the maximum number of connections in the pool (default: 25).
	MaxConns int32 `mapstructure:"max_conns"`
	// MinConns is the minimum number of connections to keep open (default: 5).
	MinConns int32 `mapstructure:"min_conns"`
	// MaxConnLifetime is the maximum lifetime of a connection before it's closed.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime is the maximum time a connection can be idle before it's closed.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MigrationPath is the path to migration files (relative or absolute).
	MigrationPath string `mapstructure:"migration_path"`
	// MigrationAutoRun enables automatic migration on startup (default: false).
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
}

// ScholarConfig holds external scholarly index client configuration.
type ScholarConfig struct {
	// BaseURL is the base URL of the external scholarly index.
	BaseURL string `mapstructure:"base_url"`
	// APIKey is an optional API key (loaded from SCHOLAR_SCHOLAR_API_KEY).
	APIKey string `mapstructure:"-"`
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `mapstructure:"timeout"`
	// RequestsPerMinute caps requests in any sliding one-minute window.
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	// RequestsPerHour caps requests in any sliding one-hour window.
	RequestsPerHour int `mapstructure:"requests_per_hour"`
	// RateLimit is the sustained request pacing in requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// BurstSize is the maximum burst of paced requests allowed.
	BurstSize int `mapstructure:"burst_size"`
	// MaxRetries is the maximum number of retry attempts per search.
	MaxRetries int `mapstructure:"max_retries"`
	// RetryDelay is the base delay between retries.
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	// MaxResults is the default maximum number of results per search.
	MaxResults int `mapstructure:"max_results"`
}

// QueryConfig holds query generation configuration.
type QueryConfig struct {
	// MaxKeywords is the maximum number of keywords included in a query.
	MaxKeywords int `mapstructure:"max_keywords"`
	// MaxTopics is the maximum number of topics included in a query.
	MaxTopics int `mapstructure:"max_topics"`
	// OptimizeForAcademic enables academic vocabulary boosting by default.
	OptimizeForAcademic bool `mapstructure:"optimize_for_academic"`
}

// CacheConfig holds settings for one optimizer cache.
type CacheConfig struct {
	// TTL is the maximum age of a valid entry.
	TTL time.Duration `mapstructure:"ttl"`
	// MaxEntries is the maximum number of entries before LRU eviction.
	MaxEntries int `mapstructure:"max_entries"`
	// MaxAccessCount is the number of reads after which an entry expires.
	MaxAccessCount int `mapstructure:"max_access_count"`
}

// OptimizerConfig holds cache, background worker, and progressive loading settings.
type OptimizerConfig struct {
	// SearchCache configures the search result cache.
	SearchCache CacheConfig `mapstructure:"search_cache"`
	// ContentCache configures the content extraction cache.
	ContentCache CacheConfig `mapstructure:"content_cache"`
	// QueryCache configures the query generation cache.
	QueryCache CacheConfig `mapstructure:"query_cache"`
	// SweepInterval is the period of the cache sweep that evicts expired entries.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	// WorkerInterval is the period of the background task worker tick.
	WorkerInterval time.Duration `mapstructure:"worker_interval"`
	// WorkerBatchSize is the number of tasks dequeued per tick.
	WorkerBatchSize int `mapstructure:"worker_batch_size"`
	// WorkerPoolSize is the size of the task execution pool.
	WorkerPoolSize int `mapstructure:"worker_pool_size"`
	// TaskMaxRetries is the maximum number of retries per background task.
	TaskMaxRetries int `mapstructure:"task_max_retries"`
	// DefaultBatchSize is the progressive loading batch size.
	DefaultBatchSize int `mapstructure:"default_batch_size"`
}

// KafkaConfig holds feedback event publisher configuration.
type KafkaConfig struct {
	// Enabled enables publishing feedback events to Kafka.
	Enabled bool `mapstructure:"enabled"`
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`
	// Topic is the topic feedback events are published to.
	Topic string `mapstructure:"topic"`
	// WriteTimeout is the maximum time to wait for a publish.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Load reads configuration from environment variables and an optional YAML
// config file, applies defaults, loads secrets from the environment, and
// validates the result.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("SCHOLAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/scholar-discovery")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Secrets load exclusively from environment variables; the corresponding
	// fields use mapstructure:"-" to keep them out of config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	cfg.Database.Password = os.Getenv("SCHOLAR_DATABASE_PASSWORD")
	cfg.Scholar.APIKey = os.Getenv("SCHOLAR_SCHOLAR_API_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "scholar")
	v.SetDefault("database.name", "scholar_discovery")
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.max_conn_lifetime", time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)
	v.SetDefault("database.connect_timeout", 10*time.Second)
	v.SetDefault("database.migration_path", "migrations")
	v.SetDefault("database.migration_auto_run", false)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Scholar index client
	v.SetDefault("scholar.base_url", "https://scholar.example.org")
	v.SetDefault("scholar.timeout", 30*time.Second)
	v.SetDefault("scholar.requests_per_minute", 20)
	v.SetDefault("scholar.requests_per_hour", 200)
	v.SetDefault("scholar.rate_limit", 2.0)
	v.SetDefault("scholar.burst_size", 4)
	v.SetDefault("scholar.max_retries", 3)
	v.SetDefault("scholar.retry_delay", time.Second)
	v.SetDefault("scholar.max_results", 20)

	// Query generation
	v.SetDefault("query.max_keywords", 5)
	v.SetDefault("query.max_topics", 3)
	v.SetDefault("query.optimize_for_academic", true)

	// Optimizer caches
	v.SetDefault("optimizer.search_cache.ttl", time.Hour)
	v.SetDefault("optimizer.search_cache.max_entries", 200)
	v.SetDefault("optimizer.search_cache.max_access_count", 10)
	v.SetDefault("optimizer.content_cache.ttl", 4*time.Hour)
	v.SetDefault("optimizer.content_cache.max_entries", 500)
	v.SetDefault("optimizer.content_cache.max_access_count", 20)
	v.SetDefault("optimizer.query_cache.ttl", 2*time.Hour)
	v.SetDefault("optimizer.query_cache.max_entries", 300)
	v.SetDefault("optimizer.query_cache.max_access_count", 15)
	v.SetDefault("optimizer.sweep_interval", 5*time.Minute)
	v.SetDefault("optimizer.worker_interval", time.Second)
	v.SetDefault("optimizer.worker_batch_size", 3)
	v.SetDefault("optimizer.worker_pool_size", 4)
	v.SetDefault("optimizer.task_max_retries", 3)
	v.SetDefault("optimizer.default_batch_size", 10)

	// Kafka
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "scholar.feedback.events")
	v.SetDefault("kafka.write_timeout", 10*time.Second)
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port must be between 1 and 65535, got %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort == c.Server.HTTPPort {
		return fmt.Errorf("server.metrics_port must differ from server.http_port")
	}

	switch c.Database.SSLMode {
	case SSLModeDisable, SSLModeRequire, SSLModeVerifyCA, SSLModeVerifyFull:
	default:
		return fmt.Errorf("database.ssl_mode must be one of disable, require, verify-ca, verify-full; got %q", c.Database.SSLMode)
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("database.max_conns (%d) must be >= database.min_conns (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	if c.Scholar.BaseURL == "" {
		return fmt.Errorf("scholar.base_url is required")
	}
	if c.Scholar.RequestsPerMinute <= 0 {
		return fmt.Errorf("scholar.requests_per_minute must be positive, got %d", c.Scholar.RequestsPerMinute)
	}
	if c.Scholar.RequestsPerHour < c.Scholar.RequestsPerMinute {
		return fmt.Errorf("scholar.requests_per_hour (%d) must be >= scholar.requests_per_minute (%d)",
			c.Scholar.RequestsPerHour, c.Scholar.RequestsPerMinute)
	}
	if c.Scholar.MaxRetries < 0 {
		return fmt.Errorf("scholar.max_retries must not be negative, got %d", c.Scholar.MaxRetries)
	}

	if c.Query.MaxKeywords <= 0 {
		return fmt.Errorf("query.max_keywords must be positive, got %d", c.Query.MaxKeywords)
	}

	for name, cc := range map[string]CacheConfig{
		"search_cache":  c.Optimizer.SearchCache,
		"content_cache": c.Optimizer.ContentCache,
		"query_cache":   c.Optimizer.QueryCache,
	} {
		if cc.TTL <= 0 {
			return fmt.Errorf("optimizer.%s.ttl must be positive", name)
		}
		if cc.MaxEntries <= 0 {
			return fmt.Errorf("optimizer.%s.max_entries must be positive", name)
		}
		if cc.MaxAccessCount <= 0 {
			return fmt.Errorf("optimizer.%s.max_access_count must be positive", name)
		}
	}

	if c.Optimizer.WorkerBatchSize <= 0 {
		return fmt.Errorf("optimizer.worker_batch_size must be positive, got %d", c.Optimizer.WorkerBatchSize)
	}
	if c.Optimizer.DefaultBatchSize <= 0 {
		return fmt.Errorf("optimizer.default_batch_size must be positive, got %d", c.Optimizer.DefaultBatchSize)
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers is required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic is required when kafka is enabled")
		}
	}

	return nil
}

// HTTPAddress returns the host:port the HTTP API listens on.
func (c ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the host:port the metrics endpoint listens on.
func (c ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// DSN returns the PostgreSQL connection string for the feedback store.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}
