package scholar

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/inkwell-ai/scholar-discovery/internal/domain"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRequestsPerMinute is the default sliding-window quota per minute.
	DefaultRequestsPerMinute = 20

	// DefaultRequestsPerHour is the default sliding-window quota per hour.
	DefaultRequestsPerHour = 200

	// DefaultMaxResults is the default maximum number of results per search.
	DefaultMaxResults = 20

	// apiKeyHeader is the header name for the index API key.
	apiKeyHeader = "X-API-Key"

	// sourceName identifies the index in errors and logs.
	sourceName = "scholar index"
)

// Config contains configuration options for the index client.
type Config struct {
	// BaseURL is the base URL for the index.
	BaseURL string

	// APIKey is the optional API key for authenticated requests.
	APIKey string

	// Timeout is the HTTP request timeout.
	// Defaults to DefaultTimeout if zero.
	Timeout time.Duration

	// RequestsPerMinute caps requests in any sliding one-minute window.
	// Defaults to DefaultRequestsPerMinute if zero.
	RequestsPerMinute int

	// RequestsPerHour caps requests in any sliding one-hour window.
	// Defaults to DefaultRequestsPerHour if zero.
	RequestsPerHour int

	// RateLimit is the sustained request pacing in requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of paced requests allowed.
	BurstSize int

	// MaxRetries is the maximum number of retry attempts per request.
	MaxRetries int

	// RetryDelay is the base delay between retries.
	RetryDelay time.Duration

	// MaxResults is the default maximum number of results per search.
	// Defaults to DefaultMaxResults if zero.
	MaxResults int
}

// Client executes query strings against the external scholarly index and
// parses the returned markup into structured results. It enforces a
// sliding-window quota (fail fast, no queuing) on top of the HTTP client's
// request pacing and retries. Safe for concurrent use.
type Client struct {
	httpClient *HTTPClient
	windows    *WindowLimiter
	config     Config
	logger     zerolog.Logger
}

// SearchClient is the interface consumed by the pipeline; *Client implements it.
type SearchClient interface {
	Search(ctx context.Context, query string, filters SearchFilters) ([]domain.ScholarResult, error)
	RemainingQuota() Quota
}

// Compile-time check that Client implements SearchClient.
var _ SearchClient = (*Client)(nil)

// NewClient creates a new index client with the given configuration.
// If httpClient is nil, a new one will be created with the configuration settings.
func NewClient(cfg Config, httpClient *HTTPClient, logger zerolog.Logger) *Client {
	// Apply defaults
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerMinute == 0 {
		cfg.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if cfg.RequestsPerHour == 0 {
		cfg.RequestsPerHour = DefaultRequestsPerHour
	}
	if cfg.MaxResults == 0 {
		cfg.MaxResults = DefaultMaxResults
	}

	if httpClient == nil {
		httpClient = NewHTTPClient(HTTPClientConfig{
			Timeout:      cfg.Timeout,
			RateLimit:    cfg.RateLimit,
			BurstSize:    cfg.BurstSize,
			MaxRetries:   cfg.MaxRetries,
			RetryDelay:   cfg.RetryDelay,
			APIKey:       cfg.APIKey,
			APIKeyHeader: apiKeyHeader,
		})
	}

	return &Client{
		httpClient: httpClient,
		windows:    NewWindowLimiter(cfg.RequestsPerMinute, cfg.RequestsPerHour),
		config:     cfg,
		logger:     logger.With().Str("component", "scholar-client").Logger(),
	}
}

// Search executes the query against the index and returns parsed results.
// Once either sliding window is exhausted it fails fast with a rate-limit
// error; transient HTTP failures are retried by the underlying client up to
// the configured limit before the error is surfaced.
func (c *Client) Search(ctx context.Context, query string, filters SearchFilters) ([]domain.ScholarResult, error) {
	if query == "" {
		return nil, domain.NewValidationError("query", "query must not be empty")
	}

	if !c.windows.Allow() {
		retryAfter := c.windows.RetryAfter()
		c.logger.Warn().
			Dur("retry_after", retryAfter).
			Msg("search rejected by sliding-window rate limiter")
		return nil, domain.NewRateLimitError(sourceName, retryAfter)
	}

	searchURL, err := c.buildSearchURL(query, filters)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, "unexpected status", nil)
	}

	results, err := ParseResults(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing results: %w", err)
	}

	c.logger.Debug().
		Str("query", query).
		Int("results", len(results)).
		Dur("duration", time.Since(start)).
		Msg("search completed")

	return results, nil
}

// RemainingQuota reports the remaining request quota in both sliding windows.
func (c *Client) RemainingQuota() Quota {
	minute, hour := c.windows.Remaining()
	return Quota{RemainingMinute: minute, RemainingHour: hour}
}

// buildSearchURL constructs the search URL with query parameters.
func (c *Client) buildSearchURL(query string, filters SearchFilters) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	searchURL := baseURL.JoinPath("scholar")

	q := searchURL.Query()
	q.Set("q", query)

	limit := filters.MaxResults
	if limit <= 0 || limit > c.config.MaxResults {
		limit = c.config.MaxResults
	}
	q.Set("num", strconv.Itoa(limit))

	if filters.YearFrom > 0 {
		q.Set("as_ylo", strconv.Itoa(filters.YearFrom))
	}
	if filters.YearTo > 0 {
		q.Set("as_yhi", strconv.Itoa(filters.YearTo))
	}
	if filters.SortBy == SortByDate {
		q.Set("scisbd", "1")
	}

	searchURL.RawQuery = q.Encode()
	return searchURL.String(), nil
}
