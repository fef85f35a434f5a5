package scholar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// HTTPClientConfig configures request pacing and retries for index calls.
type HTTPClientConfig struct {
	// Timeout bounds one HTTP round trip.
	Timeout time.Duration

	// RateLimit is the sustained request rate per second; BurstSize is how
	// many requests may start without waiting.
	RateLimit float64
	BurstSize int

	// MaxRetries is the number of re-sends after the initial attempt.
	MaxRetries int

	// RetryDelay is the wait before a retry when the response carries no
	// Retry-After header.
	RetryDelay time.Duration

	// UserAgent is sent when the request does not set its own.
	UserAgent string

	// APIKey, when set together with APIKeyHeader, is attached to every
	// request.
	APIKey       string
	APIKeyHeader string
}

// HTTPClient issues paced, retrying requests against the index. A token
// bucket spaces request starts; 429 and 5xx responses are retried with the
// Retry-After header honored when present. Safe for concurrent use.
type HTTPClient struct {
	client *http.Client
	pacer  *rate.Limiter
	cfg    HTTPClientConfig
}

// NewHTTPClient creates a paced HTTP client. Zero config fields fall back
// to conservative defaults.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 2
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = 4
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Inkwell-ScholarDiscovery/1.0"
	}

	return &HTTPClient{
		client: &http.Client{Timeout: cfg.Timeout},
		pacer:  rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.BurstSize),
		cfg:    cfg,
	}
}

// Do sends the request, waiting on the pacer before every attempt.
// Retryable failures (network errors, 429, 5xx) are re-sent up to
// MaxRetries times; the request must carry GetBody for its body to survive
// a retry.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if c.cfg.APIKey != "" && c.cfg.APIKeyHeader != "" {
		req.Header.Set(c.cfg.APIKeyHeader, c.cfg.APIKey)
	}

	ctx := req.Context()
	var lastErr error
	var delay time.Duration

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, delay); err != nil {
				return nil, err
			}
			if err := rewindBody(req); err != nil {
				return nil, fmt.Errorf("cannot retry request: %w", err)
			}
		}
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, fmt.Errorf("request pacing: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			delay = c.cfg.RetryDelay
			continue
		}

		if !retryableStatus(resp.StatusCode) {
			return resp, nil
		}

		delay = retryAfter(resp.Header.Get("Retry-After"), c.cfg.RetryDelay)
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastErr = fmt.Errorf("index returned status %d", resp.StatusCode)
	}

	return nil, fmt.Errorf("giving up after %d attempts: %w", c.cfg.MaxRetries+1, lastErr)
}

// retryableStatus reports whether a response with this status is worth
// re-sending.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code < 600)
}

// retryAfter converts a Retry-After header value, given either in seconds
// or as an HTTP date, into a wait duration. Absent or unusable values fall
// back to the given delay.
func retryAfter(header string, fallback time.Duration) time.Duration {
	if header == "" {
		return fallback
	}
	if seconds, err := strconv.ParseInt(header, 10, 64); err == nil {
		if seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		return fallback
	}
	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return fallback
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// rewindBody restores the request body before a retry. Requests without a
// body, or without GetBody, pass through unchanged.
func rewindBody(req *http.Request) error {
	if req.Body == nil || req.GetBody == nil {
		return nil
	}
	body, err := req.GetBody()
	if err != nil {
		return err
	}
	req.Body = body
	return nil
}
