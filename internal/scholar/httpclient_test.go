package scholar

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastHTTPClient(maxRetries int) *HTTPClient {
	return NewHTTPClient(HTTPClientConfig{
		RateLimit:  1000,
		BurstSize:  10,
		MaxRetries: maxRetries,
		RetryDelay: time.Millisecond,
	})
}

func TestHTTPClient_Do(t *testing.T) {
	t.Run("retries server errors until success", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if hits.Add(1) < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		resp, err := fastHTTPClient(3).Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, int32(3), hits.Load())
	})

	t.Run("retries 429 responses", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if hits.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		resp, err := fastHTTPClient(3).Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, int32(2), hits.Load())
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		resp, err := fastHTTPClient(3).Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("gives up after exhausting retries", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		_, err = fastHTTPClient(2).Do(req)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 503")
		assert.Equal(t, int32(3), hits.Load(), "initial attempt plus two retries")
	})

	t.Run("sets default and API key headers", func(t *testing.T) {
		var userAgent, apiKey string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userAgent = r.Header.Get("User-Agent")
			apiKey = r.Header.Get("X-API-Key")
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewHTTPClient(HTTPClientConfig{
			RateLimit:    1000,
			BurstSize:    10,
			APIKey:       "secret",
			APIKeyHeader: "X-API-Key",
		})
		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, "Inkwell-ScholarDiscovery/1.0", userAgent)
		assert.Equal(t, "secret", apiKey)
	})

	t.Run("paces request starts", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewHTTPClient(HTTPClientConfig{RateLimit: 100, BurstSize: 1})
		start := time.Now()
		for i := 0; i < 3; i++ {
			req, err := http.NewRequest(http.MethodGet, server.URL, nil)
			require.NoError(t, err)
			resp, err := client.Do(req)
			require.NoError(t, err)
			resp.Body.Close()
		}

		// Burst of one: the second and third requests each wait ~10ms.
		assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
	})
}

func TestRetryAfter(t *testing.T) {
	fallback := 250 * time.Millisecond

	assert.Equal(t, fallback, retryAfter("", fallback))
	assert.Equal(t, 3*time.Second, retryAfter("3", fallback))
	assert.Equal(t, fallback, retryAfter("0", fallback))
	assert.Equal(t, fallback, retryAfter("not-a-delay", fallback))

	// The HTTP date format drops sub-second precision.
	future := time.Now().Add(3 * time.Second).UTC().Format(http.TimeFormat)
	d := retryAfter(future, fallback)
	assert.Greater(t, d, time.Second)
	assert.LessOrEqual(t, d, 3*time.Second)
}
