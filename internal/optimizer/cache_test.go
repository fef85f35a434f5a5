package optimizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-ai/scholar-discovery/internal/config"
	"github.com/inkwell-ai/scholar-discovery/internal/domain"
)

func newTestCache(t *testing.T, cfg config.CacheConfig) (*Cache[[]domain.RankedResult], *time.Time) {
	t.Helper()
	cache, err := NewCache("search", cfg, CloneRankedResults, nil)
	require.NoError(t, err)

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	return cache, &now
}

func rankedSet(titles ...string) []domain.RankedResult {
	results := make([]domain.RankedResult, len(titles))
	for i, title := range titles {
		results[i] = domain.RankedResult{
			Result: domain.ScholarResult{
				Title:    title,
				Authors:  []string{"A. Author"},
				Keywords: []string{"ml"},
			},
			OverallScore: 0.5,
			Rank:         i + 1,
		}
	}
	return results
}

func TestCachePutGet(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		cache, _ := newTestCache(t, config.CacheConfig{TTL: time.Hour, MaxEntries: 10, MaxAccessCount: 5})

		cache.Put("k", rankedSet("Paper A", "Paper B"))

		got, ok := cache.Get("k")
		require.True(t, ok)
		require.Len(t, got, 2)
		assert.Equal(t, "Paper A", got[0].Result.Title)
	})

	t.Run("reads are isolated copies", func(t *testing.T) {
		cache, _ := newTestCache(t, config.CacheConfig{TTL: time.Hour, MaxEntries: 10, MaxAccessCount: 5})

		original := rankedSet("Paper A")
		cache.Put("k", original)

		// Mutating the stored-from value and a returned value must not leak
		// into later reads.
		original[0].Result.Title = "Mutated Source"
		first, ok := cache.Get("k")
		require.True(t, ok)
		first[0].Result.Title = "Mutated Copy"
		first[0].Result.Authors[0] = "Mutated Author"

		second, ok := cache.Get("k")
		require.True(t, ok)
		assert.Equal(t, "Paper A", second[0].Result.Title)
		assert.Equal(t, "A. Author", second[0].Result.Authors[0])
	})

	t.Run("miss on unknown key", func(t *testing.T) {
		cache, _ := newTestCache(t, config.CacheConfig{TTL: time.Hour, MaxEntries: 10, MaxAccessCount: 5})
		_, ok := cache.Get("absent")
		assert.False(t, ok)
		assert.Equal(t, int64(1), cache.Stats().Misses)
	})
}

func TestCacheExpiry(t *testing.T) {
	t.Run("entries expire by age", func(t *testing.T) {
		cache, now := newTestCache(t, config.CacheConfig{TTL: time.Hour, MaxEntries: 10, MaxAccessCount: 100})

		cache.Put("k", rankedSet("Paper A"))
		*now = now.Add(time.Hour)

		_, ok := cache.Get("k")
		assert.False(t, ok)
		assert.Equal(t, int64(1), cache.Stats().Evictions)
		assert.Zero(t, cache.Len())
	})

	t.Run("entries expire by read count", func(t *testing.T) {
		cache, _ := newTestCache(t, config.CacheConfig{TTL: time.Hour, MaxEntries: 10, MaxAccessCount: 3})

		cache.Put("k", rankedSet("Paper A"))
		for i := 0; i < 3; i++ {
			_, ok := cache.Get("k")
			require.True(t, ok, "read %d should hit", i+1)
		}

		_, ok := cache.Get("k")
		assert.False(t, ok)
		assert.Zero(t, cache.Len())
	})

	t.Run("put resets age and read count", func(t *testing.T) {
		cache, now := newTestCache(t, config.CacheConfig{TTL: time.Hour, MaxEntries: 10, MaxAccessCount: 2})

		cache.Put("k", rankedSet("Paper A"))
		cache.Get("k")
		cache.Get("k")
		*now = now.Add(30 * time.Minute)
		cache.Put("k", rankedSet("Paper B"))
		*now = now.Add(45 * time.Minute)

		got, ok := cache.Get("k")
		require.True(t, ok)
		assert.Equal(t, "Paper B", got[0].Result.Title)
	})
}

func TestCacheLRUEviction(t *testing.T) {
	cache, _ := newTestCache(t, config.CacheConfig{TTL: time.Hour, MaxEntries: 2, MaxAccessCount: 10})

	cache.Put("a", rankedSet("Paper A"))
	cache.Put("b", rankedSet("Paper B"))
	cache.Put("c", rankedSet("Paper C"))

	assert.Equal(t, 2, cache.Len())
	_, ok := cache.Get("a")
	assert.False(t, ok, "oldest entry should have been evicted")
	assert.Equal(t, int64(1), cache.Stats().Evictions)
}

func TestCacheSweep(t *testing.T) {
	cache, now := newTestCache(t, config.CacheConfig{TTL: time.Hour, MaxEntries: 10, MaxAccessCount: 10})

	cache.Put("old", rankedSet("Paper A"))
	*now = now.Add(2 * time.Hour)
	cache.Put("fresh", rankedSet("Paper B"))

	removed := cache.Sweep()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, cache.Len())

	_, ok := cache.Get("fresh")
	assert.True(t, ok)
}

func TestCacheStats(t *testing.T) {
	cache, _ := newTestCache(t, config.CacheConfig{TTL: time.Hour, MaxEntries: 10, MaxAccessCount: 10})

	cache.Put("k", rankedSet("Paper A"))
	cache.Get("k")
	cache.Get("k")
	cache.Get("absent")

	stats := cache.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
	assert.InDelta(t, 2.0/3.0, stats.HitRate(), 1e-9)

	cache.Purge()
	stats = cache.Stats()
	assert.Zero(t, stats.Hits)
	assert.Zero(t, stats.Entries)
}

func TestCacheHitRateNoTraffic(t *testing.T) {
	assert.Zero(t, CacheStats{}.HitRate())
}
