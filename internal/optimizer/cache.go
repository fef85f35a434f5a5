// Package optimizer provides the performance layer of the discovery
// pipeline: content-hash keyed caches, a prioritized background task queue
// with a pooled worker, and progressive result loading sessions.
package optimizer

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/inkwell-ai/scholar-discovery/internal/config"
	"github.com/inkwell-ai/scholar-discovery/internal/observability"
)

// Eviction reasons reported to metrics.
const (
	evictExpired   = "expired"
	evictExhausted = "exhausted"
	evictLRU       = "lru"
)

// CacheStats is a point-in-time snapshot of one cache's counters.
type CacheStats struct {
	Entries   int   `json:"entries"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// HitRate returns hits / (hits + misses), or 0 with no traffic.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type cacheEntry[T any] struct {
	value       T
	storedAt    time.Time
	accessCount int
}

// Cache is a bounded cache whose entries expire by age and by read count.
// Values are cloned on both store and load so callers can never mutate a
// cached value in place.
type Cache[T any] struct {
	mu        sync.Mutex
	entries   *lru.Cache[string, *cacheEntry[T]]
	ttl       time.Duration
	maxAccess int
	clone     func(T) T

	name    string
	metrics *observability.Metrics
	stats   CacheStats

	now func() time.Time
}

// NewCache creates a cache with the given limits. The clone function must
// produce an independent copy of a value.
func NewCache[T any](name string, cfg config.CacheConfig, clone func(T) T, metrics *observability.Metrics) (*Cache[T], error) {
	entries, err := lru.New[string, *cacheEntry[T]](cfg.MaxEntries)
	if err != nil {
		return nil, err
	}
	return &Cache[T]{
		entries:   entries,
		ttl:       cfg.TTL,
		maxAccess: cfg.MaxAccessCount,
		clone:     clone,
		name:      name,
		metrics:   metrics,
		now:       time.Now,
	}, nil
}

// Get returns a copy of the cached value. Expired or read-exhausted entries
// are evicted on access and reported as a miss.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	entry, ok := c.entries.Get(key)
	if !ok {
		c.miss()
		return zero, false
	}
	if c.now().Sub(entry.storedAt) >= c.ttl {
		c.entries.Remove(key)
		c.evict(evictExpired)
		c.miss()
		return zero, false
	}
	if entry.accessCount >= c.maxAccess {
		c.entries.Remove(key)
		c.evict(evictExhausted)
		c.miss()
		return zero, false
	}

	entry.accessCount++
	c.stats.Hits++
	if c.metrics != nil {
		c.metrics.CacheHits.WithLabelValues(c.name).Inc()
	}
	return c.clone(entry.value), true
}

// Put stores a copy of the value under the key, resetting its age and read
// count. The least recently used entry is evicted when the cache is full.
func (c *Cache[T]) Put(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := c.entries.Add(key, &cacheEntry[T]{
		value:    c.clone(value),
		storedAt: c.now(),
	})
	if evicted {
		c.evict(evictLRU)
	}
}

// Sweep removes entries that have expired by age or by read count. It is
// called periodically so dead entries do not occupy capacity between reads.
func (c *Cache[T]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, key := range c.entries.Keys() {
		entry, ok := c.entries.Peek(key)
		if !ok {
			continue
		}
		switch {
		case c.now().Sub(entry.storedAt) >= c.ttl:
			c.entries.Remove(key)
			c.evict(evictExpired)
			removed++
		case entry.accessCount >= c.maxAccess:
			c.entries.Remove(key)
			c.evict(evictExhausted)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries currently held, valid or not.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[T]) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := c.stats
	stats.Entries = c.entries.Len()
	return stats
}

// Purge drops all entries and resets the counters.
func (c *Cache[T]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
	c.stats = CacheStats{}
}

func (c *Cache[T]) miss() {
	c.stats.Misses++
	if c.metrics != nil {
		c.metrics.CacheMisses.WithLabelValues(c.name).Inc()
	}
}

func (c *Cache[T]) evict(reason string) {
	c.stats.Evictions++
	if c.metrics != nil {
		c.metrics.CacheEvictions.WithLabelValues(c.name, reason).Inc()
	}
}
