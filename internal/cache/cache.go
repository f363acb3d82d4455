// Package cache provides a small in-process TTL cache used to avoid
// redundant profile and model lookups on the streaming hot path. Caches are
// explicit objects handed to their consumers; every write path through the
// stores invalidates the affected keys.
package cache

import (
	"fmt"
	"sync"
	"time"
)

// entry pairs a cached value with its storage time.
type entry struct {
	value    any
	storedAt time.Time
}

// TTLCache is a thread-safe in-memory cache with per-cache TTL expiration.
type TTLCache struct {
	mu      sync.Mutex
	name    string
	ttl     time.Duration
	entries map[string]entry
	hits    uint64
	misses  uint64

	// now is swappable in tests.
	now func() time.Time
}

// New constructs a named TTLCache.
func New(name string, ttl time.Duration) *TTLCache {
	return &TTLCache{
		name:    name,
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the cached value for key when present and unexpired.
func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if c.now().Sub(ent.storedAt) >= c.ttl {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}
	c.hits++
	return ent.value, true
}

// Set stores value under key with the current timestamp.
func (c *TTLCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, storedAt: c.now()}
}

// Invalidate removes key from the cache.
func (c *TTLCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidatePrefix removes every key with the given prefix and returns the
// number of keys removed.
func (c *TTLCache) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Clear drops all entries and returns how many were dropped.
func (c *TTLCache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := len(c.entries)
	c.entries = make(map[string]entry)
	return count
}

// Stats describes cache effectiveness for the monitoring endpoint.
type Stats struct {
	Name       string `json:"name"`
	Hits       uint64 `json:"hits"`
	Misses     uint64 `json:"misses"`
	Size       int    `json:"size"`
	HitRate    string `json:"hit_rate"`
	TTLSeconds int    `json:"ttl_seconds"`
}

// Stats returns a snapshot of hit/miss counters and size.
func (c *TTLCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total) * 100
	}
	return Stats{
		Name:       c.name,
		Hits:       c.hits,
		Misses:     c.misses,
		Size:       len(c.entries),
		HitRate:    fmt.Sprintf("%.1f%%", rate),
		TTLSeconds: int(c.ttl / time.Second),
	}
}
