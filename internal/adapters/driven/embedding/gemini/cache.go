package gemini

import (
	"sync"
	"time"
)

// cacheEntry holds a cached vector with its insertion time.
type cacheEntry struct {
	values  []float32
	addedAt time.Time
}

// vectorCache is a small bounded cache mapping a truncated-text key to
// a previously computed vector. Entries expire after a fixed TTL and
// the oldest entry is evicted when the cache is full, so repeated or
// near-identical inputs within a session window skip the provider call.
type vectorCache struct {
	mu         sync.Mutex
	entries    map[string]cacheEntry
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

// newVectorCache creates a cache bounded to maxEntries with the given TTL.
func newVectorCache(maxEntries int, ttl time.Duration) *vectorCache {
	return &vectorCache{
		entries:    make(map[string]cacheEntry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

// get returns the cached vector for key, if present and unexpired.
func (c *vectorCache) get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.addedAt) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return entry.values, true
}

// put stores a vector, evicting the oldest entry when full.
func (c *vectorCache) put(key string, values []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = cacheEntry{values: values, addedAt: c.now()}
}

// evictOldestLocked removes the entry with the earliest insertion time.
// Callers must hold the mutex.
func (c *vectorCache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	first := true

	for key, entry := range c.entries {
		if first || entry.addedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.addedAt
			first = false
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// len returns the number of entries, expired or not.
func (c *vectorCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
