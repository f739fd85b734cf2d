package resolver

import (
	"sync"
	"time"

	"github.com/choosepower/tdsp-resolver/internal/model"
)

// cacheEntry pairs a resolution with its expiry.
type cacheEntry struct {
	result    model.ResolutionResult
	expiresAt time.Time
}

// resultCache is a TTL cache over resolution results. ZIP-only lookups key on
// the ZIP alone; address lookups key on zip + normalized address. The TTL is
// chosen per result by the resolver, so a high-confidence direct mapping
// outlives a split-ZIP intermediate.
type resultCache struct {
	mu         sync.Mutex
	entries    map[string]cacheEntry
	maxEntries int

	nowFunc func() time.Time
}

func newResultCache(maxEntries int) *resultCache {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &resultCache{
		entries:    make(map[string]cacheEntry),
		maxEntries: maxEntries,
		nowFunc:    time.Now,
	}
}

// Get returns the cached result for key if present and unexpired.
func (c *resultCache) Get(key string) (model.ResolutionResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return model.ResolutionResult{}, false
	}
	if c.nowFunc().After(e.expiresAt) {
		delete(c.entries, key)
		return model.ResolutionResult{}, false
	}
	return e.result, true
}

// Set stores a result with the given TTL, evicting if the cache is full.
func (c *resultCache) Set(key string, result model.ResolutionResult, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}
	c.entries[key] = cacheEntry{result: result, expiresAt: c.nowFunc().Add(ttl)}
}

// evictLocked drops expired entries, then the soonest-to-expire entries until
// a quarter of the capacity is free. Called with the lock held.
func (c *resultCache) evictLocked() {
	now := c.nowFunc()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}

	target := c.maxEntries - c.maxEntries/4
	for len(c.entries) > target {
		var oldestKey string
		var oldest time.Time
		for k, e := range c.entries {
			if oldestKey == "" || e.expiresAt.Before(oldest) {
				oldestKey = k
				oldest = e.expiresAt
			}
		}
		delete(c.entries, oldestKey)
	}
}

// Len returns the number of cached entries, expired included.
func (c *resultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
