package broadcast

import (
	"sync"
	"time"
)

// recentCache is a bounded TTL map keyed by string. Listeners use it to
// remember what they already pushed, since observing the outbox without
// consuming it means the same rows come back every poll until the aggregator
// stamps them.
type recentCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	entries map[string]recentEntry
}

type recentEntry struct {
	value string
	seen  time.Time
}

func newRecentCache(ttl time.Duration, maxSize int) *recentCache {
	return &recentCache{
		ttl:     ttl,
		maxSize: maxSize,
		entries: make(map[string]recentEntry),
	}
}

// get returns the remembered value for key and whether a live entry exists.
func (c *recentCache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if time.Since(entry.seen) > c.ttl {
		delete(c.entries, key)
		return "", false
	}
	return entry.value, true
}

// put remembers value under key, pruning expired entries first. When the
// cache is still full after pruning, the oldest entry is evicted.
func (c *recentCache) put(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for k, e := range c.entries {
		if now.Sub(e.seen) > c.ttl {
			delete(c.entries, k)
		}
	}

	if len(c.entries) >= c.maxSize {
		var oldestKey string
		var oldest time.Time
		for k, e := range c.entries {
			if oldestKey == "" || e.seen.Before(oldest) {
				oldestKey = k
				oldest = e.seen
			}
		}
		delete(c.entries, oldestKey)
	}

	c.entries[key] = recentEntry{value: value, seen: now}
}
