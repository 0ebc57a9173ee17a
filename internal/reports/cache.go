package reports

import (
	"strings"
	"sync"
	"time"
)

type cacheEntry struct {
	value     *Snapshot
	expiresAt time.Time
}

const cacheMaxEntries = 500

// snapshotCache keeps recent snapshots per restaurant and range. It is
// flushed wholesale when it grows past cacheMaxEntries.
type snapshotCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

func newSnapshotCache(now func() time.Time) *snapshotCache {
	return &snapshotCache{entries: map[string]cacheEntry{}, now: now}
}

func cacheKey(restaurantID string, parts ...string) string {
	segments := make([]string, 0, 1+len(parts))
	segments = append(segments, restaurantID)
	segments = append(segments, parts...)
	return strings.Join(segments, "|")
}

func (c *snapshotCache) get(key string) (*Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.value, true
}

func (c *snapshotCache) set(key string, value *Snapshot, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{value: value, expiresAt: c.now().Add(ttl)}
	if len(c.entries) > cacheMaxEntries {
		c.entries = map[string]cacheEntry{}
	}
}

func (c *snapshotCache) invalidate(restaurantID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if key == restaurantID || strings.HasPrefix(key, restaurantID+"|") {
			delete(c.entries, key)
		}
	}
}
