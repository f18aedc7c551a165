// Package cache provides the in-memory snapshot cache.
package cache

import (
	"sync"
	"time"

	"github.com/plugwarden/plugwarden/internal/application/ports"
	"github.com/plugwarden/plugwarden/internal/domain/capability"
)

// Ensure interface compliance
var _ ports.SnapshotCache = (*MemorySnapshotCache)(nil)

// MemorySnapshotCache stores snapshots in a process-local map. Snapshots
// are replaced atomically as whole values; concurrent get/put/invalidate
// for the same plugin are safe.
type MemorySnapshotCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	snap    *capability.Snapshot
	expires time.Time
}

// NewMemorySnapshotCache creates an empty cache.
func NewMemorySnapshotCache() *MemorySnapshotCache {
	return &MemorySnapshotCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns the cached snapshot, treating expired entries as misses.
func (c *MemorySnapshotCache) Get(pluginID string) (*capability.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[pluginID]
	if !ok {
		return nil, false
	}
	if !e.expires.IsZero() && c.now().After(e.expires) {
		return nil, false
	}
	return e.snap, true
}

// Put stores a snapshot. A non-positive ttl means no expiry.
func (c *MemorySnapshotCache) Put(pluginID string, snap *capability.Snapshot, ttl time.Duration) {
	var expires time.Time
	if ttl > 0 {
		expires = c.now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[pluginID] = cacheEntry{snap: snap, expires: expires}
}

// Invalidate drops the plugin's entry.
func (c *MemorySnapshotCache) Invalidate(pluginID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, pluginID)
}
