package dashboard

import (
	"sync"
	"time"

	"github.com/lexo/practice-engine/practice"
)

// =============================================================================
// SNAPSHOT CACHE - Process-local, one entry per practitioner
// =============================================================================

// DefaultTTL bounds how stale a served snapshot may be.
const DefaultTTL = 5 * time.Minute

// Cache holds at most one snapshot per practitioner. Entries are immutable
// once stored: a refresh replaces the whole entry, never patches it. Expiry
// is checked lazily on read; there is no background eviction.
//
// The cache is process-local. In a multi-instance deployment each instance
// carries its own copy and the TTL is the accepted staleness window.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	clock   practice.Clock
	entries map[practice.PractitionerID]cacheEntry
}

type cacheEntry struct {
	metrics  Metrics
	storedAt time.Time
}

// NewCache creates a cache with the given TTL. A zero ttl falls back to
// DefaultTTL; a nil clock falls back to the system clock.
func NewCache(ttl time.Duration, clock practice.Clock) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = practice.SystemClock{}
	}
	return &Cache{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[practice.PractitionerID]cacheEntry),
	}
}

// Get returns the cached snapshot when one exists and is younger than the
// TTL. Expired entries are dropped on the way out.
func (c *Cache) Get(id practice.PractitionerID) (Metrics, bool) {
	c.mu.RLock()
	entry, ok := c.entries[id]
	c.mu.RUnlock()
	if !ok {
		return Metrics{}, false
	}

	if c.clock.Now().Sub(entry.storedAt) > c.ttl {
		c.mu.Lock()
		// Re-check under the write lock; a refresh may have replaced it.
		if current, still := c.entries[id]; still && current.storedAt.Equal(entry.storedAt) {
			delete(c.entries, id)
		}
		c.mu.Unlock()
		return Metrics{}, false
	}
	return entry.metrics, true
}

// Put stores a snapshot, replacing any previous entry for the practitioner.
func (c *Cache) Put(id practice.PractitionerID, m Metrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = cacheEntry{metrics: m, storedAt: c.clock.Now()}
}

// Clear drops the entry for one practitioner.
func (c *Cache) Clear(id practice.PractitionerID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// ClearAll drops every entry.
func (c *Cache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[practice.PractitionerID]cacheEntry)
}

// Len reports how many entries are currently held (expired ones included
// until a read evicts them).
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
