package dashboard_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lexo/practice-engine/dashboard"
	"github.com/lexo/practice-engine/practice"
)

// movableClock lets a test step time forward past the TTL.
type movableClock struct {
	now time.Time
}

func (c *movableClock) Now() time.Time { return c.now }

func TestCache_ServesFreshEntry(t *testing.T) {
	// GIVEN: A snapshot stored moments ago
	// WHEN: Reading before the TTL elapses
	// THEN: The same snapshot comes back

	clock := &movableClock{now: testNow}
	cache := dashboard.NewCache(5*time.Minute, clock)

	stored := dashboard.Metrics{GeneratedAt: testNow}
	cache.Put(owner, stored)

	clock.now = testNow.Add(4 * time.Minute)
	got, ok := cache.Get(owner)
	assert.True(t, ok)
	assert.Equal(t, stored.GeneratedAt, got.GeneratedAt)
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	// GIVEN: A snapshot older than the TTL
	// WHEN: Reading it
	// THEN: It misses and the entry is evicted

	clock := &movableClock{now: testNow}
	cache := dashboard.NewCache(5*time.Minute, clock)
	cache.Put(owner, dashboard.Metrics{GeneratedAt: testNow})

	clock.now = testNow.Add(5*time.Minute + time.Second)
	_, ok := cache.Get(owner)
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len(), "expired entry should be dropped on read")
}

func TestCache_PutReplacesWholeEntry(t *testing.T) {
	clock := &movableClock{now: testNow}
	cache := dashboard.NewCache(5*time.Minute, clock)

	cache.Put(owner, dashboard.Metrics{GeneratedAt: testNow})
	later := testNow.Add(time.Minute)
	clock.now = later
	cache.Put(owner, dashboard.Metrics{GeneratedAt: later})

	got, ok := cache.Get(owner)
	assert.True(t, ok)
	assert.Equal(t, later, got.GeneratedAt)
	assert.Equal(t, 1, cache.Len())
}

func TestCache_ClearIsPerPractitioner(t *testing.T) {
	clock := &movableClock{now: testNow}
	cache := dashboard.NewCache(5*time.Minute, clock)

	other := practice.PractitionerID("adv-2")
	cache.Put(owner, dashboard.Metrics{})
	cache.Put(other, dashboard.Metrics{})

	cache.Clear(owner)
	_, ok := cache.Get(owner)
	assert.False(t, ok)
	_, ok = cache.Get(other)
	assert.True(t, ok)

	cache.ClearAll()
	assert.Equal(t, 0, cache.Len())
}
