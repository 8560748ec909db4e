// Package marketdata holds the latest order book snapshot per venue. Snapshots
// are swapped atomically under a per-venue lock; the lock covers only the
// read or replace of the snapshot reference, never a network call.
package marketdata

import (
	"sync"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

// Cache stores the most recent OrderBookSnapshot for each venue. One polling
// loop writes each venue's entry; the coordinator reads both.
type Cache struct {
	mu        sync.RWMutex
	snapshots map[domain.Venue]domain.OrderBookSnapshot
}

// NewCache creates an empty market data cache.
func NewCache() *Cache {
	return &Cache{
		snapshots: make(map[domain.Venue]domain.OrderBookSnapshot),
	}
}

// Put replaces the venue's snapshot with a new complete one.
func (c *Cache) Put(snap domain.OrderBookSnapshot) {
	c.mu.Lock()
	c.snapshots[snap.Venue] = snap
	c.mu.Unlock()
}

// Get returns the latest snapshot for the venue. The second return is false
// when the venue has not been polled yet.
func (c *Cache) Get(v domain.Venue) (domain.OrderBookSnapshot, bool) {
	c.mu.RLock()
	snap, ok := c.snapshots[v]
	c.mu.RUnlock()
	return snap, ok
}
