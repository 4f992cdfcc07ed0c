package shortener

import (
	"context"
	"fmt"
	"sync"
)

// CounterCache hands out counter values from blocks reserved in the store.
// A block is persisted before any of its values is returned, so a restart
// can skip values but never repeat one.
type CounterCache struct {
	mu        sync.Mutex
	store     CounterStore
	counters  map[string]*cacheEntry
	blockSize int64
	closed    bool
}

type cacheEntry struct {
	current   int64
	allocated int64
}

// NewCounterCache creates a counter cache reserving blockSize values per store call
func NewCounterCache(store CounterStore, blockSize int64) *CounterCache {
	if blockSize <= 0 {
		blockSize = 1
	}
	return &CounterCache{
		store:     store,
		counters:  make(map[string]*cacheEntry),
		blockSize: blockSize,
	}
}

// GetNextCounter returns the next counter value, reserving a new block when the current one is spent
func (c *CounterCache) GetNextCounter(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, fmt.Errorf("counter cache is closed")
	}

	entry, exists := c.counters[key]
	if !exists || entry.current >= entry.allocated {
		end, err := c.store.ReserveCounter(ctx, key, c.blockSize)
		if err != nil {
			return 0, fmt.Errorf("failed to reserve counter block: %w", err)
		}
		entry = &cacheEntry{
			current:   end - c.blockSize,
			allocated: end,
		}
		c.counters[key] = entry
	}

	entry.current++
	return entry.current, nil
}

// Close drops the reserved blocks; unused values are skipped after a restart
func (c *CounterCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.counters = make(map[string]*cacheEntry)
	return nil
}

// Ensure CounterCache implements CounterProvider
var _ CounterProvider = (*CounterCache)(nil)
