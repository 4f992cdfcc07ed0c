package memory

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/joshdurbin/shortlink/internal/cache"
	"github.com/joshdurbin/shortlink/internal/domain"
)

// Cache implements cache.LinkCache in process memory
type Cache struct {
	items *gocache.Cache
}

// New creates an in-memory cache whose expired items are purged every cleanupInterval
func New(cleanupInterval time.Duration) *Cache {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	return &Cache{
		items: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

// Get retrieves a copy of a cached destination
func (c *Cache) Get(ctx context.Context, shortcode string) (*domain.CachedLink, error) {
	v, ok := c.items.Get(shortcode)
	if !ok {
		return nil, cache.ErrMiss
	}

	entry := v.(domain.CachedLink)
	return &entry, nil
}

// Set stores a copy of entry for ttl; non-positive ttls are ignored
func (c *Cache) Set(ctx context.Context, shortcode string, entry *domain.CachedLink, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.items.Set(shortcode, *entry, ttl)
	return nil
}

// Delete removes a cached destination
func (c *Cache) Delete(ctx context.Context, shortcode string) error {
	c.items.Delete(shortcode)
	return nil
}

// Len returns the number of cached items, including expired ones not yet purged
func (c *Cache) Len() int {
	return c.items.ItemCount()
}

// Close drops every cached item
func (c *Cache) Close() error {
	c.items.Flush()
	return nil
}

var _ cache.LinkCache = (*Cache)(nil)
