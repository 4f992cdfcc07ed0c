package cache

import (
	"context"
	"errors"
	"time"

	"github.com/joshdurbin/shortlink/internal/domain"
)

// ErrMiss is returned by Get when the shortcode is not cached
var ErrMiss = errors.New("cache miss")

// LinkCache holds the destinations of active links.
// It never holds click counts; those live only in the store.
type LinkCache interface {
	// Get returns the cached destination or ErrMiss
	Get(ctx context.Context, shortcode string) (*domain.CachedLink, error)

	// Set stores a destination for at most ttl
	Set(ctx context.Context, shortcode string, entry *domain.CachedLink, ttl time.Duration) error

	// Delete removes a cached destination
	Delete(ctx context.Context, shortcode string) error

	// Close releases the cache connection (if applicable)
	Close() error
}

// TTLFor bounds maxTTL by the time left until expiry.
// A non-positive result means the entry must not be cached.
func TTLFor(expiry, now time.Time, maxTTL time.Duration) time.Duration {
	ttl := expiry.Sub(now)
	if maxTTL > 0 && ttl > maxTTL {
		ttl = maxTTL
	}
	return ttl
}
