package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/joshdurbin/shortlink/internal/domain"
)

// LinkCache is a mock implementation of cache.LinkCache
type LinkCache struct {
	mock.Mock
}

// Get retrieves a cached destination
func (m *LinkCache) Get(ctx context.Context, shortcode string) (*domain.CachedLink, error) {
	args := m.Called(ctx, shortcode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CachedLink), args.Error(1)
}

// Set stores a destination
func (m *LinkCache) Set(ctx context.Context, shortcode string, entry *domain.CachedLink, ttl time.Duration) error {
	args := m.Called(ctx, shortcode, entry, ttl)
	return args.Error(0)
}

// Delete removes a cached destination
func (m *LinkCache) Delete(ctx context.Context, shortcode string) error {
	args := m.Called(ctx, shortcode)
	return args.Error(0)
}

// Close closes the cache connection
func (m *LinkCache) Close() error {
	args := m.Called()
	return args.Error(0)
}
