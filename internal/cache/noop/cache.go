// Package noop provides a LinkCache that never holds anything.
package noop

import (
	"context"
	"time"

	"github.com/joshdurbin/shortlink/internal/cache"
	"github.com/joshdurbin/shortlink/internal/domain"
)

type Cache struct{}

func New() Cache { return Cache{} }

func (Cache) Get(ctx context.Context, shortcode string) (*domain.CachedLink, error) {
	return nil, cache.ErrMiss
}

func (Cache) Set(ctx context.Context, shortcode string, entry *domain.CachedLink, ttl time.Duration) error {
	return nil
}

func (Cache) Delete(ctx context.Context, shortcode string) error { return nil }

func (Cache) Close() error { return nil }

var _ cache.LinkCache = Cache{}
