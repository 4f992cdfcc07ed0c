package service

import (
	"context"

	"github.com/joshdurbin/shortlink/internal/domain"
)

// LinkRegistry defines the interface for short link operations
type LinkRegistry interface {
	// Create validates input, allocates a shortcode and stores the link
	Create(ctx context.Context, input domain.CreateLinkInput) (*domain.Link, error)

	// Resolve returns the destination of an active, unexpired link and records the click
	Resolve(ctx context.Context, shortcode string, meta domain.ClickMeta) (string, error)

	// Stats returns a link, active or not, with its click history
	Stats(ctx context.Context, shortcode string) (*domain.LinkStats, error)

	// List returns active links, newest first
	List(ctx context.Context, limit int) ([]*domain.Link, error)

	// Ping checks store connectivity
	Ping(ctx context.Context) error

	// Close closes the registry and its dependencies
	Close() error
}
