package repository

import (
	"context"

	"github.com/joshdurbin/shortlink/internal/domain"
)

// LinkRepository defines the interface for link and click data operations.
// Implementations translate missing rows to domain.ErrNotFound and unique
// violations on shortcode to domain.ErrShortcodeTaken.
type LinkRepository interface {
	// CreateLink inserts a new link and fills in its ID
	CreateLink(ctx context.Context, link *domain.Link) error

	// GetLink retrieves a link by shortcode regardless of status
	GetLink(ctx context.Context, shortcode string) (*domain.Link, error)

	// GetActiveLink retrieves a link by shortcode if it is active
	GetActiveLink(ctx context.Context, shortcode string) (*domain.Link, error)

	// ShortcodeExists checks whether any link, active or not, uses shortcode
	ShortcodeExists(ctx context.Context, shortcode string) (bool, error)

	// IncrementClicks atomically adds one to the click count of a link
	IncrementClicks(ctx context.Context, shortcode string) error

	// ListActiveLinks returns active links, newest first, capped at limit
	ListActiveLinks(ctx context.Context, limit int) ([]*domain.Link, error)

	// RecordClick appends a click event
	RecordClick(ctx context.Context, click *domain.ClickEvent) error

	// ListClicks returns the click events of a shortcode, newest first
	ListClicks(ctx context.Context, shortcode string) ([]*domain.ClickEvent, error)

	// ReserveCounter atomically adds n to the named counter and returns the new value
	ReserveCounter(ctx context.Context, key string, n int64) (int64, error)

	// Ping checks connectivity
	Ping(ctx context.Context) error

	// Close closes the repository connection
	Close() error
}
