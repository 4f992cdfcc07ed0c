package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/joshdurbin/shortlink/internal/domain"
)

// LinkRepository is a mock implementation of repository.LinkRepository
type LinkRepository struct {
	mock.Mock
}

// CreateLink inserts a new link
func (m *LinkRepository) CreateLink(ctx context.Context, link *domain.Link) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

// GetLink retrieves a link by shortcode
func (m *LinkRepository) GetLink(ctx context.Context, shortcode string) (*domain.Link, error) {
	args := m.Called(ctx, shortcode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

// GetActiveLink retrieves an active link by shortcode
func (m *LinkRepository) GetActiveLink(ctx context.Context, shortcode string) (*domain.Link, error) {
	args := m.Called(ctx, shortcode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

// ShortcodeExists checks if a shortcode exists
func (m *LinkRepository) ShortcodeExists(ctx context.Context, shortcode string) (bool, error) {
	args := m.Called(ctx, shortcode)
	return args.Bool(0), args.Error(1)
}

// IncrementClicks increments the click count of a link
func (m *LinkRepository) IncrementClicks(ctx context.Context, shortcode string) error {
	args := m.Called(ctx, shortcode)
	return args.Error(0)
}

// ListActiveLinks returns active links
func (m *LinkRepository) ListActiveLinks(ctx context.Context, limit int) ([]*domain.Link, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Link), args.Error(1)
}

// RecordClick appends a click event
func (m *LinkRepository) RecordClick(ctx context.Context, click *domain.ClickEvent) error {
	args := m.Called(ctx, click)
	return args.Error(0)
}

// ListClicks returns the click events of a shortcode
func (m *LinkRepository) ListClicks(ctx context.Context, shortcode string) ([]*domain.ClickEvent, error) {
	args := m.Called(ctx, shortcode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ClickEvent), args.Error(1)
}

// ReserveCounter reserves counter values
func (m *LinkRepository) ReserveCounter(ctx context.Context, key string, n int64) (int64, error) {
	args := m.Called(ctx, key, n)
	return args.Get(0).(int64), args.Error(1)
}

// Ping checks connectivity
func (m *LinkRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close closes the repository connection
func (m *LinkRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}
