package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/joshdurbin/shortlink/internal/domain"
)

// LinkRegistry is a mock implementation of service.LinkRegistry
type LinkRegistry struct {
	mock.Mock
}

// Create stores a new link
func (m *LinkRegistry) Create(ctx context.Context, input domain.CreateLinkInput) (*domain.Link, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

// Resolve returns the destination of a link
func (m *LinkRegistry) Resolve(ctx context.Context, shortcode string, meta domain.ClickMeta) (string, error) {
	args := m.Called(ctx, shortcode, meta)
	return args.String(0), args.Error(1)
}

// Stats returns a link with its clicks
func (m *LinkRegistry) Stats(ctx context.Context, shortcode string) (*domain.LinkStats, error) {
	args := m.Called(ctx, shortcode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LinkStats), args.Error(1)
}

// List returns active links
func (m *LinkRegistry) List(ctx context.Context, limit int) ([]*domain.Link, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Link), args.Error(1)
}

// Ping checks store connectivity
func (m *LinkRegistry) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close closes the registry
func (m *LinkRegistry) Close() error {
	args := m.Called()
	return args.Error(0)
}
