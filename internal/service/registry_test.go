package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/joshdurbin/shortlink/internal/cache"
	cacheMocks "github.com/joshdurbin/shortlink/internal/cache/mocks"
	"github.com/joshdurbin/shortlink/internal/domain"
	"github.com/joshdurbin/shortlink/internal/notify"
	repoMocks "github.com/joshdurbin/shortlink/internal/repository/mocks"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu      sync.Mutex
	entries []notify.Entry
	closed  bool
}

func (n *recordingNotifier) Notify(ctx context.Context, entry notify.Entry) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.entries = append(n.entries, entry)
}

func (n *recordingNotifier) Close() error {
	n.closed = true
	return nil
}

func newTestRegistry(repo *repoMocks.LinkRepository, c *cacheMocks.LinkCache, notifier notify.Notifier) *linkRegistry {
	return NewLinkRegistry(repo, c, &sequenceGenerator{}, notifier, Options{
		Now: func() time.Time { return fixedNow },
	}).(*linkRegistry)
}

func intPtr(v int) *int { return &v }

func TestLinkRegistry_Create(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		input      domain.CreateLinkInput
		setupMocks func(*repoMocks.LinkRepository, *cacheMocks.LinkCache)
		wantCode   string
		wantExpiry time.Time
		wantErr    error
	}{
		{
			name:  "default validity",
			input: domain.CreateLinkInput{URL: "https://example.com/very/long/path"},
			setupMocks: func(repo *repoMocks.LinkRepository, c *cacheMocks.LinkCache) {
				repo.On("ShortcodeExists", ctx, "test0001").Return(false, nil)
				repo.On("CreateLink", ctx, mock.AnythingOfType("*domain.Link")).Return(nil)
				c.On("Set", ctx, "test0001", mock.AnythingOfType("*domain.CachedLink"), 30*time.Minute).Return(nil)
			},
			wantCode:   "test0001",
			wantExpiry: fixedNow.Add(30 * time.Minute),
		},
		{
			name:  "explicit validity bounded cache ttl",
			input: domain.CreateLinkInput{URL: "https://example.com", ValidityMinutes: intPtr(180)},
			setupMocks: func(repo *repoMocks.LinkRepository, c *cacheMocks.LinkCache) {
				repo.On("ShortcodeExists", ctx, "test0001").Return(false, nil)
				repo.On("CreateLink", ctx, mock.AnythingOfType("*domain.Link")).Return(nil)
				c.On("Set", ctx, "test0001", mock.Anything, time.Hour).Return(nil)
			},
			wantCode:   "test0001",
			wantExpiry: fixedNow.Add(180 * time.Minute),
		},
		{
			name:  "generated code skips existing ones",
			input: domain.CreateLinkInput{URL: "https://example.com"},
			setupMocks: func(repo *repoMocks.LinkRepository, c *cacheMocks.LinkCache) {
				repo.On("ShortcodeExists", ctx, "test0001").Return(true, nil)
				repo.On("ShortcodeExists", ctx, "test0002").Return(false, nil)
				repo.On("CreateLink", ctx, mock.AnythingOfType("*domain.Link")).Return(nil)
				c.On("Set", ctx, "test0002", mock.Anything, 30*time.Minute).Return(nil)
			},
			wantCode:   "test0002",
			wantExpiry: fixedNow.Add(30 * time.Minute),
		},
		{
			name:  "custom shortcode",
			input: domain.CreateLinkInput{URL: "https://example.com", Shortcode: "mine42", ValidityMinutes: intPtr(5)},
			setupMocks: func(repo *repoMocks.LinkRepository, c *cacheMocks.LinkCache) {
				repo.On("ShortcodeExists", ctx, "mine42").Return(false, nil)
				repo.On("CreateLink", ctx, mock.AnythingOfType("*domain.Link")).Return(nil)
				c.On("Set", ctx, "mine42", mock.Anything, 5*time.Minute).Return(nil)
			},
			wantCode:   "mine42",
			wantExpiry: fixedNow.Add(5 * time.Minute),
		},
		{
			name:  "cache failure does not fail creation",
			input: domain.CreateLinkInput{URL: "https://example.com"},
			setupMocks: func(repo *repoMocks.LinkRepository, c *cacheMocks.LinkCache) {
				repo.On("ShortcodeExists", ctx, "test0001").Return(false, nil)
				repo.On("CreateLink", ctx, mock.AnythingOfType("*domain.Link")).Return(nil)
				c.On("Set", ctx, "test0001", mock.Anything, 30*time.Minute).Return(errors.New("redis down"))
			},
			wantCode:   "test0001",
			wantExpiry: fixedNow.Add(30 * time.Minute),
		},
		{
			name:  "custom shortcode already exists",
			input: domain.CreateLinkInput{URL: "https://example.com", Shortcode: "taken1"},
			setupMocks: func(repo *repoMocks.LinkRepository, c *cacheMocks.LinkCache) {
				repo.On("ShortcodeExists", ctx, "taken1").Return(true, nil)
			},
			wantErr: domain.ErrShortcodeTaken,
		},
		{
			name:  "custom shortcode loses insert race",
			input: domain.CreateLinkInput{URL: "https://example.com", Shortcode: "racy42"},
			setupMocks: func(repo *repoMocks.LinkRepository, c *cacheMocks.LinkCache) {
				repo.On("ShortcodeExists", ctx, "racy42").Return(false, nil)
				repo.On("CreateLink", ctx, mock.AnythingOfType("*domain.Link")).
					Return(fmt.Errorf("insert: %w", domain.ErrShortcodeTaken)).Once()
			},
			wantErr: domain.ErrShortcodeTaken,
		},
		{
			name:    "missing url",
			input:   domain.CreateLinkInput{},
			wantErr: domain.ErrURLRequired,
		},
		{
			name:    "malformed url",
			input:   domain.CreateLinkInput{URL: "not-a-url"},
			wantErr: domain.ErrInvalidURL,
		},
		{
			name:    "zero validity",
			input:   domain.CreateLinkInput{URL: "https://example.com", ValidityMinutes: intPtr(0)},
			wantErr: domain.ErrInvalidValidity,
		},
		{
			name:    "negative validity",
			input:   domain.CreateLinkInput{URL: "https://example.com", ValidityMinutes: intPtr(-10)},
			wantErr: domain.ErrInvalidValidity,
		},
		{
			name:    "malformed shortcode",
			input:   domain.CreateLinkInput{URL: "https://example.com", Shortcode: "no!"},
			wantErr: domain.ErrInvalidShortcode,
		},
		{
			name:    "shortcode too long",
			input:   domain.CreateLinkInput{URL: "https://example.com", Shortcode: "abcdefghijklmnopqrstuvwxyz"},
			wantErr: domain.ErrInvalidShortcode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &repoMocks.LinkRepository{}
			c := &cacheMocks.LinkCache{}
			if tt.setupMocks != nil {
				tt.setupMocks(repo, c)
			}

			registry := newTestRegistry(repo, c, notify.Noop{})
			link, err := registry.Create(ctx, tt.input)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, link)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantCode, link.Shortcode)
				assert.Equal(t, tt.input.URL, link.OriginalURL)
				assert.Equal(t, fixedNow, link.CreatedAt)
				assert.Equal(t, tt.wantExpiry, link.ExpiryDate)
				assert.True(t, link.IsActive)
				assert.Zero(t, link.ClickCount)
			}

			repo.AssertExpectations(t)
			c.AssertExpectations(t)
		})
	}
}

func TestLinkRegistry_Create_GeneratedCodeRace(t *testing.T) {
	ctx := context.Background()

	t.Run("retries with a new code", func(t *testing.T) {
		repo := &repoMocks.LinkRepository{}
		c := &cacheMocks.LinkCache{}

		repo.On("ShortcodeExists", ctx, mock.Anything).Return(false, nil)
		repo.On("CreateLink", ctx, mock.MatchedBy(func(l *domain.Link) bool { return l.Shortcode == "test0001" })).
			Return(domain.ErrShortcodeTaken).Once()
		repo.On("CreateLink", ctx, mock.MatchedBy(func(l *domain.Link) bool { return l.Shortcode == "test0002" })).
			Return(nil).Once()
		c.On("Set", ctx, "test0002", mock.Anything, mock.Anything).Return(nil)

		link, err := newTestRegistry(repo, c, notify.Noop{}).Create(ctx, domain.CreateLinkInput{URL: "https://example.com"})
		require.NoError(t, err)
		assert.Equal(t, "test0002", link.Shortcode)
	})

	t.Run("gives up after three inserts", func(t *testing.T) {
		repo := &repoMocks.LinkRepository{}
		c := &cacheMocks.LinkCache{}

		repo.On("ShortcodeExists", ctx, mock.Anything).Return(false, nil)
		repo.On("CreateLink", ctx, mock.Anything).Return(domain.ErrShortcodeTaken)

		_, err := newTestRegistry(repo, c, notify.Noop{}).Create(ctx, domain.CreateLinkInput{URL: "https://example.com"})
		assert.ErrorIs(t, err, domain.ErrShortcodeTaken)
		repo.AssertNumberOfCalls(t, "CreateLink", maxInsertAttempts)
	})
}

func TestLinkRegistry_Create_StoreFailure(t *testing.T) {
	ctx := context.Background()
	repo := &repoMocks.LinkRepository{}
	c := &cacheMocks.LinkCache{}

	repo.On("ShortcodeExists", ctx, "test0001").Return(false, nil)
	repo.On("CreateLink", ctx, mock.Anything).Return(assert.AnError)

	_, err := newTestRegistry(repo, c, notify.Noop{}).Create(ctx, domain.CreateLinkInput{URL: "https://example.com"})
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.False(t, domain.IsValidationError(err))
	assert.Contains(t, err.Error(), "failed to create link")
}

func TestLinkRegistry_Create_Notifies(t *testing.T) {
	ctx := context.Background()
	repo := &repoMocks.LinkRepository{}
	c := &cacheMocks.LinkCache{}
	notifier := &recordingNotifier{}

	repo.On("ShortcodeExists", ctx, "test0001").Return(false, nil)
	repo.On("CreateLink", ctx, mock.Anything).Return(nil)
	c.On("Set", ctx, "test0001", mock.Anything, mock.Anything).Return(nil)

	_, err := newTestRegistry(repo, c, notifier).Create(ctx, domain.CreateLinkInput{URL: "https://example.com"})
	require.NoError(t, err)

	require.Len(t, notifier.entries, 1)
	assert.Equal(t, "info", notifier.entries[0].Level)
	assert.Contains(t, notifier.entries[0].Message, "test0001")
}

func TestLinkRegistry_Resolve(t *testing.T) {
	ctx := context.Background()
	meta := domain.ClickMeta{Referrer: "https://ref.example", UserAgent: "curl/8.0", IP: "10.0.0.1"}

	activeLink := func(expiry time.Time) *domain.Link {
		return &domain.Link{
			ID:          1,
			Shortcode:   "abc123",
			OriginalURL: "https://example.com",
			CreatedAt:   fixedNow.Add(-10 * time.Minute),
			ExpiryDate:  expiry,
			IsActive:    true,
		}
	}

	tests := []struct {
		name       string
		setupMocks func(*repoMocks.LinkRepository, *cacheMocks.LinkCache)
		wantURL    string
		wantErr    error
	}{
		{
			name: "found in cache",
			setupMocks: func(repo *repoMocks.LinkRepository, c *cacheMocks.LinkCache) {
				c.On("Get", ctx, "abc123").Return(&domain.CachedLink{
					OriginalURL: "https://example.com",
					ExpiryDate:  fixedNow.Add(time.Minute),
				}, nil)
				repo.On("IncrementClicks", ctx, "abc123").Return(nil)
				repo.On("RecordClick", ctx, mock.MatchedBy(func(e *domain.ClickEvent) bool {
					return e.Shortcode == "abc123" && e.Referrer == "https://ref.example" && e.Timestamp.Equal(fixedNow)
				})).Return(nil)
			},
			wantURL: "https://example.com",
		},
		{
			name: "not in cache, found in store",
			setupMocks: func(repo *repoMocks.LinkRepository, c *cacheMocks.LinkCache) {
				c.On("Get", ctx, "abc123").Return(nil, cache.ErrMiss)
				repo.On("GetActiveLink", ctx, "abc123").Return(activeLink(fixedNow.Add(20*time.Minute)), nil)
				c.On("Set", ctx, "abc123", &domain.CachedLink{
					OriginalURL: "https://example.com",
					ExpiryDate:  fixedNow.Add(20 * time.Minute),
				}, 20*time.Minute).Return(nil)
				repo.On("IncrementClicks", ctx, "abc123").Return(nil)
				repo.On("RecordClick", ctx, mock.Anything).Return(nil)
			},
			wantURL: "https://example.com",
		},
		{
			name: "cache error falls through to store",
			setupMocks: func(repo *repoMocks.LinkRepository, c *cacheMocks.LinkCache) {
				c.On("Get", ctx, "abc123").Return(nil, errors.New("connection refused"))
				repo.On("GetActiveLink", ctx, "abc123").Return(activeLink(fixedNow.Add(20*time.Minute)), nil)
				c.On("Set", ctx, "abc123", mock.Anything, mock.Anything).Return(errors.New("connection refused"))
				repo.On("IncrementClicks", ctx, "abc123").Return(nil)
				repo.On("RecordClick", ctx, mock.Anything).Return(nil)
			},
			wantURL: "https://example.com",
		},
		{
			name: "valid at the exact expiry instant",
			setupMocks: func(repo *repoMocks.LinkRepository, c *cacheMocks.LinkCache) {
				c.On("Get", ctx, "abc123").Return(nil, cache.ErrMiss)
				repo.On("GetActiveLink", ctx, "abc123").Return(activeLink(fixedNow), nil)
				repo.On("IncrementClicks", ctx, "abc123").Return(nil)
				repo.On("RecordClick", ctx, mock.Anything).Return(nil)
			},
			wantURL: "https://example.com",
		},
		{
			name: "click recording failure keeps the redirect",
			setupMocks: func(repo *repoMocks.LinkRepository, c *cacheMocks.LinkCache) {
				c.On("Get", ctx, "abc123").Return(&domain.CachedLink{
					OriginalURL: "https://example.com",
					ExpiryDate:  fixedNow.Add(time.Minute),
				}, nil)
				repo.On("IncrementClicks", ctx, "abc123").Return(nil)
				repo.On("RecordClick", ctx, mock.Anything).Return(errors.New("disk full"))
			},
			wantURL: "https://example.com",
		},
		{
			name: "unknown shortcode",
			setupMocks: func(repo *repoMocks.LinkRepository, c *cacheMocks.LinkCache) {
				c.On("Get", ctx, "abc123").Return(nil, cache.ErrMiss)
				repo.On("GetActiveLink", ctx, "abc123").Return(nil, domain.ErrNotFound)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "expired in store",
			setupMocks: func(repo *repoMocks.LinkRepository, c *cacheMocks.LinkCache) {
				c.On("Get", ctx, "abc123").Return(nil, cache.ErrMiss)
				repo.On("GetActiveLink", ctx, "abc123").Return(activeLink(fixedNow.Add(-time.Second)), nil)
				c.On("Delete", ctx, "abc123").Return(nil)
			},
			wantErr: domain.ErrExpired,
		},
		{
			name: "expired in cache",
			setupMocks: func(repo *repoMocks.LinkRepository, c *cacheMocks.LinkCache) {
				c.On("Get", ctx, "abc123").Return(&domain.CachedLink{
					OriginalURL: "https://example.com",
					ExpiryDate:  fixedNow.Add(-time.Second),
				}, nil)
				c.On("Delete", ctx, "abc123").Return(nil)
			},
			wantErr: domain.ErrExpired,
		},
		{
			name: "link vanished before increment",
			setupMocks: func(repo *repoMocks.LinkRepository, c *cacheMocks.LinkCache) {
				c.On("Get", ctx, "abc123").Return(&domain.CachedLink{
					OriginalURL: "https://example.com",
					ExpiryDate:  fixedNow.Add(time.Minute),
				}, nil)
				repo.On("IncrementClicks", ctx, "abc123").Return(domain.ErrNotFound)
				c.On("Delete", ctx, "abc123").Return(nil)
			},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &repoMocks.LinkRepository{}
			c := &cacheMocks.LinkCache{}
			tt.setupMocks(repo, c)

			got, err := newTestRegistry(repo, c, notify.Noop{}).Resolve(ctx, "abc123", meta)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, got)
				repo.AssertNotCalled(t, "RecordClick", mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantURL, got)
			}

			repo.AssertExpectations(t)
			c.AssertExpectations(t)
		})
	}
}

func TestLinkRegistry_Resolve_StoreError(t *testing.T) {
	ctx := context.Background()
	repo := &repoMocks.LinkRepository{}
	c := &cacheMocks.LinkCache{}

	c.On("Get", ctx, "abc123").Return(nil, cache.ErrMiss)
	repo.On("GetActiveLink", ctx, "abc123").Return(nil, assert.AnError)

	_, err := newTestRegistry(repo, c, notify.Noop{}).Resolve(ctx, "abc123", domain.ClickMeta{})
	assert.ErrorIs(t, err, assert.AnError)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
	repo.AssertNotCalled(t, "IncrementClicks", mock.Anything, mock.Anything)
}

func TestLinkRegistry_Stats(t *testing.T) {
	ctx := context.Background()

	t.Run("returns link and clicks", func(t *testing.T) {
		repo := &repoMocks.LinkRepository{}
		link := &domain.Link{Shortcode: "abc123", OriginalURL: "https://example.com", ClickCount: 2, IsActive: false}
		clicks := []*domain.ClickEvent{
			{Shortcode: "abc123", Timestamp: fixedNow, Referrer: domain.DirectReferrer},
			{Shortcode: "abc123", Timestamp: fixedNow.Add(-time.Minute), Referrer: "https://ref.example"},
		}
		repo.On("GetLink", ctx, "abc123").Return(link, nil)
		repo.On("ListClicks", ctx, "abc123").Return(clicks, nil)

		stats, err := newTestRegistry(repo, &cacheMocks.LinkCache{}, notify.Noop{}).Stats(ctx, "abc123")
		require.NoError(t, err)
		assert.Same(t, link, stats.Link)
		assert.Equal(t, clicks, stats.Clicks)
	})

	t.Run("unknown shortcode", func(t *testing.T) {
		repo := &repoMocks.LinkRepository{}
		repo.On("GetLink", ctx, "nope123").Return(nil, domain.ErrNotFound)

		_, err := newTestRegistry(repo, &cacheMocks.LinkCache{}, notify.Noop{}).Stats(ctx, "nope123")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("click query failure", func(t *testing.T) {
		repo := &repoMocks.LinkRepository{}
		repo.On("GetLink", ctx, "abc123").Return(&domain.Link{Shortcode: "abc123"}, nil)
		repo.On("ListClicks", ctx, "abc123").Return(nil, assert.AnError)

		_, err := newTestRegistry(repo, &cacheMocks.LinkCache{}, notify.Noop{}).Stats(ctx, "abc123")
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestLinkRegistry_List(t *testing.T) {
	ctx := context.Background()
	links := []*domain.Link{{Shortcode: "new123"}, {Shortcode: "old123"}}

	tests := []struct {
		name      string
		limit     int
		wantLimit int
	}{
		{"default limit", 0, DefaultListLimit},
		{"negative limit", -1, DefaultListLimit},
		{"explicit limit", 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &repoMocks.LinkRepository{}
			repo.On("ListActiveLinks", ctx, tt.wantLimit).Return(links, nil)

			got, err := newTestRegistry(repo, &cacheMocks.LinkCache{}, notify.Noop{}).List(ctx, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, links, got)
			repo.AssertExpectations(t)
		})
	}

	t.Run("store failure", func(t *testing.T) {
		repo := &repoMocks.LinkRepository{}
		repo.On("ListActiveLinks", ctx, DefaultListLimit).Return(nil, assert.AnError)

		_, err := newTestRegistry(repo, &cacheMocks.LinkCache{}, notify.Noop{}).List(ctx, 0)
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestLinkRegistry_Ping(t *testing.T) {
	ctx := context.Background()
	repo := &repoMocks.LinkRepository{}
	repo.On("Ping", ctx).Return(nil).Once()
	repo.On("Ping", ctx).Return(assert.AnError).Once()

	registry := newTestRegistry(repo, &cacheMocks.LinkCache{}, notify.Noop{})
	assert.NoError(t, registry.Ping(ctx))
	assert.ErrorIs(t, registry.Ping(ctx), assert.AnError)
}

func TestLinkRegistry_Close(t *testing.T) {
	repo := &repoMocks.LinkRepository{}
	c := &cacheMocks.LinkCache{}
	notifier := &recordingNotifier{}

	var order []string
	c.On("Close").Return(errors.New("cache close failed")).Run(func(mock.Arguments) { order = append(order, "cache") })
	repo.On("Close").Return(errors.New("repo close failed")).Run(func(mock.Arguments) { order = append(order, "repo") })

	err := newTestRegistry(repo, c, notifier).Close()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache close failed", "first error wins")
	assert.Equal(t, []string{"cache", "repo"}, order)
	assert.True(t, notifier.closed, "later dependencies are still closed")
}
