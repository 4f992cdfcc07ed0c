package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joshdurbin/shortlink/internal/analytics"
	"github.com/joshdurbin/shortlink/internal/cache"
	"github.com/joshdurbin/shortlink/internal/domain"
	"github.com/joshdurbin/shortlink/internal/logger"
	"github.com/joshdurbin/shortlink/internal/metrics"
	"github.com/joshdurbin/shortlink/internal/notify"
	"github.com/joshdurbin/shortlink/internal/repository"
	"github.com/joshdurbin/shortlink/internal/shortener"
	"github.com/joshdurbin/shortlink/internal/validation"
)

const (
	DefaultValidityMinutes = 30
	DefaultListLimit       = 100
	DefaultCacheMaxTTL     = time.Hour

	// insert attempts for generated codes that lose a race on the unique index
	maxInsertAttempts = 3

	notifyPackage = "url-shortener"
)

// Options tunes a linkRegistry
type Options struct {
	DefaultValidityMinutes int
	ListLimit              int
	CacheMaxTTL            time.Duration
	MaxAttempts            int
	Now                    func() time.Time
}

func (o Options) withDefaults() Options {
	if o.DefaultValidityMinutes <= 0 {
		o.DefaultValidityMinutes = DefaultValidityMinutes
	}
	if o.ListLimit <= 0 {
		o.ListLimit = DefaultListLimit
	}
	if o.CacheMaxTTL <= 0 {
		o.CacheMaxTTL = DefaultCacheMaxTTL
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// linkRegistry implements LinkRegistry
type linkRegistry struct {
	repo      repository.LinkRepository
	cache     cache.LinkCache
	allocator *shortener.Allocator
	recorder  *analytics.Recorder
	notifier  notify.Notifier
	validator *validation.Validator
	opts      Options
}

// NewLinkRegistry creates a new link registry. The registry owns every
// dependency passed in and closes them in Close.
func NewLinkRegistry(repo repository.LinkRepository, linkCache cache.LinkCache, generator shortener.Generator, notifier notify.Notifier, opts Options) LinkRegistry {
	opts = opts.withDefaults()
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &linkRegistry{
		repo:      repo,
		cache:     linkCache,
		allocator: shortener.NewAllocator(generator, repo, opts.MaxAttempts),
		recorder:  analytics.NewRecorder(repo),
		notifier:  notifier,
		validator: validation.New(),
		opts:      opts,
	}
}

// Create validates input, allocates a shortcode and stores the link
func (r *linkRegistry) Create(ctx context.Context, input domain.CreateLinkInput) (*domain.Link, error) {
	if err := r.validate(input); err != nil {
		return nil, err
	}

	validity := r.opts.DefaultValidityMinutes
	if input.ValidityMinutes != nil {
		validity = *input.ValidityMinutes
	}

	log := logger.FromContext(ctx)

	for attempt := 1; ; attempt++ {
		code, err := r.allocator.Allocate(ctx, input.Shortcode)
		if err != nil {
			if errors.Is(err, domain.ErrShortcodeTaken) || domain.IsValidationError(err) {
				return nil, err
			}
			return nil, fmt.Errorf("failed to allocate shortcode: %w", err)
		}

		now := r.opts.Now().UTC()
		link := &domain.Link{
			Shortcode:   code,
			OriginalURL: input.URL,
			CreatedAt:   now,
			ExpiryDate:  now.Add(time.Duration(validity) * time.Minute),
			IsActive:    true,
		}

		err = r.repo.CreateLink(ctx, link)
		if err == nil {
			metrics.LinksCreatedTotal.Inc()
			r.cacheLink(ctx, link)

			log.Info("short url created",
				slog.String("shortcode", code),
				slog.Int("validity_minutes", validity),
			)
			r.notifier.Notify(ctx, notify.Entry{
				Level:   "info",
				Package: notifyPackage,
				Message: fmt.Sprintf("Short URL created: %s -> %s", code, input.URL),
			})
			return link, nil
		}

		// a custom code lost the race, or a generated one did too often
		if !errors.Is(err, domain.ErrShortcodeTaken) {
			return nil, fmt.Errorf("failed to create link: %w", err)
		}
		if input.Shortcode != "" || attempt >= maxInsertAttempts {
			return nil, err
		}
		log.Debug("generated shortcode taken on insert, retrying", slog.String("shortcode", code))
	}
}

func (r *linkRegistry) validate(input domain.CreateLinkInput) error {
	err := r.validator.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErr *validation.FieldError
	if !errors.As(err, &fieldErr) {
		return fmt.Errorf("failed to validate input: %w", err)
	}

	switch fieldErr.Field {
	case "URL":
		if fieldErr.Tag == "required" {
			return domain.ErrURLRequired
		}
		return domain.ErrInvalidURL
	case "ValidityMinutes":
		return domain.ErrInvalidValidity
	case "Shortcode":
		return domain.ErrInvalidShortcode
	default:
		return fmt.Errorf("invalid field %s: %w", fieldErr.Field, err)
	}
}

// Resolve returns the destination of an active, unexpired link and records the click
func (r *linkRegistry) Resolve(ctx context.Context, shortcode string, meta domain.ClickMeta) (string, error) {
	target, err := r.lookup(ctx, shortcode)
	if err != nil {
		r.countRedirect(err)
		return "", err
	}

	now := r.opts.Now().UTC()
	if now.After(target.ExpiryDate) {
		r.dropCached(ctx, shortcode)
		metrics.RedirectsTotal.WithLabelValues(metrics.OutcomeExpired).Inc()
		return "", domain.ErrExpired
	}

	if err := r.repo.IncrementClicks(ctx, shortcode); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.dropCached(ctx, shortcode)
			metrics.RedirectsTotal.WithLabelValues(metrics.OutcomeNotFound).Inc()
			return "", err
		}
		metrics.RedirectsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return "", fmt.Errorf("failed to increment clicks: %w", err)
	}

	r.recorder.Record(ctx, shortcode, now, meta)
	metrics.RedirectsTotal.WithLabelValues(metrics.OutcomeRedirected).Inc()

	return target.OriginalURL, nil
}

// lookup finds an active link destination, cache first
func (r *linkRegistry) lookup(ctx context.Context, shortcode string) (*domain.CachedLink, error) {
	entry, err := r.cache.Get(ctx, shortcode)
	switch {
	case err == nil:
		metrics.CacheLookupsTotal.WithLabelValues(metrics.CacheHit).Inc()
		return entry, nil
	case errors.Is(err, cache.ErrMiss):
		metrics.CacheLookupsTotal.WithLabelValues(metrics.CacheMiss).Inc()
	default:
		metrics.CacheLookupsTotal.WithLabelValues(metrics.CacheError).Inc()
		logger.FromContext(ctx).Warn("cache lookup failed",
			slog.String("shortcode", shortcode),
			slog.String("error", err.Error()),
		)
	}

	link, err := r.repo.GetActiveLink(ctx, shortcode)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	r.cacheLink(ctx, link)
	return &domain.CachedLink{OriginalURL: link.OriginalURL, ExpiryDate: link.ExpiryDate}, nil
}

func (r *linkRegistry) cacheLink(ctx context.Context, link *domain.Link) {
	ttl := cache.TTLFor(link.ExpiryDate, r.opts.Now(), r.opts.CacheMaxTTL)
	if ttl <= 0 {
		return
	}

	entry := &domain.CachedLink{OriginalURL: link.OriginalURL, ExpiryDate: link.ExpiryDate}
	if err := r.cache.Set(ctx, link.Shortcode, entry, ttl); err != nil {
		logger.FromContext(ctx).Warn("failed to cache link",
			slog.String("shortcode", link.Shortcode),
			slog.String("error", err.Error()),
		)
	}
}

func (r *linkRegistry) dropCached(ctx context.Context, shortcode string) {
	if err := r.cache.Delete(ctx, shortcode); err != nil {
		logger.FromContext(ctx).Warn("failed to evict link",
			slog.String("shortcode", shortcode),
			slog.String("error", err.Error()),
		)
	}
}

func (r *linkRegistry) countRedirect(err error) {
	outcome := metrics.OutcomeError
	if errors.Is(err, domain.ErrNotFound) {
		outcome = metrics.OutcomeNotFound
	}
	metrics.RedirectsTotal.WithLabelValues(outcome).Inc()
}

// Stats returns a link, active or not, with its click history
func (r *linkRegistry) Stats(ctx context.Context, shortcode string) (*domain.LinkStats, error) {
	link, err := r.repo.GetLink(ctx, shortcode)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	clicks, err := r.repo.ListClicks(ctx, shortcode)
	if err != nil {
		return nil, fmt.Errorf("failed to get clicks: %w", err)
	}

	return &domain.LinkStats{Link: link, Clicks: clicks}, nil
}

// List returns active links, newest first; non-positive limits use the default
func (r *linkRegistry) List(ctx context.Context, limit int) ([]*domain.Link, error) {
	if limit <= 0 {
		limit = r.opts.ListLimit
	}

	links, err := r.repo.ListActiveLinks(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return links, nil
}

// Ping checks store connectivity
func (r *linkRegistry) Ping(ctx context.Context) error {
	return r.repo.Ping(ctx)
}

// Close closes generator, cache, store and notifier, returning the first error
func (r *linkRegistry) Close() error {
	var first error
	if err := r.allocator.Close(); err != nil && first == nil {
		first = fmt.Errorf("failed to close generator: %w", err)
	}
	if err := r.cache.Close(); err != nil && first == nil {
		first = fmt.Errorf("failed to close cache: %w", err)
	}
	if err := r.repo.Close(); err != nil && first == nil {
		first = fmt.Errorf("failed to close repository: %w", err)
	}
	if err := r.notifier.Close(); err != nil && first == nil {
		first = fmt.Errorf("failed to close notifier: %w", err)
	}
	return first
}

var _ LinkRegistry = (*linkRegistry)(nil)
