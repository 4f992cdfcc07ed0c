package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joshdurbin/shortlink/internal/domain"
	"github.com/joshdurbin/shortlink/internal/repository"
)

const (
	linkColumns = `id, shortcode, original_url, created_at, expiry_date, click_count, is_active`

	uniqueViolation = "23505"
)

// Config holds the connection pool settings
type Config struct {
	URL             string
	MaxConns        int
	MinConns        int
	ConnMaxLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Repository implements repository.LinkRepository using PostgreSQL
type Repository struct {
	db *pgxpool.Pool
}

// New connects to PostgreSQL and applies migrations
func New(ctx context.Context, cfg Config) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repo := NewWithPool(pool)
	if err := repo.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

// NewWithPool wraps an existing pool without running migrations
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// CreateLink inserts a new link and fills in its ID
func (r *Repository) CreateLink(ctx context.Context, link *domain.Link) error {
	query := `
		INSERT INTO links (shortcode, original_url, created_at, expiry_date, click_count, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		link.Shortcode, link.OriginalURL, link.CreatedAt.UTC(), link.ExpiryDate.UTC(), link.ClickCount, link.IsActive,
	).Scan(&link.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("failed to create link %q: %w", link.Shortcode, domain.ErrShortcodeTaken)
		}
		return fmt.Errorf("failed to create link: %w", err)
	}
	return nil
}

// GetLink retrieves a link by shortcode regardless of status
func (r *Repository) GetLink(ctx context.Context, shortcode string) (*domain.Link, error) {
	row := r.db.QueryRow(ctx, `SELECT `+linkColumns+` FROM links WHERE shortcode = $1`, shortcode)
	return scanLink(row)
}

// GetActiveLink retrieves a link by shortcode if it is active
func (r *Repository) GetActiveLink(ctx context.Context, shortcode string) (*domain.Link, error) {
	row := r.db.QueryRow(ctx, `SELECT `+linkColumns+` FROM links WHERE shortcode = $1 AND is_active = TRUE`, shortcode)
	return scanLink(row)
}

// ShortcodeExists checks whether any link uses shortcode
func (r *Repository) ShortcodeExists(ctx context.Context, shortcode string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM links WHERE shortcode = $1)`, shortcode).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check shortcode existence: %w", err)
	}
	return exists, nil
}

// IncrementClicks atomically adds one to the click count of a link
func (r *Repository) IncrementClicks(ctx context.Context, shortcode string) error {
	tag, err := r.db.Exec(ctx, `UPDATE links SET click_count = click_count + 1 WHERE shortcode = $1`, shortcode)
	if err != nil {
		return fmt.Errorf("failed to increment clicks: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListActiveLinks returns active links, newest first, capped at limit
func (r *Repository) ListActiveLinks(ctx context.Context, limit int) ([]*domain.Link, error) {
	query := `
		SELECT ` + linkColumns + ` FROM links
		WHERE is_active = TRUE
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	links := make([]*domain.Link, 0)
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return links, nil
}

// RecordClick appends a click event
func (r *Repository) RecordClick(ctx context.Context, click *domain.ClickEvent) error {
	query := `
		INSERT INTO clicks (shortcode, timestamp, referrer, user_agent, ip, location)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		click.Shortcode, click.Timestamp.UTC(), click.Referrer, click.UserAgent, click.IP, click.Location,
	).Scan(&click.ID)
	if err != nil {
		return fmt.Errorf("failed to record click: %w", err)
	}
	return nil
}

// ListClicks returns the click events of a shortcode, newest first
func (r *Repository) ListClicks(ctx context.Context, shortcode string) ([]*domain.ClickEvent, error) {
	query := `
		SELECT id, shortcode, timestamp, referrer, user_agent, ip, location
		FROM clicks
		WHERE shortcode = $1
		ORDER BY timestamp DESC, id DESC
	`

	rows, err := r.db.Query(ctx, query, shortcode)
	if err != nil {
		return nil, fmt.Errorf("failed to list clicks: %w", err)
	}
	defer rows.Close()

	clicks := make([]*domain.ClickEvent, 0)
	for rows.Next() {
		var c domain.ClickEvent
		if err := rows.Scan(&c.ID, &c.Shortcode, &c.Timestamp, &c.Referrer, &c.UserAgent, &c.IP, &c.Location); err != nil {
			return nil, fmt.Errorf("failed to scan click: %w", err)
		}
		c.Timestamp = c.Timestamp.UTC()
		clicks = append(clicks, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list clicks: %w", err)
	}
	return clicks, nil
}

// ReserveCounter atomically adds n to the named counter and returns the new value
func (r *Repository) ReserveCounter(ctx context.Context, key string, n int64) (int64, error) {
	query := `
		INSERT INTO counters (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = counters.value + EXCLUDED.value, updated_at = NOW()
		RETURNING value
	`

	var value int64
	if err := r.db.QueryRow(ctx, query, key, n).Scan(&value); err != nil {
		return 0, fmt.Errorf("failed to reserve counter %s: %w", key, err)
	}
	return value, nil
}

// Ping checks connectivity
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// Close closes the pool
func (r *Repository) Close() error {
	r.db.Close()
	return nil
}

func scanLink(row pgx.Row) (*domain.Link, error) {
	var link domain.Link
	err := row.Scan(&link.ID, &link.Shortcode, &link.OriginalURL, &link.CreatedAt, &link.ExpiryDate, &link.ClickCount, &link.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan link: %w", err)
	}
	link.CreatedAt = link.CreatedAt.UTC()
	link.ExpiryDate = link.ExpiryDate.UTC()
	return &link, nil
}

var _ repository.LinkRepository = (*Repository)(nil)
