package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/joshdurbin/shortlink/internal/domain"
	"github.com/joshdurbin/shortlink/internal/repository"
)

const linkColumns = `id, shortcode, original_url, created_at, expiry_date, click_count, is_active`

// Repository implements repository.LinkRepository using SQLite
type Repository struct {
	db *sql.DB
}

// New opens (creating if needed) the SQLite database at databasePath and applies migrations
func New(databasePath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dsn(databasePath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// every connection to :memory: is a separate database
	if isMemory(databasePath) {
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repo := &Repository{db: db}

	if err := repo.runMigrations(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func dsn(databasePath string) string {
	params := "_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
	if strings.Contains(databasePath, "?") {
		return databasePath + "&" + params
	}
	return databasePath + "?" + params
}

func isMemory(databasePath string) bool {
	return strings.HasPrefix(databasePath, ":memory:") || strings.Contains(databasePath, "mode=memory")
}

// CreateLink inserts a new link and fills in its ID
func (r *Repository) CreateLink(ctx context.Context, link *domain.Link) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO links (shortcode, original_url, created_at, expiry_date, click_count, is_active)
		VALUES (?, ?, ?, ?, ?, ?)`,
		link.Shortcode, link.OriginalURL, link.CreatedAt.UTC(), link.ExpiryDate.UTC(), link.ClickCount, link.IsActive)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to create link %q: %w", link.Shortcode, domain.ErrShortcodeTaken)
		}
		return fmt.Errorf("failed to create link: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read link id: %w", err)
	}
	link.ID = id
	return nil
}

// GetLink retrieves a link by shortcode regardless of status
func (r *Repository) GetLink(ctx context.Context, shortcode string) (*domain.Link, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM links WHERE shortcode = ?`, shortcode)
	return scanLink(row)
}

// GetActiveLink retrieves a link by shortcode if it is active
func (r *Repository) GetActiveLink(ctx context.Context, shortcode string) (*domain.Link, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM links WHERE shortcode = ? AND is_active = 1`, shortcode)
	return scanLink(row)
}

// ShortcodeExists checks whether any link uses shortcode
func (r *Repository) ShortcodeExists(ctx context.Context, shortcode string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM links WHERE shortcode = ?)`, shortcode).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check shortcode existence: %w", err)
	}
	return exists, nil
}

// IncrementClicks atomically adds one to the click count of a link
func (r *Repository) IncrementClicks(ctx context.Context, shortcode string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE links SET click_count = click_count + 1 WHERE shortcode = ?`, shortcode)
	if err != nil {
		return fmt.Errorf("failed to increment clicks: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to increment clicks: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListActiveLinks returns active links, newest first, capped at limit
func (r *Repository) ListActiveLinks(ctx context.Context, limit int) ([]*domain.Link, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+linkColumns+` FROM links
		WHERE is_active = 1
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
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
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO clicks (shortcode, timestamp, referrer, user_agent, ip, location)
		VALUES (?, ?, ?, ?, ?, ?)`,
		click.Shortcode, click.Timestamp.UTC(), click.Referrer, click.UserAgent, click.IP, click.Location)
	if err != nil {
		return fmt.Errorf("failed to record click: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read click id: %w", err)
	}
	click.ID = id
	return nil
}

// ListClicks returns the click events of a shortcode, newest first
func (r *Repository) ListClicks(ctx context.Context, shortcode string) ([]*domain.ClickEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, shortcode, timestamp, referrer, user_agent, ip, location
		FROM clicks
		WHERE shortcode = ?
		ORDER BY timestamp DESC, id DESC`, shortcode)
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
		clicks = append(clicks, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list clicks: %w", err)
	}
	return clicks, nil
}

// ReserveCounter atomically adds n to the named counter and returns the new value
func (r *Repository) ReserveCounter(ctx context.Context, key string, n int64) (int64, error) {
	var value int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO counters (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = value + excluded.value, updated_at = excluded.updated_at
		RETURNING value`, key, n, time.Now().UTC()).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("failed to reserve counter %s: %w", key, err)
	}
	return value, nil
}

// Ping checks connectivity
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the repository connection
func (r *Repository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLink(s scanner) (*domain.Link, error) {
	var link domain.Link
	err := s.Scan(&link.ID, &link.Shortcode, &link.OriginalURL, &link.CreatedAt, &link.ExpiryDate, &link.ClickCount, &link.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan link: %w", err)
	}
	return &link, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// Ensure Repository implements the interface
var _ repository.LinkRepository = (*Repository)(nil)
