package domain

import (
	"time"
)

// Sentinel values stored when a request carries no usable metadata.
const (
	DirectReferrer   = "Direct"
	UnknownAttribute = "Unknown"
)

// Link represents a shortened URL with its metadata
type Link struct {
	ID          int64     `json:"-"`
	Shortcode   string    `json:"shortcode"`
	OriginalURL string    `json:"originalUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiryDate  time.Time `json:"expiryDate"`
	ClickCount  int64     `json:"clickCount"`
	IsActive    bool      `json:"isActive"`
}

// IsExpired reports whether the link stopped resolving at the given instant.
// A link is still valid at exactly its expiry date.
func (l *Link) IsExpired(now time.Time) bool {
	return now.After(l.ExpiryDate)
}

// ClickEvent is one recorded resolution of a shortcode
type ClickEvent struct {
	ID        int64     `json:"-"`
	Shortcode string    `json:"-"`
	Timestamp time.Time `json:"timestamp"`
	Referrer  string    `json:"referrer"`
	UserAgent string    `json:"userAgent"`
	IP        string    `json:"ip"`
	Location  string    `json:"location"`
}

// ClickMeta carries the request attributes captured for analytics
type ClickMeta struct {
	Referrer  string
	UserAgent string
	IP        string
	Location  string
}

// WithDefaults returns a copy with empty attributes replaced by their sentinels.
func (m ClickMeta) WithDefaults() ClickMeta {
	if m.Referrer == "" {
		m.Referrer = DirectReferrer
	}
	if m.UserAgent == "" {
		m.UserAgent = UnknownAttribute
	}
	if m.IP == "" {
		m.IP = UnknownAttribute
	}
	if m.Location == "" {
		m.Location = UnknownAttribute
	}
	return m
}

// CachedLink is the subset of a link kept in the resolve cache
type CachedLink struct {
	OriginalURL string    `json:"originalUrl"`
	ExpiryDate  time.Time `json:"expiryDate"`
}

// LinkStats is a link record together with its click history, newest first
type LinkStats struct {
	Link   *Link
	Clicks []*ClickEvent
}

// CreateLinkInput is the validated input of a link creation
type CreateLinkInput struct {
	URL             string `validate:"required,url"`
	ValidityMinutes *int   `validate:"omitempty,gt=0"`
	Shortcode       string `validate:"omitempty,shortcode"`
}
