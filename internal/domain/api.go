package domain

import (
	"time"
)

// CreateLinkRequest represents the request to create a short URL.
// Validity is left untyped so non-integer values can be reported as a
// validity error instead of a decoding failure.
type CreateLinkRequest struct {
	URL       string `json:"url"`
	Validity  any    `json:"validity,omitempty"`
	Shortcode string `json:"shortcode,omitempty"`
}

// CreateLinkResponse represents the response when creating a short URL
type CreateLinkResponse struct {
	ShortLink string    `json:"shortLink"`
	Expiry    time.Time `json:"expiry"`
	Shortcode string    `json:"shortcode"`
}

// ClickResponse is one click event as exposed by the statistics endpoint
type ClickResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Referrer  string    `json:"referrer"`
	UserAgent string    `json:"userAgent"`
	IP        string    `json:"ip"`
	Location  string    `json:"location"`
}

// StatsResponse represents the statistics of a short URL
type StatsResponse struct {
	Shortcode   string          `json:"shortcode"`
	OriginalURL string          `json:"originalUrl"`
	ShortLink   string          `json:"shortLink"`
	CreatedAt   time.Time       `json:"createdAt"`
	ExpiryDate  time.Time       `json:"expiryDate"`
	IsExpired   bool            `json:"isExpired"`
	TotalClicks int64           `json:"totalClicks"`
	Analytics   []ClickResponse `json:"analytics"`
}

// LinkSummary is a link as listed by GET /api/urls
type LinkSummary struct {
	Shortcode   string    `json:"shortcode"`
	OriginalURL string    `json:"originalUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiryDate  time.Time `json:"expiryDate"`
	ClickCount  int64     `json:"clickCount"`
	ShortLink   string    `json:"shortLink"`
	IsExpired   bool      `json:"isExpired"`
}

// ListResponse represents the response of GET /api/urls
type ListResponse struct {
	URLs      []LinkSummary `json:"urls"`
	Total     int           `json:"total"`
	Timestamp time.Time     `json:"timestamp"`
}

// HealthResponse represents the response of GET /api/health
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Database  string    `json:"database"`
}

// ErrorResponse is the body of every non-2xx API response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}
