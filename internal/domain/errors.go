package domain

import "errors"

var (
	// Validation errors
	ErrURLRequired      = errors.New("url is required")
	ErrInvalidURL       = errors.New("invalid url format")
	ErrInvalidValidity  = errors.New("validity must be a positive integer")
	ErrInvalidShortcode = errors.New("shortcode must be alphanumeric and 3-20 characters long")

	// ErrShortcodeTaken is returned when a shortcode is already stored, active or not
	ErrShortcodeTaken = errors.New("shortcode already exists")

	// ErrNotFound is returned for unknown or inactive shortcodes
	ErrNotFound = errors.New("short url not found")

	// ErrExpired is returned for a known shortcode past its validity window
	ErrExpired = errors.New("short url has expired")
)

// IsValidationError reports whether err is caused by malformed caller input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrURLRequired) ||
		errors.Is(err, ErrInvalidURL) ||
		errors.Is(err, ErrInvalidValidity) ||
		errors.Is(err, ErrInvalidShortcode)
}
