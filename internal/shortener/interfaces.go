package shortener

import (
	"context"
)

// Generator defines the interface for generating short codes
type Generator interface {
	// GenerateShortCode returns a fresh candidate short code
	GenerateShortCode(ctx context.Context) (string, error)

	// Type returns the type identifier of the generator
	Type() string

	// Close performs cleanup when the generator is no longer needed
	Close() error
}

// CounterProvider hands out monotonically increasing counter values
type CounterProvider interface {
	// GetNextCounter returns the next counter value for a given key
	GetNextCounter(ctx context.Context, key string) (int64, error)

	// Close performs cleanup when the provider is no longer needed
	Close() error
}

// CounterStore is the persistent side of a counter sequence.
// ReserveCounter atomically adds n to the named counter and returns the new value.
type CounterStore interface {
	ReserveCounter(ctx context.Context, key string, n int64) (int64, error)
}

// ExistenceChecker reports whether a shortcode is already stored, active or not
type ExistenceChecker interface {
	ShortcodeExists(ctx context.Context, shortcode string) (bool, error)
}

// Config holds configuration for shortener generators
type Config struct {
	Type        string `json:"type"`         // random or counter
	CodeLength  int    `json:"code_length"`  // Length of random codes
	CounterStep int64  `json:"counter_step"` // Counter values reserved per store round trip
	MaxAttempts int    `json:"max_attempts"` // Generation attempts before giving up
}

// GeneratorType constants
const (
	TypeRandom  = "random"
	TypeCounter = "counter"
)

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Type:        TypeRandom,
		CodeLength:  6,
		CounterStep: 100,
		MaxAttempts: 10,
	}
}
