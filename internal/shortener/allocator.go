package shortener

import (
	"context"
	"errors"
	"fmt"

	"github.com/joshdurbin/shortlink/internal/domain"
	"github.com/joshdurbin/shortlink/internal/validation"
)

// ErrAttemptsExhausted is returned when no free code was found within the attempt budget
var ErrAttemptsExhausted = errors.New("no free shortcode found")

// Allocator produces a shortcode that is well formed and not yet stored
type Allocator struct {
	generator   Generator
	checker     ExistenceChecker
	maxAttempts int
}

// NewAllocator creates an allocator drawing candidates from generator
func NewAllocator(generator Generator, checker ExistenceChecker, maxAttempts int) *Allocator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultConfig().MaxAttempts
	}
	return &Allocator{
		generator:   generator,
		checker:     checker,
		maxAttempts: maxAttempts,
	}
}

// Allocate returns custom when it is valid and unused, or a generated code when custom is empty.
func (a *Allocator) Allocate(ctx context.Context, custom string) (string, error) {
	if custom != "" {
		if !validation.IsShortcode(custom) {
			return "", domain.ErrInvalidShortcode
		}
		exists, err := a.checker.ShortcodeExists(ctx, custom)
		if err != nil {
			return "", fmt.Errorf("failed to check shortcode: %w", err)
		}
		if exists {
			return "", domain.ErrShortcodeTaken
		}
		return custom, nil
	}

	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		code, err := a.generator.GenerateShortCode(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to generate shortcode: %w", err)
		}
		exists, err := a.checker.ShortcodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check shortcode: %w", err)
		}
		if !exists {
			return code, nil
		}
	}

	return "", fmt.Errorf("%w after %d attempts", ErrAttemptsExhausted, a.maxAttempts)
}

// Close closes the underlying generator
func (a *Allocator) Close() error {
	return a.generator.Close()
}
