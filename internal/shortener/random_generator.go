package shortener

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	minCodeLength = 3
	maxCodeLength = 20
)

var base62Max = big.NewInt(int64(len(base62Chars)))

// RandomGenerator draws short codes uniformly from the base62 alphabet
type RandomGenerator struct {
	length int
}

// NewRandomGenerator creates a random generator producing codes of the given length
func NewRandomGenerator(length int) (*RandomGenerator, error) {
	if length < minCodeLength || length > maxCodeLength {
		return nil, fmt.Errorf("code length must be between %d and %d, got %d", minCodeLength, maxCodeLength, length)
	}
	return &RandomGenerator{length: length}, nil
}

// GenerateShortCode returns a random base62 code
func (g *RandomGenerator) GenerateShortCode(ctx context.Context) (string, error) {
	code := make([]byte, g.length)
	for i := range code {
		n, err := rand.Int(rand.Reader, base62Max)
		if err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		code[i] = base62Chars[n.Int64()]
	}
	return string(code), nil
}

// Type returns the generator type
func (g *RandomGenerator) Type() string {
	return TypeRandom
}

// Close performs cleanup
func (g *RandomGenerator) Close() error {
	return nil
}

var _ Generator = (*RandomGenerator)(nil)
