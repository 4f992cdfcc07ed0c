package shortener

import (
	"context"
	"math/bits"
	"strings"
)

const (
	// Base62 characters: 0-9, a-z, A-Z (case sensitive)
	base62Chars = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	counterCodeLength = 7
	counterKey        = "shortcode_counter"

	// Codes are mapped into [62^6, 62^7-1] so every one is exactly 7 characters
	minCounterValue = uint64(56800235584)
	maxCounterValue = uint64(3521614606207)
)

// CounterGenerator turns a monotonic counter into non-sequential looking codes
type CounterGenerator struct {
	counterProvider CounterProvider
	counterKey      string
	multiplier      uint64
	salt            uint64
}

// NewCounterGenerator creates a new counter-based generator with obfuscation
func NewCounterGenerator(counterProvider CounterProvider) *CounterGenerator {
	return &CounterGenerator{
		counterProvider: counterProvider,
		counterKey:      counterKey,
		multiplier:      0x5DEECE66D,
		salt:            0x9E3779B97F4A7C15,
	}
}

// GenerateShortCode encodes the next value of the counter sequence
func (g *CounterGenerator) GenerateShortCode(ctx context.Context) (string, error) {
	counter, err := g.counterProvider.GetNextCounter(ctx, g.counterKey)
	if err != nil {
		return "", err
	}

	return g.encodeCounter(uint64(counter)), nil
}

// encodeCounter transforms the counter value and converts it to a short code
func (g *CounterGenerator) encodeCounter(counter uint64) string {
	transformed := g.obfuscateValue(counter)
	rangeSize := maxCounterValue - minCounterValue + 1
	return g.toBase62(transformed%rangeSize + minCounterValue)
}

// obfuscateValue applies multiple transformations to hide the original value
func (g *CounterGenerator) obfuscateValue(value uint64) uint64 {
	result := value ^ g.salt
	result *= g.multiplier
	result = bits.RotateLeft64(result, 21)
	result ^= bits.RotateLeft64(result, 32)

	// swap halves, reversing the low word
	lower := uint32(result & 0xFFFFFFFF)
	upper := uint32(result >> 32)
	result = (uint64(bits.Reverse32(lower)) << 32) | uint64(upper)

	return result
}

// toBase62 converts a number to base62 representation
func (g *CounterGenerator) toBase62(num uint64) string {
	if num == 0 {
		return "0"
	}

	var buf [11]byte
	i := len(buf)
	for num > 0 {
		i--
		buf[i] = base62Chars[num%62]
		num /= 62
	}
	return string(buf[i:])
}

// fromBase62 converts a base62 string back to a number
func (g *CounterGenerator) fromBase62(str string) uint64 {
	result := uint64(0)
	for _, char := range str {
		result = result*62 + uint64(strings.IndexRune(base62Chars, char))
	}
	return result
}

// Type returns the generator type
func (g *CounterGenerator) Type() string {
	return TypeCounter
}

// Close performs cleanup
func (g *CounterGenerator) Close() error {
	if g.counterProvider != nil {
		return g.counterProvider.Close()
	}
	return nil
}

// GenerateShortCodeForID encodes a specific counter value without touching the sequence
func (g *CounterGenerator) GenerateShortCodeForID(id uint64) string {
	return g.encodeCounter(id)
}

var _ Generator = (*CounterGenerator)(nil)
