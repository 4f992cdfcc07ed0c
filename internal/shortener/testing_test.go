package shortener

import (
	"context"
	"errors"
	"sync"
)

// memCounterStore is an in-memory CounterStore
type memCounterStore struct {
	mu     sync.Mutex
	values map[string]int64
	calls  int
	err    error
}

func newMemCounterStore() *memCounterStore {
	return &memCounterStore{values: make(map[string]int64)}
}

func (s *memCounterStore) ReserveCounter(ctx context.Context, key string, n int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	s.values[key] += n
	return s.values[key], nil
}

func (s *memCounterStore) reservations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// fixedGenerator returns its codes in order, then fails
type fixedGenerator struct {
	codes  []string
	next   int
	closed bool
}

func (g *fixedGenerator) GenerateShortCode(ctx context.Context) (string, error) {
	if g.next >= len(g.codes) {
		return "", errors.New("out of codes")
	}
	code := g.codes[g.next]
	g.next++
	return code, nil
}

func (g *fixedGenerator) Type() string { return "fixed" }

func (g *fixedGenerator) Close() error {
	g.closed = true
	return nil
}

// setChecker reports codes in taken as existing
type setChecker struct {
	taken   map[string]bool
	err     error
	checked []string
}

func (c *setChecker) ShortcodeExists(ctx context.Context, code string) (bool, error) {
	c.checked = append(c.checked, code)
	if c.err != nil {
		return false, c.err
	}
	return c.taken[code], nil
}
