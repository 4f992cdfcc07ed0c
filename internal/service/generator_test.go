package service

import (
	"context"
	"fmt"
	"sync"
)

// sequenceGenerator yields test0001, test0002, ...
type sequenceGenerator struct {
	mu      sync.Mutex
	counter int
}

func (g *sequenceGenerator) GenerateShortCode(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("test%04d", g.counter), nil
}

func (g *sequenceGenerator) Type() string { return "test" }

func (g *sequenceGenerator) Close() error { return nil }
