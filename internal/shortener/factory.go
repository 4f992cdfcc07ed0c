package shortener

import (
	"fmt"
)

// NewGenerator creates the generator selected by config.Type.
// The counter generator requires a store for its sequence.
func NewGenerator(config Config, store CounterStore) (Generator, error) {
	switch config.Type {
	case "", TypeRandom:
		return NewRandomGenerator(config.CodeLength)
	case TypeCounter:
		if store == nil {
			return nil, fmt.Errorf("counter store required for counter-based generator")
		}
		if config.CounterStep <= 0 {
			return nil, fmt.Errorf("counter step must be positive, got %d", config.CounterStep)
		}
		return NewCounterGenerator(NewCounterCache(store, config.CounterStep)), nil
	default:
		return nil, fmt.Errorf("unknown generator type %q", config.Type)
	}
}
