package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshdurbin/shortlink/internal/cache"
	"github.com/joshdurbin/shortlink/internal/domain"
)

func newEntry() *domain.CachedLink {
	return &domain.CachedLink{
		OriginalURL: "https://example.com",
		ExpiryDate:  time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestCache_SetAndGet(t *testing.T) {
	c := New(time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "test123", newEntry(), time.Minute))

	retrieved, err := c.Get(ctx, "test123")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", retrieved.OriginalURL)

	// callers get a copy
	retrieved.OriginalURL = "https://mutated.example"
	again, err := c.Get(ctx, "test123")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", again.OriginalURL)

	_, err = c.Get(ctx, "nonexistent")
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestCache_SetCopiesEntry(t *testing.T) {
	c := New(time.Minute)
	ctx := context.Background()

	entry := newEntry()
	require.NoError(t, c.Set(ctx, "test123", entry, time.Minute))
	entry.OriginalURL = "https://mutated.example"

	retrieved, err := c.Get(ctx, "test123")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", retrieved.OriginalURL)
}

func TestCache_Expiry(t *testing.T) {
	c := New(time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short1", newEntry(), 20*time.Millisecond))

	_, err := c.Get(ctx, "short1")
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	_, err = c.Get(ctx, "short1")
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestCache_NonPositiveTTLIsIgnored(t *testing.T) {
	c := New(time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "expired", newEntry(), 0))
	require.NoError(t, c.Set(ctx, "expired2", newEntry(), -time.Second))

	assert.Zero(t, c.Len())
}

func TestCache_Delete(t *testing.T) {
	c := New(time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "test123", newEntry(), time.Minute))
	require.NoError(t, c.Delete(ctx, "test123"))

	_, err := c.Get(ctx, "test123")
	assert.ErrorIs(t, err, cache.ErrMiss)

	assert.NoError(t, c.Delete(ctx, "nonexistent"))
}

func TestCache_Close(t *testing.T) {
	c := New(time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "test123", newEntry(), time.Minute))
	require.NoError(t, c.Close())
	assert.Zero(t, c.Len())
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New(time.Minute)
	ctx := context.Background()

	const numGoroutines = 10
	const numOperations = 100

	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numOperations; j++ {
				key := fmt.Sprintf("key%d_%d", id, j%10)
				assert.NoError(t, c.Set(ctx, key, newEntry(), time.Minute))
				_, _ = c.Get(ctx, key)
				if j%7 == 0 {
					assert.NoError(t, c.Delete(ctx, key))
				}
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), numGoroutines*10)
}
