package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joshdurbin/shortlink/internal/cache"
	"github.com/joshdurbin/shortlink/internal/domain"
)

const keyPrefix = "link:"

// Config holds the redis connection settings
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Cache implements cache.LinkCache on redis, storing JSON under link:<shortcode>
type Cache struct {
	client *redis.Client
}

// New connects to redis and verifies the connection
func New(ctx context.Context, cfg Config) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewWithClient(client), nil
}

// NewWithClient wraps an existing client
func NewWithClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func key(shortcode string) string {
	return keyPrefix + shortcode
}

// Get retrieves a cached destination
func (c *Cache) Get(ctx context.Context, shortcode string) (*domain.CachedLink, error) {
	data, err := c.client.Get(ctx, key(shortcode)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, cache.ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", shortcode, err)
	}

	var entry domain.CachedLink
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", shortcode, err)
	}
	return &entry, nil
}

// Set stores a destination for ttl; non-positive ttls are ignored
func (c *Cache) Set(ctx context.Context, shortcode string, entry *domain.CachedLink, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key(shortcode), data, ttl).Err()
}

// Delete removes a cached destination
func (c *Cache) Delete(ctx context.Context, shortcode string) error {
	return c.client.Del(ctx, key(shortcode)).Err()
}

// Close closes the redis client
func (c *Cache) Close() error {
	return c.client.Close()
}

var _ cache.LinkCache = (*Cache)(nil)
