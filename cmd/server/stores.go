package main

import (
	"context"
	"fmt"
	"time"

	"github.com/joshdurbin/shortlink/internal/cache"
	"github.com/joshdurbin/shortlink/internal/cache/memory"
	"github.com/joshdurbin/shortlink/internal/cache/noop"
	redisCache "github.com/joshdurbin/shortlink/internal/cache/redis"
	"github.com/joshdurbin/shortlink/internal/config"
	"github.com/joshdurbin/shortlink/internal/repository"
	"github.com/joshdurbin/shortlink/internal/repository/postgres"
	"github.com/joshdurbin/shortlink/internal/repository/sqlite"
)

// interval at which the memory cache evicts expired entries
const memoryCacheCleanup = 10 * time.Minute

func openStore(ctx context.Context, cfg config.DatabaseConfig) (repository.LinkRepository, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		repo, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case config.DriverPostgres:
		repo, err := postgres.New(ctx, postgres.Config{
			URL:             cfg.URL,
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			MaxConnIdleTime: cfg.MaxConnIdleTime,
		})
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown database driver: %q", cfg.Driver)
	}
}

func openCache(ctx context.Context, cfg config.CacheConfig) (cache.LinkCache, error) {
	switch cfg.Backend {
	case config.CacheMemory:
		return memory.New(memoryCacheCleanup), nil
	case config.CacheRedis:
		c, err := redisCache.New(ctx, redisCache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.CacheNone:
		return noop.New(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %q", cfg.Backend)
	}
}
