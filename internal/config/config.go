package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/joshdurbin/shortlink/internal/logger"
	"github.com/joshdurbin/shortlink/internal/shortener"
)

// EnvPrefix prefixes every environment variable read by the service
const EnvPrefix = "SHORTLINK"

// Store drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Cache backends
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Links     LinksConfig
	Shortener shortener.Config
	Logging   LoggingConfig
	Notifier  NotifierConfig
	Metrics   MetricsConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string
	BaseURL         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	TrustedProxies  []string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver          string
	Path            string
	URL             string
	MaxConns        int
	MinConns        int
	ConnMaxLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// CacheConfig holds link cache configuration
type CacheConfig struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	MaxTTL        time.Duration
}

// LinksConfig holds link defaults
type LinksConfig struct {
	DefaultValidity int
	ListLimit       int
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level      string
	Format     string
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
	Verbose    bool
}

// NotifierConfig holds the external log sink configuration
type NotifierConfig struct {
	URL     string
	Token   string
	Timeout time.Duration
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool
}

// Logger converts the logging section into a logger.Config
func (c LoggingConfig) Logger() logger.Config {
	return logger.Config{
		Level:      c.Level,
		Format:     c.Format,
		File:       c.File,
		MaxSize:    c.MaxSize,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAge,
		Compress:   c.Compress,
	}
}

// NewViper returns a viper instance with defaults and environment bindings.
// Callers may bind command-line flags to it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// unprefixed names kept for existing deployments
	_ = v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT")
	_ = v.BindEnv("database.url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("notifier.url", EnvPrefix+"_NOTIFIER_URL", "LOG_API_URL")
	_ = v.BindEnv("notifier.token", EnvPrefix+"_NOTIFIER_TOKEN", "AUTH_TOKEN")

	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "5000")
	v.SetDefault("server.base_url", "")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.cors_origins", []string{"http://localhost:5000", "http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("server.trusted_proxies", []string{})

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "shortlink.db")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)

	v.SetDefault("cache.backend", CacheMemory)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.max_ttl", time.Hour)

	defaults := shortener.DefaultConfig()
	v.SetDefault("links.default_validity", 30)
	v.SetDefault("links.list_limit", 100)
	v.SetDefault("links.generator", defaults.Type)
	v.SetDefault("links.code_length", defaults.CodeLength)
	v.SetDefault("links.max_attempts", defaults.MaxAttempts)
	v.SetDefault("links.counter_step", defaults.CounterStep)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)
	v.SetDefault("logging.verbose", false)

	v.SetDefault("notifier.url", "")
	v.SetDefault("notifier.token", "")
	v.SetDefault("notifier.timeout", 5*time.Second)

	v.SetDefault("metrics.enabled", true)
}

// Load reads configFile, when given, into v and returns the validated configuration
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetString("server.port"),
			BaseURL:         strings.TrimRight(v.GetString("server.base_url"), "/"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			IdleTimeout:     v.GetDuration("server.idle_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			CORSOrigins:     stringSlice(v, "server.cors_origins"),
			TrustedProxies:  stringSlice(v, "server.trusted_proxies"),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(v.GetString("database.driver")),
			Path:            v.GetString("database.path"),
			URL:             v.GetString("database.url"),
			MaxConns:        v.GetInt("database.max_conns"),
			MinConns:        v.GetInt("database.min_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			MaxConnIdleTime: v.GetDuration("database.max_conn_idle_time"),
		},
		Cache: CacheConfig{
			Backend:       strings.ToLower(v.GetString("cache.backend")),
			RedisAddr:     v.GetString("cache.redis_addr"),
			RedisPassword: v.GetString("cache.redis_password"),
			RedisDB:       v.GetInt("cache.redis_db"),
			MaxTTL:        v.GetDuration("cache.max_ttl"),
		},
		Links: LinksConfig{
			DefaultValidity: v.GetInt("links.default_validity"),
			ListLimit:       v.GetInt("links.list_limit"),
		},
		Shortener: shortener.Config{
			Type:        strings.ToLower(v.GetString("links.generator")),
			CodeLength:  v.GetInt("links.code_length"),
			CounterStep: v.GetInt64("links.counter_step"),
			MaxAttempts: v.GetInt("links.max_attempts"),
		},
		Logging: LoggingConfig{
			Level:      v.GetString("logging.level"),
			Format:     strings.ToLower(v.GetString("logging.format")),
			File:       v.GetString("logging.file"),
			MaxSize:    v.GetInt("logging.max_size"),
			MaxBackups: v.GetInt("logging.max_backups"),
			MaxAge:     v.GetInt("logging.max_age"),
			Compress:   v.GetBool("logging.compress"),
			Verbose:    v.GetBool("logging.verbose"),
		},
		Notifier: NotifierConfig{
			URL:     v.GetString("notifier.url"),
			Token:   v.GetString("notifier.token"),
			Timeout: v.GetDuration("notifier.timeout"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
		},
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = "http://localhost:" + cfg.Server.Port
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// stringSlice reads a list that may also be given as one comma-separated string
func stringSlice(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// validate validates the configuration values
func (c *Config) validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got: %q", c.Server.Port)
	}

	for name, d := range map[string]time.Duration{
		"server read timeout":     c.Server.ReadTimeout,
		"server write timeout":    c.Server.WriteTimeout,
		"server idle timeout":     c.Server.IdleTimeout,
		"server shutdown timeout": c.Server.ShutdownTimeout,
		"cache max ttl":           c.Cache.MaxTTL,
		"notifier timeout":        c.Notifier.Timeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got: %v", name, d)
		}
	}

	for _, origin := range c.Server.CORSOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("cors origin must start with http:// or https://, got: %q", origin)
		}
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database path cannot be empty")
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("database url cannot be empty for the postgres driver")
		}
		if c.Database.MaxConns <= 0 || c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
			return fmt.Errorf("database pool bounds are invalid: min %d, max %d", c.Database.MinConns, c.Database.MaxConns)
		}
	default:
		return fmt.Errorf("unknown database driver: %q", c.Database.Driver)
	}

	switch c.Cache.Backend {
	case CacheMemory, CacheNone:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("redis address cannot be empty for the redis cache")
		}
	default:
		return fmt.Errorf("unknown cache backend: %q", c.Cache.Backend)
	}

	if c.Links.DefaultValidity <= 0 {
		return fmt.Errorf("default validity must be positive, got: %d", c.Links.DefaultValidity)
	}
	if c.Links.ListLimit <= 0 {
		return fmt.Errorf("list limit must be positive, got: %d", c.Links.ListLimit)
	}

	switch c.Shortener.Type {
	case shortener.TypeRandom:
		if c.Shortener.CodeLength < 3 || c.Shortener.CodeLength > 20 {
			return fmt.Errorf("code length must be between 3 and 20, got: %d", c.Shortener.CodeLength)
		}
	case shortener.TypeCounter:
		if c.Shortener.CounterStep <= 0 {
			return fmt.Errorf("counter step must be positive, got: %d", c.Shortener.CounterStep)
		}
	default:
		return fmt.Errorf("unknown generator type: %q", c.Shortener.Type)
	}
	if c.Shortener.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive, got: %d", c.Shortener.MaxAttempts)
	}

	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("log format must be text or json, got: %q", c.Logging.Format)
	}

	return nil
}
