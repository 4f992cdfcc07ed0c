package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/joshdurbin/shortlink/internal/config"
	"github.com/joshdurbin/shortlink/internal/logger"
	"github.com/joshdurbin/shortlink/internal/notify"
	"github.com/joshdurbin/shortlink/internal/service"
	"github.com/joshdurbin/shortlink/internal/shortener"
	"github.com/joshdurbin/shortlink/internal/transport/client"
	httpTransport "github.com/joshdurbin/shortlink/internal/transport/http"
)

const defaultServerURL = "http://localhost:5000"

var rootCmd = &cobra.Command{
	Use:          "shortlink",
	Short:        "A URL shortening service written in Go",
	Long:         "A URL shortening service with click analytics, a SQLite or PostgreSQL store and an optional memory or Redis cache",
	SilenceUsage: true,
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the URL shortening server",
	RunE:  runServer,
}

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Client commands for interacting with the server",
}

var createCmd = &cobra.Command{
	Use:   "create [URL]",
	Short: "Create a short link",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreate,
}

var statsCmd = &cobra.Command{
	Use:   "stats [SHORTCODE]",
	Short: "Show the statistics of a short link",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List active short links",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check server health",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

var exportCmd = &cobra.Command{
	Use:   "export [SHORTCODE]",
	Short: "Download the statistics of a short link as an XLSX workbook",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

// serverFlags maps server command flags to configuration keys
var serverFlags = map[string]string{
	"port":                   "server.port",
	"base-url":               "server.base_url",
	"db-driver":              "database.driver",
	"db-path":                "database.path",
	"database-url":           "database.url",
	"cache":                  "cache.backend",
	"redis-addr":             "cache.redis_addr",
	"generator":              "links.generator",
	"shortener-counter-step": "links.counter_step",
	"default-validity":       "links.default_validity",
	"log-level":              "logging.level",
	"log-format":             "logging.format",
	"log-file":               "logging.file",
	"verbose":                "logging.verbose",
	"metrics":                "metrics.enabled",
}

func init() {
	// Server command flags
	serverCmd.Flags().String("config", "", "Config file (yaml, json or toml)")
	serverCmd.Flags().StringP("port", "p", "5000", "Server port")
	serverCmd.Flags().String("base-url", "", "Base URL of generated short links (default http://localhost:<port>)")
	serverCmd.Flags().String("db-driver", config.DriverSQLite, "Store driver: sqlite or postgres")
	serverCmd.Flags().String("db-path", "shortlink.db", "SQLite database file path")
	serverCmd.Flags().String("database-url", "", "PostgreSQL connection URL")
	serverCmd.Flags().String("cache", config.CacheMemory, "Link cache: memory, redis or none")
	serverCmd.Flags().String("redis-addr", "localhost:6379", "Redis address for the redis cache")

	// Shortener configuration flags
	serverCmd.Flags().String("generator", shortener.TypeRandom, "Shortcode generator: random or counter")
	serverCmd.Flags().Int64("shortener-counter-step", 100, "Counter values reserved per store round trip")
	serverCmd.Flags().Int("default-validity", service.DefaultValidityMinutes, "Default link validity in minutes")

	// Logging configuration flags
	serverCmd.Flags().String("log-level", "info", "Log level: debug, info, warn or error")
	serverCmd.Flags().String("log-format", "text", "Log format: text or json")
	serverCmd.Flags().String("log-file", "", "Also write logs to this rotating file")
	serverCmd.Flags().BoolP("verbose", "v", false, "Enable verbose logging (HTTP request bodies and error responses)")
	serverCmd.Flags().Bool("metrics", true, "Expose prometheus metrics on /metrics")

	// Client command flags
	clientCmd.PersistentFlags().StringP("server-url", "u", defaultServerURL, "Server URL")
	createCmd.Flags().Int("validity", 0, "Validity in minutes (server default when omitted)")
	createCmd.Flags().String("shortcode", "", "Custom shortcode")
	listCmd.Flags().Int("limit", 0, "Maximum number of links (server default when omitted)")
	exportCmd.Flags().StringP("out", "o", "", "Output file (server suggested name when omitted)")

	// Add subcommands
	clientCmd.AddCommand(createCmd, statsCmd, listCmd, healthCmd, exportCmd)
	rootCmd.AddCommand(serverCmd, clientCmd)
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := config.NewViper()
	for flag, key := range serverFlags {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", flag, err)
		}
	}
	configFile, _ := cmd.Flags().GetString("config")
	return config.Load(v, configFile)
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := logger.Initialize(cfg.Logging.Logger()); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Close() }()

	log := logger.Get()
	log.Info("Starting URL shortener server",
		slog.String("port", cfg.Server.Port),
		slog.String("driver", cfg.Database.Driver),
		slog.String("cache", cfg.Cache.Backend),
		slog.String("log_level", cfg.Logging.Level),
	)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	registry, notifier, err := buildRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := registry.Close(); err != nil {
			log.Error("Error closing registry", slog.String("error", err.Error()))
		}
	}()

	// Create and start HTTP server
	server, err := httpTransport.NewServer(registry, notifier, httpTransport.Config{
		Port:           cfg.Server.Port,
		BaseURL:        cfg.Server.BaseURL,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		CORSOrigins:    cfg.Server.CORSOrigins,
		TrustedProxies: cfg.Server.TrustedProxies,
		Verbose:        cfg.Logging.Verbose,
		Metrics:        cfg.Metrics.Enabled,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Set up graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in a goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-sigChan:
		log.Info("Shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Forced shutdown", slog.String("error", err.Error()))
		}
	}

	log.Info("Server stopped")
	return nil
}

// buildRegistry opens the store and cache and assembles the link registry,
// which owns them from then on.
func buildRegistry(ctx context.Context, cfg *config.Config) (service.LinkRegistry, notify.Notifier, error) {
	log := logger.Get()

	repo, err := openStore(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	generator, err := shortener.NewGenerator(cfg.Shortener, repo)
	if err != nil {
		_ = repo.Close()
		return nil, nil, fmt.Errorf("failed to create shortener generator: %w", err)
	}
	log.Info("Shortener generator ready", slog.String("type", generator.Type()))

	linkCache, err := openCache(ctx, cfg.Cache)
	if err != nil {
		_ = generator.Close()
		_ = repo.Close()
		return nil, nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	notifier := notify.New(notify.Config{
		URL:     cfg.Notifier.URL,
		Token:   cfg.Notifier.Token,
		Timeout: cfg.Notifier.Timeout,
	}, log)
	if cfg.Notifier.URL != "" {
		log.Info("Forwarding logs to external sink", slog.String("url", cfg.Notifier.URL))
	}

	registry := service.NewLinkRegistry(repo, linkCache, generator, notifier, service.Options{
		DefaultValidityMinutes: cfg.Links.DefaultValidity,
		ListLimit:              cfg.Links.ListLimit,
		CacheMaxTTL:            cfg.Cache.MaxTTL,
		MaxAttempts:            cfg.Shortener.MaxAttempts,
	})
	return registry, notifier, nil
}

func newCommands(cmd *cobra.Command) *client.Commands {
	serverURL, _ := cmd.Flags().GetString("server-url")
	return client.NewCommands(client.NewClient(serverURL), cmd.OutOrStdout())
}

func clientContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), client.DefaultTimeout)
}

func runCreate(cmd *cobra.Command, args []string) error {
	var validity *int
	if cmd.Flags().Changed("validity") {
		v, _ := cmd.Flags().GetInt("validity")
		validity = &v
	}
	shortcode, _ := cmd.Flags().GetString("shortcode")

	ctx, cancel := clientContext()
	defer cancel()

	return newCommands(cmd).Create(ctx, args[0], validity, shortcode)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := clientContext()
	defer cancel()

	return newCommands(cmd).Stats(ctx, args[0])
}

func runList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	ctx, cancel := clientContext()
	defer cancel()

	return newCommands(cmd).List(ctx, limit)
}

func runHealth(cmd *cobra.Command, args []string) error {
	ctx, cancel := clientContext()
	defer cancel()

	return newCommands(cmd).Health(ctx)
}

func runExport(cmd *cobra.Command, args []string) error {
	out, _ := cmd.Flags().GetString("out")

	ctx, cancel := clientContext()
	defer cancel()

	return newCommands(cmd).Export(ctx, args[0], out)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
