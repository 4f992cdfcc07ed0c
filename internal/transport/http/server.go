package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joshdurbin/shortlink/internal/logger"
	"github.com/joshdurbin/shortlink/internal/notify"
	"github.com/joshdurbin/shortlink/internal/service"
)

// Config holds the HTTP server settings
type Config struct {
	Port           string
	BaseURL        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	CORSOrigins    []string
	TrustedProxies []string
	Verbose        bool
	Metrics        bool
}

// Server represents the HTTP server
type Server struct {
	handler *Handler
	router  *gin.Engine
	server  *http.Server
	port    string
}

// NewServer creates a new HTTP server
func NewServer(registry service.LinkRegistry, notifier notify.Notifier, cfg Config) (*Server, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:" + cfg.Port
	}
	if notifier == nil {
		notifier = notify.Noop{}
	}

	handler := NewHandler(registry, cfg.BaseURL)

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	router.Use(Recovery())
	router.Use(RequestLogger(cfg.Verbose))
	router.Use(Metrics())
	router.Use(CORS(cfg.CORSOrigins))
	router.Use(Notify(notifier))

	registerRoutes(router, handler, cfg.Metrics)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &Server{
		handler: handler,
		router:  router,
		server:  server,
		port:    cfg.Port,
	}, nil
}

func registerRoutes(router *gin.Engine, handler *Handler, withMetrics bool) {
	api := router.Group("/api")
	{
		api.POST("/shorturls", handler.CreateLink)
		api.GET("/shorturls/:shortcode", handler.Stats)
		api.GET("/shorturls/:shortcode/export", handler.Export)
		api.GET("/urls", handler.ListLinks)
		api.GET("/health", handler.Health)
	}

	if withMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	router.GET("/:shortcode", handler.Redirect)

	router.NoRoute(func(c *gin.Context) {
		abortWithError(c, http.StatusNotFound, msgNotFound)
	})
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	logger.Get().Info("Server listening", slog.String("address", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Get().Info("Server shutting down")
	return s.server.Shutdown(ctx)
}

// Port returns the server port
func (s *Server) Port() string {
	return s.port
}

// Router returns the gin engine (useful for testing)
func (s *Server) Router() http.Handler {
	return s.router
}

// Handler returns the server handler
func (s *Server) Handler() *Handler {
	return s.handler
}
