package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joshdurbin/shortlink/internal/domain"
	"github.com/joshdurbin/shortlink/internal/logger"
	"github.com/joshdurbin/shortlink/internal/report"
	"github.com/joshdurbin/shortlink/internal/service"
)

const (
	serviceName = "URL Shortener Microservice"

	notifyPackage = "url-shortener"

	healthTimeout = 2 * time.Second
)

// Error messages returned to API clients
const (
	msgURLRequired      = "URL is required"
	msgInvalidURL       = "Invalid URL format"
	msgInvalidValidity  = "Validity must be a positive integer (minutes)"
	msgInvalidShortcode = "Shortcode must be alphanumeric and 3-20 characters long"
	msgShortcodeTaken   = "Shortcode already exists"
	msgNotFound         = "Short URL not found"
	msgExpired          = "Short URL has expired"
	msgInvalidJSON      = "Invalid JSON"
	msgInternal         = "Internal server error"
)

// Handler holds the HTTP handlers for the link service
type Handler struct {
	registry service.LinkRegistry
	baseURL  string
	now      func() time.Time
}

// NewHandler creates a new HTTP handler
func NewHandler(registry service.LinkRegistry, baseURL string) *Handler {
	return &Handler{
		registry: registry,
		baseURL:  baseURL,
		now:      time.Now,
	}
}

// CreateLink handles POST /api/shorturls
func (h *Handler) CreateLink(c *gin.Context) {
	var req domain.CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.FromContext(c.Request.Context()).Warn("Invalid JSON in create request", slog.String("error", err.Error()))
		abortWithError(c, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	input := domain.CreateLinkInput{URL: req.URL, Shortcode: req.Shortcode}
	if req.Validity != nil {
		minutes, err := parseValidity(req.Validity)
		if err != nil {
			h.writeError(c, err)
			return
		}
		input.ValidityMinutes = &minutes
	}

	link, err := h.registry.Create(c.Request.Context(), input)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, domain.CreateLinkResponse{
		ShortLink: h.shortLink(link.Shortcode),
		Expiry:    link.ExpiryDate,
		Shortcode: link.Shortcode,
	})
}

// Redirect handles GET /:shortcode
func (h *Handler) Redirect(c *gin.Context) {
	referrer := c.GetHeader("Referer")
	if referrer == "" {
		referrer = c.GetHeader("Referrer")
	}
	meta := domain.ClickMeta{
		Referrer:  referrer,
		UserAgent: c.Request.UserAgent(),
		IP:        c.ClientIP(),
	}

	destination, err := h.registry.Resolve(c.Request.Context(), c.Param("shortcode"), meta)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Redirect(http.StatusFound, destination)
}

// Stats handles GET /api/shorturls/:shortcode
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.registry.Stats(c.Request.Context(), c.Param("shortcode"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	link := stats.Link
	analytics := make([]domain.ClickResponse, 0, len(stats.Clicks))
	for _, click := range stats.Clicks {
		analytics = append(analytics, domain.ClickResponse{
			Timestamp: click.Timestamp,
			Referrer:  click.Referrer,
			UserAgent: click.UserAgent,
			IP:        click.IP,
			Location:  click.Location,
		})
	}

	c.JSON(http.StatusOK, domain.StatsResponse{
		Shortcode:   link.Shortcode,
		OriginalURL: link.OriginalURL,
		ShortLink:   h.shortLink(link.Shortcode),
		CreatedAt:   link.CreatedAt,
		ExpiryDate:  link.ExpiryDate,
		IsExpired:   link.IsExpired(h.now()),
		TotalClicks: link.ClickCount,
		Analytics:   analytics,
	})
}

// Export handles GET /api/shorturls/:shortcode/export
func (h *Handler) Export(c *gin.Context) {
	shortcode := c.Param("shortcode")
	stats, err := h.registry.Stats(c.Request.Context(), shortcode)
	if err != nil {
		h.writeError(c, err)
		return
	}

	data, err := report.WriteStats(stats, h.shortLink(stats.Link.Shortcode), h.now())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+report.Filename(stats.Link.Shortcode)+`"`)
	c.Data(http.StatusOK, report.ContentType, data)
}

// ListLinks handles GET /api/urls
func (h *Handler) ListLinks(c *gin.Context) {
	// a missing or malformed limit falls back to the registry default
	limit, _ := strconv.Atoi(c.Query("limit"))

	links, err := h.registry.List(c.Request.Context(), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	now := h.now()
	urls := make([]domain.LinkSummary, 0, len(links))
	for _, link := range links {
		urls = append(urls, domain.LinkSummary{
			Shortcode:   link.Shortcode,
			OriginalURL: link.OriginalURL,
			CreatedAt:   link.CreatedAt,
			ExpiryDate:  link.ExpiryDate,
			ClickCount:  link.ClickCount,
			ShortLink:   h.shortLink(link.Shortcode),
			IsExpired:   link.IsExpired(now),
		})
	}

	c.JSON(http.StatusOK, domain.ListResponse{
		URLs:      urls,
		Total:     len(urls),
		Timestamp: now.UTC(),
	})
}

// Health handles GET /api/health
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	database := "Connected"
	if err := h.registry.Ping(ctx); err != nil {
		logger.FromContext(ctx).Warn("Database ping failed", slog.String("error", err.Error()))
		database = "Disconnected"
	}

	c.JSON(http.StatusOK, domain.HealthResponse{
		Status:    "OK",
		Timestamp: h.now().UTC(),
		Service:   serviceName,
		Database:  database,
	})
}

func (h *Handler) shortLink(shortcode string) string {
	return h.baseURL + "/" + shortcode
}

// writeError maps domain errors to status codes. Internal faults are
// logged with detail and reported with a generic message.
func (h *Handler) writeError(c *gin.Context, err error) {
	status, message := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	abortWithError(c, status, message)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrURLRequired):
		return http.StatusBadRequest, msgURLRequired
	case errors.Is(err, domain.ErrInvalidURL):
		return http.StatusBadRequest, msgInvalidURL
	case errors.Is(err, domain.ErrInvalidValidity):
		return http.StatusBadRequest, msgInvalidValidity
	case errors.Is(err, domain.ErrInvalidShortcode):
		return http.StatusBadRequest, msgInvalidShortcode
	case errors.Is(err, domain.ErrShortcodeTaken):
		return http.StatusConflict, msgShortcodeTaken
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, msgNotFound
	case errors.Is(err, domain.ErrExpired):
		return http.StatusGone, msgExpired
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, domain.ErrorResponse{
		Error:     message,
		Timestamp: time.Now().UTC(),
	})
}

// parseValidity accepts a JSON number holding a positive integer
func parseValidity(v any) (int, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, domain.ErrInvalidValidity
		}
		f = parsed
	default:
		return 0, domain.ErrInvalidValidity
	}

	if f <= 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, domain.ErrInvalidValidity
	}
	return int(f), nil
}
