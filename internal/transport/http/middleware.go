package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/joshdurbin/shortlink/internal/logger"
	"github.com/joshdurbin/shortlink/internal/metrics"
	"github.com/joshdurbin/shortlink/internal/notify"
)

const (
	requestIDHeader = "X-Request-ID"

	// route label for requests that matched no registered route
	unmatchedRoute = "unmatched"
)

// bodyLogWriter wraps gin.ResponseWriter to capture the response body
type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyLogWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyLogWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// RequestLogger tags each request with an id and logs its completion.
// In verbose mode request bodies of POST/PUT requests and the bodies of
// error responses are logged too.
func RequestLogger(verbose bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = logger.NewRequestID()
		}
		c.Header(requestIDHeader, requestID)

		ctx := logger.WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)
		log := logger.FromContext(ctx)

		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path = path + "?" + c.Request.URL.RawQuery
		}

		var captured *bytes.Buffer
		if verbose {
			if c.Request.Method == http.MethodPost || c.Request.Method == http.MethodPut {
				logRequestBody(c, log)
			}
			captured = &bytes.Buffer{}
			c.Writer = &bodyLogWriter{ResponseWriter: c.Writer, body: captured}
		}

		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		} else if status >= http.StatusBadRequest {
			level = slog.LevelWarn
		}

		log.Log(ctx, level, "HTTP request completed",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
			slog.Int("size", c.Writer.Size()),
			slog.String("ip", c.ClientIP()),
			slog.String("user_agent", c.Request.UserAgent()),
		)

		for _, err := range c.Errors {
			log.Error("Request error occurred",
				slog.String("error", err.Error()),
				slog.String("type", strconv.FormatUint(uint64(err.Type), 10)),
			)
		}

		if captured != nil && captured.Len() > 0 && status >= http.StatusBadRequest {
			log.Info("Error response body", slog.String("body", captured.String()))
		}
	}
}

func logRequestBody(c *gin.Context, log *slog.Logger) {
	if c.Request.Body == nil {
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Warn("Failed to read request body", slog.String("error", err.Error()))
		return
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	if len(body) > 0 {
		log.Info("Request body", slog.String("body", string(body)))
	}
}

// Recovery turns a panic into a 500 with the standard error body
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		logger.FromContext(c.Request.Context()).Error("Panic recovered",
			slog.Any("panic", recovered),
			slog.String("path", c.Request.URL.Path),
		)
		abortWithError(c, http.StatusInternalServerError, msgInternal)
	})
}

// Metrics records request counts, latencies and in-flight requests
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		metrics.HTTPInFlight.Inc()
		defer metrics.HTTPInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		method := c.Request.Method
		metrics.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// CORS allows browser requests from the given origins
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader, "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// Notify forwards one entry per completed request to the notifier
func Notify(notifier notify.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		level := "info"
		if status >= http.StatusBadRequest {
			level = "error"
		}
		notifier.Notify(context.WithoutCancel(c.Request.Context()), notify.Entry{
			Level:   level,
			Package: notifyPackage,
			Message: fmt.Sprintf("%s %s - %d - %dms", c.Request.Method, c.Request.URL.Path, status, time.Since(start).Milliseconds()),
		})
	}
}
