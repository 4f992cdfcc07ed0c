// Package notify forwards log entries to an external HTTP collector.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// DefaultTimeout bounds every delivery
const DefaultTimeout = 5 * time.Second

const stack = "backend"

// Entry is one forwarded log line
type Entry struct {
	Level   string
	Package string
	Message string
}

// Notifier delivers entries without blocking the caller
type Notifier interface {
	Notify(ctx context.Context, entry Entry)
	Close() error
}

type payload struct {
	Stack   string `json:"stack"`
	Level   string `json:"level"`
	Package string `json:"package"`
	Message string `json:"message"`
}

// Config holds the collector endpoint
type Config struct {
	URL     string
	Token   string
	Timeout time.Duration
}

// HTTPNotifier POSTs each entry as JSON on its own goroutine
type HTTPNotifier struct {
	url    string
	token  string
	client *http.Client
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New returns an HTTPNotifier, or a Noop when cfg.URL is empty
func New(cfg Config, logger *slog.Logger) Notifier {
	if cfg.URL == "" {
		return Noop{}
	}
	return NewHTTP(cfg, logger)
}

// NewHTTP creates an HTTPNotifier
func NewHTTP(cfg Config, logger *slog.Logger) *HTTPNotifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPNotifier{
		url:    cfg.URL,
		token:  cfg.Token,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Notify schedules delivery of entry and returns immediately.
// Entries sent after Close are dropped.
func (n *HTTPNotifier) Notify(ctx context.Context, entry Entry) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.wg.Add(1)
	n.mu.Unlock()

	// detached from the request so a finished request does not cancel delivery
	ctx = context.WithoutCancel(ctx)

	go func() {
		defer n.wg.Done()
		if err := n.send(ctx, entry); err != nil {
			n.logger.Warn("log delivery failed", slog.String("error", err.Error()))
		}
	}()
}

func (n *HTTPNotifier) send(ctx context.Context, entry Entry) error {
	body, err := json.Marshal(payload{
		Stack:   stack,
		Level:   strings.ToLower(entry.Level),
		Package: strings.ToLower(entry.Package),
		Message: entry.Message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if n.token != "" {
		req.Header.Set("Authorization", n.token)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("collector returned %s", resp.Status)
	}
	return nil
}

// Close stops accepting entries and waits for in-flight deliveries
func (n *HTTPNotifier) Close() error {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()

	n.wg.Wait()
	return nil
}

// Noop discards every entry
type Noop struct{}

func (Noop) Notify(ctx context.Context, entry Entry) {}

func (Noop) Close() error { return nil }
