// Package analytics appends click events for successful resolutions.
package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/joshdurbin/shortlink/internal/domain"
	"github.com/joshdurbin/shortlink/internal/logger"
	"github.com/joshdurbin/shortlink/internal/metrics"
)

// ClickStore is the store side of the recorder
type ClickStore interface {
	RecordClick(ctx context.Context, click *domain.ClickEvent) error
}

// Recorder writes one click event per resolution. Failures are logged and
// counted but never returned, so a redirect is not undone by analytics.
type Recorder struct {
	store ClickStore
}

// NewRecorder creates a Recorder
func NewRecorder(store ClickStore) *Recorder {
	return &Recorder{store: store}
}

// Record appends a click for shortcode at the given instant.
// It reports whether the event was stored.
func (r *Recorder) Record(ctx context.Context, shortcode string, at time.Time, meta domain.ClickMeta) bool {
	meta = meta.WithDefaults()

	click := &domain.ClickEvent{
		Shortcode: shortcode,
		Timestamp: at,
		Referrer:  meta.Referrer,
		UserAgent: meta.UserAgent,
		IP:        meta.IP,
		Location:  meta.Location,
	}

	if err := r.store.RecordClick(ctx, click); err != nil {
		metrics.ClickRecordErrorsTotal.Inc()
		logger.FromContext(ctx).Warn("failed to record click",
			slog.String("shortcode", shortcode),
			slog.String("error", err.Error()),
		)
		return false
	}

	metrics.ClicksRecordedTotal.Inc()
	return true
}
