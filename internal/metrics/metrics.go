// Package metrics holds the prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Redirect outcomes
const (
	OutcomeRedirected = "redirected"
	OutcomeNotFound   = "not_found"
	OutcomeExpired    = "expired"
	OutcomeError      = "error"
)

// Cache lookup results
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shortlink_http_requests_total",
		Help: "Total number of HTTP requests processed.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shortlink_http_request_duration_seconds",
		Help:    "HTTP request latencies in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	HTTPInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shortlink_http_inflight_requests",
		Help: "Number of HTTP requests currently being served.",
	})

	LinksCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shortlink_links_created_total",
		Help: "Short links successfully created.",
	})

	RedirectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shortlink_redirects_total",
		Help: "Shortcode resolution attempts by outcome.",
	}, []string{"outcome"})

	ClicksRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shortlink_clicks_recorded_total",
		Help: "Click events successfully written to the store.",
	})

	ClickRecordErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shortlink_click_record_errors_total",
		Help: "Click event writes that failed.",
	})

	CacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shortlink_cache_lookups_total",
		Help: "Link cache lookups by result.",
	}, []string{"result"})
)
