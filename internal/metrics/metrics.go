package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Price calculation metrics
	CalculationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "price_calculations_total",
			Help: "Total number of price calculations by outcome",
		},
		[]string{"outcome"},
	)

	CalculationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "price_calculation_duration_seconds",
			Help:    "Price calculation duration in seconds, catalog lookup included",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Sync controller metrics
	SyncTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_sync_transitions_total",
			Help: "Total number of sync status transitions",
		},
		[]string{"status"},
	)

	StaleResultsDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quote_sync_stale_results_discarded_total",
			Help: "Calculation results discarded because a newer edit superseded them",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quote_sync_active_sessions",
			Help: "Number of live quote-editing sessions",
		},
	)

	// Catalog metrics
	CatalogLookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "package_catalog_lookup_duration_seconds",
			Help:    "Package catalog lookup duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	CatalogCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "package_catalog_cache_total",
			Help: "Package catalog cache lookups by result",
		},
		[]string{"result"},
	)
)

// RecordCalculation records one calculation outcome with its duration.
// Outcome is "priced", "on_request", or a failure reason code.
func RecordCalculation(outcome string, duration time.Duration) {
	CalculationsTotal.WithLabelValues(outcome).Inc()
	CalculationDuration.Observe(duration.Seconds())
}

// RecordTransition records one sync status transition.
func RecordTransition(status string) {
	SyncTransitionsTotal.WithLabelValues(status).Inc()
}

// RecordCatalogLookup records one catalog lookup with its source
// ("cache", "store") and duration.
func RecordCatalogLookup(source string, duration time.Duration) {
	CatalogLookupDuration.WithLabelValues(source).Observe(duration.Seconds())
}
