package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the resolution and analytics pipeline.
// promauto registers everything with the default registry, which is what
// /metrics serves via promhttp.

var (
	// HTTP

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Resolution cache

	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "resolution_cache_hits_total",
			Help: "Total number of resolution cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "resolution_cache_misses_total",
			Help: "Total number of resolution cache misses",
		},
	)

	CacheOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resolution_cache_operation_duration_seconds",
			Help:    "Duration of resolution cache operations in seconds",
			Buckets: []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05},
		},
		[]string{"operation"},
	)

	// Business

	LinksCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "links_created_total",
			Help: "Total number of short links created",
		},
	)

	RedirectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redirects_total",
			Help: "Total number of successful redirects",
		},
	)

	ClicksRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clicks_recorded_total",
			Help: "Total number of click events recorded",
		},
		[]string{"status"},
	)

	ClickRecordFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "click_record_failures_total",
			Help: "Total number of click events that failed to persist",
		},
	)

	GeoLookupFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "geo_lookup_failures_total",
			Help: "Total number of failed geolocation lookups",
		},
	)

	// Rate limiting

	RateLimitedRequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limited_requests_total",
			Help: "Total number of rate-limited requests",
		},
	)

	// Aggregation

	AggregationRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregation_runs_total",
			Help: "Total number of aggregation passes",
		},
		[]string{"outcome"}, // success, partial, failure
	)

	AggregationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aggregation_run_duration_seconds",
			Help:    "Duration of a full aggregation pass in seconds",
			Buckets: []float64{.1, .5, 1, 5, 15, 60, 300},
		},
	)

	AggregationLinksSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aggregation_links_skipped_total",
			Help: "Total number of links skipped during aggregation due to errors",
		},
	)
)

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}

// RecordLinkCreated increments the link creation counter.
func RecordLinkCreated() {
	LinksCreatedTotal.Inc()
}

// RecordRedirect increments the redirect counter.
func RecordRedirect() {
	RedirectsTotal.Inc()
}

// RecordClickRecorded increments the click counter for a status.
func RecordClickRecorded(status string) {
	ClicksRecordedTotal.WithLabelValues(status).Inc()
}

// RecordRateLimited increments the rate-limited requests counter.
func RecordRateLimited() {
	RateLimitedRequestsTotal.Inc()
}
