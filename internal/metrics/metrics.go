// ABOUTME: Prometheus metrics for the HTTP surface, upstream proxying, and caching
// ABOUTME: Exposes package-level collectors plus small record helpers for handlers

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP surface
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_http_active_requests",
			Help: "Current number of in-flight HTTP requests",
		},
	)

	// Upstream services
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_upstream_requests_total",
			Help: "Total number of upstream requests by service and outcome",
		},
		[]string{"service", "outcome"}, // outcome: "ok", "upstream_error", "unavailable", "canceled"
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_upstream_request_duration_seconds",
			Help:    "Upstream request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	// Assistant streaming
	StreamsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_streams_active",
			Help: "Current number of open assistant event streams",
		},
	)

	StreamEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_stream_events_total",
			Help: "Total number of relayed stream events by type",
		},
		[]string{"event"},
	)

	// Geocoding response cache
	GeocodingCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_geocoding_cache_hits_total",
			Help: "Total number of geocoding cache hits",
		},
	)

	GeocodingCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_geocoding_cache_misses_total",
			Help: "Total number of geocoding cache misses",
		},
	)
)

// Upstream request outcomes
const (
	OutcomeOK            = "ok"
	OutcomeUpstreamError = "upstream_error"
	OutcomeUnavailable   = "unavailable"
	OutcomeCanceled      = "canceled"
)

// RecordHTTPRequest records a handled HTTP request
func RecordHTTPRequest(method, route, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge
func TrackActiveRequest(active bool) {
	if active {
		HTTPActiveRequests.Inc()
	} else {
		HTTPActiveRequests.Dec()
	}
}

// RecordUpstreamRequest records a proxied upstream request
func RecordUpstreamRequest(service, outcome string, duration time.Duration) {
	UpstreamRequestsTotal.WithLabelValues(service, outcome).Inc()
	UpstreamRequestDuration.WithLabelValues(service).Observe(duration.Seconds())
}

// TrackStream adjusts the open stream gauge
func TrackStream(active bool) {
	if active {
		StreamsActive.Inc()
	} else {
		StreamsActive.Dec()
	}
}

// RecordStreamEvent records a relayed stream event
func RecordStreamEvent(event string) {
	StreamEventsTotal.WithLabelValues(event).Inc()
}

// RecordGeocodingCache records a cache lookup result
func RecordGeocodingCache(hit bool) {
	if hit {
		GeocodingCacheHits.Inc()
	} else {
		GeocodingCacheMisses.Inc()
	}
}
