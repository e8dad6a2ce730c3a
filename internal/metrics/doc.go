// Package metrics provides Prometheus instrumentation for the gateway.
//
// Collectors are registered on the default registry via promauto and
// exposed at the /metrics endpoint in Prometheus text format.
//
// # Available Metrics
//
// HTTP surface:
//   - gateway_http_requests_total (counter): method, route, status
//   - gateway_http_request_duration_seconds (histogram): method, route
//   - gateway_http_active_requests (gauge)
//
// Upstream services:
//   - gateway_upstream_requests_total (counter): service, outcome
//   - gateway_upstream_request_duration_seconds (histogram): service
//
// Assistant streaming:
//   - gateway_streams_active (gauge)
//   - gateway_stream_events_total (counter): event
//
// Geocoding cache:
//   - gateway_geocoding_cache_hits_total (counter)
//   - gateway_geocoding_cache_misses_total (counter)
//
// The route label always carries the route pattern (for example
// /api/v1/places/{place_id}), never the raw request path, keeping label
// cardinality bounded.
package metrics
