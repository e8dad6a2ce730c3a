// Package cache provides a TTL-based in-process cache for upstream response
// bodies, bounding repeated calls to the geocoding provider within a
// configurable window.
package cache
