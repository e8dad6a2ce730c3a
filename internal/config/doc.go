// Package config handles configuration loading for auphere-gateway.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from AUPHERE_CONFIG environment variable
//  2. ./config.yaml (current directory)
//  3. ~/.config/auphere/gateway.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${AUPHERE_JWT_SECRET}"
//	geocoding:
//	  api_key: "${GOOGLE_PLACES_API_KEY}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	upstreams:
//	  places:
//	    timeout: "10s"
//	  agent:
//	    query_timeout: "30s"
//	    stream_timeout: "180s"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8000"
//	  shutdown_timeout: "5s"
//
// Upstream services:
//
//	upstreams:
//	  places:
//	    base_url: "http://127.0.0.1:8002"
//	    default_city: "Zaragoza"
//	    timeout: "10s"
//	  agent:
//	    base_url: "http://localhost:8001"
//	    query_timeout: "30s"
//	    stream_timeout: "180s"
//
// Geocoding provider (API key optional; endpoints report 503 when unset):
//
//	geocoding:
//	  api_key: "${GOOGLE_PLACES_API_KEY}"
//	  base_url: "https://maps.googleapis.com/maps/api"
//	  timeout: "10s"
//
// Plan database:
//
//	database:
//	  path: "/var/lib/auphere/gateway.db"
//
// Authentication:
//
//	auth:
//	  enabled: true
//	  jwt_secret: "${AUPHERE_JWT_SECRET}"
//
// Cross-origin and rate limiting:
//
//	cors:
//	  allowed_origins: ["https://app.auphere.example"]
//	rate_limit:
//	  enabled: true
//	  requests: 100
//	  window: "1m"
//
// Geocoding response cache:
//
//	cache:
//	  ttl: "1h"
//	  max_entries: 4096
//
// Logging and metrics:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json, color
//	metrics:
//	  enabled: true
//	  path: "/metrics"
//
// # Validation
//
// Load() validates:
//
//   - Server listen address presence
//   - Upstream base URL presence
//   - JWT secret presence when auth is enabled
//   - Duration format validity
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load("/etc/auphere/gateway.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
