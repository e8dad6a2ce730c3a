// ABOUTME: Package documentation for the gateway orchestrator
// ABOUTME: Explains component wiring and lifecycle management

// Package gateway wires the server components together and manages
// their lifecycle.
//
// New builds the dependency graph from configuration: the SQLite plan
// store, the geocoding response cache, the three upstream clients
// (places, agent, geocoding), the token verifier, and the HTTP API
// router. Run starts the HTTP server and blocks until the context is
// canceled or the server fails, then shuts everything down gracefully
// within the configured timeout.
//
// The gateway owns no request handling logic of its own; that lives in
// internal/httpapi.
package gateway
