// Package upstream provides HTTP clients for the services this gateway
// fronts: the places search service, the agent service, and the external
// geocoding provider.
//
// Each client wraps a shared base client carrying a fixed base URL, a
// request timeout, and a circuit breaker. Clients hold no per-request
// state and are safe for concurrent use.
//
// # Error Taxonomy
//
// Failures split into two distinct conditions callers must tell apart:
//
//   - ErrUnavailable: the upstream could not be reached at all
//     (connection refused, timeout, open circuit breaker).
//   - StatusError: the upstream responded with a non-success status.
//     The status, content type, and body are carried verbatim so the
//     caller can forward them unmodified.
//
// Context cancellation is reported as the context's own error and is
// never counted against the circuit breaker.
package upstream
