// Package httpapi exposes the gateway's public HTTP surface: place
// search and detail proxying, the chat relay (JSON and SSE), plan CRUD,
// geocoding passthrough, and the authentication endpoints.
//
// Handlers translate between the public contract and each upstream's
// native shape and hold no request-scoped state beyond the context.
// Error responses use the {"detail": ...} envelope, except where an
// upstream application error is forwarded unmodified.
package httpapi
