// ABOUTME: Shared JSON encode/decode helpers for the HTTP handlers.
// ABOUTME: Error responses carry the {"detail": ...} envelope.

package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/auphere/auphere-gateway/internal/upstream"
)

// maxBodySize bounds inbound request bodies.
const maxBodySize = 1 << 20

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("encoding response", "err", err)
	}
}

// writeDetail writes the error envelope used across the public API.
func (a *API) writeDetail(w http.ResponseWriter, status int, detail string) {
	a.writeJSON(w, status, map[string]string{"detail": detail})
}

// writeRaw forwards an upstream payload unmodified.
func (a *API) writeRaw(w http.ResponseWriter, status int, contentType string, body []byte) {
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		a.logger.Debug("writing response body", "err", err)
	}
}

// decodeJSON decodes a bounded request body into v.
func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodySize)).Decode(v)
}

// placesError maps a places client failure onto the public contract:
// upstream application errors keep their status with the service error
// detail, unreachable upstreams become a distinct 502.
func (a *API) placesError(w http.ResponseWriter, err error) {
	var statusErr *upstream.StatusError
	switch {
	case errors.Is(err, context.Canceled):
		// Caller is gone; nothing to write.
	case errors.As(err, &statusErr):
		a.writeDetail(w, statusErr.Status, "Places service error: "+string(statusErr.Body))
	case errors.Is(err, upstream.ErrUnavailable):
		a.writeDetail(w, http.StatusBadGateway, "Failed to reach places service")
	default:
		a.writeDetail(w, http.StatusInternalServerError, "Search failed")
	}
}

// agentError maps an agent client failure: application errors are
// forwarded verbatim, transport failures become a distinct 502.
func (a *API) agentError(w http.ResponseWriter, err error) {
	var statusErr *upstream.StatusError
	switch {
	case errors.Is(err, context.Canceled):
		// Caller is gone; nothing to write.
	case errors.As(err, &statusErr):
		a.writeRaw(w, statusErr.Status, statusErr.ContentType, statusErr.Body)
	case errors.Is(err, upstream.ErrUnavailable):
		a.writeDetail(w, http.StatusBadGateway, "Failed to reach agent service")
	default:
		a.writeDetail(w, http.StatusInternalServerError, "Chat request failed")
	}
}
