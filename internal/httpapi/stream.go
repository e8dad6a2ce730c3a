// ABOUTME: SSE relay for POST /chat/stream: agent events are forwarded as they
// ABOUTME: arrive, with the terminal end event rewritten to normalized shapes.

package httpapi

import (
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/auphere/auphere-gateway/internal/auth"
	"github.com/auphere/auphere-gateway/internal/metrics"
	"github.com/auphere/auphere-gateway/internal/normalize"
	"github.com/auphere/auphere-gateway/internal/upstream"
)

// streamFailureNotice is the data of the synthesized terminal error event
// sent when the agent stream drops before emitting its own terminal event.
// Clients rely on every stream ending with exactly one end or error event.
const streamFailureNotice = `{"content": "No pudimos conectar con el asistente. Intenta de nuevo."}`

func (a *API) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := a.validate.Struct(&req); err != nil {
		a.writeDetail(w, http.StatusBadRequest, "message is required")
		return
	}

	// Check streaming support before opening the upstream stream.
	flusher, ok := w.(http.Flusher)
	if !ok {
		a.logger.Error("streaming not supported")
		a.writeDetail(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	identity := auth.IdentityOrAnonymous(r.Context())
	stream, err := a.agent.QueryStream(r.Context(), agentQuery(&req, identity))
	if err != nil {
		// Headers are not committed yet, so connect failures surface as
		// ordinary HTTP errors rather than an SSE error event.
		a.agentError(w, err)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	metrics.TrackStream(true)
	defer metrics.TrackStream(false)

	for {
		select {
		case <-r.Context().Done():
			// Caller went away; closing the stream cancels the upstream request.
			return

		case ev, ok := <-stream.Events():
			if !ok {
				// The stream ended without a terminal event. Tell the client
				// instead of leaving the connection to time out.
				if err := stream.Err(); err != nil {
					a.logger.Error("agent stream interrupted", "err", err)
				}
				metrics.RecordStreamEvent(upstream.EventError)
				writeSSE(w, flusher, upstream.EventError, []byte(streamFailureNotice))
				return
			}

			metrics.RecordStreamEvent(ev.Type)
			data := ev.Data
			if ev.Type == upstream.EventEnd {
				data = rewriteEndEvent(data)
			}
			writeSSE(w, flusher, ev.Type, data)
			if ev.Terminal() {
				return
			}
		}
	}
}

// rewriteEndEvent normalizes the places and plan payloads embedded in the
// agent's end event. Undecodable data is forwarded untouched.
func rewriteEndEvent(data []byte) []byte {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return data
	}

	if items, ok := payload["places"].([]any); ok && len(items) > 0 {
		payload["places"] = normalize.ChatPlaces(items)
	}
	if plan, ok := payload["plan"].(map[string]any); ok && len(plan) > 0 {
		payload["plan"] = normalize.Plan(plan)
	}

	out, err := json.Marshal(payload)
	if err != nil {
		return data
	}
	return out
}

// writeSSE writes a single event in the standard wire format:
// event: <type>\ndata: <data>\n\n
func writeSSE(w http.ResponseWriter, flusher http.Flusher, event string, data []byte) {
	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}
