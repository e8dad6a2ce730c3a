// ABOUTME: Chat endpoints: single-shot agent queries and chat management proxies.
// ABOUTME: The caller's message shape is translated into the agent's query schema.

package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/auphere/auphere-gateway/internal/auth"
	"github.com/auphere/auphere-gateway/internal/normalize"
	"github.com/auphere/auphere-gateway/internal/upstream"
)

// ChatRequest is the body for POST /chat and POST /chat/stream.
type ChatRequest struct {
	Message   string `json:"message" validate:"required"`
	SessionID string `json:"session_id"`
	Mode      string `json:"mode"`
}

// agentQuery translates a chat request into the agent's query schema. A
// missing session id is minted here so the caller always gets one back.
func agentQuery(req *ChatRequest, identity *auth.Identity) upstream.AgentQuery {
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	if req.Mode == "" {
		req.Mode = "explore"
	}
	return upstream.AgentQuery{
		UserID:    identity.ID,
		SessionID: req.SessionID,
		Query:     req.Message,
		Language:  "es",
		Context: upstream.QueryContext{
			Metadata: upstream.QueryMetadata{ChatMode: req.Mode},
		},
	}
}

func (a *API) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := a.validate.Struct(&req); err != nil {
		a.writeDetail(w, http.StatusBadRequest, "message is required")
		return
	}

	identity := auth.IdentityOrAnonymous(r.Context())
	raw, err := a.agent.Query(r.Context(), agentQuery(&req, identity))
	if err != nil {
		a.agentError(w, err)
		return
	}

	var agentResponse map[string]any
	if err := json.Unmarshal(raw, &agentResponse); err != nil {
		a.logger.Error("decoding agent response", "err", err)
		a.writeDetail(w, http.StatusInternalServerError, "Chat request failed")
		return
	}

	items, _ := agentResponse["places"].([]any)
	var plan map[string]any
	if p, ok := agentResponse["plan"].(map[string]any); ok {
		plan = normalize.Plan(p)
	}
	responseText, _ := agentResponse["response_text"].(string)

	a.writeJSON(w, http.StatusOK, map[string]any{
		"response":   responseText,
		"session_id": req.SessionID,
		"places":     normalize.ChatPlaces(items),
		"plan":       plan,
		"metadata": map[string]any{
			"intention":          agentResponse["intention"],
			"confidence":         agentResponse["confidence"],
			"model_used":         agentResponse["model_used"],
			"processing_time_ms": agentResponse["processing_time_ms"],
		},
	})
}

func (a *API) handleChatList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q, "limit", 50)
	if err != nil {
		a.writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := intParam(q, "offset", 0)
	if err != nil {
		a.writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	identity := auth.IdentityOrAnonymous(r.Context())
	raw, err := a.agent.ListChats(r.Context(), identity.ID, limit, offset)
	if err != nil {
		a.agentError(w, err)
		return
	}
	a.writeRaw(w, http.StatusOK, "application/json", raw)
}

func (a *API) handleChatInfo(w http.ResponseWriter, r *http.Request) {
	raw, err := a.agent.GetChat(r.Context(), chi.URLParam(r, "chat_id"))
	if err != nil {
		a.agentError(w, err)
		return
	}
	a.writeRaw(w, http.StatusOK, "application/json", raw)
}

// handleChatCreate forwards the payload with the caller's identity
// stamped in, so a client can never create a chat for someone else.
func (a *API) handleChatCreate(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := decodeJSON(r, &payload); err != nil {
		a.writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if payload == nil {
		payload = map[string]any{}
	}
	payload["user_id"] = auth.IdentityOrAnonymous(r.Context()).ID

	raw, err := a.agent.CreateChat(r.Context(), payload)
	if err != nil {
		a.agentError(w, err)
		return
	}
	a.writeRaw(w, http.StatusOK, "application/json", raw)
}

func (a *API) handleChatUpdate(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := decodeJSON(r, &payload); err != nil {
		a.writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	raw, err := a.agent.UpdateChat(r.Context(), chi.URLParam(r, "chat_id"), payload)
	if err != nil {
		a.agentError(w, err)
		return
	}
	a.writeRaw(w, http.StatusOK, "application/json", raw)
}

func (a *API) handleChatDelete(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityOrAnonymous(r.Context())
	if err := a.agent.DeleteChat(r.Context(), chi.URLParam(r, "chat_id"), identity.ID); err != nil {
		a.agentError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (a *API) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query(), "limit", 50)
	if err != nil {
		a.writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	raw, err := a.agent.ChatHistory(r.Context(), chi.URLParam(r, "chat_id"), limit)
	if err != nil {
		a.agentError(w, err)
		return
	}
	a.writeRaw(w, http.StatusOK, "application/json", raw)
}
