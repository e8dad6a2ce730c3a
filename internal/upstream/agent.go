// ABOUTME: Client for the agent service: single-shot queries, SSE streams, chat management.
// ABOUTME: The stream reader preserves upstream event order and stops on cancel or terminal event.

package upstream

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/auphere/auphere-gateway/internal/config"
	"github.com/goccy/go-json"
)

// Event types the agent emits over its SSE stream. End and error are
// terminal: the stream carries no further events after either.
const (
	EventStatus = "status"
	EventToken  = "token"
	EventEnd    = "end"
	EventError  = "error"
)

// maxEventSize bounds a single SSE frame read from the agent.
const maxEventSize = 1 << 20

// AgentQuery is the request payload for the agent's query endpoints.
type AgentQuery struct {
	UserID    string       `json:"user_id"`
	SessionID string       `json:"session_id"`
	Query     string       `json:"query"`
	Language  string       `json:"language"`
	Context   QueryContext `json:"context"`
}

// QueryContext carries request metadata the agent threads through its
// tool pipeline.
type QueryContext struct {
	Metadata QueryMetadata `json:"metadata"`
}

// QueryMetadata selects how the agent should treat the conversation.
type QueryMetadata struct {
	ChatMode string `json:"chat_mode"`
}

// Event is one server-sent event read from the agent stream.
type Event struct {
	Type string
	Data []byte
}

// Terminal reports whether no further events follow this one.
func (e Event) Terminal() bool {
	return e.Type == EventEnd || e.Type == EventError
}

// AgentClient talks to the agent service.
type AgentClient struct {
	c *client

	// streaming bypasses the base client's timeout: a stream legitimately
	// outlives single-request deadlines, so it runs on its own client with
	// the configured stream timeout applied through the request context.
	stream        *http.Client
	streamTimeout time.Duration
}

// NewAgentClient builds an agent client from configuration.
func NewAgentClient(cfg config.AgentConfig, logger *slog.Logger) *AgentClient {
	return &AgentClient{
		c:             newClient("agent", cfg.BaseURL, cfg.QueryTimeout, logger),
		stream:        &http.Client{},
		streamTimeout: cfg.StreamTimeout,
	}
}

// Query sends a single-shot query and returns the agent's raw JSON
// response body.
func (a *AgentClient) Query(ctx context.Context, q AgentQuery) ([]byte, error) {
	resp, err := a.c.do(ctx, http.MethodPost, "/agent/query", nil, q)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// QueryStream opens the agent's streaming endpoint and returns a live
// Stream. The caller must call Close on the returned stream on every
// path; cancelling ctx also tears the stream down.
func (a *AgentClient) QueryStream(ctx context.Context, q AgentQuery) (*Stream, error) {
	payload, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("encoding agent query: %w", err)
	}

	var sctx context.Context
	var cancel context.CancelFunc
	if a.streamTimeout > 0 {
		sctx, cancel = context.WithTimeout(ctx, a.streamTimeout)
	} else {
		sctx, cancel = context.WithCancel(ctx)
	}

	req, err := http.NewRequestWithContext(sctx, http.MethodPost, a.c.baseURL+"/agent/query/stream", bytes.NewReader(payload))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("building stream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := a.stream.Do(req)
	if err != nil {
		cancel()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.c.logger.Error("agent stream connect failed", "err", err)
		return nil, fmt.Errorf("agent: %w", ErrUnavailable)
	}

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxEventSize))
		resp.Body.Close()
		cancel()
		return nil, &StatusError{
			Status:      resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
			Body:        body,
		}
	}

	s := &Stream{
		events: make(chan Event, 16),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	go s.read(resp.Body, a.c.logger)
	return s, nil
}

// ListChats fetches the user's chats from the agent.
func (a *AgentClient) ListChats(ctx context.Context, userID string, limit, offset int) ([]byte, error) {
	params := url.Values{}
	params.Set("user_id", userID)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	resp, err := a.c.do(ctx, http.MethodGet, "/chats", params, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// GetChat fetches a single chat by id.
func (a *AgentClient) GetChat(ctx context.Context, chatID string) ([]byte, error) {
	resp, err := a.c.do(ctx, http.MethodGet, "/chats/"+url.PathEscape(chatID), nil, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// CreateChat creates a chat with the given payload.
func (a *AgentClient) CreateChat(ctx context.Context, payload map[string]any) ([]byte, error) {
	resp, err := a.c.do(ctx, http.MethodPost, "/chats", nil, payload)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// UpdateChat applies a partial update, typically a rename.
func (a *AgentClient) UpdateChat(ctx context.Context, chatID string, payload map[string]any) ([]byte, error) {
	resp, err := a.c.do(ctx, http.MethodPatch, "/chats/"+url.PathEscape(chatID), nil, payload)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// DeleteChat removes a chat. The owning user id travels as a query
// parameter, matching the agent's contract.
func (a *AgentClient) DeleteChat(ctx context.Context, chatID, userID string) error {
	params := url.Values{}
	params.Set("user_id", userID)

	_, err := a.c.do(ctx, http.MethodDelete, "/chats/"+url.PathEscape(chatID), params, nil)
	return err
}

// ChatHistory fetches the message history for a chat.
func (a *AgentClient) ChatHistory(ctx context.Context, chatID string, limit int) ([]byte, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))

	resp, err := a.c.do(ctx, http.MethodGet, "/chats/"+url.PathEscape(chatID)+"/history", params, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Stream is one live agent event stream. Events arrive in upstream
// order on Events; the channel closes after a terminal event, on
// upstream EOF, or once the stream is closed. Err reports a read
// failure after the channel has closed.
type Stream struct {
	events chan Event
	done   chan struct{}
	cancel context.CancelFunc

	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

// Events returns the ordered event channel.
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Err reports why the stream ended, if it ended abnormally. Valid once
// Events has been closed.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close cancels the upstream request and releases its connection.
// Safe to call multiple times and concurrently with stream reads.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.cancel()
	})
}

func (s *Stream) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// read parses the upstream SSE wire format line by line and dispatches
// one Event per blank-line-terminated frame. The channel send blocks
// when the consumer lags, which bounds read-ahead to the channel
// buffer; a closed stream unblocks the send via done.
func (s *Stream) read(body io.ReadCloser, logger *slog.Logger) {
	defer close(s.events)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	var eventType string
	var data bytes.Buffer

	// dispatch sends the buffered frame. It reports false when reading
	// should stop: terminal event delivered or stream closed.
	dispatch := func() bool {
		if eventType == "" && data.Len() == 0 {
			return true
		}
		evt := Event{Type: eventType, Data: append([]byte(nil), data.Bytes()...)}
		if evt.Type == "" {
			// SSE frames without an event field default to "message"
			evt.Type = "message"
		}
		eventType = ""
		data.Reset()

		select {
		case s.events <- evt:
		case <-s.done:
			return false
		}
		return !evt.Terminal()
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if !dispatch() {
				return
			}
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			// Only the single space after the colon is separator; the rest
			// of the value is payload, including further whitespace.
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case strings.HasPrefix(line, ":"):
			// heartbeat comment, ignore
		}
	}

	// Upstream closed without a blank line after the last frame.
	dispatch()

	if err := scanner.Err(); err != nil {
		select {
		case <-s.done:
			// reader raced with Close; the cancellation caused the error
		default:
			logger.Error("agent stream read failed", "err", err)
			s.setErr(err)
		}
	}
}
