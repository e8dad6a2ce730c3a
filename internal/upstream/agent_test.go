// ABOUTME: Tests for the agent client, covering the SSE stream reader.
// ABOUTME: Exercises event ordering, terminal detection, cancellation, and chat management calls.

package upstream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/auphere/auphere-gateway/internal/config"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func agentClient(t *testing.T, baseURL string) *AgentClient {
	t.Helper()
	return NewAgentClient(config.AgentConfig{
		BaseURL:       baseURL,
		QueryTimeout:  2 * time.Second,
		StreamTimeout: 5 * time.Second,
	}, testLogger())
}

// sseHandler writes each frame verbatim and flushes between them.
func sseHandler(frames ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, frame := range frames {
			if _, err := io.WriteString(w, frame); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func collectEvents(t *testing.T, s *Stream) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case evt, ok := <-s.Events():
			if !ok {
				return events
			}
			events = append(events, evt)
		case <-timeout:
			t.Fatalf("timed out waiting for stream events, got %d so far", len(events))
		}
	}
}

func TestAgentQuery_PayloadShape(t *testing.T) {
	var gotPath string
	var gotPayload map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decoding payload: %v", err)
		}
		w.Write([]byte(`{"response":"hola","session_id":"s1"}`))
	}))
	defer srv.Close()

	client := agentClient(t, srv.URL)

	body, err := client.Query(context.Background(), AgentQuery{
		UserID:    "user-1",
		SessionID: "s1",
		Query:     "tapas cerca",
		Language:  "es",
		Context:   QueryContext{Metadata: QueryMetadata{ChatMode: "normal"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "/agent/query", gotPath)
	assert.Equal(t, "user-1", gotPayload["user_id"])
	assert.Equal(t, "s1", gotPayload["session_id"])
	assert.Equal(t, "tapas cerca", gotPayload["query"])
	assert.Equal(t, "es", gotPayload["language"])

	ctxField, ok := gotPayload["context"].(map[string]any)
	require.True(t, ok, "context field missing or wrong shape: %v", gotPayload["context"])
	meta, ok := ctxField["metadata"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "normal", meta["chat_mode"])

	assert.Contains(t, string(body), "hola")
}

func TestQueryStream_OrderAndTerminal(t *testing.T) {
	srv := httptest.NewServer(sseHandler(
		"event: status\ndata: {\"message\":\"thinking\"}\n\n",
		"event: token\ndata: Hola\n\n",
		"event: token\ndata:  mundo\n\n",
		"event: end\ndata: {\"session_id\":\"s1\"}\n\n",
	))
	defer srv.Close()

	client := agentClient(t, srv.URL)

	stream, err := client.QueryStream(context.Background(), AgentQuery{Query: "hola"})
	require.NoError(t, err)
	defer stream.Close()

	events := collectEvents(t, stream)
	require.Len(t, events, 4)

	assert.Equal(t, EventStatus, events[0].Type)
	assert.Equal(t, EventToken, events[1].Type)
	assert.Equal(t, "Hola", string(events[1].Data))
	assert.Equal(t, " mundo", string(events[2].Data))
	assert.Equal(t, EventEnd, events[3].Type)
	assert.True(t, events[3].Terminal())

	for _, evt := range events[:3] {
		assert.False(t, evt.Terminal(), "non-final event %q reported terminal", evt.Type)
	}
	assert.NoError(t, stream.Err())
}

func TestQueryStream_StopsAfterTerminalEvent(t *testing.T) {
	srv := httptest.NewServer(sseHandler(
		"event: end\ndata: {}\n\n",
		"event: token\ndata: late\n\n",
	))
	defer srv.Close()

	client := agentClient(t, srv.URL)

	stream, err := client.QueryStream(context.Background(), AgentQuery{Query: "hola"})
	require.NoError(t, err)
	defer stream.Close()

	events := collectEvents(t, stream)
	require.Len(t, events, 1)
	assert.Equal(t, EventEnd, events[0].Type)
}

func TestQueryStream_DefaultEventType(t *testing.T) {
	srv := httptest.NewServer(sseHandler(
		"data: plain payload\n\n",
		"event: end\ndata: {}\n\n",
	))
	defer srv.Close()

	client := agentClient(t, srv.URL)

	stream, err := client.QueryStream(context.Background(), AgentQuery{Query: "hola"})
	require.NoError(t, err)
	defer stream.Close()

	events := collectEvents(t, stream)
	require.Len(t, events, 2)
	assert.Equal(t, "message", events[0].Type)
	assert.Equal(t, "plain payload", string(events[0].Data))
}

func TestQueryStream_MultiLineDataJoined(t *testing.T) {
	srv := httptest.NewServer(sseHandler(
		"event: token\ndata: first\ndata: second\n\n",
		"event: end\ndata: {}\n\n",
	))
	defer srv.Close()

	client := agentClient(t, srv.URL)

	stream, err := client.QueryStream(context.Background(), AgentQuery{Query: "hola"})
	require.NoError(t, err)
	defer stream.Close()

	events := collectEvents(t, stream)
	require.Len(t, events, 2)
	assert.Equal(t, "first\nsecond", string(events[0].Data))
}

func TestQueryStream_CommentsIgnored(t *testing.T) {
	srv := httptest.NewServer(sseHandler(
		": keepalive\n\n",
		"event: token\ndata: hi\n\n",
		": another heartbeat\n",
		"event: end\ndata: {}\n\n",
	))
	defer srv.Close()

	client := agentClient(t, srv.URL)

	stream, err := client.QueryStream(context.Background(), AgentQuery{Query: "hola"})
	require.NoError(t, err)
	defer stream.Close()

	events := collectEvents(t, stream)
	require.Len(t, events, 2)
	assert.Equal(t, EventToken, events[0].Type)
	assert.Equal(t, EventEnd, events[1].Type)
}

func TestQueryStream_UpstreamStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"detail":"agent overloaded"}`))
	}))
	defer srv.Close()

	client := agentClient(t, srv.URL)

	_, err := client.QueryStream(context.Background(), AgentQuery{Query: "hola"})
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr), "expected StatusError, got %v", err)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Status)
	assert.Contains(t, string(statusErr.Body), "agent overloaded")
}

func TestQueryStream_ConnectFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := agentClient(t, srv.URL)

	_, err := client.QueryStream(context.Background(), AgentQuery{Query: "hola"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable), "expected ErrUnavailable, got %v", err)
}

func TestQueryStream_CloseCancelsUpstream(t *testing.T) {
	upstreamDone := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		io.WriteString(w, "event: token\ndata: first\n\n")
		flusher.Flush()

		<-r.Context().Done()
		close(upstreamDone)
	}))
	defer srv.Close()

	client := agentClient(t, srv.URL)

	stream, err := client.QueryStream(context.Background(), AgentQuery{Query: "hola"})
	require.NoError(t, err)

	select {
	case evt := <-stream.Events():
		assert.Equal(t, EventToken, evt.Type)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for first event")
	}

	stream.Close()

	select {
	case <-upstreamDone:
	case <-time.After(5 * time.Second):
		t.Fatal("upstream request was not cancelled after Close")
	}
}

func TestQueryStream_CallerContextCancels(t *testing.T) {
	upstreamDone := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
		close(upstreamDone)
	}))
	defer srv.Close()

	client := agentClient(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := client.QueryStream(ctx, AgentQuery{Query: "hola"})
	require.NoError(t, err)
	defer stream.Close()

	cancel()

	select {
	case <-upstreamDone:
	case <-time.After(5 * time.Second):
		t.Fatal("upstream request was not cancelled with the caller context")
	}
}

func TestStream_CloseIdempotent(t *testing.T) {
	srv := httptest.NewServer(sseHandler("event: end\ndata: {}\n\n"))
	defer srv.Close()

	client := agentClient(t, srv.URL)

	stream, err := client.QueryStream(context.Background(), AgentQuery{Query: "hola"})
	require.NoError(t, err)

	stream.Close()
	stream.Close()
}

func TestAgentChats_Management(t *testing.T) {
	type call struct {
		method string
		path   string
		query  string
	}
	var calls []call

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, call{r.Method, r.URL.Path, r.URL.RawQuery})
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := agentClient(t, srv.URL)
	ctx := context.Background()

	_, err := client.ListChats(ctx, "user-1", 20, 40)
	require.NoError(t, err)

	_, err = client.GetChat(ctx, "chat-9")
	require.NoError(t, err)

	_, err = client.CreateChat(ctx, map[string]any{"user_id": "user-1", "title": "Tapas"})
	require.NoError(t, err)

	_, err = client.UpdateChat(ctx, "chat-9", map[string]any{"title": "Renamed"})
	require.NoError(t, err)

	err = client.DeleteChat(ctx, "chat-9", "user-1")
	require.NoError(t, err)

	_, err = client.ChatHistory(ctx, "chat-9", 50)
	require.NoError(t, err)

	require.Len(t, calls, 6)

	assert.Equal(t, call{http.MethodGet, "/chats", "limit=20&offset=40&user_id=user-1"}, calls[0])
	assert.Equal(t, call{http.MethodGet, "/chats/chat-9", ""}, calls[1])
	assert.Equal(t, call{http.MethodPost, "/chats", ""}, calls[2])
	assert.Equal(t, call{http.MethodPatch, "/chats/chat-9", ""}, calls[3])
	assert.Equal(t, call{http.MethodDelete, "/chats/chat-9", "user_id=user-1"}, calls[4])
	assert.Equal(t, call{http.MethodGet, "/chats/chat-9/history", "limit=50"}, calls[5])
}

func TestQueryStream_LargeTokenEvent(t *testing.T) {
	big := strings.Repeat("x", 128*1024)

	srv := httptest.NewServer(sseHandler(
		"event: token\ndata: "+big+"\n\n",
		"event: end\ndata: {}\n\n",
	))
	defer srv.Close()

	client := agentClient(t, srv.URL)

	stream, err := client.QueryStream(context.Background(), AgentQuery{Query: "hola"})
	require.NoError(t, err)
	defer stream.Close()

	events := collectEvents(t, stream)
	require.Len(t, events, 2)
	assert.Len(t, events[0].Data, len(big))
}
