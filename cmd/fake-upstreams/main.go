// ABOUTME: Fake places and agent services for local development and E2E
// ABOUTME: testing. Usage: fake-upstreams [-places-addr ...] [-agent-addr ...]

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

func main() {
	placesAddr := flag.String("places-addr", "127.0.0.1:8002", "places service listen address")
	agentAddr := flag.String("agent-addr", "127.0.0.1:8001", "agent service listen address")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *placesAddr, *agentAddr); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, placesAddr, agentAddr string) error {
	placesSrv := &http.Server{
		Addr:              placesAddr,
		Handler:           placesHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	agentSrv := &http.Server{
		Addr:              agentAddr,
		Handler:           agentHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		fmt.Fprintf(os.Stderr, "fake places service on %s\n", placesAddr)
		if err := placesSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("places server: %w", err)
		}
	}()
	go func() {
		fmt.Fprintf(os.Stderr, "fake agent service on %s\n", agentAddr)
		if err := agentSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("agent server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = placesSrv.Shutdown(shutdownCtx)
	_ = agentSrv.Shutdown(shutdownCtx)
	return nil
}

var samplePlaces = []map[string]any{
	{
		"id": "zgz-001", "name": "El Tubo Vermuteria", "category": "bar",
		"rating": 4.6, "priceLevel": 2, "vibe": "lively",
		"location": map[string]any{"lat": 41.6521, "lng": -0.8773},
		"address": "Calle Estebanes 5, Zaragoza",
	},
	{
		"id": "zgz-002", "name": "Cafe Botanico", "category": "cafe",
		"rating": 4.3, "priceLevel": 2, "vibe": "chill",
		"location": map[string]any{"lat": 41.6494, "lng": -0.8801},
		"address": "Calle Santiago 5, Zaragoza",
	},
	{
		"id": "zgz-003", "name": "La Bodega de Chema", "category": "restaurant",
		"rating": 4.7, "priceLevel": 3, "vibe": "romantic",
		"location": map[string]any{"lat": 41.6508, "lng": -0.8842},
		"address": "Plaza San Francisco 2, Zaragoza",
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func placesHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/places/search", func(w http.ResponseWriter, r *http.Request) {
		q := strings.ToLower(r.URL.Query().Get("q"))
		matched := make([]map[string]any, 0, len(samplePlaces))
		for _, p := range samplePlaces {
			if q == "" || strings.Contains(strings.ToLower(p["name"].(string)), q) ||
				strings.Contains(p["category"].(string), q) {
				matched = append(matched, p)
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"places": matched, "total": len(matched),
			"page": 1, "per_page": 20, "total_pages": 1,
		})
	})

	mux.HandleFunc("/places/clusters", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"clusters": []map[string]any{
				{"center": map[string]any{"lat": 41.651, "lng": -0.881}, "count": len(samplePlaces)},
			},
		})
	})

	mux.HandleFunc("/places/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/places/")
		for _, p := range samplePlaces {
			if p["id"] == id {
				writeJSON(w, http.StatusOK, p)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Place not found"})
	})

	return mux
}

// chatStore keeps the fake agent's chat sessions in memory.
type chatStore struct {
	mu    sync.Mutex
	chats map[string]map[string]any
}

func agentHandler() http.Handler {
	store := &chatStore{chats: make(map[string]map[string]any)}
	mux := http.NewServeMux()

	mux.HandleFunc("/agent/query", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query     string `json:"query"`
			SessionID string `json:"session_id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		writeJSON(w, http.StatusOK, map[string]any{
			"response_text": "He encontrado algunos sitios que podrian gustarte.",
			"session_id":    req.SessionID,
			"places":        samplePlaces[:2],
			"intention":     "explore",
			"confidence":    0.9,
			"model_used":    "fake",
		})
	})

	mux.HandleFunc("/agent/query/stream", func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)

		emit := func(event string, data any) {
			payload, _ := json.Marshal(data)
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
			flusher.Flush()
		}

		emit("status", map[string]any{"content": "Buscando sitios..."})
		for _, token := range strings.Fields("He encontrado algunos sitios que podrian gustarte.") {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(80 * time.Millisecond):
			}
			emit("token", map[string]any{"content": token + " "})
		}
		emit("end", map[string]any{
			"content": "He encontrado algunos sitios que podrian gustarte.",
			"places":  samplePlaces[:2],
		})
	})

	mux.HandleFunc("/chats", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			store.mu.Lock()
			out := make([]map[string]any, 0, len(store.chats))
			for _, c := range store.chats {
				out = append(out, c)
			}
			store.mu.Unlock()
			writeJSON(w, http.StatusOK, map[string]any{"chats": out})
		case http.MethodPost:
			var payload map[string]any
			_ = json.NewDecoder(r.Body).Decode(&payload)
			id := uuid.NewString()
			chat := map[string]any{"id": id, "created_at": time.Now().UTC().Format(time.RFC3339)}
			for k, v := range payload {
				chat[k] = v
			}
			store.mu.Lock()
			store.chats[id] = chat
			store.mu.Unlock()
			writeJSON(w, http.StatusCreated, chat)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/chats/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/chats/")
		if rest, found := strings.CutSuffix(id, "/history"); found {
			id = rest
			writeJSON(w, http.StatusOK, map[string]any{"chat_id": id, "messages": []any{}})
			return
		}

		store.mu.Lock()
		chat, exists := store.chats[id]
		store.mu.Unlock()
		if !exists {
			writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Chat not found"})
			return
		}

		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, chat)
		case http.MethodPatch:
			var payload map[string]any
			_ = json.NewDecoder(r.Body).Decode(&payload)
			store.mu.Lock()
			for k, v := range payload {
				chat[k] = v
			}
			store.mu.Unlock()
			writeJSON(w, http.StatusOK, chat)
		case http.MethodDelete:
			store.mu.Lock()
			delete(store.chats, id)
			store.mu.Unlock()
			writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	return mux
}
