// ABOUTME: Shared fixtures for httpapi tests: scriptable fake upstream
// ABOUTME: services and an API wired to them through httptest servers.

package httpapi

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/auphere/auphere-gateway/internal/auth"
	"github.com/auphere/auphere-gateway/internal/cache"
	"github.com/auphere/auphere-gateway/internal/config"
	"github.com/auphere/auphere-gateway/internal/store"
	"github.com/auphere/auphere-gateway/internal/upstream"
)

// capturedRequest is one request a fake upstream served.
type capturedRequest struct {
	method string
	path   string
	query  url.Values
	body   []byte
}

// fakeUpstream is a scriptable upstream test double. It records every
// request and answers with the configured status and body, or delegates
// to handle when set.
type fakeUpstream struct {
	srv *httptest.Server

	mu       sync.Mutex
	status   int
	body     string
	handle   http.HandlerFunc
	requests []capturedRequest
}

func newFakeUpstream(t *testing.T, status int, body string) *fakeUpstream {
	t.Helper()

	f := &fakeUpstream{status: status, body: body}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeUpstream) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.requests = append(f.requests, capturedRequest{
		method: r.Method,
		path:   r.URL.Path,
		query:  r.URL.Query(),
		body:   body,
	})
	status, respBody, handle := f.status, f.body, f.handle
	f.mu.Unlock()

	if handle != nil {
		handle(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, respBody)
}

func (f *fakeUpstream) respond(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
	f.body = body
}

func (f *fakeUpstream) handler(h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handle = h
}

func (f *fakeUpstream) last(t *testing.T) capturedRequest {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatal("fake upstream received no requests")
	}
	return f.requests[len(f.requests)-1]
}

func (f *fakeUpstream) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// testEnv is an API instance wired to fake upstreams, routable through
// env.router.
type testEnv struct {
	api      *API
	router   http.Handler
	places   *fakeUpstream
	agent    *fakeUpstream
	geo      *fakeUpstream
	store    store.Store
	verifier *auth.JWTVerifier
	cfg      *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, nil)
}

// newTestEnvWith builds the environment after applying mutate to the
// config, so tests can flip auth or rate limiting before routes bind.
func newTestEnvWith(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	places := newFakeUpstream(t, http.StatusOK, `{"items":[],"total":0}`)
	agent := newFakeUpstream(t, http.StatusOK, `{"response_text":"hola"}`)
	geo := newFakeUpstream(t, http.StatusOK, `{"status":"OK","predictions":[]}`)

	cfg := config.Default()
	cfg.Upstreams.Places.BaseURL = places.srv.URL
	cfg.Upstreams.Agent.BaseURL = agent.srv.URL
	cfg.Geocoding.BaseURL = geo.srv.URL
	cfg.Geocoding.APIKey = "test-key"
	cfg.Database.Path = ":memory:"
	cfg.RateLimit.Enabled = false
	cfg.Metrics.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	c := cache.New(cfg.Cache.TTL, cfg.Cache.MaxEntries)
	t.Cleanup(c.Close)

	verifier := auth.NewJWTVerifier([]byte("test-secret"))

	api := New(Options{
		Config:    cfg,
		Store:     st,
		Places:    upstream.NewPlacesClient(cfg.Upstreams.Places, logger),
		Agent:     upstream.NewAgentClient(cfg.Upstreams.Agent, logger),
		Geocoding: upstream.NewGeocodingClient(cfg.Geocoding, logger),
		Cache:     c,
		Verifier:  verifier,
		Logger:    logger,
	})

	return &testEnv{
		api:      api,
		router:   api.Router(),
		places:   places,
		agent:    agent,
		geo:      geo,
		store:    st,
		verifier: verifier,
		cfg:      cfg,
	}
}

// newAuthedEnv builds an environment with JWT auth required.
func newAuthedEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, func(cfg *config.Config) {
		cfg.Auth.Enabled = true
		cfg.Auth.JWTSecret = "test-secret"
	})
}

// token mints a bearer token for the given user id.
func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()

	tok, err := e.verifier.Generate(&auth.Identity{ID: userID}, time.Hour)
	if err != nil {
		t.Fatalf("generating token: %v", err)
	}
	return tok
}

// do routes a request through the full middleware stack and returns the
// recorder.
func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}
