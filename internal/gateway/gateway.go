// ABOUTME: Gateway orchestrator: wires config, store, cache, upstream
// ABOUTME: clients, and the HTTP API, and owns the serve/shutdown lifecycle.

package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/auphere/auphere-gateway/internal/auth"
	"github.com/auphere/auphere-gateway/internal/cache"
	"github.com/auphere/auphere-gateway/internal/config"
	"github.com/auphere/auphere-gateway/internal/httpapi"
	"github.com/auphere/auphere-gateway/internal/store"
	"github.com/auphere/auphere-gateway/internal/upstream"
)

// Gateway owns the server components and their lifecycle.
type Gateway struct {
	config     *config.Config
	store      store.Store
	cache      *cache.Cache
	httpServer *http.Server
	logger     *slog.Logger
}

// initStore creates the plan store based on config and environment.
func initStore(cfg *config.Config) (store.Store, error) {
	dbPath := cfg.Database.Path
	if envPath := os.Getenv("AUPHERE_DB_PATH"); envPath != "" {
		dbPath = envPath
	}

	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// New creates a Gateway instance from the given configuration. The
// returned gateway is not serving yet; call Run.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	s, err := initStore(cfg)
	if err != nil {
		return nil, err
	}

	responseCache := cache.New(cfg.Cache.TTL, cfg.Cache.MaxEntries)

	var verifier auth.TokenVerifier
	if cfg.Auth.JWTSecret != "" {
		verifier = auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	} else {
		logger.Warn("auth disabled - no jwt_secret configured")
	}

	api := httpapi.New(httpapi.Options{
		Config:    cfg,
		Store:     s,
		Places:    upstream.NewPlacesClient(cfg.Upstreams.Places, logger),
		Agent:     upstream.NewAgentClient(cfg.Upstreams.Agent, logger),
		Geocoding: upstream.NewGeocodingClient(cfg.Geocoding, logger),
		Cache:     responseCache,
		Verifier:  verifier,
		Logger:    logger,
	})

	gw := &Gateway{
		config: cfg,
		store:  s,
		cache:  responseCache,
		logger: logger.With("component", "gateway"),
	}
	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw, nil
}

// Run starts the HTTP server and blocks until the context is canceled
// or the server fails. Returns nil on graceful shutdown.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	serverErr := g.waitForShutdownSignal(ctx, errCh)
	shutdownErr := g.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// waitForShutdownSignal waits for context cancellation or a server error.
func (g *Gateway) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		g.logger.Error("server error", "error", err)
		return err
	}
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the run context is
// already canceled by the time shutdown starts.
func (g *Gateway) gracefulShutdown() error {
	timeout := g.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return g.Shutdown(ctx)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown gracefully stops the HTTP server and releases resources.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))
	errs = appendCloseError(errs, "store close", g.store.Close())
	g.cache.Close()

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}
