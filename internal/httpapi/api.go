// ABOUTME: API struct and chi router wiring for the public HTTP surface.
// ABOUTME: Route tree, middleware order, and the health endpoints live here.

package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/auphere/auphere-gateway/internal/auth"
	"github.com/auphere/auphere-gateway/internal/cache"
	"github.com/auphere/auphere-gateway/internal/config"
	"github.com/auphere/auphere-gateway/internal/store"
	"github.com/auphere/auphere-gateway/internal/upstream"
)

// API carries the dependencies shared by all HTTP handlers.
type API struct {
	cfg       *config.Config
	store     store.Store
	places    *upstream.PlacesClient
	agent     *upstream.AgentClient
	geocoding *upstream.GeocodingClient
	cache     *cache.Cache
	verifier  auth.TokenVerifier
	validate  *validator.Validate
	logger    *slog.Logger
}

// Options bundles the collaborators the API needs. Verifier may be nil
// when no JWT secret is configured; Cache may be nil to disable
// geocoding response caching.
type Options struct {
	Config    *config.Config
	Store     store.Store
	Places    *upstream.PlacesClient
	Agent     *upstream.AgentClient
	Geocoding *upstream.GeocodingClient
	Cache     *cache.Cache
	Verifier  auth.TokenVerifier
	Logger    *slog.Logger
}

// New creates the API from its collaborators.
func New(opts Options) *API {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		cfg:       opts.Config,
		store:     opts.Store,
		places:    opts.Places,
		agent:     opts.Agent,
		geocoding: opts.Geocoding,
		cache:     opts.Cache,
		verifier:  opts.Verifier,
		validate:  validator.New(),
		logger:    logger.With("component", "httpapi"),
	}
}

// Router builds the public route tree.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.metricsMiddleware)
	r.Use(a.logMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/", a.handleWelcome)
	r.Get("/healthz", a.handleHealth)
	r.Get("/readyz", a.handleReady)
	if a.cfg.Metrics.Enabled {
		r.Handle(a.cfg.Metrics.Path, promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		if a.cfg.RateLimit.Enabled {
			r.Use(httprate.LimitByIP(a.cfg.RateLimit.Requests, a.cfg.RateLimit.Window))
		}

		r.Get("/health", a.handleHealth)

		r.Route("/places", func(r chi.Router) {
			r.Get("/search", a.handleSearchGet)
			r.Post("/search", a.handleSearchPost)
			r.Get("/clusters", a.handleClusters)
			r.Get("/{place_id}", a.handlePlaceDetail)
		})

		r.Route("/chat", func(r chi.Router) {
			r.Use(a.authenticate())
			r.Post("/", a.handleChatMessage)
			r.Post("/stream", a.handleChatStream)
			r.Get("/list", a.handleChatList)
			r.Get("/info/{chat_id}", a.handleChatInfo)
			r.Post("/create", a.handleChatCreate)
			r.Patch("/{chat_id}", a.handleChatUpdate)
			r.Delete("/{chat_id}", a.handleChatDelete)
			r.Get("/{chat_id}/history", a.handleChatHistory)
		})

		r.Route("/plans", func(r chi.Router) {
			r.Use(a.authenticate())
			r.Get("/", a.handlePlanList)
			r.Post("/", a.handlePlanCreate)
			r.Get("/{plan_id}", a.handlePlanGet)
			r.Put("/{plan_id}", a.handlePlanUpdate)
			r.Delete("/{plan_id}", a.handlePlanDelete)
		})

		r.Route("/geocoding", func(r chi.Router) {
			r.Get("/autocomplete", a.handleAutocomplete)
			r.Get("/place-details/{place_id}", a.handleGeocodingPlaceDetails)
			r.Get("/reverse-geocode", a.handleReverseGeocode)
			r.Get("/photo-proxy", a.handlePhotoProxy)
		})

		r.Route("/auth", func(r chi.Router) {
			r.With(a.authenticate()).Get("/me", a.handleMe)
			r.Post("/login", a.handleDelegated("Login is now handled by Auth0. Please use Auth0 Universal Login."))
			r.Post("/register", a.handleDelegated("Registration is now handled by Auth0. Please use Auth0 Universal Login."))
			r.Post("/forgot-password", a.handleDelegated("Password reset is now handled by Auth0."))
			r.Post("/reset-password", a.handleDelegated("Password reset is now handled by Auth0."))
			r.Post("/refresh", a.handleDelegated("Token refresh is now handled by Auth0 SDK."))
			r.Post("/logout", a.handleDelegated("Logout is now handled by Auth0 SDK."))
		})
	})

	return r
}

// authenticate returns the configured auth middleware: strict when auth
// is enabled, otherwise permissive with an anonymous fallback identity.
func (a *API) authenticate() func(http.Handler) http.Handler {
	if a.cfg.Auth.Enabled {
		return auth.RequireAuth(a.verifier)
	}
	return auth.OptionalAuth(a.verifier)
}

func (a *API) handleWelcome(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the Auphere Gateway"})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleReady reports readiness. The store is the only local dependency
// that can be down; upstreams are checked per-request via the breaker.
func (a *API) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := a.store.ListPlans(r.Context(), "readiness-probe"); err != nil {
		a.writeDetail(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
