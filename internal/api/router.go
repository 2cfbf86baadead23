// Package api provides the HTTP API for TrailGrade.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/trailgrade/trailgrade/internal/api/handler"
	"github.com/trailgrade/trailgrade/internal/api/middleware"
	"github.com/trailgrade/trailgrade/internal/auth"
	"github.com/trailgrade/trailgrade/internal/dataset"
	"github.com/trailgrade/trailgrade/internal/engine"
	"github.com/trailgrade/trailgrade/internal/featureflags"
	"github.com/trailgrade/trailgrade/internal/fetch"
	"github.com/trailgrade/trailgrade/internal/session"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	Engine   *engine.Service
	Catalog  []dataset.Config
	Loader   *dataset.Loader
	Sources  *fetch.Registry
	Sessions *session.Service
	Tokens   *auth.TokenService
	Flags    *featureflags.Service

	// Clients maps API client IDs to their shared secrets for the token
	// endpoint.
	Clients map[string]string
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "trailgrade-api"
	}
	if cfg.Sources == nil {
		cfg.Sources = fetch.NewRegistry()
	}
	if cfg.Flags == nil {
		cfg.Flags = featureflags.NewService(featureflags.ServiceConfig{
			Repository: featureflags.NewInMemoryRepository(),
			Logger:     cfg.Logger,
		})
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Engine, cfg.Sources)
	authHandler := handler.NewAuthHandler(cfg.Tokens, cfg.Clients)
	datasetHandler := handler.NewDatasetHandler(cfg.Catalog, cfg.Loader, cfg.Engine, cfg.Flags)
	networkHandler := handler.NewNetworkHandler(cfg.Engine, cfg.Flags, datasetHandler.Active)
	studyHandler := handler.NewStudyHandler(cfg.Engine, cfg.Flags)
	sessionHandler := handler.NewSessionHandler(cfg.Sessions, cfg.Flags)
	transferHandler := handler.NewTransferHandler()
	flagsHandler := handler.NewFeatureFlagsHandler(cfg.Flags)

	// Create auth middleware
	authMiddleware := middleware.Auth(cfg.Tokens)

	// Create rate limit middleware for different endpoint categories
	authRateLimit := middleware.RateLimitByIP(middleware.AuthRateLimit)           // 10 req/min
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Auth endpoints (public) - strict rate limiting
		r.Route("/auth", func(r chi.Router) {
			r.Use(authRateLimit) // 10 requests per minute per IP
			r.Post("/token", authHandler.IssueToken)
		})

		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Status endpoint requires authentication
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Dataset catalog and activation
		r.Route("/datasets", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/", datasetHandler.ListDatasets)
			// Activation swaps the engine's data source, so it is
			// authenticated and rate limited as an expensive operation.
			r.With(authMiddleware, expensiveRateLimit).
				Post("/{dataset}:activate", datasetHandler.ActivateDataset)
		})

		// Network build, inspection and projection
		r.With(standardRateLimit).Get("/network", networkHandler.GetNetwork)
		r.With(standardRateLimit).Get("/network/edges", networkHandler.GetEdges)
		r.With(authMiddleware, expensiveRateLimit).Post("/network:build", networkHandler.BuildNetwork)
		r.With(authMiddleware, standardRateLimit).Put("/network/thresholds", networkHandler.UpdateThresholds)
		r.With(standardRateLimit).Post("/network:project", networkHandler.Project)

		// Difficulty computations - expensive rate limiting
		r.With(expensiveRateLimit).Post("/difficulty:compute", studyHandler.ComputeDifficulty)
		r.With(expensiveRateLimit).Post("/buffer:compute", studyHandler.ComputeBuffer)

		// CSV import/export
		r.With(standardRateLimit).Post("/study-points:import", transferHandler.ImportStudyPoints)
		r.With(standardRateLimit).Post("/results:export", transferHandler.ExportResults)

		// Flag administration (authenticated)
		r.Route("/admin/flags", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(standardRateLimit)
			r.Get("/", flagsHandler.ListFeatureFlags)
			r.Put("/", flagsHandler.UpsertFeatureFlags)
		})
		r.With(authMiddleware, standardRateLimit).
			Post("/admin/flags:invalidate", flagsHandler.InvalidateFlagCache)

		// Session endpoints (authenticated) - client-based rate limiting
		r.Route("/me/sessions", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RateLimitByUser(middleware.StandardRateLimit)) // 100 req/min per client
			r.Get("/", sessionHandler.ListSessions)
			r.Post("/", sessionHandler.CreateSession)
			r.Route("/{sessionId}", func(r chi.Router) {
				r.Get("/", sessionHandler.GetSession)
				r.Put("/", sessionHandler.UpdateSession)
				r.Delete("/", sessionHandler.DeleteSession)
			})
		})
	})

	return r
}
