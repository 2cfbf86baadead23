// Package main provides the entrypoint for the TrailGrade API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/trailgrade/trailgrade/internal/api"
	"github.com/trailgrade/trailgrade/internal/api/middleware"
	"github.com/trailgrade/trailgrade/internal/auth"
	"github.com/trailgrade/trailgrade/internal/database"
	"github.com/trailgrade/trailgrade/internal/dataset"
	"github.com/trailgrade/trailgrade/internal/engine"
	"github.com/trailgrade/trailgrade/internal/featureflags"
	"github.com/trailgrade/trailgrade/internal/fetch"
	"github.com/trailgrade/trailgrade/internal/network"
	"github.com/trailgrade/trailgrade/internal/session"
	"github.com/trailgrade/trailgrade/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "trailgrade-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting TrailGrade API")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Sessions persist to Postgres when configured; local development runs
	// against the in-memory repository.
	var (
		sessionRepo session.Repository
		flagRepo    featureflags.Repository
	)
	if os.Getenv("DB_HOST") != "" {
		dbConfig := database.ConfigFromEnv()
		pool, err := database.Connect(ctx, dbConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		log.Info().
			Str("host", dbConfig.Host).
			Int("port", dbConfig.Port).
			Str("database", dbConfig.Database).
			Msg("database connected")
		sessionRepo = session.NewPostgresRepository(pool)
		flagRepo = featureflags.NewPostgresRepository(pool)
	} else {
		log.Warn().Msg("DB_HOST not set - sessions and flags are stored in memory")
		sessionRepo = session.NewInMemoryRepository()
		flagRepo = featureflags.NewInMemoryRepository()
	}
	sessionService := session.NewService(sessionRepo)
	log.Info().Msg("session service initialized")

	flagService := featureflags.NewService(featureflags.ServiceConfig{
		Repository: flagRepo,
		Logger:     log,
	})

	// Initialize the token service (get signing key from environment)
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		jwtSigningKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}
	tokenService := auth.NewTokenService(auth.TokenConfig{
		SigningKey: jwtSigningKey,
		Issuer:     "https://api.trailgrade.dev",
		Audience:   "trailgrade-api",
	})

	// API clients are configured as comma-separated id:secret pairs.
	clients := parseClients(os.Getenv("API_CLIENTS"))
	if len(clients) == 0 {
		log.Warn().Msg("API_CLIENTS not set - token endpoint will reject all requests")
	}

	// Initialize the dataset loader and the engine
	sources := fetch.NewRegistry()
	loader := dataset.NewLoader(dataset.LoaderConfig{
		DataDir: os.Getenv("DATA_DIR"),
		Sources: sources,
		Logger:  log,
	})

	engineService := engine.NewService(engine.Config{
		Logger:     log,
		Thresholds: network.Thresholds{TrailTrail: 25, TrailRoad: 10},
	})
	log.Info().Msg("engine initialized")

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: serviceName,
		Metrics:     metrics,
		Engine:      engineService,
		Catalog:     dataset.DefaultCatalog(),
		Loader:      loader,
		Sources:     sources,
		Sessions:    sessionService,
		Tokens:      tokenService,
		Flags:       flagService,
		Clients:     clients,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

// parseClients parses "id:secret,id:secret" into a credentials map.
func parseClients(raw string) map[string]string {
	clients := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		id, secret, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if ok && id != "" && secret != "" {
			clients[id] = secret
		}
	}
	return clients
}
