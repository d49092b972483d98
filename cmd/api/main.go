// Package main provides the entrypoint for the CrowdPollen API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/crowdpollen/crowdpollen/internal/api"
	"github.com/crowdpollen/crowdpollen/internal/api/middleware"
	"github.com/crowdpollen/crowdpollen/internal/config"
	"github.com/crowdpollen/crowdpollen/internal/database"
	"github.com/crowdpollen/crowdpollen/internal/fusion"
	"github.com/crowdpollen/crowdpollen/internal/pollen"
	"github.com/crowdpollen/crowdpollen/internal/pollen/googlepollen"
	"github.com/crowdpollen/crowdpollen/internal/submission"
	"github.com/crowdpollen/crowdpollen/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "crowdpollen-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting CrowdPollen API")

	cfg := config.Load(log)

	// Initialize OpenTelemetry
	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TelemetryEnabled,
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

	if cfg.TelemetryEnabled {
		log.Info().
			Str("otlp_endpoint", cfg.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Connect to database
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

	// Initialize the forecast provider. An empty API key leaves the
	// provider unconfigured; forecasts then come from the fallback
	// generator.
	provider := googlepollen.NewClient(googlepollen.ClientConfig{
		APIKey: cfg.PollenAPIKey,
		Logger: log,
	})
	if !provider.Configured() {
		log.Warn().Msg("POLLEN_API_KEY not set - serving synthetic fallback forecasts")
	}

	providerMetrics, err := middleware.NewProviderMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider metrics")
	}

	forecasts := pollen.NewService(pollen.ServiceConfig{
		Provider: provider,
		Cache: pollen.NewMemoryCache(pollen.MemoryCacheConfig{
			TTL:          cfg.ForecastCacheTTL,
			SyntheticTTL: cfg.SyntheticCacheTTL,
		}),
		Logger:  log,
		Metrics: providerMetrics,
	})
	log.Info().Str("provider", forecasts.ProviderName()).Msg("forecast service initialized")

	// Initialize the submission store and fusion engine
	submissions := submission.NewPostgresStore(pool)
	engine := fusion.NewEngine(fusion.EngineConfig{
		Forecasts:   forecasts,
		Submissions: submissions,
		Logger:      log,
		Config: fusion.Config{
			RadiusKm:         cfg.FusionRadiusKm,
			MaxSubmissionAge: cfg.FusionMaxSubmissionAge,
			MinSubmissions:   cfg.FusionMinSubmissions,
		},
	})
	log.Info().Msg("fusion engine initialized")

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: serviceName,
		Metrics:     metrics,
		Fusion:      engine,
		Forecasts:   forecasts,
		Tiles:       provider,
		ReadyCheck:  pool.Ping,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
