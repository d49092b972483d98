// Package api provides the HTTP API for CrowdPollen.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/crowdpollen/crowdpollen/internal/api/handler"
	"github.com/crowdpollen/crowdpollen/internal/api/middleware"
	"github.com/crowdpollen/crowdpollen/internal/clock"
	"github.com/crowdpollen/crowdpollen/internal/fusion"
	"github.com/crowdpollen/crowdpollen/internal/pollen"
	"github.com/crowdpollen/crowdpollen/internal/pollen/googlepollen"
	"github.com/crowdpollen/crowdpollen/internal/validation"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	// Fusion serves the fused forecast endpoint (required).
	Fusion *fusion.Engine

	// Forecasts backs submission validation (required).
	Forecasts *pollen.Service

	// Classifier produces validation verdicts. Default: a fresh
	// classifier.
	Classifier *validation.Classifier

	// Tiles serves heatmap tiles (optional; endpoint answers 503 when
	// absent).
	Tiles *googlepollen.Client

	// TileHTTPClient fetches proxied tiles (optional).
	TileHTTPClient *http.Client

	// ReadyCheck verifies hard dependencies for the readiness endpoint
	// (optional).
	ReadyCheck func(ctx context.Context) error

	// Clock is the time source. Default: clock.Real.
	Clock clock.Clock
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "crowdpollen-api"
	}
	if cfg.Classifier == nil {
		cfg.Classifier = validation.NewClassifier()
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

	opsCfg := handler.OpsConfig{
		Version:      cfg.Version,
		BuildTime:    cfg.BuildTime,
		ReadyCheck:   cfg.ReadyCheck,
		ProviderName: pollen.FallbackProviderName,
	}
	if cfg.Tiles != nil {
		opsCfg.ProviderName = cfg.Tiles.Name()
		opsCfg.ProviderState = cfg.Tiles.CircuitState
	}

	opsHandler := handler.NewOpsHandler(opsCfg)
	forecastHandler := handler.NewForecastHandler(cfg.Fusion, cfg.Logger)
	validateHandler := handler.NewValidateHandler(cfg.Forecasts, cfg.Classifier, cfg.Clock, cfg.Logger)
	heatmapHandler := handler.NewHeatmapHandler(cfg.Tiles, cfg.TileHTTPClient, cfg.Logger)
	metadataHandler := handler.NewMetadataHandler()

	// Rate limits per endpoint class: provider-backed endpoints are
	// capped harder than cheap local ones.
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)  // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		// Metadata endpoints (public) - standard rate limiting
		r.Route("/metadata", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/enums", metadataHandler.GetEnums)
		})

		// Fused forecast - hits the upstream provider, strict rate limiting
		r.With(expensiveRateLimit).Get("/forecast", forecastHandler.GetForecast)

		// Submission validation - reads the forecast cache, standard limit
		r.With(standardRateLimit, middleware.RequireJSON).Post("/submissions:validate", validateHandler.ValidateSubmission)

		// Heatmap tile proxy
		r.With(expensiveRateLimit).Get("/heatmap/{mapType}/{zoom}/{x}/{y}", heatmapHandler.GetTile)
	})

	return r
}
