// Package main provides the entrypoint for the CrowdPollen background
// worker. The worker pre-warms the forecast cache for high-traffic metro
// areas, driven either by Pub/Sub messages or a local ticker.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/crowdpollen/crowdpollen/internal/config"
	"github.com/crowdpollen/crowdpollen/internal/pollen"
	"github.com/crowdpollen/crowdpollen/internal/pollen/googlepollen"
	"github.com/crowdpollen/crowdpollen/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "crowdpollen-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting CrowdPollen worker")

	cfg := config.Load(log)

	provider := googlepollen.NewClient(googlepollen.ClientConfig{
		APIKey: cfg.PollenAPIKey,
		Logger: log,
	})
	if !provider.Configured() {
		log.Warn().Msg("POLLEN_API_KEY not set - pre-warming synthetic fallback forecasts only")
	}

	forecasts := pollen.NewService(pollen.ServiceConfig{
		Provider: provider,
		Cache: pollen.NewMemoryCache(pollen.MemoryCacheConfig{
			TTL:          cfg.ForecastCacheTTL,
			SyntheticTTL: cfg.SyntheticCacheTTL,
		}),
		Logger: log,
	})

	refreshJob := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:    worker.DefaultRefreshConfig(),
		Logger:    log,
		Forecasts: forecasts,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Health endpoint for the orchestrator, with refresh metrics.
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "ok",
			"service": serviceName,
			"metrics": refreshJob.MetricsSnapshot(),
		}); err != nil {
			log.Error().Err(err).Msg("failed to write health response")
		}
	})

	healthServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", healthServer.Addr).Msg("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("health server error")
		}
	}()

	// Prefer Pub/Sub-driven refreshes when a subscription is configured;
	// fall back to a local ticker otherwise (useful for development and
	// single-instance deployments).
	projectID := os.Getenv("PUBSUB_PROJECT_ID")
	subscriptionName := os.Getenv("PUBSUB_SUBSCRIPTION")

	errChan := make(chan error, 1)

	if projectID != "" && subscriptionName != "" {
		handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        projectID,
			SubscriptionName: subscriptionName,
			RefreshJob:       refreshJob,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer func() {
			if closeErr := handler.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("failed to close pubsub client")
			}
		}()

		go func() {
			errChan <- handler.Start(ctx)
		}()
	} else {
		log.Info().
			Dur("interval", cfg.ForecastCacheTTL).
			Msg("no pubsub subscription configured - running on local ticker")

		go func() {
			// Run once at startup so caches are warm immediately.
			refreshJob.Run(ctx)

			ticker := time.NewTicker(cfg.ForecastCacheTTL)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					errChan <- ctx.Err()
					return
				case <-ticker.C:
					refreshJob.Run(ctx)
				}
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("shutdown signal received")
	case err := <-errChan:
		if err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("worker loop error")
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
