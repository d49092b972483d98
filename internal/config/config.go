// Package config loads service configuration from the environment, with
// optional .env file support for local development.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds the runtime configuration shared by the API server and
// the worker.
type Config struct {
	// Env is the deployment environment (development, staging,
	// production).
	Env string

	// Port is the HTTP listen port.
	Port string

	// PollenAPIKey is the Google Pollen API key. Empty means the
	// provider is unconfigured and forecasts come from the fallback
	// generator.
	PollenAPIKey string

	// ForecastCacheTTL bounds how long provider forecasts are served
	// from cache.
	ForecastCacheTTL time.Duration

	// SyntheticCacheTTL bounds how long fallback forecasts are served
	// from cache.
	SyntheticCacheTTL time.Duration

	// FusionRadiusKm bounds the distance for relevant submissions.
	FusionRadiusKm float64

	// FusionMaxSubmissionAge bounds the age of relevant submissions.
	FusionMaxSubmissionAge time.Duration

	// FusionMinSubmissions is the minimum-evidence gate.
	FusionMinSubmissions int

	// OTLPEndpoint is the OpenTelemetry collector endpoint.
	OTLPEndpoint string

	// TelemetryEnabled toggles OTLP export.
	TelemetryEnabled bool
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in first when present; real environment
// variables win.
func Load(logger zerolog.Logger) Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn().Err(err).Msg("failed to load .env file")
	}

	return Config{
		Env:                    envOrDefault("APP_ENV", "development"),
		Port:                   envOrDefault("APP_PORT", "8080"),
		PollenAPIKey:           os.Getenv("POLLEN_API_KEY"),
		ForecastCacheTTL:       durationOrDefault("FORECAST_CACHE_TTL", 6*time.Hour),
		SyntheticCacheTTL:      durationOrDefault("SYNTHETIC_CACHE_TTL", 30*time.Minute),
		FusionRadiusKm:         floatOrDefault("FUSION_RADIUS_KM", 10),
		FusionMaxSubmissionAge: durationOrDefault("FUSION_MAX_SUBMISSION_AGE", 24*time.Hour),
		FusionMinSubmissions:   intOrDefault("FUSION_MIN_SUBMISSIONS", 3),
		OTLPEndpoint:           envOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		TelemetryEnabled:       os.Getenv("OTEL_ENABLED") == "true",
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationOrDefault(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func intOrDefault(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func floatOrDefault(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
