package pollen

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/crowdpollen/crowdpollen/internal/clock"
)

const tracerName = "github.com/crowdpollen/crowdpollen/internal/pollen"

// MaxForecastDays is the largest day range the provider supports.
const MaxForecastDays = 5

// Provider defines the authoritative forecast source.
type Provider interface {
	// GetForecast fetches a multi-day forecast for a location.
	GetForecast(ctx context.Context, lat, lon float64, days int) (*Forecast, error)

	// Name returns the provider name for logging.
	Name() string

	// Configured reports whether the provider has credentials. An
	// unconfigured provider is skipped entirely in favor of fallback
	// data; it is not an error condition.
	Configured() bool
}

// Metrics records provider call and cache outcomes. Satisfied by
// middleware.ProviderMetrics.
type Metrics interface {
	RecordRequest(provider, operation string, duration time.Duration, err error)
	RecordCacheHit(provider, operation string)
	RecordCacheMiss(provider, operation string)
}

// ServiceConfig holds configuration for the forecast service.
type ServiceConfig struct {
	// Provider is the authoritative forecast source (optional; when nil
	// or unconfigured, every request is served from the fallback
	// generator).
	Provider Provider

	// Cache is the forecast cache. Default: NewMemoryCache with default
	// TTLs.
	Cache Cache

	// Clock is the time source. Default: clock.Real.
	Clock clock.Clock

	// Logger for service operations.
	Logger zerolog.Logger

	// Rand seeds the fallback generator (optional; tests inject a fixed
	// source).
	Rand *rand.Rand

	// Metrics records call and cache outcomes (optional).
	Metrics Metrics
}

// Service is the forecast client: cache-or-fetch with graceful
// degradation to synthetic data. It never blocks beyond the provider's
// per-attempt timeouts and never fails for transient provider problems.
type Service struct {
	provider Provider
	cache    Cache
	clock    clock.Clock
	logger   zerolog.Logger
	tracer   trace.Tracer
	metrics  Metrics

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewService creates a forecast service, applying defaults for unset
// fields.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}
	if cfg.Cache == nil {
		cfg.Cache = NewMemoryCache(MemoryCacheConfig{Clock: cfg.Clock})
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(cfg.Clock.Now().UnixNano())) //nolint:gosec // non-cryptographic fallback data
	}

	return &Service{
		provider: cfg.Provider,
		cache:    cfg.Cache,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
		tracer:   otel.Tracer(tracerName),
		metrics:  cfg.Metrics,
		rng:      rng,
	}
}

// GetForecast returns a forecast with exactly days entries for the
// location. Resolution order: fresh cache entry, provider fetch,
// synthetic fallback. Only ErrPermissionDenied and ErrNoDataForRegion
// (and input validation errors) are surfaced; transient provider
// failures degrade to synthetic data.
func (s *Service) GetForecast(ctx context.Context, lat, lon float64, days int) (*Forecast, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return nil, err
	}
	if days < 1 || days > MaxForecastDays {
		return nil, ErrInvalidDays
	}

	ctx, span := s.tracer.Start(ctx, "pollen.GetForecast")
	defer span.End()
	span.SetAttributes(
		attribute.Float64("pollen.lat", lat),
		attribute.Float64("pollen.lon", lon),
		attribute.Int("pollen.days", days),
	)

	key := NewCacheKey(lat, lon, days)
	if entry, ok := s.cache.Get(key); ok {
		span.SetAttributes(attribute.Bool("pollen.cache_hit", true))
		if s.metrics != nil {
			s.metrics.RecordCacheHit(s.ProviderName(), "forecast")
		}
		return entry.Forecast, nil
	}
	if s.metrics != nil {
		s.metrics.RecordCacheMiss(s.ProviderName(), "forecast")
	}

	if s.provider == nil || !s.provider.Configured() {
		s.logger.Debug().
			Float64("lat", lat).
			Float64("lon", lon).
			Msg("forecast provider unconfigured, generating fallback data")
		return s.fallback(lat, key), nil
	}

	fetchStart := s.clock.Now()
	forecast, err := s.provider.GetForecast(ctx, lat, lon, days)
	if s.metrics != nil {
		s.metrics.RecordRequest(s.provider.Name(), "forecast", s.clock.Now().Sub(fetchStart), err)
	}
	if err != nil {
		switch {
		case errors.Is(err, ErrPermissionDenied):
			// Misconfiguration, not unavailability. Never masked by
			// fallback data.
			s.logger.Error().Err(err).
				Str("provider", s.provider.Name()).
				Msg("forecast provider rejected credentials")
			return nil, err
		case errors.Is(err, ErrNoDataForRegion):
			s.logger.Warn().
				Float64("lat", lat).
				Float64("lon", lon).
				Msg("forecast provider has no data for region")
			return nil, err
		default:
			s.logger.Warn().Err(err).
				Str("provider", s.provider.Name()).
				Msg("forecast fetch failed after retries, generating fallback data")
			return s.fallback(lat, key), nil
		}
	}

	s.cache.Set(key, &CacheEntry{Forecast: forecast, FetchedAt: s.clock.Now()})
	return forecast, nil
}

// fallback synthesizes a forecast and caches it under key. Caching
// synthetic data avoids hammering a failing provider within the (shorter
// synthetic) TTL window.
func (s *Service) fallback(lat float64, key CacheKey) *Forecast {
	now := s.clock.Now()

	s.rngMu.Lock()
	forecast := synthesizeForecast(lat, key.Days, now, s.rng)
	s.rngMu.Unlock()

	s.cache.Set(key, &CacheEntry{Forecast: forecast, FetchedAt: now})
	return forecast
}

// ProviderName returns the configured provider's name, or the fallback
// generator's name when no provider is configured.
func (s *Service) ProviderName() string {
	if s.provider == nil {
		return FallbackProviderName
	}
	return s.provider.Name()
}
