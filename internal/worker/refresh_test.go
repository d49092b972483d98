package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdpollen/crowdpollen/internal/pollen"
	"github.com/crowdpollen/crowdpollen/internal/worker"
)

// failingProvider always reports an unsupported region.
type failingProvider struct{}

func (failingProvider) GetForecast(context.Context, float64, float64, int) (*pollen.Forecast, error) {
	return nil, pollen.ErrNoDataForRegion
}
func (failingProvider) Name() string     { return "failing" }
func (failingProvider) Configured() bool { return true }

func fallbackService() *pollen.Service {
	return pollen.NewService(pollen.ServiceConfig{Logger: zerolog.Nop()})
}

func TestDefaultRefreshConfig(t *testing.T) {
	cfg := worker.DefaultRefreshConfig()

	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, 3, cfg.ForecastDays)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.NotEmpty(t, cfg.Targets)
}

func TestDefaultRefreshTargets(t *testing.T) {
	targets := worker.DefaultRefreshTargets()

	assert.GreaterOrEqual(t, len(targets), 5)

	var newYork *worker.RefreshTarget
	for i := range targets {
		if targets[i].Name == "New York" {
			newYork = &targets[i]
			break
		}
	}
	require.NotNil(t, newYork, "New York should be in targets")
	assert.Equal(t, 1, newYork.Priority)
	assert.GreaterOrEqual(t, len(newYork.Points), 2)
}

func TestRefreshConfig_AllPoints(t *testing.T) {
	cfg := worker.RefreshConfig{
		Targets: []worker.RefreshTarget{
			{
				Name:   "City A",
				Points: []worker.Point{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}},
			},
			{
				Name:   "City B",
				Points: []worker.Point{{Lat: 3, Lon: 3}},
			},
		},
	}

	points := cfg.AllPoints()
	assert.Len(t, points, 3)
	assert.Equal(t, 3, cfg.TotalPoints())
}

func TestRefreshJob_Run_PreWarmsFallback(t *testing.T) {
	cfg := worker.RefreshConfig{
		Targets: []worker.RefreshTarget{
			{
				Name:   "Test",
				Points: []worker.Point{{Lat: 40.71, Lon: -74.00}, {Lat: 34.05, Lon: -118.24}},
			},
		},
		ForecastDays: 2,
		Concurrency:  2,
		Timeout:      time.Second,
	}

	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:    cfg,
		Logger:    zerolog.Nop(),
		Forecasts: fallbackService(),
	})

	result := job.Run(context.Background())

	assert.Equal(t, 2, result.TotalPoints)
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 0, result.Failed)
	// No provider configured: every point resolves to fallback data.
	assert.Equal(t, 2, result.Synthetic)
	assert.Greater(t, result.Duration, time.Duration(0))
}

func TestRefreshJob_Run_CountsFailures(t *testing.T) {
	forecasts := pollen.NewService(pollen.ServiceConfig{
		Provider: failingProvider{},
		Logger:   zerolog.Nop(),
	})

	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config: worker.RefreshConfig{
			Targets: []worker.RefreshTarget{
				{Name: "Test", Points: []worker.Point{{Lat: 71.0, Lon: -42.0}}},
			},
			ForecastDays: 1,
			Concurrency:  1,
			Timeout:      time.Second,
		},
		Logger:    zerolog.Nop(),
		Forecasts: forecasts,
	})

	result := job.Run(context.Background())

	assert.Equal(t, 0, result.Successful)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error, "no pollen data for region")
}

func TestRefreshJob_GetMetrics(t *testing.T) {
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config: worker.RefreshConfig{
			Targets: []worker.RefreshTarget{
				{Name: "Test", Points: []worker.Point{{Lat: 40.71, Lon: -74.00}}},
			},
			Concurrency: 1,
			Timeout:     time.Second,
		},
		Logger:    zerolog.Nop(),
		Forecasts: fallbackService(),
	})

	_ = job.Run(context.Background())

	metrics := job.GetMetrics()
	assert.Equal(t, int64(1), metrics.TotalRuns)
	assert.Equal(t, int64(1), metrics.SuccessfulPoints)
	assert.NotZero(t, metrics.LastRunAt)
	assert.Greater(t, metrics.LastRunDuration, time.Duration(0))
}

func TestRefreshJob_MetricsSnapshot(t *testing.T) {
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config: worker.RefreshConfig{
			Targets: []worker.RefreshTarget{
				{Name: "Test", Points: []worker.Point{{Lat: 40.71, Lon: -74.00}}},
			},
			Concurrency: 1,
			Timeout:     time.Second,
		},
		Logger:    zerolog.Nop(),
		Forecasts: fallbackService(),
	})

	_ = job.Run(context.Background())

	snapshot := job.MetricsSnapshot()

	assert.Contains(t, snapshot, "total_runs")
	assert.Contains(t, snapshot, "successful_points")
	assert.Contains(t, snapshot, "failed_points")
	assert.Contains(t, snapshot, "synthetic_points")
	assert.Contains(t, snapshot, "last_run_at")
	assert.Contains(t, snapshot, "last_run_duration")
}

func TestRefreshJob_Run_WithConcurrency(t *testing.T) {
	points := make([]worker.Point, 10)
	for i := range points {
		points[i] = worker.Point{Lat: 40.0 + float64(i)*0.1, Lon: -74.0 + float64(i)*0.1}
	}

	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config: worker.RefreshConfig{
			Targets:     []worker.RefreshTarget{{Name: "Test", Points: points}},
			Concurrency: 3,
			Timeout:     time.Second,
		},
		Logger:    zerolog.Nop(),
		Forecasts: fallbackService(),
	})

	result := job.Run(context.Background())

	assert.Equal(t, 10, result.TotalPoints)
	assert.Equal(t, 10, result.Successful)
}

func TestRefreshJob_Run_ContextCancellation(t *testing.T) {
	points := make([]worker.Point, 100)
	for i := range points {
		points[i] = worker.Point{Lat: 40.0 + float64(i)*0.01, Lon: -74.0 + float64(i)*0.01}
	}

	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config: worker.RefreshConfig{
			Targets:     []worker.RefreshTarget{{Name: "Test", Points: points}},
			Concurrency: 1,
			Timeout:     100 * time.Millisecond,
		},
		Logger:    zerolog.Nop(),
		Forecasts: fallbackService(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := job.Run(ctx)

	// Completes without processing every point.
	assert.NotNil(t, result)
}

func TestNewRefreshJob_DefaultConfig(t *testing.T) {
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:    worker.RefreshConfig{}, // Empty
		Logger:    zerolog.Nop(),
		Forecasts: fallbackService(),
	})

	metrics := job.GetMetrics()
	assert.Equal(t, int64(0), metrics.TotalRuns) // Not run yet
}
