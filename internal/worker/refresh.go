package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/crowdpollen/crowdpollen/internal/pollen"
)

// RefreshJob pre-warms the forecast cache for configured target points,
// so interactive requests for those regions hit the cache instead of the
// provider.
type RefreshJob struct {
	config    RefreshConfig
	logger    zerolog.Logger
	forecasts *pollen.Service
	metrics   *RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	mu sync.RWMutex

	// Counters
	TotalRuns        int64
	SuccessfulPoints int64
	FailedPoints     int64
	SyntheticPoints  int64

	// Timings
	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config    RefreshConfig
	Logger    zerolog.Logger
	Forecasts *pollen.Service
}

// NewRefreshJob creates a new refresh job processor.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	config := cfg.Config
	if len(config.Targets) == 0 {
		config = DefaultRefreshConfig()
	}
	if config.ForecastDays == 0 {
		config.ForecastDays = 3
	}
	if config.Concurrency == 0 {
		config.Concurrency = 3
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &RefreshJob{
		config:    config,
		logger:    cfg.Logger,
		forecasts: cfg.Forecasts,
		metrics:   &RefreshMetrics{},
	}
}

// RefreshResult contains the result of a refresh run.
type RefreshResult struct {
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	TotalPoints int
	Successful  int
	Failed      int

	// Synthetic counts points that resolved to fallback data rather
	// than provider data. Not failures, but worth watching: a high
	// synthetic ratio means the provider is degraded.
	Synthetic int

	Errors []RefreshError
}

// RefreshError represents an error for one point during refresh.
type RefreshError struct {
	Point Point
	Error string
}

// Run executes the refresh job for all configured targets.
func (j *RefreshJob) Run(ctx context.Context) *RefreshResult {
	startTime := time.Now()
	result := &RefreshResult{
		StartTime:   startTime,
		TotalPoints: j.config.TotalPoints(),
	}

	j.logger.Info().
		Int("total_points", result.TotalPoints).
		Int("concurrency", j.config.Concurrency).
		Int("forecast_days", j.config.ForecastDays).
		Msg("starting forecast pre-warm job")

	points := j.config.AllPoints()

	pointsChan := make(chan Point, len(points))
	resultsChan := make(chan pointResult, len(points))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.refreshWorker(ctx, pointsChan, resultsChan)
		}()
	}

	for _, p := range points {
		pointsChan <- p
	}
	close(pointsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for pr := range resultsChan {
		if pr.err != "" {
			result.Failed++
			result.Errors = append(result.Errors, RefreshError{Point: pr.point, Error: pr.err})
			continue
		}
		result.Successful++
		if pr.synthetic {
			result.Synthetic++
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("synthetic", result.Synthetic).
		Msg("forecast pre-warm job completed")

	return result
}

type pointResult struct {
	point     Point
	synthetic bool
	err       string
}

func (j *RefreshJob) refreshWorker(ctx context.Context, points <-chan Point, results chan<- pointResult) {
	for point := range points {
		select {
		case <-ctx.Done():
			return
		default:
			results <- j.refreshPoint(ctx, point)
		}
	}
}

func (j *RefreshJob) refreshPoint(ctx context.Context, point Point) pointResult {
	result := pointResult{point: point}

	pointCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	forecast, err := j.forecasts.GetForecast(pointCtx, point.Lat, point.Lon, j.config.ForecastDays)
	if err != nil {
		result.err = err.Error()
		return result
	}

	result.synthetic = forecast.Synthetic()
	return result
}

func (j *RefreshJob) updateMetrics(result *RefreshResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.SuccessfulPoints += int64(result.Successful)
	j.metrics.FailedPoints += int64(result.Failed)
	j.metrics.SyntheticPoints += int64(result.Synthetic)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return RefreshMetrics{
		TotalRuns:        j.metrics.TotalRuns,
		SuccessfulPoints: j.metrics.SuccessfulPoints,
		FailedPoints:     j.metrics.FailedPoints,
		SyntheticPoints:  j.metrics.SyntheticPoints,
		LastRunAt:        j.metrics.LastRunAt,
		LastRunDuration:  j.metrics.LastRunDuration,
		TotalDuration:    j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *RefreshJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":        m.TotalRuns,
		"successful_points": m.SuccessfulPoints,
		"failed_points":     m.FailedPoints,
		"synthetic_points":  m.SyntheticPoints,
		"last_run_at":       m.LastRunAt,
		"last_run_duration": m.LastRunDuration.String(),
		"total_duration":    m.TotalDuration.String(),
	}
}
