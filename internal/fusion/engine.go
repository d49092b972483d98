// Package fusion blends the authoritative pollen forecast with nearby
// crowd submissions into a single best-estimate forecast per day.
package fusion

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/crowdpollen/crowdpollen/internal/clock"
	"github.com/crowdpollen/crowdpollen/internal/geo"
	"github.com/crowdpollen/crowdpollen/internal/pollen"
	"github.com/crowdpollen/crowdpollen/internal/submission"
	"github.com/crowdpollen/crowdpollen/internal/validation"
)

const tracerName = "github.com/crowdpollen/crowdpollen/internal/fusion"

// Blending policy constants.
const (
	baseAuthoritativeWeight = 0.7
	baseCrowdWeight         = 0.3

	// lowAccuracyThreshold is the crowd accuracy below which the
	// authoritative weight is boosted.
	lowAccuracyThreshold = 0.7
	lowAccuracyBoost     = 0.1

	accuracyWeightFactor = 0.15
	recencyWeightFactor  = 0.2

	baseConfidence           = 0.70
	strongAgreementBonus     = 0.20
	moderateAgreementBonus   = 0.10
	strongAgreementRatio     = 0.3
	moderateAgreementRatio   = 0.5
	perSubmissionBonus       = 0.02
	maxSubmissionBonus       = 0.10
	accuracyConfidenceFactor = 0.10
	maxConfidence            = 0.95

	// gateConfidence applies when too few submissions pass the filters
	// and the authoritative value is returned verbatim.
	gateConfidence = 0.85
)

// DataSource identifies which inputs produced an estimate.
type DataSource string

const (
	DataSourceAuthoritativeOnly DataSource = "AUTHORITATIVE_ONLY"
	DataSourceHybrid            DataSource = "HYBRID"
)

// Config holds tuning parameters for the fusion engine.
type Config struct {
	// RadiusKm bounds the great-circle distance for relevant
	// submissions. Default: 10.
	RadiusKm float64

	// MaxSubmissionAge bounds submission age. Default: 24 hours.
	MaxSubmissionAge time.Duration

	// MinSubmissions is the minimum-evidence gate: days with fewer
	// relevant submissions return the authoritative value verbatim, so a
	// handful of noisy reports cannot override a stable forecast.
	// Default: 3.
	MinSubmissions int
}

// DefaultConfig returns the default fusion configuration.
func DefaultConfig() Config {
	return Config{
		RadiusKm:         10,
		MaxSubmissionAge: 24 * time.Hour,
		MinSubmissions:   3,
	}
}

// Estimate is the fused per-day output.
type Estimate struct {
	// Date of the estimate.
	Date time.Time

	// FusedLevel is the blended pollen level on the 0-5 scale.
	FusedLevel int

	// AuthoritativeWeight and CrowdWeight are the normalized blend
	// weights (they sum to 1).
	AuthoritativeWeight float64
	CrowdWeight         float64

	// Confidence is in [0, 0.95].
	Confidence float64

	// DataSource marks whether crowd data contributed.
	DataSource DataSource

	// SubmissionCount is the number of submissions that passed the
	// relevance filters for this day.
	SubmissionCount int

	// Note is a human-readable summary.
	Note string
}

// DayResult pairs one authoritative forecast day with its fused estimate
// and per-submission verdicts.
type DayResult struct {
	Forecast pollen.DailyForecast
	Estimate Estimate

	// Verdicts holds one classifier verdict per relevant submission, in
	// store order. The caller may persist them; this subsystem does not.
	Verdicts []validation.Verdict
}

// Result is the full fused forecast with provenance metadata.
type Result struct {
	Days []DayResult

	// Source is the provenance of the underlying forecast (authoritative
	// or synthetic fallback).
	Source pollen.Source

	// Provider identifies the forecast source.
	Provider string

	// SubmissionsConsidered counts submissions that passed the relevance
	// filters across all days.
	SubmissionsConsidered int
}

// EngineConfig holds the fusion engine's collaborators.
type EngineConfig struct {
	// Forecasts is the forecast client (required).
	Forecasts *pollen.Service

	// Submissions is the crowd submission store (optional; when nil, all
	// estimates are authoritative-only).
	Submissions submission.Store

	// Classifier produces per-submission verdicts. Default: a fresh
	// classifier.
	Classifier *validation.Classifier

	// Clock is the time source. Default: clock.Real.
	Clock clock.Clock

	// Logger for engine operations.
	Logger zerolog.Logger

	// Config holds tuning parameters. Zero fields take defaults.
	Config Config
}

// Engine fuses authoritative and crowd pollen data.
type Engine struct {
	forecasts   *pollen.Service
	submissions submission.Store
	classifier  *validation.Classifier
	clock       clock.Clock
	logger      zerolog.Logger
	config      Config
	tracer      trace.Tracer
}

// NewEngine creates a fusion engine, applying defaults for unset fields.
func NewEngine(cfg EngineConfig) *Engine {
	config := cfg.Config
	if config.RadiusKm == 0 {
		config.RadiusKm = DefaultConfig().RadiusKm
	}
	if config.MaxSubmissionAge == 0 {
		config.MaxSubmissionAge = DefaultConfig().MaxSubmissionAge
	}
	if config.MinSubmissions == 0 {
		config.MinSubmissions = DefaultConfig().MinSubmissions
	}
	if cfg.Classifier == nil {
		cfg.Classifier = validation.NewClassifier()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}

	return &Engine{
		forecasts:   cfg.Forecasts,
		submissions: cfg.Submissions,
		classifier:  cfg.Classifier,
		clock:       cfg.Clock,
		logger:      cfg.Logger,
		config:      config,
		tracer:      otel.Tracer(tracerName),
	}
}

// GetFusedForecast returns one fused estimate per forecast day. The
// forecast and submission fetches are independent and issued
// concurrently. Submission store failures degrade to authoritative-only
// estimates; only forecast client failures (permission, unsupported
// region, invalid input) propagate.
func (e *Engine) GetFusedForecast(ctx context.Context, lat, lon float64, days int) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "fusion.GetFusedForecast")
	defer span.End()

	var (
		wg          sync.WaitGroup
		forecast    *pollen.Forecast
		forecastErr error
		subs        []submission.Submission
		subsErr     error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		forecast, forecastErr = e.forecasts.GetForecast(ctx, lat, lon, days)
	}()

	if e.submissions != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			subs, subsErr = e.submissions.GetNearby(ctx, lat, lon, e.config.RadiusKm)
		}()
	}

	wg.Wait()

	if forecastErr != nil {
		return nil, forecastErr
	}
	if subsErr != nil {
		e.logger.Warn().Err(subsErr).
			Float64("lat", lat).
			Float64("lon", lon).
			Msg("submission store unavailable, degrading to authoritative-only estimates")
		subs = nil
	}

	now := e.clock.Now()
	relevant := e.filterRelevant(subs, lat, lon, now)
	byDay := groupByDay(relevant)

	result := &Result{
		Days:                  make([]DayResult, 0, len(forecast.Days)),
		Source:                forecast.Source,
		Provider:              forecast.Provider,
		SubmissionsConsidered: len(relevant),
	}

	for i := range forecast.Days {
		day := forecast.Days[i]
		daySubs := byDay[dayKey(day.Date)]

		dr := DayResult{
			Forecast: day,
			Estimate: e.fuseDay(&day, daySubs, now),
			Verdicts: e.classifyAll(daySubs, &day),
		}
		result.Days = append(result.Days, dr)
	}

	span.SetAttributes(
		attribute.Int("fusion.days", len(result.Days)),
		attribute.Int("fusion.submissions_considered", len(relevant)),
		attribute.String("fusion.forecast_source", string(forecast.Source)),
	)

	return result, nil
}

// filterRelevant applies the relevance filters: submissions older than
// MaxSubmissionAge are dropped, submissions farther than RadiusKm are
// dropped, and submissions without coordinates pass the distance filter
// best-effort.
func (e *Engine) filterRelevant(subs []submission.Submission, lat, lon float64, now time.Time) []submission.Submission {
	var relevant []submission.Submission
	for _, sub := range subs {
		age := now.Sub(sub.CreatedAt)
		if age > e.config.MaxSubmissionAge {
			continue
		}
		if sub.HasLocation() &&
			geo.DistanceKm(lat, lon, *sub.Latitude, *sub.Longitude) > e.config.RadiusKm {
			continue
		}
		relevant = append(relevant, sub)
	}
	return relevant
}

// classifyAll produces one verdict per submission against the day.
func (e *Engine) classifyAll(subs []submission.Submission, day *pollen.DailyForecast) []validation.Verdict {
	if len(subs) == 0 {
		return nil
	}
	verdicts := make([]validation.Verdict, 0, len(subs))
	for i := range subs {
		verdicts = append(verdicts, e.classifier.Classify(&subs[i], day))
	}
	return verdicts
}

// fuseDay blends one forecast day with its relevant submissions.
func (e *Engine) fuseDay(day *pollen.DailyForecast, subs []submission.Submission, now time.Time) Estimate {
	authLevel := day.MaxLevel()

	if len(subs) < e.config.MinSubmissions {
		return Estimate{
			Date:                day.Date,
			FusedLevel:          authLevel,
			AuthoritativeWeight: 1,
			CrowdWeight:         0,
			Confidence:          gateConfidence,
			DataSource:          DataSourceAuthoritativeOnly,
			SubmissionCount:     len(subs),
			Note:                "authoritative forecast (insufficient nearby submissions)",
		}
	}

	stats := computeCrowdStats(subs, now, e.config.MaxSubmissionAge)

	authWeight := baseAuthoritativeWeight
	crowdWeight := baseCrowdWeight
	if stats.accuracy < lowAccuracyThreshold {
		authWeight += lowAccuracyBoost
	}
	crowdWeight += stats.accuracy*accuracyWeightFactor + stats.recency*recencyWeightFactor

	total := authWeight + crowdWeight
	authWeight /= total
	crowdWeight /= total

	fused := roundLevel(float64(authLevel)*authWeight + stats.averageLevel*crowdWeight)

	return Estimate{
		Date:                day.Date,
		FusedLevel:          fused,
		AuthoritativeWeight: authWeight,
		CrowdWeight:         crowdWeight,
		Confidence:          confidence(authLevel, stats),
		DataSource:          DataSourceHybrid,
		SubmissionCount:     len(subs),
		Note:                fmt.Sprintf("fused with %d nearby submissions", len(subs)),
	}
}

// confidence scores an estimate from forecast/crowd agreement, evidence
// volume, and crowd accuracy.
func confidence(authLevel int, stats crowdStats) float64 {
	conf := baseConfidence

	baseline := float64(authLevel)
	if baseline < 1 {
		baseline = 1
	}
	disagreement := stats.averageLevel - float64(authLevel)
	if disagreement < 0 {
		disagreement = -disagreement
	}
	ratio := disagreement / baseline

	switch {
	case ratio < strongAgreementRatio:
		conf += strongAgreementBonus
	case ratio < moderateAgreementRatio:
		conf += moderateAgreementBonus
	}

	volumeBonus := float64(stats.count) * perSubmissionBonus
	if volumeBonus > maxSubmissionBonus {
		volumeBonus = maxSubmissionBonus
	}
	conf += volumeBonus
	conf += stats.accuracy * accuracyConfidenceFactor

	if conf > maxConfidence {
		conf = maxConfidence
	}
	return conf
}

// roundLevel rounds to the nearest integer and clamps to the 0-5 scale.
func roundLevel(v float64) int {
	level := int(v + 0.5)
	if level < 0 {
		level = 0
	}
	if level > 5 {
		level = 5
	}
	return level
}

// dayKey normalizes a timestamp to its UTC calendar date.
func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// groupByDay partitions submissions by UTC calendar date.
func groupByDay(subs []submission.Submission) map[string][]submission.Submission {
	byDay := make(map[string][]submission.Submission)
	for _, sub := range subs {
		key := dayKey(sub.CreatedAt)
		byDay[key] = append(byDay[key], sub)
	}
	return byDay
}
