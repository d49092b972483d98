// Package validation classifies crowd submissions against the
// authoritative forecast.
package validation

import (
	"fmt"

	"github.com/crowdpollen/crowdpollen/internal/pollen"
	"github.com/crowdpollen/crowdpollen/internal/submission"
)

// Variance thresholds in percent.
const (
	validatedMaxVariance = 30.0
	varianceMaxVariance  = 50.0
)

// Verdict describes how well one submission agrees with one day of
// authoritative forecast. Produced fresh per comparison; never persisted
// by this package.
type Verdict struct {
	// Status is the agreement bucket.
	Status submission.Status

	// VariancePercent is the relative difference between the submitted
	// level and the authoritative level. Nil for NO_DATA and ERROR
	// verdicts.
	VariancePercent *float64

	// Note is a human-readable explanation.
	Note string
}

// Classifier compares submissions to authoritative forecast days. It is
// a pure function holder: no side effects, no caching, identical inputs
// always yield identical verdicts.
type Classifier struct{}

// NewClassifier creates a Classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify compares a submission against one day of authoritative
// forecast. It never returns an error and never panics: any comparison
// failure is downgraded to an ERROR verdict carrying the message.
func (c *Classifier) Classify(sub *submission.Submission, day *pollen.DailyForecast) (verdict Verdict) {
	defer func() {
		if r := recover(); r != nil {
			verdict = Verdict{
				Status: submission.StatusError,
				Note:   fmt.Sprintf("classification failed: %v", r),
			}
		}
	}()

	if day == nil {
		return Verdict{
			Status: submission.StatusNoData,
			Note:   "no authoritative forecast available for comparison",
		}
	}
	if sub == nil {
		return Verdict{
			Status: submission.StatusError,
			Note:   "classification failed: no submission",
		}
	}
	if sub.Level < 0 || sub.Level > 5 {
		return Verdict{
			Status: submission.StatusError,
			Note:   fmt.Sprintf("classification failed: submission level %d outside 0-5 scale", sub.Level),
		}
	}

	authLevel := day.MaxLevel()

	// An unknown baseline cannot disagree with anything: variance is
	// defined as zero when the authoritative level is zero.
	variance := 0.0
	if authLevel > 0 {
		diff := float64(sub.Level - authLevel)
		if diff < 0 {
			diff = -diff
		}
		variance = diff / float64(authLevel) * 100
	}

	status := submission.StatusSignificantVariance
	switch {
	case variance <= validatedMaxVariance:
		status = submission.StatusValidated
	case variance <= varianceMaxVariance:
		status = submission.StatusVariance
	}

	return Verdict{
		Status:          status,
		VariancePercent: &variance,
		Note: fmt.Sprintf("submitted level %d vs authoritative level %d (%.0f%% variance)",
			sub.Level, authLevel, variance),
	}
}
