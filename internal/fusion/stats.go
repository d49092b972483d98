package fusion

import (
	"time"

	"github.com/crowdpollen/crowdpollen/internal/submission"
)

// crowdStats summarizes one day's relevant submissions.
type crowdStats struct {
	// averageLevel is the mean reported level.
	averageLevel float64

	// accuracy is the fraction of VALIDATED verdicts among submissions
	// that carry any verdict. Submissions never classified do not count;
	// when none carry a verdict, accuracy is zero.
	accuracy float64

	// recency is the mean of a linear decay from 1 (just submitted) to 0
	// at the maximum submission age.
	recency float64

	count int
}

// computeCrowdStats derives averageLevel, accuracy, and recency for one
// day's submissions.
func computeCrowdStats(subs []submission.Submission, now time.Time, maxAge time.Duration) crowdStats {
	if len(subs) == 0 {
		return crowdStats{}
	}

	var (
		levelSum     float64
		recencySum   float64
		withVerdict  int
		validatedCnt int
	)

	maxAgeHours := maxAge.Hours()

	for i := range subs {
		sub := &subs[i]
		levelSum += float64(sub.Level)

		ageHours := now.Sub(sub.CreatedAt).Hours()
		r := 1 - ageHours/maxAgeHours
		if r < 0 {
			r = 0
		}
		if r > 1 {
			r = 1
		}
		recencySum += r

		if sub.HasVerdict() {
			withVerdict++
			if sub.Validated() {
				validatedCnt++
			}
		}
	}

	n := float64(len(subs))

	accuracy := 0.0
	if withVerdict > 0 {
		accuracy = float64(validatedCnt) / float64(withVerdict)
	}

	return crowdStats{
		averageLevel: levelSum / n,
		accuracy:     accuracy,
		recency:      recencySum / n,
		count:        len(subs),
	}
}
