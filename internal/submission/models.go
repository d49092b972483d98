// Package submission provides read access to crowd-submitted pollen
// observations. Submissions are created elsewhere; this subsystem only
// reads them.
package submission

import (
	"errors"
	"time"
)

// Submission errors.
var (
	ErrStoreUnavailable = errors.New("submission store unavailable")
)

// Status is a persisted validation verdict on a submission.
type Status string

const (
	StatusValidated           Status = "VALIDATED"
	StatusVariance            Status = "VARIANCE"
	StatusSignificantVariance Status = "SIGNIFICANT_VARIANCE"
	StatusNoData              Status = "NO_DATA"
	StatusError               Status = "ERROR"
)

// Submission is a single crowd-reported pollen observation.
type Submission struct {
	// ID is the submission identifier.
	ID string

	// Latitude and Longitude are the reported coordinates. Nil when the
	// submitter withheld location; such submissions pass distance
	// filters on a best-effort basis.
	Latitude  *float64
	Longitude *float64

	// Level is the reported pollen level on the 0-5 scale.
	Level int

	// CreatedAt is when the observation was submitted.
	CreatedAt time.Time

	// ValidationStatus is the verdict from a previous classification,
	// if any. Nil means the submission was never classified.
	ValidationStatus *Status
}

// HasLocation reports whether the submission carries coordinates.
func (s *Submission) HasLocation() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// Validated reports whether the submission carries a VALIDATED verdict.
func (s *Submission) Validated() bool {
	return s.ValidationStatus != nil && *s.ValidationStatus == StatusValidated
}

// HasVerdict reports whether the submission carries any verdict.
func (s *Submission) HasVerdict() bool {
	return s.ValidationStatus != nil
}
