package pollen

import (
	"errors"
	"time"
)

// Forecast errors.
var (
	// ErrProviderUnavailable indicates a transient provider failure that
	// survived the retry policy. Callers normally never see it because the
	// service degrades to synthetic data instead.
	ErrProviderUnavailable = errors.New("pollen provider unavailable")

	// ErrPermissionDenied indicates the provider rejected our credentials.
	// This is fatal: it signals misconfiguration, not unavailability, and
	// is never masked by fallback data.
	ErrPermissionDenied = errors.New("pollen provider rejected credentials")

	// ErrRateLimited indicates the provider signaled overload.
	ErrRateLimited = errors.New("pollen provider rate limit exceeded")

	// ErrNoDataForRegion indicates the provider has no coverage for the
	// requested location. Surfaced distinctly so callers can report
	// "unsupported region" rather than "temporarily unavailable".
	ErrNoDataForRegion = errors.New("no pollen data for region")

	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrInvalidDays        = errors.New("days must be between 1 and 5")
)

// Category represents a pollen category.
type Category string

const (
	CategoryTree  Category = "TREE"
	CategoryGrass Category = "GRASS"
	CategoryWeed  Category = "WEED"
)

// AllCategories returns all supported pollen categories.
func AllCategories() []Category {
	return []Category{CategoryTree, CategoryGrass, CategoryWeed}
}

// Class is the categorical pollen level reported alongside the index.
type Class string

const (
	ClassUnspecified Class = "UNSPECIFIED"
	ClassVeryLow     Class = "VERY_LOW"
	ClassLow         Class = "LOW"
	ClassModerate    Class = "MODERATE"
	ClassHigh        Class = "HIGH"
	ClassVeryHigh    Class = "VERY_HIGH"
)

// ClassFromIndex infers a Class from a 0-5 index. The provider sometimes
// reports UNSPECIFIED with a nonzero index; this repairs that gap with
// fixed thresholds.
func ClassFromIndex(index int) Class {
	switch {
	case index <= 0:
		return ClassUnspecified
	case index <= 1:
		return ClassVeryLow
	case index <= 2:
		return ClassLow
	case index <= 3:
		return ClassModerate
	case index <= 4:
		return ClassHigh
	default:
		return ClassVeryHigh
	}
}

// Source identifies the provenance of a forecast.
type Source string

const (
	// SourceAuthoritative marks data fetched from the provider.
	SourceAuthoritative Source = "authoritative"

	// SourceSynthetic marks locally generated fallback data.
	SourceSynthetic Source = "synthetic"
)

// Reading is one pollen measurement for a single category.
type Reading struct {
	// Category is the pollen category.
	Category Category

	// Level is the pollen index on the 0-5 scale.
	Level int

	// Class is the categorical level. Level==0 implies ClassUnspecified
	// unless the class was inferred from a nonzero raw index.
	Class Class

	// PlantsInSeason lists species currently in season, if known.
	PlantsInSeason []string
}

// DailyForecast is the forecast for a single calendar day. It carries
// exactly one reading per category and is immutable once produced.
type DailyForecast struct {
	// Date of the forecast (time component zeroed, UTC).
	Date time.Time

	// Readings contains one reading per category.
	Readings map[Category]Reading

	// HealthNotes are ordered provider health recommendations.
	HealthNotes []string
}

// MaxLevel returns the highest level across all categories. The single
// worst category drives risk summaries and the fusion blend.
func (d *DailyForecast) MaxLevel() int {
	maxLevel := 0
	for _, r := range d.Readings {
		if r.Level > maxLevel {
			maxLevel = r.Level
		}
	}
	return maxLevel
}

// Reading returns the reading for a category, or a zero reading if absent.
func (d *DailyForecast) Reading(cat Category) Reading {
	if r, ok := d.Readings[cat]; ok {
		return r
	}
	return Reading{Category: cat, Class: ClassUnspecified}
}

// Forecast is a multi-day forecast with provenance metadata.
type Forecast struct {
	// Days holds one entry per requested day.
	Days []DailyForecast

	// Source marks whether this is genuine provider data or synthetic
	// fallback data.
	Source Source

	// Provider identifies the data source for logging.
	Provider string

	// FetchedAt is when the forecast was produced.
	FetchedAt time.Time
}

// Synthetic reports whether the forecast was generated locally.
func (f *Forecast) Synthetic() bool {
	return f.Source == SourceSynthetic
}

// validateCoordinates checks that coordinates are on the globe.
func validateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}
