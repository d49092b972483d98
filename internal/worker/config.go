// Package worker provides background forecast cache pre-warming for
// CrowdPollen.
package worker

import (
	"time"
)

// RefreshTarget represents a geographic region to pre-warm.
type RefreshTarget struct {
	// Name is the human-readable name of the target.
	Name string

	// Points are the lat/lon coordinates to pre-warm. Typically the
	// centers of metro areas with active submitters.
	Points []Point

	// Priority determines refresh order (lower = higher priority).
	Priority int
}

// Point represents a geographic coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// RefreshConfig holds configuration for the forecast refresh job.
type RefreshConfig struct {
	// Targets are the geographic regions to pre-warm.
	// If empty, uses DefaultRefreshTargets.
	Targets []RefreshTarget

	// ForecastDays is the day range to pre-warm per point.
	// Default: 3
	ForecastDays int

	// Concurrency is the number of concurrent refresh operations.
	// Default: 3
	Concurrency int

	// Timeout is the timeout for each refresh operation.
	// Default: 30 seconds
	Timeout time.Duration
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Targets:      DefaultRefreshTargets(),
		ForecastDays: 3,
		Concurrency:  3,
		Timeout:      30 * time.Second,
	}
}

// DefaultRefreshTargets returns the default pre-warm targets: the metro
// areas with the highest submission volume.
func DefaultRefreshTargets() []RefreshTarget {
	return []RefreshTarget{
		{
			Name:     "New York",
			Priority: 1,
			Points: []Point{
				{Lat: 40.7128, Lon: -74.0060}, // Manhattan
				{Lat: 40.6782, Lon: -73.9442}, // Brooklyn
			},
		},
		{
			Name:     "Los Angeles",
			Priority: 1,
			Points: []Point{
				{Lat: 34.0522, Lon: -118.2437},
			},
		},
		{
			Name:     "Chicago",
			Priority: 1,
			Points: []Point{
				{Lat: 41.8781, Lon: -87.6298},
			},
		},
		{
			Name:     "London",
			Priority: 1,
			Points: []Point{
				{Lat: 51.5074, Lon: -0.1278},
			},
		},
		{
			Name:     "Berlin",
			Priority: 2,
			Points: []Point{
				{Lat: 52.5200, Lon: 13.4050},
			},
		},
		{
			Name:     "Paris",
			Priority: 2,
			Points: []Point{
				{Lat: 48.8566, Lon: 2.3522},
			},
		},
		{
			Name:     "Amsterdam",
			Priority: 2,
			Points: []Point{
				{Lat: 52.3676, Lon: 4.9041},
			},
		},
		{
			Name:     "Madrid",
			Priority: 3,
			Points: []Point{
				{Lat: 40.4168, Lon: -3.7038},
			},
		},
		{
			Name:     "Sydney",
			Priority: 3,
			Points: []Point{
				{Lat: -33.8688, Lon: 151.2093},
			},
		},
		{
			Name:     "Tokyo",
			Priority: 3,
			Points: []Point{
				{Lat: 35.6762, Lon: 139.6503},
			},
		},
	}
}

// AllPoints returns all points from all targets, ordered by priority.
func (c RefreshConfig) AllPoints() []Point {
	var points []Point
	for _, target := range c.Targets {
		points = append(points, target.Points...)
	}
	return points
}

// TotalPoints returns the total number of points to refresh.
func (c RefreshConfig) TotalPoints() int {
	total := 0
	for _, target := range c.Targets {
		total += len(target.Points)
	}
	return total
}
