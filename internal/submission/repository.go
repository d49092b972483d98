package submission

import "context"

// Store provides read access to submissions near a location. Concrete
// transports live behind this interface; the fusion engine depends only
// on it.
type Store interface {
	// GetNearby returns submissions within radiusKm of the point.
	// Submissions without coordinates are included best-effort.
	GetNearby(ctx context.Context, lat, lon, radiusKm float64) ([]Submission, error)
}
