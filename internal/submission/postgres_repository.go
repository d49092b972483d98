package submission

import (
	"context"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a PostgreSQL implementation of Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL submission store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// GetNearby returns submissions within radiusKm of the point, plus any
// submissions without coordinates. The query prefilters with a bounding
// box; the precise great-circle check happens in SQL on the reduced set.
func (s *PostgresStore) GetNearby(ctx context.Context, lat, lon, radiusKm float64) ([]Submission, error) {
	latDelta := radiusKm / 111.0
	lonDelta := radiusKm / (111.0 * math.Max(math.Cos(lat*math.Pi/180), 0.01))

	query := `
		SELECT id, latitude, longitude, level, created_at, validation_status
		FROM submissions
		WHERE
			(latitude IS NULL OR longitude IS NULL)
			OR (
				latitude BETWEEN $1 AND $2
				AND longitude BETWEEN $3 AND $4
				AND 6371 * acos(
					least(1.0,
						cos(radians($5)) * cos(radians(latitude)) *
						cos(radians(longitude) - radians($6)) +
						sin(radians($5)) * sin(radians(latitude))
					)
				) <= $7
			)
		ORDER BY created_at DESC
	`

	rows, err := s.pool.Query(ctx, query,
		lat-latDelta, lat+latDelta,
		lon-lonDelta, lon+lonDelta,
		lat, lon, radiusKm,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var result []Submission
	for rows.Next() {
		var sub Submission
		var status *string

		if err := rows.Scan(&sub.ID, &sub.Latitude, &sub.Longitude, &sub.Level, &sub.CreatedAt, &status); err != nil {
			return nil, fmt.Errorf("scanning submission: %w", err)
		}
		if status != nil {
			st := Status(*status)
			sub.ValidationStatus = &st
		}
		result = append(result, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	return result, nil
}
