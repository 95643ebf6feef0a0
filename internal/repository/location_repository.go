package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/James-Fry-2/train-data-api/internal/models"
)

// LocationRepository stores raw location updates
type LocationRepository struct {
	db *sql.DB
}

// NewLocationRepository creates a new location repository
func NewLocationRepository(db *sql.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// SaveUserLocation appends a location sample to the user's history
func (r *LocationRepository) SaveUserLocation(ctx context.Context, userID string, sample models.LocationSample) error {
	query := `
		INSERT INTO user_locations (user_id, recorded_at, latitude, longitude, speed)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		userID,
		sample.Timestamp.UnixMilli(),
		sample.Latitude,
		sample.Longitude,
		sample.Speed,
	)
	if err != nil {
		return fmt.Errorf("failed to save user location: %w", err)
	}
	return nil
}

// GetUserLocationsBetween returns a user's samples within [from, to], oldest first
func (r *LocationRepository) GetUserLocationsBetween(ctx context.Context, userID string, from, to time.Time) ([]models.LocationSample, error) {
	query := `
		SELECT recorded_at, latitude, longitude, speed
		FROM user_locations
		WHERE user_id = ? AND recorded_at >= ? AND recorded_at <= ?
		ORDER BY recorded_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, userID, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query user locations: %w", err)
	}
	defer rows.Close()

	samples := make([]models.LocationSample, 0)
	for rows.Next() {
		var (
			s          models.LocationSample
			recordedAt int64
			speed      sql.NullFloat64
		)
		if err := rows.Scan(&recordedAt, &s.Latitude, &s.Longitude, &speed); err != nil {
			return nil, fmt.Errorf("failed to scan user location: %w", err)
		}
		s.Timestamp = time.UnixMilli(recordedAt).UTC()
		if speed.Valid {
			v := speed.Float64
			s.Speed = &v
		}
		samples = append(samples, s)
	}

	return samples, rows.Err()
}
