package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/James-Fry-2/train-data-api/internal/models"
)

// VisitRepository persists detected station visits
type VisitRepository struct {
	db *sql.DB
}

// NewVisitRepository creates a new visit repository
func NewVisitRepository(db *sql.DB) *VisitRepository {
	return &VisitRepository{db: db}
}

// SaveStationVisit stores a visit including its board snapshots
func (r *VisitRepository) SaveStationVisit(ctx context.Context, visit *models.StationVisit) error {
	departures, err := json.Marshal(nonNilSnapshots(visit.PossibleDepartures))
	if err != nil {
		return fmt.Errorf("failed to encode departures: %w", err)
	}
	arrivals, err := json.Marshal(nonNilSnapshots(visit.PossibleArrivals))
	if err != nil {
		return fmt.Errorf("failed to encode arrivals: %w", err)
	}

	query := `
		INSERT INTO station_visits (
			id, user_id, visited_at, station_code, station_name,
			latitude, longitude, distance_km, departures_json, arrivals_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		visit.ID,
		visit.UserID,
		visit.Timestamp.UnixMilli(),
		visit.StationCode,
		visit.StationName,
		visit.Latitude,
		visit.Longitude,
		visit.DistanceKm,
		string(departures),
		string(arrivals),
	)
	if err != nil {
		return fmt.Errorf("failed to save station visit: %w", err)
	}
	return nil
}

// GetVisit retrieves one of a user's visits by id
func (r *VisitRepository) GetVisit(ctx context.Context, userID, id string) (*models.StationVisit, error) {
	query := visitColumns + ` WHERE user_id = ? AND id = ?`

	visit, err := scanVisit(r.db.QueryRowContext(ctx, query, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("visit %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get station visit: %w", err)
	}
	return visit, nil
}

// GetUserStationVisits returns a user's most recent visits, newest first
func (r *VisitRepository) GetUserStationVisits(ctx context.Context, userID string, limit int) ([]models.StationVisit, error) {
	query := visitColumns + ` WHERE user_id = ? ORDER BY visited_at DESC, id DESC LIMIT ?`
	return r.list(ctx, query, userID, limit)
}

// GetVisitsBetween returns a user's visits strictly between two instants, oldest first
func (r *VisitRepository) GetVisitsBetween(ctx context.Context, userID string, from, to time.Time) ([]models.StationVisit, error) {
	query := visitColumns + ` WHERE user_id = ? AND visited_at > ? AND visited_at < ? ORDER BY visited_at ASC`
	return r.list(ctx, query, userID, from.UnixMilli(), to.UnixMilli())
}

const visitColumns = `
	SELECT id, user_id, visited_at, station_code, station_name,
		   latitude, longitude, distance_km, departures_json, arrivals_json
	FROM station_visits`

func (r *VisitRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.StationVisit, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query station visits: %w", err)
	}
	defer rows.Close()

	visits := make([]models.StationVisit, 0)
	for rows.Next() {
		visit, err := scanVisit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan station visit: %w", err)
		}
		visits = append(visits, *visit)
	}

	return visits, rows.Err()
}

func scanVisit(row scanner) (*models.StationVisit, error) {
	var (
		visit                models.StationVisit
		visitedAt            int64
		departures, arrivals string
	)
	err := row.Scan(
		&visit.ID,
		&visit.UserID,
		&visitedAt,
		&visit.StationCode,
		&visit.StationName,
		&visit.Latitude,
		&visit.Longitude,
		&visit.DistanceKm,
		&departures,
		&arrivals,
	)
	if err != nil {
		return nil, err
	}

	visit.Timestamp = time.UnixMilli(visitedAt).UTC()
	if err := json.Unmarshal([]byte(departures), &visit.PossibleDepartures); err != nil {
		return nil, fmt.Errorf("failed to decode departures: %w", err)
	}
	if err := json.Unmarshal([]byte(arrivals), &visit.PossibleArrivals); err != nil {
		return nil, fmt.Errorf("failed to decode arrivals: %w", err)
	}
	return &visit, nil
}

func nonNilSnapshots(s []models.ServiceSnapshot) []models.ServiceSnapshot {
	if s == nil {
		return []models.ServiceSnapshot{}
	}
	return s
}
