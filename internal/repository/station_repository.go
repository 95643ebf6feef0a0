package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/James-Fry-2/train-data-api/internal/models"
)

// StationRepository handles database operations for the station directory
type StationRepository struct {
	db *sql.DB
}

// NewStationRepository creates a new station repository
func NewStationRepository(db *sql.DB) *StationRepository {
	return &StationRepository{db: db}
}

// Lookup retrieves a station by CRS code
func (r *StationRepository) Lookup(ctx context.Context, code string) (*models.Station, error) {
	query := `SELECT code, name, latitude, longitude, operator FROM stations WHERE code = ?`

	st, err := scanStation(r.db.QueryRowContext(ctx, query, strings.ToUpper(code)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("station %s: %w", code, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get station: %w", err)
	}
	return st, nil
}

// ListWithCoordinates returns up to limit stations that have a known position
func (r *StationRepository) ListWithCoordinates(ctx context.Context, limit int) ([]models.Station, error) {
	query := `
		SELECT code, name, latitude, longitude, operator
		FROM stations
		WHERE latitude IS NOT NULL AND longitude IS NOT NULL
		ORDER BY code
		LIMIT ?
	`
	return r.list(ctx, query, limit)
}

// Search finds stations whose name or code contains the query
func (r *StationRepository) Search(ctx context.Context, q string, limit int) ([]models.Station, error) {
	query := `
		SELECT code, name, latitude, longitude, operator
		FROM stations
		WHERE name LIKE ? OR code LIKE ?
		ORDER BY CASE WHEN code = ? THEN 0 ELSE 1 END, name
		LIMIT ?
	`
	pattern := "%" + strings.TrimSpace(q) + "%"
	return r.list(ctx, query, pattern, pattern, strings.ToUpper(strings.TrimSpace(q)), limit)
}

// Upsert inserts or replaces stations in one transaction
func (r *StationRepository) Upsert(ctx context.Context, stations []models.Station) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stations (code, name, latitude, longitude, operator)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			name = excluded.name,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			operator = excluded.operator
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare station upsert: %w", err)
	}
	defer stmt.Close()

	for _, st := range stations {
		if _, err := stmt.ExecContext(ctx, st.Code, st.Name, st.Latitude, st.Longitude, st.Operator); err != nil {
			return fmt.Errorf("failed to upsert station %s: %w", st.Code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit stations: %w", err)
	}
	return nil
}

func (r *StationRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Station, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	defer rows.Close()

	stations := make([]models.Station, 0)
	for rows.Next() {
		st, err := scanStation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan station: %w", err)
		}
		stations = append(stations, *st)
	}

	return stations, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanStation(row scanner) (*models.Station, error) {
	var (
		st       models.Station
		lat, lon sql.NullFloat64
	)
	if err := row.Scan(&st.Code, &st.Name, &lat, &lon, &st.Operator); err != nil {
		return nil, err
	}
	if lat.Valid && lon.Valid {
		st.Latitude = &lat.Float64
		st.Longitude = &lon.Float64
	}
	return &st, nil
}
