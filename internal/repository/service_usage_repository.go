package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/James-Fry-2/train-data-api/internal/models"
)

// ServiceUsageRepository records identified train services
type ServiceUsageRepository struct {
	db *sql.DB
}

// NewServiceUsageRepository creates a new service usage repository
func NewServiceUsageRepository(db *sql.DB) *ServiceUsageRepository {
	return &ServiceUsageRepository{db: db}
}

// RecordServiceUsage stores a confidently identified service
func (r *ServiceUsageRepository) RecordServiceUsage(ctx context.Context, usage *models.ServiceUsage) error {
	query := `
		INSERT INTO service_usage (
			id, user_id, service_id, operator, origin_code, destination_code,
			departure_time, arrival_time, confidence, origin_visit_id,
			destination_visit_id, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		usage.ID,
		usage.UserID,
		usage.ServiceID,
		usage.Operator,
		usage.OriginCode,
		usage.DestinationCode,
		usage.DepartureTime.UnixMilli(),
		usage.ArrivalTime.UnixMilli(),
		usage.Confidence,
		usage.OriginVisitID,
		usage.DestinationVisitID,
		usage.RecordedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record service usage: %w", err)
	}
	return nil
}

// GetUserServiceHistory returns a user's identified services, newest first
func (r *ServiceUsageRepository) GetUserServiceHistory(ctx context.Context, userID string, filter models.ServiceHistoryFilter) ([]models.ServiceUsage, error) {
	query := `
		SELECT id, user_id, service_id, operator, origin_code, destination_code,
			   departure_time, arrival_time, confidence, origin_visit_id,
			   destination_visit_id, recorded_at
		FROM service_usage
		WHERE user_id = ?
	`
	args := []interface{}{userID}

	if filter.Since > 0 {
		query += " AND recorded_at >= ?"
		args = append(args, filter.Since*1000)
	}
	if filter.MinScore > 0 {
		query += " AND confidence >= ?"
		args = append(args, filter.MinScore)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " ORDER BY recorded_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query service usage: %w", err)
	}
	defer rows.Close()

	history := make([]models.ServiceUsage, 0)
	for rows.Next() {
		var (
			u                        models.ServiceUsage
			departure, arrival, recd int64
		)
		err := rows.Scan(
			&u.ID,
			&u.UserID,
			&u.ServiceID,
			&u.Operator,
			&u.OriginCode,
			&u.DestinationCode,
			&departure,
			&arrival,
			&u.Confidence,
			&u.OriginVisitID,
			&u.DestinationVisitID,
			&recd,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan service usage: %w", err)
		}
		u.DepartureTime = time.UnixMilli(departure).UTC()
		u.ArrivalTime = time.UnixMilli(arrival).UTC()
		u.RecordedAt = time.UnixMilli(recd).UTC()
		history = append(history, u)
	}

	return history, rows.Err()
}
