package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Location is a user's configured start point and last known position.
type Location struct {
	StartLat float64
	StartLng float64
	Lat      float64
	Lng      float64
}

// LocationRepository persists per-user positions.
type LocationRepository interface {
	Get(ctx context.Context, userID int64) (*Location, error)

	// ResetStart overwrites both the start and the current position.
	ResetStart(ctx context.Context, userID int64, lat, lng float64) error

	// SetCurrent updates only the current position.
	SetCurrent(ctx context.Context, userID int64, lat, lng float64) error
}

type locationRepository struct {
	db Querier
}

// NewLocationRepository creates a new location repository.
func NewLocationRepository(db Querier) LocationRepository {
	return &locationRepository{db: db}
}

// Get returns the stored location, or nil when the user has none.
func (r *locationRepository) Get(ctx context.Context, userID int64) (*Location, error) {
	loc := &Location{}
	err := r.db.QueryRowContext(ctx, `
		SELECT start_lat, start_lng, lat, lng
		FROM locations
		WHERE user_id = ?
	`, userID).Scan(&loc.StartLat, &loc.StartLng, &loc.Lat, &loc.Lng)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get location: %w", err)
	}
	return loc, nil
}

// ResetStart moves both the start and the current position.
func (r *locationRepository) ResetStart(ctx context.Context, userID int64, lat, lng float64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO locations (user_id, start_lat, start_lng, lat, lng)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			start_lat = excluded.start_lat,
			start_lng = excluded.start_lng,
			lat = excluded.lat,
			lng = excluded.lng
	`, userID, lat, lng, lat, lng)
	if err != nil {
		return fmt.Errorf("failed to reset location: %w", err)
	}
	return nil
}

// SetCurrent updates the current position.
func (r *locationRepository) SetCurrent(ctx context.Context, userID int64, lat, lng float64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE locations SET lat = ?, lng = ? WHERE user_id = ?`, lat, lng, userID)
	if err != nil {
		return fmt.Errorf("failed to set location: %w", err)
	}
	return nil
}
