package repository

import (
	"context"
	"fmt"
	"time"
)

// CatchRepository stores resolved encounters. Rows double as capture quota
// events, so they are timestamped and purged by age.
type CatchRepository interface {
	Insert(ctx context.Context, userID int64, encounterID string, at time.Time) error
	Exists(ctx context.Context, userID int64, encounterID string) (bool, error)
	DeleteBefore(ctx context.Context, userID int64, cutoff time.Time) (int64, error)
	Count(ctx context.Context, userID int64) (int, error)
}

type catchRepository struct {
	db Querier
}

// NewCatchRepository creates a new catch repository.
func NewCatchRepository(db Querier) CatchRepository {
	return &catchRepository{db: db}
}

// Insert appends a catch event.
func (r *catchRepository) Insert(ctx context.Context, userID int64, encounterID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO catches (user_id, encounter_id, created_at)
		VALUES (?, ?, ?)
	`, userID, encounterID, at.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert catch: %w", err)
	}
	return nil
}

// Exists reports whether the encounter was already recorded for the user.
func (r *catchRepository) Exists(ctx context.Context, userID int64, encounterID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM catches WHERE user_id = ? AND encounter_id = ?
	`, userID, encounterID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check catch: %w", err)
	}
	return n > 0, nil
}

// DeleteBefore removes the user's catches created strictly before cutoff.
func (r *catchRepository) DeleteBefore(ctx context.Context, userID int64, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM catches WHERE user_id = ? AND created_at < ?
	`, userID, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge catches: %w", err)
	}
	return result.RowsAffected()
}

// Count returns the number of catches stored for the user.
func (r *catchRepository) Count(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM catches WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count catches: %w", err)
	}
	return n, nil
}
