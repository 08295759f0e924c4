package repository

import (
	"context"
	"fmt"
	"time"
)

// SpinRepository stores timestamped fort spins.
type SpinRepository interface {
	Insert(ctx context.Context, userID int64, at time.Time) error
	DeleteBefore(ctx context.Context, userID int64, cutoff time.Time) (int64, error)
	Count(ctx context.Context, userID int64) (int, error)
}

type spinRepository struct {
	db Querier
}

// NewSpinRepository creates a new spin repository.
func NewSpinRepository(db Querier) SpinRepository {
	return &spinRepository{db: db}
}

func (r *spinRepository) Insert(ctx context.Context, userID int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO spins (user_id, created_at) VALUES (?, ?)`, userID, at.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert spin: %w", err)
	}
	return nil
}

func (r *spinRepository) DeleteBefore(ctx context.Context, userID int64, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM spins WHERE user_id = ? AND created_at < ?`, userID, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge spins: %w", err)
	}
	return result.RowsAffected()
}

func (r *spinRepository) Count(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM spins WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count spins: %w", err)
	}
	return n, nil
}
