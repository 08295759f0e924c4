package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// UserRepository maps account names to row ids.
type UserRepository interface {
	// Ensure returns the id for username, creating the user and an empty
	// location row on first use.
	Ensure(ctx context.Context, username string) (int64, error)

	// ID returns the id for username, or 0 when the user does not exist.
	ID(ctx context.Context, username string) (int64, error)
}

type userRepository struct {
	db Querier
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db Querier) UserRepository {
	return &userRepository{db: db}
}

// Ensure creates the user if needed.
func (r *userRepository) Ensure(ctx context.Context, username string) (int64, error) {
	id, err := r.ID(ctx, username)
	if err != nil {
		return 0, err
	}
	if id != 0 {
		return id, nil
	}

	result, err := r.db.ExecContext(ctx, `INSERT INTO users (username) VALUES (?)`, username)
	if err != nil {
		return 0, fmt.Errorf("failed to create user %s: %w", username, err)
	}
	id, err = result.LastInsertId()
	if err != nil {
		return 0, err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO locations (user_id, start_lat, start_lng, lat, lng)
		VALUES (?, 0, 0, 0, 0)
	`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to create location for %s: %w", username, err)
	}

	return id, nil
}

// ID looks up a user id.
func (r *userRepository) ID(ctx context.Context, username string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM users WHERE username = ?`, username).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get user %s: %w", username, err)
	}
	return id, nil
}
