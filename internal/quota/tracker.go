// Package quota keeps the rolling daily counters that gate the main loop.
// The database is the only source of truth: every count purges expired
// events first, so results are exact across restarts.
package quota

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/xDyN/AlphaBot/internal/clock"
	"github.com/xDyN/AlphaBot/internal/storage"
	"github.com/xDyN/AlphaBot/internal/storage/repository"
)

// Window is how long an event counts against the daily limits.
const Window = 12 * time.Hour

// Tracker records captures and spins per account.
type Tracker struct {
	db    *storage.DB
	clock clock.Clock
}

// NewTracker creates a tracker over db.
func NewTracker(db *storage.DB, clk clock.Clock) *Tracker {
	return &Tracker{db: db, clock: clk}
}

// RecordCapture appends a capture event for the encounter. The same row marks
// the encounter as resolved.
func (t *Tracker) RecordCapture(ctx context.Context, account, encounterID string) error {
	userID, err := repository.NewUserRepository(t.db.Conn()).Ensure(ctx, account)
	if err != nil {
		return err
	}
	return repository.NewCatchRepository(t.db.Conn()).Insert(ctx, userID, encounterID, t.clock.Now())
}

// RecordSpin appends a spin event.
func (t *Tracker) RecordSpin(ctx context.Context, account string) error {
	userID, err := repository.NewUserRepository(t.db.Conn()).Ensure(ctx, account)
	if err != nil {
		return err
	}
	return repository.NewSpinRepository(t.db.Conn()).Insert(ctx, userID, t.clock.Now())
}

// Resolved reports whether the encounter was recorded within the window.
func (t *Tracker) Resolved(ctx context.Context, account, encounterID string) (bool, error) {
	userID, err := repository.NewUserRepository(t.db.Conn()).ID(ctx, account)
	if err != nil || userID == 0 {
		return false, err
	}
	return repository.NewCatchRepository(t.db.Conn()).Exists(ctx, userID, encounterID)
}

// CaptureCount purges expired capture events and counts the rest.
func (t *Tracker) CaptureCount(ctx context.Context, account string) (int, error) {
	return t.purgeAndCount(ctx, account, func(q repository.Querier) counter {
		return repository.NewCatchRepository(q)
	})
}

// SpinCount purges expired spin events and counts the rest.
func (t *Tracker) SpinCount(ctx context.Context, account string) (int, error) {
	return t.purgeAndCount(ctx, account, func(q repository.Querier) counter {
		return repository.NewSpinRepository(q)
	})
}

type counter interface {
	DeleteBefore(ctx context.Context, userID int64, cutoff time.Time) (int64, error)
	Count(ctx context.Context, userID int64) (int, error)
}

func (t *Tracker) purgeAndCount(ctx context.Context, account string, repo func(repository.Querier) counter) (int, error) {
	userID, err := repository.NewUserRepository(t.db.Conn()).ID(ctx, account)
	if err != nil {
		return 0, err
	}
	if userID == 0 {
		return 0, nil
	}

	cutoff := t.clock.Now().Add(-Window)

	var n int
	err = t.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		r := repo(tx)
		if _, err := r.DeleteBefore(ctx, userID, cutoff); err != nil {
			return err
		}
		n, err = r.Count(ctx, userID)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("count events for %s: %w", account, err)
	}
	return n, nil
}
