// Package position persists the avatar's coordinate per account.
package position

import (
	"context"
	"fmt"

	"github.com/xDyN/AlphaBot/internal/geo"
	"github.com/xDyN/AlphaBot/internal/storage"
	"github.com/xDyN/AlphaBot/internal/storage/repository"
)

// Store reads and writes stored locations.
type Store struct {
	db *storage.DB
}

// NewStore creates a location store.
func NewStore(db *storage.DB) *Store {
	return &Store{db: db}
}

// Resume returns where the account should start. When the configured start
// point differs from the stored one, the stored location is reset to it and
// resumed is false; otherwise the last saved position is returned.
func (s *Store) Resume(ctx context.Context, account string, start geo.Point) (p geo.Point, resumed bool, err error) {
	userID, err := repository.NewUserRepository(s.db.Conn()).Ensure(ctx, account)
	if err != nil {
		return geo.Point{}, false, err
	}

	repo := repository.NewLocationRepository(s.db.Conn())
	loc, err := repo.Get(ctx, userID)
	if err != nil {
		return geo.Point{}, false, err
	}

	if loc == nil || loc.StartLat != start.Lat || loc.StartLng != start.Lng {
		if err := repo.ResetStart(ctx, userID, start.Lat, start.Lng); err != nil {
			return geo.Point{}, false, err
		}
		return start, false, nil
	}

	return geo.Point{Lat: loc.Lat, Lng: loc.Lng}, true, nil
}

// Save stores p as the account's current position.
func (s *Store) Save(ctx context.Context, account string, p geo.Point) error {
	userID, err := repository.NewUserRepository(s.db.Conn()).Ensure(ctx, account)
	if err != nil {
		return err
	}
	if err := repository.NewLocationRepository(s.db.Conn()).SetCurrent(ctx, userID, p.Lat, p.Lng); err != nil {
		return fmt.Errorf("save position for %s: %w", account, err)
	}
	return nil
}
