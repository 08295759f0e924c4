// Package snipe teleports to creatures reported by the spawn feed and hands
// each encounter to the capture engine.
package snipe

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/xDyN/AlphaBot/internal/capture"
	"github.com/xDyN/AlphaBot/internal/clock"
	"github.com/xDyN/AlphaBot/internal/feed"
	"github.com/xDyN/AlphaBot/internal/gamedata"
	"github.com/xDyN/AlphaBot/internal/geo"
	"github.com/xDyN/AlphaBot/internal/inventory"
	"github.com/xDyN/AlphaBot/internal/protocol"
	"github.com/xDyN/AlphaBot/internal/session"
)

const encounterPacing = 100 * time.Millisecond

// Feed lists current sightings.
type Feed interface {
	Sightings(ctx context.Context) ([]feed.Sighting, error)
}

// Tracker remembers which encounters were already attempted.
type Tracker interface {
	Resolved(ctx context.Context, account, encounterID string) (bool, error)
	RecordCapture(ctx context.Context, account, encounterID string) error
}

// Resolver runs the throw loop for one encounter.
type Resolver interface {
	Resolve(ctx context.Context, sess *session.Session, c inventory.Creature, rates capture.Rates) (capture.Result, error)
}

// Teleporter moves the protocol position without walking.
type Teleporter interface {
	Teleport(ctx context.Context, sess *session.Session, p geo.Point) error
}

// Releaser frees creature storage.
type Releaser interface {
	ReleaseUnwanted(ctx context.Context, client protocol.Client, snap *inventory.Snapshot, filter inventory.TransferFilter) error
}

// Options are the per-run tunables.
type Options struct {
	// MaxAttempts caps encounters per run; the same number of vanishes
	// flags the session as likely softbanned.
	MaxAttempts int

	RareFirst      bool
	TransferFilter inventory.TransferFilter
}

// Coordinator runs snipe passes.
type Coordinator struct {
	clock      clock.Clock
	feed       Feed
	tracker    Tracker
	engine     Resolver
	teleporter Teleporter
	releaser   Releaser
	tables     *gamedata.Tables
	logger     *zap.Logger

	options Options
}

// NewCoordinator creates a snipe coordinator.
func NewCoordinator(clk clock.Clock, f Feed, tracker Tracker, engine Resolver, teleporter Teleporter, releaser Releaser, tables *gamedata.Tables, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		clock:      clk,
		feed:       f,
		tracker:    tracker,
		engine:     engine,
		teleporter: teleporter,
		releaser:   releaser,
		tables:     tables,
		logger:     logger.Named("snipe"),
		options:    Options{MaxAttempts: 1},
	}
}

// SetOptions replaces the run tunables.
func (c *Coordinator) SetOptions(o Options) {
	c.options = o
}

// Run performs one snipe pass. A feed failure is logged and ends the pass
// without error.
func (c *Coordinator) Run(ctx context.Context, sess *session.Session) error {
	sightings, err := c.feed.Sightings(ctx)
	if err != nil {
		c.logger.Warn("spawn feed unavailable", zap.Error(err))
		return nil
	}
	feed.Sort(sightings, c.options.RareFirst)

	home := sess.Position
	attempts, vanishes := 0, 0

	for _, s := range sightings {
		if attempts >= c.options.MaxAttempts {
			break
		}
		if s.EncounterID == 0 {
			continue
		}
		key := strconv.FormatUint(s.EncounterID, 10)
		resolved, err := c.tracker.Resolved(ctx, sess.Account, key)
		if err != nil {
			return err
		}
		if resolved {
			continue
		}

		res, err := c.encounter(ctx, sess, s, home)
		if err != nil {
			return err
		}

		if res != nil && res.Status == protocol.EncounterPokemonInventoryFull {
			c.logger.Warn("creature storage is full, releasing")
			return c.releaser.ReleaseUnwanted(ctx, sess.Client, sess.Inventory, c.options.TransferFilter)
		}

		vanished, err := c.attempt(ctx, sess, s, res)
		if err != nil {
			return err
		}
		if vanished {
			vanishes++
		}
		if err := c.tracker.RecordCapture(ctx, sess.Account, key); err != nil {
			return err
		}

		attempts++
		if vanishes >= c.options.MaxAttempts {
			c.logger.Warn("too many vanished encounters, likely softbanned", zap.Int("vanished", vanishes))
			sess.LikelySoftbanned = true
		}
	}
	return nil
}

// encounter teleports to the sighting, opens the encounter and teleports
// back to home.
func (c *Coordinator) encounter(ctx context.Context, sess *session.Session, s feed.Sighting, home geo.Point) (*protocol.EncounterResult, error) {
	target := geo.Point{Lat: s.Latitude, Lng: s.Longitude}
	if err := c.teleporter.Teleport(ctx, sess, target); err != nil {
		return nil, err
	}
	if err := c.clock.Sleep(ctx, encounterPacing); err != nil {
		return nil, err
	}
	res, err := sess.Client.Encounter(ctx, protocol.EncounterRequest{
		EncounterID:  s.EncounterID,
		SpawnPointID: s.SpawnPointID,
		Player:       target,
	})
	if err != nil {
		return nil, fmt.Errorf("encounter: %w", err)
	}
	if err := c.teleporter.Teleport(ctx, sess, home); err != nil {
		return nil, err
	}
	return res, nil
}

// attempt resolves an opened encounter and reports whether it vanished.
func (c *Coordinator) attempt(ctx context.Context, sess *session.Session, s feed.Sighting, res *protocol.EncounterResult) (bool, error) {
	if res == nil || res.WildPokemon == nil {
		c.logger.Warn("creature vanished before the encounter", zap.String("pokemon", c.tables.SpeciesName(s.PokemonID)))
		return true, nil
	}

	ref := &inventory.EncounterRef{EncounterID: s.EncounterID, SpawnPointID: s.SpawnPointID}
	creature := inventory.NewCreature(res.WildPokemon.Pokemon, ref, c.tables)
	c.logger.Info("encountered",
		zap.String("pokemon", creature.Name),
		zap.Int("cp", creature.CP),
		zap.Float64("iv", creature.IV()),
		zap.String("ads", creature.IVDisplay()),
		zap.String("moves", creature.Move1+"/"+creature.Move2),
	)

	result, err := c.engine.Resolve(ctx, sess, creature, capture.NewRates(res.CaptureProbability))
	if err != nil {
		return false, err
	}
	if result.Status == capture.Captured {
		creature.ID = result.CreatureID
		sess.Inventory.AddCreature(creature)
	}
	return result.Status == capture.Vanished, nil
}
