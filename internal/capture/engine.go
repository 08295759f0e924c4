// Package capture resolves a single creature encounter: it picks a device,
// decides on a boost, throws until the creature is captured or lost, and
// runs the softban recovery routine when the session is flagged.
package capture

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/xDyN/AlphaBot/internal/clock"
	"github.com/xDyN/AlphaBot/internal/events"
	"github.com/xDyN/AlphaBot/internal/gamedata"
	"github.com/xDyN/AlphaBot/internal/inventory"
	"github.com/xDyN/AlphaBot/internal/protocol"
	"github.com/xDyN/AlphaBot/internal/session"
)

// Status is the outcome of Resolve.
type Status int

const (
	Captured Status = iota + 1
	Vanished
	Aborted
)

func (s Status) String() string {
	switch s {
	case Captured:
		return "captured"
	case Vanished:
		return "vanished"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Result is the outcome of one encounter.
type Result struct {
	Status Status

	// CreatureID is the id of the captured creature; 0 when the service did
	// not report one.
	CreatureID uint64
}

// Tunables of the throw loop.
const (
	// LowRate is the capture rate below which the engine boosts or upgrades.
	LowRate = 0.25

	// BoostMargin is how many spare boost items, beyond the stronger devices
	// in stock, allow boosting before upgrading the device.
	BoostMargin = 30

	// MaxDevice is the strongest device used automatically.
	MaxDevice = inventory.ItemUltraBall

	// BoostItem is fed to raise capture rates.
	BoostItem = inventory.ItemRazzBerry

	recoveryThrows   = 20
	circuitSleeps    = 5
	throwPacing      = 100 * time.Millisecond
	retryPacing      = 100 * time.Millisecond
	recoveryInterval = time.Second
)

var errNoEncounter = errors.New("creature has no encounter reference")

// Engine resolves encounters. It is not safe for concurrent use.
type Engine struct {
	clock      clock.Clock
	rand       *rand.Rand
	tables     *gamedata.Tables
	dispatcher *events.EventDispatcher
	logger     *zap.Logger

	reticleFactor float64
	spinFactor    float64
}

// NewEngine creates a capture engine. rng drives the throw parameters and
// may be seeded for reproducible tests; dispatcher may be nil.
func NewEngine(clk clock.Clock, rng *rand.Rand, tables *gamedata.Tables, dispatcher *events.EventDispatcher, logger *zap.Logger) *Engine {
	return &Engine{
		clock:      clk,
		rand:       rng,
		tables:     tables,
		dispatcher: dispatcher,
		logger:     logger.Named("capture"),
	}
}

// SetThrowFactors sets how strongly throws are biased toward a small
// reticle and a strong spin. Both factors are clamped to [0, 1].
func (e *Engine) SetThrowFactors(reticle, spin float64) {
	e.reticleFactor = clamp(reticle)
	e.spinFactor = clamp(spin)
}

// Resolve throws devices at c until it is captured, vanishes, or the attempt
// is aborted. Protocol errors are returned as is.
func (e *Engine) Resolve(ctx context.Context, sess *session.Session, c inventory.Creature, rates Rates) (Result, error) {
	if c.Encounter == nil {
		return Result{}, errNoEncounter
	}
	inv := sess.Inventory
	boosted := false

	for {
		if sess.LikelySoftbanned {
			return e.recover(ctx, sess, c)
		}

		device, stocked := weakestStocked(inv)
		if !stocked {
			e.logger.Warn("no usable capture device found")
		}

		if rates.At(device) < LowRate && !boosted && inv.Count(BoostItem) > strongerStock(inv, device)+BoostMargin {
			var err error
			rates, boosted, err = e.boost(ctx, sess, c, rates, device)
			if err != nil {
				return Result{}, err
			}
		}

		for next := device + 1; next <= MaxDevice; next++ {
			if rates.At(device) < LowRate && inv.Count(next) > 0 {
				device = next
			}
		}

		if rates.At(device) < LowRate && !boosted && inv.Count(BoostItem) > 0 {
			var err error
			rates, boosted, err = e.boost(ctx, sess, c, rates, device)
			if err != nil {
				return Result{}, err
			}
		}

		if inv.Count(device) > 0 {
			if err := inv.Remove(device, 1); err != nil {
				return Result{}, err
			}
		}

		e.logger.Info("throwing",
			zap.String("device", e.tables.ItemName(device)),
			zap.String("chance", fmt.Sprintf("%.2f%%", rates.At(device)*100)),
			zap.Int("left", inv.Count(device)),
		)

		if err := e.clock.Sleep(ctx, throwPacing); err != nil {
			return Result{}, err
		}

		res, err := sess.Client.CatchPokemon(ctx, e.throw(c, device, true))
		if err != nil {
			return Result{}, err
		}
		if res == nil {
			e.logger.Debug("catch response had no payload", zap.String("pokemon", c.Name))
			e.emit(ctx, events.CatchAborted, sess, c, device, 0, 0)
			return Result{Status: Aborted}, nil
		}

		switch res.Status {
		case protocol.CatchEscape:
			e.logger.Info("capture failed, trying again", zap.String("pokemon", c.Name))
			e.emit(ctx, events.CatchEscaped, sess, c, device, 0, 0)
			if err := e.clock.Sleep(ctx, retryPacing); err != nil {
				return Result{}, err
			}
			continue

		case protocol.CatchFlee:
			e.logger.Warn("vanished", zap.String("pokemon", c.Name))
			e.emit(ctx, events.CatchVanished, sess, c, device, 0, 0)
			return Result{Status: Vanished}, nil

		case protocol.CatchSuccess:
			xp := res.Award.TotalXP()
			inv.AddExperience(xp)
			sess.RecoveryAttempts = 0

			e.logger.Info("captured",
				zap.String("pokemon", c.Name),
				zap.Int("cp", c.CP),
				zap.Float64("iv", c.IV()),
				zap.String("ads", c.IVDisplay()),
				zap.Int("xp", xp),
			)
			e.emit(ctx, events.CatchCaptured, sess, c, device, res.CapturedPokemonID, xp)
			return Result{Status: Captured, CreatureID: res.CapturedPokemonID}, nil

		default:
			e.logger.Debug("unexpected catch status",
				zap.String("pokemon", c.Name),
				zap.Stringer("status", res.Status),
			)
			e.emit(ctx, events.CatchAborted, sess, c, device, 0, 0)
			return Result{Status: Aborted}, nil
		}
	}
}

// boost feeds one boost item. The attempt counts even when the service does
// not apply it; stock is only consumed on a confirmed multiplier.
func (e *Engine) boost(ctx context.Context, sess *session.Session, c inventory.Creature, rates Rates, device int) (Rates, bool, error) {
	inv := sess.Inventory

	e.logger.Info("capture rate is low, using boost",
		zap.String("chance", fmt.Sprintf("%.2f%%", rates.At(device)*100)),
		zap.String("device", e.tables.ItemName(device)),
		zap.String("boost", e.tables.ItemName(BoostItem)),
		zap.Int("have", inv.Count(BoostItem)),
	)

	res, err := sess.Client.UseItemCapture(ctx, protocol.UseItemCaptureRequest{
		ItemID:       BoostItem,
		EncounterID:  c.Encounter.EncounterID,
		SpawnPointID: c.Encounter.SpawnPointID,
	})
	if err != nil {
		return rates, true, err
	}
	if res == nil || !res.Success || res.ItemCaptureMult <= 0 {
		return rates, true, nil
	}

	if err := inv.Remove(BoostItem, 1); err != nil {
		return rates, true, err
	}
	boosted := rates.Boost(res.ItemCaptureMult)

	e.logger.Info("boost applied",
		zap.String("device", e.tables.ItemName(device)),
		zap.String("chance", fmt.Sprintf("%.2f%%", boosted.At(device)*100)),
	)
	return boosted, true, nil
}

// recover runs the softban routine. The first two times it makes a burst of
// deliberately missed throws; after that it sleeps five hours and starts
// over. Either way the encounter is abandoned.
func (e *Engine) recover(ctx context.Context, sess *session.Session, c inventory.Creature) (Result, error) {
	if sess.RecoveryAttempts > 1 {
		e.logger.Error("softban recovery failed, sleeping for 5 hours")
		for i := 0; i < circuitSleeps; i++ {
			e.logger.Info("sleeping")
			if err := e.clock.Sleep(ctx, time.Hour); err != nil {
				return Result{}, err
			}
		}
		e.dispatch(ctx, events.CatchCircuitBreaker, events.SoftbanEvent{
			Account: sess.Account, Attempts: sess.RecoveryAttempts,
		})
		sess.LikelySoftbanned = false
		sess.RecoveryAttempts = 0
		return Result{Status: Aborted}, nil
	}

	e.logger.Error("probably softbanned, running recovery throws")
	inv := sess.Inventory
	for i := 0; i < recoveryThrows; i++ {
		if err := e.clock.Sleep(ctx, recoveryInterval); err != nil {
			return Result{}, err
		}

		device, stocked := weakestStocked(inv)
		if stocked {
			if err := inv.Remove(device, 1); err != nil {
				return Result{}, err
			}
		}
		if _, err := sess.Client.CatchPokemon(ctx, e.throw(c, device, false)); err != nil {
			return Result{}, err
		}
	}

	sess.LikelySoftbanned = false
	sess.RecoveryAttempts++
	e.dispatch(ctx, events.CatchSoftbanRecovery, events.SoftbanEvent{
		Account: sess.Account, Attempts: sess.RecoveryAttempts,
	})
	return Result{Status: Aborted}, nil
}

func (e *Engine) throw(c inventory.Creature, device int, hit bool) protocol.CatchRequest {
	return protocol.CatchRequest{
		EncounterID:  c.Encounter.EncounterID,
		SpawnPointID: c.Encounter.SpawnPointID,
		Pokeball:     device,
		ReticleSize:  e.uniform(1.0+0.95*e.reticleFactor, 1.95),
		SpinModifier: e.uniform(e.spinFactor, 1.0),
		HitPokemon:   hit,
		HitPosition:  1.0,
	}
}

func (e *Engine) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*e.rand.Float64()
}

func (e *Engine) emit(ctx context.Context, eventType string, sess *session.Session, c inventory.Creature, device int, id uint64, xp int) {
	e.dispatch(ctx, eventType, events.CatchEvent{
		Account:    sess.Account,
		Name:       c.Name,
		CP:         c.CP,
		IV:         c.IV(),
		Ball:       device,
		CreatureID: id,
		XP:         xp,
	})
}

func (e *Engine) dispatch(ctx context.Context, eventType string, data any) {
	if e.dispatcher == nil {
		return
	}
	e.dispatcher.Dispatch(events.New(ctx, eventType, data))
}

// weakestStocked returns the weakest device with stock. When nothing is in
// stock it returns the poke ball and false.
func weakestStocked(inv *inventory.Snapshot) (int, bool) {
	for device := inventory.ItemPokeBall; device <= MaxDevice; device++ {
		if inv.Count(device) > 0 {
			return device, true
		}
	}
	return inventory.ItemPokeBall, false
}

// strongerStock sums the stock of devices stronger than device.
func strongerStock(inv *inventory.Snapshot, device int) int {
	total := 0
	for next := device + 1; next <= MaxDevice; next++ {
		total += inv.Count(next)
	}
	return total
}
