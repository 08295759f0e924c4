// Package movement moves the avatar: a paced walk that reports its position
// periodically, and an instant teleport used for sniping.
package movement

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/xDyN/AlphaBot/internal/clock"
	"github.com/xDyN/AlphaBot/internal/geo"
	"github.com/xDyN/AlphaBot/internal/session"
)

const (
	// Epsilon is the distance at which a walk counts as arrived.
	Epsilon = 10.0

	// CommitEvery is the number of ticks between position reports.
	CommitEvery = 10

	tick          = time.Second
	commitPacing  = 500 * time.Millisecond
	defaultStride = 10.0
)

// PositionSaver persists the avatar position.
type PositionSaver interface {
	Save(ctx context.Context, account string, p geo.Point) error
}

// Walker moves a session's avatar.
type Walker struct {
	clock        clock.Clock
	store        PositionSaver
	logger       *zap.Logger
	stepDiameter float64
}

// NewWalker creates a walker that persists committed positions to store.
func NewWalker(clk clock.Clock, store PositionSaver, logger *zap.Logger) *Walker {
	return &Walker{
		clock:        clk,
		store:        store,
		logger:       logger.Named("movement"),
		stepDiameter: defaultStride,
	}
}

// SetStepDiameter sets the distance covered per one-second tick, in meters.
// Non-positive values are ignored.
func (w *Walker) SetStepDiameter(m float64) {
	if m > 0 {
		w.stepDiameter = m
	}
}

// WalkTo walks the session to dest one tick per second, reporting the
// position every CommitEvery ticks and once more on arrival.
func (w *Walker) WalkTo(ctx context.Context, sess *session.Session, dest geo.Point) error {
	target := dest.String()
	if sess.Fort != nil && sess.Fort.Name != "" {
		target = sess.Fort.Name
	}

	dist := geo.Distance(sess.Position, dest)
	if dist < Epsilon {
		sess.Position = dest
		return w.commit(ctx, sess)
	}

	steps := int(math.Ceil(dist / w.stepDiameter))
	if steps < 1 {
		steps = 1
	}
	start := sess.Position
	dLat := (dest.Lat - start.Lat) / float64(steps)
	dLng := (dest.Lng - start.Lng) / float64(steps)

	w.logger.Info("walking",
		zap.String("target", target),
		zap.Stringer("to", dest),
		zap.Int("seconds", int(dist/w.stepDiameter)),
	)

	ticks := 0
	for ticks < steps && dist >= Epsilon {
		ticks++
		if ticks == steps {
			sess.Position = dest
		} else {
			sess.Position = geo.Point{
				Lat: start.Lat + dLat*float64(ticks),
				Lng: start.Lng + dLng*float64(ticks),
			}
		}

		if ticks%CommitEvery == 0 {
			if err := w.commit(ctx, sess); err != nil {
				return err
			}
		}

		if err := w.clock.Sleep(ctx, tick); err != nil {
			return err
		}

		dist = geo.Distance(sess.Position, dest)
		if ticks%CommitEvery == 0 {
			w.logger.Info("walking",
				zap.String("target", target),
				zap.Int("seconds", int(dist/w.stepDiameter)),
			)
		}
	}

	if rest := ticks % CommitEvery; rest != 0 {
		if err := w.clock.Sleep(ctx, time.Duration(CommitEvery-rest)*tick); err != nil {
			return err
		}
		return w.commit(ctx, sess)
	}
	return nil
}

// Teleport moves the protocol position only. The session position and the
// stored location are left unchanged.
func (w *Walker) Teleport(ctx context.Context, sess *session.Session, p geo.Point) error {
	if err := w.clock.Sleep(ctx, commitPacing); err != nil {
		return err
	}
	if err := sess.Client.SetPosition(ctx, p); err != nil {
		return fmt.Errorf("teleport: %w", err)
	}
	return nil
}

// Commit reports the session position to the service and persists it.
func (w *Walker) Commit(ctx context.Context, sess *session.Session) error {
	return w.commit(ctx, sess)
}

func (w *Walker) commit(ctx context.Context, sess *session.Session) error {
	if err := w.clock.Sleep(ctx, commitPacing); err != nil {
		return err
	}
	if err := sess.Client.SetPosition(ctx, sess.Position); err != nil {
		return fmt.Errorf("set position: %w", err)
	}
	if err := w.store.Save(ctx, sess.Account, sess.Position); err != nil {
		return fmt.Errorf("save position: %w", err)
	}
	return nil
}
