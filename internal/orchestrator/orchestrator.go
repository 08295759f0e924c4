// Package orchestrator drives the bot's main loop: log in, spin a fort,
// decide whether to farm, snipe, and respect the daily quota, reconnecting
// whenever the session breaks.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xDyN/AlphaBot/internal/clock"
	"github.com/xDyN/AlphaBot/internal/config"
	"github.com/xDyN/AlphaBot/internal/events"
	"github.com/xDyN/AlphaBot/internal/geo"
	"github.com/xDyN/AlphaBot/internal/inventory"
	"github.com/xDyN/AlphaBot/internal/protocol"
	"github.com/xDyN/AlphaBot/internal/session"
	"github.com/xDyN/AlphaBot/internal/snipe"
)

const (
	// FarmingMinLevel gates both farming transitions.
	FarmingMinLevel = 5

	reconnectDelay = 20 * time.Second
	quotaSleeps    = 12
	quotaSleep     = time.Hour
	pacing         = time.Second
)

// ReconnectPolicy reports whether err should be answered with a fresh login
// rather than ending the run.
type ReconnectPolicy func(err error) bool

// ConfigSource returns the latest configuration.
type ConfigSource interface {
	Current() *config.Config
}

// PositionResumer decides where a session starts.
type PositionResumer interface {
	Resume(ctx context.Context, account string, start geo.Point) (geo.Point, bool, error)
}

// Walker commits positions and accepts a stride.
type Walker interface {
	Commit(ctx context.Context, sess *session.Session) error
	SetStepDiameter(m float64)
}

// FortSpinner spins the nearest fort.
type FortSpinner interface {
	SpinNearest(ctx context.Context, sess *session.Session) error
	SetItemLimits(limits map[string]int)
}

// Sniper runs one snipe pass.
type Sniper interface {
	Run(ctx context.Context, sess *session.Session) error
	SetOptions(o snipe.Options)
}

// ThrowTuner accepts throw randomisation factors.
type ThrowTuner interface {
	SetThrowFactors(reticle, spin float64)
}

// QuotaCounter reports the rolling quota counters.
type QuotaCounter interface {
	CaptureCount(ctx context.Context, account string) (int, error)
	SpinCount(ctx context.Context, account string) (int, error)
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Clock      clock.Clock
	Dial       protocol.Factory
	Config     ConfigSource
	Positions  PositionResumer
	Walker     Walker
	Forts      FortSpinner
	Sniper     Sniper
	Throws     ThrowTuner
	Inventory  *inventory.Manager
	Quota      QuotaCounter
	Dispatcher *events.EventDispatcher
	Logger     *zap.Logger

	// Policy defaults to protocol.IsTransient.
	Policy ReconnectPolicy
}

// Orchestrator owns the session and runs the main loop.
type Orchestrator struct {
	Deps
	logger *zap.Logger
}

// New creates an orchestrator.
func New(deps Deps) *Orchestrator {
	if deps.Policy == nil {
		deps.Policy = protocol.IsTransient
	}
	return &Orchestrator{
		Deps:   deps,
		logger: deps.Logger.Named("orchestrator"),
	}
}

// Run logs in and loops until ctx is done or a non-recoverable error
// occurs. Cancellation returns ctx.Err().
func (o *Orchestrator) Run(ctx context.Context) error {
	cfg := o.Config.Current()
	start, err := cfg.StartLocation()
	if err != nil {
		return fmt.Errorf("start location: %w", err)
	}
	sess := session.New(cfg.Username, start)

	if err := o.connect(ctx, sess); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := o.iterate(ctx, sess)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !o.Policy(err) {
			return err
		}

		o.logger.Error("session broke, waiting before login", zap.Error(err), zap.Duration("wait", reconnectDelay))
		o.Dispatcher.Dispatch(events.New(ctx, events.SessionReconnect, events.ReconnectEvent{
			Account: sess.Account,
			Reason:  err.Error(),
		}))
		if err := o.Clock.Sleep(ctx, reconnectDelay); err != nil {
			return err
		}
		if err := o.connect(ctx, sess); err != nil {
			return err
		}
	}
}

// connect logs in, retrying transient failures under the reconnect policy.
func (o *Orchestrator) connect(ctx context.Context, sess *session.Session) error {
	for {
		err := o.Login(ctx, sess)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !o.Policy(err) {
			return err
		}
		o.logger.Error("login failed, retrying", zap.Error(err), zap.Duration("wait", reconnectDelay))
		if err := o.Clock.Sleep(ctx, reconnectDelay); err != nil {
			return err
		}
	}
}

// iterate runs one pass of the main loop.
func (o *Orchestrator) iterate(ctx context.Context, sess *session.Session) error {
	cfg := o.Config.Current()
	o.apply(cfg)

	if err := o.Forts.SpinNearest(ctx, sess); err != nil {
		return err
	}

	o.evaluateFarming(ctx, sess, cfg)

	if !sess.Farming {
		if err := o.Sniper.Run(ctx, sess); err != nil {
			return err
		}
		if err := o.checkBadges(ctx, sess); err != nil {
			return err
		}
		if err := o.Inventory.ReleaseUnwanted(ctx, sess.Client, sess.Inventory, transferFilter(cfg)); err != nil {
			return err
		}
	}

	return o.checkQuota(ctx, sess, cfg)
}

// apply pushes hot-reloadable tunables into the components.
func (o *Orchestrator) apply(cfg *config.Config) {
	o.Walker.SetStepDiameter(cfg.StepDiameter)
	o.Forts.SetItemLimits(cfg.ItemLimit)
	o.Throws.SetThrowFactors(cfg.CatchRandomizeReticleFactor, cfg.CatchRandomizeSpinFactor)
	o.Sniper.SetOptions(snipe.Options{
		MaxAttempts:    cfg.CatchTimeEveryRun,
		RareFirst:      cfg.RareFirst,
		TransferFilter: transferFilter(cfg),
	})
}

func transferFilter(cfg *config.Config) inventory.TransferFilter {
	return inventory.TransferFilter{
		Logic:   cfg.TransferFilter.Logic,
		BelowCP: cfg.TransferFilter.BelowCP,
		BelowIV: cfg.TransferFilter.BelowIV,
	}
}

// evaluateFarming toggles farming mode with a min/max band on capture
// device stock. Accounts below FarmingMinLevel never change mode.
func (o *Orchestrator) evaluateFarming(ctx context.Context, sess *session.Session, cfg *config.Config) {
	inv := sess.Inventory
	balls := inv.Total(inventory.CaptureDevices...)
	potions := inv.Total(inventory.Potions...)
	revives := inv.Total(inventory.Revives...)
	band := cfg.FarmingMode.AllPokeball

	o.logger.Debug("farming check",
		zap.Int("balls", balls),
		zap.Int("potions", potions),
		zap.Bool("potions_low", potions < cfg.FarmingMode.AllPotion.Min),
		zap.Int("revives", revives),
		zap.Bool("revives_low", revives < cfg.FarmingMode.AllRevive.Min),
		zap.Int("level", inv.Level),
	)

	if inv.Level < FarmingMinLevel {
		return
	}

	was := sess.Farming
	switch {
	case balls < band.Min:
		sess.Farming = true
	case balls >= band.Max:
		sess.Farming = false
	}
	if sess.Farming == was {
		return
	}

	if sess.Farming {
		o.logger.Info("farming for items", zap.Int("balls", balls))
	} else {
		o.logger.Info("back to normal, catch'em all", zap.Int("balls", balls))
	}
	o.Dispatcher.Dispatch(events.New(ctx, events.SessionFarmingChanged, events.FarmingEvent{
		Account: sess.Account,
		Farming: sess.Farming,
		Balls:   balls,
	}))
}

func (o *Orchestrator) checkBadges(ctx context.Context, sess *session.Session) error {
	if err := o.Clock.Sleep(ctx, pacing); err != nil {
		return err
	}
	res, err := sess.Client.CheckAwardedBadges(ctx)
	if err != nil {
		return fmt.Errorf("check awarded badges: %w", err)
	}
	if res != nil && len(res.AwardedBadges) > 0 {
		o.logger.Info("badges awarded", zap.Ints("badges", res.AwardedBadges))
	}
	return nil
}

// checkQuota sleeps 12 hours when either rolling counter reached its limit.
func (o *Orchestrator) checkQuota(ctx context.Context, sess *session.Session, cfg *config.Config) error {
	captures, err := o.Quota.CaptureCount(ctx, sess.Account)
	if err != nil {
		return err
	}
	spins, err := o.Quota.SpinCount(ctx, sess.Account)
	if err != nil {
		return err
	}
	if captures < cfg.DailyLimit.Catch && spins < cfg.DailyLimit.Spin {
		return nil
	}

	o.logger.Info("daily limit reached, sleeping for 12 hours",
		zap.Int("captures", captures),
		zap.Int("spins", spins),
	)
	o.Dispatcher.Dispatch(events.New(ctx, events.SessionQuotaReached, events.QuotaEvent{
		Account:  sess.Account,
		Captures: captures,
		Spins:    spins,
	}))
	for i := 0; i < quotaSleeps; i++ {
		o.logger.Info("sleeping", zap.Int("hour", i+1))
		if err := o.Clock.Sleep(ctx, quotaSleep); err != nil {
			return err
		}
	}
	return nil
}
