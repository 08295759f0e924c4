package orchestrator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xDyN/AlphaBot/internal/session"
)

// Login dials a fresh client into sess, restores the position, authenticates
// and brings the inventory in line with the configured limits.
func (o *Orchestrator) Login(ctx context.Context, sess *session.Session) error {
	cfg := o.Config.Current()

	client, err := o.Dial(ctx)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	sess.Reconnect(client)

	start, err := cfg.StartLocation()
	if err != nil {
		return fmt.Errorf("start location: %w", err)
	}
	p, resumed, err := o.Positions.Resume(ctx, sess.Account, start)
	if err != nil {
		return err
	}
	sess.Position = p
	if resumed {
		o.logger.Info("resuming previous location", zap.Stringer("at", p))
	} else {
		o.logger.Info("set location", zap.Stringer("at", p))
	}
	if err := o.Walker.Commit(ctx, sess); err != nil {
		return err
	}

	if err := client.SetAuthentication(ctx, cfg.AuthService, cfg.Username, cfg.Password); err != nil {
		return fmt.Errorf("set authentication: %w", err)
	}
	if err := client.ActivateSignature(ctx, cfg.Gateway.SignaturePath); err != nil {
		return fmt.Errorf("activate signature: %w", err)
	}

	if err := o.trainerInfo(ctx, sess); err != nil {
		return err
	}

	if err := o.Inventory.RecycleExcess(ctx, client, sess.Inventory, cfg.ItemLimit); err != nil {
		return err
	}
	filter := transferFilter(cfg)
	if err := o.Inventory.ReleaseUnwanted(ctx, client, sess.Inventory, filter); err != nil {
		return err
	}
	o.Inventory.LogBest(sess.Inventory, filter)
	return nil
}

// trainerInfo fetches the profile and inventory and logs them.
func (o *Orchestrator) trainerInfo(ctx context.Context, sess *session.Session) error {
	if err := o.Clock.Sleep(ctx, pacing); err != nil {
		return err
	}
	player, err := sess.Client.GetPlayer(ctx)
	if err != nil {
		return fmt.Errorf("get player: %w", err)
	}

	snap, err := o.Inventory.Refresh(ctx, sess.Client, sess.Inventory)
	if err != nil {
		return err
	}
	sess.Inventory = snap

	fields := []zap.Field{
		zap.Int("level", snap.Level),
		zap.Int("experience", snap.Experience),
		zap.Int("next_level_xp", snap.NextLevelXP),
	}
	if player != nil && player.Player != nil {
		fields = append(fields, zap.String("username", player.Player.Username), zap.Int("team", player.Player.Team))
		for _, c := range player.Player.Currencies {
			fields = append(fields, zap.Int(c.Name, c.Amount))
		}
	}
	o.logger.Info("trainer", fields...)
	o.Inventory.LogStock(snap)
	return nil
}
