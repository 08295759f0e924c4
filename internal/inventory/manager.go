package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xDyN/AlphaBot/internal/clock"
	"github.com/xDyN/AlphaBot/internal/gamedata"
	"github.com/xDyN/AlphaBot/internal/protocol"
)

// TransferFilter decides which creatures to keep.
type TransferFilter struct {
	// Logic is "or" (keep when either threshold is met) or "and" (keep only
	// when both are met).
	Logic   string
	BelowCP int
	BelowIV float64
}

// Keep reports whether c passes the filter.
func (f TransferFilter) Keep(c Creature) bool {
	strongCP := c.CP >= f.BelowCP
	strongIV := c.IV() >= f.BelowIV
	if strings.EqualFold(f.Logic, "and") {
		return strongCP && strongIV
	}
	return strongCP || strongIV
}

// Manager refreshes and trims the inventory.
type Manager struct {
	clock  clock.Clock
	tables *gamedata.Tables
	logger *zap.Logger
}

// NewManager creates an inventory manager.
func NewManager(clk clock.Clock, tables *gamedata.Tables, logger *zap.Logger) *Manager {
	return &Manager{
		clock:  clk,
		tables: tables,
		logger: logger.Named("inventory"),
	}
}

// Refresh fetches the inventory and returns a new snapshot. Level and
// experience are carried over from prev when the response has no stats.
func (m *Manager) Refresh(ctx context.Context, client protocol.Client, prev *Snapshot) (*Snapshot, error) {
	if err := m.clock.Sleep(ctx, time.Second); err != nil {
		return nil, err
	}

	res, err := client.GetInventory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory: %w", err)
	}

	snap := FromInventory(res, m.tables)
	if (res == nil || res.Stats == nil) && prev != nil {
		snap.Level = prev.Level
		snap.Experience = prev.Experience
		snap.NextLevelXP = prev.NextLevelXP
	}
	return snap, nil
}

// RecycleExcess discards stock above the per-item limits, keyed by item name.
// Unknown item names are skipped with a warning.
func (m *Manager) RecycleExcess(ctx context.Context, client protocol.Client, snap *Snapshot, limits map[string]int) error {
	names := make([]string, 0, len(limits))
	for name := range limits {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		limit := limits[name]
		id, ok := m.tables.ItemID(name)
		if !ok {
			m.logger.Warn("unknown item in item_limit", zap.String("item", name))
			continue
		}

		count := snap.Count(id)
		if count == 0 || limit <= 0 || count <= limit {
			continue
		}

		excess := count - limit
		if _, err := client.RecycleInventoryItem(ctx, id, excess); err != nil {
			return fmt.Errorf("failed to recycle %s: %w", name, err)
		}
		if err := snap.Remove(id, excess); err != nil {
			return err
		}

		m.logger.Info("recycled",
			zap.String("item", m.tables.ItemName(id)),
			zap.Int("count", excess),
		)
	}

	return nil
}

// ReleaseUnwanted releases every non-egg creature the filter rejects.
func (m *Manager) ReleaseUnwanted(ctx context.Context, client protocol.Client, snap *Snapshot, filter TransferFilter) error {
	var release []Creature
	for _, c := range snap.Creatures {
		if !c.IsEgg && !filter.Keep(c) {
			release = append(release, c)
		}
	}

	for _, c := range release {
		if _, err := client.ReleasePokemon(ctx, c.ID); err != nil {
			return fmt.Errorf("failed to release %s: %w", c.Name, err)
		}
		snap.RemoveCreature(c.ID)

		m.logger.Info("transferred",
			zap.String("name", c.Name),
			zap.Int("cp", c.CP),
			zap.Float64("iv", c.IV()),
			zap.String("ads", c.IVDisplay()),
		)
	}

	return nil
}

// Best returns the non-egg creatures with CP of at least f.BelowCP, highest
// CP first, and those with IV of at least f.BelowIV, highest IV first.
func Best(snap *Snapshot, f TransferFilter) (byCP, byIV []Creature) {
	for _, c := range snap.Creatures {
		if c.IsEgg {
			continue
		}
		if c.CP >= f.BelowCP {
			byCP = append(byCP, c)
		}
		if c.IV() >= f.BelowIV {
			byIV = append(byIV, c)
		}
	}
	sort.SliceStable(byCP, func(i, j int) bool { return byCP[i].CP > byCP[j].CP })
	sort.SliceStable(byIV, func(i, j int) bool { return byIV[i].IV() > byIV[j].IV() })
	return byCP, byIV
}

// LogBest logs the creatures the transfer filter keeps, once ranked by CP and
// once by IV.
func (m *Manager) LogBest(snap *Snapshot, f TransferFilter) {
	byCP, byIV := Best(snap, f)

	m.logger.Info("best cp", zap.Int("count", len(byCP)))
	for _, c := range byCP {
		m.logger.Info("best cp", zap.Stringer("pokemon", c))
	}
	m.logger.Info("best iv", zap.Int("count", len(byIV)))
	for _, c := range byIV {
		m.logger.Info("best iv", zap.Stringer("pokemon", c))
	}
}

// LogStock logs the stock of the item groups shown on the trainer summary.
func (m *Manager) LogStock(snap *Snapshot) {
	groups := [][]int{
		CaptureDevices,
		{ItemRazzBerry, ItemBlukBerry, ItemNanabBerry},
		{ItemLuckyEgg, ItemIncubatorBasic, ItemTroyDisk},
		Potions,
		{ItemIncenseOrdinary, ItemIncenseSpicy, ItemIncenseCool},
		Revives,
	}
	for _, group := range groups {
		fields := make([]zap.Field, 0, len(group))
		for _, id := range group {
			fields = append(fields, zap.Int(m.tables.ItemName(id), snap.Count(id)))
		}
		m.logger.Info("stock", fields...)
	}
}
