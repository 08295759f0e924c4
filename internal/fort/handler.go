// Package fort finds the nearest usable fort, walks to it and spins it.
package fort

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xDyN/AlphaBot/internal/clock"
	"github.com/xDyN/AlphaBot/internal/events"
	"github.com/xDyN/AlphaBot/internal/gamedata"
	"github.com/xDyN/AlphaBot/internal/geo"
	"github.com/xDyN/AlphaBot/internal/inventory"
	"github.com/xDyN/AlphaBot/internal/protocol"
	"github.com/xDyN/AlphaBot/internal/session"
)

// noFortDistance ranks cells without forts after every real distance.
const noFortDistance = 1e6

const pacing = time.Second

// Walker moves the avatar to a destination.
type Walker interface {
	WalkTo(ctx context.Context, sess *session.Session, dest geo.Point) error
}

// SpinRecorder records a successful spin against the daily quota.
type SpinRecorder interface {
	RecordSpin(ctx context.Context, account string) error
}

// Handler spins forts.
type Handler struct {
	clock      clock.Clock
	walker     Walker
	inventory  *inventory.Manager
	quota      SpinRecorder
	tables     *gamedata.Tables
	dispatcher *events.EventDispatcher
	logger     *zap.Logger

	itemLimits map[string]int
}

// NewHandler creates a fort handler. dispatcher may be nil.
func NewHandler(clk clock.Clock, walker Walker, inv *inventory.Manager, quota SpinRecorder, tables *gamedata.Tables, dispatcher *events.EventDispatcher, logger *zap.Logger) *Handler {
	return &Handler{
		clock:      clk,
		walker:     walker,
		inventory:  inv,
		quota:      quota,
		tables:     tables,
		dispatcher: dispatcher,
		logger:     logger.Named("fort"),
	}
}

// SetItemLimits sets the per-item stock caps applied after a spin.
func (h *Handler) SetItemLimits(limits map[string]int) {
	h.itemLimits = limits
}

// SpinNearest walks to the nearest fort without a cooldown and spins it. It
// returns nil without doing anything when no fort is in range.
func (h *Handler) SpinNearest(ctx context.Context, sess *session.Session) error {
	fort, err := h.nearest(ctx, sess)
	if err != nil {
		return err
	}
	if fort == nil {
		h.logger.Info("no fort nearby")
		return nil
	}
	sess.Fort = fort

	if err := h.walker.WalkTo(ctx, sess, fort.Position); err != nil {
		return err
	}

	if err := h.clock.Sleep(ctx, pacing); err != nil {
		return err
	}
	res, err := sess.Client.FortSearch(ctx, protocol.FortSearchRequest{
		FortID: fort.ID,
		Fort:   fort.Position,
		Player: sess.Position,
	})
	if err != nil {
		return fmt.Errorf("fort search: %w", err)
	}
	if res == nil {
		return nil
	}

	switch res.Result {
	case protocol.FortSearchSuccess:
		return h.collect(ctx, sess, fort, res)
	case protocol.FortSearchInventoryFull:
		h.logger.Warn("bag is full, lower item_limit so it has room")
	default:
		h.logger.Debug("fort search", zap.Stringer("result", res.Result))
	}
	return nil
}

func (h *Handler) collect(ctx context.Context, sess *session.Session, fort *session.Fort, res *protocol.FortSearchResult) error {
	inv := sess.Inventory

	awarded := h.applyItems(inv, res.ItemsAwarded)
	if err := h.quota.RecordSpin(ctx, sess.Account); err != nil {
		return err
	}

	if h.dispatcher != nil {
		h.dispatcher.Dispatch(events.New(ctx, events.FortSpun, events.FortSpunEvent{
			Account:    sess.Account,
			FortID:     fort.ID,
			Name:       fort.Name,
			Experience: res.ExperienceAwarded,
			Items:      len(res.ItemsAwarded),
		}))
	}

	if res.ExperienceAwarded == 0 && awarded == "" {
		return nil
	}

	h.logger.Info("spun fort",
		zap.String("fort", fort.Name),
		zap.Int("experience", res.ExperienceAwarded),
		zap.String("items", awarded),
	)

	inv.AddExperience(res.ExperienceAwarded)
	if err := h.inventory.RecycleExcess(ctx, sess.Client, inv, h.itemLimits); err != nil {
		return err
	}
	return h.CheckLevel(ctx, sess)
}

// applyItems adds awarded items to the inventory and returns them formatted
// as "Name xN, ..." in award order.
func (h *Handler) applyItems(inv *inventory.Snapshot, items []protocol.ItemStack) string {
	var order []int
	counts := make(map[int]int)
	for _, item := range items {
		inv.Add(item.ItemID, item.Count)
		if _, seen := counts[item.ItemID]; !seen {
			order = append(order, item.ItemID)
		}
		counts[item.ItemID] += item.Count
	}

	parts := make([]string, 0, len(order))
	for _, id := range order {
		parts = append(parts, fmt.Sprintf("%s x%d", h.tables.ItemName(id), counts[id]))
	}
	return strings.Join(parts, ", ")
}

// CheckLevel claims the level-up rewards once experience reaches the next
// level, then refreshes the inventory.
func (h *Handler) CheckLevel(ctx context.Context, sess *session.Session) error {
	inv := sess.Inventory
	if !inv.CanLevelUp() {
		return nil
	}

	if err := h.clock.Sleep(ctx, pacing); err != nil {
		return err
	}
	if _, err := sess.Client.LevelUpRewards(ctx, inv.Level+1); err != nil {
		return fmt.Errorf("level up rewards: %w", err)
	}
	h.logger.Info("level up", zap.Int("from", inv.Level), zap.Int("to", inv.Level+1))

	snap, err := h.inventory.Refresh(ctx, sess.Client, inv)
	if err != nil {
		return err
	}
	sess.Inventory = snap
	return nil
}

// nearest returns the first fort without a cooldown marker, scanning cells
// ordered by the distance to their first fort.
func (h *Handler) nearest(ctx context.Context, sess *session.Session) (*session.Fort, error) {
	if err := h.clock.Sleep(ctx, pacing); err != nil {
		return nil, err
	}
	res, err := sess.Client.GetMapObjects(ctx, sess.Position, geo.CellIDs(sess.Position))
	if err != nil {
		return nil, fmt.Errorf("get map objects: %w", err)
	}
	if res == nil || res.Status != protocol.MapStatusSuccess {
		return nil, nil
	}

	cells := SortCells(sess.Position, res.Cells)

	var candidate *protocol.Fort
	for _, cell := range cells {
		for i := range cell.Forts {
			if !cell.Forts[i].OnCooldown() {
				candidate = &cell.Forts[i]
				break
			}
		}
		if candidate != nil {
			break
		}
	}
	if candidate == nil {
		return nil, nil
	}

	fort := &session.Fort{ID: candidate.ID, Position: candidate.Position()}

	if err := h.clock.Sleep(ctx, pacing); err != nil {
		return nil, err
	}
	details, err := sess.Client.FortDetails(ctx, candidate.ID, candidate.Position())
	if err != nil {
		return nil, fmt.Errorf("fort details: %w", err)
	}
	if details != nil {
		fort.Name = details.Name
		if details.Latitude != 0 || details.Longitude != 0 {
			fort.Position = details.Position()
		}
	}
	return fort, nil
}

// SortCells orders cells by the distance from p to each cell's first fort.
// Cells without forts keep their relative order at the end.
func SortCells(p geo.Point, cells []protocol.MapCell) []protocol.MapCell {
	sorted := make([]protocol.MapCell, len(cells))
	copy(sorted, cells)

	key := func(c protocol.MapCell) float64 {
		if len(c.Forts) == 0 {
			return noFortDistance
		}
		return geo.Distance(p, c.Forts[0].Position())
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return key(sorted[i]) < key(sorted[j])
	})
	return sorted
}
