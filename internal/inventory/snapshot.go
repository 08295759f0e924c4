// Package inventory models the player's items, experience and creatures, and
// manages them against configured limits.
package inventory

import (
	"errors"
	"fmt"

	"github.com/xDyN/AlphaBot/internal/gamedata"
	"github.com/xDyN/AlphaBot/internal/protocol"
)

// ErrStockUnderflow is returned when removing more of an item than is held.
var ErrStockUnderflow = errors.New("item stock underflow")

// Snapshot is the last known inventory state.
type Snapshot struct {
	items       map[int]int
	Experience  int
	NextLevelXP int
	Level       int
	Creatures   []Creature
}

// NewSnapshot creates an empty snapshot with zero stock for every known item.
func NewSnapshot() *Snapshot {
	s := &Snapshot{items: make(map[int]int, len(KnownItems))}
	for _, id := range KnownItems {
		s.items[id] = 0
	}
	return s
}

// FromInventory rebuilds a snapshot from a GetInventory response.
func FromInventory(res *protocol.InventoryResult, tables *gamedata.Tables) *Snapshot {
	s := NewSnapshot()
	if res == nil {
		return s
	}

	for _, stack := range res.Items {
		if _, known := s.items[stack.ItemID]; known && stack.Count > 0 {
			s.items[stack.ItemID] = stack.Count
		}
	}

	for _, data := range res.Pokemon {
		s.Creatures = append(s.Creatures, NewCreature(data, nil, tables))
	}

	if res.Stats != nil {
		s.Experience = res.Stats.Experience
		s.NextLevelXP = res.Stats.NextLevelXP
		s.Level = res.Stats.Level
	}

	return s
}

// Count returns the stock of one item.
func (s *Snapshot) Count(itemID int) int {
	return s.items[itemID]
}

// Total returns the combined stock of the given items.
func (s *Snapshot) Total(itemIDs ...int) int {
	total := 0
	for _, id := range itemIDs {
		total += s.items[id]
	}
	return total
}

// Add increases an item's stock. Negative n is ignored.
func (s *Snapshot) Add(itemID, n int) {
	if n <= 0 {
		return
	}
	if s.items == nil {
		s.items = make(map[int]int)
	}
	s.items[itemID] += n
}

// Remove decreases an item's stock. Removing more than is held leaves the
// stock untouched and returns ErrStockUnderflow.
func (s *Snapshot) Remove(itemID, n int) error {
	if n < 0 {
		return fmt.Errorf("cannot remove %d of item %d", n, itemID)
	}
	if n == 0 {
		return nil
	}
	have := s.items[itemID]
	if n > have {
		return fmt.Errorf("%w: item %d has %d, removing %d", ErrStockUnderflow, itemID, have, n)
	}
	s.items[itemID] = have - n
	return nil
}

// AddCreature appends a creature to the owned list.
func (s *Snapshot) AddCreature(c Creature) {
	s.Creatures = append(s.Creatures, c)
}

// RemoveCreature drops the creature with the given id.
func (s *Snapshot) RemoveCreature(id uint64) bool {
	for i, c := range s.Creatures {
		if c.ID == id {
			s.Creatures = append(s.Creatures[:i], s.Creatures[i+1:]...)
			return true
		}
	}
	return false
}

// AddExperience adds awarded experience.
func (s *Snapshot) AddExperience(xp int) {
	if xp > 0 {
		s.Experience += xp
	}
}

// CanLevelUp reports whether experience has reached the next level.
func (s *Snapshot) CanLevelUp() bool {
	return s.NextLevelXP > 0 && s.Experience >= s.NextLevelXP
}
