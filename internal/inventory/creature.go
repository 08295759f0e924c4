package inventory

import (
	"fmt"
	"math"

	"github.com/xDyN/AlphaBot/internal/gamedata"
	"github.com/xDyN/AlphaBot/internal/protocol"
)

// EncounterRef identifies the wild encounter a creature came from.
type EncounterRef struct {
	EncounterID  uint64
	SpawnPointID string
}

// Creature is an owned or encountered creature.
type Creature struct {
	ID      uint64
	Species int
	Name    string
	CP      int
	Attack  int
	Defense int
	Stamina int
	Move1   string
	Move2   string
	IsEgg   bool

	// Encounter is set only for wild creatures.
	Encounter *EncounterRef
}

// NewCreature builds a Creature from protocol data, resolving names through
// tables. ref may be nil.
func NewCreature(data protocol.PokemonData, ref *EncounterRef, tables *gamedata.Tables) Creature {
	return Creature{
		ID:        data.ID,
		Species:   data.PokemonID,
		Name:      tables.SpeciesName(data.PokemonID),
		CP:        data.CP,
		Attack:    data.IndividualAttack,
		Defense:   data.IndividualDefense,
		Stamina:   data.IndividualStamina,
		Move1:     tables.FastMoveName(data.Move1),
		Move2:     tables.ChargedMoveName(data.Move2),
		IsEgg:     data.IsEgg,
		Encounter: ref,
	}
}

// IV is the individual-value ratio rounded to two decimals.
func (c Creature) IV() float64 {
	return math.Round(float64(c.Attack+c.Defense+c.Stamina)/45*100) / 100
}

// IVDisplay formats the individual values as attack/defense/stamina.
func (c Creature) IVDisplay() string {
	return fmt.Sprintf("%d/%d/%d", c.Attack, c.Defense, c.Stamina)
}

func (c Creature) String() string {
	return fmt.Sprintf("%s [CP %d] [IV %.2f] [A/D/S %s] [%s/%s]",
		c.Name, c.CP, c.IV(), c.IVDisplay(), c.Move1, c.Move2)
}
