// Package gamedata holds the static reference tables: species names, item
// names and move names. The tables are embedded YAML files loaded once.
package gamedata

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var dataFS embed.FS

// Tables are the lookup tables for ids reported by the game.
type Tables struct {
	species map[int]string
	items   map[int]string
	itemIDs map[string]int
	fast    map[int]string
	charged map[int]string
}

type moveFile struct {
	Fast    map[int]string `yaml:"fast"`
	Charged map[int]string `yaml:"charged"`
}

var (
	defaultOnce   sync.Once
	defaultTables *Tables
	defaultErr    error
)

// Default returns the embedded tables, parsing them on first use.
func Default() (*Tables, error) {
	defaultOnce.Do(func() {
		defaultTables, defaultErr = Load()
	})
	return defaultTables, defaultErr
}

// Load parses the embedded YAML tables.
func Load() (*Tables, error) {
	t := &Tables{}

	if err := decode("data/species.yaml", &t.species); err != nil {
		return nil, err
	}
	if err := decode("data/items.yaml", &t.items); err != nil {
		return nil, err
	}

	var moves moveFile
	if err := decode("data/moves.yaml", &moves); err != nil {
		return nil, err
	}
	t.fast = moves.Fast
	t.charged = moves.Charged

	t.itemIDs = make(map[string]int, len(t.items))
	for id, name := range t.items {
		t.itemIDs[normalize(name)] = id
	}

	return t, nil
}

func decode(name string, out interface{}) error {
	raw, err := dataFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// SpeciesName returns the species name for a dex number.
func (t *Tables) SpeciesName(id int) string {
	if name, ok := t.species[id]; ok {
		return name
	}
	return fmt.Sprintf("Pokemon #%d", id)
}

// ItemName returns the display name for an item id.
func (t *Tables) ItemName(id int) string {
	if name, ok := t.items[id]; ok {
		return name
	}
	return fmt.Sprintf("Item #%d", id)
}

// ItemID resolves an item name, case-insensitively.
func (t *Tables) ItemID(name string) (int, bool) {
	id, ok := t.itemIDs[normalize(name)]
	return id, ok
}

// FastMoveName returns the name of a quick move.
func (t *Tables) FastMoveName(id int) string {
	if name, ok := t.fast[id]; ok {
		return name
	}
	return fmt.Sprintf("Move #%d", id)
}

// ChargedMoveName returns the name of a charged move.
func (t *Tables) ChargedMoveName(id int) string {
	if name, ok := t.charged[id]; ok {
		return name
	}
	return fmt.Sprintf("Move #%d", id)
}
