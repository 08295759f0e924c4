// Package protocol is the boundary to the remote game service. Every call
// returns a typed result with a status and an optional payload; a nil payload
// pointer means the service sent no data.
package protocol

import (
	"context"

	"github.com/xDyN/AlphaBot/internal/geo"
)

// Client is an authenticated connection to the game service.
type Client interface {
	SetPosition(ctx context.Context, p geo.Point) error
	SetAuthentication(ctx context.Context, provider, username, password string) error
	ActivateSignature(ctx context.Context, path string) error

	GetPlayer(ctx context.Context) (*PlayerResult, error)
	GetInventory(ctx context.Context) (*InventoryResult, error)
	GetMapObjects(ctx context.Context, at geo.Point, cellIDs []uint64) (*MapObjectsResult, error)

	FortDetails(ctx context.Context, fortID string, at geo.Point) (*FortDetailsResult, error)
	FortSearch(ctx context.Context, req FortSearchRequest) (*FortSearchResult, error)

	Encounter(ctx context.Context, req EncounterRequest) (*EncounterResult, error)
	CatchPokemon(ctx context.Context, req CatchRequest) (*CatchResult, error)
	UseItemCapture(ctx context.Context, req UseItemCaptureRequest) (*UseItemCaptureResult, error)

	RecycleInventoryItem(ctx context.Context, itemID, count int) (*RecycleResult, error)
	ReleasePokemon(ctx context.Context, pokemonID uint64) (*ReleaseResult, error)
	LevelUpRewards(ctx context.Context, level int) (*LevelUpRewardsResult, error)
	CheckAwardedBadges(ctx context.Context) (*BadgesResult, error)
}

// Factory dials a fresh, unauthenticated client. The orchestrator calls it on
// every login so a reconnect never reuses a broken connection.
type Factory func(ctx context.Context) (Client, error)

// MapStatus is the status of a GetMapObjects call.
type MapStatus int

const (
	MapStatusUnset   MapStatus = 0
	MapStatusSuccess MapStatus = 1
)

// FortSearchStatus is the result code of a FortSearch call.
type FortSearchStatus int

const (
	FortSearchNoResult      FortSearchStatus = 0
	FortSearchSuccess       FortSearchStatus = 1
	FortSearchOutOfRange    FortSearchStatus = 2
	FortSearchInCooldown    FortSearchStatus = 3
	FortSearchInventoryFull FortSearchStatus = 4
)

func (s FortSearchStatus) String() string {
	switch s {
	case FortSearchSuccess:
		return "success"
	case FortSearchOutOfRange:
		return "out of range"
	case FortSearchInCooldown:
		return "in cooldown"
	case FortSearchInventoryFull:
		return "inventory full"
	default:
		return "no result"
	}
}

// EncounterStatus is the status of an Encounter call.
type EncounterStatus int

const (
	EncounterError                EncounterStatus = 0
	EncounterSuccess              EncounterStatus = 1
	EncounterNotFound             EncounterStatus = 2
	EncounterClosed               EncounterStatus = 3
	EncounterPokemonFled          EncounterStatus = 4
	EncounterNotInRange           EncounterStatus = 5
	EncounterAlreadyHappened      EncounterStatus = 6
	EncounterPokemonInventoryFull EncounterStatus = 7
)

// CatchStatus is the status of a CatchPokemon call.
type CatchStatus int

const (
	CatchError   CatchStatus = 0
	CatchSuccess CatchStatus = 1
	CatchEscape  CatchStatus = 2
	CatchFlee    CatchStatus = 3
	CatchMissed  CatchStatus = 4
)

func (s CatchStatus) String() string {
	switch s {
	case CatchSuccess:
		return "success"
	case CatchEscape:
		return "escape"
	case CatchFlee:
		return "flee"
	case CatchMissed:
		return "missed"
	default:
		return "error"
	}
}

// ItemStack is a count of one item kind.
type ItemStack struct {
	ItemID int `json:"item_id"`
	Count  int `json:"count"`
}

// PokemonData describes an owned or wild creature.
type PokemonData struct {
	ID                uint64 `json:"id"`
	PokemonID         int    `json:"pokemon_id"`
	CP                int    `json:"cp"`
	IndividualAttack  int    `json:"individual_attack"`
	IndividualDefense int    `json:"individual_defense"`
	IndividualStamina int    `json:"individual_stamina"`
	Move1             int    `json:"move_1"`
	Move2             int    `json:"move_2"`
	IsEgg             bool   `json:"is_egg"`
}

// PlayerStats are the trainer's level and experience.
type PlayerStats struct {
	Level       int `json:"level"`
	Experience  int `json:"experience"`
	NextLevelXP int `json:"next_level_xp"`
}

// Currency is an amount of one currency.
type Currency struct {
	Name   string `json:"name"`
	Amount int    `json:"amount"`
}

// PlayerData is the trainer profile.
type PlayerData struct {
	Username   string     `json:"username"`
	Team       int        `json:"team"`
	Currencies []Currency `json:"currencies"`
}

// PlayerResult is the response of GetPlayer.
type PlayerResult struct {
	Success bool        `json:"success"`
	Player  *PlayerData `json:"player_data,omitempty"`
}

// InventoryResult is the response of GetInventory.
type InventoryResult struct {
	Success bool          `json:"success"`
	Items   []ItemStack   `json:"items"`
	Pokemon []PokemonData `json:"pokemon"`
	Stats   *PlayerStats  `json:"player_stats,omitempty"`
}

// Fort is a point of interest inside a map cell.
type Fort struct {
	ID        string  `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// CooldownCompleteMs is present while the fort was recently searched.
	CooldownCompleteMs *int64 `json:"cooldown_complete_timestamp_ms,omitempty"`
}

// Position returns the fort coordinate.
func (f Fort) Position() geo.Point {
	return geo.Point{Lat: f.Latitude, Lng: f.Longitude}
}

// OnCooldown reports whether the fort carries a cooldown marker.
func (f Fort) OnCooldown() bool {
	return f.CooldownCompleteMs != nil
}

// MapCell is one S2 cell of map objects.
type MapCell struct {
	S2CellID uint64 `json:"s2_cell_id"`
	Forts    []Fort `json:"forts"`
}

// MapObjectsResult is the response of GetMapObjects.
type MapObjectsResult struct {
	Status MapStatus `json:"status"`
	Cells  []MapCell `json:"map_cells"`
}

// FortDetailsResult is the response of FortDetails.
type FortDetailsResult struct {
	FortID    string  `json:"fort_id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Position returns the fort coordinate.
func (r FortDetailsResult) Position() geo.Point {
	return geo.Point{Lat: r.Latitude, Lng: r.Longitude}
}

// FortSearchRequest spins a fort.
type FortSearchRequest struct {
	FortID string    `json:"fort_id"`
	Fort   geo.Point `json:"fort"`
	Player geo.Point `json:"player"`
}

// FortSearchResult is the response of FortSearch.
type FortSearchResult struct {
	Result            FortSearchStatus `json:"result"`
	ExperienceAwarded int              `json:"experience_awarded"`
	ItemsAwarded      []ItemStack      `json:"items_awarded"`
}

// EncounterRequest starts an encounter with a wild creature.
type EncounterRequest struct {
	EncounterID  uint64    `json:"encounter_id"`
	SpawnPointID string    `json:"spawn_point_id"`
	Player       geo.Point `json:"player"`
}

// WildPokemon is the creature found by an encounter.
type WildPokemon struct {
	EncounterID  uint64      `json:"encounter_id"`
	SpawnPointID string      `json:"spawn_point_id"`
	Latitude     float64     `json:"latitude"`
	Longitude    float64     `json:"longitude"`
	Pokemon      PokemonData `json:"pokemon_data"`
}

// EncounterResult is the response of Encounter.
type EncounterResult struct {
	Status      EncounterStatus `json:"status"`
	WildPokemon *WildPokemon    `json:"wild_pokemon,omitempty"`

	// CaptureProbability lists base rates in device tier order, starting
	// with the poke ball.
	CaptureProbability []float64 `json:"capture_probability"`
}

// CatchRequest throws one capture device.
type CatchRequest struct {
	EncounterID  uint64  `json:"encounter_id"`
	SpawnPointID string  `json:"spawn_point_id"`
	Pokeball     int     `json:"pokeball"`
	ReticleSize  float64 `json:"normalized_reticle_size"`
	SpinModifier float64 `json:"spin_modifier"`
	HitPokemon   bool    `json:"hit_pokemon"`
	HitPosition  float64 `json:"normalized_hit_position"`
}

// CaptureAward lists what a successful capture earned.
type CaptureAward struct {
	XP    []int `json:"xp"`
	Candy []int `json:"candy"`
}

// TotalXP sums the awarded experience.
func (a *CaptureAward) TotalXP() int {
	if a == nil {
		return 0
	}
	total := 0
	for _, xp := range a.XP {
		total += xp
	}
	return total
}

// CatchResult is the response of CatchPokemon.
type CatchResult struct {
	Status            CatchStatus   `json:"status"`
	CapturedPokemonID uint64        `json:"captured_pokemon_id"`
	Award             *CaptureAward `json:"capture_award,omitempty"`
}

// UseItemCaptureRequest feeds a boost item to the current encounter.
type UseItemCaptureRequest struct {
	ItemID       int    `json:"item_id"`
	EncounterID  uint64 `json:"encounter_id"`
	SpawnPointID string `json:"spawn_point_id"`
}

// UseItemCaptureResult is the response of UseItemCapture. ItemCaptureMult is
// zero when the boost was not applied.
type UseItemCaptureResult struct {
	Success         bool    `json:"success"`
	ItemCaptureMult float64 `json:"item_capture_mult"`
}

// RecycleResult is the response of RecycleInventoryItem.
type RecycleResult struct {
	Result   int `json:"result"`
	NewCount int `json:"new_count"`
}

// ReleaseResult is the response of ReleasePokemon.
type ReleaseResult struct {
	Result       int `json:"result"`
	CandyAwarded int `json:"candy_awarded"`
}

// LevelUpRewardsResult is the response of LevelUpRewards.
type LevelUpRewardsResult struct {
	Result       int         `json:"result"`
	ItemsAwarded []ItemStack `json:"items_awarded"`
}

// BadgesResult is the response of CheckAwardedBadges.
type BadgesResult struct {
	Success       bool  `json:"success"`
	AwardedBadges []int `json:"awarded_badges"`
	AwardedLevels []int `json:"awarded_badge_levels"`
}
