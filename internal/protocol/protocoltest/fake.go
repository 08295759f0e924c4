// Package protocoltest provides a scriptable protocol.Client for tests.
package protocoltest

import (
	"context"
	"sync"

	"github.com/xDyN/AlphaBot/internal/geo"
	"github.com/xDyN/AlphaBot/internal/protocol"
)

// Fake records every call and answers with the matching Func field, or a
// zero-valued successful result when the field is nil.
type Fake struct {
	mu        sync.Mutex
	calls     []string
	positions []geo.Point
	catches   []protocol.CatchRequest

	SetPositionFunc          func(p geo.Point) error
	SetAuthenticationFunc    func(provider, username, password string) error
	ActivateSignatureFunc    func(path string) error
	GetPlayerFunc            func() (*protocol.PlayerResult, error)
	GetInventoryFunc         func() (*protocol.InventoryResult, error)
	GetMapObjectsFunc        func(at geo.Point, cellIDs []uint64) (*protocol.MapObjectsResult, error)
	FortDetailsFunc          func(fortID string) (*protocol.FortDetailsResult, error)
	FortSearchFunc           func(req protocol.FortSearchRequest) (*protocol.FortSearchResult, error)
	EncounterFunc            func(req protocol.EncounterRequest) (*protocol.EncounterResult, error)
	CatchPokemonFunc         func(req protocol.CatchRequest) (*protocol.CatchResult, error)
	UseItemCaptureFunc       func(req protocol.UseItemCaptureRequest) (*protocol.UseItemCaptureResult, error)
	RecycleInventoryItemFunc func(itemID, count int) (*protocol.RecycleResult, error)
	ReleasePokemonFunc       func(pokemonID uint64) (*protocol.ReleaseResult, error)
	LevelUpRewardsFunc       func(level int) (*protocol.LevelUpRewardsResult, error)
	CheckAwardedBadgesFunc   func() (*protocol.BadgesResult, error)
}

var _ protocol.Client = (*Fake)(nil)

func (f *Fake) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

// Calls returns the method names in call order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns how many times method was called.
func (f *Fake) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == method {
			n++
		}
	}
	return n
}

// Positions returns every coordinate passed to SetPosition.
func (f *Fake) Positions() []geo.Point {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]geo.Point, len(f.positions))
	copy(out, f.positions)
	return out
}

// Catches returns every CatchPokemon request.
func (f *Fake) Catches() []protocol.CatchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]protocol.CatchRequest, len(f.catches))
	copy(out, f.catches)
	return out
}

func (f *Fake) SetPosition(_ context.Context, p geo.Point) error {
	f.record("SetPosition")
	f.mu.Lock()
	f.positions = append(f.positions, p)
	f.mu.Unlock()
	if f.SetPositionFunc != nil {
		return f.SetPositionFunc(p)
	}
	return nil
}

func (f *Fake) SetAuthentication(_ context.Context, provider, username, password string) error {
	f.record("SetAuthentication")
	if f.SetAuthenticationFunc != nil {
		return f.SetAuthenticationFunc(provider, username, password)
	}
	return nil
}

func (f *Fake) ActivateSignature(_ context.Context, path string) error {
	f.record("ActivateSignature")
	if f.ActivateSignatureFunc != nil {
		return f.ActivateSignatureFunc(path)
	}
	return nil
}

func (f *Fake) GetPlayer(context.Context) (*protocol.PlayerResult, error) {
	f.record("GetPlayer")
	if f.GetPlayerFunc != nil {
		return f.GetPlayerFunc()
	}
	return &protocol.PlayerResult{Success: true}, nil
}

func (f *Fake) GetInventory(context.Context) (*protocol.InventoryResult, error) {
	f.record("GetInventory")
	if f.GetInventoryFunc != nil {
		return f.GetInventoryFunc()
	}
	return &protocol.InventoryResult{Success: true}, nil
}

func (f *Fake) GetMapObjects(_ context.Context, at geo.Point, cellIDs []uint64) (*protocol.MapObjectsResult, error) {
	f.record("GetMapObjects")
	if f.GetMapObjectsFunc != nil {
		return f.GetMapObjectsFunc(at, cellIDs)
	}
	return &protocol.MapObjectsResult{Status: protocol.MapStatusSuccess}, nil
}

func (f *Fake) FortDetails(_ context.Context, fortID string, _ geo.Point) (*protocol.FortDetailsResult, error) {
	f.record("FortDetails")
	if f.FortDetailsFunc != nil {
		return f.FortDetailsFunc(fortID)
	}
	return &protocol.FortDetailsResult{FortID: fortID}, nil
}

func (f *Fake) FortSearch(_ context.Context, req protocol.FortSearchRequest) (*protocol.FortSearchResult, error) {
	f.record("FortSearch")
	if f.FortSearchFunc != nil {
		return f.FortSearchFunc(req)
	}
	return &protocol.FortSearchResult{}, nil
}

func (f *Fake) Encounter(_ context.Context, req protocol.EncounterRequest) (*protocol.EncounterResult, error) {
	f.record("Encounter")
	if f.EncounterFunc != nil {
		return f.EncounterFunc(req)
	}
	return &protocol.EncounterResult{}, nil
}

func (f *Fake) CatchPokemon(_ context.Context, req protocol.CatchRequest) (*protocol.CatchResult, error) {
	f.record("CatchPokemon")
	f.mu.Lock()
	f.catches = append(f.catches, req)
	f.mu.Unlock()
	if f.CatchPokemonFunc != nil {
		return f.CatchPokemonFunc(req)
	}
	return &protocol.CatchResult{}, nil
}

func (f *Fake) UseItemCapture(_ context.Context, req protocol.UseItemCaptureRequest) (*protocol.UseItemCaptureResult, error) {
	f.record("UseItemCapture")
	if f.UseItemCaptureFunc != nil {
		return f.UseItemCaptureFunc(req)
	}
	return &protocol.UseItemCaptureResult{}, nil
}

func (f *Fake) RecycleInventoryItem(_ context.Context, itemID, count int) (*protocol.RecycleResult, error) {
	f.record("RecycleInventoryItem")
	if f.RecycleInventoryItemFunc != nil {
		return f.RecycleInventoryItemFunc(itemID, count)
	}
	return &protocol.RecycleResult{Result: 1}, nil
}

func (f *Fake) ReleasePokemon(_ context.Context, pokemonID uint64) (*protocol.ReleaseResult, error) {
	f.record("ReleasePokemon")
	if f.ReleasePokemonFunc != nil {
		return f.ReleasePokemonFunc(pokemonID)
	}
	return &protocol.ReleaseResult{Result: 1}, nil
}

func (f *Fake) LevelUpRewards(_ context.Context, level int) (*protocol.LevelUpRewardsResult, error) {
	f.record("LevelUpRewards")
	if f.LevelUpRewardsFunc != nil {
		return f.LevelUpRewardsFunc(level)
	}
	return &protocol.LevelUpRewardsResult{Result: 1}, nil
}

func (f *Fake) CheckAwardedBadges(context.Context) (*protocol.BadgesResult, error) {
	f.record("CheckAwardedBadges")
	if f.CheckAwardedBadgesFunc != nil {
		return f.CheckAwardedBadgesFunc()
	}
	return &protocol.BadgesResult{Success: true}, nil
}
