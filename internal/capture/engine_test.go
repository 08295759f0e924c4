package capture

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xDyN/AlphaBot/internal/clock"
	"github.com/xDyN/AlphaBot/internal/events"
	"github.com/xDyN/AlphaBot/internal/gamedata"
	"github.com/xDyN/AlphaBot/internal/geo"
	"github.com/xDyN/AlphaBot/internal/inventory"
	"github.com/xDyN/AlphaBot/internal/metrics"
	"github.com/xDyN/AlphaBot/internal/protocol"
	"github.com/xDyN/AlphaBot/internal/protocol/protocoltest"
	"github.com/xDyN/AlphaBot/internal/session"
)

type harness struct {
	engine *Engine
	clock  *clock.Fake
	client *protocoltest.Fake
	sess   *session.Session
	stats  *metrics.SessionStats
}

func newHarness(t *testing.T, stock map[int]int) *harness {
	t.Helper()

	clk := clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	stats := metrics.NewSessionStats()
	dispatcher := events.NewEventDispatcher(zap.NewNop())
	dispatcher.Register(events.NewMetricsObserver(stats))

	engine := NewEngine(clk, rand.New(rand.NewSource(1)), gamedata.TestTables(t), dispatcher, zap.NewNop())

	client := &protocoltest.Fake{}
	sess := session.New("ash", geo.Point{Lat: 25, Lng: 121})
	sess.Client = client
	for id, n := range stock {
		sess.Inventory.Add(id, n)
	}

	return &harness{engine: engine, clock: clk, client: client, sess: sess, stats: stats}
}

func wild() inventory.Creature {
	return inventory.Creature{
		Species:   16,
		Name:      "Pidgey",
		CP:        120,
		Encounter: &inventory.EncounterRef{EncounterID: 99, SpawnPointID: "sp1"},
	}
}

// catchSequence answers CatchPokemon with the given statuses in order and
// success afterwards.
func catchSequence(statuses ...protocol.CatchStatus) func(protocol.CatchRequest) (*protocol.CatchResult, error) {
	i := 0
	return func(protocol.CatchRequest) (*protocol.CatchResult, error) {
		if i < len(statuses) {
			s := statuses[i]
			i++
			return &protocol.CatchResult{Status: s}, nil
		}
		return &protocol.CatchResult{
			Status:            protocol.CatchSuccess,
			CapturedPokemonID: 555,
			Award:             &protocol.CaptureAward{XP: []int{100, 10}},
		}, nil
	}
}

func TestResolve_CapturesWithWeakestDevice(t *testing.T) {
	h := newHarness(t, map[int]int{inventory.ItemPokeBall: 5, inventory.ItemGreatBall: 5})
	h.sess.RecoveryAttempts = 1
	h.client.CatchPokemonFunc = catchSequence()

	res, err := h.engine.Resolve(context.Background(), h.sess, wild(), NewRates([]float64{0.5, 0.6, 0.7}))
	require.NoError(t, err)

	assert.Equal(t, Result{Status: Captured, CreatureID: 555}, res)
	require.Len(t, h.client.Catches(), 1)
	assert.Equal(t, inventory.ItemPokeBall, h.client.Catches()[0].Pokeball)
	assert.True(t, h.client.Catches()[0].HitPokemon)
	assert.Equal(t, 4, h.sess.Inventory.Count(inventory.ItemPokeBall))
	assert.Equal(t, 110, h.sess.Inventory.Experience)
	assert.Zero(t, h.sess.RecoveryAttempts)
	assert.Equal(t, 1, h.clock.CountSleeps(100*time.Millisecond))
	assert.Equal(t, uint64(1), h.stats.Captures.Load())
}

func TestResolve_NoStockThrowsWeakestWithoutDecrement(t *testing.T) {
	h := newHarness(t, map[int]int{inventory.ItemMasterBall: 3})
	h.client.CatchPokemonFunc = catchSequence()

	res, err := h.engine.Resolve(context.Background(), h.sess, wild(), NewRates([]float64{0.9, 0.9, 0.9, 1}))
	require.NoError(t, err)

	assert.Equal(t, Captured, res.Status)
	assert.Equal(t, inventory.ItemPokeBall, h.client.Catches()[0].Pokeball)
	assert.Equal(t, 0, h.sess.Inventory.Count(inventory.ItemPokeBall))
	assert.Equal(t, 3, h.sess.Inventory.Count(inventory.ItemMasterBall), "master balls are never thrown automatically")
}

func TestResolve_NeverSelectsEmptyDeviceWhenOneIsStocked(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		stock := map[int]int{
			inventory.ItemPokeBall:  rng.Intn(3),
			inventory.ItemGreatBall: rng.Intn(3),
			inventory.ItemUltraBall: rng.Intn(3),
			inventory.ItemRazzBerry: rng.Intn(40),
		}
		if stock[1]+stock[2]+stock[3] == 0 {
			continue
		}

		h := newHarness(t, stock)
		h.client.CatchPokemonFunc = catchSequence()
		h.client.UseItemCaptureFunc = func(protocol.UseItemCaptureRequest) (*protocol.UseItemCaptureResult, error) {
			return &protocol.UseItemCaptureResult{Success: true, ItemCaptureMult: 1.5}, nil
		}
		rates := NewRates([]float64{rng.Float64() * 0.5, rng.Float64() * 0.6, rng.Float64() * 0.7})

		_, err := h.engine.Resolve(context.Background(), h.sess, wild(), rates)
		require.NoError(t, err)

		thrown := h.client.Catches()[0].Pokeball
		assert.Greater(t, stock[thrown], 0, "case %d threw empty device %d from %v", i, thrown, stock)
		assert.LessOrEqual(t, h.client.CallCount("UseItemCapture"), 1)
	}
}

func TestResolve_BoostsAfterFailedUpgrade(t *testing.T) {
	h := newHarness(t, map[int]int{
		inventory.ItemPokeBall:  0,
		inventory.ItemGreatBall: 5,
		inventory.ItemUltraBall: 0,
		inventory.ItemRazzBerry: 10,
	})
	h.client.CatchPokemonFunc = catchSequence()

	var boostReq protocol.UseItemCaptureRequest
	h.client.UseItemCaptureFunc = func(req protocol.UseItemCaptureRequest) (*protocol.UseItemCaptureResult, error) {
		boostReq = req
		return &protocol.UseItemCaptureResult{Success: true, ItemCaptureMult: 1.5}, nil
	}

	_, err := h.engine.Resolve(context.Background(), h.sess, wild(), NewRates([]float64{0.1, 0.2, 0.3}))
	require.NoError(t, err)

	assert.Equal(t, inventory.ItemGreatBall, h.client.Catches()[0].Pokeball)
	assert.Equal(t, 1, h.client.CallCount("UseItemCapture"))
	assert.Equal(t, inventory.ItemRazzBerry, boostReq.ItemID)
	assert.Equal(t, uint64(99), boostReq.EncounterID)
	assert.Equal(t, 9, h.sess.Inventory.Count(inventory.ItemRazzBerry))
	assert.Equal(t, 4, h.sess.Inventory.Count(inventory.ItemGreatBall))
	assert.Equal(t, []string{"UseItemCapture", "CatchPokemon"}, h.client.Calls())
}

func TestResolve_BoostsBeforeUpgradeWithSpareBoosts(t *testing.T) {
	h := newHarness(t, map[int]int{
		inventory.ItemPokeBall:  10,
		inventory.ItemGreatBall: 5,
		inventory.ItemRazzBerry: 40,
	})
	h.client.CatchPokemonFunc = catchSequence()
	h.client.UseItemCaptureFunc = func(protocol.UseItemCaptureRequest) (*protocol.UseItemCaptureResult, error) {
		return &protocol.UseItemCaptureResult{Success: true, ItemCaptureMult: 3}, nil
	}

	_, err := h.engine.Resolve(context.Background(), h.sess, wild(), NewRates([]float64{0.1, 0.2, 0.3}))
	require.NoError(t, err)

	assert.Equal(t, inventory.ItemPokeBall, h.client.Catches()[0].Pokeball, "boosted rate no longer needs an upgrade")
	assert.Equal(t, 5, h.sess.Inventory.Count(inventory.ItemGreatBall))
	assert.Equal(t, 39, h.sess.Inventory.Count(inventory.ItemRazzBerry))
}

func TestResolve_UpgradesGreedily(t *testing.T) {
	h := newHarness(t, map[int]int{
		inventory.ItemPokeBall:   10,
		inventory.ItemGreatBall:  5,
		inventory.ItemUltraBall:  2,
		inventory.ItemMasterBall: 1,
	})
	h.client.CatchPokemonFunc = catchSequence()

	_, err := h.engine.Resolve(context.Background(), h.sess, wild(), NewRates([]float64{0.1, 0.2, 0.3, 1}))
	require.NoError(t, err)

	assert.Equal(t, inventory.ItemUltraBall, h.client.Catches()[0].Pokeball)
	assert.Equal(t, 1, h.sess.Inventory.Count(inventory.ItemUltraBall))
	assert.Zero(t, h.client.CallCount("UseItemCapture"))
}

func TestResolve_BoostAttemptedAtMostOnce(t *testing.T) {
	h := newHarness(t, map[int]int{
		inventory.ItemPokeBall:  10,
		inventory.ItemRazzBerry: 5,
	})
	h.client.CatchPokemonFunc = catchSequence(protocol.CatchEscape, protocol.CatchEscape, protocol.CatchEscape)
	h.client.UseItemCaptureFunc = func(protocol.UseItemCaptureRequest) (*protocol.UseItemCaptureResult, error) {
		return &protocol.UseItemCaptureResult{Success: false}, nil
	}

	res, err := h.engine.Resolve(context.Background(), h.sess, wild(), NewRates([]float64{0.05, 0.1, 0.2}))
	require.NoError(t, err)

	assert.Equal(t, Captured, res.Status)
	assert.Equal(t, 1, h.client.CallCount("UseItemCapture"))
	assert.Equal(t, 5, h.sess.Inventory.Count(inventory.ItemRazzBerry), "unconfirmed boost keeps stock")
	assert.Equal(t, 4, h.client.CallCount("CatchPokemon"))
}

func TestResolve_EscapeRetriesWithoutRefund(t *testing.T) {
	h := newHarness(t, map[int]int{inventory.ItemPokeBall: 10})
	h.client.CatchPokemonFunc = catchSequence(protocol.CatchEscape, protocol.CatchEscape)

	res, err := h.engine.Resolve(context.Background(), h.sess, wild(), NewRates([]float64{0.5}))
	require.NoError(t, err)

	assert.Equal(t, Captured, res.Status)
	assert.Equal(t, 7, h.sess.Inventory.Count(inventory.ItemPokeBall))
	assert.Equal(t, 5, h.clock.CountSleeps(100*time.Millisecond), "three throws and two retry pauses")
	assert.Equal(t, uint64(2), h.stats.Escapes.Load())
}

func TestResolve_Vanished(t *testing.T) {
	h := newHarness(t, map[int]int{inventory.ItemPokeBall: 10})
	h.client.CatchPokemonFunc = catchSequence(protocol.CatchFlee)

	res, err := h.engine.Resolve(context.Background(), h.sess, wild(), NewRates([]float64{0.5}))
	require.NoError(t, err)

	assert.Equal(t, Result{Status: Vanished}, res)
	assert.Equal(t, uint64(1), h.stats.Vanishes.Load())
}

func TestResolve_AbortsOnUnexpectedResponse(t *testing.T) {
	tests := []struct {
		name string
		fn   func(protocol.CatchRequest) (*protocol.CatchResult, error)
	}{
		{"no payload", func(protocol.CatchRequest) (*protocol.CatchResult, error) { return nil, nil }},
		{"error status", catchSequence(protocol.CatchError)},
		{"missed", catchSequence(protocol.CatchMissed)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, map[int]int{inventory.ItemPokeBall: 10})
			h.client.CatchPokemonFunc = tt.fn

			res, err := h.engine.Resolve(context.Background(), h.sess, wild(), NewRates([]float64{0.5}))
			require.NoError(t, err)
			assert.Equal(t, Result{Status: Aborted}, res)
			assert.Equal(t, 1, h.client.CallCount("CatchPokemon"))
		})
	}
}

func TestResolve_PropagatesProtocolErrors(t *testing.T) {
	h := newHarness(t, map[int]int{inventory.ItemPokeBall: 10})
	perr := &protocol.Error{Kind: protocol.KindNotLoggedIn, Op: "catch_pokemon"}
	h.client.CatchPokemonFunc = func(protocol.CatchRequest) (*protocol.CatchResult, error) { return nil, perr }

	_, err := h.engine.Resolve(context.Background(), h.sess, wild(), NewRates([]float64{0.5}))
	require.Error(t, err)
	assert.True(t, protocol.IsTransient(err))
}

func TestResolve_RequiresEncounter(t *testing.T) {
	h := newHarness(t, nil)
	c := wild()
	c.Encounter = nil

	_, err := h.engine.Resolve(context.Background(), h.sess, c, NewRates([]float64{0.5}))
	require.True(t, errors.Is(err, errNoEncounter))
}

func TestResolve_SoftbanRecovery(t *testing.T) {
	h := newHarness(t, map[int]int{inventory.ItemPokeBall: 15, inventory.ItemGreatBall: 10})
	h.sess.LikelySoftbanned = true

	res, err := h.engine.Resolve(context.Background(), h.sess, wild(), NewRates([]float64{0.5}))
	require.NoError(t, err)

	assert.Equal(t, Result{Status: Aborted}, res)
	assert.Equal(t, 20, h.clock.CountSleeps(time.Second))

	catches := h.client.Catches()
	require.Len(t, catches, 20)
	for _, c := range catches {
		assert.False(t, c.HitPokemon)
	}
	assert.Equal(t, inventory.ItemPokeBall, catches[14].Pokeball)
	assert.Equal(t, inventory.ItemGreatBall, catches[15].Pokeball)
	assert.Equal(t, 0, h.sess.Inventory.Count(inventory.ItemPokeBall))
	assert.Equal(t, 5, h.sess.Inventory.Count(inventory.ItemGreatBall))

	assert.False(t, h.sess.LikelySoftbanned)
	assert.Equal(t, 1, h.sess.RecoveryAttempts)
	assert.Equal(t, uint64(1), h.stats.SoftbanRecoveries.Load())
}

func TestResolve_SoftbanRecoveryWithoutStock(t *testing.T) {
	h := newHarness(t, nil)
	h.sess.LikelySoftbanned = true

	_, err := h.engine.Resolve(context.Background(), h.sess, wild(), NewRates([]float64{0.5}))
	require.NoError(t, err)

	assert.Len(t, h.client.Catches(), 20)
	assert.Equal(t, 0, h.sess.Inventory.Count(inventory.ItemPokeBall))
}

func TestResolve_CircuitBreaker(t *testing.T) {
	h := newHarness(t, map[int]int{inventory.ItemPokeBall: 10})
	h.sess.LikelySoftbanned = true
	h.sess.RecoveryAttempts = 2

	res, err := h.engine.Resolve(context.Background(), h.sess, wild(), NewRates([]float64{0.5}))
	require.NoError(t, err)

	assert.Equal(t, Aborted, res.Status)
	assert.Equal(t, 5, h.clock.CountSleeps(time.Hour))
	assert.Empty(t, h.client.Catches())
	assert.False(t, h.sess.LikelySoftbanned)
	assert.Zero(t, h.sess.RecoveryAttempts)
	assert.Equal(t, 10, h.sess.Inventory.Count(inventory.ItemPokeBall))
}

func TestResolve_CancelledDuringRecovery(t *testing.T) {
	h := newHarness(t, map[int]int{inventory.ItemPokeBall: 10})
	h.sess.LikelySoftbanned = true
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.engine.Resolve(ctx, h.sess, wild(), NewRates([]float64{0.5}))
	require.ErrorIs(t, err, context.Canceled)
}

func TestThrowParameters(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.SetThrowFactors(0.5, 0.3)

	for i := 0; i < 1000; i++ {
		req := h.engine.throw(wild(), inventory.ItemPokeBall, true)
		assert.GreaterOrEqual(t, req.ReticleSize, 1.475)
		assert.LessOrEqual(t, req.ReticleSize, 1.95)
		assert.GreaterOrEqual(t, req.SpinModifier, 0.3)
		assert.LessOrEqual(t, req.SpinModifier, 1.0)
		assert.Equal(t, 1.0, req.HitPosition)
	}

	h.engine.SetThrowFactors(5, -1)
	assert.Equal(t, 1.0, h.engine.reticleFactor)
	assert.Equal(t, 0.0, h.engine.spinFactor)
}

func TestRates(t *testing.T) {
	r := NewRates([]float64{0.2, 1.4, -0.1})
	assert.Equal(t, Rates{0, 0.2, 1, 0}, r)
	assert.Zero(t, r.At(0))
	assert.Zero(t, r.At(9))

	boosted := r.Boost(4)
	assert.Equal(t, Rates{0, 0.8, 1, 0}, boosted)
	assert.Equal(t, 0.2, r.At(1), "boost returns a copy")

	assert.Equal(t, r, r.Boost(0.5), "rates never drop")
}
