package feed

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xDyN/AlphaBot/internal/clock"
)

func testConfig(url string) *Config {
	config := DefaultConfig(url)
	config.InitialBackoff = time.Millisecond
	config.MaxBackoff = 2 * time.Millisecond
	config.MinInterval = 0
	config.Clock = clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return config
}

func enc(id string) string {
	return base64.StdEncoding.EncodeToString([]byte(id))
}

func TestSightings(t *testing.T) {
	body := `{"pokemons":[
		{"pokemon_id":16,"latitude":25.01,"longitude":121.5,"encounter_id":"` + enc("12345678901234567890") + `","spawnpoint_id":"sp1","disappear_time":2000,"pokemon_rarity":"常見"},
		{"pokemon_id":149,"latitude":25.02,"longitude":121.6,"encounter_id":"","spawnpoint_id":"sp2","disappear_time":1000,"pokemon_rarity":"超罕見"},
		{"pokemon_id":1,"latitude":25.03,"longitude":121.7,"encounter_id":"` + enc("7") + `","spawnpoint_id":"sp3","disappear_time":500,"pokemon_rarity":"legendary"}
	]}`

	var gotPath, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	got, err := NewClient(testConfig(server.URL + "/")).Sightings(context.Background())
	require.NoError(t, err)

	want := []Sighting{
		{PokemonID: 16, Latitude: 25.01, Longitude: 121.5, EncounterID: 12345678901234567890, SpawnPointID: "sp1", DisappearTime: 2000, Rarity: 0},
		{PokemonID: 149, Latitude: 25.02, Longitude: 121.6, EncounterID: 0, SpawnPointID: "sp2", DisappearTime: 1000, Rarity: 4},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Sightings() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "/raw_data", gotPath)
	assert.Equal(t, "pokemon=true&pokestops=false&gyms=false&scanned=false&spawnpoints=false", gotQuery)
}

func TestSightings_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			_, _ = w.Write([]byte(`{"pokemons":[]}`))
		}
	}))
	defer server.Close()

	config := testConfig(server.URL)
	config.MaxRetries = 4
	config.InitialBackoff = time.Second
	config.MaxBackoff = 3 * time.Second
	clk := clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	config.Clock = clk

	got, err := NewClient(config).Sightings(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, clk.Sleeps())
}

func TestSightings_BackoffIsCapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	config := testConfig(server.URL)
	config.MaxRetries = 4
	config.InitialBackoff = time.Second
	config.MaxBackoff = 3 * time.Second
	clk := clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	config.Clock = clk

	_, err := NewClient(config).Sightings(context.Background())
	require.Error(t, err)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second}, clk.Sleeps())
}

func TestSightings_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewClient(testConfig(server.URL)).Sightings(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSightings_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	config := testConfig(url)
	config.MaxRetries = 1
	_, err := NewClient(config).Sightings(context.Background())
	require.Error(t, err)
}

func TestSightings_NoFeedConfigured(t *testing.T) {
	got, err := NewClient(testConfig("")).Sightings(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDecodeEncounterID(t *testing.T) {
	assert.Equal(t, uint64(42), DecodeEncounterID(enc("42")))
	assert.Zero(t, DecodeEncounterID(""))
	assert.Zero(t, DecodeEncounterID("!!!"))
	assert.Zero(t, DecodeEncounterID(enc("abc")))
}

func TestSort(t *testing.T) {
	sightings := []Sighting{
		{EncounterID: 1, DisappearTime: 300, Rarity: 0},
		{EncounterID: 2, DisappearTime: 100, Rarity: 2},
		{EncounterID: 3, DisappearTime: 200, Rarity: 0},
		{EncounterID: 4, DisappearTime: 400, Rarity: 2},
	}

	byTime := append([]Sighting(nil), sightings...)
	Sort(byTime, false)
	assert.Equal(t, []uint64{2, 3, 1, 4}, ids(byTime))

	rare := append([]Sighting(nil), sightings...)
	Sort(rare, true)
	assert.Equal(t, []uint64{2, 4, 3, 1}, ids(rare), "rarity first, then soonest")
}

func ids(s []Sighting) []uint64 {
	out := make([]uint64, len(s))
	for i, x := range s {
		out[i] = x.EncounterID
	}
	return out
}
