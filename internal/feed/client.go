// Package feed reads creature sightings from an external spawn map.
package feed

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/xDyN/AlphaBot/internal/clock"
)

const rawDataPath = "raw_data?pokemon=true&pokestops=false&gyms=false&scanned=false&spawnpoints=false"

// Rarity labels used by the feed, mapped to ascending rank.
var rarityRank = map[string]int{
	"常見":   0,
	"少見":   1,
	"罕見":   2,
	"非常罕見": 3,
	"超罕見":  4,
}

// Sighting is one creature reported by the feed.
type Sighting struct {
	PokemonID     int
	Latitude      float64
	Longitude     float64
	EncounterID   uint64
	SpawnPointID  string
	DisappearTime int64
	Rarity        int
}

type rawSighting struct {
	PokemonID     int     `json:"pokemon_id"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	EncounterID   string  `json:"encounter_id"`
	SpawnPointID  string  `json:"spawnpoint_id"`
	DisappearTime int64   `json:"disappear_time"`
	Rarity        string  `json:"pokemon_rarity"`
}

type rawData struct {
	Pokemons []rawSighting `json:"pokemons"`
}

// Config holds configuration for the feed client.
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// MinInterval is the minimum spacing between requests.
	MinInterval time.Duration

	// Clock paces retry backoff. Nil means the wall clock.
	Clock clock.Clock
}

// DefaultConfig returns a Config with the bot's defaults.
func DefaultConfig(baseURL string) *Config {
	return &Config{
		BaseURL:        baseURL,
		Timeout:        30 * time.Second,
		MaxRetries:     3,
		InitialBackoff: time.Second,
		MaxBackoff:     16 * time.Second,
		MinInterval:    time.Second,
	}
}

// Client fetches sightings with rate limiting and retry.
type Client struct {
	config      *Config
	clock       clock.Clock
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

// NewClient creates a feed client.
func NewClient(config *Config) *Client {
	limit := rate.Inf
	if config.MinInterval > 0 {
		limit = rate.Every(config.MinInterval)
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Client{
		config: config,
		clock:  clk,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: rate.NewLimiter(limit, 1),
	}
}

// Sightings fetches the current sightings, unsorted. Entries with an unknown
// rarity label are dropped. A client without a base URL reports nothing.
func (c *Client) Sightings(ctx context.Context) ([]Sighting, error) {
	if c.config.BaseURL == "" {
		return nil, nil
	}
	url := strings.TrimRight(c.config.BaseURL, "/") + "/" + rawDataPath

	var data rawData
	if err := c.doRequest(ctx, url, &data); err != nil {
		return nil, fmt.Errorf("failed to fetch sightings: %w", err)
	}

	out := make([]Sighting, 0, len(data.Pokemons))
	for _, raw := range data.Pokemons {
		rank, ok := rarityRank[raw.Rarity]
		if !ok {
			continue
		}
		out = append(out, Sighting{
			PokemonID:     raw.PokemonID,
			Latitude:      raw.Latitude,
			Longitude:     raw.Longitude,
			EncounterID:   DecodeEncounterID(raw.EncounterID),
			SpawnPointID:  raw.SpawnPointID,
			DisappearTime: raw.DisappearTime,
			Rarity:        rank,
		})
	}
	return out, nil
}

// DecodeEncounterID decodes a base64 encoded decimal encounter id. It returns
// 0 for empty or undecodable input.
func DecodeEncounterID(s string) uint64 {
	if s == "" {
		return 0
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return 0
	}
	id, err := strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Sort orders sightings by disappear time, soonest first. With rareFirst the
// result is then stably re-sorted by rarity, rarest first.
func Sort(sightings []Sighting, rareFirst bool) {
	sort.SliceStable(sightings, func(i, j int) bool {
		return sightings[i].DisappearTime < sightings[j].DisappearTime
	})
	if rareFirst {
		sort.SliceStable(sightings, func(i, j int) bool {
			return sightings[i].Rarity > sightings[j].Rarity
		})
	}
}

// doRequest performs a GET with rate limiting, retrying on network errors,
// 429 and 5xx.
func (c *Client) doRequest(ctx context.Context, url string, result interface{}) error {
	var lastErr error
	backoff := c.config.InitialBackoff

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := c.clock.Sleep(ctx, backoff); err != nil {
				return err
			}
			backoff = min(backoff*2, c.config.MaxBackoff)
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}

		retry, err := c.get(ctx, url, result)
		if err == nil {
			return nil
		}
		if !retry || ctx.Err() != nil {
			return err
		}
		lastErr = err
	}

	return lastErr
}

func (c *Client) get(ctx context.Context, url string, result interface{}) (retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return true, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return false, fmt.Errorf("failed to read response body: %w", err)
		}
		if err := json.Unmarshal(body, result); err != nil {
			return false, fmt.Errorf("failed to parse JSON response: %w", err)
		}
		return false, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return true, fmt.Errorf("rate limited (HTTP 429)")
	case resp.StatusCode >= 500:
		return true, fmt.Errorf("server error (HTTP %d)", resp.StatusCode)
	default:
		return false, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
}
