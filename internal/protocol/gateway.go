package protocol

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/xDyN/AlphaBot/internal/clock"
	"github.com/xDyN/AlphaBot/internal/geo"
	"github.com/xDyN/AlphaBot/internal/metrics"
)

// GatewayConfig holds configuration for the signing gateway client.
type GatewayConfig struct {
	// BaseURL is the gateway root, e.g. "http://127.0.0.1:8790".
	BaseURL string

	// Timeout bounds a single HTTP request.
	Timeout time.Duration

	// MaxRetries is the number of extra attempts after a 5xx or a
	// connection failure.
	MaxRetries int

	// RetryBaseDelay is the first backoff delay; it doubles per attempt.
	RetryBaseDelay time.Duration

	// RequestsPerSecond and Burst configure the client-side rate limiter.
	RequestsPerSecond float64
	Burst             int

	// Clock paces retry backoff. Nil means the wall clock.
	Clock clock.Clock
}

// DefaultGatewayConfig returns a GatewayConfig with the bot's defaults.
func DefaultGatewayConfig(baseURL string) *GatewayConfig {
	return &GatewayConfig{
		BaseURL:           baseURL,
		Timeout:           15 * time.Second,
		MaxRetries:        3,
		RetryBaseDelay:    500 * time.Millisecond,
		RequestsPerSecond: 5,
		Burst:             5,
	}
}

// GatewayClient speaks JSON over HTTP to a local gateway that signs and
// forwards game RPCs. Each method maps to POST <base>/rpc/<method>.
type GatewayClient struct {
	config     *GatewayConfig
	clock      clock.Clock
	httpClient *http.Client
	limiter    *rate.Limiter
	sessionID  string
	stats      *metrics.SessionStats
}

// NewGatewayClient creates a client with its own session id. stats may be nil.
func NewGatewayClient(config *GatewayConfig, stats *metrics.SessionStats) *GatewayClient {
	burst := config.Burst
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}

	clk := config.Clock
	if clk == nil {
		clk = clock.New()
	}

	return &GatewayClient{
		config: config,
		clock:  clk,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter:   rate.NewLimiter(limit, burst),
		sessionID: uuid.NewString(),
		stats:     stats,
	}
}

// NewGatewayFactory returns a Factory producing a new GatewayClient, and so a
// new gateway session, per login.
func NewGatewayFactory(config *GatewayConfig, stats *metrics.SessionStats) Factory {
	return func(ctx context.Context) (Client, error) {
		if config.BaseURL == "" {
			return nil, fmt.Errorf("gateway url is not configured")
		}
		return NewGatewayClient(config, stats), nil
	}
}

// SessionID identifies this client's session to the gateway.
func (c *GatewayClient) SessionID() string {
	return c.sessionID
}

func (c *GatewayClient) SetPosition(ctx context.Context, p geo.Point) error {
	return c.call(ctx, "set_position", p, nil)
}

func (c *GatewayClient) SetAuthentication(ctx context.Context, provider, username, password string) error {
	req := struct {
		Provider string `json:"provider"`
		Username string `json:"username"`
		Password string `json:"password"`
	}{provider, username, password}
	return c.call(ctx, "set_authentication", req, nil)
}

func (c *GatewayClient) ActivateSignature(ctx context.Context, path string) error {
	req := struct {
		Path string `json:"path"`
	}{path}
	return c.call(ctx, "activate_signature", req, nil)
}

func (c *GatewayClient) GetPlayer(ctx context.Context) (*PlayerResult, error) {
	var res PlayerResult
	if err := c.call(ctx, "get_player", struct{}{}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *GatewayClient) GetInventory(ctx context.Context) (*InventoryResult, error) {
	var res InventoryResult
	if err := c.call(ctx, "get_inventory", struct{}{}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *GatewayClient) GetMapObjects(ctx context.Context, at geo.Point, cellIDs []uint64) (*MapObjectsResult, error) {
	req := struct {
		Latitude  float64  `json:"latitude"`
		Longitude float64  `json:"longitude"`
		CellIDs   []uint64 `json:"cell_id"`
		SinceMs   []int64  `json:"since_timestamp_ms"`
	}{at.Lat, at.Lng, cellIDs, make([]int64, len(cellIDs))}

	var res MapObjectsResult
	if err := c.call(ctx, "get_map_objects", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *GatewayClient) FortDetails(ctx context.Context, fortID string, at geo.Point) (*FortDetailsResult, error) {
	req := struct {
		FortID    string  `json:"fort_id"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}{fortID, at.Lat, at.Lng}

	var res FortDetailsResult
	if err := c.call(ctx, "fort_details", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *GatewayClient) FortSearch(ctx context.Context, req FortSearchRequest) (*FortSearchResult, error) {
	var res FortSearchResult
	if err := c.call(ctx, "fort_search", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *GatewayClient) Encounter(ctx context.Context, req EncounterRequest) (*EncounterResult, error) {
	var res EncounterResult
	if err := c.call(ctx, "encounter", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *GatewayClient) CatchPokemon(ctx context.Context, req CatchRequest) (*CatchResult, error) {
	var res CatchResult
	if err := c.call(ctx, "catch_pokemon", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *GatewayClient) UseItemCapture(ctx context.Context, req UseItemCaptureRequest) (*UseItemCaptureResult, error) {
	var res UseItemCaptureResult
	if err := c.call(ctx, "use_item_capture", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *GatewayClient) RecycleInventoryItem(ctx context.Context, itemID, count int) (*RecycleResult, error) {
	req := struct {
		ItemID int `json:"item_id"`
		Count  int `json:"count"`
	}{itemID, count}

	var res RecycleResult
	if err := c.call(ctx, "recycle_inventory_item", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *GatewayClient) ReleasePokemon(ctx context.Context, pokemonID uint64) (*ReleaseResult, error) {
	req := struct {
		PokemonID uint64 `json:"pokemon_id"`
	}{pokemonID}

	var res ReleaseResult
	if err := c.call(ctx, "release_pokemon", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *GatewayClient) LevelUpRewards(ctx context.Context, level int) (*LevelUpRewardsResult, error) {
	req := struct {
		Level int `json:"level"`
	}{level}

	var res LevelUpRewardsResult
	if err := c.call(ctx, "level_up_rewards", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *GatewayClient) CheckAwardedBadges(ctx context.Context) (*BadgesResult, error) {
	var res BadgesResult
	if err := c.call(ctx, "check_awarded_badges", struct{}{}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// call performs one RPC with rate limiting and retry on 5xx and connection
// failures. A nil result discards the response body.
func (c *GatewayClient) call(ctx context.Context, method string, req, result interface{}) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	start := time.Now()
	err = c.callWithRetry(ctx, method, body, result)
	if c.stats != nil {
		c.stats.RecordRPC(time.Since(start), err)
	}
	return err
}

func (c *GatewayClient) callWithRetry(ctx context.Context, method string, body []byte, result interface{}) error {
	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.config.RetryBaseDelay * time.Duration(1<<uint(attempt-1))
			if err := c.clock.Sleep(ctx, delay); err != nil {
				return err
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		retry, err := c.do(ctx, method, body, result)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !retry {
			return err
		}
		lastErr = err
	}

	return lastErr
}

func (c *GatewayClient) do(ctx context.Context, method string, body []byte, result interface{}) (retry bool, err error) {
	url := strings.TrimRight(c.config.BaseURL, "/") + "/rpc/" + method

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Session-ID", c.sessionID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return true, &Error{Kind: KindUnavailable, Op: method, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 500:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return true, &Error{Kind: KindUnavailable, Op: method,
			Err: fmt.Errorf("server error %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))}
	case resp.StatusCode == http.StatusUnauthorized:
		return false, &Error{Kind: KindAuth, Op: method}
	case resp.StatusCode == http.StatusForbidden:
		return false, &Error{Kind: KindNotLoggedIn, Op: method}
	case resp.StatusCode == http.StatusTooManyRequests:
		return false, &Error{Kind: KindThrottled, Op: method}
	case resp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("%s: request failed with status %d: %s",
			method, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if result == nil {
		return false, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return false, &Error{Kind: KindMalformed, Op: method, Err: err}
	}
	return false, nil
}
