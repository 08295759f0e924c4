package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/xDyN/AlphaBot/internal/geo"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// ErrNotFound is returned by Discover when no config file exists.
var ErrNotFound = errors.New("config file not found")

// Environment variables that override credentials from the file.
const (
	EnvUsername    = "ALPHABOT_USERNAME"
	EnvPassword    = "ALPHABOT_PASSWORD"
	EnvAuthService = "ALPHABOT_AUTH_SERVICE"
)

// Config represents the bot configuration.
type Config struct {
	AuthService string `toml:"auth_service"`
	Username    string `toml:"username"`
	Password    string `toml:"password"`

	// Location is the start coordinate as "lat,lng".
	Location string `toml:"location"`

	FarmingMode    FarmingModeConfig    `toml:"farming_mode"`
	TransferFilter TransferFilterConfig `toml:"transfer_filter"`

	// ItemLimit maps item names to the maximum stock kept.
	ItemLimit map[string]int `toml:"item_limit"`

	DailyLimit DailyLimitConfig `toml:"daily_limit"`

	CatchTimeEveryRun           int     `toml:"catch_time_every_run"`
	CatchRandomizeReticleFactor float64 `toml:"catch_randomize_reticle_factor"`
	CatchRandomizeSpinFactor    float64 `toml:"catch_randomize_spin_factor"`

	// StepDiameter is the walking stride in metres per second.
	StepDiameter float64 `toml:"step_diameter"`
	RareFirst    bool    `toml:"rare_first"`

	FeedURL  string         `toml:"feed_url"`
	Gateway  GatewayConfig  `toml:"gateway"`
	Database DatabaseConfig `toml:"database"`
	Log      LogConfig      `toml:"log"`
	Status   StatusConfig   `toml:"status"`
}

// Band is a min/max stock band.
type Band struct {
	Min int `toml:"min"`
	Max int `toml:"max"`
}

// FarmingModeConfig holds the stock bands that toggle farming mode.
type FarmingModeConfig struct {
	AllPokeball Band `toml:"all_pokeball"`
	AllPotion   Band `toml:"all_potion"`
	AllRevive   Band `toml:"all_revive"`
}

// TransferFilterConfig decides which creatures are released.
type TransferFilterConfig struct {
	Logic   string  `toml:"logic"` // "or" or "and"
	BelowCP int     `toml:"below_cp"`
	BelowIV float64 `toml:"below_iv"`
}

// DailyLimitConfig caps captures and spins per rolling 12 hours.
type DailyLimitConfig struct {
	Catch int `toml:"catch"`
	Spin  int `toml:"spin"`
}

// GatewayConfig points at the signing gateway that speaks the game protocol.
type GatewayConfig struct {
	URL           string `toml:"url"`
	Timeout       string `toml:"timeout"` // e.g. "15s"
	SignaturePath string `toml:"signature_path"`
}

// DatabaseConfig contains storage settings.
type DatabaseConfig struct {
	Path string `toml:"path"` // empty means ~/.alphabot/alphabot.db
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level       string `toml:"level"`
	File        string `toml:"file"`
	Development bool   `toml:"development"`
}

// StatusConfig contains the status server settings.
type StatusConfig struct {
	Addr string `toml:"addr"` // empty disables the server
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		AuthService: "ptc",
		FarmingMode: FarmingModeConfig{
			AllPokeball: Band{Min: 50, Max: 150},
			AllPotion:   Band{Min: 10, Max: 50},
			AllRevive:   Band{Min: 5, Max: 30},
		},
		TransferFilter: TransferFilterConfig{
			Logic:   "or",
			BelowCP: 500,
			BelowIV: 0.8,
		},
		ItemLimit: map[string]int{},
		DailyLimit: DailyLimitConfig{
			Catch: 1000,
			Spin:  2000,
		},
		CatchTimeEveryRun:           5,
		CatchRandomizeReticleFactor: 0.5,
		CatchRandomizeSpinFactor:    0.5,
		StepDiameter:                10,
		Gateway: GatewayConfig{
			URL:     "http://127.0.0.1:8080",
			Timeout: "15s",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the TOML file at path over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment. A missing file is not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvUsername); v != "" {
		c.Username = v
	}
	if v := os.Getenv(EnvPassword); v != "" {
		c.Password = v
	}
	if v := os.Getenv(EnvAuthService); v != "" {
		c.AuthService = v
	}
}

// Discover returns explicit when set, otherwise the first existing file of
// ./configs/config.toml and ~/.alphabot/config.toml.
func Discover(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	candidates := []string{filepath.Join("configs", "config.toml")}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".alphabot", "config.toml"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", ErrNotFound
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if c.AuthService != "ptc" && c.AuthService != "google" {
		return fmt.Errorf("%w: auth_service must be ptc or google, got %q", ErrInvalidConfig, c.AuthService)
	}
	if c.Username == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidConfig)
	}
	if _, err := c.StartLocation(); err != nil {
		return fmt.Errorf("%w: location: %v", ErrInvalidConfig, err)
	}

	for name, band := range map[string]Band{
		"all_pokeball": c.FarmingMode.AllPokeball,
		"all_potion":   c.FarmingMode.AllPotion,
		"all_revive":   c.FarmingMode.AllRevive,
	} {
		if band.Min < 0 || band.Max < band.Min {
			return fmt.Errorf("%w: farming_mode.%s needs 0 <= min <= max", ErrInvalidConfig, name)
		}
	}

	if c.TransferFilter.Logic != "or" && c.TransferFilter.Logic != "and" {
		return fmt.Errorf("%w: transfer_filter.logic must be or or and, got %q", ErrInvalidConfig, c.TransferFilter.Logic)
	}
	for name, limit := range c.ItemLimit {
		if limit < 0 {
			return fmt.Errorf("%w: item_limit %q cannot be negative", ErrInvalidConfig, name)
		}
	}
	if c.DailyLimit.Catch < 0 || c.DailyLimit.Spin < 0 {
		return fmt.Errorf("%w: daily_limit cannot be negative", ErrInvalidConfig)
	}
	if c.CatchTimeEveryRun < 0 {
		return fmt.Errorf("%w: catch_time_every_run cannot be negative", ErrInvalidConfig)
	}
	if !unit(c.CatchRandomizeReticleFactor) || !unit(c.CatchRandomizeSpinFactor) {
		return fmt.Errorf("%w: catch randomize factors must be within [0, 1]", ErrInvalidConfig)
	}
	if c.StepDiameter <= 0 {
		return fmt.Errorf("%w: step_diameter must be positive", ErrInvalidConfig)
	}

	if c.Gateway.URL == "" {
		return fmt.Errorf("%w: gateway.url is required", ErrInvalidConfig)
	}
	if _, err := time.ParseDuration(c.Gateway.Timeout); err != nil {
		return fmt.Errorf("%w: invalid gateway timeout %q: %v", ErrInvalidConfig, c.Gateway.Timeout, err)
	}

	return nil
}

func unit(f float64) bool {
	return f >= 0 && f <= 1
}

// StartLocation parses Location.
func (c *Config) StartLocation() (geo.Point, error) {
	return geo.ParsePoint(c.Location)
}

// GatewayTimeout returns the gateway timeout as a duration.
func (c *Config) GatewayTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Gateway.Timeout)
}

// DatabasePath returns the configured database path or the default under
// the user's home directory.
func (c *Config) DatabasePath() (string, error) {
	if c.Database.Path != "" {
		return c.Database.Path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	dir := filepath.Join(home, ".alphabot")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return filepath.Join(dir, "alphabot.db"), nil
}
