package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

const sample = `
auth_service = "google"
username = "ash"
password = "pikachu"
location = "25.0339,121.5645"
catch_time_every_run = 3
catch_randomize_reticle_factor = 0.2
catch_randomize_spin_factor = 0.9
step_diameter = 12.5
rare_first = true
feed_url = "http://feed.local"

[farming_mode.all_pokeball]
min = 20
max = 80

[transfer_filter]
logic = "and"
below_cp = 800
below_iv = 0.9

[item_limit]
"Potion" = 10
"Razz Berry" = 60

[daily_limit]
catch = 500
spin = 900

[gateway]
url = "http://localhost:9000"
timeout = "5s"
`

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, t.TempDir(), sample)

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "google", config.AuthService)
	assert.Equal(t, "ash", config.Username)
	assert.Equal(t, Band{Min: 20, Max: 80}, config.FarmingMode.AllPokeball)
	assert.Equal(t, Band{Min: 10, Max: 50}, config.FarmingMode.AllPotion, "unset bands keep defaults")
	assert.Equal(t, TransferFilterConfig{Logic: "and", BelowCP: 800, BelowIV: 0.9}, config.TransferFilter)
	if diff := cmp.Diff(map[string]int{"Potion": 10, "Razz Berry": 60}, config.ItemLimit); diff != "" {
		t.Errorf("item_limit mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, DailyLimitConfig{Catch: 500, Spin: 900}, config.DailyLimit)
	assert.Equal(t, 3, config.CatchTimeEveryRun)
	assert.Equal(t, 12.5, config.StepDiameter)
	assert.True(t, config.RareFirst)

	p, err := config.StartLocation()
	require.NoError(t, err)
	assert.InDelta(t, 25.0339, p.Lat, 1e-9)

	timeout, err := config.GatewayTimeout()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, timeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvUsername, "misty")
	t.Setenv(EnvPassword, "staryu")
	t.Setenv(EnvAuthService, "ptc")

	config, err := Load(writeConfig(t, t.TempDir(), sample))
	require.NoError(t, err)

	assert.Equal(t, "misty", config.Username)
	assert.Equal(t, "staryu", config.Password)
	assert.Equal(t, "ptc", config.AuthService)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, LoadEnvFile(filepath.Join(dir, "missing.env")))

	t.Setenv(EnvPassword, "")
	require.NoError(t, os.Unsetenv(EnvPassword))
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte(EnvPassword+"=fromfile\n"), 0o600))

	require.NoError(t, LoadEnvFile(envPath))
	assert.Equal(t, "fromfile", os.Getenv(EnvPassword))
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, t.TempDir(), "username = [broken"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidConfig))
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := DefaultConfig()
		c.Username = "ash"
		c.Location = "25,121"
		return c
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"auth service", func(c *Config) { c.AuthService = "facebook" }},
		{"username", func(c *Config) { c.Username = "" }},
		{"location", func(c *Config) { c.Location = "north" }},
		{"band order", func(c *Config) { c.FarmingMode.AllRevive = Band{Min: 10, Max: 5} }},
		{"logic", func(c *Config) { c.TransferFilter.Logic = "xor" }},
		{"item limit", func(c *Config) { c.ItemLimit["Potion"] = -1 }},
		{"daily limit", func(c *Config) { c.DailyLimit.Spin = -1 }},
		{"catch cap", func(c *Config) { c.CatchTimeEveryRun = -1 }},
		{"reticle factor", func(c *Config) { c.CatchRandomizeReticleFactor = 1.5 }},
		{"spin factor", func(c *Config) { c.CatchRandomizeSpinFactor = -0.1 }},
		{"step diameter", func(c *Config) { c.StepDiameter = 0 }},
		{"gateway url", func(c *Config) { c.Gateway.URL = "" }},
		{"gateway timeout", func(c *Config) { c.Gateway.Timeout = "soon" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestDiscover(t *testing.T) {
	got, err := Discover("/etc/alphabot.toml")
	require.NoError(t, err)
	assert.Equal(t, "/etc/alphabot.toml", got)

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)

	_, err = Discover("")
	assert.ErrorIs(t, err, ErrNotFound)

	home := filepath.Join(dir, ".alphabot")
	require.NoError(t, os.MkdirAll(home, 0o755))
	writeConfig(t, home, sample)
	got, err = Discover("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "config.toml"), got)

	local := filepath.Join(dir, "configs")
	require.NoError(t, os.MkdirAll(local, 0o755))
	writeConfig(t, local, sample)
	got, err = Discover("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("configs", "config.toml"), got)
}

func TestDatabasePath(t *testing.T) {
	c := DefaultConfig()
	c.Database.Path = "/tmp/x.db"
	got, err := c.DatabasePath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", got)

	t.Setenv("HOME", t.TempDir())
	c.Database.Path = ""
	got, err = c.DatabasePath()
	require.NoError(t, err)
	assert.Equal(t, "alphabot.db", filepath.Base(got))
}

func TestWatcher_Reloads(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := writeConfig(t, dir, sample)
	initial, err := Load(path)
	require.NoError(t, err)

	w := NewWatcher(path, initial, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Let the watcher register before editing.
	time.Sleep(100 * time.Millisecond)

	broken := strings.Replace(sample, "step_diameter = 12.5", "step_diameter = -1", 1)
	require.NoError(t, os.WriteFile(path, []byte(broken), 0o644))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 12.5, w.Current().StepDiameter, "invalid edit keeps previous config")

	updated := []byte(strings.Replace(sample, "step_diameter = 12.5", "step_diameter = 20", 1))
	require.NoError(t, os.WriteFile(path, updated, 0o644))

	require.Eventually(t, func() bool {
		return w.Current().StepDiameter == 20
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
