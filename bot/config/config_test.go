package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
database:
  host: localhost
  name: quotebot
market:
  default_interval: 4H
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "longpoll", cfg.Telegram.RunMode)
	assert.Equal(t, "auto", cfg.Market.Mode)
	assert.Equal(t, "4h", cfg.Market.DefaultInterval)
	assert.Equal(t, 10*time.Second, cfg.Market.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Alerts.CheckInterval)
	assert.Equal(t, 20, cfg.Bot.WatchlistLimit)
	assert.Equal(t, 10, cfg.Bot.AlertsLimit)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Same(t, &cfg.Config, cfg.CoreConfig())
}

func TestLoadEnvOverlay(t *testing.T) {
	t.Setenv("MARKET_MODE", "yahoo")
	t.Setenv("CACHE_QUOTE_TTL", "15s")
	path := writeConfig(t, "telegram:\n  token: \"t\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "yahoo", cfg.Market.Mode)
	assert.Equal(t, 15*time.Second, cfg.Cache.QuoteTTL)
}

func TestNormalizeRejectsInvalid(t *testing.T) {
	cases := map[string]func(*Config){
		"mode":     func(c *Config) { c.Market.Mode = "kraken" },
		"interval": func(c *Config) { c.Market.DefaultInterval = "3m" },
		"ttl":      func(c *Config) { c.Cache.CandleTTL = -time.Second },
		"check":    func(c *Config) { c.Alerts.CheckInterval = 10 * time.Millisecond },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			var cfg Config
			mutate(&cfg)
			assert.Error(t, Normalize(&cfg))
		})
	}
	assert.Error(t, Normalize(nil))
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	_, err := Load(writeConfig(t, "market:\n  mode: auto\n"))
	assert.Error(t, err)
}
