// Package config extends the core configuration with quotebot settings.
package config

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/quotebot/core/config"
	coredatabase "github.com/m3rciful/quotebot/core/database"
	"github.com/m3rciful/quotebot/bot/market"
)

// MarketConfig selects data sources.
type MarketConfig struct {
	// Mode is auto, binance or yahoo.
	Mode            string        `yaml:"mode" envconfig:"MARKET_MODE"`
	BinanceBaseURL  string        `yaml:"binance_base_url" envconfig:"BINANCE_BASE_URL"`
	YahooBaseURL    string        `yaml:"yahoo_base_url" envconfig:"YAHOO_BASE_URL"`
	Timeout         time.Duration `yaml:"timeout" envconfig:"MARKET_TIMEOUT"`
	DefaultInterval string        `yaml:"default_interval" envconfig:"MARKET_DEFAULT_INTERVAL"`
}

// CacheConfig controls the feeder cache. Zero TTLs disable caching of that kind.
type CacheConfig struct {
	QuoteTTL  time.Duration `yaml:"quote_ttl" envconfig:"CACHE_QUOTE_TTL"`
	CandleTTL time.Duration `yaml:"candle_ttl" envconfig:"CACHE_CANDLE_TTL"`
}

// AlertsConfig controls the alert worker.
type AlertsConfig struct {
	CheckInterval time.Duration `yaml:"check_interval" envconfig:"ALERTS_CHECK_INTERVAL"`
	Disabled      bool          `yaml:"disabled" envconfig:"ALERTS_DISABLED"`
}

// BotConfig holds per-user limits.
type BotConfig struct {
	WatchlistLimit int `yaml:"watchlist_limit" envconfig:"WATCHLIST_LIMIT"`
	AlertsLimit    int `yaml:"alerts_limit" envconfig:"ALERTS_LIMIT"`
}

// Config is the full quotebot configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Market   MarketConfig        `yaml:"market"`
	Cache    CacheConfig         `yaml:"cache"`
	Alerts   AlertsConfig        `yaml:"alerts"`
	Bot      BotConfig           `yaml:"bot"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads, overlays and validates the configuration at path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates bot settings and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	cfg.Database = cfg.Database.WithDefaults()

	m := &cfg.Market
	m.Mode = strings.ToLower(strings.TrimSpace(m.Mode))
	switch m.Mode {
	case "":
		m.Mode = market.ModeAuto
	case market.ModeAuto, market.ModeBinance, market.ModeYahoo:
	default:
		return fmt.Errorf("invalid market.mode %q; allowed: auto, binance, yahoo", cfg.Market.Mode)
	}
	if m.Timeout <= 0 {
		m.Timeout = 10 * time.Second
	}
	if m.YahooBaseURL == "" {
		m.YahooBaseURL = market.DefaultYahooURL
	}
	if m.DefaultInterval == "" {
		m.DefaultInterval = "1h"
	}
	iv, err := market.NormalizeInterval(m.DefaultInterval)
	if err != nil {
		return fmt.Errorf("market.default_interval: %w", err)
	}
	m.DefaultInterval = iv

	if cfg.Cache.QuoteTTL < 0 || cfg.Cache.CandleTTL < 0 {
		return fmt.Errorf("cache ttl must be >= 0")
	}

	if cfg.Alerts.CheckInterval == 0 {
		cfg.Alerts.CheckInterval = 30 * time.Second
	}
	if cfg.Alerts.CheckInterval < time.Second {
		return fmt.Errorf("alerts.check_interval must be >= 1s, got %s", cfg.Alerts.CheckInterval)
	}

	if cfg.Bot.WatchlistLimit <= 0 {
		cfg.Bot.WatchlistLimit = 20
	}
	if cfg.Bot.AlertsLimit <= 0 {
		cfg.Bot.AlertsLimit = 10
	}
	return nil
}
