package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/quotebot/bot/config"
	"github.com/m3rciful/quotebot/bot/market"
	"github.com/m3rciful/quotebot/bot/storage"
	coreconfig "github.com/m3rciful/quotebot/core/config"
	tg "github.com/m3rciful/quotebot/core/telegram"
	"github.com/m3rciful/quotebot/core/telegram/sender"
)

type nopFeeder struct{}

func (nopFeeder) Name() string { return "nop" }

func (nopFeeder) Quote(context.Context, string) (market.Quote, error) {
	return market.Quote{}, market.ErrNoData
}

func (nopFeeder) Candles(context.Context, string, string, int) ([]market.Candle, error) {
	return nil, market.ErrNoData
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Telegram.Token = "1:test"
	cfg.Telegram.AdminID = 1
	cfg.RateLimit.IntervalMS = 500
	cfg.Metrics.Listen = "127.0.0.1:0"
	require.NoError(t, config.Normalize(cfg))
	cfg.Alerts.CheckInterval = time.Hour
	return cfg
}

func memoryApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	mem := storage.NewMemory()
	a, err := newApp(cfg, Store{Users: mem.Users(), Watchlist: mem.Watchlist(), Alerts: mem.Alerts()}, nopFeeder{})
	require.NoError(t, err)
	return a
}

func TestRunOptionsRoutes(t *testing.T) {
	a := memoryApp(t, testConfig(t))
	defer func() { require.NoError(t, a.Close()) }()

	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)
	assert.Same(t, a.dispatcher, opts.Dispatcher)

	names := make([]string, 0, len(opts.Middlewares))
	for _, mw := range opts.Middlewares {
		names = append(names, mw.Name)
	}
	assert.Equal(t, []string{"recover", "logger", "rate_limit", "metrics"}, names)

	endpoints := map[any]bool{}
	for _, r := range opts.RoutesFunc(nil) {
		endpoints[r.Endpoint] = true
	}
	for _, ep := range []any{"/price", "/p", "/ta", "/alert", "/stats", "/wl", tele.OnCallback, tele.OnText, tele.OnQuery} {
		assert.True(t, endpoints[ep], "missing route %v", ep)
	}
}

func TestLifecycle(t *testing.T) {
	a := memoryApp(t, testConfig(t))
	d := sender.NewDispatcher(sender.Options{})
	defer d.Close()

	rt := tg.Runtime{Dispatcher: d, Registry: a.registry}
	require.NoError(t, a.onStart(context.Background(), rt))
	assert.NotEmpty(t, a.metricsSrv.Addr())
	require.NotNil(t, a.worker)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, a.onStop(ctx, rt))
	require.NoError(t, a.Close())
}

func TestAlertsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Alerts.Disabled = true
	cfg.Metrics.Listen = ""
	a := memoryApp(t, cfg)
	require.NoError(t, a.onStart(context.Background(), tg.Runtime{}))
	assert.Nil(t, a.worker)
	assert.Nil(t, a.metricsSrv)
	require.NoError(t, a.Close())
}

func TestBootstrapRejectsForeignConfig(t *testing.T) {
	_, err := Bootstrap(context.Background(), foreignCarrier{})
	assert.Error(t, err)
}

type foreignCarrier struct{}

func (foreignCarrier) CoreConfig() *coreconfig.Config { return &coreconfig.Config{} }
