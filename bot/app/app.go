// Package app wires quotebot configuration, storage, market data and the
// Telegram runtime together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/quotebot/bot/alerts"
	"github.com/m3rciful/quotebot/bot/config"
	"github.com/m3rciful/quotebot/bot/handlers"
	"github.com/m3rciful/quotebot/bot/market"
	"github.com/m3rciful/quotebot/bot/service"
	"github.com/m3rciful/quotebot/bot/storage"
	"github.com/m3rciful/quotebot/core/bootstrap"
	corecmd "github.com/m3rciful/quotebot/core/cmd"
	"github.com/m3rciful/quotebot/core/logger"
	"github.com/m3rciful/quotebot/core/metrics"
	tg "github.com/m3rciful/quotebot/core/telegram"
	"github.com/m3rciful/quotebot/core/telegram/router"
	"github.com/m3rciful/quotebot/core/telegram/sender"
)

// Store is the persistence the app runs on.
type Store struct {
	Users     storage.Users
	Watchlist storage.Watchlist
	Alerts    storage.Alerts
	// Ping reports database health; nil means always healthy.
	Ping func(ctx context.Context) error
}

// App owns every long-lived component of the bot.
type App struct {
	cfg        *config.Config
	infra      *bootstrap.Result
	store      Store
	feeder     market.Feeder
	cache      *market.CachedFeeder
	registry   *tg.Registry
	dispatcher *sender.Dispatcher
	handlers   *handlers.Handlers
	metricsSrv *metrics.Server
	worker     *alerts.Worker

	stopMetrics sync.Once
}

// Bootstrap adapts New to the cmd runner.
func Bootstrap(_ context.Context, carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*config.Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	return New(cfg)
}

// LoadConfig adapts config.Load to the cmd runner.
func LoadConfig(path string) (corecmd.ConfigCarrier, error) {
	return config.Load(path)
}

// New initializes logging, connects to Postgres, applies migrations and
// builds the market stack.
func New(cfg *config.Config) (*App, error) {
	infra, err := bootstrap.Run(bootstrap.Options{
		Config:   &cfg.Config,
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}
	pg := storage.NewPostgres(infra.DB)
	store := Store{
		Users:     pg.Users(),
		Watchlist: pg.Watchlist(),
		Alerts:    pg.Alerts(),
		Ping:      pg.Ping,
	}

	binanceFeed := market.NewBinanceFeeder(market.BinanceOptions{
		BaseURL: cfg.Market.BinanceBaseURL,
		Timeout: cfg.Market.Timeout,
	})
	yahooFeed := market.NewYahooFeeder(market.YahooOptions{
		BaseURL: cfg.Market.YahooBaseURL,
		Timeout: cfg.Market.Timeout,
	})
	routed, err := market.NewRouterFeeder(cfg.Market.Mode, binanceFeed, yahooFeed)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}

	a, err := newApp(cfg, store, routed)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}
	a.infra = infra
	return a, nil
}

// newApp assembles services and handlers over store and feeder.
func newApp(cfg *config.Config, store Store, feeder market.Feeder) (*App, error) {
	cache, err := market.NewCachedFeeder(feeder, market.CacheOptions{
		QuoteTTL:  cfg.Cache.QuoteTTL,
		CandleTTL: cfg.Cache.CandleTTL,
	})
	if err != nil {
		return nil, err
	}

	quotes := service.NewQuotes(cache)
	dispatcher := sender.NewDispatcher(sender.Options{MaxRetries: 3})
	h := handlers.New(handlers.Deps{
		Users:          service.NewUsers(store.Users, cfg.Market.DefaultInterval),
		Quotes:         quotes,
		Watchlist:      service.NewWatchlist(store.Watchlist, quotes, cfg.Bot.WatchlistLimit),
		Alerts:         service.NewAlerts(store.Alerts, quotes, cfg.Bot.AlertsLimit),
		DispatchErrors: dispatcher.ErrorCount,
	})
	reg := tg.NewRegistry()
	if err := h.Register(reg); err != nil {
		dispatcher.Close()
		_ = cache.Close()
		return nil, fmt.Errorf("app: register handlers: %w", err)
	}

	var checks []metrics.HealthCheck
	if store.Ping != nil {
		checks = append(checks, metrics.HealthCheck{Name: "db", Check: store.Ping})
	}

	return &App{
		cfg:        cfg,
		store:      store,
		feeder:     cache,
		cache:      cache,
		registry:   reg,
		dispatcher: dispatcher,
		handlers:   h,
		metricsSrv: metrics.NewServer(cfg.Metrics, checks...),
	}, nil
}

// TelegramRunOptions describes routes, middlewares and lifecycle hooks.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	if a == nil || a.cfg == nil {
		return tg.RunOptions{}, errors.New("app: not initialized")
	}
	core := a.cfg.CoreConfig()
	return tg.RunOptions{
		Config:      core,
		Registry:    a.registry,
		Dispatcher:  a.dispatcher,
		Middlewares: tg.DefaultMiddlewares(core, a.handlers.RateLimited),
		RoutesFunc:  a.routes,
		AllowedUpdates: []string{
			"message", "callback_query", "inline_query",
		},
		OnStart: a.onStart,
		OnStop:  a.onStop,
	}, nil
}

func (a *App) routes(*tele.Bot) []tg.Route {
	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{
		AdminID:       a.cfg.Telegram.AdminID,
		OnAdminReject: a.handlers.AdminOnly,
	})
	routes = append(routes, router.CallbackRoute(a.registry))
	routes = append(routes, router.TextRoutes(a.handlers.FSM, a.registry, router.TextOptions{
		UnknownText:   a.handlers.UnknownText(),
		AdminID:       a.cfg.Telegram.AdminID,
		OnAdminReject: a.handlers.AdminOnly,
	})...)
	return append(routes, router.InlineRoute(a.handlers.Inline))
}

func (a *App) onStart(ctx context.Context, rt tg.Runtime) error {
	if err := a.metricsSrv.Start(); err != nil {
		return fmt.Errorf("app: metrics server: %w", err)
	}
	if a.cfg.Alerts.Disabled {
		logger.ALR.Info("alert worker disabled", slog.String("event", "alerts.disabled"))
		return nil
	}
	w, err := alerts.NewWorker(alerts.Options{
		Repo:     a.store.Alerts,
		Feeder:   a.feeder,
		Notifier: alerts.NewTelegramNotifier(rt.Dispatcher, rt.Bot),
		Interval: a.cfg.Alerts.CheckInterval,
	})
	if err != nil {
		return err
	}
	a.worker = w
	w.Start(context.WithoutCancel(ctx))
	return nil
}

func (a *App) onStop(ctx context.Context, _ tg.Runtime) error {
	if a.worker != nil {
		a.worker.Stop()
	}
	a.shutdownMetrics(ctx)
	return nil
}

func (a *App) shutdownMetrics(ctx context.Context) {
	a.stopMetrics.Do(func() {
		if err := a.metricsSrv.Shutdown(ctx); err != nil {
			logger.MET.Warn("metrics shutdown failed",
				slog.String("event", "metrics.stop"),
				logger.Err(err),
			)
		}
	})
}

// Close releases the cache, dispatcher and database.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	if a.worker != nil {
		a.worker.Stop()
	}
	a.dispatcher.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.shutdownMetrics(shutdownCtx)
	var errs []error
	if err := a.cache.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.infra.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
