// Package alerts evaluates active price alerts on a schedule.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"

	"github.com/m3rciful/quotebot/bot/market"
	"github.com/m3rciful/quotebot/bot/storage"
	"github.com/m3rciful/quotebot/core/logger"
	"github.com/m3rciful/quotebot/core/metrics"
)

var (
	checkedTotal = metrics.Factory().NewCounter(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Name:      "alerts_checked_total",
		Help:      "Active alerts evaluated.",
	})
	firedTotal = metrics.Factory().NewCounter(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Name:      "alerts_fired_total",
		Help:      "Alerts whose condition was met.",
	})
	checkSeconds = metrics.Factory().NewHistogram(prometheus.HistogramOpts{
		Namespace: metrics.Namespace,
		Name:      "alert_check_seconds",
		Help:      "Duration of one alert pass.",
		Buckets:   prometheus.DefBuckets,
	})
)

// Notifier delivers a fired alert to its owner.
type Notifier interface {
	Notify(ctx context.Context, a storage.Alert, price float64) error
}

// Options configures a Worker.
type Options struct {
	Repo     storage.Alerts
	Feeder   market.Feeder
	Notifier Notifier
	Interval time.Duration
	Now      func() time.Time
}

// Worker periodically fires alerts whose condition holds.
type Worker struct {
	repo     storage.Alerts
	feeder   market.Feeder
	notifier Notifier
	interval time.Duration
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWorker validates opts and returns a stopped worker.
func NewWorker(opts Options) (*Worker, error) {
	if opts.Repo == nil || opts.Feeder == nil || opts.Notifier == nil {
		return nil, errors.New("alerts: repo, feeder and notifier are required")
	}
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Worker{
		repo:     opts.Repo,
		feeder:   opts.Feeder,
		notifier: opts.Notifier,
		interval: opts.Interval,
		now:      opts.Now,
	}, nil
}

// Start runs the loop in a goroutine until Stop or ctx cancellation.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go func() {
		defer close(w.done)
		w.Run(ctx)
	}()
}

// Stop cancels the loop and waits for the current pass to finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Run checks alerts every interval until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	ctx = logger.WithJob(ctx, "alerts")
	logger.LogEvent(ctx, logger.ALR, slog.LevelInfo, "alerts.start",
		slog.Duration("interval", w.interval),
	)
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		if _, err := w.Check(ctx); err != nil && ctx.Err() == nil {
			logger.LogEvent(ctx, logger.ALR, slog.LevelError, "alerts.check",
				slog.String("status", "fail"),
				logger.Err(err),
			)
		}
		select {
		case <-ctx.Done():
			logger.LogEvent(context.WithoutCancel(ctx), logger.ALR, slog.LevelInfo, "alerts.stop")
			return
		case <-t.C:
		}
	}
}

// Check runs one pass and returns the number of alerts fired.
func (w *Worker) Check(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() { checkSeconds.Observe(time.Since(start).Seconds()) }()

	active, err := w.repo.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active alerts: %w", err)
	}
	if len(active) == 0 {
		return 0, nil
	}
	checkedTotal.Add(float64(len(active)))

	fired := 0
	for symbol, group := range lo.GroupBy(active, func(a storage.Alert) string { return a.Symbol }) {
		if ctx.Err() != nil {
			return fired, ctx.Err()
		}
		q, err := w.feeder.Quote(ctx, symbol)
		if err != nil {
			logger.LogEvent(ctx, logger.ALR, slog.LevelWarn, "alerts.quote",
				slog.String("symbol", symbol),
				slog.Int("alerts", len(group)),
				slog.String("status", "skip"),
				logger.Err(err),
			)
			continue
		}
		for _, a := range group {
			if !a.Condition.Met(q.Price, a.Target) {
				continue
			}
			if w.fire(ctx, a, q.Price) {
				fired++
			}
		}
	}

	logger.LogEvent(ctx, logger.ALR, slog.LevelDebug, "alerts.pass",
		slog.Int("checked", len(active)),
		slog.Int("fired", fired),
		slog.Duration("took", logger.Took(start)),
	)
	return fired, nil
}

func (w *Worker) fire(ctx context.Context, a storage.Alert, price float64) bool {
	ok, err := w.repo.MarkTriggered(ctx, a.ID, price, w.now())
	if err != nil {
		logger.LogEvent(ctx, logger.ALR, slog.LevelError, "alerts.mark",
			slog.Int64("alert_id", a.ID),
			slog.String("status", "fail"),
			logger.Err(err),
		)
		return false
	}
	if !ok {
		// Deleted or fired elsewhere since ListActive.
		return false
	}
	firedTotal.Inc()
	err = w.notifier.Notify(ctx, a, price)
	logger.LogEvent(ctx, logger.ALR, slog.LevelInfo, "alerts.fire",
		slog.Int64("alert_id", a.ID),
		slog.String("symbol", a.Symbol),
		slog.String("condition", string(a.Condition)),
		slog.Float64("target", a.Target),
		slog.Float64("price", price),
		slog.String("outcome", "fired"),
		slog.String("status", logger.Status(err)),
		logger.Err(err),
	)
	return true
}
