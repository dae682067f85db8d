package market

import (
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/m3rciful/quotebot/core/logger"
	"github.com/m3rciful/quotebot/core/metrics"
)

var (
	requestsTotal = metrics.Factory().NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Name:      "market_requests_total",
		Help:      "Market data provider requests.",
	}, []string{"source", "op", "status"})

	requestSeconds = metrics.Factory().NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metrics.Namespace,
		Name:      "market_request_seconds",
		Help:      "Market data provider latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"source", "op"})

	cacheTotal = metrics.Factory().NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Name:      "market_cache_total",
		Help:      "Market cache lookups by result.",
	}, []string{"result"})
)

func requestStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnknownSymbol), errors.Is(err, ErrInvalidSymbol):
		return "not_found"
	case errors.Is(err, ErrNoData):
		return "empty"
	default:
		return "fail"
	}
}

// observe records one provider call.
func observe(source, op, symbol string, start time.Time, err error) {
	took := time.Since(start)
	status := requestStatus(err)
	requestsTotal.WithLabelValues(source, op, status).Inc()
	requestSeconds.WithLabelValues(source, op).Observe(took.Seconds())

	attrs := []any{
		slog.String("event", "market."+op),
		slog.String("source", source),
		slog.String("symbol", symbol),
		slog.Duration("duration", took),
	}
	if err != nil && status == "fail" {
		logger.MKT.Warn("provider request failed", append(attrs, slog.String("status", "fail"), logger.Err(err))...)
		return
	}
	if logger.ShouldSampleDebug() {
		logger.MKT.Debug("provider request", append(attrs, slog.String("status", "ok"), slog.String("result", status))...)
	}
}
