// Package metrics owns the Prometheus registry shared by the bot and its
// exposition server. Components register collectors through Factory so tests
// can inspect values with prometheus/testutil.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "quotebot"

var reg = prometheus.NewRegistry()

func init() {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Registry returns the process-wide registry.
func Registry() *prometheus.Registry {
	return reg
}

// Factory returns a promauto factory bound to the process-wide registry.
func Factory() promauto.Factory {
	return promauto.With(reg)
}

// Telegram update and handler metrics.
var (
	UpdatesTotal = Factory().NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "tg",
		Name:      "updates_total",
		Help:      "Telegram updates received by kind.",
	}, []string{"kind"})

	HandledTotal = Factory().NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "tg",
		Name:      "handled_total",
		Help:      "Handler executions by handler and status.",
	}, []string{"handler", "status"})

	HandlerSeconds = Factory().NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: "tg",
		Name:      "handler_seconds",
		Help:      "Handler latency.",
		Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"handler"})

	RateLimitedTotal = Factory().NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "tg",
		Name:      "rate_limited_total",
		Help:      "Updates dropped by the per-user rate limiter.",
	})

	SendsTotal = Factory().NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "tg",
		Name:      "sends_total",
		Help:      "Outbound Telegram calls executed by the async dispatcher.",
	}, []string{"action", "status"})

	SendQueueDepth = Factory().NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: "tg",
		Name:      "send_queue_depth",
		Help:      "Jobs waiting in the outbound dispatcher queue.",
	})
)
