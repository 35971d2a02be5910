// Package metrics exposes the Prometheus instruments for the relief ledger
// node. Registries are lazily initialised singletons so any package can
// record without plumbing.
package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type LedgerMetrics struct {
	spendOutcomes *prometheus.CounterVec
	mintVolume    prometheus.Counter
	distributions prometheus.Counter
	eventsFanout  prometheus.Counter
	subscribers   prometheus.Gauge
}

var (
	ledgerOnce     sync.Once
	ledgerRegistry *LedgerMetrics
)

// Ledger returns the registry tracking fund movement and audit activity.
func Ledger() *LedgerMetrics {
	ledgerOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			spendOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "relief",
				Subsystem: "spending",
				Name:      "attempts_total",
				Help:      "Count of spend attempts segmented by outcome and rejection reason.",
			}, []string{"outcome", "reason"}),
			mintVolume: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "relief",
				Subsystem: "ledger",
				Name:      "mints_total",
				Help:      "Count of settled mint operations.",
			}),
			distributions: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "relief",
				Subsystem: "ledger",
				Name:      "distributions_total",
				Help:      "Count of settled fund distributions to beneficiaries.",
			}),
			eventsFanout: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "relief",
				Subsystem: "events",
				Name:      "published_total",
				Help:      "Count of audit events published to the feed.",
			}),
			subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "relief",
				Subsystem: "events",
				Name:      "subscribers",
				Help:      "Number of live audit stream subscribers.",
			}),
		}
		prometheus.MustRegister(
			ledgerRegistry.spendOutcomes,
			ledgerRegistry.mintVolume,
			ledgerRegistry.distributions,
			ledgerRegistry.eventsFanout,
			ledgerRegistry.subscribers,
		)
	})
	return ledgerRegistry
}

// RecordSpend increments the spend counter. The reason label is empty for
// accepted attempts.
func (m *LedgerMetrics) RecordSpend(outcome, reason string) {
	if m == nil {
		return
	}
	outcome = strings.TrimSpace(outcome)
	if outcome == "" {
		outcome = "unknown"
	}
	m.spendOutcomes.WithLabelValues(outcome, strings.TrimSpace(reason)).Inc()
}

func (m *LedgerMetrics) RecordMint() {
	if m != nil {
		m.mintVolume.Inc()
	}
}

func (m *LedgerMetrics) RecordDistribution() {
	if m != nil {
		m.distributions.Inc()
	}
}

func (m *LedgerMetrics) RecordEventPublished() {
	if m != nil {
		m.eventsFanout.Inc()
	}
}

func (m *LedgerMetrics) SetSubscribers(n int) {
	if m != nil {
		m.subscribers.Set(float64(n))
	}
}

type RPCMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var (
	rpcOnce     sync.Once
	rpcRegistry *RPCMetrics
)

// RPC returns the registry tracking JSON-RPC activity.
func RPC() *RPCMetrics {
	rpcOnce.Do(func() {
		rpcRegistry = &RPCMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "relief",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "relief",
				Subsystem: "rpc",
				Name:      "request_seconds",
				Help:      "JSON-RPC request latency in seconds.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
		}
		prometheus.MustRegister(rpcRegistry.requests, rpcRegistry.latency)
	})
	return rpcRegistry
}

// Observe records one completed request.
func (m *RPCMetrics) Observe(method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	method = strings.TrimSpace(method)
	if method == "" {
		method = "unknown"
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	m.latency.WithLabelValues(method).Observe(elapsed.Seconds())
}
