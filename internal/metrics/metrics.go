// Package metrics owns the Prometheus collectors for the resolution pipeline.
// All recording methods are nil-safe so components can run without metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "buddy"

// Metrics bundles a private registry with the service collectors.
type Metrics struct {
	registry      *prometheus.Registry
	rankTotal     *prometheus.CounterVec
	rankCache     *prometheus.CounterVec
	resolveTotal  *prometheus.CounterVec
	siteHints     *prometheus.CounterVec
	oracleLatency prometheus.Histogram
}

// New registers every collector on a fresh registry, along with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rankTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rank_total",
			Help:      "Ranking verdicts by provenance.",
		}, []string{"provenance"}),
		rankCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rank_cache_total",
			Help:      "Ranking cache lookups by result (hit or miss).",
		}, []string{"result"}),
		resolveTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolve_total",
			Help:      "Reconciliation outcomes.",
		}, []string{"outcome"}),
		siteHints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sitehints_total",
			Help:      "Site hint responses by source.",
		}, []string{"source"}),
		oracleLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oracle_latency_seconds",
			Help:      "Wall time spent waiting on the remote ranker.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16},
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.rankTotal, m.rankCache, m.resolveTotal, m.siteHints, m.oracleLatency,
	)
	return m
}

// Registry exposes the underlying registry for tests and custom handlers.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RankVerdict(provenance string) {
	if m == nil {
		return
	}
	m.rankTotal.WithLabelValues(provenance).Inc()
}

func (m *Metrics) RankCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.rankCache.WithLabelValues(result).Inc()
}

func (m *Metrics) Resolve(outcome string) {
	if m == nil {
		return
	}
	m.resolveTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SiteHints(source string) {
	if m == nil {
		return
	}
	m.siteHints.WithLabelValues(source).Inc()
}

func (m *Metrics) OracleLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.oracleLatency.Observe(d.Seconds())
}
