// Package metrics exposes Prometheus collectors for flow runs, nodes, the
// worker pool and outbound searches.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/wayfarer/internal/workerpool"
	"github.com/aretw0/wayfarer/pkg/domain"
)

const namespace = "wayfarer"

// Metrics implements runner.Observer and provides flow lifecycle hooks.
type Metrics struct {
	runsActive    prometheus.Gauge
	runsTotal     *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	nodeVisits    *prometheus.CounterVec
	nodeRetries   *prometheus.CounterVec
	nodeDuration  *prometheus.HistogramVec
	searchQueries *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_active",
			Help:      "Flow runs currently executing.",
		}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished flow runs by resulting session status.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a flow run.",
			Buckets:   []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"status"}),
		nodeVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_visits_total",
			Help:      "Total number of node visits.",
		}, []string{"node"}),
		nodeRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_retries_total",
			Help:      "Node attempts that failed and were retried.",
		}, []string{"node"}),
		nodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "node_duration_seconds",
			Help:      "Duration of node executions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"node", "action"}),
		searchQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_queries_total",
			Help:      "Web search queries by whether they returned results.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		m.runsActive,
		m.runsTotal,
		m.runDuration,
		m.nodeVisits,
		m.nodeRetries,
		m.nodeDuration,
		m.searchQueries,
	)
	return m
}

func (m *Metrics) RunStarted() {
	m.runsActive.Inc()
}

func (m *Metrics) RunFinished(status domain.Status, elapsed time.Duration) {
	m.runsActive.Dec()
	m.runsTotal.WithLabelValues(string(status)).Inc()
	m.runDuration.WithLabelValues(string(status)).Observe(elapsed.Seconds())
}

// Hooks returns lifecycle callbacks that record node visits, retries and timings.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.nodeVisits.WithLabelValues(e.Node).Inc()
		},
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) {
			m.nodeDuration.WithLabelValues(e.Node, e.Action).Observe(e.Duration.Seconds())
		},
		OnNodeRetry: func(_ context.Context, e *domain.NodeEvent) {
			m.nodeRetries.WithLabelValues(e.Node).Inc()
		},
	}
}

// ObserveSearch matches the serper observer signature.
func (m *Metrics) ObserveSearch(_ string, results int) {
	outcome := "hit"
	if results == 0 {
		outcome = "empty"
	}
	m.searchQueries.WithLabelValues(outcome).Inc()
}

// RegisterPool exports pool load as gauges sampled at scrape time.
func RegisterPool(reg prometheus.Registerer, pool *workerpool.Pool) {
	gauge := func(name, help string, fn func(workerpool.Stats) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      name,
			Help:      help,
		}, func() float64 { return fn(pool.Stats()) })
	}
	counter := func(name, help string, fn func(workerpool.Stats) float64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      name,
			Help:      help,
		}, func() float64 { return fn(pool.Stats()) })
	}
	reg.MustRegister(
		gauge("workers", "Configured workers.", func(s workerpool.Stats) float64 { return float64(s.Workers) }),
		gauge("queued", "Jobs waiting for a worker.", func(s workerpool.Stats) float64 { return float64(s.Queued) }),
		gauge("active", "Jobs currently running.", func(s workerpool.Stats) float64 { return float64(s.Active) }),
		counter("completed_total", "Jobs finished.", func(s workerpool.Stats) float64 { return float64(s.Completed) }),
		counter("panics_total", "Jobs that panicked.", func(s workerpool.Stats) float64 { return float64(s.Panics) }),
	)
}

// RegisterSessions exports the number of live sessions.
func RegisterSessions(reg prometheus.Registerer, count func() int) {
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions",
		Help:      "Sessions held in memory.",
	}, func() float64 { return float64(count()) }))
}
