// Package observability holds the Prometheus instrumentation for the
// surveillance service.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for sync runs.
type Metrics struct {
	SyncRuns     *prometheus.CounterVec // label: status={success,partial,failed}
	RowsUpserted *prometheus.CounterVec // label: table={stations,wastewater,clinical,rougeole}
	SyncDuration prometheus.Histogram
	FetchErrors  *prometheus.CounterVec // label: source={sumeau,clinical,rougeole}
}

// NewMetrics creates and registers all sync metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.SyncRuns,
		m.RowsUpserted,
		m.SyncDuration,
		m.FetchErrors,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics across tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SyncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "epiveille",
			Name:      "sync_runs_total",
			Help:      "Completed sync runs by terminal status.",
		}, []string{"status"}),
		RowsUpserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "epiveille",
			Name:      "rows_upserted_total",
			Help:      "Rows written per target table across sync runs.",
		}, []string{"table"}),
		SyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "epiveille",
			Name:      "sync_duration_seconds",
			Help:      "Duration of a complete sync run.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "epiveille",
			Name:      "fetch_errors_total",
			Help:      "Upstream fetch failures by source.",
		}, []string{"source"}),
	}
}

// ObserveRun records the outcome of one sync run.
func (m *Metrics) ObserveRun(status string, durationSeconds float64, stations, wastewater, clinical, rougeole int) {
	if m == nil {
		return
	}
	m.SyncRuns.WithLabelValues(status).Inc()
	m.SyncDuration.Observe(durationSeconds)
	m.RowsUpserted.WithLabelValues("stations").Add(float64(stations))
	m.RowsUpserted.WithLabelValues("wastewater").Add(float64(wastewater))
	m.RowsUpserted.WithLabelValues("clinical").Add(float64(clinical))
	m.RowsUpserted.WithLabelValues("rougeole").Add(float64(rougeole))
}
