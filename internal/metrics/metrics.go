package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run outcomes used as the status label of RunsTotal.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Metrics holds the Prometheus collectors for backtest runs.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	RunsTotal         *prometheus.CounterVec
	PeriodErrorsTotal prometheus.Counter
	RunDuration       prometheus.Histogram
	BatchInstruments  prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them with reg.
// Pass nil to use a fresh private registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backtest_runs_total",
			Help: "Single-instrument backtest runs by outcome",
		}, []string{"status"}),
		PeriodErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backtest_period_errors_total",
			Help: "Periods skipped because they failed to evaluate",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "backtest_run_duration_seconds",
			Help:    "Wall time of a single-instrument run",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		BatchInstruments: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "backtest_batch_instruments",
			Help: "Instruments in the most recent batch",
		}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.RunsTotal,
		m.PeriodErrorsTotal,
		m.RunDuration,
		m.BatchInstruments,
	)
	return m
}

func (m *Metrics) ObserveRun(ok bool, seconds float64) {
	if m == nil {
		return
	}
	status := StatusOK
	if !ok {
		status = StatusFailed
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(seconds)
}

func (m *Metrics) PeriodError() {
	if m == nil {
		return
	}
	m.PeriodErrorsTotal.Inc()
}

func (m *Metrics) SetBatchSize(n int) {
	if m == nil {
		return
	}
	m.BatchInstruments.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
