// Package metrics exposes scan cycle health as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cycle status label values.
const (
	StatusOK     = "ok"
	StatusEmpty  = "empty"
	StatusQuiet  = "quiet"
	StatusFailed = "failed"
)

// Registry holds all SmartPick metrics on its own Prometheus registry.
type Registry struct {
	reg *prometheus.Registry

	CyclesTotal         *prometheus.CounterVec
	CycleDuration       prometheus.Histogram
	InstrumentsScanned  prometheus.Counter
	QuoteFailures       prometheus.Counter
	SignalsTotal        *prometheus.CounterVec
	Candidates          prometheus.Gauge
	EnrichmentFallbacks *prometheus.CounterVec
	LastCycleTimestamp  prometheus.Gauge
}

// NewRegistry creates and registers every metric.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		CyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartpick_cycles_total",
				Help: "Scan cycles by outcome",
			},
			[]string{"status"},
		),
		CycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "smartpick_cycle_duration_seconds",
				Help:    "Wall time of a full scan cycle",
				Buckets: []float64{10, 30, 60, 120, 300, 600, 1200, 1800, 3600},
			},
		),
		InstrumentsScanned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "smartpick_instruments_scanned_total",
				Help: "Instruments processed across all cycles",
			},
		),
		QuoteFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "smartpick_quote_failures_total",
				Help: "Instruments skipped because their quotes could not be fetched",
			},
		),
		SignalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartpick_signals_total",
				Help: "Detected signals by rule and type",
			},
			[]string{"rule", "type"},
		),
		Candidates: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "smartpick_candidates",
				Help: "Candidates in the most recent result",
			},
		),
		EnrichmentFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartpick_enrichment_fallbacks_total",
				Help: "Candidates that received the default enrichment, by reason",
			},
			[]string{"reason"},
		),
		LastCycleTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "smartpick_last_cycle_timestamp_seconds",
				Help: "Unix time the last cycle finished",
			},
		),
	}
	r.reg.MustRegister(
		r.CyclesTotal,
		r.CycleDuration,
		r.InstrumentsScanned,
		r.QuoteFailures,
		r.SignalsTotal,
		r.Candidates,
		r.EnrichmentFallbacks,
		r.LastCycleTimestamp,
	)
	return r
}

// ObserveCycle records the outcome of one finished cycle.
func (r *Registry) ObserveCycle(status string, duration time.Duration, finished time.Time, candidates int) {
	r.CyclesTotal.WithLabelValues(status).Inc()
	r.CycleDuration.Observe(duration.Seconds())
	r.LastCycleTimestamp.Set(float64(finished.Unix()))
	if status != StatusFailed {
		r.Candidates.Set(float64(candidates))
	}
}

// ObserveBatch records instruments processed and quote failures of one batch.
func (r *Registry) ObserveBatch(scanned, failures int) {
	r.InstrumentsScanned.Add(float64(scanned))
	r.QuoteFailures.Add(float64(failures))
}

// ObserveSignal counts one detected signal.
func (r *Registry) ObserveSignal(rule, typ string) {
	r.SignalsTotal.WithLabelValues(rule, typ).Inc()
}

// ObserveFallback counts candidates that fell back to the default enrichment.
func (r *Registry) ObserveFallback(reason string, n int) {
	r.EnrichmentFallbacks.WithLabelValues(reason).Add(float64(n))
}

// Handler serves this registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
