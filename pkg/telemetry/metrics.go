// Package telemetry exposes Prometheus collectors for screen evaluation and
// the persistent cache.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all screen manager collectors. A nil *Metrics records nothing.
type Metrics struct {
	CacheHits      *prometheus.CounterVec
	CacheMisses    *prometheus.CounterVec
	CacheEvictions *prometheus.CounterVec

	Updates        *prometheus.CounterVec
	UpdateDuration *prometheus.HistogramVec
	UpdateSkips    *prometheus.CounterVec

	PredictFailures *prometheus.CounterVec
	Hides           *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which is what tests usually want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screens_cache_hits_total",
				Help: "Persistent cache lookups that matched stored arguments",
			},
			[]string{"screen"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screens_cache_misses_total",
				Help: "Persistent cache lookups that found no reusable entry",
			},
			[]string{"screen"},
		),
		CacheEvictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screens_cache_evictions_total",
				Help: "Persistent cache entries dropped to respect the bucket bound",
			},
			[]string{"screen"},
		),
		Updates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screens_updates_total",
				Help: "Screen callback evaluations by lifecycle phase",
			},
			[]string{"screen", "phase"},
		),
		UpdateDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "screens_update_duration_seconds",
				Help:    "Time spent evaluating a screen callback",
				Buckets: []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05, .1},
			},
			[]string{"screen"},
		),
		UpdateSkips: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screens_update_skips_total",
				Help: "Updates skipped because the instance already updated this frame or is frozen",
			},
			[]string{"reason"},
		),
		PredictFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screens_predict_failures_total",
				Help: "Prediction attempts that failed and were swallowed",
			},
			[]string{"screen"},
		),
		Hides: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screens_hides_total",
				Help: "Hide requests by outcome (split or atomic)",
			},
			[]string{"outcome"},
		),
	}
	if reg != nil {
		reg.MustRegister(
			m.CacheHits, m.CacheMisses, m.CacheEvictions,
			m.Updates, m.UpdateDuration, m.UpdateSkips,
			m.PredictFailures, m.Hides,
		)
	}
	return m
}

// CacheHit counts a matched lookup.
func (m *Metrics) CacheHit(screen string) {
	if m != nil {
		m.CacheHits.WithLabelValues(screen).Inc()
	}
}

// CacheMiss counts a lookup that returned an empty cache.
func (m *Metrics) CacheMiss(screen string) {
	if m != nil {
		m.CacheMisses.WithLabelValues(screen).Inc()
	}
}

// CacheEvict counts one dropped entry.
func (m *Metrics) CacheEvict(screen string) {
	if m != nil {
		m.CacheEvictions.WithLabelValues(screen).Inc()
	}
}

// Update records a completed callback evaluation.
func (m *Metrics) Update(screen, phase string, elapsed time.Duration) {
	if m != nil {
		m.Updates.WithLabelValues(screen, phase).Inc()
		m.UpdateDuration.WithLabelValues(screen).Observe(elapsed.Seconds())
	}
}

// UpdateSkip records an update that did not run the callback.
func (m *Metrics) UpdateSkip(reason string) {
	if m != nil {
		m.UpdateSkips.WithLabelValues(reason).Inc()
	}
}

// PredictFailure counts a swallowed prediction error.
func (m *Metrics) PredictFailure(screen string) {
	if m != nil {
		m.PredictFailures.WithLabelValues(screen).Inc()
	}
}

// Hide records the outcome of a hide request.
func (m *Metrics) Hide(outcome string) {
	if m != nil {
		m.Hides.WithLabelValues(outcome).Inc()
	}
}
