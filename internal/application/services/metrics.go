package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/avatarctic/petportrait/internal/core/domain/generation"
)

// Metrics holds the pipeline collectors. A nil *Metrics records nothing.
type Metrics struct {
	generations     *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	moderation      *prometheus.CounterVec
	rateLimit       *prometheus.CounterVec
}

// NewMetrics creates the pipeline collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "generation_requests_total",
				Help: "Generation requests by provider mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		providerLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "provider_call_duration_seconds",
				Help:    "Wall-clock duration of outbound image provider calls",
				Buckets: []float64{1, 2.5, 5, 10, 20, 30, 45, 60, 90, 120},
			},
			[]string{"operation"},
		),
		moderation: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moderation_checks_total",
				Help: "Moderation gate results (clean, flagged, fail_open, skipped)",
			},
			[]string{"result"},
		),
		rateLimit: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_limit_decisions_total",
				Help: "Rate limiter decisions",
			},
			[]string{"decision"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.generations, m.providerLatency, m.moderation, m.rateLimit)
	}
	return m
}

func (m *Metrics) observeGeneration(mode generation.Mode, outcome generation.Outcome) {
	if m == nil {
		return
	}
	label := string(mode)
	if label == "" {
		label = "none"
	}
	m.generations.WithLabelValues(label, string(outcome)).Inc()
}

func (m *Metrics) observeProviderCall(mode generation.Mode, d time.Duration) {
	if m == nil {
		return
	}
	m.providerLatency.WithLabelValues(string(mode)).Observe(d.Seconds())
}

func (m *Metrics) observeModeration(result string) {
	if m == nil {
		return
	}
	m.moderation.WithLabelValues(result).Inc()
}

func (m *Metrics) observeRateLimit(allowed bool) {
	if m == nil {
		return
	}
	decision := "denied"
	if allowed {
		decision = "allowed"
	}
	m.rateLimit.WithLabelValues(decision).Inc()
}
