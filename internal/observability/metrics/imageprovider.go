// Package metrics provides custom Prometheus metrics for the wallpaper rotator components.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values for candidate attempts
const (
	OutcomeSuccess = "success"
	OutcomeTimeout = "timeout"
	OutcomeError   = "error"
)

// ImageProviderMetrics contains Prometheus metrics for candidate resolution and loading.
// All methods are safe to call on a nil receiver.
type ImageProviderMetrics struct {
	Attempts        *prometheus.CounterVec
	ResolveDuration prometheus.Histogram
	LoadDuration    *prometheus.HistogramVec
	Fallbacks       *prometheus.CounterVec
	AllFailed       prometheus.Counter
	registry        *prometheus.Registry
}

// NewImageProviderMetrics creates and registers image provider metrics.
func NewImageProviderMetrics(registry *prometheus.Registry) (*ImageProviderMetrics, error) {
	m := &ImageProviderMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register ImageProvider metrics: %w", err)
	}
	return m, nil
}

func (m *ImageProviderMetrics) initMetrics() {
	m.Attempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "image_provider_attempts_total",
		Help: "Candidate load attempts by strategy and outcome.",
	}, []string{"strategy", "outcome"})

	m.ResolveDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "image_provider_resolve_duration_seconds",
		Help:    "Time to resolve an image across all candidates.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	m.LoadDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "image_provider_load_duration_seconds",
		Help:    "Duration of single candidate loads.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"strategy"})

	m.Fallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "image_provider_fallbacks_total",
		Help: "Images resolved by a candidate other than the first, by winning source kind.",
	}, []string{"source_kind"})

	m.AllFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_provider_all_sources_failed_total",
		Help: "Images for which every candidate failed.",
	})
}

// RecordAttempt counts one candidate attempt and its duration.
func (m *ImageProviderMetrics) RecordAttempt(strategy, outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.Attempts.WithLabelValues(strategy, outcome).Inc()
	m.LoadDuration.WithLabelValues(strategy).Observe(durationSeconds)
}

// ObserveResolve records the duration of a whole resolution.
func (m *ImageProviderMetrics) ObserveResolve(durationSeconds float64) {
	if m == nil {
		return
	}
	m.ResolveDuration.Observe(durationSeconds)
}

// IncrementFallbacks counts an image resolved after at least one failed candidate.
func (m *ImageProviderMetrics) IncrementFallbacks(sourceKind string) {
	if m == nil {
		return
	}
	m.Fallbacks.WithLabelValues(sourceKind).Inc()
}

// IncrementAllFailed counts an exhausted resolution.
func (m *ImageProviderMetrics) IncrementAllFailed() {
	if m == nil {
		return
	}
	m.AllFailed.Inc()
}

// Collect implements the prometheus.Collector interface.
func (m *ImageProviderMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Attempts.Collect(ch)
	m.ResolveDuration.Collect(ch)
	m.LoadDuration.Collect(ch)
	m.Fallbacks.Collect(ch)
	m.AllFailed.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *ImageProviderMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Attempts.Describe(ch)
	m.ResolveDuration.Describe(ch)
	m.LoadDuration.Describe(ch)
	m.Fallbacks.Describe(ch)
	m.AllFailed.Describe(ch)
}
