package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// LazyQueueMetrics tracks the preload queue and the loaded-image cache.
// All methods are safe to call on a nil receiver.
type LazyQueueMetrics struct {
	QueueDepth   prometheus.Gauge
	CacheEntries prometheus.Gauge
	CacheHits    prometheus.Counter
	Loads        *prometheus.CounterVec
	Evictions    prometheus.Counter
	registry     *prometheus.Registry
}

// NewLazyQueueMetrics creates and registers lazy queue metrics.
func NewLazyQueueMetrics(registry *prometheus.Registry) (*LazyQueueMetrics, error) {
	m := &LazyQueueMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register LazyQueue metrics: %w", err)
	}
	return m, nil
}

func (m *LazyQueueMetrics) initMetrics() {
	m.QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lazy_queue_pending",
		Help: "Images waiting in the preload queue.",
	})
	m.CacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lazy_queue_loaded_images",
		Help: "Images currently held in the loaded-image cache.",
	})
	m.CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lazy_queue_cache_hits_total",
		Help: "Queued images served from the loaded-image cache.",
	})
	m.Loads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lazy_queue_loads_total",
		Help: "Queued loads by result.",
	}, []string{"result"})
	m.Evictions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lazy_queue_evictions_total",
		Help: "Images evicted from the loaded-image cache.",
	})
}

// SetQueueDepth reports the number of pending entries.
func (m *LazyQueueMetrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}

// SetCacheEntries reports the number of loaded images.
func (m *LazyQueueMetrics) SetCacheEntries(n int) {
	if m == nil {
		return
	}
	m.CacheEntries.Set(float64(n))
}

// IncrementCacheHits counts a queued load answered from cache.
func (m *LazyQueueMetrics) IncrementCacheHits() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

// RecordLoad counts a finished queued load, result is "success" or "error".
func (m *LazyQueueMetrics) RecordLoad(result string) {
	if m == nil {
		return
	}
	m.Loads.WithLabelValues(result).Inc()
}

// AddEvictions counts evicted images.
func (m *LazyQueueMetrics) AddEvictions(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Evictions.Add(float64(n))
}

// Collect implements the prometheus.Collector interface.
func (m *LazyQueueMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.QueueDepth
	ch <- m.CacheEntries
	ch <- m.CacheHits
	m.Loads.Collect(ch)
	ch <- m.Evictions
}

// Describe implements the prometheus.Collector interface.
func (m *LazyQueueMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.QueueDepth.Desc()
	ch <- m.CacheEntries.Desc()
	ch <- m.CacheHits.Desc()
	m.Loads.Describe(ch)
	ch <- m.Evictions.Desc()
}
