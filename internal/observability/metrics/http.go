package metrics

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics covers served API requests and outgoing client requests.
// All methods are safe to call on a nil receiver.
type HTTPMetrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	blockedRequests     prometheus.Counter
	clientRequestsTotal *prometheus.CounterVec
}

// NewHTTPMetrics creates and registers HTTP metrics
func NewHTTPMetrics(registry *prometheus.Registry) (*HTTPMetrics, error) {
	m := &HTTPMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register HTTP metrics: %w", err)
	}
	return m, nil
}

func (m *HTTPMetrics) initMetrics() {
	m.httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of served HTTP requests",
	}, []string{"method", "path", "status_code"}) // path is the route pattern, not the raw URL

	m.httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Time taken for served HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	m.blockedRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "http_blocked_requests_total",
		Help: "Requests for protected files rejected with 403",
	})

	m.clientRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_client_requests_total",
		Help: "Outgoing HTTP requests by host and status",
	}, []string{"host", "status_code"})
}

func (m *HTTPMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.blockedRequests,
		m.clientRequestsTotal,
	}
}

// Describe implements the prometheus.Collector interface.
func (m *HTTPMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors() {
		c.Describe(ch)
	}
}

// Collect implements the prometheus.Collector interface.
func (m *HTTPMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors() {
		c.Collect(ch)
	}
}

// RecordHTTPRequest records a served request
func (m *HTTPMetrics) RecordHTTPRequest(method, path string, statusCode int, duration float64) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// IncrementBlocked counts a rejected request for a protected file
func (m *HTTPMetrics) IncrementBlocked() {
	if m == nil {
		return
	}
	m.blockedRequests.Inc()
}

// RecordClientRequest records an outgoing request; statusCode 0 means a transport error
func (m *HTTPMetrics) RecordClientRequest(host string, statusCode int) {
	if m == nil {
		return
	}
	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	m.clientRequestsTotal.WithLabelValues(host, status).Inc()
}
