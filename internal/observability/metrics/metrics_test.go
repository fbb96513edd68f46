package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageProviderMetrics(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewImageProviderMetrics(registry)
	require.NoError(t, err)

	m.RecordAttempt("remote-thumbnail", OutcomeTimeout, 5)
	m.RecordAttempt("remote-direct", OutcomeError, 0.2)
	m.RecordAttempt("local", OutcomeSuccess, 0.01)
	m.IncrementFallbacks("local-fallback")
	m.ObserveResolve(5.2)

	assert.InDelta(t, 1, testutil.ToFloat64(m.Attempts.WithLabelValues("local", OutcomeSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Fallbacks.WithLabelValues("local-fallback")), 0)
	assert.Equal(t, 3, testutil.CollectAndCount(m.Attempts))

	// Registering the same collector twice fails
	_, err = NewImageProviderMetrics(registry)
	require.Error(t, err)
}

func TestLazyQueueMetrics(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewLazyQueueMetrics(registry)
	require.NoError(t, err)

	m.SetQueueDepth(4)
	m.SetCacheEntries(6)
	m.AddEvictions(2)
	m.AddEvictions(0)
	m.RecordLoad("success")

	assert.InDelta(t, 4, testutil.ToFloat64(m.QueueDepth), 0)
	assert.InDelta(t, 6, testutil.ToFloat64(m.CacheEntries), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.Evictions), 0)
}

func TestNilReceiversAreNoOps(t *testing.T) {
	t.Parallel()

	var ip *ImageProviderMetrics
	var lq *LazyQueueMetrics
	var h *HTTPMetrics
	var mq *MQTTMetrics

	assert.NotPanics(t, func() {
		ip.RecordAttempt("local", OutcomeSuccess, 1)
		ip.IncrementAllFailed()
		lq.SetQueueDepth(1)
		lq.AddEvictions(3)
		h.RecordHTTPRequest("GET", "/api/random", 200, 0.1)
		h.RecordClientRequest("drive.google.com", 0)
		mq.UpdateConnectionStatus(true)
		mq.IncrementMessagesDelivered(10)
	})
}

func TestHTTPMetrics(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewHTTPMetrics(registry)
	require.NoError(t, err)

	m.RecordHTTPRequest("GET", "/api/images/:id", 404, 0.01)
	m.IncrementBlocked()
	m.RecordClientRequest("drive.google.com", 0)

	assert.InDelta(t, 1, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/api/images/:id", "404")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.blockedRequests), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.clientRequestsTotal.WithLabelValues("drive.google.com", "error")), 0)
}

func TestMQTTMetrics(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewMQTTMetrics(registry)
	require.NoError(t, err)

	m.UpdateConnectionStatus(true)
	m.IncrementMessagesDelivered(120)
	m.IncrementMessagesDelivered(80)
	m.IncrementErrors()

	assert.InDelta(t, 1, testutil.ToFloat64(m.ConnectionStatus), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.MessagesDelivered), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Errors), 0)

	m.UpdateConnectionStatus(false)
	assert.InDelta(t, 0, testutil.ToFloat64(m.ConnectionStatus), 0)
}
