package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistersCollectors(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)

	m.ImageProvider.RecordAttempt("local", "success", 0.01)
	m.LazyQueue.SetCacheEntries(3)
	m.HTTP.RecordHTTPRequest(http.MethodGet, "/api/random", http.StatusOK, 0.002)

	var families []*dto.MetricFamily
	families, err = m.Registry().Gather()
	require.NoError(t, err)

	names := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		names[f.GetName()] = f
	}

	require.Contains(t, names, "image_provider_attempts_total")
	require.Contains(t, names, "lazy_queue_loaded_images")
	require.Contains(t, names, "http_requests_total")
	assert.InDelta(t, 3, names["lazy_queue_loaded_images"].GetMetric()[0].GetGauge().GetValue(), 0)
}

func TestMetricsHandler(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)
	m.LazyQueue.AddEvictions(4)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "lazy_queue_evictions_total 4")
}
