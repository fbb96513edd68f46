package mqtt

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallrot/wallrot/internal/conf"
	"github.com/wallrot/wallrot/internal/errors"
	"github.com/wallrot/wallrot/internal/observability/metrics"
)

func createTestClient(t *testing.T, broker string) (Client, *metrics.MQTTMetrics) {
	t.Helper()
	m, err := metrics.NewMQTTMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Broker = broker
	cfg.ClientID = "wallrot-test"
	cfg.ConnectTimeout = 2 * time.Second
	return NewClient(cfg, m, nil), m
}

func TestConfigFromSettings(t *testing.T) {
	cfg := ConfigFromSettings(conf.MQTTSettings{
		Broker:   "tcp://broker:1883",
		Topic:    "wallrot",
		ClientID: "living-room",
		Username: "user",
		Password: "secret",
	})
	assert.Equal(t, "tcp://broker:1883", cfg.Broker)
	assert.Equal(t, "living-room", cfg.ClientID)
	assert.Equal(t, 5*time.Second, cfg.ReconnectCooldown)
	assert.True(t, cfg.Retain)
}

func TestPublishWhileDisconnected(t *testing.T) {
	c, _ := createTestClient(t, "tcp://127.0.0.1:1883")
	err := c.Publish(context.Background(), "wallrot/current", []byte("{}"))
	require.ErrorIs(t, err, ErrNotConnected)
	assert.False(t, c.IsConnected())
}

func TestConnectInvalidBroker(t *testing.T) {
	c, _ := createTestClient(t, "://bad")
	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMQTTPublish))
}

func TestConnectRefusedThenCooldown(t *testing.T) {
	// Nothing listens on port 1 locally, so the connect fails fast.
	c, m := createTestClient(t, "tcp://127.0.0.1:1")

	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.False(t, c.IsConnected())
	assert.InDelta(t, 1, testutil.ToFloat64(m.Errors), 0)

	err = c.Connect(context.Background())
	require.ErrorIs(t, err, ErrConnectCooldown)

	c.Disconnect()
}
