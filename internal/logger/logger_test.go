package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleLoggerWritesFields(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	cl, err := newCentralLogger(&LoggingConfig{
		DefaultLevel: "debug",
		Console:      &ConsoleOutput{Enabled: true, Level: "debug"},
		FileOutput:   &FileOutput{Enabled: false},
	}, buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cl.Close() })

	log := cl.Module("imageprovider").Module("loader")
	log.Info("image resolved",
		String("image_id", "a.png"),
		Duration("elapsed", 1500*time.Millisecond),
		Float64("ratio", 0.123456))

	out := buf.String()
	assert.Contains(t, out, "module=imageprovider.loader")
	assert.Contains(t, out, "image_id=a.png")
	assert.Contains(t, out, "elapsed=1.5s")
	assert.Contains(t, out, "ratio=0.123")
	assert.NotContains(t, out, "time=", "console output drops timestamps")
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelWarn, time.UTC)

	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown")
	log.Log(LogLevelInfo, "hidden")
	log.Log(LogLevelError, "explicit")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "explicit")
}

func TestModuleLevelOverride(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	cl, err := newCentralLogger(&LoggingConfig{
		DefaultLevel: "info",
		Console:      &ConsoleOutput{Enabled: true, Level: "trace"},
		ModuleLevels: map[string]string{"lazyqueue": "trace"},
	}, buf)
	require.NoError(t, err)

	cl.Module("lazyqueue").Trace("queue state")
	cl.Module("rotator").Debug("not shown")

	out := buf.String()
	assert.Contains(t, out, "level=TRACE")
	assert.NotContains(t, out, "not shown")
}

func TestWithAndContext(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	base := NewSlogLogger(buf, LogLevelInfo, time.UTC)

	ctx := WithTraceID(context.Background(), "req-42")
	base.With(String("component", "rotator")).WithContext(ctx).Info("navigated")
	base.Info("plain")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "trace_id=req-42")
	assert.Contains(t, lines[0], "component=rotator")
	assert.NotContains(t, lines[1], "trace_id")
}

func TestModuleFileOutput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "access.log")

	cl, err := newCentralLogger(&LoggingConfig{
		DefaultLevel: "info",
		Timezone:     "UTC",
		Console:      &ConsoleOutput{Enabled: false},
		ModuleOutputs: map[string]ModuleOutput{
			"access": {Enabled: true, FilePath: path},
		},
	}, &bytes.Buffer{})
	require.NoError(t, err)

	cl.Module("access").Info("request", String("path", "/api/random"), Int("status", 200))
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, "request", entry["msg"])
	assert.Equal(t, "access", entry["module"])
	assert.Equal(t, "/api/random", entry["path"])
	assert.InDelta(t, 200, entry["status"], 0)
	assert.True(t, strings.HasSuffix(entry["time"].(string), "Z"))
}

func TestInvalidTimezone(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(&LoggingConfig{Timezone: "Mars/Olympus"})
	require.Error(t, err)
}

func TestRedactSensitiveData(t *testing.T) {
	t.Parallel()

	in := "refresh with refresh_token=1//0abcdefgh and Authorization: Bearer ya29.secret"
	out := RedactSensitiveData(in)

	assert.NotContains(t, out, "1//0abcdefgh")
	assert.NotContains(t, out, "ya29.secret")
	assert.Contains(t, out, "[REDACTED]")
}
