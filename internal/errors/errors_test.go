package errors

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSentinel = NewStd("sentinel")

type recordingReporter struct {
	reported []*EnhancedError
}

func (r *recordingReporter) ReportError(ee *EnhancedError) {
	r.reported = append(r.reported, ee)
	ee.MarkReported()
}

func (r *recordingReporter) IsEnabled() bool { return true }

func TestBuildDefaults(t *testing.T) {
	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.Component)
	assert.Equal(t, CategoryGeneric, ee.Category)
	assert.False(t, ee.Timestamp.IsZero())
}

func TestBuildKeepsSentinelChain(t *testing.T) {
	ee := New(fmt.Errorf("load failed: %w", errSentinel)).
		Component("imageprovider").
		Category(CategoryImageLoad).
		Context("strategy", "remote-thumbnail").
		Build()

	require.ErrorIs(t, ee, errSentinel)
	assert.True(t, IsCategory(ee, CategoryImageLoad))
	assert.Equal(t, "remote-thumbnail", ee.GetContext()["strategy"])

	wrapped := fmt.Errorf("outer: %w", ee)
	assert.True(t, IsCategory(wrapped, CategoryImageLoad))
}

func TestCategoryInheritedFromWrappedError(t *testing.T) {
	inner := New(errSentinel).Category(CategoryCatalog).Build()
	outer := New(fmt.Errorf("lookup: %w", inner)).Build()

	assert.Equal(t, CategoryCatalog, outer.Category)
}

func TestPriorityFallsBackToMedium(t *testing.T) {
	ee := New(errSentinel).Priority("urgent").Build()
	assert.Equal(t, PriorityMedium, ee.Priority)

	ee = New(errSentinel).Priority(PriorityHigh).Build()
	assert.Equal(t, PriorityHigh, ee.Priority)
}

func TestContextHelpers(t *testing.T) {
	ee := New(errSentinel).
		NetworkContext("https://drive.google.com/uc?export=view&id=abc", 5*time.Second).
		FileContext("wp/photo.PNG", 2048).
		Timing("resolve_image", 1500*time.Millisecond).
		Build()

	ctx := ee.GetContext()
	assert.Equal(t, "https-endpoint", ctx["url_category"])
	assert.InDelta(t, 5.0, ctx["timeout_seconds"], 0.001)
	assert.Equal(t, "png", ctx["file_extension"])
	assert.Equal(t, "small", ctx["file_size_category"])
	assert.Equal(t, "resolve_image", ctx["operation"])
	assert.Equal(t, int64(1500), ctx["duration_ms"])
}

func TestCategorizeURL(t *testing.T) {
	tests := map[string]string{
		"http://localhost:8080/wp/a.png": "http-endpoint",
		"https://drive.google.com/x":     "https-endpoint",
		"/local/x.png":                   "local-path",
		"wp/x.png":                       "local-path",
		"ftp://host/x.png":               "other-protocol",
	}
	for in, want := range tests {
		assert.Equal(t, want, categorizeURL(in), in)
	}
}

func TestReporterReceivesErrors(t *testing.T) {
	rep := &recordingReporter{}
	SetTelemetryReporter(rep)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	ee := New(errSentinel).Component("catalog").Category(CategoryCatalog).Build()

	require.Len(t, rep.reported, 1)
	assert.Same(t, ee, rep.reported[0])
	assert.True(t, ee.IsReported())
}

func TestBasicURLScrub(t *testing.T) {
	scrubbed := basicURLScrub("GET https://drive.google.com/thumbnail?id=1AbCdEfGhIjK&sz=w2000 failed")
	assert.Equal(t, "GET https://drive.google.com/thumbnail?[REDACTED] failed", scrubbed)

	scrubbed = basicURLScrub("config token=abc123 rejected")
	assert.NotContains(t, scrubbed, "abc123")
}

func TestGenerateErrorTitle(t *testing.T) {
	ee := New(errSentinel).Component("imageprovider").Category(CategoryImageResolve).
		Context("operation", "resolve_image").Build()

	assert.Equal(t, "Imageprovider Image Resolve Error Resolve Image", generateErrorTitle(ee))
}
