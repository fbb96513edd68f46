package imageprovider

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallrot/wallrot/internal/errors"
	"github.com/wallrot/wallrot/internal/observability/metrics"
)

// scriptedLoader fails every URL whose prefix is listed in fail and records
// the order of calls. It also tracks how many loads run at once.
type scriptedLoader struct {
	mu       sync.Mutex
	fail     map[string]error
	calls    []string
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
}

func newScriptedLoader() *scriptedLoader {
	return &scriptedLoader{fail: make(map[string]error)}
}

func (s *scriptedLoader) failPrefix(prefix string, err error) {
	s.fail[prefix] = err
}

func (s *scriptedLoader) Load(ctx context.Context, target string) (Image, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		seen := s.maxSeen.Load()
		if n <= seen || s.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	s.mu.Lock()
	s.calls = append(s.calls, target)
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return Image{}, loadFailure(ctx, "test", target, 0, ctx.Err())
		}
	}

	for prefix, err := range s.fail {
		if strings.HasPrefix(target, prefix) {
			return Image{}, err
		}
	}
	return Image{URL: target, ContentType: "image/png", Size: 1}, nil
}

func (s *scriptedLoader) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func TestResolveImageFallsBackToLocal(t *testing.T) {
	loader := newScriptedLoader()
	loader.failPrefix("https://drive.google.com/thumbnail", errors.NewStd("thumbnail 403"))
	loader.failPrefix("https://drive.google.com/uc", ErrTimeout)

	o := NewOrchestrator(loader, DefaultResolverConfig())
	rec := mustRecord(t, "x", "1RemoteFileId0", "/local/x.png")

	img, err := o.ResolveImage(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "/local/x.png", img.URL)
	assert.Equal(t, "x", img.ID)
	assert.Equal(t, StrategyLocal, img.Strategy)
	assert.Equal(t, SourceLocalFallback, img.SourceKind)
	assert.Len(t, loader.Calls(), 3)
}

func TestResolveImageFirstSuccessStops(t *testing.T) {
	loader := newScriptedLoader()
	o := NewOrchestrator(loader, DefaultResolverConfig())

	img, err := o.ResolveImage(context.Background(), mustRecord(t, "x", "1RemoteFileId0", "wp/x.png"))
	require.NoError(t, err)
	assert.Equal(t, SourceRemoteThumbnail, img.SourceKind)
	assert.Equal(t, []string{"https://drive.google.com/thumbnail?id=1RemoteFileId0&sz=w2000"}, loader.Calls())
}

func TestResolveImageLocalOnlyIsNotFallback(t *testing.T) {
	o := NewOrchestrator(newScriptedLoader(), DefaultResolverConfig())

	img, err := o.ResolveImage(context.Background(), mustRecord(t, "x", "", "wp/x.png"))
	require.NoError(t, err)
	assert.Equal(t, SourceLocal, img.SourceKind)
}

func TestResolveImageAllSourcesFailed(t *testing.T) {
	loader := newScriptedLoader()
	loader.failPrefix("https://", ErrLoadError)
	loader.failPrefix("wp/", ErrLoadError)

	reg := prometheus.NewRegistry()
	m, err := metrics.NewImageProviderMetrics(reg)
	require.NoError(t, err)

	o := NewOrchestrator(loader, DefaultResolverConfig(), WithMetrics(m))

	_, err = o.ResolveImage(context.Background(), mustRecord(t, "x", "1RemoteFileId0", "wp/x.png"))
	require.ErrorIs(t, err, ErrAllSourcesFailed)
	require.ErrorIs(t, err, ErrLoadError)
	assert.True(t, errors.IsCategory(err, errors.CategoryImageResolve))
	assert.Contains(t, err.Error(), "remote-thumbnail")
	assert.Contains(t, err.Error(), "local")

	assert.InDelta(t, 1, testutil.ToFloat64(m.AllFailed), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Attempts.WithLabelValues("local", metrics.OutcomeError)), 0)
}

func TestResolveImageRecordsFallbackMetric(t *testing.T) {
	loader := newScriptedLoader()
	loader.failPrefix("https://drive.google.com/thumbnail", ErrTimeout)

	reg := prometheus.NewRegistry()
	m, err := metrics.NewImageProviderMetrics(reg)
	require.NoError(t, err)
	o := NewOrchestrator(loader, DefaultResolverConfig(), WithMetrics(m))

	img, err := o.ResolveImage(context.Background(), mustRecord(t, "x", "1RemoteFileId0", "wp/x.png"))
	require.NoError(t, err)
	assert.Equal(t, SourceRemoteDirect, img.SourceKind)

	assert.InDelta(t, 1, testutil.ToFloat64(m.Attempts.WithLabelValues("remote-thumbnail", metrics.OutcomeTimeout)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Fallbacks.WithLabelValues("remote-direct")), 0)
}

func TestResolveImageIsSequential(t *testing.T) {
	loader := newScriptedLoader()
	loader.delay = 5 * time.Millisecond
	loader.failPrefix("https://", ErrLoadError)

	o := NewOrchestrator(loader, DefaultResolverConfig())
	_, err := o.ResolveImage(context.Background(), mustRecord(t, "x", "1RemoteFileId0", "wp/x.png"))
	require.NoError(t, err)
	assert.Equal(t, int32(1), loader.maxSeen.Load())
}

func TestResolveImageCancelled(t *testing.T) {
	loader := newScriptedLoader()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := NewOrchestrator(loader, DefaultResolverConfig())
	_, err := o.ResolveImage(ctx, mustRecord(t, "x", "1RemoteFileId0", "wp/x.png"))
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrAllSourcesFailed)
	assert.Empty(t, loader.Calls())
}

func TestResolveImagePerCandidateTimeout(t *testing.T) {
	loader := newScriptedLoader()
	loader.delay = 200 * time.Millisecond

	o := NewOrchestrator(loader, DefaultResolverConfig(), WithTimeout(10*time.Millisecond))
	_, err := o.ResolveImage(context.Background(), mustRecord(t, "x", "1RemoteFileId0", "wp/x.png"))
	require.ErrorIs(t, err, ErrAllSourcesFailed)
	require.ErrorIs(t, err, ErrTimeout)
	assert.Len(t, loader.Calls(), 3)
}
