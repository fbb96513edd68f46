package lazyqueue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/wallrot/wallrot/internal/catalog"
	"github.com/wallrot/wallrot/internal/httpclient"
	"github.com/wallrot/wallrot/internal/imageprovider"
	"github.com/wallrot/wallrot/internal/observability/metrics"
	chanutil "github.com/wallrot/wallrot/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeRecords struct{}

func (fakeRecords) Lookup(_ context.Context, id string) (catalog.ImageRecord, error) {
	return catalog.NewRecord(id, "", "wp/"+id)
}

// fakeResolver counts resolutions and the maximum number running at once.
type fakeResolver struct {
	delay      time.Duration
	fail       map[string]bool
	calls      atomic.Int32
	inFlight   atomic.Int32
	maxSeen    atomic.Int32
	background atomic.Int32

	mu    sync.Mutex
	order []string
}

func (f *fakeResolver) ResolveImage(ctx context.Context, rec catalog.ImageRecord) (imageprovider.Image, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	f.calls.Add(1)
	if httpclient.IsBackground(ctx) {
		f.background.Add(1)
	}

	f.mu.Lock()
	f.order = append(f.order, rec.ID)
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fail[rec.ID] {
		return imageprovider.Image{}, imageprovider.ErrAllSourcesFailed
	}
	return imageprovider.Image{ID: rec.ID, URL: rec.LocalRef, SourceKind: imageprovider.SourceLocal}, nil
}

func (f *fakeResolver) Order() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}

func ids(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("img%02d.png", i)
	}
	return out
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.DrainDelay = time.Millisecond
	return cfg
}

func TestQueueImageKeepsLowestPriority(t *testing.T) {
	m := New(testConfig(), &fakeResolver{}, fakeRecords{})

	m.QueueImage("a", 1, nil)
	m.QueueImage("a", 3, nil)
	m.QueueImage("b", 0, nil)

	pending := m.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, "b", pending[0].ImageID)
	assert.Equal(t, "a", pending[1].ImageID)
	assert.Equal(t, 1, pending[1].Priority)

	// Lowering a priority keeps the original arrival order, so "a" now leads.
	m.QueueImage("a", 0, nil)
	pending = m.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, "a", pending[0].ImageID, "equal priorities keep enqueue order")
	assert.Equal(t, 0, pending[0].Priority)
	assert.Equal(t, "b", pending[1].ImageID)
}

func TestPrioritizeQueueIsStable(t *testing.T) {
	m := New(testConfig(), &fakeResolver{}, fakeRecords{})
	for i, id := range []string{"c", "a", "d", "b"} {
		m.QueueImage(id, i%2, nil)
	}
	m.PrioritizeQueue()

	var got []string
	for _, e := range m.Pending() {
		got = append(got, e.ImageID)
	}
	assert.Equal(t, []string{"c", "d", "a", "b"}, got)
}

func TestPreloadAdjacentImages(t *testing.T) {
	m := New(testConfig(), &fakeResolver{}, fakeRecords{})
	catalogIDs := []string{"i0", "i1", "i2", "i3", "i4", "i5"}

	m.PreloadAdjacentImages(3, catalogIDs)

	got := map[string]int{}
	for _, e := range m.Pending() {
		got[e.ImageID] = e.Priority
	}
	assert.Equal(t, map[string]int{"i1": 2, "i2": 1, "i4": 1, "i5": 2}, got)
}

func TestPreloadAdjacentImagesDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	m := New(cfg, &fakeResolver{}, fakeRecords{})

	m.PreloadAdjacentImages(0, ids(6))
	assert.Empty(t, m.Pending())
}

func TestPreloadAdjacentImagesSmallCatalog(t *testing.T) {
	m := New(testConfig(), &fakeResolver{}, fakeRecords{})
	m.PreloadAdjacentImages(0, []string{"a", "b"})

	pending := m.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "b", pending[0].ImageID)
	assert.Equal(t, 1, pending[0].Priority)
}

func TestCircularDistance(t *testing.T) {
	assert.Equal(t, 1, CircularDistance(0, 9, 10))
	assert.Equal(t, 1, CircularDistance(9, 0, 10))
	assert.Equal(t, 5, CircularDistance(0, 5, 10))
	assert.Equal(t, 0, CircularDistance(4, 4, 10))
	assert.Equal(t, 3, CircularDistance(2, 5, 0))
}

func TestWorkerRunsCallbacksAndCaches(t *testing.T) {
	resolver := &fakeResolver{fail: map[string]bool{"bad.png": true}}
	m := New(testConfig(), resolver, fakeRecords{})
	m.SetCatalog([]string{"good.png", "bad.png"})
	ctx := t.Context()
	m.Start(ctx)
	t.Cleanup(m.Close)

	type result struct {
		id  string
		err error
	}
	results := make(chan result, 4)
	cb := func(id string, _ imageprovider.Image, err error) {
		results <- result{id, err}
	}

	m.QueueImage("good.png", 0, cb)
	m.QueueImage("bad.png", 0, cb)

	first := chanutil.Receive(t, results, chanutil.DefaultTestTimeout)
	second := chanutil.Receive(t, results, chanutil.DefaultTestTimeout)
	assert.Equal(t, "good.png", first.id)
	require.NoError(t, first.err)
	assert.Equal(t, "bad.png", second.id)
	require.ErrorIs(t, second.err, imageprovider.ErrAllSourcesFailed)

	le, ok := m.Loaded("good.png")
	require.True(t, ok)
	assert.Equal(t, 0, le.Position)
	_, ok = m.Loaded("bad.png")
	assert.False(t, ok)

	// A second request is served from the cache.
	m.QueueImage("good.png", 0, cb)
	again := chanutil.Receive(t, results, chanutil.DefaultTestTimeout)
	require.NoError(t, again.err)
	assert.Equal(t, int32(2), resolver.calls.Load())
	assert.Equal(t, 1, m.Stats().CacheHits)
	assert.Equal(t, 1, m.Stats().Failures)
}

func TestLoadedEntryRecordsCurrentPosition(t *testing.T) {
	m := New(testConfig(), &fakeResolver{}, fakeRecords{})
	m.SetCatalog([]string{"a.png", "b.png", "c.png", "d.png"})
	m.SetCurrentIndex(2)
	m.Start(t.Context())
	t.Cleanup(m.Close)

	done := make(chan error, 1)
	m.QueueImage("d.png", 1, func(_ string, _ imageprovider.Image, err error) { done <- err })
	require.NoError(t, chanutil.Receive(t, done, chanutil.DefaultTestTimeout))

	le, ok := m.Loaded("d.png")
	require.True(t, ok)
	assert.Equal(t, 2, le.Position, "position is the current index, not the image's catalog index")
}

func TestWorkerSingleLoadInFlight(t *testing.T) {
	resolver := &fakeResolver{delay: 2 * time.Millisecond}
	m := New(testConfig(), resolver, fakeRecords{})
	m.Start(t.Context())
	t.Cleanup(m.Close)

	var wg sync.WaitGroup
	var done atomic.Int32
	cb := func(string, imageprovider.Image, error) { done.Add(1) }
	for i := range 8 {
		wg.Go(func() {
			for _, id := range ids(5) {
				m.QueueImage(id, i%3, cb)
			}
		})
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		return m.Stats().Pending == 0 && m.Stats().InFlight == "" && done.Load() == 40
	}, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), resolver.maxSeen.Load())
}

func TestWorkerPreloadsRunInBackground(t *testing.T) {
	resolver := &fakeResolver{}
	m := New(testConfig(), resolver, fakeRecords{})
	m.Start(t.Context())
	t.Cleanup(m.Close)

	m.QueueImage("now.png", 0, nil)
	m.QueueImage("later.png", 2, nil)

	require.Eventually(t, func() bool { return resolver.calls.Load() == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), resolver.background.Load())
	assert.Equal(t, []string{"now.png", "later.png"}, resolver.Order())
}

func TestClearOldImages(t *testing.T) {
	cfg := testConfig()
	cfg.QueueSize = 3
	cfg.UnloadThreshold = 2
	reg := prometheus.NewRegistry()
	lm, err := metrics.NewLazyQueueMetrics(reg)
	require.NoError(t, err)

	m := New(cfg, &fakeResolver{}, fakeRecords{}, WithMetrics(lm))
	all := ids(20)
	m.SetCatalog(all)

	now := time.Now()
	for i, pos := range []int{0, 1, 19, 5, 10, 15} {
		m.loaded[all[pos]] = &LoadedEntry{ImageID: all[pos], Position: pos, LoadedAt: now.Add(time.Duration(i) * time.Second)}
	}
	m.SetCurrentIndex(0)

	evicted := m.ClearOldImages()
	assert.Equal(t, 3, evicted)

	for _, pos := range []int{0, 1, 19} {
		_, ok := m.Loaded(all[pos])
		assert.True(t, ok, "position %d is close and stays", pos)
	}
	assert.InDelta(t, 3, testutil.ToFloat64(lm.Evictions), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(lm.CacheEntries), 0)
}

func TestClearOldImagesKeepsNearbyOverflow(t *testing.T) {
	cfg := testConfig()
	cfg.QueueSize = 2
	cfg.UnloadThreshold = 10
	m := New(cfg, &fakeResolver{}, fakeRecords{})
	all := ids(30)
	m.SetCatalog(all)
	m.SetCurrentIndex(0)

	for _, pos := range []int{0, 1, 2, 29, 15} {
		m.loaded[all[pos]] = &LoadedEntry{ImageID: all[pos], Position: pos}
	}

	assert.Equal(t, 1, m.ClearOldImages(), "only the entry beyond the threshold goes")
	_, ok := m.Loaded(all[15])
	assert.False(t, ok)
	assert.Equal(t, 4, m.Stats().Loaded)
}

func TestClearOldImagesBelowQueueSize(t *testing.T) {
	m := New(testConfig(), &fakeResolver{}, fakeRecords{})
	all := ids(40)
	m.SetCatalog(all)
	m.loaded[all[30]] = &LoadedEntry{ImageID: all[30], Position: 30}

	assert.Equal(t, 0, m.ClearOldImages())
}

func TestCloseDropsPendingCallbacks(t *testing.T) {
	resolver := &fakeResolver{delay: 20 * time.Millisecond}
	m := New(testConfig(), resolver, fakeRecords{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	var called atomic.Int32
	for _, id := range ids(5) {
		m.QueueImage(id, 0, func(string, imageprovider.Image, error) { called.Add(1) })
	}
	m.Close()

	n := called.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, called.Load(), "no callbacks after Close")
	assert.Less(t, n, int32(5))
}

func TestLookupFailureRunsCallback(t *testing.T) {
	m := New(testConfig(), &fakeResolver{}, failingRecords{})
	m.Start(t.Context())
	t.Cleanup(m.Close)

	errs := make(chan error, 1)
	m.QueueImage("x.png", 0, func(_ string, _ imageprovider.Image, err error) { errs <- err })
	require.ErrorIs(t, chanutil.Receive(t, errs, chanutil.DefaultTestTimeout), catalog.ErrCatalogUnavailable)
}

type failingRecords struct{}

func (failingRecords) Lookup(context.Context, string) (catalog.ImageRecord, error) {
	return catalog.ImageRecord{}, fmt.Errorf("lookup: %w", catalog.ErrCatalogUnavailable)
}
