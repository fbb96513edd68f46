// Package lazyqueue loads images around the current position ahead of time.
//
// A Manager keeps a priority queue of image ids (lower priority value loads
// sooner) drained by a single worker goroutine, and a bounded cache of loaded
// images. Images far from the current position are evicted once the cache
// grows past its size limit.
package lazyqueue

import (
	"context"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/wallrot/wallrot/internal/catalog"
	"github.com/wallrot/wallrot/internal/imageprovider"
	"github.com/wallrot/wallrot/internal/logger"
	"github.com/wallrot/wallrot/internal/observability/metrics"
)

// Config tunes preloading and eviction.
type Config struct {
	Enabled          bool
	PreloadThreshold int           // images preloaded on each side of the current one
	QueueSize        int           // loaded images kept before eviction starts
	UnloadThreshold  int           // minimum circular distance for eviction
	DrainDelay       time.Duration // pause between consecutive loads
}

// DefaultConfig returns the stock lazy loading settings.
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		PreloadThreshold: 2,
		QueueSize:        5,
		UnloadThreshold:  10,
		DrainDelay:       50 * time.Millisecond,
	}
}

// Resolver turns a record into an image; *imageprovider.Orchestrator implements it.
type Resolver interface {
	ResolveImage(ctx context.Context, rec catalog.ImageRecord) (imageprovider.Image, error)
}

// RecordLookup finds the record for an id; every catalog.Source implements it.
type RecordLookup interface {
	Lookup(ctx context.Context, id string) (catalog.ImageRecord, error)
}

// Callback receives the outcome of a queued load. It runs on the worker
// goroutine and must not block.
type Callback func(id string, img imageprovider.Image, err error)

// QueueEntry is a pending load.
type QueueEntry struct {
	ImageID    string
	Priority   int
	EnqueuedAt time.Time
	seq        uint64
}

// LoadedEntry is a cached, successfully loaded image.
type LoadedEntry struct {
	ImageID  string
	Image    imageprovider.Image
	Position int // current position when the load finished
	LoadedAt time.Time
}

// Stats is a snapshot of manager counters.
type Stats struct {
	Pending   int
	Loaded    int
	InFlight  string
	Loads     int
	Failures  int
	CacheHits int
	Evictions int
}

// Manager owns the pending queue, the callbacks and the loaded-image cache.
type Manager struct {
	cfg      Config
	resolver Resolver
	records  RecordLookup
	log      logger.Logger
	metrics  *metrics.LazyQueueMetrics

	mu        sync.Mutex
	queue     []*QueueEntry
	callbacks map[string][]Callback
	loaded    map[string]*LoadedEntry
	ids       []string
	index     map[string]int
	current   int
	seq       uint64
	inFlight  string
	stats     Stats

	wake    chan struct{}
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithMetrics enables queue and cache metrics.
func WithMetrics(lm *metrics.LazyQueueMetrics) Option {
	return func(m *Manager) { m.metrics = lm }
}

// New creates a manager. Call Start to begin processing the queue.
func New(cfg Config, resolver Resolver, records RecordLookup, opts ...Option) *Manager {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.PreloadThreshold < 0 {
		cfg.PreloadThreshold = 0
	}
	m := &Manager{
		cfg:       cfg,
		resolver:  resolver,
		records:   records,
		log:       logger.Discard(),
		callbacks: make(map[string][]Callback),
		loaded:    make(map[string]*LoadedEntry),
		index:     make(map[string]int),
		wake:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the manager's configuration.
func (m *Manager) Config() Config {
	return m.cfg
}

// SetCatalog installs the ordered id list used for positions and distances.
func (m *Manager) SetCatalog(ids []string) {
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}

	m.mu.Lock()
	m.ids = slices.Clone(ids)
	m.index = index
	if m.current >= len(ids) {
		m.current = 0
	}
	m.mu.Unlock()
}

// SetCurrentIndex moves the reference point and re-sorts the queue.
func (m *Manager) SetCurrentIndex(i int) {
	m.mu.Lock()
	m.current = i
	m.mu.Unlock()
	m.PrioritizeQueue()
}

// CurrentIndex returns the reference point.
func (m *Manager) CurrentIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// QueueImage queues id for loading. An id already pending keeps one entry
// whose priority only ever decreases. Lowering the priority keeps the entry's
// original enqueue time. cb may be nil; callbacks for the same
// id accumulate until its load finishes.
func (m *Manager) QueueImage(id string, priority int, cb Callback) {
	m.mu.Lock()
	if cb != nil {
		m.callbacks[id] = append(m.callbacks[id], cb)
	}

	found := false
	for _, e := range m.queue {
		if e.ImageID == id {
			found = true
			if priority < e.Priority {
				e.Priority = priority
			}
			break
		}
	}
	if !found {
		m.seq++
		m.queue = append(m.queue, &QueueEntry{
			ImageID:    id,
			Priority:   priority,
			EnqueuedAt: time.Now(),
			seq:        m.seq,
		})
	}
	m.sortLocked()
	depth := len(m.queue)
	m.mu.Unlock()

	m.metrics.SetQueueDepth(depth)
	m.signal()
}

// PrioritizeQueue orders pending entries by priority, then enqueue order.
func (m *Manager) PrioritizeQueue() {
	m.mu.Lock()
	m.sortLocked()
	m.mu.Unlock()
}

func (m *Manager) sortLocked() {
	slices.SortStableFunc(m.queue, func(a, b *QueueEntry) int {
		if a.Priority != b.Priority {
			return a.Priority - b.Priority
		}
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})
}

// PreloadAdjacentImages queues the PreloadThreshold neighbours on each side
// of currentIndex with priority equal to their distance. ids nil means the
// installed catalog. Does nothing when lazy loading is disabled.
func (m *Manager) PreloadAdjacentImages(currentIndex int, ids []string) {
	if !m.cfg.Enabled {
		return
	}
	if ids == nil {
		m.mu.Lock()
		ids = m.ids
		m.mu.Unlock()
	}
	n := len(ids)
	if n < 2 {
		return
	}

	for d := 1; d <= m.cfg.PreloadThreshold; d++ {
		next := (currentIndex + d) % n
		prev := ((currentIndex-d)%n + n) % n
		if next != currentIndex {
			m.QueueImage(ids[next], d, nil)
		}
		if prev != currentIndex && prev != next {
			m.QueueImage(ids[prev], d, nil)
		}
	}
}

// CircularDistance is the shortest distance between positions a and b on a
// ring of n items.
func CircularDistance(a, b, n int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	if n <= 0 {
		return d
	}
	d %= n
	return min(d, n-d)
}

// ClearOldImages evicts cached images once the cache holds more than
// QueueSize entries. Only entries farther than UnloadThreshold from the
// current position are eligible, most distant first. Returns the number of
// evicted entries.
func (m *Manager) ClearOldImages() int {
	m.mu.Lock()
	if len(m.loaded) <= m.cfg.QueueSize {
		m.mu.Unlock()
		return 0
	}

	type victim struct {
		id       string
		distance int
		loadedAt time.Time
	}
	n := len(m.ids)
	victims := make([]victim, 0, len(m.loaded))
	for id, le := range m.loaded {
		// Images no longer in the catalog go first.
		distance := math.MaxInt
		if pos, ok := m.index[id]; ok {
			distance = CircularDistance(m.current, pos, n)
		}
		if distance > m.cfg.UnloadThreshold {
			victims = append(victims, victim{id: id, distance: distance, loadedAt: le.LoadedAt})
		}
	}
	slices.SortFunc(victims, func(a, b victim) int {
		if a.distance != b.distance {
			return b.distance - a.distance
		}
		return a.loadedAt.Compare(b.loadedAt)
	})

	evicted := 0
	for _, v := range victims {
		if len(m.loaded) <= m.cfg.QueueSize {
			break
		}
		delete(m.loaded, v.id)
		evicted++
	}
	m.stats.Evictions += evicted
	cached := len(m.loaded)
	m.mu.Unlock()

	if evicted > 0 {
		m.log.Debug("evicted distant images",
			logger.Int("evicted", evicted),
			logger.Int("cached", cached))
	}
	m.metrics.AddEvictions(evicted)
	m.metrics.SetCacheEntries(cached)
	return evicted
}

// Loaded returns the cached entry for id.
func (m *Manager) Loaded(id string) (LoadedEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	le, ok := m.loaded[id]
	if !ok {
		return LoadedEntry{}, false
	}
	return *le, true
}

// Pending returns the queue in processing order.
func (m *Manager) Pending() []QueueEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]QueueEntry, len(m.queue))
	for i, e := range m.queue {
		out[i] = *e
	}
	return out
}

// Stats returns a snapshot of the manager's counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats
	s.Pending = len(m.queue)
	s.Loaded = len(m.loaded)
	s.InFlight = m.inFlight
	return s
}
