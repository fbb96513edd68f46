// Package rotator is the navigation API a display drives: it tracks the
// current position in the catalog, asks the lazy queue to load the current
// image first and its neighbours shortly after, and publishes an Event when
// the current image has been resolved.
package rotator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wallrot/wallrot/internal/catalog"
	"github.com/wallrot/wallrot/internal/errors"
	"github.com/wallrot/wallrot/internal/imageprovider"
	"github.com/wallrot/wallrot/internal/lazyqueue"
	"github.com/wallrot/wallrot/internal/logger"
)

const (
	// DefaultPreloadDelay debounces neighbour preloading while navigating.
	DefaultPreloadDelay = 300 * time.Millisecond

	subscriberBuffer = 8
)

// Config controls navigation.
type Config struct {
	// StartIndex selects the first image; negative means random.
	StartIndex   int
	PreloadDelay time.Duration
}

// DefaultConfig starts at a random image.
func DefaultConfig() Config {
	return Config{StartIndex: -1, PreloadDelay: DefaultPreloadDelay}
}

// Event reports the outcome of resolving the current image.
type Event struct {
	ID         string
	Index      int
	Total      int
	URL        string
	SourceKind imageprovider.SourceKind
	Width      int
	Height     int
	Size       int
	Err        error
	At         time.Time
}

// Position is a snapshot of where the rotator is.
type Position struct {
	Index int
	ID    string
	Total int
}

// Rotator navigates the catalog. It is safe for concurrent use.
type Rotator struct {
	source catalog.Source
	mgr    *lazyqueue.Manager
	cfg    Config
	log    logger.Logger

	mu           sync.Mutex
	ids          []string
	index        map[string]int
	current      int
	generation   uint64
	preloadTimer *time.Timer
	subs         map[string]chan Event
	closed       bool
}

// New creates a rotator over source, loading through mgr.
func New(source catalog.Source, mgr *lazyqueue.Manager, cfg Config, log logger.Logger) *Rotator {
	if cfg.PreloadDelay <= 0 {
		cfg.PreloadDelay = DefaultPreloadDelay
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Rotator{
		source: source,
		mgr:    mgr,
		cfg:    cfg,
		log:    log,
		index:  make(map[string]int),
		subs:   make(map[string]chan Event),
	}
}

// Initialize fetches the id list, installs it in the queue manager and shows
// the first image.
func (r *Rotator) Initialize(ctx context.Context) error {
	ids, err := r.source.IDs(ctx)
	if err == nil && len(ids) == 0 {
		err = errors.New(fmt.Errorf("%w: no images in catalog", catalog.ErrCatalogUnavailable)).
			Component("rotator").
			Category(errors.CategoryCatalog).
			Context("operation", "initialize").
			Build()
	}
	if err != nil {
		r.log.Error("catalog unavailable", logger.Error(err))
		r.publish(Event{Index: -1, Err: err, At: time.Now()})
		return err
	}

	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}
	r.mu.Lock()
	r.ids = ids
	r.index = index
	r.mu.Unlock()
	r.mgr.SetCatalog(ids)

	start := r.cfg.StartIndex
	if start < 0 {
		start = rand.IntN(len(ids)) //nolint:gosec // display order, not security
	}
	r.log.Info("catalog loaded",
		logger.Int("images", len(ids)),
		logger.Int("start_index", start%len(ids)))
	r.show(start)
	return nil
}

// GoToIndex shows the image at i, wrapping around the catalog.
func (r *Rotator) GoToIndex(i int) {
	r.show(i)
}

// Next shows the following image.
func (r *Rotator) Next() {
	r.showRelative(1)
}

// Prev shows the preceding image.
func (r *Rotator) Prev() {
	r.showRelative(-1)
}

// Random shows an image picked by the catalog source, or a locally picked
// one when the source cannot answer with a known id.
func (r *Rotator) Random(ctx context.Context) {
	r.mu.Lock()
	n := len(r.ids)
	r.mu.Unlock()
	if n == 0 {
		return
	}

	id, err := r.source.Random(ctx)
	if err == nil {
		r.mu.Lock()
		idx, ok := r.index[id]
		r.mu.Unlock()
		if ok {
			r.show(idx)
			return
		}
		r.log.Debug("random id not in catalog", logger.String("image_id", id))
	} else {
		r.log.Debug("catalog random failed, picking locally", logger.Error(err))
	}
	r.show(rand.IntN(n)) //nolint:gosec // display order, not security
}

// Current returns the current position.
func (r *Rotator) Current() Position {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := Position{Index: r.current, Total: len(r.ids)}
	if r.current < len(r.ids) {
		p.ID = r.ids[r.current]
	}
	return p
}

// Subscribe returns a channel of current-image events and a function that
// cancels the subscription. Events are dropped for subscribers that fall
// behind.
func (r *Rotator) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	key := uuid.NewString()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	r.subs[key] = ch
	r.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if sub, ok := r.subs[key]; ok {
				delete(r.subs, key)
				close(sub)
			}
		})
	}
}

// Close stops pending preloads and closes every subscription.
func (r *Rotator) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.generation++
	if r.preloadTimer != nil {
		r.preloadTimer.Stop()
	}
	for key, ch := range r.subs {
		delete(r.subs, key)
		close(ch)
	}
}

// show makes index i current. Results for earlier generations are ignored.
func (r *Rotator) show(i int) {
	r.moveTo(func(int) int { return i })
}

// showRelative steps delta images from the current one. The step is taken
// under the lock so concurrent Next and Prev calls never lose a move.
func (r *Rotator) showRelative(delta int) {
	r.moveTo(func(current int) int { return current + delta })
}

func (r *Rotator) moveTo(target func(current int) int) {
	r.mu.Lock()
	n := len(r.ids)
	if n == 0 || r.closed {
		r.mu.Unlock()
		return
	}
	i := target(r.current)
	i = ((i % n) + n) % n
	r.current = i
	r.generation++
	gen := r.generation
	id := r.ids[i]

	if r.preloadTimer != nil {
		r.preloadTimer.Stop()
	}
	r.preloadTimer = time.AfterFunc(r.cfg.PreloadDelay, func() { r.preload(gen) })
	r.mu.Unlock()

	r.log.Debug("showing image", logger.String("image_id", id), logger.Int("index", i))
	r.mgr.SetCurrentIndex(i)
	r.mgr.QueueImage(id, 0, func(id string, img imageprovider.Image, err error) {
		r.deliver(gen, i, n, id, img, err)
	})
}

func (r *Rotator) preload(gen uint64) {
	r.mu.Lock()
	if gen != r.generation {
		r.mu.Unlock()
		return
	}
	idx := r.current
	r.mu.Unlock()
	r.mgr.PreloadAdjacentImages(idx, nil)
}

func (r *Rotator) deliver(gen uint64, index, total int, id string, img imageprovider.Image, err error) {
	ev := Event{
		ID:    id,
		Index: index,
		Total: total,
		Err:   err,
		At:    time.Now(),
	}
	if err == nil {
		ev.URL = img.URL
		ev.SourceKind = img.SourceKind
		ev.Width = img.Width
		ev.Height = img.Height
		ev.Size = img.Size
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.generation {
		r.log.Trace("discarding stale result", logger.String("image_id", id))
		return
	}
	if err != nil {
		r.log.Warn("current image unavailable", logger.String("image_id", id), logger.Error(err))
	}
	r.publishLocked(ev)
}

func (r *Rotator) publish(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publishLocked(ev)
}

func (r *Rotator) publishLocked(ev Event) {
	for key, ch := range r.subs {
		select {
		case ch <- ev:
		default:
			r.log.Debug("subscriber behind, event dropped", logger.String("subscriber", key))
		}
	}
}
