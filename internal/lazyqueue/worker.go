package lazyqueue

import (
	"context"
	"time"

	"github.com/wallrot/wallrot/internal/imageprovider"
	"github.com/wallrot/wallrot/internal/logger"
)

// Start launches the worker goroutine. Calling Start twice is a no-op.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true

	ctx, m.cancel = context.WithCancel(ctx)
	m.wg.Add(1)
	go m.processQueue(ctx)
}

// Close stops the worker and waits for it to exit. Callbacks still pending
// are dropped.
func (m *Manager) Close() {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()

	m.mu.Lock()
	clear(m.callbacks)
	m.mu.Unlock()
}

func (m *Manager) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// dequeue pops the head of the queue.
func (m *Manager) dequeue() (QueueEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return QueueEntry{}, false
	}
	head := *m.queue[0]
	m.queue[0] = nil
	m.queue = m.queue[1:]
	m.inFlight = head.ImageID
	depth := len(m.queue)
	m.metrics.SetQueueDepth(depth)
	return head, true
}

// processQueue drains the queue one load at a time until ctx is cancelled.
func (m *Manager) processQueue(ctx context.Context) {
	defer m.wg.Done()

	for {
		entry, ok := m.dequeue()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-m.wake:
				continue
			}
		}

		img, err := m.loadImage(ctx, entry)
		if ctx.Err() != nil {
			return
		}

		m.mu.Lock()
		cbs := m.callbacks[entry.ImageID]
		delete(m.callbacks, entry.ImageID)
		m.mu.Unlock()

		for _, cb := range cbs {
			cb(entry.ImageID, img, err)
		}

		if err == nil {
			m.ClearOldImages()
		}

		if m.cfg.DrainDelay > 0 {
			timer := time.NewTimer(m.cfg.DrainDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}
}

// loadImage returns the cached image for the entry or resolves it. Entries
// queued with a priority above zero are preloads and run as background loads.
func (m *Manager) loadImage(ctx context.Context, entry QueueEntry) (imageprovider.Image, error) {
	id := entry.ImageID

	m.mu.Lock()
	if le, ok := m.loaded[id]; ok {
		m.inFlight = ""
		m.stats.CacheHits++
		m.mu.Unlock()
		m.metrics.IncrementCacheHits()
		return le.Image, nil
	}
	m.mu.Unlock()

	start := time.Now()
	img, err := m.resolve(ctx, entry)

	m.mu.Lock()
	m.inFlight = ""
	if err != nil {
		m.stats.Failures++
		m.mu.Unlock()
		m.metrics.RecordLoad("error")
		m.log.Debug("queued load failed",
			logger.String("image_id", id),
			logger.Int("priority", entry.Priority),
			logger.Error(err))
		return imageprovider.Image{}, err
	}

	m.loaded[id] = &LoadedEntry{
		ImageID:  id,
		Image:    img,
		Position: m.current,
		LoadedAt: time.Now(),
	}
	m.stats.Loads++
	cached := len(m.loaded)
	m.mu.Unlock()

	m.metrics.RecordLoad("success")
	m.metrics.SetCacheEntries(cached)
	m.log.Debug("queued load finished",
		logger.String("image_id", id),
		logger.Int("priority", entry.Priority),
		logger.String("source_kind", string(img.SourceKind)),
		logger.Duration("duration", time.Since(start)))
	return img, nil
}

func (m *Manager) resolve(ctx context.Context, entry QueueEntry) (imageprovider.Image, error) {
	rec, err := m.records.Lookup(ctx, entry.ImageID)
	if err != nil {
		return imageprovider.Image{}, err
	}
	if entry.Priority > 0 {
		ctx = imageprovider.Background(ctx)
	}
	return m.resolver.ResolveImage(ctx, rec)
}
