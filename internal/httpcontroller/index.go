package httpcontroller

import (
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/patrickmn/go-cache"

	"github.com/wallrot/wallrot/internal/catalog"
	"github.com/wallrot/wallrot/internal/logger"
)

const (
	listingKey = "image-ids"
	// listingTTL bounds staleness when the directory cannot be watched.
	listingTTL = 30 * time.Second
)

// imageIndex caches the image directory listing and drops the cached copy
// whenever the directory changes.
type imageIndex struct {
	dir     string
	cache   *cache.Cache
	watcher *fsnotify.Watcher
	log     logger.Logger

	closeOnce sync.Once
	wg        sync.WaitGroup
}

func newImageIndex(dir string, log logger.Logger) (*imageIndex, error) {
	idx := &imageIndex{
		dir: dir,
		// No cleanup janitor: expired listings are simply rebuilt on the next read.
		cache: cache.New(listingTTL, 0),
		log:   log,
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("directory watcher unavailable, relying on listing TTL", logger.Error(err))
		return idx, nil
	}
	if err := watcher.Add(dir); err != nil {
		log.Warn("cannot watch image directory, relying on listing TTL",
			logger.String("dir", dir), logger.Error(err))
		_ = watcher.Close()
		return idx, nil
	}

	idx.watcher = watcher
	idx.wg.Add(1)
	go idx.watch()
	return idx, nil
}

func (idx *imageIndex) watch() {
	defer idx.wg.Done()
	for {
		select {
		case ev, ok := <-idx.watcher.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				idx.cache.Delete(listingKey)
				idx.log.Debug("image directory changed",
					logger.String("file", filepath.Base(ev.Name)),
					logger.String("op", ev.Op.String()))
			}
		case err, ok := <-idx.watcher.Errors:
			if !ok {
				return
			}
			idx.cache.Delete(listingKey)
			idx.log.Warn("directory watcher error", logger.Error(err))
		}
	}
}

// IDs returns the sorted image file names.
func (idx *imageIndex) IDs() ([]string, error) {
	if cached, ok := idx.cache.Get(listingKey); ok {
		return cached.([]string), nil
	}
	ids, err := catalog.ScanDir(idx.dir)
	if err != nil {
		return nil, err
	}
	idx.cache.SetDefault(listingKey, ids)
	return ids, nil
}

// Has reports whether id is a listed image.
func (idx *imageIndex) Has(id string) (bool, error) {
	ids, err := idx.IDs()
	if err != nil {
		return false, err
	}
	_, found := slices.BinarySearch(ids, id)
	return found, nil
}

// Path returns the file path of a listed image.
func (idx *imageIndex) Path(id string) string {
	return filepath.Join(idx.dir, id)
}

// Invalidate drops the cached listing.
func (idx *imageIndex) Invalidate() {
	idx.cache.Delete(listingKey)
}

// Close stops the watcher goroutine.
func (idx *imageIndex) Close() error {
	var err error
	idx.closeOnce.Do(func() {
		if idx.watcher != nil {
			err = idx.watcher.Close()
		}
		idx.wg.Wait()
	})
	return err
}
