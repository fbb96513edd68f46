package catalog

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/wallrot/wallrot/internal/errors"
)

// Sentinel errors returned (wrapped) by catalog sources.
var (
	// ErrCatalogUnavailable means the id list or a record could not be fetched.
	ErrCatalogUnavailable = errors.NewStd("catalog unavailable")
	// ErrRecordNotFound means the catalog has no record for the id.
	ErrRecordNotFound = errors.NewStd("image record not found")
)

// Source provides the ordered id list and per-id records.
type Source interface {
	// IDs returns every image id in display order.
	IDs(ctx context.Context) ([]string, error)
	// Lookup returns the record for id.
	Lookup(ctx context.Context, id string) (ImageRecord, error)
	// Random returns a random image id.
	Random(ctx context.Context) (string, error)
}

func unavailable(op string, err error) error {
	return errors.New(fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)).
		Component("catalog").
		Category(errors.CategoryCatalog).
		Context("operation", op).
		Build()
}

func notFound(id string) error {
	return errors.New(fmt.Errorf("%w: %s", ErrRecordNotFound, id)).
		Component("catalog").
		Category(errors.CategoryNotFound).
		Context("image_id", id).
		Build()
}

// FileSource serves records from a payload list held in memory.
type FileSource struct {
	mu      sync.RWMutex
	ids     []string
	records map[string]ImageRecord
	skipped int
}

// NewFileSource builds a source from payloads. Payloads that cannot be turned
// into records are skipped and counted.
func NewFileSource(payloads []Payload) *FileSource {
	s := &FileSource{}
	s.Replace(payloads)
	return s
}

// OpenFileSource reads a catalog file and builds a source from it.
func OpenFileSource(path string) (*FileSource, error) {
	payloads, err := ReadFile(path)
	if err != nil {
		return nil, unavailable("open_catalog_file", err)
	}
	return NewFileSource(payloads), nil
}

// Replace swaps the source's contents.
func (s *FileSource) Replace(payloads []Payload) {
	ids := make([]string, 0, len(payloads))
	records := make(map[string]ImageRecord, len(payloads))
	skipped := 0
	for _, p := range payloads {
		rec, err := p.Record()
		if err != nil {
			skipped++
			continue
		}
		if _, dup := records[rec.ID]; dup {
			skipped++
			continue
		}
		ids = append(ids, rec.ID)
		records[rec.ID] = rec
	}

	s.mu.Lock()
	s.ids = ids
	s.records = records
	s.skipped = skipped
	s.mu.Unlock()
}

// Skipped is the number of payloads dropped by the last Replace.
func (s *FileSource) Skipped() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.skipped
}

// IDs implements Source.
func (s *FileSource) IDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.ids...), nil
}

// Lookup implements Source.
func (s *FileSource) Lookup(_ context.Context, id string) (ImageRecord, error) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return ImageRecord{}, notFound(id)
	}
	return rec, nil
}

// Random implements Source.
func (s *FileSource) Random(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.ids) == 0 {
		return "", unavailable("random", errors.NewStd("catalog is empty"))
	}
	return s.ids[rand.IntN(len(s.ids))], nil //nolint:gosec // display order, not security
}
