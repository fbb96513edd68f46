// Package drivemap maintains the mapping from local wallpaper file names to
// Google Drive file ids (google-drive-mapping.json).
//
// The file is a flat JSON object. Keys such as README and NOTE carry
// human-readable notes and are preserved untouched; EXAMPLE* keys are
// placeholders shipped with the template and never treated as real uploads.
package drivemap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/antonholmquist/jason"

	"github.com/wallrot/wallrot/internal/errors"
)

// DefaultFileName is the conventional mapping file name.
const DefaultFileName = "google-drive-mapping.json"

var metadataKeys = map[string]bool{
	"README": true,
	"NOTE":   true,
}

// Mapping associates image file names with Drive file ids.
// A Mapping is not safe for concurrent mutation.
type Mapping struct {
	files map[string]string
	meta  map[string]json.RawMessage
}

// New returns an empty mapping.
func New() *Mapping {
	return &Mapping{
		files: make(map[string]string),
		meta:  make(map[string]json.RawMessage),
	}
}

// IsMetadataKey reports whether key is a note rather than a file entry.
func IsMetadataKey(key string) bool {
	return metadataKeys[key] || strings.HasPrefix(key, "_")
}

// IsExampleKey reports whether key is a template placeholder.
func IsExampleKey(key string) bool {
	return strings.HasPrefix(strings.ToUpper(key), "EXAMPLE")
}

// Load reads a mapping file. A missing file yields an empty mapping.
func Load(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, errors.New(err).
			Component("drivemap").
			Category(errors.CategoryFileIO).
			Context("operation", "load_mapping").
			Build()
	}
	defer f.Close()

	m, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("mapping file %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a mapping object. String values become file entries unless
// the key is a metadata key; any other value is kept as metadata.
func Parse(r io.Reader) (*Mapping, error) {
	obj, err := jason.NewObjectFromReader(r)
	if err != nil {
		return nil, errors.New(err).
			Component("drivemap").
			Category(errors.CategoryFileParsing).
			Context("operation", "parse_mapping").
			Build()
	}

	m := New()
	for key, value := range obj.Map() {
		id, strErr := value.String()
		if strErr != nil || IsMetadataKey(key) {
			raw, err := value.Marshal()
			if err != nil {
				return nil, errors.New(err).
					Component("drivemap").
					Category(errors.CategoryFileParsing).
					Context("operation", "parse_mapping").
					Context("key", key).
					Build()
			}
			m.meta[key] = json.RawMessage(raw)
			continue
		}
		m.files[key] = strings.TrimSpace(id)
	}
	return m, nil
}

// Get returns the Drive file id mapped to name.
func (m *Mapping) Get(name string) (string, bool) {
	id, ok := m.files[name]
	return id, ok && id != ""
}

// Set maps name to a Drive file id.
func (m *Mapping) Set(name, fileID string) {
	m.files[name] = fileID
}

// Merge adds or replaces entries and returns how many keys changed.
func (m *Mapping) Merge(entries map[string]string) int {
	changed := 0
	for name, id := range entries {
		if IsMetadataKey(name) {
			continue
		}
		if m.files[name] != id {
			changed++
		}
		m.files[name] = id
	}
	return changed
}

// Files returns the mapped file names, sorted, without example placeholders.
func (m *Mapping) Files() []string {
	names := make([]string, 0, len(m.files))
	for name := range m.files {
		if !IsExampleKey(name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Examples returns the placeholder keys, sorted.
func (m *Mapping) Examples() []string {
	var names []string
	for name := range m.files {
		if IsExampleKey(name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Len is the number of real (non-example) file entries.
func (m *Mapping) Len() int {
	return len(m.Files())
}

// Entries returns a copy of the real file entries.
func (m *Mapping) Entries() map[string]string {
	out := make(map[string]string, len(m.files))
	for _, name := range m.Files() {
		out[name] = m.files[name]
	}
	return out
}

// MarshalJSON writes metadata and file entries as one flat object.
func (m *Mapping) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(m.files)+len(m.meta))
	for k, v := range m.meta {
		flat[k] = v
	}
	for k, v := range m.files {
		flat[k] = v
	}
	return json.Marshal(flat)
}

// Save writes the mapping to path with two-space indentation via a temp file.
func (m *Mapping) Save(path string) error {
	raw, err := m.MarshalJSON()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create mapping directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".mapping-*.json")
	if err != nil {
		return fmt.Errorf("create temp mapping file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write mapping: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close mapping: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

var (
	fileIDPattern  = regexp.MustCompile(`^[A-Za-z0-9_-]{10,}$`)
	exportIDRegex  = regexp.MustCompile(`export=view&id=([A-Za-z0-9_-]+)`)
	filePathRegex  = regexp.MustCompile(`/file/d/([A-Za-z0-9_-]+)`)
	queryIDRegex   = regexp.MustCompile(`[?&]id=([A-Za-z0-9_-]+)`)
	idExtractRules = []*regexp.Regexp{exportIDRegex, filePathRegex, queryIDRegex}
)

// ExtractFileID returns the Drive file id in ref. ref may be a bare id, a
// uc?export=view link, a /file/d/<id>/view link, or any URL with an id
// query parameter.
func ExtractFileID(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	if fileIDPattern.MatchString(ref) {
		return ref, true
	}
	for _, re := range idExtractRules {
		if m := re.FindStringSubmatch(ref); m != nil && fileIDPattern.MatchString(m[1]) {
			return m[1], true
		}
	}
	return "", false
}
