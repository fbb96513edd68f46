package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"

	"github.com/wallrot/wallrot/internal/drivemap"
	"github.com/wallrot/wallrot/internal/errors"
)

// BuildOptions controls catalog generation.
type BuildOptions struct {
	// LocalImagePath prefixes local references, e.g. "wp/".
	LocalImagePath string
	// UseGoogleDrive merges Drive file ids from the mapping.
	UseGoogleDrive bool
	// RemoteHost is the Drive host used for path and thumbnail links.
	RemoteHost string
	// ThumbnailWidth is the sz=w<N> width of generated thumbnail links.
	ThumbnailWidth int
}

// DefaultBuildOptions mirrors the stock configuration.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		LocalImagePath: "wp/",
		UseGoogleDrive: true,
		RemoteHost:     "drive.google.com",
		ThumbnailWidth: 2000,
	}
}

// ScanDir lists the image files directly inside dir, sorted by name.
func ScanDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.New(err).
			Component("catalog").
			Category(errors.CategoryFileIO).
			Context("operation", "scan_image_dir").
			Context("dir", dir).
			Build()
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && IsImageFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

// Build scans dir and produces one payload per image. When opts.UseGoogleDrive
// is set and mapping holds a valid id for a file, the payload points at Drive
// and keeps the local path for fallback. mapping may be nil.
func Build(dir string, mapping *drivemap.Mapping, opts BuildOptions) ([]Payload, error) {
	names, err := ScanDir(dir)
	if err != nil {
		return nil, err
	}

	payloads := make([]Payload, 0, len(names))
	for _, name := range names {
		payloads = append(payloads, BuildPayload(name, mapping, opts))
	}
	return payloads, nil
}

// BuildPayload produces the payload for a single file name.
func BuildPayload(name string, mapping *drivemap.Mapping, opts BuildOptions) Payload {
	localPath := path.Join(opts.LocalImagePath, name)
	p := Payload{
		ID:     name,
		Path:   localPath,
		Type:   Extension(name),
		Source: SourceLocal,
	}

	if !opts.UseGoogleDrive || mapping == nil {
		return p
	}
	ref, ok := mapping.Get(name)
	if !ok {
		return p
	}
	fileID, ok := drivemap.ExtractFileID(ref)
	if !ok {
		return p
	}

	host := opts.RemoteHost
	if host == "" {
		host = "drive.google.com"
	}
	width := opts.ThumbnailWidth
	if width <= 0 {
		width = 2000
	}
	q := url.QueryEscape(fileID)
	p.Source = SourceGoogleDrive
	p.Path = fmt.Sprintf("https://%s/uc?export=view&id=%s", host, q)
	p.DriveFileID = fileID
	p.ThumbnailURL = fmt.Sprintf("https://%s/thumbnail?id=%s&sz=w%d", host, q, width)
	p.LocalPath = localPath
	return p
}

// WriteFile writes payloads as an indented JSON array, creating the parent
// directory when needed.
func WriteFile(filePath string, payloads []Payload) error {
	if payloads == nil {
		payloads = []Payload{}
	}
	data, err := json.MarshalIndent(payloads, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return errors.New(err).
			Component("catalog").
			Category(errors.CategoryFileIO).
			Context("operation", "create_data_dir").
			Build()
	}
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return errors.New(err).
			Component("catalog").
			Category(errors.CategoryFileIO).
			Context("operation", "write_catalog").
			FileContext(filePath, int64(len(data))).
			Build()
	}
	return nil
}

// ReadFile loads a catalog file written by WriteFile.
func ReadFile(filePath string) ([]Payload, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.New(err).
			Component("catalog").
			Category(errors.CategoryFileIO).
			Context("operation", "read_catalog").
			Build()
	}
	return Decode(data)
}

// Decode parses a catalog JSON array.
func Decode(data []byte) ([]Payload, error) {
	var payloads []Payload
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&payloads); err != nil {
		return nil, errors.New(err).
			Component("catalog").
			Category(errors.CategoryFileParsing).
			Context("operation", "decode_catalog").
			Build()
	}
	return payloads, nil
}
