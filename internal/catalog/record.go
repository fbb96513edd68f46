// Package catalog describes the wallpaper collection: the immutable image
// records, the images.json payload format, catalog generation from an image
// directory, and the sources a client reads the catalog from.
package catalog

import (
	"path"
	"strings"

	"github.com/wallrot/wallrot/internal/errors"
)

// Source values used in payloads.
const (
	SourceGoogleDrive = "google-drive"
	SourceLocal       = "local"
)

var mimeTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// Extension returns the lower-cased extension of name without the dot.
func Extension(name string) string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
}

// MimeTypeFor maps a file name to its image mime type.
func MimeTypeFor(name string) string {
	if mt, ok := mimeTypes[Extension(name)]; ok {
		return mt
	}
	return "application/octet-stream"
}

// IsImageFile reports whether name has a supported image extension.
func IsImageFile(name string) bool {
	_, ok := mimeTypes[Extension(name)]
	return ok
}

// ImageRecord is one entry of the collection. Records are immutable after
// construction; use NewRecord to build one.
type ImageRecord struct {
	ID        string // stable identifier, the file name
	RemoteRef string // Drive file id or link, empty when remote is unavailable
	LocalRef  string // local asset reference, never empty
	MimeType  string
}

// NewRecord validates and builds an ImageRecord.
func NewRecord(id, remoteRef, localRef string) (ImageRecord, error) {
	id = strings.TrimSpace(id)
	localRef = strings.TrimSpace(localRef)
	if id == "" || localRef == "" {
		return ImageRecord{}, errors.Newf("image record needs an id and a local reference (id=%q, localRef=%q)", id, localRef).
			Component("catalog").
			Category(errors.CategoryValidation).
			Context("operation", "new_record").
			Build()
	}
	return ImageRecord{
		ID:        id,
		RemoteRef: strings.TrimSpace(remoteRef),
		LocalRef:  localRef,
		MimeType:  MimeTypeFor(localRef),
	}, nil
}

// HasRemote reports whether the record carries a remote reference.
func (r ImageRecord) HasRemote() bool {
	return r.RemoteRef != ""
}
