package catalog

import (
	"github.com/wallrot/wallrot/internal/drivemap"
)

// Payload is the JSON form of a record, as stored in images.json and served
// by the records API.
type Payload struct {
	ID           string `json:"id"`
	Path         string `json:"path"`
	Type         string `json:"type"`
	Source       string `json:"source"`
	LocalPath    string `json:"localPath,omitempty"`
	DriveFileID  string `json:"driveFileId,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

// Record converts the payload into an ImageRecord. The remote reference is
// driveFileId, or the id embedded in path for Drive-sourced payloads; the
// local reference is localPath, else path, else the id itself for Drive
// payloads that carry no local copy.
func (p Payload) Record() (ImageRecord, error) {
	remote := p.DriveFileID
	if remote == "" && p.Source == SourceGoogleDrive {
		if id, ok := drivemap.ExtractFileID(p.Path); ok {
			remote = id
		}
	}

	local := p.LocalPath
	if local == "" {
		local = p.Path
		if p.Source == SourceGoogleDrive {
			local = p.ID
		}
	}
	return NewRecord(p.ID, remote, local)
}
