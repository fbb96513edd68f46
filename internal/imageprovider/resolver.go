// Package imageprovider turns an image record into displayable image data.
//
// The Resolver lists candidate URLs for a record in preference order, a
// Loader fetches and validates one candidate, and the Orchestrator walks the
// candidates until one loads:
//
//	remote-thumbnail -> remote-direct -> local
package imageprovider

import (
	"fmt"
	"net/url"

	"github.com/wallrot/wallrot/internal/catalog"
	"github.com/wallrot/wallrot/internal/drivemap"
	"github.com/wallrot/wallrot/internal/errors"
)

// Strategy identifies how a candidate URL was built.
type Strategy string

const (
	StrategyRemoteThumbnail Strategy = "remote-thumbnail"
	StrategyRemoteDirect    Strategy = "remote-direct"
	StrategyLocal           Strategy = "local"
)

// SourceKind is the reported kind of the candidate that produced an image.
type SourceKind string

const (
	SourceRemoteThumbnail SourceKind = "remote-thumbnail"
	SourceRemoteDirect    SourceKind = "remote-direct"
	SourceLocal           SourceKind = "local"
	// SourceLocalFallback is a local win after at least one remote attempt.
	SourceLocalFallback SourceKind = "local-fallback"
)

// IsRemote reports whether k names a remote source.
func (k SourceKind) IsRemote() bool {
	return k == SourceRemoteThumbnail || k == SourceRemoteDirect
}

// Candidate is one URL to try, tagged with the strategy that produced it.
type Candidate struct {
	Strategy Strategy
	URL      string
}

const (
	// DefaultRemoteHost serves Drive thumbnails and direct downloads.
	DefaultRemoteHost = "drive.google.com"
	// DefaultThumbnailWidth is used when responsive sizing is off.
	DefaultThumbnailWidth = 2000
)

// ResolverConfig controls candidate generation.
type ResolverConfig struct {
	RemoteEnabled   bool
	RemoteHost      string
	FallbackToLocal bool
	ThumbnailWidth  int
	// Responsive picks the thumbnail width from ScreenWidth.
	Responsive  bool
	ScreenWidth int
	// LocalBaseURL, when set, turns local references into URLs under it.
	LocalBaseURL string
}

// DefaultResolverConfig returns the stock resolver settings.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		RemoteEnabled:   true,
		RemoteHost:      DefaultRemoteHost,
		FallbackToLocal: true,
		ThumbnailWidth:  DefaultThumbnailWidth,
	}
}

// Size is a named responsive image size.
type Size struct {
	Name     string
	MaxWidth int
}

// Sizes lists the responsive sizes from smallest to largest.
var Sizes = []Size{
	{Name: "small", MaxWidth: 640},
	{Name: "medium", MaxWidth: 1280},
	{Name: "large", MaxWidth: 1920},
	{Name: "xlarge", MaxWidth: 2560},
}

// SizeForScreen returns the smallest size at least as wide as the screen.
func SizeForScreen(width int) Size {
	for _, s := range Sizes {
		if width <= s.MaxWidth {
			return s
		}
	}
	return Sizes[len(Sizes)-1]
}

// RequestWidth is the sz=w<N> value the resolver will request.
func (c ResolverConfig) RequestWidth() int {
	if c.Responsive && c.ScreenWidth > 0 {
		return SizeForScreen(c.ScreenWidth).MaxWidth
	}
	if c.ThumbnailWidth > 0 {
		return c.ThumbnailWidth
	}
	return DefaultThumbnailWidth
}

func (c ResolverConfig) host() string {
	if c.RemoteHost == "" {
		return DefaultRemoteHost
	}
	return c.RemoteHost
}

// ValidateRemoteRef extracts the Drive file id from ref.
func ValidateRemoteRef(ref string) (string, error) {
	id, ok := drivemap.ExtractFileID(ref)
	if !ok {
		return "", errors.New(fmt.Errorf("%w: %q", ErrInvalidReference, ref)).
			Component("imageprovider").
			Category(errors.CategoryValidation).
			Context("operation", "validate_remote_ref").
			Build()
	}
	return id, nil
}

// ResolveCandidates lists the URLs to try for rec, most preferred first.
// The result is never empty. Records with a malformed remote reference only
// get the local candidate.
func ResolveCandidates(rec catalog.ImageRecord, cfg ResolverConfig) []Candidate {
	candidates := make([]Candidate, 0, 3)

	if cfg.RemoteEnabled && rec.HasRemote() {
		if fileID, err := ValidateRemoteRef(rec.RemoteRef); err == nil {
			id := url.QueryEscape(fileID)
			candidates = append(candidates,
				Candidate{
					Strategy: StrategyRemoteThumbnail,
					URL:      fmt.Sprintf("https://%s/thumbnail?id=%s&sz=w%d", cfg.host(), id, cfg.RequestWidth()),
				},
				Candidate{
					Strategy: StrategyRemoteDirect,
					URL:      fmt.Sprintf("https://%s/uc?export=view&id=%s", cfg.host(), id),
				})
		}
	}

	if len(candidates) > 0 && !cfg.FallbackToLocal {
		return candidates
	}
	return append(candidates, Candidate{Strategy: StrategyLocal, URL: localURL(rec.LocalRef, cfg.LocalBaseURL)})
}

func localURL(localRef, base string) string {
	if base == "" {
		return localRef
	}
	joined, err := url.JoinPath(base, localRef)
	if err != nil {
		return localRef
	}
	return joined
}
