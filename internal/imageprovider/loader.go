package imageprovider

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	// Registered decoders for DecodeConfig validation.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp"

	"github.com/wallrot/wallrot/internal/errors"
	"github.com/wallrot/wallrot/internal/httpclient"
	"github.com/wallrot/wallrot/internal/logger"
)

const (
	// DefaultLoadTimeout bounds a single candidate load.
	DefaultLoadTimeout = 5 * time.Second
	// DefaultMaxBytes caps the size of a loaded image.
	DefaultMaxBytes int64 = 32 << 20
)

// Image is a successfully loaded and validated image.
type Image struct {
	ID          string
	URL         string
	Strategy    Strategy
	SourceKind  SourceKind
	ContentType string
	Width       int
	Height      int
	Data        []byte
	Size        int
}

// Loader fetches and validates the image at a URL.
type Loader interface {
	Load(ctx context.Context, url string) (Image, error)
}

// LoadWithTimeout runs l.Load with a per-attempt deadline derived from ctx.
func LoadWithTimeout(ctx context.Context, l Loader, target string, timeout time.Duration) (Image, error) {
	if timeout <= 0 {
		timeout = DefaultLoadTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return l.Load(ctx, target)
}

// Background marks ctx as a preload so remote loads may be rate limited.
func Background(ctx context.Context) context.Context {
	return httpclient.Background(ctx)
}

// decode validates data as an image and fills in its dimensions.
func decode(data []byte, target string) (Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("decode %s: %w", target, err)
	}
	return Image{
		URL:         target,
		ContentType: "image/" + format,
		Width:       cfg.Width,
		Height:      cfg.Height,
		Data:        data,
		Size:        len(data),
	}, nil
}

func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("image larger than %d bytes", maxBytes)
	}
	return data, nil
}

// HTTPLoader loads remote images through the shared HTTP client.
type HTTPLoader struct {
	client   *httpclient.Client
	maxBytes int64
	log      logger.Logger
}

// NewHTTPLoader creates an HTTP loader. maxBytes <= 0 selects DefaultMaxBytes.
func NewHTTPLoader(client *httpclient.Client, maxBytes int64, log logger.Logger) *HTTPLoader {
	if client == nil {
		client = httpclient.New(nil)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &HTTPLoader{client: client, maxBytes: maxBytes, log: log}
}

// Load implements Loader. Non-2xx responses, non-image content types and
// undecodable bodies are load errors; an expired deadline is a timeout.
func (l *HTTPLoader) Load(ctx context.Context, target string) (Image, error) {
	requestID := uuid.NewString()
	deadline := remaining(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return Image{}, loadFailure(ctx, "build_request", target, deadline, err)
	}
	req.Header.Set("Accept", "image/*")
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := l.client.Do(ctx, req)
	if err != nil {
		return Image{}, loadFailure(ctx, "http_get", target, deadline, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Image{}, loadFailure(ctx, "http_status", target, deadline,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return Image{}, loadFailure(ctx, "content_type", target, deadline,
			fmt.Errorf("unexpected content type %q", resp.Header.Get("Content-Type")))
	}

	data, err := readLimited(resp.Body, l.maxBytes)
	if err != nil {
		return Image{}, loadFailure(ctx, "read_body", target, deadline, err)
	}

	img, err := decode(data, target)
	if err != nil {
		return Image{}, loadFailure(ctx, "decode", target, deadline, err)
	}

	if l.log != nil {
		l.log.Trace("remote image loaded",
			logger.String("request_id", requestID),
			logger.String("content_type", img.ContentType),
			logger.Int("bytes", img.Size),
			logger.Duration("duration", time.Since(start)))
	}
	return img, nil
}

func remaining(ctx context.Context) time.Duration {
	if d, ok := ctx.Deadline(); ok {
		return time.Until(d)
	}
	return 0
}

// FileLoader loads images from the local filesystem. When Root is set,
// paths are resolved inside it and may not escape it.
type FileLoader struct {
	Root     string
	MaxBytes int64
	// Prefix is stripped from relative references first, so catalog paths
	// like "wp/a.jpg" resolve against an image directory Root.
	Prefix string
}

// Load implements Loader.
func (l *FileLoader) Load(ctx context.Context, target string) (Image, error) {
	if err := ctx.Err(); err != nil {
		return Image{}, loadFailure(ctx, "open_file", target, 0, err)
	}

	f, err := l.open(target)
	if err != nil {
		return Image{}, loadFailure(ctx, "open_file", target, 0, err)
	}
	defer f.Close()

	data, err := readLimited(f, l.MaxBytes)
	if err != nil {
		return Image{}, loadFailure(ctx, "read_file", target, 0, err)
	}
	if err := ctx.Err(); err != nil {
		return Image{}, loadFailure(ctx, "read_file", target, 0, err)
	}

	img, err := decode(data, target)
	if err != nil {
		return Image{}, loadFailure(ctx, "decode", target, 0, err)
	}
	return img, nil
}

func (l *FileLoader) open(name string) (*os.File, error) {
	if l.Prefix != "" && !filepath.IsAbs(name) {
		name = strings.TrimPrefix(filepath.ToSlash(name), l.Prefix)
	}
	if l.Root == "" {
		return os.Open(name)
	}
	if filepath.IsAbs(name) {
		root, err := filepath.Abs(l.Root)
		if err != nil {
			return nil, err
		}
		if name, err = filepath.Rel(root, name); err != nil {
			return nil, err
		}
	}
	// OpenInRoot rejects paths that escape the root, symlinks included.
	return os.OpenInRoot(l.Root, filepath.FromSlash(name))
}

// RoutingLoader dispatches on the URL scheme: http and https go to HTTP,
// file URLs and plain paths go to File. A target without "://" is a path
// and is never URL-decoded, so names like "100%.png" stay loadable.
type RoutingLoader struct {
	HTTP Loader
	File Loader
}

// Load implements Loader.
func (l *RoutingLoader) Load(ctx context.Context, target string) (Image, error) {
	if !strings.Contains(target, "://") {
		if l.File != nil {
			return l.File.Load(ctx, target)
		}
		return Image{}, errors.New(fmt.Errorf("%w: no loader for local path %q", ErrLoadError, target)).
			Component("imageprovider").
			Category(errors.CategoryImageLoad).
			Context("operation", "route").
			Build()
	}

	u, err := url.Parse(target)
	if err != nil {
		return Image{}, loadFailure(ctx, "parse_url", target, 0, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if l.HTTP != nil {
			return l.HTTP.Load(ctx, target)
		}
	case "file":
		if l.File != nil {
			return l.File.Load(ctx, u.Path)
		}
	}
	return Image{}, errors.New(fmt.Errorf("%w: no loader for scheme %q", ErrLoadError, u.Scheme)).
		Component("imageprovider").
		Category(errors.CategoryImageLoad).
		Context("operation", "route").
		Build()
}
