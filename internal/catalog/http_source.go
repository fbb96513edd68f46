package catalog

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/wallrot/wallrot/internal/errors"
	"github.com/wallrot/wallrot/internal/httpclient"
	"github.com/wallrot/wallrot/internal/logger"
)

// HTTPSource reads the catalog from a wallrot server's JSON API. Records are
// cached for the lifetime of the source and concurrent lookups of the same
// id share one request.
type HTTPSource struct {
	baseURL string
	client  *httpclient.Client
	records *cache.Cache
	group   singleflight.Group
	log     logger.Logger
}

// NewHTTPSource creates a source for the server at baseURL.
func NewHTTPSource(baseURL string, client *httpclient.Client, log logger.Logger) *HTTPSource {
	if client == nil {
		client = httpclient.New(nil)
	}
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		// Records never change while a client runs, so nothing expires and
		// no janitor goroutine is needed.
		records: cache.New(cache.NoExpiration, 0),
		log:     log,
	}
}

func (s *HTTPSource) endpoint(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return s.baseURL + "/api/" + strings.Join(escaped, "/")
}

// IDs implements Source.
func (s *HTTPSource) IDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.client.GetJSON(ctx, s.endpoint("images"), &ids); err != nil {
		return nil, unavailable("list_images", err)
	}
	return ids, nil
}

// Lookup implements Source.
func (s *HTTPSource) Lookup(ctx context.Context, id string) (ImageRecord, error) {
	if cached, ok := s.records.Get(id); ok {
		return cached.(ImageRecord), nil
	}

	v, err, shared := s.group.Do(id, func() (any, error) {
		start := time.Now()
		var p Payload
		if err := s.client.GetJSON(ctx, s.endpoint("records", id), &p); err != nil {
			var statusErr *httpclient.StatusError
			if errors.As(err, &statusErr) && statusErr.StatusCode == 404 {
				return nil, notFound(id)
			}
			return nil, unavailable("lookup_record", err)
		}
		rec, err := p.Record()
		if err != nil {
			return nil, err
		}
		s.records.Set(id, rec, cache.NoExpiration)
		if s.log != nil {
			s.log.Debug("fetched image record",
				logger.String("image_id", id),
				logger.Bool("remote", rec.HasRemote()),
				logger.Duration("duration", time.Since(start)))
		}
		return rec, nil
	})
	if err != nil {
		return ImageRecord{}, err
	}
	if shared && s.log != nil {
		s.log.Trace("shared in-flight record lookup", logger.String("image_id", id))
	}
	return v.(ImageRecord), nil
}

// Random implements Source.
func (s *HTTPSource) Random(ctx context.Context) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	if err := s.client.GetJSON(ctx, s.endpoint("random"), &resp); err != nil {
		return "", unavailable("random", err)
	}
	if resp.ID == "" {
		return "", unavailable("random", errors.NewStd("empty id in random response"))
	}
	return resp.ID, nil
}

// CachedRecords is the number of records held in the lookup cache.
func (s *HTTPSource) CachedRecords() int {
	return s.records.ItemCount()
}
