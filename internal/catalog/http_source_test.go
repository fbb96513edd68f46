package catalog

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallrot/wallrot/internal/httpclient"
)

const testServer = "http://wallrot.test"

func newMockedSource(t *testing.T) (*HTTPSource, *httpmock.MockTransport) {
	t.Helper()
	mock := httpmock.NewMockTransport()
	client := httpclient.New(&httpclient.Config{Transport: mock})
	t.Cleanup(client.Close)
	return NewHTTPSource(testServer+"/", client, nil), mock
}

func TestHTTPSourceIDs(t *testing.T) {
	src, mock := newMockedSource(t)
	mock.RegisterResponder(http.MethodGet, testServer+"/api/images",
		httpmock.NewStringResponder(http.StatusOK, `["a.png","b.jpg"]`))

	ids, err := src.IDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "b.jpg"}, ids)
}

func TestHTTPSourceIDsUnavailable(t *testing.T) {
	src, mock := newMockedSource(t)
	mock.RegisterResponder(http.MethodGet, testServer+"/api/images",
		httpmock.NewStringResponder(http.StatusInternalServerError, `{"error":"boom"}`))

	_, err := src.IDs(context.Background())
	require.ErrorIs(t, err, ErrCatalogUnavailable)
}

func TestHTTPSourceLookupIsCached(t *testing.T) {
	src, mock := newMockedSource(t)
	mock.RegisterResponder(http.MethodGet, testServer+"/api/records/x.png",
		httpmock.NewStringResponder(http.StatusOK,
			`{"id":"x.png","path":"https://drive.google.com/uc?export=view&id=1XXXXXXXXXXX","type":"png","source":"google-drive","localPath":"wp/x.png","driveFileId":"1XXXXXXXXXXX"}`))

	ctx := context.Background()
	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			rec, err := src.Lookup(ctx, "x.png")
			assert.NoError(t, err)
			assert.Equal(t, "1XXXXXXXXXXX", rec.RemoteRef)
			assert.Equal(t, "wp/x.png", rec.LocalRef)
		})
	}
	wg.Wait()

	_, err := src.Lookup(ctx, "x.png")
	require.NoError(t, err)

	assert.LessOrEqual(t, mock.GetTotalCallCount(), 8)
	assert.Equal(t, 1, src.CachedRecords())

	calls := mock.GetTotalCallCount()
	_, err = src.Lookup(ctx, "x.png")
	require.NoError(t, err)
	assert.Equal(t, calls, mock.GetTotalCallCount(), "cached lookups make no request")
}

func TestHTTPSourceLookupNotFound(t *testing.T) {
	src, mock := newMockedSource(t)
	mock.RegisterResponder(http.MethodGet, testServer+"/api/records/missing.png",
		httpmock.NewStringResponder(http.StatusNotFound, `{"error":"Image not found"}`))

	_, err := src.Lookup(context.Background(), "missing.png")
	require.ErrorIs(t, err, ErrRecordNotFound)
	assert.NotErrorIs(t, err, ErrCatalogUnavailable)
}

func TestHTTPSourceRandom(t *testing.T) {
	src, mock := newMockedSource(t)
	mock.RegisterResponder(http.MethodGet, testServer+"/api/random",
		httpmock.NewStringResponder(http.StatusOK, `{"id":"b.jpg"}`))

	id, err := src.Random(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b.jpg", id)

	mock.RegisterResponder(http.MethodGet, testServer+"/api/random",
		httpmock.NewStringResponder(http.StatusOK, `{}`))
	_, err = src.Random(context.Background())
	require.ErrorIs(t, err, ErrCatalogUnavailable)
}
