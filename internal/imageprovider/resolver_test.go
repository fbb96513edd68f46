package imageprovider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallrot/wallrot/internal/catalog"
)

func mustRecord(t *testing.T, id, remote, local string) catalog.ImageRecord {
	t.Helper()
	rec, err := catalog.NewRecord(id, remote, local)
	require.NoError(t, err)
	return rec
}

func TestResolveCandidatesOrder(t *testing.T) {
	rec := mustRecord(t, "x.png", "1RemoteFileId0", "/local/x.png")

	got := ResolveCandidates(rec, DefaultResolverConfig())

	assert.Equal(t, []Candidate{
		{Strategy: StrategyRemoteThumbnail, URL: "https://drive.google.com/thumbnail?id=1RemoteFileId0&sz=w2000"},
		{Strategy: StrategyRemoteDirect, URL: "https://drive.google.com/uc?export=view&id=1RemoteFileId0"},
		{Strategy: StrategyLocal, URL: "/local/x.png"},
	}, got)
}

func TestResolveCandidatesWithoutRemote(t *testing.T) {
	rec := mustRecord(t, "x.png", "", "wp/x.png")

	got := ResolveCandidates(rec, DefaultResolverConfig())
	require.Len(t, got, 1)
	assert.Equal(t, StrategyLocal, got[0].Strategy)
	assert.Equal(t, "wp/x.png", got[0].URL)
}

func TestResolveCandidatesInvalidRemoteRef(t *testing.T) {
	rec := mustRecord(t, "x.png", "not a drive id", "wp/x.png")

	got := ResolveCandidates(rec, DefaultResolverConfig())
	require.Len(t, got, 1)
	assert.Equal(t, StrategyLocal, got[0].Strategy)
}

func TestResolveCandidatesAlwaysEndsLocal(t *testing.T) {
	configs := []ResolverConfig{
		DefaultResolverConfig(),
		{RemoteEnabled: false, FallbackToLocal: true},
		{RemoteEnabled: true, FallbackToLocal: true, Responsive: true, ScreenWidth: 1024},
		{RemoteEnabled: true, FallbackToLocal: false},
	}
	records := []catalog.ImageRecord{
		mustRecord(t, "a.png", "", "wp/a.png"),
		mustRecord(t, "b.png", "https://drive.google.com/file/d/1BBBBBBBBBBB/view", "wp/b.png"),
	}

	for _, cfg := range configs {
		for _, rec := range records {
			got := ResolveCandidates(rec, cfg)
			require.NotEmpty(t, got)
			if cfg.FallbackToLocal || !rec.HasRemote() || !cfg.RemoteEnabled {
				assert.Equal(t, StrategyLocal, got[len(got)-1].Strategy)
			}
		}
	}
}

func TestResolveCandidatesNoLocalFallback(t *testing.T) {
	cfg := DefaultResolverConfig()
	cfg.FallbackToLocal = false

	got := ResolveCandidates(mustRecord(t, "x.png", "1RemoteFileId0", "wp/x.png"), cfg)
	require.Len(t, got, 2)
	assert.Equal(t, StrategyRemoteDirect, got[1].Strategy)

	got = ResolveCandidates(mustRecord(t, "y.png", "", "wp/y.png"), cfg)
	require.Len(t, got, 1, "records without remote candidates keep their local candidate")
}

func TestResolveCandidatesLocalBaseURL(t *testing.T) {
	cfg := DefaultResolverConfig()
	cfg.RemoteEnabled = false
	cfg.LocalBaseURL = "http://localhost:8080/"

	got := ResolveCandidates(mustRecord(t, "my pic.png", "", "wp/my pic.png"), cfg)
	require.Len(t, got, 1)
	assert.Equal(t, "http://localhost:8080/wp/my%20pic.png", got[0].URL)
}

func TestSizeForScreen(t *testing.T) {
	tests := []struct {
		width int
		want  string
	}{
		{320, "small"},
		{640, "small"},
		{641, "medium"},
		{1280, "medium"},
		{1920, "large"},
		{2560, "xlarge"},
		{5120, "xlarge"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SizeForScreen(tt.width).Name, "width %d", tt.width)
	}
}

func TestThumbnailWidth(t *testing.T) {
	cfg := DefaultResolverConfig()
	assert.Equal(t, 2000, cfg.RequestWidth())

	cfg.Responsive = true
	cfg.ScreenWidth = 1366
	assert.Equal(t, 1920, cfg.RequestWidth())

	rec := mustRecord(t, "x.png", "1RemoteFileId0", "wp/x.png")
	assert.Contains(t, ResolveCandidates(rec, cfg)[0].URL, "sz=w1920")
}

func TestValidateRemoteRef(t *testing.T) {
	id, err := ValidateRemoteRef("https://drive.google.com/uc?export=view&id=1AbCdEfGhIjK")
	require.NoError(t, err)
	assert.Equal(t, "1AbCdEfGhIjK", id)

	_, err = ValidateRemoteRef("short")
	require.ErrorIs(t, err, ErrInvalidReference)
}
