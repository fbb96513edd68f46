package app

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallrot/wallrot/internal/buildinfo"
	"github.com/wallrot/wallrot/internal/catalog"
	"github.com/wallrot/wallrot/internal/conf"
	"github.com/wallrot/wallrot/internal/imageprovider"
	"github.com/wallrot/wallrot/internal/logger"
)

func writePNG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(0, 0, color.White)
	require.NoError(t, png.Encode(f, img))
}

func testSettings(t *testing.T) *conf.Settings {
	t.Helper()
	root := t.TempDir()
	imageDir := filepath.Join(root, "wp")
	require.NoError(t, os.MkdirAll(imageDir, 0o755))
	writePNG(t, filepath.Join(imageDir, "a.png"))

	dataFile := filepath.Join(root, "data", "images.json")
	require.NoError(t, catalog.WriteFile(dataFile, []catalog.Payload{
		{ID: "a.png", Path: "wp/a.png", Type: "png", Source: catalog.SourceLocal},
	}))

	return &conf.Settings{
		Logging: logger.LoggingConfig{
			DefaultLevel: "error",
			Console:      &logger.ConsoleOutput{Enabled: false},
			FileOutput:   &logger.FileOutput{Enabled: false},
		},
		Catalog: conf.CatalogSettings{
			ImageDir:       imageDir,
			LocalImagePath: "wp/",
			DataFile:       dataFile,
		},
		Remote: conf.RemoteSettings{
			Enabled:         true,
			Host:            "drive.google.com",
			FallbackToLocal: true,
			ThumbnailWidth:  2000,
		},
		ImageProvider: conf.ImageProviderSettings{MaxBytes: 1 << 20},
	}
}

func TestResolverConfig(t *testing.T) {
	settings := testSettings(t)
	settings.Responsive = conf.ResponsiveSettings{Enabled: true, ScreenWidth: 1024}

	a, err := New(settings, buildinfo.NewContext("test", ""))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	cfg := a.ResolverConfig("http://localhost:8080")
	assert.True(t, cfg.RemoteEnabled)
	assert.True(t, cfg.FallbackToLocal)
	assert.Equal(t, "http://localhost:8080", cfg.LocalBaseURL)
	assert.Equal(t, imageprovider.SizeForScreen(1024).MaxWidth, cfg.RequestWidth())
}

func TestLocalPrefix(t *testing.T) {
	assert.Equal(t, "wp/", localPrefix("wp/"))
	assert.Equal(t, "wp/", localPrefix("/wp"))
	assert.Equal(t, "images/wp/", localPrefix("images/wp"))
	assert.Empty(t, localPrefix(""))
}

func TestCatalogSourceAndLocalResolve(t *testing.T) {
	settings := testSettings(t)
	a, err := New(settings, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	source, base, err := a.CatalogSource()
	require.NoError(t, err)
	assert.Empty(t, base)

	rec, err := source.Lookup(context.Background(), "a.png")
	require.NoError(t, err)

	img, err := a.Orchestrator(base).ResolveImage(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, imageprovider.SourceLocal, img.SourceKind)
	assert.Equal(t, 4, img.Width)
	assert.Equal(t, 3, img.Height)
}

func TestCatalogSourceUsesServer(t *testing.T) {
	settings := testSettings(t)
	settings.Client.ServerURL = "http://wall.local:8080"

	a, err := New(settings, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	source, base, err := a.CatalogSource()
	require.NoError(t, err)
	assert.IsType(t, &catalog.HTTPSource{}, source)
	assert.Equal(t, "http://wall.local:8080", base)
}
