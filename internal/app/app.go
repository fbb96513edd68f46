// Package app assembles the shared runtime of every command: logging,
// telemetry, metrics, the HTTP client and the image pipeline built on them.
package app

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/wallrot/wallrot/internal/buildinfo"
	"github.com/wallrot/wallrot/internal/catalog"
	"github.com/wallrot/wallrot/internal/conf"
	"github.com/wallrot/wallrot/internal/errors"
	"github.com/wallrot/wallrot/internal/httpclient"
	"github.com/wallrot/wallrot/internal/imageprovider"
	"github.com/wallrot/wallrot/internal/lazyqueue"
	"github.com/wallrot/wallrot/internal/logger"
	"github.com/wallrot/wallrot/internal/observability"
	"github.com/wallrot/wallrot/internal/rotator"
	"github.com/wallrot/wallrot/internal/telemetry"
)

const telemetryFlushTimeout = 2 * time.Second

// App holds the services shared by all commands.
type App struct {
	Settings *conf.Settings
	Build    *buildinfo.Context
	Logs     *logger.CentralLogger
	Metrics  *observability.Metrics
	HTTP     *httpclient.Client
}

// New initializes logging, telemetry, metrics and the HTTP client from settings.
func New(settings *conf.Settings, build *buildinfo.Context) (*App, error) {
	if settings.Debug {
		settings.Logging.DefaultLevel = string(logger.LogLevelDebug)
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = string(logger.LogLevelDebug)
		}
	}

	logs, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return nil, errors.New(err).
			Component("app").
			Category(errors.CategoryConfiguration).
			Context("operation", "init_logging").
			Build()
	}

	if err := telemetry.InitSentry(settings, build); err != nil {
		logs.Module("telemetry").Warn("error reporting disabled", logger.Error(err))
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		_ = logs.Close()
		return nil, err
	}

	client := httpclient.New(&httpclient.Config{
		DefaultTimeout:  httpclient.DefaultTimeout,
		UserAgent:       settings.ImageProvider.UserAgent,
		BackgroundRate:  settings.Remote.RateLimit,
		BackgroundBurst: settings.Remote.Burst,
	})
	client.SetAfterResponseHook(func(req *http.Request, resp *http.Response, _ error) {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		metrics.HTTP.RecordClientRequest(req.URL.Host, status)
	})

	return &App{
		Settings: settings,
		Build:    build,
		Logs:     logs,
		Metrics:  metrics,
		HTTP:     client,
	}, nil
}

// Logger returns the module logger for name.
func (a *App) Logger(name string) logger.Logger {
	return a.Logs.Module(name)
}

// ResolverConfig maps the remote and responsive settings onto the resolver.
// localBaseURL is empty for filesystem loads.
func (a *App) ResolverConfig(localBaseURL string) imageprovider.ResolverConfig {
	s := a.Settings
	return imageprovider.ResolverConfig{
		RemoteEnabled:   s.Remote.Enabled,
		RemoteHost:      s.Remote.Host,
		FallbackToLocal: s.Remote.FallbackToLocal,
		ThumbnailWidth:  s.Remote.ThumbnailWidth,
		Responsive:      s.Responsive.Enabled,
		ScreenWidth:     s.Responsive.ScreenWidth,
		LocalBaseURL:    localBaseURL,
	}
}

// Loader routes http(s) candidates through the shared client and local
// references into the image directory.
func (a *App) Loader() imageprovider.Loader {
	s := a.Settings
	return &imageprovider.RoutingLoader{
		HTTP: imageprovider.NewHTTPLoader(a.HTTP, s.ImageProvider.MaxBytes, a.Logger("imageprovider")),
		File: &imageprovider.FileLoader{
			Root:     s.Catalog.ImageDir,
			MaxBytes: s.ImageProvider.MaxBytes,
			Prefix:   localPrefix(s.Catalog.LocalImagePath),
		},
	}
}

func localPrefix(p string) string {
	p = strings.Trim(filepath.ToSlash(p), "/")
	if p == "" {
		return ""
	}
	return p + "/"
}

// Orchestrator builds the fallback orchestrator for the given local base.
func (a *App) Orchestrator(localBaseURL string) *imageprovider.Orchestrator {
	return imageprovider.NewOrchestrator(a.Loader(), a.ResolverConfig(localBaseURL),
		imageprovider.WithTimeout(a.Settings.ImageProvider.LoadTimeout),
		imageprovider.WithMetrics(a.Metrics.ImageProvider),
		imageprovider.WithLogger(a.Logger("imageprovider")))
}

// CatalogSource returns the catalog the client reads: the HTTP API when
// client.serverurl is set, the generated catalog file otherwise. The second
// result is the base URL for local references, empty for filesystem loads.
func (a *App) CatalogSource() (catalog.Source, string, error) {
	s := a.Settings
	if s.Client.ServerURL != "" {
		return catalog.NewHTTPSource(s.Client.ServerURL, a.HTTP, a.Logger("catalog")), s.Client.ServerURL, nil
	}
	src, err := catalog.OpenFileSource(s.Catalog.DataFile)
	if err != nil {
		return nil, "", err
	}
	if n := src.Skipped(); n > 0 {
		a.Logger("catalog").Warn("skipped invalid catalog entries", logger.Int("count", n))
	}
	return src, "", nil
}

// Pipeline is a running rotator with its queue.
type Pipeline struct {
	Source   catalog.Source
	Queue    *lazyqueue.Manager
	Rotator  *rotator.Rotator
	Resolver *imageprovider.Orchestrator
}

// StartPipeline wires source, orchestrator, queue and rotator and starts
// the queue worker. Call Close on the result when done.
func (a *App) StartPipeline(ctx context.Context) (*Pipeline, error) {
	source, localBase, err := a.CatalogSource()
	if err != nil {
		return nil, err
	}

	s := a.Settings
	orch := a.Orchestrator(localBase)
	queue := lazyqueue.New(lazyqueue.Config{
		Enabled:          s.LazyLoading.Enabled,
		PreloadThreshold: s.LazyLoading.PreloadThreshold,
		QueueSize:        s.LazyLoading.QueueSize,
		UnloadThreshold:  s.LazyLoading.UnloadThreshold,
		DrainDelay:       s.LazyLoading.DrainDelay,
	}, orch, source,
		lazyqueue.WithLogger(a.Logger("lazyqueue")),
		lazyqueue.WithMetrics(a.Metrics.LazyQueue))
	queue.Start(ctx)

	rot := rotator.New(source, queue, rotator.Config{
		StartIndex:   s.Client.StartIndex,
		PreloadDelay: s.LazyLoading.PreloadDelay,
	}, a.Logger("rotator"))

	return &Pipeline{Source: source, Queue: queue, Rotator: rot, Resolver: orch}, nil
}

// Close stops the rotator and the queue worker.
func (p *Pipeline) Close() {
	p.Rotator.Close()
	p.Queue.Close()
}

// Close flushes telemetry and releases the client and log files.
func (a *App) Close() error {
	a.HTTP.Close()
	if a.Settings.Telemetry.Enabled {
		telemetry.Flush(telemetryFlushTimeout)
	}
	return a.Logs.Close()
}
