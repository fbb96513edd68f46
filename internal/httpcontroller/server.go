// Package httpcontroller serves the wallpaper collection over HTTP: the
// static web client, the image files, and a small JSON API used by remote
// rotators.
package httpcontroller

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/acme/autocert"

	"github.com/wallrot/wallrot/internal/conf"
	"github.com/wallrot/wallrot/internal/logger"
	"github.com/wallrot/wallrot/internal/observability"
)

const shutdownTimeout = 10 * time.Second

// Server encapsulates the Echo server and its dependencies.
type Server struct {
	Echo     *echo.Echo
	Settings *conf.Settings

	log     logger.Logger
	metrics *observability.Metrics
	images  *imageIndex
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics enables request metrics and, when configured, the /metrics endpoint.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New initializes the server. The image directory is watched for changes
// until Close is called.
func New(settings *conf.Settings, opts ...Option) (*Server, error) {
	s := &Server{
		Echo:     echo.New(),
		Settings: settings,
		log:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	images, err := newImageIndex(settings.Catalog.ImageDir, s.log.Module("index"))
	if err != nil {
		return nil, err
	}
	s.images = images

	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.IPExtractor = echo.ExtractIPFromXFFHeader()

	s.configureMiddleware()
	s.initRoutes()
	return s, nil
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ws := s.Settings.WebServer
	errCh := make(chan error, 1)

	go func() {
		var err error
		if ws.AutoTLS {
			err = s.startAutoTLS()
		} else {
			err = s.Echo.Start(ws.Listen)
		}
		errCh <- err
	}()

	s.log.Info("http server started",
		logger.String("listen", ws.Listen),
		logger.Bool("auto_tls", ws.AutoTLS),
		logger.String("image_dir", s.Settings.Catalog.ImageDir))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.log.Info("shutting down http server")
	if err := s.Echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) startAutoTLS() error {
	configPaths, err := conf.GetDefaultConfigPaths()
	if err != nil {
		return err
	}
	s.Echo.AutoTLSManager.Prompt = autocert.AcceptTOS
	s.Echo.AutoTLSManager.Cache = autocert.DirCache(filepath.Join(configPaths[0], "autocert"))
	s.Echo.AutoTLSManager.HostPolicy = autocert.HostWhitelist(s.Settings.WebServer.Host)
	return s.Echo.StartAutoTLS(":443")
}

// Close stops the image directory watcher.
func (s *Server) Close() error {
	return s.images.Close()
}
