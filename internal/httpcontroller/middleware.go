package httpcontroller

import (
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/wallrot/wallrot/internal/logger"
)

// alwaysBlocked lists files never served regardless of configuration.
var alwaysBlocked = []string{
	"credentials.json",
	"token.json",
	"google-drive-mapping.json",
	"config.yaml",
	"config.yml",
}

// configureMiddleware sets up middleware for the server.
func (s *Server) configureMiddleware() {
	s.Echo.Use(middleware.Recover())
	s.Echo.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	s.Echo.Use(s.AccessLogMiddleware())
	s.Echo.Use(s.BlockedFilesMiddleware())
}

// blockedNames returns the file names that must not be served.
func (s *Server) blockedNames() map[string]bool {
	names := make(map[string]bool, len(alwaysBlocked)+3)
	for _, n := range alwaysBlocked {
		names[n] = true
	}
	for _, p := range []string{
		s.Settings.Catalog.MappingFile,
		s.Settings.Drive.CredentialsFile,
		s.Settings.ConfigFile,
	} {
		if p != "" {
			names[filepath.Base(p)] = true
		}
	}
	return names
}

// BlockedFilesMiddleware rejects requests for credentials, the Drive mapping
// and configuration files with 403.
func (s *Server) BlockedFilesMiddleware() echo.MiddlewareFunc {
	blocked := s.blockedNames()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			name := path[strings.LastIndex(path, "/")+1:]
			if blocked[name] {
				s.log.Warn("blocked request for sensitive file",
					logger.String("path", path),
					logger.String("client_ip", c.RealIP()),
					logger.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)))
				if s.metrics != nil {
					s.metrics.HTTP.IncrementBlocked()
				}
				return c.JSON(http.StatusForbidden, ErrorResponse{Error: "Access denied"})
			}
			return next(c)
		}
	}
}

// AccessLogMiddleware logs each request through the module logger and
// records request metrics.
func (s *Server) AccessLogMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			status := c.Response().Status
			duration := time.Since(start)

			route := c.Path()
			if route == "" {
				route = "static"
			}
			if s.metrics != nil {
				s.metrics.HTTP.RecordHTTPRequest(req.Method, route, status, duration.Seconds())
			}

			s.log.Debug("request",
				logger.String("method", req.Method),
				logger.String("path", req.URL.Path),
				logger.Int("status", status),
				logger.Duration("duration", duration),
				logger.String("client_ip", c.RealIP()),
				logger.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)))
			return nil
		}
	}
}
