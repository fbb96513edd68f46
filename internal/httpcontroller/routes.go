package httpcontroller

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// initRoutes registers the JSON API, the metrics endpoint and the static
// web client with index.html as the fallback for unknown paths.
func (s *Server) initRoutes() {
	api := s.Echo.Group("/api")
	api.GET("/images", s.handleListImages)
	api.GET("/images/:id", s.handleGetImage)
	api.GET("/records/:id", s.handleGetRecord)
	api.GET("/random", s.handleRandom)
	api.GET("/images-data", s.handleImagesData)

	if s.Settings.Metrics.Enabled && s.metrics != nil {
		s.Echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	// Local catalog references ("wp/a.jpg") are served from the image dir.
	localPrefix := "/" + strings.Trim(s.Settings.Catalog.LocalImagePath, "/")
	if localPrefix != "/" {
		s.Echo.Static(localPrefix, s.Settings.Catalog.ImageDir)
	}

	s.Echo.Use(middleware.StaticWithConfig(middleware.StaticConfig{
		Root:  s.Settings.WebServer.WebRoot,
		Index: "index.html",
		HTML5: true,
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			if localPrefix != "/" && strings.HasPrefix(path, localPrefix+"/") {
				return true
			}
			return strings.HasPrefix(path, "/api/") || path == "/metrics"
		},
	}))
}
