package httpcontroller

import (
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/wallrot/wallrot/internal/catalog"
	"github.com/wallrot/wallrot/internal/drivemap"
	"github.com/wallrot/wallrot/internal/logger"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RandomResponse is the body of GET /api/random.
type RandomResponse struct {
	ID string `json:"id"`
}

func (s *Server) apiError(c echo.Context, err error, message string, code int) error {
	if err != nil {
		s.log.Error(message,
			logger.Error(err),
			logger.String("path", c.Request().URL.Path),
			logger.Int("status", code),
			logger.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)))
	}
	return c.JSON(code, ErrorResponse{Error: message})
}

// handleListImages returns every image id in the image directory.
func (s *Server) handleListImages(c echo.Context) error {
	ids, err := s.images.IDs()
	if err != nil {
		return s.apiError(c, err, "Failed to read image directory", http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, ids)
}

// handleGetImage serves one image file. Only listed ids are served, so the
// parameter cannot name anything outside the image directory.
func (s *Server) handleGetImage(c echo.Context) error {
	id := c.Param("id")
	found, err := s.images.Has(id)
	if err != nil {
		return s.apiError(c, err, "Failed to serve image", http.StatusInternalServerError)
	}
	if !found {
		return s.apiError(c, nil, "Image not found", http.StatusNotFound)
	}
	c.Response().Header().Set(echo.HeaderContentType, catalog.MimeTypeFor(id))
	return c.File(s.images.Path(id))
}

// handleGetRecord returns the catalog payload for one id, from the catalog
// file when it lists the id and built from the directory otherwise.
func (s *Server) handleGetRecord(c echo.Context) error {
	id := c.Param("id")

	if payloads, err := catalog.ReadFile(s.Settings.Catalog.DataFile); err == nil {
		for _, p := range payloads {
			if p.ID == id {
				return c.JSON(http.StatusOK, p)
			}
		}
	}

	found, err := s.images.Has(id)
	if err != nil {
		return s.apiError(c, err, "Failed to read image directory", http.StatusInternalServerError)
	}
	if !found {
		return s.apiError(c, nil, "Image not found", http.StatusNotFound)
	}

	var mapping *drivemap.Mapping
	if s.Settings.Catalog.UseGoogleDrive {
		mapping, err = drivemap.Load(s.Settings.Catalog.MappingFile)
		if err != nil {
			s.log.Warn("ignoring unreadable drive mapping", logger.Error(err))
			mapping = nil
		}
	}
	return c.JSON(http.StatusOK, catalog.BuildPayload(id, mapping, s.buildOptions()))
}

func (s *Server) buildOptions() catalog.BuildOptions {
	return catalog.BuildOptions{
		LocalImagePath: s.Settings.Catalog.LocalImagePath,
		UseGoogleDrive: s.Settings.Catalog.UseGoogleDrive,
		RemoteHost:     s.Settings.Remote.Host,
		ThumbnailWidth: s.Settings.Remote.ThumbnailWidth,
	}
}

// handleRandom returns a random image id.
func (s *Server) handleRandom(c echo.Context) error {
	ids, err := s.images.IDs()
	if err != nil {
		return s.apiError(c, err, "Failed to serve random image", http.StatusInternalServerError)
	}
	if len(ids) == 0 {
		return s.apiError(c, nil, "No images found", http.StatusNotFound)
	}
	return c.JSON(http.StatusOK, RandomResponse{ID: ids[rand.IntN(len(ids))]}) //nolint:gosec // display order, not security
}

// handleImagesData returns the generated catalog file.
func (s *Server) handleImagesData(c echo.Context) error {
	data, err := os.ReadFile(s.Settings.Catalog.DataFile)
	if err != nil {
		if os.IsNotExist(err) {
			return s.apiError(c, nil, "Images data file not found", http.StatusNotFound)
		}
		return s.apiError(c, err, "Failed to serve images data", http.StatusInternalServerError)
	}
	if !json.Valid(data) {
		return s.apiError(c, nil, "Failed to serve images data", http.StatusInternalServerError)
	}
	return c.JSONBlob(http.StatusOK, data)
}
