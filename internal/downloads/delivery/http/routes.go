package http

import (
	"github.com/labstack/echo/v4"

	"github.com/mediagrab/mediagrab/internal/downloads"
)

// MapDownloadRoutes keeps the original service's flat paths so existing
// clients keep working.
func MapDownloadRoutes(e *echo.Echo, h downloads.Handlers) {
	e.POST("/download", h.Create())
	e.GET("/downloads", h.List())
	e.GET("/status/:id", h.Status())
	e.POST("/pause/:id", h.Pause())
	e.POST("/resume/:id", h.Resume())
	e.POST("/cancel/:id", h.Cancel())
}
