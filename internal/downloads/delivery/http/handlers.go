package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mediagrab/mediagrab/internal/downloads"
	"github.com/mediagrab/mediagrab/internal/models"
	"github.com/mediagrab/mediagrab/pkg/logger"
)

type downloadsHandlers struct {
	downloadsUC downloads.UseCase
	logger      logger.Logger
}

func NewDownloadsHandlers(downloadsUC downloads.UseCase, logger logger.Logger) downloads.Handlers {
	return &downloadsHandlers{
		downloadsUC: downloadsUC,
		logger:      logger,
	}
}

func (h *downloadsHandlers) Create() echo.HandlerFunc {
	return func(c echo.Context) error {
		input := &models.DownloadInput{}
		if err := c.Bind(input); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
		}
		id, err := h.downloadsUC.Submit(c.Request().Context(), input)
		if err != nil {
			return c.JSON(submitErrorStatus(err), map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, map[string]string{"id": id})
	}
}

// submitErrorStatus maps submission failures onto HTTP statuses: client
// mistakes (validation, playlist mismatch) get 400, probe and engine
// failures get 500.
func submitErrorStatus(err error) int {
	var reqErr *downloads.RequestError
	if errors.Is(err, downloads.ErrPlaylistMismatch) || errors.As(err, &reqErr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *downloadsHandlers) List() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, h.downloadsUC.List(c.Request().Context()))
	}
}

func (h *downloadsHandlers) Status() echo.HandlerFunc {
	return func(c echo.Context) error {
		status, err := h.downloadsUC.Status(c.Request().Context(), c.Param("id"))
		if err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Task not found"})
		}
		return c.JSON(http.StatusOK, status)
	}
}

func (h *downloadsHandlers) Pause() echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		if err := h.downloadsUC.Pause(c.Request().Context(), id); err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Task not found"})
		}
		return c.JSON(http.StatusOK, map[string]string{"message": "Download " + id + " paused"})
	}
}

func (h *downloadsHandlers) Resume() echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		if err := h.downloadsUC.Resume(c.Request().Context(), id); err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Task not found"})
		}
		return c.JSON(http.StatusOK, map[string]string{"message": "Download " + id + " resumed"})
	}
}

func (h *downloadsHandlers) Cancel() echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		if err := h.downloadsUC.Cancel(c.Request().Context(), id); err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Task not found"})
		}
		return c.JSON(http.StatusOK, map[string]string{"message": "Download " + id + " cancelled"})
	}
}
