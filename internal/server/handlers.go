package server

import (
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	downloadsHttp "github.com/mediagrab/mediagrab/internal/downloads/delivery/http"
	"github.com/mediagrab/mediagrab/internal/downloads/engine"
	downloadsRepository "github.com/mediagrab/mediagrab/internal/downloads/repository"
	downloadsUsecase "github.com/mediagrab/mediagrab/internal/downloads/usecase"
	"github.com/mediagrab/mediagrab/internal/worker"
	"github.com/mediagrab/mediagrab/pkg/utils"
)

func (s *Server) MapHandlers(e *echo.Echo) error {
	if err := os.MkdirAll(s.cfg.Downloads.Dir, 0o755); err != nil {
		return err
	}

	registry := downloadsRepository.NewMemoryRegistry()
	extractor := engine.NewYtdlpExtractor(&s.cfg.Engine, s.logger)
	transcoder := engine.NewFFmpegTranscoder(&s.cfg.Engine, s.logger)
	sampler := engine.NewSystemSampler()

	gate := worker.NewResourceGate(&s.cfg.Downloads, sampler, registry, s.logger)
	retry := worker.NewRetryPolicy(s.cfg.Downloads.MaxRetries, s.cfg.Downloads.RetryUnit)
	runner := worker.NewRunner(&s.cfg.Downloads, registry, extractor, transcoder, gate, retry, s.logger)
	s.pool = worker.NewPool(&s.cfg.Downloads, runner, s.logger)

	downloadsUC := downloadsUsecase.NewDownloadsUseCase(s.cfg, registry, extractor, s.pool, s.logger)
	downloadsHandlers := downloadsHttp.NewDownloadsHandlers(downloadsUC, s.logger)

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Content-Type"},
	}))

	downloadsHttp.MapDownloadRoutes(e, downloadsHandlers)

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"message": "Welcome to Media Downloader API",
			"status":  "ok",
		})
	})

	v1 := e.Group("/api/v1")
	health := v1.Group("/health")
	health.GET("", func(c echo.Context) error {
		s.logger.Infof("Health check RequestID: %s", utils.GetRequestID(c))
		return c.JSON(http.StatusOK, map[string]string{"status": "OK"})
	})
	return nil
}
