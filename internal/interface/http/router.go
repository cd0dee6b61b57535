package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/gistflow/internal/infra/config"
	"github.com/yanqian/gistflow/internal/infra/ratelimit"
)

// NewRouter wires up the HTTP handlers and returns a configured server. A nil
// limiter disables rate limiting.
func NewRouter(cfg *config.Config, handler *Handler, limiter ratelimit.Limiter, logger *slog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	logger = logger.With("component", "http.router")

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestIDMiddleware(),
		requestLogger(logger),
		corsMiddleware(cfg.HTTP.CORSOrigins),
		errorHandlingMiddleware(logger),
	)

	router.GET("/healthz", handler.Healthz)

	api := router.Group("/api/v1")
	api.Use(rateLimitMiddleware(limiter, logger))
	{
		api.GET("/styles", handler.ListStyles)
		api.POST("/summaries", handler.Summarize)
		api.POST("/summaries/stream", handler.SummarizeStream)
		api.POST("/notes/upload", handler.UploadNotes)
		api.POST("/exports", handler.Export)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        withRetry(router, cfg.HTTP.Retry, logger),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
