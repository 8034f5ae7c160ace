package server

import (
	"github.com/fitsworks/primary-server/internal/handlers"
	"github.com/fitsworks/primary-server/internal/metrics"
	"github.com/fitsworks/primary-server/internal/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter wires middleware and routes onto a fresh gin engine.
func NewRouter(allowedOrigins []string, logger *zap.Logger, jobHandler *handlers.JobHandler, healthHandler *handlers.HealthHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics())
	router.Use(middleware.SetupCORS(allowedOrigins))

	router.POST("/submit", jobHandler.SubmitJob)

	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	return router
}
