package import_api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/propcrm-transaction-import/internal/import_api/handler"
	"github.com/propcrm-transaction-import/internal/import_api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	importHandler *handler.ImportHandler,
	batchHandler *handler.BatchHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Import pipeline operations
		imports := v1.Group("/imports")
		{
			imports.POST("/validate", importHandler.Validate)
			imports.POST("/check", importHandler.Check)
			imports.POST("/confirm", importHandler.Confirm)
			imports.POST("/direct", importHandler.Direct)
		}

		// Batch registry operations
		batches := v1.Group("/batches")
		{
			batches.GET("", batchHandler.List)
			batches.GET("/:id", batchHandler.Get)
			batches.DELETE("/:id", batchHandler.Delete)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
