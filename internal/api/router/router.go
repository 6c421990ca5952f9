package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/starscape/rapidupload/internal/api/handler"
	"github.com/starscape/rapidupload/internal/api/identity"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint backed by the database
	r.GET("/health", func(c *gin.Context) {
		if deps.DB != nil {
			if err := deps.DB.HealthCheck(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unhealthy",
					"service": "upload-api-service",
					"error":   err.Error(),
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "upload-api-service",
		})
	})

	// Initialize upload handler
	uploadHandler := handler.NewUploadHandler(deps)

	// API v1 routes, all behind the gateway identity header
	v1 := r.Group("/api/v1")
	v1.Use(identity.Middleware())
	{
		uploadsGroup := v1.Group("/uploads")
		{
			// POST /api/v1/uploads - Create an upload job with presigned URLs
			uploadsGroup.POST("", uploadHandler.CreateUploadJob)

			// POST /api/v1/uploads/progress - Report client upload progress
			uploadsGroup.POST("/progress", uploadHandler.UpdateProgress)

			// GET /api/v1/uploads/:job_id/status - Get job status with photos
			uploadsGroup.GET("/:job_id/status", uploadHandler.JobStatus)
		}

		photos := v1.Group("/photos")
		{
			// POST /api/v1/photos/:photo_id/cancel - Cancel a pending photo
			photos.POST("/:photo_id/cancel", uploadHandler.CancelPhoto)
		}
	}

	return r
}
