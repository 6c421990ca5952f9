package handler

import (
	"context"
	"log/slog"

	"github.com/starscape/rapidupload/internal/uploads"
)

// HealthChecker reports whether a backing dependency can serve requests.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger  *slog.Logger
	Uploads *uploads.Service
	DB      HealthChecker
}

// UploadHandler handles upload-related HTTP requests
type UploadHandler struct {
	logger  *slog.Logger
	uploads *uploads.Service
}

// NewUploadHandler creates a new UploadHandler instance
func NewUploadHandler(deps *Dependencies) *UploadHandler {
	return &UploadHandler{
		logger:  deps.Logger,
		uploads: deps.Uploads,
	}
}
