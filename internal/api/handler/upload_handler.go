package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/starscape/rapidupload/internal/api/dto"
	"github.com/starscape/rapidupload/internal/api/identity"
	"github.com/starscape/rapidupload/internal/domain"
	"github.com/starscape/rapidupload/internal/uploads"
)

// CreateUploadJob handles POST /api/v1/uploads
// Creates an upload job and returns a presigned destination per file
func (h *UploadHandler) CreateUploadJob(c *gin.Context) {
	userID := identity.UserID(c)

	var req dto.CreateUploadJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	files := make([]uploads.FileRequest, len(req.Files))
	for i, f := range req.Files {
		files[i] = uploads.FileRequest{
			Filename: f.Filename,
			MimeType: f.MimeType,
			Bytes:    f.Bytes,
		}
	}

	result, err := h.uploads.CreateUploadJob(c.Request.Context(), userID, files)
	if err != nil {
		h.respondError(c, err, "Failed to create upload job")
		return
	}

	targets := make([]dto.UploadTargetDTO, len(result.Uploads))
	for i, t := range result.Uploads {
		targets[i] = dto.UploadTargetDTO{
			PhotoID:   t.PhotoID,
			Filename:  t.Filename,
			ObjectKey: t.ObjectKey,
			Method:    t.Method,
			URL:       t.URL,
			ExpiresAt: t.ExpiresAt.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusCreated, dto.CreateUploadJobResponse{
		JobID:          result.JobID,
		TotalCount:     result.TotalCount,
		UploadStrategy: result.UploadStrategy,
		Uploads:        targets,
	})
}

// UpdateProgress handles POST /api/v1/uploads/progress
// Records a client-side upload progress report
func (h *UploadHandler) UpdateProgress(c *gin.Context) {
	userID := identity.UserID(c)

	var req dto.UpdateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	if err := h.uploads.UpdateProgress(c.Request.Context(), userID, req.PhotoID, req.Percent); err != nil {
		h.respondError(c, err, "Failed to update progress")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"photo_id": req.PhotoID,
		"accepted": true,
	})
}

// JobStatus handles GET /api/v1/uploads/:job_id/status
// Returns the job snapshot with its per-photo breakdown
func (h *UploadHandler) JobStatus(c *gin.Context) {
	userID := identity.UserID(c)

	jobID := c.Param("job_id")
	if jobID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id is required",
		})
		return
	}

	job, err := h.uploads.JobStatus(c.Request.Context(), userID, jobID)
	if err != nil {
		h.respondError(c, err, "Failed to get job status")
		return
	}

	photos := make([]dto.PhotoDTO, len(job.Photos))
	for i, p := range job.Photos {
		photos[i] = dto.PhotoDTO{
			PhotoID:      p.PhotoID,
			Filename:     p.Filename,
			Status:       p.Status,
			Width:        p.Width,
			Height:       p.Height,
			Checksum:     p.Checksum,
			ErrorMessage: p.ErrorMessage,
		}
	}

	c.JSON(http.StatusOK, dto.JobStatusResponse{
		JobID:          job.JobID,
		UserID:         job.UserID,
		Status:         job.Status,
		TotalCount:     job.TotalCount,
		CompletedCount: job.CompletedCount,
		FailedCount:    job.FailedCount,
		CancelledCount: job.CancelledCount,
		CreatedAt:      job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      job.UpdatedAt.Format(time.RFC3339),
		Photos:         photos,
	})
}

// CancelPhoto handles POST /api/v1/photos/:photo_id/cancel
// Cancels a photo that has not reached a terminal state
func (h *UploadHandler) CancelPhoto(c *gin.Context) {
	userID := identity.UserID(c)

	photoID := c.Param("photo_id")
	if photoID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "photo_id is required",
		})
		return
	}

	photo, err := h.uploads.CancelPhoto(c.Request.Context(), userID, photoID)
	if err != nil {
		h.respondError(c, err, "Failed to cancel photo")
		return
	}

	c.JSON(http.StatusOK, dto.CancelPhotoResponse{
		PhotoID: photo.PhotoID,
		JobID:   photo.JobID,
		Status:  photo.Status,
	})
}

// respondError maps domain errors to HTTP status codes
func (h *UploadHandler) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrUnsupportedMimeType),
		errors.Is(err, domain.ErrEmptyJob),
		errors.Is(err, domain.ErrBlankFilename),
		errors.Is(err, domain.ErrBlankMimeType),
		errors.Is(err, domain.ErrNonPositiveBytes):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrPhotoNotFound),
		errors.Is(err, domain.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		h.logger.Error(fallback, slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
