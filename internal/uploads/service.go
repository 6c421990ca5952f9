// Package uploads implements the client-facing upload commands: creating a
// job with presigned destinations, reporting progress, cancelling, and
// reading job status.
package uploads

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starscape/rapidupload/internal/blob"
	"github.com/starscape/rapidupload/internal/domain"
)

// Store is the slice of storage the upload service needs.
type Store interface {
	CreateUploadJob(ctx context.Context, job *domain.UploadJob) error
	GetPhoto(ctx context.Context, photoID string) (*domain.Photo, error)
	UpdatePhoto(ctx context.Context, photo *domain.Photo) error
	GetJobWithPhotos(ctx context.Context, jobID string) (*domain.UploadJob, error)
}

// FileRequest describes one file the client wants to upload.
type FileRequest struct {
	Filename string
	MimeType string
	Bytes    int64
}

// UploadTarget is the presigned destination handed back for one photo.
type UploadTarget struct {
	PhotoID   string
	Filename  string
	ObjectKey string
	Method    string
	URL       string
	ExpiresAt time.Time
}

// CreateJobResult is the response to a successful job creation.
type CreateJobResult struct {
	JobID          string
	TotalCount     int
	UploadStrategy string
	Uploads        []UploadTarget
}

// UploadStrategySinglePut is the only strategy currently issued: one PUT URL
// per photo. The field exists so multipart can be added without a breaking
// response change.
const UploadStrategySinglePut = "SINGLE_PUT"

// Service handles upload job commands
type Service struct {
	store        Store
	presigner    blob.Presigner
	env          string
	signedURLTTL time.Duration
	supported    map[string]struct{}
	logger       *slog.Logger
}

// NewService creates a new Service instance
func NewService(store Store, presigner blob.Presigner, env string, signedURLTTL time.Duration, supportedFormats []string, logger *slog.Logger) *Service {
	supported := make(map[string]struct{}, len(supportedFormats))
	for _, format := range supportedFormats {
		supported[strings.ToLower(format)] = struct{}{}
	}

	return &Service{
		store:        store,
		presigner:    presigner,
		env:          env,
		signedURLTTL: signedURLTTL,
		supported:    supported,
		logger:       logger,
	}
}

// CreateUploadJob validates the batch, creates the job with its photos and
// their queued events in one transaction, and returns a presigned PUT
// destination per photo. One unsupported file rejects the whole batch; no
// partial jobs.
func (s *Service) CreateUploadJob(ctx context.Context, userID string, files []FileRequest) (*CreateJobResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrBlankUserID
	}
	if len(files) == 0 {
		return nil, domain.ErrEmptyJob
	}

	for _, file := range files {
		if _, ok := s.supported[strings.ToLower(file.MimeType)]; !ok {
			return nil, fmt.Errorf("%w: %s (%s)", domain.ErrUnsupportedMimeType, file.Filename, file.MimeType)
		}
	}

	jobID := domain.NewJobID()
	job, err := domain.NewUploadJob(jobID, userID, len(files))
	if err != nil {
		return nil, err
	}

	targets := make([]UploadTarget, 0, len(files))
	for _, file := range files {
		photoID := domain.NewPhotoID()
		photo, err := domain.NewPhoto(photoID, jobID, userID, file.Filename, file.MimeType, file.Bytes)
		if err != nil {
			return nil, err
		}
		job.AddPhoto(photo)

		objectKey := blob.ObjectKey(s.env, userID, jobID, photoID, file.Filename)
		url, err := s.presigner.SignedUploadURL(ctx, objectKey, file.MimeType, s.signedURLTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to presign upload url: %w", err)
		}

		targets = append(targets, UploadTarget{
			PhotoID:   photoID,
			Filename:  file.Filename,
			ObjectKey: objectKey,
			Method:    "PUT",
			URL:       url,
			ExpiresAt: time.Now().UTC().Add(s.signedURLTTL),
		})
	}

	if err := s.store.CreateUploadJob(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info("Upload job created",
		slog.String("job_id", jobID),
		slog.String("user_id", userID),
		slog.Int("file_count", len(files)),
	)

	return &CreateJobResult{
		JobID:          jobID,
		TotalCount:     len(files),
		UploadStrategy: UploadStrategySinglePut,
		Uploads:        targets,
	}, nil
}

// UpdateProgress records a client-side upload progress report. The first
// in-range report moves the photo from QUEUED to UPLOADING; later reports,
// reports with percent outside (0, 100) exclusive, and reports against photos
// past UPLOADING are no-ops.
func (s *Service) UpdateProgress(ctx context.Context, userID, photoID string, percent float64) error {
	photo, err := s.ownedPhoto(ctx, userID, photoID)
	if err != nil {
		return err
	}

	if percent <= 0 || percent >= 100 {
		return nil
	}

	if !photo.MarkUploading() {
		return nil
	}

	if err := s.store.UpdatePhoto(ctx, photo); err != nil {
		return err
	}

	s.logger.Debug("Upload progress recorded",
		slog.String("photo_id", photoID),
		slog.Float64("percent", percent),
	)

	return nil
}

// CancelPhoto moves a non-terminal photo to CANCELLED. Cancelling a terminal
// photo is a no-op; the returned photo reflects the state either way.
func (s *Service) CancelPhoto(ctx context.Context, userID, photoID string) (*domain.Photo, error) {
	photo, err := s.ownedPhoto(ctx, userID, photoID)
	if err != nil {
		return nil, err
	}

	if !photo.Cancel() {
		return photo, nil
	}

	if err := s.store.UpdatePhoto(ctx, photo); err != nil {
		return nil, err
	}

	s.logger.Info("Photo cancelled",
		slog.String("photo_id", photoID),
		slog.String("job_id", photo.JobID),
	)

	return photo, nil
}

// JobStatus returns the caller's job with its full photo collection. Other
// users' jobs read as not found.
func (s *Service) JobStatus(ctx context.Context, userID, jobID string) (*domain.UploadJob, error) {
	job, err := s.store.GetJobWithPhotos(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

func (s *Service) ownedPhoto(ctx context.Context, userID, photoID string) (*domain.Photo, error) {
	photo, err := s.store.GetPhoto(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if photo.UserID != userID {
		return nil, domain.ErrNotOwner
	}
	return photo, nil
}
