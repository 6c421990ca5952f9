package domain

import (
	"strings"
	"time"
)

// Photo status constants
const (
	PhotoStatusQueued     = "QUEUED"
	PhotoStatusUploading  = "UPLOADING"
	PhotoStatusProcessing = "PROCESSING"
	PhotoStatusCompleted  = "COMPLETED"
	PhotoStatusFailed     = "FAILED"
	PhotoStatusCancelled  = "CANCELLED"
)

// Photo is a single queued upload inside an upload job. Status transitions
// are monotonic; calling a transition from a state that does not satisfy its
// guard is a silent no-op so duplicate triggers from at-least-once delivery
// upstream are harmless.
type Photo struct {
	PhotoID      string
	JobID        string
	UserID       string
	Filename     string
	MimeType     string
	Bytes        int64
	S3Key        string
	S3Bucket     string
	Etag         string
	Checksum     string
	Width        int
	Height       int
	ExifJSON     []byte
	Status       string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
	DeletedAt    *time.Time

	events []DomainEvent
}

// NewPhoto creates a QUEUED photo and registers its PhotoQueued event.
func NewPhoto(photoID, jobID, userID, filename, mimeType string, bytes int64) (*Photo, error) {
	if strings.TrimSpace(photoID) == "" {
		return nil, ErrBlankPhotoID
	}
	if strings.TrimSpace(userID) == "" {
		return nil, ErrBlankUserID
	}
	if strings.TrimSpace(filename) == "" {
		return nil, ErrBlankFilename
	}
	if strings.TrimSpace(mimeType) == "" {
		return nil, ErrBlankMimeType
	}
	if bytes <= 0 {
		return nil, ErrNonPositiveBytes
	}

	now := time.Now().UTC()
	p := &Photo{
		PhotoID:   photoID,
		JobID:     jobID,
		UserID:    userID,
		Filename:  filename,
		MimeType:  mimeType,
		Bytes:     bytes,
		Status:    PhotoStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	p.registerEvent(PhotoQueued{
		PhotoID:    photoID,
		UserID:     userID,
		Filename:   filename,
		Bytes:      bytes,
		OccurredOn: now,
	})

	return p, nil
}

// MarkUploading records best-effort upload progress. Only valid from QUEUED.
func (p *Photo) MarkUploading() bool {
	if p.Status != PhotoStatusQueued {
		return false
	}
	p.Status = PhotoStatusUploading
	p.touch()
	return true
}

// MarkProcessing attaches the object location and moves the photo to
// PROCESSING. Valid from QUEUED or UPLOADING; the location is set exactly
// once, here.
func (p *Photo) MarkProcessing(s3Key, s3Bucket, etag string) bool {
	if p.Status != PhotoStatusQueued && p.Status != PhotoStatusUploading {
		return false
	}
	p.S3Key = s3Key
	p.S3Bucket = s3Bucket
	p.Etag = etag
	p.Status = PhotoStatusProcessing
	p.touch()
	return true
}

// MarkCompleted records the derived metadata and moves the photo to
// COMPLETED. Valid only from PROCESSING with dimensions and checksum present.
func (p *Photo) MarkCompleted(width, height int, exifJSON []byte, checksum string) bool {
	if p.Status != PhotoStatusProcessing {
		return false
	}
	if width <= 0 || height <= 0 || checksum == "" {
		return false
	}
	p.Width = width
	p.Height = height
	p.ExifJSON = exifJSON
	p.Checksum = checksum
	p.Status = PhotoStatusCompleted
	now := time.Now().UTC()
	p.CompletedAt = &now
	p.UpdatedAt = now
	return true
}

// MarkFailed moves the photo to FAILED from any state, preserving the error
// text verbatim.
func (p *Photo) MarkFailed(errorMessage string) {
	p.ErrorMessage = errorMessage
	p.Status = PhotoStatusFailed
	now := time.Now().UTC()
	p.CompletedAt = &now
	p.UpdatedAt = now
}

// Cancel moves a non-terminal photo to CANCELLED.
func (p *Photo) Cancel() bool {
	if p.IsTerminal() {
		return false
	}
	p.Status = PhotoStatusCancelled
	now := time.Now().UTC()
	p.CompletedAt = &now
	p.UpdatedAt = now
	return true
}

// IsTerminal reports whether the photo has no further outgoing transitions.
func (p *Photo) IsTerminal() bool {
	switch p.Status {
	case PhotoStatusCompleted, PhotoStatusFailed, PhotoStatusCancelled:
		return true
	}
	return false
}

func (p *Photo) IsDeleted() bool {
	return p.DeletedAt != nil
}

func (p *Photo) touch() {
	p.UpdatedAt = time.Now().UTC()
}

func (p *Photo) registerEvent(event DomainEvent) {
	p.events = append(p.events, event)
}

// Events returns the domain events registered since construction.
func (p *Photo) Events() []DomainEvent {
	return p.events
}

// ClearEvents drops registered events after they have been published.
func (p *Photo) ClearEvents() {
	p.events = nil
}
