// Package processing turns a stored original photo into its derived metadata
// and renditions. It is driven by bucket object-created notifications and is
// safe to re-run: replays of the same notification converge on the same row.
package processing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starscape/rapidupload/internal/blob"
	"github.com/starscape/rapidupload/internal/domain"
)

// PhotoStore is the slice of storage the processor needs.
type PhotoStore interface {
	GetPhoto(ctx context.Context, photoID string) (*domain.Photo, error)
	UpdatePhoto(ctx context.Context, photo *domain.Photo) error
	SavePhotoWithEvent(ctx context.Context, photo *domain.Photo, event domain.DomainEvent) error
}

// Processor derives metadata and renditions for uploaded photos
type Processor struct {
	store          PhotoStore
	blobs          blob.Store
	bucket         string
	renditionSizes []int
	logger         *slog.Logger
}

// NewProcessor creates a new Processor instance
func NewProcessor(store PhotoStore, blobs blob.Store, bucket string, renditionSizes []int, logger *slog.Logger) *Processor {
	return &Processor{
		store:          store,
		blobs:          blobs,
		bucket:         bucket,
		renditionSizes: renditionSizes,
		logger:         logger,
	}
}

// ProcessPhoto handles one object-created notification end to end. Fatal
// errors (undecodable image) fail the photo and return nil so the message is
// acked; transient errors (blob download, database) return a RetryableError
// so the message is requeued.
func (p *Processor) ProcessPhoto(ctx context.Context, objectKey, etag string, size int64) error {
	// Step 1: Ignore rendition writes, they are our own output
	if blob.IsRenditionKey(objectKey) {
		p.logger.Debug("Skipping rendition object",
			slog.String("object_key", objectKey),
		)
		return nil
	}

	// Step 2: Resolve the photo from the object key
	photoID := blob.PhotoIDFromKey(objectKey)
	if photoID == "" {
		p.logger.Warn("Object key does not map to a photo, skipping",
			slog.String("object_key", objectKey),
		)
		return nil
	}

	photo, err := p.store.GetPhoto(ctx, photoID)
	if err != nil {
		if errors.Is(err, domain.ErrPhotoNotFound) {
			// Orphan object - nothing to process against
			p.logger.Warn("No photo row for object, skipping",
				slog.String("object_key", objectKey),
				slog.String("photo_id", photoID),
			)
			return nil
		}
		return domain.NewRetryableError(fmt.Errorf("failed to load photo: %w", err))
	}

	// Step 3: Idempotency - replayed notifications for a settled photo are no-ops
	if photo.IsTerminal() {
		p.logger.Info("Photo already terminal, skipping",
			slog.String("photo_id", photo.PhotoID),
			slog.String("status", photo.Status),
		)
		return nil
	}

	// Step 4: Record the object location and move to PROCESSING
	if photo.MarkProcessing(objectKey, p.bucket, etag) {
		if err := p.store.UpdatePhoto(ctx, photo); err != nil {
			return domain.NewRetryableError(fmt.Errorf("failed to persist PROCESSING: %w", err))
		}
	}

	// Step 5: Download the original
	data, err := p.blobs.Download(ctx, objectKey)
	if err != nil {
		if errors.Is(err, blob.ErrObjectNotFound) {
			return p.failPhoto(ctx, photo, fmt.Sprintf("object %s not found in bucket", objectKey))
		}
		return domain.NewRetryableError(fmt.Errorf("failed to download object: %w", err))
	}

	// Step 6: Checksum over the exact stored bytes
	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])

	// Step 7: EXIF extraction - best effort, failure is recorded, not fatal
	exifJSON := ExtractExif(data)

	// Step 8: Decode dimensions - an undecodable original is a fatal failure
	img, format, err := decodeImage(data)
	if err != nil {
		return p.failPhoto(ctx, photo, fmt.Sprintf("failed to decode image: %s", err.Error()))
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	// Step 9: Generate renditions - a failed size is logged and skipped
	for _, renditionSize := range p.renditionSizes {
		if err := p.generateRendition(ctx, objectKey, img, format, renditionSize); err != nil {
			p.logger.Warn("Failed to generate rendition",
				slog.String("photo_id", photo.PhotoID),
				slog.Int("size", renditionSize),
				slog.String("error", err.Error()),
			)
		}
	}

	// Step 10: Complete the photo and raise the event in one transaction
	if !photo.MarkCompleted(width, height, exifJSON, checksum) {
		p.logger.Warn("Photo refused COMPLETED transition",
			slog.String("photo_id", photo.PhotoID),
			slog.String("status", photo.Status),
		)
		return nil
	}

	event := domain.PhotoProcessingCompleted{
		PhotoID:    photo.PhotoID,
		UserID:     photo.UserID,
		JobID:      photo.JobID,
		Width:      width,
		Height:     height,
		Checksum:   checksum,
		OccurredOn: photo.UpdatedAt,
	}

	if err := p.store.SavePhotoWithEvent(ctx, photo, event); err != nil {
		return domain.NewRetryableError(fmt.Errorf("failed to complete photo: %w", err))
	}

	p.logger.Info("Photo processed",
		slog.String("photo_id", photo.PhotoID),
		slog.String("job_id", photo.JobID),
		slog.Int("width", width),
		slog.Int("height", height),
	)

	return nil
}

// failPhoto moves the photo to FAILED with its PhotoFailed event. A failed
// persist here is transient, the notification will be retried.
func (p *Processor) failPhoto(ctx context.Context, photo *domain.Photo, errorMessage string) error {
	photo.MarkFailed(errorMessage)

	event := domain.PhotoFailed{
		PhotoID:      photo.PhotoID,
		UserID:       photo.UserID,
		JobID:        photo.JobID,
		ErrorMessage: errorMessage,
		OccurredOn:   photo.UpdatedAt,
	}

	if err := p.store.SavePhotoWithEvent(ctx, photo, event); err != nil {
		return domain.NewRetryableError(fmt.Errorf("failed to persist FAILED: %w", err))
	}

	p.logger.Warn("Photo failed",
		slog.String("photo_id", photo.PhotoID),
		slog.String("job_id", photo.JobID),
		slog.String("error", errorMessage),
	)

	return nil
}
