package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/starscape/rapidupload/internal/domain"
)

// photoRow mirrors the photos table, with nullable columns widened for
// scanning. Conversion to the domain aggregate happens in toDomain.
type photoRow struct {
	PhotoID      string         `db:"photo_id"`
	JobID        string         `db:"job_id"`
	UserID       string         `db:"user_id"`
	Filename     string         `db:"filename"`
	MimeType     string         `db:"mime_type"`
	Bytes        int64          `db:"bytes"`
	S3Key        sql.NullString `db:"s3_key"`
	S3Bucket     sql.NullString `db:"s3_bucket"`
	Etag         sql.NullString `db:"etag"`
	Checksum     sql.NullString `db:"checksum"`
	Width        sql.NullInt32  `db:"width"`
	Height       sql.NullInt32  `db:"height"`
	ExifJSON     []byte         `db:"exif_json"`
	Status       string         `db:"status"`
	ErrorMessage sql.NullString `db:"error_message"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	CompletedAt  sql.NullTime   `db:"completed_at"`
	DeletedAt    sql.NullTime   `db:"deleted_at"`
}

func (r *photoRow) toDomain() *domain.Photo {
	p := &domain.Photo{
		PhotoID:      r.PhotoID,
		JobID:        r.JobID,
		UserID:       r.UserID,
		Filename:     r.Filename,
		MimeType:     r.MimeType,
		Bytes:        r.Bytes,
		S3Key:        r.S3Key.String,
		S3Bucket:     r.S3Bucket.String,
		Etag:         r.Etag.String,
		Checksum:     r.Checksum.String,
		Width:        int(r.Width.Int32),
		Height:       int(r.Height.Int32),
		ExifJSON:     r.ExifJSON,
		Status:       r.Status,
		ErrorMessage: r.ErrorMessage.String,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.CompletedAt.Valid {
		t := r.CompletedAt.Time
		p.CompletedAt = &t
	}
	if r.DeletedAt.Valid {
		t := r.DeletedAt.Time
		p.DeletedAt = &t
	}
	return p
}

const photoColumns = `
	photo_id, job_id, user_id, filename, mime_type, bytes,
	s3_key, s3_bucket, etag, checksum, width, height, exif_json,
	status, error_message, created_at, updated_at, completed_at, deleted_at
`

// GetPhoto retrieves a photo by its ID
func (s *Storage) GetPhoto(ctx context.Context, photoID string) (*domain.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE photo_id = $1`

	var row photoRow
	if err := s.db.GetContext(ctx, &row, query, photoID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPhotoNotFound
		}
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}

	return row.toDomain(), nil
}

// UpdatePhoto persists the photo's mutable columns without touching the outbox.
// Used for transitions that raise no domain event (UPLOADING, PROCESSING,
// CANCELLED).
func (s *Storage) UpdatePhoto(ctx context.Context, photo *domain.Photo) error {
	if _, err := s.execUpdatePhoto(ctx, s.db, photo); err != nil {
		return err
	}
	return nil
}

// SavePhotoWithEvent persists the photo and appends the event inside one
// transaction: the state change and its event commit or roll back together.
func (s *Storage) SavePhotoWithEvent(ctx context.Context, photo *domain.Photo, event domain.DomainEvent) error {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.execUpdatePhoto(ctx, tx, photo); err != nil {
			return err
		}
		return s.outbox.Publish(ctx, tx, event, domain.AggregatePhoto)
	})
	if err != nil {
		return err
	}

	s.logger.Debug("Photo saved with event",
		slog.String("photo_id", photo.PhotoID),
		slog.String("status", photo.Status),
		slog.String("event_type", event.EventType()),
	)

	return nil
}

func (s *Storage) execUpdatePhoto(ctx context.Context, ext sqlx.ExtContext, photo *domain.Photo) (int64, error) {
	query := `
		UPDATE photos
		SET s3_key = $1,
		    s3_bucket = $2,
		    etag = $3,
		    checksum = $4,
		    width = $5,
		    height = $6,
		    exif_json = $7,
		    status = $8,
		    error_message = $9,
		    updated_at = $10,
		    completed_at = $11,
		    deleted_at = $12
		WHERE photo_id = $13
	`

	result, err := ext.ExecContext(
		ctx,
		query,
		nullString(photo.S3Key),
		nullString(photo.S3Bucket),
		nullString(photo.Etag),
		nullString(photo.Checksum),
		nullInt(photo.Width),
		nullInt(photo.Height),
		photo.ExifJSON,
		photo.Status,
		nullString(photo.ErrorMessage),
		photo.UpdatedAt,
		nullTime(photo.CompletedAt),
		nullTime(photo.DeletedAt),
		photo.PhotoID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update photo: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		s.logger.Warn("Photo update affected no rows",
			slog.String("photo_id", photo.PhotoID),
		)
	}

	return rows, nil
}

func (s *Storage) insertPhoto(ctx context.Context, tx *sqlx.Tx, photo *domain.Photo) error {
	query := `
		INSERT INTO photos (
			photo_id, job_id, user_id, filename, mime_type, bytes,
			status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9
		)
	`

	_, err := tx.ExecContext(
		ctx,
		query,
		photo.PhotoID,
		photo.JobID,
		photo.UserID,
		photo.Filename,
		photo.MimeType,
		photo.Bytes,
		photo.Status,
		photo.CreatedAt,
		photo.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert photo: %w", err)
	}

	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int) sql.NullInt32 {
	return sql.NullInt32{Int32: int32(n), Valid: n != 0}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
