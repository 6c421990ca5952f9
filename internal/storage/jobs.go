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

type jobRow struct {
	JobID          string    `db:"job_id"`
	UserID         string    `db:"user_id"`
	TotalCount     int       `db:"total_count"`
	CompletedCount int       `db:"completed_count"`
	FailedCount    int       `db:"failed_count"`
	CancelledCount int       `db:"cancelled_count"`
	Status         string    `db:"status"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (r *jobRow) toDomain() *domain.UploadJob {
	return &domain.UploadJob{
		JobID:          r.JobID,
		UserID:         r.UserID,
		TotalCount:     r.TotalCount,
		CompletedCount: r.CompletedCount,
		FailedCount:    r.FailedCount,
		CancelledCount: r.CancelledCount,
		Status:         r.Status,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

const jobColumns = `
	job_id, user_id, total_count, completed_count, failed_count,
	cancelled_count, status, created_at, updated_at
`

// CreateUploadJob inserts the job, its photos, and every domain event they
// registered, all in one transaction. No partial job creation: any failure
// rolls the whole batch back.
func (s *Storage) CreateUploadJob(ctx context.Context, job *domain.UploadJob) error {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO upload_jobs (
				job_id, user_id, total_count, completed_count, failed_count,
				cancelled_count, status, created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5,
				$6, $7, $8, $9
			)
		`

		_, err := tx.ExecContext(
			ctx,
			query,
			job.JobID,
			job.UserID,
			job.TotalCount,
			job.CompletedCount,
			job.FailedCount,
			job.CancelledCount,
			job.Status,
			job.CreatedAt,
			job.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert upload job: %w", err)
		}

		for _, photo := range job.Photos {
			if err := s.insertPhoto(ctx, tx, photo); err != nil {
				return err
			}
			for _, event := range photo.Events() {
				if err := s.outbox.Publish(ctx, tx, event, domain.AggregatePhoto); err != nil {
					return err
				}
			}
		}

		for _, event := range job.Events() {
			if err := s.outbox.Publish(ctx, tx, event, domain.AggregateUploadJob); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	job.ClearEvents()
	for _, photo := range job.Photos {
		photo.ClearEvents()
	}

	s.logger.Info("Upload job created",
		slog.String("job_id", job.JobID),
		slog.String("user_id", job.UserID),
		slog.Int("total_count", job.TotalCount),
	)

	return nil
}

// GetJob retrieves a job by its ID, without its photo collection
func (s *Storage) GetJob(ctx context.Context, jobID string) (*domain.UploadJob, error) {
	query := `SELECT ` + jobColumns + ` FROM upload_jobs WHERE job_id = $1`

	var row jobRow
	if err := s.db.GetContext(ctx, &row, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get upload job: %w", err)
	}

	return row.toDomain(), nil
}

// GetJobWithPhotos retrieves a job together with its full photo collection
func (s *Storage) GetJobWithPhotos(ctx context.Context, jobID string) (*domain.UploadJob, error) {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if err := s.loadJobPhotos(ctx, s.db, job); err != nil {
		return nil, err
	}

	return job, nil
}

// RecomputeJobProgress reloads the job and its photos under a row lock,
// recomputes the counters from current photo state, and persists the result.
// Returns the status before recomputation alongside the updated job so the
// caller can detect terminal transitions.
func (s *Storage) RecomputeJobProgress(ctx context.Context, jobID string) (string, *domain.UploadJob, error) {
	var previousStatus string
	var job *domain.UploadJob

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		// Lock the job row so concurrent recomputations serialize instead of
		// losing updates.
		query := `SELECT ` + jobColumns + ` FROM upload_jobs WHERE job_id = $1 FOR UPDATE`

		var row jobRow
		if err := tx.GetContext(ctx, &row, query, jobID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrJobNotFound
			}
			return fmt.Errorf("failed to lock upload job: %w", err)
		}

		job = row.toDomain()
		previousStatus = job.Status

		if err := s.loadJobPhotos(ctx, tx, job); err != nil {
			return err
		}

		job.RecomputeProgress()

		update := `
			UPDATE upload_jobs
			SET completed_count = $1,
			    failed_count = $2,
			    cancelled_count = $3,
			    status = $4,
			    updated_at = $5
			WHERE job_id = $6
		`

		if _, err := tx.ExecContext(
			ctx,
			update,
			job.CompletedCount,
			job.FailedCount,
			job.CancelledCount,
			job.Status,
			job.UpdatedAt,
			job.JobID,
		); err != nil {
			return fmt.Errorf("failed to update upload job: %w", err)
		}

		return nil
	})
	if err != nil {
		return "", nil, err
	}

	return previousStatus, job, nil
}

func (s *Storage) loadJobPhotos(ctx context.Context, q sqlx.QueryerContext, job *domain.UploadJob) error {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE job_id = $1 ORDER BY created_at, photo_id`

	var rows []photoRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, job.JobID); err != nil {
		return fmt.Errorf("failed to load job photos: %w", err)
	}

	job.Photos = make([]*domain.Photo, len(rows))
	for i := range rows {
		job.Photos[i] = rows[i].toDomain()
	}

	return nil
}
