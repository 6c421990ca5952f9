package storage

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starscape/rapidupload/internal/domain"
)

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "postgres")
	return NewStorage(sqlxDB, slog.New(slog.DiscardHandler)), mock
}

func photoRowColumns() []string {
	return []string{
		"photo_id", "job_id", "user_id", "filename", "mime_type", "bytes",
		"s3_key", "s3_bucket", "etag", "checksum", "width", "height", "exif_json",
		"status", "error_message", "created_at", "updated_at", "completed_at", "deleted_at",
	}
}

func addPhotoRow(rows *sqlmock.Rows, photoID, jobID, status string) *sqlmock.Rows {
	now := time.Now().UTC()
	return rows.AddRow(
		photoID, jobID, "user_1", "a.jpg", "image/jpeg", int64(10),
		nil, nil, nil, nil, nil, nil, nil,
		status, nil, now, now, nil, nil,
	)
}

func TestGetPhoto(t *testing.T) {
	s, mock := newMockStorage(t)

	rows := addPhotoRow(sqlmock.NewRows(photoRowColumns()), "ph_1", "job_1", domain.PhotoStatusQueued)
	mock.ExpectQuery(`SELECT .+ FROM photos WHERE photo_id = \$1`).
		WithArgs("ph_1").
		WillReturnRows(rows)

	photo, err := s.GetPhoto(context.Background(), "ph_1")
	require.NoError(t, err)
	assert.Equal(t, "ph_1", photo.PhotoID)
	assert.Equal(t, "job_1", photo.JobID)
	assert.Equal(t, domain.PhotoStatusQueued, photo.Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPhoto_NotFound(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectQuery(`SELECT .+ FROM photos WHERE photo_id = \$1`).
		WithArgs("ph_missing").
		WillReturnRows(sqlmock.NewRows(photoRowColumns()))

	_, err := s.GetPhoto(context.Background(), "ph_missing")
	assert.ErrorIs(t, err, domain.ErrPhotoNotFound)
}

func TestSavePhotoWithEvent(t *testing.T) {
	s, mock := newMockStorage(t)

	photo, err := domain.NewPhoto("ph_1", "job_1", "user_1", "a.jpg", "image/jpeg", 10)
	require.NoError(t, err)
	photo.ClearEvents()
	require.True(t, photo.MarkProcessing("dev/u/j/ph_1.jpg", "photos", "etag"))
	require.True(t, photo.MarkCompleted(800, 600, []byte(`{}`), "sum"))

	event := domain.PhotoProcessingCompleted{PhotoID: "ph_1", JobID: "job_1", UserID: "user_1"}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE photos`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO outbox_events`).
		WithArgs(sqlmock.AnyArg(), domain.AggregatePhoto, "ph_1", domain.EventTypePhotoProcessingCompleted, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.SavePhotoWithEvent(context.Background(), photo, event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSavePhotoWithEvent_OutboxFailureRollsBack(t *testing.T) {
	s, mock := newMockStorage(t)

	photo, err := domain.NewPhoto("ph_1", "job_1", "user_1", "a.jpg", "image/jpeg", 10)
	require.NoError(t, err)
	photo.ClearEvents()
	photo.MarkFailed("decode failed")

	event := domain.PhotoFailed{PhotoID: "ph_1", JobID: "job_1", UserID: "user_1", ErrorMessage: "decode failed"}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE photos`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO outbox_events`).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = s.SavePhotoWithEvent(context.Background(), photo, event)
	require.Error(t, err)
}

func TestCreateUploadJob(t *testing.T) {
	s, mock := newMockStorage(t)

	job, err := domain.NewUploadJob("job_1", "user_1", 1)
	require.NoError(t, err)
	photo, err := domain.NewPhoto("ph_1", "job_1", "user_1", "a.jpg", "image/jpeg", 10)
	require.NoError(t, err)
	job.AddPhoto(photo)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO upload_jobs`).
		WithArgs("job_1", "user_1", 1, 0, 0, 0, domain.JobStatusQueued, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO photos`).
		WithArgs("ph_1", "job_1", "user_1", "a.jpg", "image/jpeg", int64(10), domain.PhotoStatusQueued, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// One PhotoQueued event for the photo, one UploadJobCreated for the job
	mock.ExpectExec(`INSERT INTO outbox_events`).
		WithArgs(sqlmock.AnyArg(), domain.AggregatePhoto, "ph_1", domain.EventTypePhotoQueued, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO outbox_events`).
		WithArgs(sqlmock.AnyArg(), domain.AggregateUploadJob, "job_1", domain.EventTypeUploadJobCreated, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.CreateUploadJob(context.Background(), job))

	// Registered events are cleared once the transaction commits
	assert.Empty(t, job.Events())
	assert.Empty(t, photo.Events())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUploadJob_PhotoInsertFailureRollsBack(t *testing.T) {
	s, mock := newMockStorage(t)

	job, err := domain.NewUploadJob("job_1", "user_1", 1)
	require.NoError(t, err)
	photo, err := domain.NewPhoto("ph_1", "job_1", "user_1", "a.jpg", "image/jpeg", 10)
	require.NoError(t, err)
	job.AddPhoto(photo)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO upload_jobs`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO photos`).
		WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	err = s.CreateUploadJob(context.Background(), job)
	require.Error(t, err)

	// Events stay registered for a retry
	assert.NotEmpty(t, job.Events())
}

func eventRowColumns() []string {
	return []string{
		"event_id", "aggregate_type", "aggregate_id", "event_type", "payload",
		"created_at", "processed_at", "claimed_by", "claimed_at",
	}
}

func TestClaimUnprocessedEvents(t *testing.T) {
	s, mock := newMockStorage(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows(eventRowColumns()).
		AddRow("evt_1", domain.AggregatePhoto, "ph_1", domain.EventTypePhotoProcessingCompleted, []byte(`{}`), now, nil, "aggregator-1", now)

	mock.ExpectQuery(`UPDATE outbox_events`).
		WithArgs("aggregator-1", "30 seconds", 50).
		WillReturnRows(rows)

	events, err := s.ClaimUnprocessedEvents(context.Background(), "aggregator-1", 50, 30*time.Second)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "evt_1", events[0].EventID)
	assert.False(t, events[0].Processed())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkEventProcessed(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectExec(`UPDATE outbox_events`).
		WithArgs("evt_1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.MarkEventProcessed(context.Background(), "evt_1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecomputeJobProgress(t *testing.T) {
	s, mock := newMockStorage(t)

	now := time.Now().UTC()
	jobCols := []string{
		"job_id", "user_id", "total_count", "completed_count", "failed_count",
		"cancelled_count", "status", "created_at", "updated_at",
	}
	jobRows := sqlmock.NewRows(jobCols).
		AddRow("job_1", "user_1", 2, 1, 0, 0, domain.JobStatusInProgress, now, now)

	photoRows := sqlmock.NewRows(photoRowColumns())
	addPhotoRow(photoRows, "ph_1", "job_1", domain.PhotoStatusCompleted)
	addPhotoRow(photoRows, "ph_2", "job_1", domain.PhotoStatusFailed)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM upload_jobs WHERE job_id = \$1 FOR UPDATE`).
		WithArgs("job_1").
		WillReturnRows(jobRows)
	mock.ExpectQuery(`SELECT .+ FROM photos WHERE job_id = \$1`).
		WithArgs("job_1").
		WillReturnRows(photoRows)
	mock.ExpectExec(`UPDATE upload_jobs`).
		WithArgs(1, 1, 0, domain.JobStatusCompletedWithErrors, sqlmock.AnyArg(), "job_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	previous, job, err := s.RecomputeJobProgress(context.Background(), "job_1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusInProgress, previous)
	assert.Equal(t, domain.JobStatusCompletedWithErrors, job.Status)
	assert.Equal(t, 1, job.CompletedCount)
	assert.Equal(t, 1, job.FailedCount)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecomputeJobProgress_NotFound(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM upload_jobs WHERE job_id = \$1 FOR UPDATE`).
		WithArgs("job_missing").
		WillReturnRows(sqlmock.NewRows(nil))
	mock.ExpectRollback()

	_, _, err := s.RecomputeJobProgress(context.Background(), "job_missing")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}
