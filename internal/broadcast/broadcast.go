// Package broadcast pushes live pipeline updates toward connected clients.
// Listeners here observe the outbox without consuming it; only the progress
// aggregator ever stamps events processed.
package broadcast

import (
	"context"
	"time"
)

// ProgressUpdate is a photo-level status push. Percent is coarse: 0 for
// queued and failed, 100 for completed. Message is the human-readable line
// clients display next to the photo.
type ProgressUpdate struct {
	Type         string    `json:"type"`
	PhotoID      string    `json:"photoId"`
	JobID        string    `json:"jobId"`
	UserID       string    `json:"userId"`
	Status       string    `json:"status"`
	Percent      int       `json:"percent"`
	Message      string    `json:"message"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Messages sent with photo-level pushes.
const (
	MessagePhotoQueued        = "Photo queued for upload"
	MessageProcessingComplete = "Processing complete"
)

// JobStatusUpdate is a job-level progress push with current counters.
type JobStatusUpdate struct {
	Type           string    `json:"type"`
	JobID          string    `json:"jobId"`
	UserID         string    `json:"userId"`
	Status         string    `json:"status"`
	TotalCount     int       `json:"totalCount"`
	CompletedCount int       `json:"completedCount"`
	FailedCount    int       `json:"failedCount"`
	CancelledCount int       `json:"cancelledCount"`
	Timestamp      time.Time `json:"timestamp"`
}

// JobCompletionUpdate is the final push for a job that produced at least one
// completed photo. Its status is always "COMPLETED" regardless of partial
// failures; the counters tell the full story.
type JobCompletionUpdate struct {
	Type           string    `json:"type"`
	JobID          string    `json:"jobId"`
	UserID         string    `json:"userId"`
	Status         string    `json:"status"`
	TotalCount     int       `json:"totalCount"`
	CompletedCount int       `json:"completedCount"`
	FailedCount    int       `json:"failedCount"`
	Timestamp      time.Time `json:"timestamp"`
}

// Update type tags.
const (
	TypePhotoStatus   = "PHOTO_STATUS"
	TypeJobStatus     = "JOB_STATUS"
	TypeJobCompletion = "JOB_COMPLETION"
)

// CompletionStatus is the status string clients receive on the final push.
const CompletionStatus = "COMPLETED"

// Broadcaster delivers updates to whoever is listening on the job's channel.
type Broadcaster interface {
	PhotoProgress(ctx context.Context, update ProgressUpdate) error
	JobStatus(ctx context.Context, update JobStatusUpdate) error
	JobCompletion(ctx context.Context, update JobCompletionUpdate) error
}

// RoutingKey returns the per-job routing key updates are published under.
func RoutingKey(jobID string) string {
	return "job." + jobID
}
