package domain

import (
	"time"
)

// Upload job status constants
const (
	JobStatusQueued              = "QUEUED"
	JobStatusInProgress          = "IN_PROGRESS"
	JobStatusCompleted           = "COMPLETED"
	JobStatusCompletedWithErrors = "COMPLETED_WITH_ERRORS"
	JobStatusFailed              = "FAILED"
)

// UploadJob is a batch of photos uploaded together. Its counters are derived
// from the live photo collection, never accumulated; status past QUEUED is a
// pure function of the counters.
type UploadJob struct {
	JobID          string
	UserID         string
	TotalCount     int
	CompletedCount int
	FailedCount    int
	CancelledCount int
	Status         string
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Photos []*Photo

	events []DomainEvent
}

// NewUploadJob creates a QUEUED job and registers its UploadJobCreated event.
func NewUploadJob(jobID, userID string, totalCount int) (*UploadJob, error) {
	if jobID == "" {
		return nil, ErrBlankJobID
	}
	if userID == "" {
		return nil, ErrBlankUserID
	}
	if totalCount <= 0 {
		return nil, ErrEmptyJob
	}

	now := time.Now().UTC()
	j := &UploadJob{
		JobID:      jobID,
		UserID:     userID,
		TotalCount: totalCount,
		Status:     JobStatusQueued,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	j.registerEvent(UploadJobCreated{
		JobID:      jobID,
		UserID:     userID,
		TotalCount: totalCount,
		OccurredOn: now,
	})

	return j, nil
}

// AddPhoto attaches a photo to the job's collection.
func (j *UploadJob) AddPhoto(p *Photo) {
	p.JobID = j.JobID
	j.Photos = append(j.Photos, p)
}

// RecomputeProgress recalculates the counters from the current photo
// collection and reclassifies the job status. Recomputing from live photo
// state rather than accumulating event payloads makes duplicate and
// out-of-order event delivery harmless.
func (j *UploadJob) RecomputeProgress() {
	var completed, failed, cancelled int
	for _, p := range j.Photos {
		switch p.Status {
		case PhotoStatusCompleted:
			completed++
		case PhotoStatusFailed:
			failed++
		case PhotoStatusCancelled:
			cancelled++
		}
	}

	j.CompletedCount = completed
	j.FailedCount = failed
	j.CancelledCount = cancelled
	j.Status = ClassifyJobStatus(j.Status, j.TotalCount, completed, failed, cancelled)
	j.UpdatedAt = time.Now().UTC()
}

// ClassifyJobStatus maps a counter combination to exactly one job status.
// The mapping is total: every reachable combination has one answer.
func ClassifyJobStatus(current string, total, completed, failed, cancelled int) string {
	terminal := completed + failed + cancelled
	if terminal < total {
		if terminal > 0 || current == JobStatusInProgress {
			return JobStatusInProgress
		}
		return current
	}
	switch {
	case failed == 0 && cancelled == 0:
		return JobStatusCompleted
	case completed > 0:
		return JobStatusCompletedWithErrors
	default:
		return JobStatusFailed
	}
}

// IsTerminal reports whether the job has no further outgoing transitions.
func (j *UploadJob) IsTerminal() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusCompletedWithErrors, JobStatusFailed:
		return true
	}
	return false
}

func (j *UploadJob) registerEvent(event DomainEvent) {
	j.events = append(j.events, event)
}

// Events returns the domain events registered since construction.
func (j *UploadJob) Events() []DomainEvent {
	return j.events
}

// ClearEvents drops registered events after they have been published.
func (j *UploadJob) ClearEvents() {
	j.events = nil
}
