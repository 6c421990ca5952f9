package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starscape/rapidupload/internal/domain"
	"github.com/starscape/rapidupload/internal/outbox"
)

// JobListenerStore is the slice of storage the job listener needs.
type JobListenerStore interface {
	FetchUnprocessedEvents(ctx context.Context, limit int) ([]outbox.Event, error)
	GetJob(ctx context.Context, jobID string) (*domain.UploadJob, error)
}

// JobListener polls the outbox for terminal photo events, loads the current
// job snapshot for each affected job, and pushes it. A snapshot is pushed at
// most once: the listener remembers the last fingerprint it sent per job and
// stays silent while nothing changed.
type JobListener struct {
	store            JobListenerStore
	broadcaster      Broadcaster
	interval         time.Duration
	batchSize        int
	recentlyNotified *recentCache
	logger           *slog.Logger
}

// NewJobListener creates a new JobListener instance
func NewJobListener(store JobListenerStore, broadcaster Broadcaster, interval time.Duration, batchSize int, logger *slog.Logger) *JobListener {
	return &JobListener{
		store:            store,
		broadcaster:      broadcaster,
		interval:         interval,
		batchSize:        batchSize,
		recentlyNotified: newRecentCache(10*time.Minute, 10000),
		logger:           logger,
	}
}

// Run polls until the context is canceled.
func (l *JobListener) Run(ctx context.Context) {
	l.logger.Info("Job listener started",
		slog.Duration("interval", l.interval),
		slog.Int("batch_size", l.batchSize),
	)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Job listener stopped")
			return
		case <-ticker.C:
			l.Poll(ctx)
		}
	}
}

// Poll runs one observation pass over the unprocessed outbox events.
func (l *JobListener) Poll(ctx context.Context) {
	events, err := l.store.FetchUnprocessedEvents(ctx, l.batchSize)
	if err != nil {
		l.logger.Error("Failed to fetch outbox events",
			slog.Any("error", err),
		)
		return
	}

	jobIDs := affectedJobIDs(events)

	for _, jobID := range jobIDs {
		if err := l.pushJobSnapshot(ctx, jobID); err != nil {
			l.logger.Warn("Failed to push job update",
				slog.String("job_id", jobID),
				slog.Any("error", err),
			)
		}
	}
}

func (l *JobListener) pushJobSnapshot(ctx context.Context, jobID string) error {
	job, err := l.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	fingerprint := fmt.Sprintf("%s|%d|%d|%d",
		job.Status, job.CompletedCount, job.FailedCount, job.CancelledCount)

	if last, ok := l.recentlyNotified.get(jobID); ok && last == fingerprint {
		return nil
	}

	update := JobStatusUpdate{
		JobID:          job.JobID,
		UserID:         job.UserID,
		Status:         job.Status,
		TotalCount:     job.TotalCount,
		CompletedCount: job.CompletedCount,
		FailedCount:    job.FailedCount,
		CancelledCount: job.CancelledCount,
	}

	if err := l.broadcaster.JobStatus(ctx, update); err != nil {
		return err
	}

	l.recentlyNotified.put(jobID, fingerprint)
	return nil
}

// affectedJobIDs extracts the distinct job ids from terminal photo events,
// preserving first-seen order.
func affectedJobIDs(events []outbox.Event) []string {
	var jobIDs []string
	seen := make(map[string]struct{})

	for _, event := range events {
		decoded, err := event.Decode()
		if err != nil {
			continue
		}

		var jobID string
		switch e := decoded.(type) {
		case domain.PhotoProcessingCompleted:
			jobID = e.JobID
		case domain.PhotoFailed:
			jobID = e.JobID
		default:
			continue
		}

		if jobID == "" {
			continue
		}
		if _, ok := seen[jobID]; ok {
			continue
		}
		seen[jobID] = struct{}{}
		jobIDs = append(jobIDs, jobID)
	}

	return jobIDs
}
