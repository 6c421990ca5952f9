// Package aggregator folds terminal photo events into job progress. It is the
// only consumer that stamps outbox events processed; everything else observes
// the stream read-only.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starscape/rapidupload/internal/broadcast"
	"github.com/starscape/rapidupload/internal/domain"
	"github.com/starscape/rapidupload/internal/outbox"
)

// Store is the slice of storage the aggregator needs.
type Store interface {
	ClaimUnprocessedEvents(ctx context.Context, claimedBy string, limit int, lease time.Duration) ([]outbox.Event, error)
	MarkEventProcessed(ctx context.Context, eventID string) error
	RecomputeJobProgress(ctx context.Context, jobID string) (string, *domain.UploadJob, error)
}

// Aggregator claims outbox event batches, recomputes job progress for each
// affected job, and pushes the one completion update a finished job gets.
type Aggregator struct {
	store        Store
	broadcaster  broadcast.Broadcaster
	consumerName string
	interval     time.Duration
	batchSize    int
	lease        time.Duration
	logger       *slog.Logger
}

// NewAggregator creates a new Aggregator instance
func NewAggregator(store Store, broadcaster broadcast.Broadcaster, consumerName string, interval time.Duration, batchSize int, lease time.Duration, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		store:        store,
		broadcaster:  broadcaster,
		consumerName: consumerName,
		interval:     interval,
		batchSize:    batchSize,
		lease:        lease,
		logger:       logger,
	}
}

// Run polls until the context is canceled.
func (a *Aggregator) Run(ctx context.Context) {
	a.logger.Info("Progress aggregator started",
		slog.String("consumer", a.consumerName),
		slog.Duration("interval", a.interval),
		slog.Int("batch_size", a.batchSize),
	)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("Progress aggregator stopped")
			return
		case <-ticker.C:
			a.Poll(ctx)
		}
	}
}

// Poll claims and processes one batch of outbox events. An event whose
// handling fails stays claimed but unstamped; the claim lease expires and a
// later batch picks it up again.
func (a *Aggregator) Poll(ctx context.Context) {
	events, err := a.store.ClaimUnprocessedEvents(ctx, a.consumerName, a.batchSize, a.lease)
	if err != nil {
		a.logger.Error("Failed to claim outbox events",
			slog.Any("error", err),
		)
		return
	}

	for _, event := range events {
		if err := a.handle(ctx, event); err != nil {
			a.logger.Warn("Failed to handle outbox event, leaving for retry",
				slog.String("event_id", event.EventID),
				slog.String("event_type", event.EventType),
				slog.Any("error", err),
			)
			continue
		}

		if err := a.store.MarkEventProcessed(ctx, event.EventID); err != nil {
			a.logger.Error("Failed to mark event processed",
				slog.String("event_id", event.EventID),
				slog.Any("error", err),
			)
		}
	}
}

func (a *Aggregator) handle(ctx context.Context, event outbox.Event) error {
	decoded, err := event.Decode()
	if err != nil {
		if errors.Is(err, domain.ErrUnknownEventType) {
			// Stamp and move on; a newer deployment owns this type
			a.logger.Debug("Skipping unknown event type",
				slog.String("event_id", event.EventID),
				slog.String("event_type", event.EventType),
			)
			return nil
		}
		// Left unstamped; the claim lease bounds how often it comes back
		return fmt.Errorf("malformed outbox payload: %w", err)
	}

	var jobID string
	switch e := decoded.(type) {
	case domain.PhotoProcessingCompleted:
		jobID = e.JobID
	case domain.PhotoFailed:
		jobID = e.JobID
	default:
		// Lifecycle events carry no progress to fold in
		return nil
	}

	if jobID == "" {
		a.logger.Warn("Terminal photo event without job id",
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	previousStatus, job, err := a.store.RecomputeJobProgress(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to recompute job progress: %w", err)
	}

	a.logger.Debug("Job progress recomputed",
		slog.String("job_id", job.JobID),
		slog.String("status", job.Status),
		slog.Int("completed", job.CompletedCount),
		slog.Int("failed", job.FailedCount),
		slog.Int("cancelled", job.CancelledCount),
	)

	return a.maybePushCompletion(ctx, previousStatus, job)
}

// maybePushCompletion sends the final update exactly once, on the poll that
// transitions the job into COMPLETED or COMPLETED_WITH_ERRORS. Jobs that end
// fully failed get no completion push; their state is visible via status
// queries and the job listener.
func (a *Aggregator) maybePushCompletion(ctx context.Context, previousStatus string, job *domain.UploadJob) error {
	if job.Status == previousStatus {
		return nil
	}
	if job.Status != domain.JobStatusCompleted && job.Status != domain.JobStatusCompletedWithErrors {
		return nil
	}

	update := broadcast.JobCompletionUpdate{
		JobID:          job.JobID,
		UserID:         job.UserID,
		Status:         broadcast.CompletionStatus,
		TotalCount:     job.TotalCount,
		CompletedCount: job.CompletedCount,
		FailedCount:    job.FailedCount,
	}

	if err := a.broadcaster.JobCompletion(ctx, update); err != nil {
		return fmt.Errorf("failed to push completion update: %w", err)
	}

	a.logger.Info("Job completion pushed",
		slog.String("job_id", job.JobID),
		slog.String("final_status", job.Status),
	)

	return nil
}
