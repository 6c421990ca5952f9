package broadcast

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/starscape/rapidupload/internal/domain"
	"github.com/starscape/rapidupload/internal/outbox"
)

// PhotoListenerStore is the slice of storage the photo listener needs.
type PhotoListenerStore interface {
	FetchUnprocessedEvents(ctx context.Context, limit int) ([]outbox.Event, error)
	GetPhoto(ctx context.Context, photoID string) (*domain.Photo, error)
}

// PhotoListener polls the outbox and pushes a photo-level update for every
// photo event it has not pushed yet. It reads without consuming, so it keeps
// its own memory of which event ids it already handled.
type PhotoListener struct {
	store       PhotoListenerStore
	broadcaster Broadcaster
	interval    time.Duration
	batchSize   int
	seen        *recentCache
	logger      *slog.Logger
}

// NewPhotoListener creates a new PhotoListener instance
func NewPhotoListener(store PhotoListenerStore, broadcaster Broadcaster, interval time.Duration, batchSize int, logger *slog.Logger) *PhotoListener {
	return &PhotoListener{
		store:       store,
		broadcaster: broadcaster,
		interval:    interval,
		batchSize:   batchSize,
		seen:        newRecentCache(10*time.Minute, 10000),
		logger:      logger,
	}
}

// Run polls until the context is canceled.
func (l *PhotoListener) Run(ctx context.Context) {
	l.logger.Info("Photo listener started",
		slog.Duration("interval", l.interval),
		slog.Int("batch_size", l.batchSize),
	)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Photo listener stopped")
			return
		case <-ticker.C:
			l.Poll(ctx)
		}
	}
}

// Poll runs one observation pass over the unprocessed outbox events.
func (l *PhotoListener) Poll(ctx context.Context) {
	events, err := l.store.FetchUnprocessedEvents(ctx, l.batchSize)
	if err != nil {
		l.logger.Error("Failed to fetch outbox events",
			slog.Any("error", err),
		)
		return
	}

	for _, event := range events {
		if _, done := l.seen.get(event.EventID); done {
			continue
		}
		if err := l.handle(ctx, event); err != nil {
			// Leave unseen so the next poll retries it
			l.logger.Warn("Failed to push photo update",
				slog.String("event_id", event.EventID),
				slog.Any("error", err),
			)
			continue
		}
		l.seen.put(event.EventID, event.EventType)
	}
}

func (l *PhotoListener) handle(ctx context.Context, event outbox.Event) error {
	decoded, err := event.Decode()
	if err != nil {
		if errors.Is(err, domain.ErrUnknownEventType) {
			return nil
		}
		return err
	}

	switch e := decoded.(type) {
	case domain.PhotoQueued:
		// The queued payload carries no job id; resolve it from the row
		photo, err := l.store.GetPhoto(ctx, e.PhotoID)
		if err != nil {
			return err
		}
		return l.broadcaster.PhotoProgress(ctx, ProgressUpdate{
			PhotoID: e.PhotoID,
			JobID:   photo.JobID,
			UserID:  e.UserID,
			Status:  domain.PhotoStatusQueued,
			Percent: 0,
			Message: MessagePhotoQueued,
		})
	case domain.PhotoProcessingCompleted:
		return l.broadcaster.PhotoProgress(ctx, ProgressUpdate{
			PhotoID: e.PhotoID,
			JobID:   e.JobID,
			UserID:  e.UserID,
			Status:  domain.PhotoStatusCompleted,
			Percent: 100,
			Message: MessageProcessingComplete,
		})
	case domain.PhotoFailed:
		return l.broadcaster.PhotoProgress(ctx, ProgressUpdate{
			PhotoID:      e.PhotoID,
			JobID:        e.JobID,
			UserID:       e.UserID,
			Status:       domain.PhotoStatusFailed,
			Percent:      0,
			Message:      e.ErrorMessage,
			ErrorMessage: e.ErrorMessage,
		})
	default:
		// Job-level events belong to the job listener
		return nil
	}
}
