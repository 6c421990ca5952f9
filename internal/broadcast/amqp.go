package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// Publisher is the slice of the RabbitMQ client the broadcaster needs.
type Publisher interface {
	PublishTo(ctx context.Context, routingKey string, body []byte, contentType string) error
}

// AMQPBroadcaster publishes updates to a topic exchange keyed by job id, so a
// gateway can bind per-job queues for its connected clients.
type AMQPBroadcaster struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewAMQPBroadcaster creates a new AMQPBroadcaster instance
func NewAMQPBroadcaster(publisher Publisher, logger *slog.Logger) *AMQPBroadcaster {
	return &AMQPBroadcaster{
		publisher: publisher,
		logger:    logger,
	}
}

func (b *AMQPBroadcaster) PhotoProgress(ctx context.Context, update ProgressUpdate) error {
	update.Type = TypePhotoStatus
	update.Timestamp = time.Now().UTC()
	return b.publish(ctx, update.JobID, update)
}

func (b *AMQPBroadcaster) JobStatus(ctx context.Context, update JobStatusUpdate) error {
	update.Type = TypeJobStatus
	update.Timestamp = time.Now().UTC()
	return b.publish(ctx, update.JobID, update)
}

func (b *AMQPBroadcaster) JobCompletion(ctx context.Context, update JobCompletionUpdate) error {
	update.Type = TypeJobCompletion
	update.Timestamp = time.Now().UTC()
	return b.publish(ctx, update.JobID, update)
}

func (b *AMQPBroadcaster) publish(ctx context.Context, jobID string, update any) error {
	body, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal update: %w", err)
	}

	if err := b.publisher.PublishTo(ctx, RoutingKey(jobID), body, "application/json"); err != nil {
		return fmt.Errorf("failed to publish update: %w", err)
	}

	b.logger.Debug("Update broadcast",
		slog.String("job_id", jobID),
		slog.Int("body_size", len(body)),
	)

	return nil
}

var _ Broadcaster = (*AMQPBroadcaster)(nil)
