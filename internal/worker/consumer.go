package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// objectEventCreated is the only notification type that triggers processing.
const objectEventCreated = "object.created"

// objectMessage is a parsed bucket notification handed to the worker pool.
type objectMessage struct {
	EventType   string
	ObjectKey   string
	Etag        string
	Size        int64
	DeliveryTag uint64
}

// setupConsumer sets up RabbitMQ consumer with QoS and returns delivery channel
func (w *Worker) setupConsumer(ctx context.Context) (<-chan amqp.Delivery, error) {
	// Get the RabbitMQ channel
	channel := w.rabbitClient.GetChannel()
	if channel == nil {
		return nil, fmt.Errorf("rabbitmq channel is nil")
	}

	// Set QoS (Quality of Service) to control message prefetching
	// prefetch_count: number of unacknowledged messages per consumer
	// prefetch_size: 0 means no specific byte limit
	// global: false means per-consumer, not per-channel
	err := channel.Qos(
		w.prefetchCount, // prefetch count from config
		0,               // prefetch size
		false,           // global
	)

	if err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	w.logger.Info("RabbitMQ QoS configured",
		slog.Int("prefetch_count", w.prefetchCount),
	)

	// Create unique consumer tag using worker ID
	consumerTag := w.workerID

	// Start consuming messages from the queue
	// auto-ack: false (manual acknowledgment for reliability)
	// exclusive: false (allow multiple consumers)
	deliveries, err := w.rabbitClient.Consume(consumerTag)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("RabbitMQ consumer started",
		slog.String("consumer_tag", consumerTag),
		slog.String("worker_id", w.workerID),
		slog.String("queue", w.rabbitMQQueueName),
	)

	return deliveries, nil
}

// startMessageDispatcher listens to RabbitMQ deliveries and dispatches
// notifications to the worker pool
func (w *Worker) startMessageDispatcher(ctx context.Context, deliveries <-chan amqp.Delivery) {
	w.logger.Info("Message dispatcher started",
		slog.String("worker_id", w.workerID),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Message dispatcher stopped - context canceled")
			return

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed")
				return
			}

			// Parse the bucket notification body
			var msg struct {
				EventType string `json:"event_type"`
				ObjectKey string `json:"object_key"`
				Etag      string `json:"etag"`
				Size      int64  `json:"size"`
			}

			if err := json.Unmarshal(delivery.Body, &msg); err != nil {
				w.logger.Error("Failed to parse notification JSON",
					slog.String("error", err.Error()),
					slog.String("body", string(delivery.Body)),
				)
				// NACK without requeue - malformed messages should go to DLQ
				if nackErr := delivery.Nack(false, false); nackErr != nil {
					w.logger.Error("Failed to NACK malformed message",
						slog.String("error", nackErr.Error()),
					)
				}
				continue
			}

			if msg.ObjectKey == "" {
				w.logger.Error("Notification missing object_key",
					slog.String("body", string(delivery.Body)),
				)
				if nackErr := delivery.Nack(false, false); nackErr != nil {
					w.logger.Error("Failed to NACK message without object_key",
						slog.String("error", nackErr.Error()),
					)
				}
				continue
			}

			// Only created objects trigger processing; lifecycle noise is acked away
			if msg.EventType != objectEventCreated {
				w.logger.Debug("Ignoring notification type",
					slog.String("event_type", msg.EventType),
					slog.String("object_key", msg.ObjectKey),
				)
				if ackErr := delivery.Ack(false); ackErr != nil {
					w.logger.Error("Failed to ACK ignored notification",
						slog.String("error", ackErr.Error()),
					)
				}
				continue
			}

			objectMsg := &objectMessage{
				EventType:   msg.EventType,
				ObjectKey:   msg.ObjectKey,
				Etag:        msg.Etag,
				Size:        msg.Size,
				DeliveryTag: delivery.DeliveryTag,
			}

			// Send to worker pool via msgsChan
			select {
			case w.msgsChan <- objectMsg:
				w.logger.Debug("Notification dispatched to worker pool",
					slog.String("object_key", msg.ObjectKey),
					slog.Uint64("delivery_tag", delivery.DeliveryTag),
				)
			case <-ctx.Done():
				w.logger.Info("Message dispatcher stopped while dispatching")
				// NACK the message so it can be reprocessed
				if nackErr := delivery.Nack(false, true); nackErr != nil {
					w.logger.Error("Failed to NACK message on shutdown",
						slog.String("error", nackErr.Error()),
					)
				}
				return
			}
		}
	}
}
