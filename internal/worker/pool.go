package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starscape/rapidupload/internal/domain"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}

	w.logger.Info("Worker pool spawned successfully",
		slog.Int("worker_count", w.concurrency),
	)
}

// workerLoop is the main processing loop for each worker goroutine
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Info("Worker goroutine started",
		slog.String("worker_name", workerName),
		slog.Int("worker_num", workerNum),
	)

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("Worker goroutine stopping - stopChan closed",
				slog.String("worker_name", workerName),
			)
			return

		case <-ctx.Done():
			w.logger.Info("Worker goroutine stopping - context canceled",
				slog.String("worker_name", workerName),
			)
			return

		case msg, ok := <-w.msgsChan:
			if !ok {
				w.logger.Info("Worker goroutine stopping - msgsChan closed",
					slog.String("worker_name", workerName),
				)
				return
			}

			w.logger.Info("Worker received notification",
				slog.String("worker_name", workerName),
				slog.String("object_key", msg.ObjectKey),
				slog.Uint64("delivery_tag", msg.DeliveryTag),
			)

			// Process the photo
			err := w.processor.ProcessPhoto(ctx, msg.ObjectKey, msg.Etag, msg.Size)

			// Get RabbitMQ channel for ACK/NACK
			channel := w.rabbitClient.GetChannel()
			if channel == nil {
				w.logger.Error("Failed to get RabbitMQ channel for ACK/NACK",
					slog.String("worker_name", workerName),
					slog.String("object_key", msg.ObjectKey),
				)
				continue
			}

			// ACK or NACK based on processing result
			if err != nil {
				w.logger.Error("Photo processing failed",
					slog.String("worker_name", workerName),
					slog.String("object_key", msg.ObjectKey),
					slog.String("error", err.Error()),
				)

				// Requeue decision based on error type
				requeue := w.shouldRequeue(err)

				if nackErr := channel.Nack(msg.DeliveryTag, false, requeue); nackErr != nil {
					w.logger.Error("Failed to NACK message",
						slog.String("worker_name", workerName),
						slog.String("object_key", msg.ObjectKey),
						slog.String("error", nackErr.Error()),
					)
				} else {
					w.logger.Info("Message NACKed",
						slog.String("worker_name", workerName),
						slog.String("object_key", msg.ObjectKey),
						slog.Bool("requeue", requeue),
					)
				}
			} else {
				// Processing settled - ACK the message
				if ackErr := channel.Ack(msg.DeliveryTag, false); ackErr != nil {
					w.logger.Error("Failed to ACK message",
						slog.String("worker_name", workerName),
						slog.String("object_key", msg.ObjectKey),
						slog.String("error", ackErr.Error()),
					)
				} else {
					w.logger.Debug("Notification processed",
						slog.String("worker_name", workerName),
						slog.String("object_key", msg.ObjectKey),
					)
				}
			}
		}
	}
}

// shouldRequeue determines if a notification should be requeued based on the
// error type. Only transient errors come back; everything else has already
// been settled against the photo row.
func (w *Worker) shouldRequeue(err error) bool {
	var retryableErr *domain.RetryableError
	return errors.As(err, &retryableErr)
}
