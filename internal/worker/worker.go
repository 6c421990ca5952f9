// Package worker consumes bucket object-created notifications from RabbitMQ
// and drives photo processing through a bounded goroutine pool.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/starscape/rapidupload/internal/processing"
	"github.com/starscape/rapidupload/shared/rabbitmq"
)

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	RabbitClient  *rabbitmq.Client
	Processor     *processing.Processor
	Concurrency   int
	PrefetchCount int
	QueueName     string
}

// Worker represents the photo processing worker
type Worker struct {
	logger            *slog.Logger
	rabbitClient      *rabbitmq.Client
	processor         *processing.Processor
	concurrency       int
	prefetchCount     int
	rabbitMQQueueName string
	workerID          string
	msgsChan          chan *objectMessage
	wg                sync.WaitGroup
	stopChan          chan struct{}
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	return &Worker{
		logger:            cfg.Logger,
		rabbitClient:      cfg.RabbitClient,
		processor:         cfg.Processor,
		concurrency:       cfg.Concurrency,
		prefetchCount:     cfg.PrefetchCount,
		rabbitMQQueueName: cfg.QueueName,
		workerID:          fmt.Sprintf("photo-worker-%s", uuid.New().String()[:8]),
		msgsChan:          make(chan *objectMessage),
		stopChan:          make(chan struct{}),
	}
}

// Start begins consuming notifications and processing photos. It blocks until
// the context is canceled.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
	)

	deliveries, err := w.setupConsumer(ctx)
	if err != nil {
		return fmt.Errorf("failed to setup consumer: %w", err)
	}

	w.spawnWorkerPool(ctx)

	w.startMessageDispatcher(ctx, deliveries)

	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
