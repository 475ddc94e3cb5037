package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/dropbox-connector/internal/core/domain"
	"github.com/custodia-labs/dropbox-connector/internal/core/ports/driven"
	"github.com/custodia-labs/dropbox-connector/internal/core/ports/driving"
)

const (
	defaultDequeueTimeout = 5 * time.Second
	errorBackoff          = time.Second
)

// Worker processes queued change notifications.
// It runs the sync engine for each delivery and acks or nacks the result.
type Worker struct {
	queue  driven.DeliveryQueue
	engine driving.SyncEngine
	logger *slog.Logger

	// Configuration
	concurrency    int
	dequeueTimeout time.Duration

	// Internal state
	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

// WorkerConfig holds configuration for the worker.
type WorkerConfig struct {
	Queue          driven.DeliveryQueue
	Engine         driving.SyncEngine
	Logger         *slog.Logger
	Concurrency    int           // Number of concurrent delivery processors
	DequeueTimeout time.Duration // How long to wait for a delivery before checking again
}

// NewWorker creates a new delivery worker.
func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	dequeueTimeout := cfg.DequeueTimeout
	if dequeueTimeout <= 0 {
		dequeueTimeout = defaultDequeueTimeout
	}

	return &Worker{
		queue:          cfg.Queue,
		engine:         cfg.Engine,
		logger:         logger,
		concurrency:    concurrency,
		dequeueTimeout: dequeueTimeout,
	}
}

// Start begins the worker loop.
// It runs until Stop is called or ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	loopCtx, cancel := context.WithCancel(ctx)
	w.running = true
	w.cancel = cancel
	w.doneCh = make(chan struct{})
	doneCh := w.doneCh
	w.mu.Unlock()

	w.logger.Info("worker starting",
		"concurrency", w.concurrency,
		"dequeue_timeout", w.dequeueTimeout,
	)

	var wg sync.WaitGroup
	for i := range w.concurrency {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.processLoop(loopCtx, workerID)
		}(i)
	}

	go func() {
		wg.Wait()
		close(doneCh)
	}()

	return nil
}

// Stop gracefully stops the worker. Deliveries already being processed
// run to completion.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.cancel()
	doneCh := w.doneCh
	w.mu.Unlock()

	<-doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("worker stopped")
}

// Wait blocks until the worker stops.
func (w *Worker) Wait() {
	w.mu.RLock()
	doneCh := w.doneCh
	w.mu.RUnlock()
	if doneCh != nil {
		<-doneCh
	}
}

// processLoop is the main processing loop for a worker goroutine.
func (w *Worker) processLoop(ctx context.Context, workerID int) {
	logger := w.logger.With("worker_id", workerID)
	logger.Debug("worker goroutine started")

	for {
		if ctx.Err() != nil {
			logger.Debug("worker goroutine stopping")
			return
		}

		delivery, err := w.queue.DequeueWithTimeout(ctx, w.dequeueTimeout)
		if err != nil {
			logger.Error("failed to dequeue delivery", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(errorBackoff):
			}
			continue
		}

		if delivery == nil {
			continue
		}

		// Stopping must not abandon a pass halfway through
		w.processDelivery(context.WithoutCancel(ctx), delivery, logger)
	}
}

// processDelivery runs one delivery and reports the outcome to the queue.
func (w *Worker) processDelivery(ctx context.Context, delivery *domain.Delivery, logger *slog.Logger) {
	logger = logger.With(
		"delivery_id", delivery.ID,
		"accounts", len(delivery.Accounts),
		"attempt", delivery.Attempts,
	)
	logger.Info("processing delivery")

	start := time.Now()
	result, err := w.engine.HandleDelivery(ctx, delivery.Accounts)
	duration := time.Since(start)

	if err != nil {
		attrs := []any{"duration", duration, "error", err}
		if result != nil {
			attrs = append(attrs, "failed_accounts", result.Count(domain.AccountFailed))
		}
		logger.Error("delivery failed", attrs...)

		if nackErr := w.queue.Nack(ctx, delivery.ID, err.Error()); nackErr != nil {
			logger.Error("failed to nack delivery", "nack_error", nackErr)
		}
		return
	}

	logger.Info("delivery completed",
		"duration", duration,
		"events", result.EventsEmitted(),
	)

	if ackErr := w.queue.Ack(ctx, delivery.ID); ackErr != nil {
		logger.Error("failed to ack delivery", "ack_error", ackErr)
	}
}

// Health reports worker and queue state.
type Health struct {
	Running     bool               `json:"running"`
	QueueHealth bool               `json:"queue_health"`
	Stats       *driven.QueueStats `json:"stats,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// Health returns the health status of the worker.
func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()

	health := Health{
		Running: running,
	}

	if err := w.queue.Ping(ctx); err != nil {
		health.Error = err.Error()
		return health
	}
	health.QueueHealth = true

	if stats, err := w.queue.Stats(ctx); err == nil {
		health.Stats = stats
	}

	return health
}

// Concurrency returns the number of processing goroutines.
func (w *Worker) Concurrency() int {
	return w.concurrency
}
