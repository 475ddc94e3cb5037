package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/dropbox-connector/internal/core/domain"
)

// DeliveryQueue holds change notifications for background processing.
// Implementations exist for Redis Streams, PostgreSQL and process memory.
type DeliveryQueue interface {
	// Enqueue adds a delivery. Bounded implementations return domain.ErrQueueFull.
	Enqueue(ctx context.Context, delivery *domain.Delivery) error

	// DequeueWithTimeout claims the next ready delivery, waiting up to timeout.
	// Returns nil, nil if nothing became available.
	DequeueWithTimeout(ctx context.Context, timeout time.Duration) (*domain.Delivery, error)

	// Ack removes a processed delivery from the queue.
	Ack(ctx context.Context, deliveryID string) error

	// Nack reschedules a failed delivery with backoff, or marks it failed
	// once its attempts are used up.
	Nack(ctx context.Context, deliveryID string, reason string) error

	// Stats returns queue statistics.
	Stats(ctx context.Context) (*QueueStats, error)

	// Ping checks if the queue backend is healthy.
	Ping(ctx context.Context) error

	// Close releases resources owned by the queue.
	Close() error
}

// QueueStats contains queue statistics.
type QueueStats struct {
	PendingCount    int64 `json:"pending_count"`
	ProcessingCount int64 `json:"processing_count"`
	FailedCount     int64 `json:"failed_count"`
}
