package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/dropbox-connector/internal/core/domain"
	"github.com/custodia-labs/dropbox-connector/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DeliveryQueue = (*Queue)(nil)

const (
	// DefaultQueueSize bounds the deliveries held in memory.
	DefaultQueueSize = 1024

	queuePollInterval = 100 * time.Millisecond
)

// Queue is a bounded in-process DeliveryQueue.
// Deliveries are lost on restart; the provider's redelivery covers that gap.
type Queue struct {
	mu       sync.Mutex
	capacity int
	order    []string
	items    map[string]*domain.Delivery
	failed   int64
	notify   chan struct{}
}

// NewQueue creates a queue holding at most capacity deliveries.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueSize
	}
	return &Queue{
		capacity: capacity,
		items:    make(map[string]*domain.Delivery),
		notify:   make(chan struct{}, 1),
	}
}

func (q *Queue) Enqueue(ctx context.Context, delivery *domain.Delivery) error {
	if delivery == nil {
		return errors.New("delivery is required")
	}

	q.mu.Lock()
	if len(q.items) >= q.capacity {
		q.mu.Unlock()
		return domain.ErrQueueFull
	}
	d := *delivery
	q.items[d.ID] = &d
	q.order = append(q.order, d.ID)
	q.mu.Unlock()

	q.wake()
	return nil
}

func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout time.Duration) (*domain.Delivery, error) {
	deadline := time.Now().Add(timeout)

	for {
		if d := q.take(); d != nil {
			return d, nil
		}

		wait := time.Until(deadline)
		if wait <= 0 {
			return nil, nil
		}
		if wait > queuePollInterval {
			wait = queuePollInterval
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, nil
		case <-q.notify:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// take claims the oldest ready delivery.
func (q *Queue) take() *domain.Delivery {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, id := range q.order {
		d := q.items[id]
		if !d.IsReady() {
			continue
		}
		q.order = append(q.order[:i:i], q.order[i+1:]...)
		d.MarkProcessing()
		out := *d
		return &out
	}
	return nil
}

func (q *Queue) Ack(ctx context.Context, deliveryID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.items[deliveryID]; !ok {
		return domain.ErrNotFound
	}
	delete(q.items, deliveryID)
	return nil
}

func (q *Queue) Nack(ctx context.Context, deliveryID string, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	d, ok := q.items[deliveryID]
	if !ok {
		return domain.ErrNotFound
	}

	if !d.CanRetry() {
		delete(q.items, deliveryID)
		q.failed++
		return nil
	}

	d.Retry(reason)
	q.order = append(q.order, deliveryID)
	return nil
}

func (q *Queue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := &driven.QueueStats{FailedCount: q.failed}
	for _, d := range q.items {
		switch d.Status {
		case domain.DeliveryStatusPending:
			stats.PendingCount++
		case domain.DeliveryStatusProcessing:
			stats.ProcessingCount++
		}
	}
	return stats, nil
}

func (q *Queue) Ping(ctx context.Context) error {
	return nil
}

func (q *Queue) Close() error {
	return nil
}

func (q *Queue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
