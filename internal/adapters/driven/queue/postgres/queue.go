package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/custodia-labs/dropbox-connector/internal/core/domain"
	"github.com/custodia-labs/dropbox-connector/internal/core/ports/driven"
)

// Ensure Queue implements DeliveryQueue
var _ driven.DeliveryQueue = (*Queue)(nil)

const defaultPollInterval = 500 * time.Millisecond

// Queue implements DeliveryQueue using PostgreSQL with SKIP LOCKED.
// This is the queue used when accounts are stored in PostgreSQL.
type Queue struct {
	db           *sql.DB
	pollInterval time.Duration
}

// NewQueue creates a new PostgreSQL-backed delivery queue.
// Assumes the deliveries table has been created via InitSchema.
func NewQueue(db *sql.DB) *Queue {
	return &Queue{db: db, pollInterval: defaultPollInterval}
}

// Enqueue adds a delivery to the queue
func (q *Queue) Enqueue(ctx context.Context, delivery *domain.Delivery) error {
	if delivery == nil {
		return errors.New("delivery is required")
	}

	query := `
		INSERT INTO deliveries (
			id, accounts, status, attempts, max_attempts, error,
			created_at, updated_at, scheduled_for
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := q.db.ExecContext(ctx, query,
		delivery.ID,
		pq.Array(delivery.Accounts),
		delivery.Status,
		delivery.Attempts,
		delivery.MaxAttempts,
		delivery.Error,
		delivery.CreatedAt,
		delivery.UpdatedAt,
		delivery.ScheduledFor,
	)
	if err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}

	return nil
}

// DequeueWithTimeout claims the next due delivery, polling until timeout.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout time.Duration) (*domain.Delivery, error) {
	deadline := time.Now().Add(timeout)

	for {
		delivery, err := q.claim(ctx)
		if err != nil || delivery != nil {
			return delivery, err
		}

		wait := time.Until(deadline)
		if wait <= 0 {
			return nil, nil
		}
		if wait > q.pollInterval {
			wait = q.pollInterval
		}

		select {
		case <-ctx.Done():
			return nil, nil
		case <-time.After(wait):
		}
	}
}

// claim atomically marks one due delivery as processing.
// SKIP LOCKED keeps concurrent workers from claiming the same row.
func (q *Queue) claim(ctx context.Context) (*domain.Delivery, error) {
	query := `
		UPDATE deliveries
		SET status = $1, attempts = attempts + 1, updated_at = NOW()
		WHERE id = (
			SELECT id FROM deliveries
			WHERE status = $2 AND scheduled_for <= NOW()
			ORDER BY scheduled_for ASC, created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, accounts, status, attempts, max_attempts, error,
			created_at, updated_at, scheduled_for
	`

	delivery, err := scanDelivery(q.db.QueryRowContext(ctx, query,
		domain.DeliveryStatusProcessing,
		domain.DeliveryStatusPending,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim delivery: %w", err)
	}
	return delivery, nil
}

// Ack removes a processed delivery
func (q *Queue) Ack(ctx context.Context, deliveryID string) error {
	result, err := q.db.ExecContext(ctx, `DELETE FROM deliveries WHERE id = $1`, deliveryID)
	if err != nil {
		return fmt.Errorf("delete delivery: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// Nack schedules a retry with exponential backoff, or marks the delivery failed
func (q *Queue) Nack(ctx context.Context, deliveryID string, reason string) error {
	delivery, err := q.get(ctx, deliveryID)
	if err != nil {
		return err
	}

	if delivery.CanRetry() {
		delivery.Retry(reason)
	} else {
		delivery.MarkFailed(reason)
	}

	query := `
		UPDATE deliveries
		SET status = $1, error = $2, updated_at = $3, scheduled_for = $4
		WHERE id = $5
	`
	_, err = q.db.ExecContext(ctx, query,
		delivery.Status,
		delivery.Error,
		delivery.UpdatedAt,
		delivery.ScheduledFor,
		deliveryID,
	)
	if err != nil {
		return fmt.Errorf("update delivery: %w", err)
	}

	return nil
}

// Stats returns queue statistics
func (q *Queue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = $1),
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE status = $3)
		FROM deliveries
	`

	var stats driven.QueueStats
	err := q.db.QueryRowContext(ctx, query,
		domain.DeliveryStatusPending,
		domain.DeliveryStatusProcessing,
		domain.DeliveryStatusFailed,
	).Scan(&stats.PendingCount, &stats.ProcessingCount, &stats.FailedCount)
	if err != nil {
		return nil, fmt.Errorf("count deliveries: %w", err)
	}

	return &stats, nil
}

// Ping checks if the database is reachable
func (q *Queue) Ping(ctx context.Context) error {
	return q.db.PingContext(ctx)
}

// Close is a no-op; the pool is owned by the caller
func (q *Queue) Close() error {
	return nil
}

func (q *Queue) get(ctx context.Context, deliveryID string) (*domain.Delivery, error) {
	query := `
		SELECT id, accounts, status, attempts, max_attempts, error,
			created_at, updated_at, scheduled_for
		FROM deliveries
		WHERE id = $1
	`

	delivery, err := scanDelivery(q.db.QueryRowContext(ctx, query, deliveryID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get delivery: %w", err)
	}
	return delivery, nil
}

func scanDelivery(row *sql.Row) (*domain.Delivery, error) {
	var d domain.Delivery
	err := row.Scan(
		&d.ID,
		pq.Array(&d.Accounts),
		&d.Status,
		&d.Attempts,
		&d.MaxAttempts,
		&d.Error,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.ScheduledFor,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
