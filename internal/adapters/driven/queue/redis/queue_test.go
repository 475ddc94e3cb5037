package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/dropbox-connector/internal/core/domain"
)

func setupTestQueue(t *testing.T) (*Queue, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	q, err := NewQueue(context.Background(), client, "test-worker")
	if err != nil {
		t.Fatalf("failed to create queue: %v", err)
	}
	return q, client
}

func TestNewQueue_NilClient(t *testing.T) {
	if _, err := NewQueue(context.Background(), nil, ""); err == nil {
		t.Fatal("expected error for nil client")
	}
}

func TestNewQueue_GroupAlreadyExists(t *testing.T) {
	_, client := setupTestQueue(t)

	if _, err := NewQueue(context.Background(), client, "second-worker"); err != nil {
		t.Fatalf("expected existing consumer group to be reused, got %v", err)
	}
}

func TestQueue_EnqueueDequeue(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()

	d := domain.NewDelivery([]string{"dbid:a", "dbid:b"})
	if err := q.Enqueue(ctx, d); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	got, err := q.DequeueWithTimeout(ctx, 0)
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected a delivery")
	}
	if got.ID != d.ID {
		t.Errorf("expected id %s, got %s", d.ID, got.ID)
	}
	if len(got.Accounts) != 2 || got.Accounts[1] != "dbid:b" {
		t.Errorf("unexpected accounts: %v", got.Accounts)
	}
	if got.Status != domain.DeliveryStatusProcessing || got.Attempts != 1 {
		t.Errorf("expected processing with 1 attempt, got %s/%d", got.Status, got.Attempts)
	}

	again, err := q.DequeueWithTimeout(ctx, 0)
	if err != nil {
		t.Fatalf("second dequeue failed: %v", err)
	}
	if again != nil {
		t.Error("a claimed delivery must not be handed out twice")
	}
}

func TestQueue_DequeueEmpty(t *testing.T) {
	q, _ := setupTestQueue(t)

	got, err := q.DequeueWithTimeout(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil delivery, got %+v", got)
	}
}

func TestQueue_EnqueueNil(t *testing.T) {
	q, _ := setupTestQueue(t)

	if err := q.Enqueue(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil delivery")
	}
}

func TestQueue_ScheduledNotDequeuedEarly(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()

	d := domain.NewDelivery([]string{"dbid:a"})
	d.ScheduledFor = time.Now().Add(time.Hour)
	if err := q.Enqueue(ctx, d); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	got, err := q.DequeueWithTimeout(ctx, 0)
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if got != nil {
		t.Error("expected scheduled delivery to wait")
	}

	stats, err := q.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PendingCount != 1 {
		t.Errorf("expected 1 pending, got %d", stats.PendingCount)
	}
}

func TestQueue_Ack(t *testing.T) {
	q, client := setupTestQueue(t)
	ctx := context.Background()

	d := domain.NewDelivery([]string{"dbid:a"})
	_ = q.Enqueue(ctx, d)
	got, _ := q.DequeueWithTimeout(ctx, 0)
	if got == nil {
		t.Fatal("expected a delivery")
	}

	if err := q.Ack(ctx, got.ID); err != nil {
		t.Fatalf("ack failed: %v", err)
	}

	if n := client.Exists(ctx, deliveryKeyPrefix+got.ID).Val(); n != 0 {
		t.Error("expected delivery data to be removed")
	}

	stats, err := q.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PendingCount != 0 || stats.ProcessingCount != 0 {
		t.Errorf("expected empty queue, got %+v", stats)
	}
}

func TestQueue_NackRetries(t *testing.T) {
	q, client := setupTestQueue(t)
	ctx := context.Background()

	_ = q.Enqueue(ctx, domain.NewDelivery([]string{"dbid:a"}))
	got, _ := q.DequeueWithTimeout(ctx, 0)
	if got == nil {
		t.Fatal("expected a delivery")
	}

	if err := q.Nack(ctx, got.ID, "provider down"); err != nil {
		t.Fatalf("nack failed: %v", err)
	}

	if again, _ := q.DequeueWithTimeout(ctx, 0); again != nil {
		t.Fatal("expected retry to wait for its backoff")
	}

	// Make the retry due now
	client.ZAdd(ctx, scheduledDeliveries, redis.Z{Score: 0, Member: got.ID})

	retried, err := q.DequeueWithTimeout(ctx, 0)
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if retried == nil {
		t.Fatal("expected the retried delivery")
	}
	if retried.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", retried.Attempts)
	}
	if retried.Error != "provider down" {
		t.Errorf("expected last error to be kept, got %q", retried.Error)
	}
}

func TestQueue_NackExhausted(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()

	d := domain.NewDelivery([]string{"dbid:a"})
	d.MaxAttempts = 1
	_ = q.Enqueue(ctx, d)
	got, _ := q.DequeueWithTimeout(ctx, 0)
	if got == nil {
		t.Fatal("expected a delivery")
	}

	if err := q.Nack(ctx, got.ID, "still broken"); err != nil {
		t.Fatalf("nack failed: %v", err)
	}

	stats, err := q.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.FailedCount != 1 {
		t.Errorf("expected 1 failed, got %d", stats.FailedCount)
	}
	if stats.PendingCount != 0 {
		t.Errorf("expected nothing pending, got %d", stats.PendingCount)
	}
}

func TestQueue_NackUnknown(t *testing.T) {
	q, _ := setupTestQueue(t)

	err := q.Nack(context.Background(), "missing", "reason")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestQueue_Ping(t *testing.T) {
	q, _ := setupTestQueue(t)

	if err := q.Ping(context.Background()); err != nil {
		t.Errorf("unexpected ping error: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
}
