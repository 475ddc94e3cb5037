package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/dropbox-connector/internal/core/domain"
	"github.com/custodia-labs/dropbox-connector/internal/core/ports/driven"
)

const (
	// Stream names
	deliveryStream      = "dropbox-connector:deliveries"
	deliveryGroup       = "dropbox-connector:workers"
	scheduledDeliveries = "dropbox-connector:deliveries:scheduled"
	failedDeliveries    = "dropbox-connector:deliveries:failed"

	// Key prefixes
	deliveryKeyPrefix = "dropbox-connector:delivery:"

	// Default consumer name prefix
	consumerPrefix = "worker-"

	// Claim timeout - how long before a delivery is considered abandoned
	claimTimeout = 5 * time.Minute

	// Deliveries are kept this long so a retry can still find its data
	deliveryTTL = 24 * time.Hour
)

// Verify interface compliance
var _ driven.DeliveryQueue = (*Queue)(nil)

// Queue implements DeliveryQueue using Redis Streams.
// Consumer groups give at-most-one worker per message, and messages left
// pending by a crashed worker are reclaimed after claimTimeout.
type Queue struct {
	client       *redis.Client
	consumerName string
}

// NewQueue creates a new Redis-backed delivery queue.
// The consumerName should be unique per worker instance (e.g., hostname + PID).
func NewQueue(ctx context.Context, client *redis.Client, consumerName string) (*Queue, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if consumerName == "" {
		consumerName = fmt.Sprintf("%s%d", consumerPrefix, time.Now().UnixNano())
	}

	q := &Queue{
		client:       client,
		consumerName: consumerName,
	}

	// Create consumer group if it doesn't exist
	err := q.client.XGroupCreateMkStream(ctx, deliveryStream, deliveryGroup, "0").Err()
	if err != nil && !isGroupExistsError(err) {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return q, nil
}

// Enqueue adds a delivery to the queue for processing.
func (q *Queue) Enqueue(ctx context.Context, delivery *domain.Delivery) error {
	if delivery == nil {
		return errors.New("delivery is required")
	}

	data, err := json.Marshal(delivery)
	if err != nil {
		return fmt.Errorf("failed to marshal delivery: %w", err)
	}

	pipe := q.client.Pipeline()
	pipe.Set(ctx, deliveryKeyPrefix+delivery.ID, data, deliveryTTL)

	if delivery.ScheduledFor.After(time.Now()) {
		pipe.ZAdd(ctx, scheduledDeliveries, redis.Z{
			Score:  float64(delivery.ScheduledFor.Unix()),
			Member: delivery.ID,
		})
	} else {
		pipe.XAdd(ctx, streamArgs(delivery.ID))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to enqueue delivery: %w", err)
	}

	return nil
}

// DequeueWithTimeout retrieves the next available delivery, waiting up to timeout.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout time.Duration) (*domain.Delivery, error) {
	// Best effort: a failure here only delays retries
	_ = q.promoteScheduled(ctx)

	delivery, err := q.claimAbandoned(ctx)
	if err == nil && delivery != nil {
		return delivery, nil
	}

	block := timeout
	if block <= 0 {
		block = -1 // no BLOCK argument
	}

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    deliveryGroup,
		Consumer: q.consumerName,
		Streams:  []string{deliveryStream, ">"},
		Count:    1,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}

	return q.take(ctx, streams[0].Messages[0])
}

// Ack acknowledges successful processing and drops the delivery.
func (q *Queue) Ack(ctx context.Context, deliveryID string) error {
	msgID, err := q.client.Get(ctx, msgKey(deliveryID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to get message ID: %w", err)
	}

	pipe := q.client.Pipeline()
	if msgID != "" {
		pipe.XAck(ctx, deliveryStream, deliveryGroup, msgID)
		pipe.XDel(ctx, deliveryStream, msgID)
	}
	pipe.Del(ctx, deliveryKeyPrefix+deliveryID, msgKey(deliveryID))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to ack delivery: %w", err)
	}

	return nil
}

// Nack schedules a retry or, once attempts are exhausted, parks the delivery
// in the failed set.
func (q *Queue) Nack(ctx context.Context, deliveryID string, reason string) error {
	delivery, err := q.get(ctx, deliveryID)
	if err != nil {
		return fmt.Errorf("failed to get delivery: %w", err)
	}
	if delivery == nil {
		return domain.ErrNotFound
	}

	msgID, _ := q.client.Get(ctx, msgKey(deliveryID)).Result()

	pipe := q.client.Pipeline()
	if msgID != "" {
		pipe.XAck(ctx, deliveryStream, deliveryGroup, msgID)
		pipe.XDel(ctx, deliveryStream, msgID)
	}

	if delivery.CanRetry() {
		delivery.Retry(reason)
		pipe.ZAdd(ctx, scheduledDeliveries, redis.Z{
			Score:  float64(delivery.ScheduledFor.Unix()),
			Member: delivery.ID,
		})
	} else {
		delivery.MarkFailed(reason)
		pipe.ZAdd(ctx, failedDeliveries, redis.Z{
			Score:  float64(delivery.UpdatedAt.Unix()),
			Member: delivery.ID,
		})
	}

	data, err := json.Marshal(delivery)
	if err != nil {
		return fmt.Errorf("failed to marshal delivery: %w", err)
	}
	pipe.Set(ctx, deliveryKeyPrefix+deliveryID, data, deliveryTTL)
	pipe.Del(ctx, msgKey(deliveryID))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to nack delivery: %w", err)
	}

	return nil
}

// Stats returns queue statistics.
func (q *Queue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	stats := &driven.QueueStats{}

	length, err := q.client.XLen(ctx, deliveryStream).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get stream length: %w", err)
	}

	scheduled, err := q.client.ZCard(ctx, scheduledDeliveries).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get scheduled count: %w", err)
	}

	failed, err := q.client.ZCard(ctx, failedDeliveries).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get failed count: %w", err)
	}

	pending, err := q.client.XPending(ctx, deliveryStream, deliveryGroup).Result()
	if err == nil {
		stats.ProcessingCount = pending.Count
	}

	// Stream entries stay until acked, so in-flight ones are not pending.
	stats.PendingCount = length - stats.ProcessingCount + scheduled
	stats.FailedCount = failed
	return stats, nil
}

// Ping checks if the queue backend is healthy.
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close cleans up resources.
func (q *Queue) Close() error {
	// Redis client is shared, don't close it here
	return nil
}

// take loads the delivery behind a stream message and marks it processing.
func (q *Queue) take(ctx context.Context, msg redis.XMessage) (*domain.Delivery, error) {
	deliveryID, ok := msg.Values["delivery_id"].(string)
	if !ok {
		q.drop(ctx, msg.ID)
		return nil, nil
	}

	delivery, err := q.get(ctx, deliveryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery data: %w", err)
	}
	if delivery == nil {
		// Delivery data expired, acknowledge and skip
		q.drop(ctx, msg.ID)
		return nil, nil
	}

	delivery.MarkProcessing()

	data, err := json.Marshal(delivery)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal delivery: %w", err)
	}

	pipe := q.client.Pipeline()
	pipe.Set(ctx, deliveryKeyPrefix+delivery.ID, data, deliveryTTL)
	pipe.Set(ctx, msgKey(delivery.ID), msg.ID, deliveryTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to mark delivery processing: %w", err)
	}

	return delivery, nil
}

func (q *Queue) get(ctx context.Context, deliveryID string) (*domain.Delivery, error) {
	data, err := q.client.Get(ctx, deliveryKeyPrefix+deliveryID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var delivery domain.Delivery
	if err := json.Unmarshal([]byte(data), &delivery); err != nil {
		return nil, fmt.Errorf("failed to unmarshal delivery: %w", err)
	}
	return &delivery, nil
}

func (q *Queue) drop(ctx context.Context, msgID string) {
	q.client.XAck(ctx, deliveryStream, deliveryGroup, msgID)
	q.client.XDel(ctx, deliveryStream, msgID)
}

// promoteScheduled moves due retries back onto the stream.
func (q *Queue) promoteScheduled(ctx context.Context) error {
	due, err := q.client.ZRangeByScore(ctx, scheduledDeliveries, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(time.Now().Unix(), 10),
	}).Result()
	if err != nil {
		return err
	}

	for _, id := range due {
		// ZRem decides which worker promotes the entry
		removed, err := q.client.ZRem(ctx, scheduledDeliveries, id).Result()
		if err != nil {
			return err
		}
		if removed == 0 {
			continue
		}
		if err := q.client.XAdd(ctx, streamArgs(id)).Err(); err != nil {
			return err
		}
	}

	return nil
}

// claimAbandoned takes over a message another consumer left pending too long.
func (q *Queue) claimAbandoned(ctx context.Context) (*domain.Delivery, error) {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: deliveryStream,
		Group:  deliveryGroup,
		Start:  "-",
		End:    "+",
		Count:  10,
		Idle:   claimTimeout,
	}).Result()
	if err != nil {
		return nil, err
	}

	for _, p := range pending {
		claimed, err := q.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   deliveryStream,
			Group:    deliveryGroup,
			Consumer: q.consumerName,
			MinIdle:  claimTimeout,
			Messages: []string{p.ID},
		}).Result()
		if err != nil || len(claimed) == 0 {
			continue
		}

		delivery, err := q.take(ctx, claimed[0])
		if err != nil || delivery == nil {
			continue
		}
		return delivery, nil
	}

	return nil, nil
}

// Helper functions

func streamArgs(deliveryID string) *redis.XAddArgs {
	return &redis.XAddArgs{
		Stream: deliveryStream,
		Values: map[string]interface{}{"delivery_id": deliveryID},
	}
}

func msgKey(deliveryID string) string {
	return deliveryKeyPrefix + deliveryID + ":msg"
}

func isGroupExistsError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}
