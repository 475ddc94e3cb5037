package domain

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus represents the current state of a queued delivery
type DeliveryStatus string

const (
	DeliveryStatusPending    DeliveryStatus = "pending"
	DeliveryStatusProcessing DeliveryStatus = "processing"
	DeliveryStatusCompleted  DeliveryStatus = "completed"
	DeliveryStatusFailed     DeliveryStatus = "failed"
)

const (
	// DefaultDeliveryMaxAttempts is how often a delivery is tried before it is dropped.
	DefaultDeliveryMaxAttempts = 5

	maxDeliveryBackoff = 5 * time.Minute
)

// Delivery is one change notification queued for background processing.
type Delivery struct {
	// ID is the unique identifier for this delivery
	ID string `json:"id"`

	// Accounts are the account ids named by the notification
	Accounts []string `json:"accounts"`

	// Status is the current state of the delivery
	Status DeliveryStatus `json:"status"`

	// Attempts is how many times processing has started
	Attempts int `json:"attempts"`

	// MaxAttempts is the retry budget before the delivery is marked failed
	MaxAttempts int `json:"max_attempts"`

	// Error contains the last error message if processing failed
	Error string `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// ScheduledFor is the earliest time the delivery may be processed
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewDelivery creates a pending delivery for the given accounts.
func NewDelivery(accounts []string) *Delivery {
	now := time.Now()
	return &Delivery{
		ID:           uuid.NewString(),
		Accounts:     accounts,
		Status:       DeliveryStatusPending,
		MaxAttempts:  DefaultDeliveryMaxAttempts,
		CreatedAt:    now,
		UpdatedAt:    now,
		ScheduledFor: now,
	}
}

// CanRetry returns true if the delivery has attempts left
func (d *Delivery) CanRetry() bool {
	return d.Attempts < d.MaxAttempts
}

// IsReady returns true if the delivery is waiting and due
func (d *Delivery) IsReady() bool {
	return d.Status == DeliveryStatusPending && !time.Now().Before(d.ScheduledFor)
}

// MarkProcessing updates the delivery to processing state
func (d *Delivery) MarkProcessing() {
	d.Status = DeliveryStatusProcessing
	d.UpdatedAt = time.Now()
	d.Attempts++
}

// MarkCompleted updates the delivery to completed state
func (d *Delivery) MarkCompleted() {
	d.Status = DeliveryStatusCompleted
	d.UpdatedAt = time.Now()
	d.Error = ""
}

// MarkFailed updates the delivery to failed state
func (d *Delivery) MarkFailed(reason string) {
	d.Status = DeliveryStatusFailed
	d.UpdatedAt = time.Now()
	d.Error = reason
}

// Retry puts the delivery back to pending after an exponential backoff.
func (d *Delivery) Retry(reason string) {
	now := time.Now()
	d.Status = DeliveryStatusPending
	d.UpdatedAt = now
	d.Error = reason
	d.ScheduledFor = now.Add(d.Backoff())
}

// Backoff is the wait before the next attempt: 1s, 2s, 4s... capped at 5m.
func (d *Delivery) Backoff() time.Duration {
	if d.Attempts >= 9 {
		return maxDeliveryBackoff
	}
	backoff := time.Duration(1<<d.Attempts) * time.Second
	if backoff > maxDeliveryBackoff {
		backoff = maxDeliveryBackoff
	}
	return backoff
}
