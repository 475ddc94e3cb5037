package domain

import (
	"testing"
	"time"
)

func TestNewDelivery(t *testing.T) {
	d := NewDelivery([]string{"dbid:a", "dbid:b"})

	if d.ID == "" {
		t.Error("expected non-empty ID")
	}
	if len(d.Accounts) != 2 {
		t.Errorf("expected 2 accounts, got %d", len(d.Accounts))
	}
	if d.Status != DeliveryStatusPending {
		t.Errorf("expected status %s, got %s", DeliveryStatusPending, d.Status)
	}
	if d.Attempts != 0 {
		t.Errorf("expected attempts 0, got %d", d.Attempts)
	}
	if d.MaxAttempts != DefaultDeliveryMaxAttempts {
		t.Errorf("expected max attempts %d, got %d", DefaultDeliveryMaxAttempts, d.MaxAttempts)
	}
	if !d.IsReady() {
		t.Error("expected new delivery to be ready")
	}
	if NewDelivery(nil).ID == d.ID {
		t.Error("expected unique IDs")
	}
}

func TestDelivery_Lifecycle(t *testing.T) {
	d := NewDelivery([]string{"dbid:a"})

	d.MarkProcessing()
	if d.Status != DeliveryStatusProcessing || d.Attempts != 1 {
		t.Fatalf("expected processing with 1 attempt, got %s/%d", d.Status, d.Attempts)
	}
	if d.IsReady() {
		t.Error("processing delivery must not be ready")
	}

	d.Retry("boom")
	if d.Status != DeliveryStatusPending {
		t.Errorf("expected pending after retry, got %s", d.Status)
	}
	if d.Error != "boom" {
		t.Errorf("expected error to be recorded, got %q", d.Error)
	}
	if !d.ScheduledFor.After(time.Now()) {
		t.Error("expected retry to be scheduled in the future")
	}
	if d.IsReady() {
		t.Error("delivery must not be ready before its backoff elapses")
	}

	d.MarkProcessing()
	d.MarkCompleted()
	if d.Status != DeliveryStatusCompleted || d.Error != "" {
		t.Errorf("expected completed with cleared error, got %s/%q", d.Status, d.Error)
	}

	d.MarkFailed("gone")
	if d.Status != DeliveryStatusFailed || d.Error != "gone" {
		t.Errorf("expected failed with error, got %s/%q", d.Status, d.Error)
	}
}

func TestDelivery_CanRetry(t *testing.T) {
	d := NewDelivery(nil)
	d.MaxAttempts = 2

	d.MarkProcessing()
	if !d.CanRetry() {
		t.Error("expected retry after first attempt")
	}
	d.MarkProcessing()
	if d.CanRetry() {
		t.Error("expected no retry once attempts are exhausted")
	}
}

func TestDelivery_Backoff(t *testing.T) {
	tests := []struct {
		attempts int
		expected time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{3, 8 * time.Second},
		{8, 256 * time.Second},
		{9, 5 * time.Minute},
		{40, 5 * time.Minute},
	}

	for _, tt := range tests {
		d := &Delivery{Attempts: tt.attempts}
		if got := d.Backoff(); got != tt.expected {
			t.Errorf("attempts %d: expected %v, got %v", tt.attempts, tt.expected, got)
		}
	}
}
