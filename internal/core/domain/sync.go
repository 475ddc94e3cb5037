package domain

import "fmt"

// EntryKind is the provider-reported kind of a changed entry.
type EntryKind string

const (
	EntryKindFile    EntryKind = "file"
	EntryKindFolder  EntryKind = "folder"
	EntryKindDeleted EntryKind = "deleted"
)

// ChangeEntry is one entry of a change listing.
type ChangeEntry struct {
	Kind EntryKind `json:"kind"`
	Path string    `json:"path"`
}

// IsFile reports whether the entry is a file; folders and deletions are never emitted.
func (e ChangeEntry) IsFile() bool {
	return e.Kind == EntryKindFile
}

// ChangePage is one page of changes since a cursor.
type ChangePage struct {
	Entries []ChangeEntry `json:"entries"`
	Cursor  string        `json:"cursor"`
	HasMore bool          `json:"has_more"`
}

// EventKindFile is the trigger value for a newly observed file.
const EventKindFile = "file"

// SyncEvent is a notification forwarded to the automation platform.
type SyncEvent struct {
	AccountID  string `json:"user"`
	SharedLink string `json:"text"`
	Kind       string `json:"-"`
}

// DeliveryMode selects the ordering of cursor commit and event emission.
type DeliveryMode string

const (
	// DeliveryCursorFirst commits the cursor before emitting (at-most-once).
	DeliveryCursorFirst DeliveryMode = "cursor_first"
	// DeliveryEmitFirst emits before committing the cursor (at-least-once).
	DeliveryEmitFirst DeliveryMode = "emit_first"
)

// ParseDeliveryMode validates a configured delivery mode.
// An empty string yields DeliveryCursorFirst.
func ParseDeliveryMode(s string) (DeliveryMode, error) {
	switch DeliveryMode(s) {
	case "", DeliveryCursorFirst:
		return DeliveryCursorFirst, nil
	case DeliveryEmitFirst:
		return DeliveryEmitFirst, nil
	default:
		return "", fmt.Errorf("%w: delivery mode %q", ErrInvalidInput, s)
	}
}

// AccountSyncStatus is the outcome of one account's sync pass.
type AccountSyncStatus string

const (
	AccountSynced  AccountSyncStatus = "synced"
	AccountSkipped AccountSyncStatus = "skipped"
	AccountFailed  AccountSyncStatus = "failed"
)

// AccountSyncResult summarises one account's sync pass.
type AccountSyncResult struct {
	AccountID      string            `json:"account_id"`
	Status         AccountSyncStatus `json:"status"`
	EntriesSeen    int               `json:"entries_seen"`
	FilesFound     int               `json:"files_found"`
	EventsEmitted  int               `json:"events_emitted"`
	PreviousCursor string            `json:"previous_cursor,omitempty"`
	Cursor         string            `json:"cursor,omitempty"`
	Error          string            `json:"error,omitempty"`
}

// CursorAdvanced reports whether the pass moved the cursor.
func (r *AccountSyncResult) CursorAdvanced() bool {
	return r.Cursor != "" && r.Cursor != r.PreviousCursor
}

// DeliveryResult summarises one change-notification delivery.
type DeliveryResult struct {
	Accounts []AccountSyncResult `json:"accounts"`
}

// Count returns how many accounts ended with status.
func (r *DeliveryResult) Count(status AccountSyncStatus) int {
	n := 0
	for _, a := range r.Accounts {
		if a.Status == status {
			n++
		}
	}
	return n
}

// EventsEmitted totals the events emitted across all accounts.
func (r *DeliveryResult) EventsEmitted() int {
	n := 0
	for _, a := range r.Accounts {
		n += a.EventsEmitted
	}
	return n
}
