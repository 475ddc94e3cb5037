package driven

import (
	"context"

	"github.com/custodia-labs/dropbox-connector/internal/core/domain"
)

// AccountStore persists the per-account cursor record.
type AccountStore interface {
	// Get retrieves a record by account id.
	// Returns domain.ErrNotFound if the account is not registered.
	Get(ctx context.Context, accountID string) (*domain.AccountRecord, error)

	// Create inserts a new record.
	// Returns domain.ErrAlreadyExists if the account is already registered.
	Create(ctx context.Context, record *domain.AccountRecord) error

	// Save inserts or replaces a record.
	Save(ctx context.Context, record *domain.AccountRecord) error

	// UpdateCursor replaces the cursor only if the stored value still equals expected.
	// Returns domain.ErrCursorConflict if it moved, domain.ErrNotFound if absent.
	UpdateCursor(ctx context.Context, accountID, expected, next string) error

	// Ping checks if the store backend is healthy.
	Ping(ctx context.Context) error
}
