package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/dropbox-connector/internal/core/domain"
	"github.com/custodia-labs/dropbox-connector/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.AccountStore = (*AccountStore)(nil)

// AccountStore keeps account records in process memory.
// Suitable for a single instance or development; records are lost on restart.
type AccountStore struct {
	mu      sync.RWMutex
	records map[string]domain.AccountRecord
}

// NewAccountStore creates an empty in-memory account store.
func NewAccountStore() *AccountStore {
	return &AccountStore{records: make(map[string]domain.AccountRecord)}
}

// Get returns a copy of the record for an account.
func (s *AccountStore) Get(ctx context.Context, accountID string) (*domain.AccountRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[accountID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

// Create inserts a record, failing if the account exists.
func (s *AccountStore) Create(ctx context.Context, record *domain.AccountRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[record.AccountID]; ok {
		return domain.ErrAlreadyExists
	}
	s.records[record.AccountID] = *record
	return nil
}

// Save creates or replaces a record, keeping the stored creation time.
// The caller's record is not modified.
func (s *AccountStore) Save(ctx context.Context, record *domain.AccountRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := *record
	if existing, ok := s.records[rec.AccountID]; ok && !existing.CreatedAt.IsZero() {
		rec.CreatedAt = existing.CreatedAt
	}
	s.records[rec.AccountID] = rec
	return nil
}

// UpdateCursor moves the cursor only if it still equals expected.
func (s *AccountStore) UpdateCursor(ctx context.Context, accountID, expected, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[accountID]
	if !ok {
		return domain.ErrNotFound
	}
	if rec.Cursor != expected {
		return domain.ErrCursorConflict
	}
	rec.Cursor = next
	rec.UpdatedAt = time.Now()
	s.records[accountID] = rec
	return nil
}

// Ping always succeeds.
func (s *AccountStore) Ping(ctx context.Context) error {
	return nil
}
