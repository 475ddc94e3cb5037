package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/dropbox-connector/internal/core/domain"
)

// MockAccountStore is an in-memory AccountStore with optional failure hooks.
type MockAccountStore struct {
	mu      sync.RWMutex
	records map[string]domain.AccountRecord
	updates int

	GetFn          func(accountID string) (*domain.AccountRecord, error)
	UpdateCursorFn func(accountID, expected, next string) error
	PingFn         func() error
}

// NewMockAccountStore creates a new MockAccountStore
func NewMockAccountStore() *MockAccountStore {
	return &MockAccountStore{
		records: make(map[string]domain.AccountRecord),
	}
}

func (m *MockAccountStore) Get(ctx context.Context, accountID string) (*domain.AccountRecord, error) {
	if m.GetFn != nil {
		return m.GetFn(accountID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[accountID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (m *MockAccountStore) Create(ctx context.Context, record *domain.AccountRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[record.AccountID]; ok {
		return domain.ErrAlreadyExists
	}
	m.records[record.AccountID] = *record
	return nil
}

func (m *MockAccountStore) Save(ctx context.Context, record *domain.AccountRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.AccountID] = *record
	return nil
}

func (m *MockAccountStore) UpdateCursor(ctx context.Context, accountID, expected, next string) error {
	if m.UpdateCursorFn != nil {
		return m.UpdateCursorFn(accountID, expected, next)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[accountID]
	if !ok {
		return domain.ErrNotFound
	}
	if rec.Cursor != expected {
		return domain.ErrCursorConflict
	}
	rec.Cursor = next
	rec.UpdatedAt = time.Now()
	m.records[accountID] = rec
	m.updates++
	return nil
}

func (m *MockAccountStore) Ping(ctx context.Context) error {
	if m.PingFn != nil {
		return m.PingFn()
	}
	return nil
}

// Cursor returns the stored cursor for accountID, or "" if absent.
func (m *MockAccountStore) Cursor(accountID string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.records[accountID].Cursor
}

// CursorUpdates returns how many cursor writes succeeded.
func (m *MockAccountStore) CursorUpdates() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.updates
}
