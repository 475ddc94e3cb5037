package mocks

import (
	"context"
	"net/url"
	"sync"

	"github.com/custodia-labs/dropbox-connector/internal/core/domain"
)

// MockAutomationPlatform records posted events and serves tokens from Tokens.
type MockAutomationPlatform struct {
	mu     sync.Mutex
	events []domain.SyncEvent

	Tokens map[string]string

	LookupCredentialFn func(accountID string) (string, error)
	PostEventFn        func(event domain.SyncEvent) error
}

// NewMockAutomationPlatform creates a new MockAutomationPlatform
func NewMockAutomationPlatform() *MockAutomationPlatform {
	return &MockAutomationPlatform{
		Tokens: make(map[string]string),
	}
}

func (m *MockAutomationPlatform) LookupCredential(ctx context.Context, accountID string) (string, error) {
	if m.LookupCredentialFn != nil {
		return m.LookupCredentialFn(accountID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.Tokens[accountID]
	if !ok {
		return "", domain.NewRejectionError("lookup credential", 404, "unknown author")
	}
	return token, nil
}

func (m *MockAutomationPlatform) PostEvent(ctx context.Context, event domain.SyncEvent) error {
	if m.PostEventFn != nil {
		if err := m.PostEventFn(event); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MockAutomationPlatform) ConnectedURL(profile domain.AccountProfile, accessState, refreshState string) string {
	q := url.Values{}
	q.Set("authorId", profile.AccountID)
	q.Set("authorName", profile.Label())
	q.Set("authorState", accessState)
	q.Set("refreshState", refreshState)
	return "https://platform.test/connected?" + q.Encode()
}

// Events returns the events posted so far.
func (m *MockAutomationPlatform) Events() []domain.SyncEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.SyncEvent(nil), m.events...)
}

// EventsFor returns the events posted for accountID.
func (m *MockAutomationPlatform) EventsFor(accountID string) []domain.SyncEvent {
	var out []domain.SyncEvent
	for _, e := range m.Events() {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out
}
