package mocks

import (
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/dropbox-connector/internal/core/domain"
)

// MockStateSigner accepts only the states it issued, for the binding they were issued to.
type MockStateSigner struct {
	mu     sync.Mutex
	issued map[string]string

	IssueFn  func(binding string, ttl time.Duration) (string, error)
	VerifyFn func(state, binding string) error
}

// NewMockStateSigner creates a new MockStateSigner
func NewMockStateSigner() *MockStateSigner {
	return &MockStateSigner{issued: make(map[string]string)}
}

func (m *MockStateSigner) Issue(binding string, ttl time.Duration) (string, error) {
	if m.IssueFn != nil {
		return m.IssueFn(binding, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	state := fmt.Sprintf("state-%d", len(m.issued)+1)
	m.issued[state] = binding
	return state, nil
}

func (m *MockStateSigner) Verify(state, binding string) error {
	if m.VerifyFn != nil {
		return m.VerifyFn(state, binding)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	issuedTo, ok := m.issued[state]
	if !ok || binding == "" || issuedTo != binding {
		return domain.ErrTokenInvalid
	}
	return nil
}
