package mocks

import (
	"context"
	"io"
	"sync"

	"github.com/custodia-labs/dropbox-connector/internal/core/domain"
)

// MockStorageProvider is a mock implementation of StorageProvider for testing.
// Pages are served from Pages keyed by the cursor they continue from.
type MockStorageProvider struct {
	mu sync.Mutex

	Pages        map[string]*domain.ChangePage
	LatestCursor string
	Profile      *domain.AccountProfile
	Grant        *domain.OAuthGrant

	AuthorizeURLFn      func(state string) string
	ExchangeCodeFn      func(code string) (*domain.OAuthGrant, error)
	RefreshFn           func(refreshSecret string) (*domain.OAuthGrant, error)
	GetAccountProfileFn func(cred domain.Credential) (*domain.AccountProfile, error)
	ListChangesPageFn   func(cred domain.Credential, cursor string) (*domain.ChangePage, error)
	GetLatestCursorFn   func(cred domain.Credential) (string, error)
	CreatePublicLinkFn  func(cred domain.Credential, path string) (string, error)
	UploadFn            func(cred domain.Credential, path string, content io.Reader) error

	ListCalls []string
	LinkCalls []string
}

// NewMockStorageProvider creates a new MockStorageProvider
func NewMockStorageProvider() *MockStorageProvider {
	return &MockStorageProvider{
		Pages: make(map[string]*domain.ChangePage),
	}
}

func (m *MockStorageProvider) AuthorizeURL(state string) string {
	if m.AuthorizeURLFn != nil {
		return m.AuthorizeURLFn(state)
	}
	return "https://provider.test/authorize?state=" + state
}

func (m *MockStorageProvider) ExchangeCode(ctx context.Context, code string) (*domain.OAuthGrant, error) {
	if m.ExchangeCodeFn != nil {
		return m.ExchangeCodeFn(code)
	}
	if m.Grant == nil {
		return nil, domain.NewRejectionError("exchange code", 400, "invalid_grant")
	}
	return m.Grant, nil
}

func (m *MockStorageProvider) Refresh(ctx context.Context, refreshSecret string) (*domain.OAuthGrant, error) {
	if m.RefreshFn != nil {
		return m.RefreshFn(refreshSecret)
	}
	return &domain.OAuthGrant{Credential: domain.Credential{AccessSecret: "refreshed-" + refreshSecret}}, nil
}

func (m *MockStorageProvider) GetAccountProfile(ctx context.Context, cred domain.Credential) (*domain.AccountProfile, error) {
	if m.GetAccountProfileFn != nil {
		return m.GetAccountProfileFn(cred)
	}
	if m.Profile == nil {
		return nil, domain.NewRejectionError("get account", 401, "invalid_access_token")
	}
	return m.Profile, nil
}

func (m *MockStorageProvider) ListChangesPage(ctx context.Context, cred domain.Credential, cursor string) (*domain.ChangePage, error) {
	m.mu.Lock()
	m.ListCalls = append(m.ListCalls, cursor)
	m.mu.Unlock()

	if m.ListChangesPageFn != nil {
		return m.ListChangesPageFn(cred, cursor)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	page, ok := m.Pages[cursor]
	if !ok {
		return &domain.ChangePage{Cursor: cursor}, nil
	}
	return page, nil
}

func (m *MockStorageProvider) GetLatestCursor(ctx context.Context, cred domain.Credential) (string, error) {
	if m.GetLatestCursorFn != nil {
		return m.GetLatestCursorFn(cred)
	}
	return m.LatestCursor, nil
}

func (m *MockStorageProvider) CreatePublicLink(ctx context.Context, cred domain.Credential, path string) (string, error) {
	m.mu.Lock()
	m.LinkCalls = append(m.LinkCalls, path)
	m.mu.Unlock()

	if m.CreatePublicLinkFn != nil {
		return m.CreatePublicLinkFn(cred, path)
	}
	return "https://share.test" + path, nil
}

func (m *MockStorageProvider) Upload(ctx context.Context, cred domain.Credential, path string, content io.Reader) error {
	if m.UploadFn != nil {
		return m.UploadFn(cred, path, content)
	}
	_, err := io.Copy(io.Discard, content)
	return err
}

// Listed returns the cursors ListChangesPage was called with.
func (m *MockStorageProvider) Listed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ListCalls...)
}
