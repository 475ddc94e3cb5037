package mocks

import (
	"strings"

	"github.com/custodia-labs/dropbox-connector/internal/core/domain"
)

// MockCredentialCodec encodes by prefixing "enc:" so tests can read tokens.
type MockCredentialCodec struct {
	EncodeFn func(plaintext string) (string, error)
	DecodeFn func(token string) (string, error)
}

// NewMockCredentialCodec creates a new MockCredentialCodec
func NewMockCredentialCodec() *MockCredentialCodec {
	return &MockCredentialCodec{}
}

func (m *MockCredentialCodec) Encode(plaintext string) (string, error) {
	if m.EncodeFn != nil {
		return m.EncodeFn(plaintext)
	}
	return "enc:" + plaintext, nil
}

func (m *MockCredentialCodec) Decode(token string) (string, error) {
	if m.DecodeFn != nil {
		return m.DecodeFn(token)
	}
	plaintext, ok := strings.CutPrefix(token, "enc:")
	if !ok {
		return "", domain.ErrDecodeMalformed
	}
	return plaintext, nil
}
