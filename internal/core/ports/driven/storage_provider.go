package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/dropbox-connector/internal/core/domain"
)

// StorageProvider is the cloud storage API the connector watches.
// Every method performs exactly one remote request and never retries.
// Failures are *domain.RemoteError.
type StorageProvider interface {
	// AuthorizeURL builds the consent URL the user is redirected to.
	AuthorizeURL(state string) string

	// ExchangeCode trades an authorization code for a credential pair.
	ExchangeCode(ctx context.Context, code string) (*domain.OAuthGrant, error)

	// Refresh obtains a new access secret from a refresh secret.
	Refresh(ctx context.Context, refreshSecret string) (*domain.OAuthGrant, error)

	// GetAccountProfile returns the identity behind a credential.
	GetAccountProfile(ctx context.Context, cred domain.Credential) (*domain.AccountProfile, error)

	// ListChangesPage fetches one page of changes since cursor.
	ListChangesPage(ctx context.Context, cred domain.Credential, cursor string) (*domain.ChangePage, error)

	// GetLatestCursor returns a cursor positioned at "now" for the whole account.
	GetLatestCursor(ctx context.Context, cred domain.Credential) (string, error)

	// CreatePublicLink returns a public, view-only link to path.
	CreatePublicLink(ctx context.Context, cred domain.Credential, path string) (string, error)

	// Upload writes content to path, renaming on conflict.
	Upload(ctx context.Context, cred domain.Credential, path string, content io.Reader) error
}
