package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/dropbox-connector/internal/core/domain"
)

// AccountService serves the automation platform's per-account requests.
type AccountService interface {
	// Register records the account at the provider's latest cursor.
	// Re-registering resets the cursor so no backlog is replayed.
	Register(ctx context.Context, req RegisterRequest) (*domain.AccountRecord, error)

	// Refresh exchanges an encoded refresh secret for a new encoded access secret.
	Refresh(ctx context.Context, req RefreshRequest) (*RefreshResponse, error)

	// Upload writes a file to the account the state belongs to.
	Upload(ctx context.Context, req UploadRequest) error
}

// RegisterRequest registers an account for change events.
// @Description Event registration for a connected account
type RegisterRequest struct {
	User  string `json:"user" example:"dbid:AAH4f99T0taONIb-OurWxbNQ6ywGRopQngc"`
	State string `json:"state" example:"01a3f0..."`
}

// RefreshRequest carries an encoded refresh secret.
// @Description Token refresh request
type RefreshRequest struct {
	RefreshState string `json:"refresh_state" example:"01b7c2..."`
}

// RefreshResponse carries the new encoded credential pair.
// @Description Token refresh response
type RefreshResponse struct {
	AccessState  string `json:"access_state" example:"01d9e4..."`
	RefreshState string `json:"refresh_state" example:"01b7c2..."`
}

// UploadRequest is a file upload on behalf of an account.
type UploadRequest struct {
	State    string
	FileName string
	Content  io.Reader
}
