package driven

import (
	"context"

	"github.com/custodia-labs/dropbox-connector/internal/core/domain"
)

// AutomationPlatform is the downstream platform that stores encoded
// credentials on the connector's behalf and receives events.
type AutomationPlatform interface {
	// LookupCredential returns the encoded access token stored for accountID.
	LookupCredential(ctx context.Context, accountID string) (string, error)

	// PostEvent forwards one event.
	PostEvent(ctx context.Context, event domain.SyncEvent) error

	// ConnectedURL is where the browser lands once an account is connected.
	ConnectedURL(profile domain.AccountProfile, accessState, refreshState string) string
}
