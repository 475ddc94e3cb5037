package driving

import (
	"context"

	"github.com/custodia-labs/dropbox-connector/internal/core/domain"
)

// SyncEngine turns change notifications into downstream events.
type SyncEngine interface {
	// HandleDelivery syncs every account named in one notification.
	// Each account is attempted even if others fail; the returned error
	// joins the per-account failures and the result is always non-nil.
	HandleDelivery(ctx context.Context, accountIDs []string) (*domain.DeliveryResult, error)

	// SyncAccount runs one serialized sync pass for accountID.
	// An unregistered account yields status skipped and no error.
	SyncAccount(ctx context.Context, accountID string) (*domain.AccountSyncResult, error)
}

// WebhookNotification is the change-notification body sent by the provider.
// @Description Change notification listing affected accounts
type WebhookNotification struct {
	ListFolder struct {
		Accounts []string `json:"accounts"`
	} `json:"list_folder"`
}
