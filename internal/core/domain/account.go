package domain

import "time"

// AccountRecord is the only persisted state per registered account.
// It deliberately has no credential fields.
type AccountRecord struct {
	AccountID string    `json:"account_id"`
	Cursor    string    `json:"cursor"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAccountRecord creates a record positioned at cursor.
func NewAccountRecord(accountID, cursor string) *AccountRecord {
	now := time.Now()
	return &AccountRecord{
		AccountID: accountID,
		Cursor:    cursor,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AccountLockName returns the lock name serialising sync passes for one account.
func AccountLockName(accountID string) string {
	return "account:" + accountID
}
