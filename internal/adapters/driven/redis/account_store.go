package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/dropbox-connector/internal/core/domain"
	"github.com/custodia-labs/dropbox-connector/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.AccountStore = (*AccountStore)(nil)

const accountPrefix = "dropbox-connector:account:"

// AccountStore implements driven.AccountStore with one hash per account.
// Fields: cursor, created_at, updated_at (RFC 3339, nanoseconds).
type AccountStore struct {
	client *redis.Client
}

// NewAccountStore creates a new Redis-backed AccountStore
func NewAccountStore(client *redis.Client) *AccountStore {
	return &AccountStore{client: client}
}

func accountKey(accountID string) string {
	return accountPrefix + accountID
}

// Get retrieves the record for an account
func (s *AccountStore) Get(ctx context.Context, accountID string) (*domain.AccountRecord, error) {
	fields, err := s.client.HGetAll(ctx, accountKey(accountID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", accountID, err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrNotFound
	}

	rec := &domain.AccountRecord{
		AccountID: accountID,
		Cursor:    fields["cursor"],
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, fields["created_at"]); err != nil {
		return nil, fmt.Errorf("get account %s: created_at: %w", accountID, err)
	}
	if rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, fields["updated_at"]); err != nil {
		return nil, fmt.Errorf("get account %s: updated_at: %w", accountID, err)
	}
	return rec, nil
}

// createScript writes the hash only if the key does not exist.
var createScript = redis.NewScript(`
	if redis.call("exists", KEYS[1]) == 1 then
		return 0
	end
	redis.call("hset", KEYS[1], "cursor", ARGV[1], "created_at", ARGV[2], "updated_at", ARGV[3])
	return 1
`)

// Create inserts a record, failing if the account exists
func (s *AccountStore) Create(ctx context.Context, record *domain.AccountRecord) error {
	n, err := createScript.Run(ctx, s.client, []string{accountKey(record.AccountID)},
		record.Cursor,
		record.CreatedAt.UTC().Format(time.RFC3339Nano),
		record.UpdatedAt.UTC().Format(time.RFC3339Nano),
	).Int64()
	if err != nil {
		return fmt.Errorf("create account %s: %w", record.AccountID, err)
	}
	if n == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

// saveScript overwrites cursor and updated_at, keeping an existing created_at.
var saveScript = redis.NewScript(`
	redis.call("hsetnx", KEYS[1], "created_at", ARGV[2])
	redis.call("hset", KEYS[1], "cursor", ARGV[1], "updated_at", ARGV[3])
	return 1
`)

// Save creates or replaces a record
func (s *AccountStore) Save(ctx context.Context, record *domain.AccountRecord) error {
	err := saveScript.Run(ctx, s.client, []string{accountKey(record.AccountID)},
		record.Cursor,
		record.CreatedAt.UTC().Format(time.RFC3339Nano),
		record.UpdatedAt.UTC().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return fmt.Errorf("save account %s: %w", record.AccountID, err)
	}
	return nil
}

// casScript returns -1 if absent, 0 on a cursor mismatch, 1 when updated.
var casScript = redis.NewScript(`
	if redis.call("exists", KEYS[1]) == 0 then
		return -1
	end
	if redis.call("hget", KEYS[1], "cursor") ~= ARGV[1] then
		return 0
	end
	redis.call("hset", KEYS[1], "cursor", ARGV[2], "updated_at", ARGV[3])
	return 1
`)

// UpdateCursor moves the cursor only if it still equals expected
func (s *AccountStore) UpdateCursor(ctx context.Context, accountID, expected, next string) error {
	n, err := casScript.Run(ctx, s.client, []string{accountKey(accountID)},
		expected,
		next,
		time.Now().UTC().Format(time.RFC3339Nano),
	).Int64()
	if err != nil {
		return fmt.Errorf("update cursor %s: %w", accountID, err)
	}

	switch n {
	case -1:
		return domain.ErrNotFound
	case 0:
		return domain.ErrCursorConflict
	default:
		return nil
	}
}

// Ping checks if the Redis backend is healthy.
func (s *AccountStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
