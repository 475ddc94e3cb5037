package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/dropbox-connector/internal/core/domain"
	"github.com/custodia-labs/dropbox-connector/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.AccountStore = (*AccountStore)(nil)

// AccountStore implements driven.AccountStore using PostgreSQL
type AccountStore struct {
	db *DB
}

// NewAccountStore creates a new AccountStore
func NewAccountStore(db *DB) *AccountStore {
	return &AccountStore{db: db}
}

// Get retrieves the record for an account
func (s *AccountStore) Get(ctx context.Context, accountID string) (*domain.AccountRecord, error) {
	query := `
		SELECT account_id, cursor, created_at, updated_at
		FROM accounts
		WHERE account_id = $1
	`

	var rec domain.AccountRecord
	err := s.db.QueryRowContext(ctx, query, accountID).Scan(
		&rec.AccountID,
		&rec.Cursor,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", accountID, err)
	}
	return &rec, nil
}

// Create inserts a record, failing if the account exists
func (s *AccountStore) Create(ctx context.Context, record *domain.AccountRecord) error {
	query := `
		INSERT INTO accounts (account_id, cursor, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id) DO NOTHING
	`

	result, err := s.db.ExecContext(ctx, query,
		record.AccountID,
		record.Cursor,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create account %s: %w", record.AccountID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("create account %s: %w", record.AccountID, err)
	}
	if rows == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

// Save creates or replaces a record, keeping the original creation time
func (s *AccountStore) Save(ctx context.Context, record *domain.AccountRecord) error {
	query := `
		INSERT INTO accounts (account_id, cursor, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id) DO UPDATE SET
			cursor = EXCLUDED.cursor,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		record.AccountID,
		record.Cursor,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save account %s: %w", record.AccountID, err)
	}
	return nil
}

// UpdateCursor moves the cursor only if it still equals expected
func (s *AccountStore) UpdateCursor(ctx context.Context, accountID, expected, next string) error {
	query := `
		UPDATE accounts
		SET cursor = $3, updated_at = NOW()
		WHERE account_id = $1 AND cursor = $2
	`

	result, err := s.db.ExecContext(ctx, query, accountID, expected, next)
	if err != nil {
		return fmt.Errorf("update cursor %s: %w", accountID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update cursor %s: %w", accountID, err)
	}
	if rows > 0 {
		return nil
	}

	var exists bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE account_id = $1)`, accountID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("update cursor %s: %w", accountID, err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrCursorConflict
}

// Ping checks if the database is reachable
func (s *AccountStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
