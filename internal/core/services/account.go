package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/custodia-labs/dropbox-connector/internal/core/domain"
	"github.com/custodia-labs/dropbox-connector/internal/core/ports/driven"
	"github.com/custodia-labs/dropbox-connector/internal/core/ports/driving"
)

// Verify interface compliance
var _ driving.AccountService = (*AccountService)(nil)

// AccountService handles registration, token refresh and uploads.
type AccountService struct {
	accounts driven.AccountStore
	codec    driven.CredentialCodec
	provider driven.StorageProvider
	logger   *slog.Logger
}

// AccountServiceConfig holds dependencies for AccountService.
type AccountServiceConfig struct {
	Accounts driven.AccountStore
	Codec    driven.CredentialCodec
	Provider driven.StorageProvider
	Logger   *slog.Logger
}

// NewAccountService creates a new account service.
func NewAccountService(cfg AccountServiceConfig) *AccountService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &AccountService{
		accounts: cfg.Accounts,
		codec:    cfg.Codec,
		provider: cfg.Provider,
		logger:   logger,
	}
}

// Register positions the account at the provider's current cursor.
// Registering again resets the cursor, so changes made in between are never replayed.
func (s *AccountService) Register(ctx context.Context, req driving.RegisterRequest) (*domain.AccountRecord, error) {
	if req.User == "" || req.State == "" {
		return nil, fmt.Errorf("%w: user and state are required", domain.ErrInvalidInput)
	}

	access, err := s.codec.Decode(req.State)
	if err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}

	cursor, err := s.provider.GetLatestCursor(ctx, domain.Credential{AccessSecret: access})
	if err != nil {
		return nil, fmt.Errorf("get latest cursor: %w", err)
	}

	rec := domain.NewAccountRecord(req.User, cursor)
	err = s.accounts.Create(ctx, rec)
	if errors.Is(err, domain.ErrAlreadyExists) {
		s.logger.Info("account re-registered, cursor reset", "account_id", req.User)
		err = s.accounts.Save(ctx, rec)
	}
	if err != nil {
		return nil, fmt.Errorf("store account: %w", err)
	}

	s.logger.Info("account registered", "account_id", req.User)
	return rec, nil
}

// Refresh returns a freshly encoded access secret. The refresh state is
// passed back unchanged unless the provider rotated the refresh secret.
func (s *AccountService) Refresh(ctx context.Context, req driving.RefreshRequest) (*driving.RefreshResponse, error) {
	if req.RefreshState == "" {
		return nil, fmt.Errorf("%w: refresh_state is required", domain.ErrInvalidInput)
	}

	refreshSecret, err := s.codec.Decode(req.RefreshState)
	if err != nil {
		return nil, fmt.Errorf("decode refresh state: %w", err)
	}

	grant, err := s.provider.Refresh(ctx, refreshSecret)
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}

	accessState, err := s.codec.Encode(grant.Credential.AccessSecret)
	if err != nil {
		return nil, fmt.Errorf("encode access state: %w", err)
	}

	refreshState := req.RefreshState
	if grant.Credential.HasRefresh() && grant.Credential.RefreshSecret != refreshSecret {
		if refreshState, err = s.codec.Encode(grant.Credential.RefreshSecret); err != nil {
			return nil, fmt.Errorf("encode refresh state: %w", err)
		}
	}

	return &driving.RefreshResponse{
		AccessState:  accessState,
		RefreshState: refreshState,
	}, nil
}

// Upload stores a file at the root of the account the state belongs to.
func (s *AccountService) Upload(ctx context.Context, req driving.UploadRequest) error {
	name := strings.TrimLeft(req.FileName, "/")
	if name == "" || req.State == "" || req.Content == nil {
		return fmt.Errorf("%w: file and state are required", domain.ErrInvalidInput)
	}

	access, err := s.codec.Decode(req.State)
	if err != nil {
		return fmt.Errorf("decode state: %w", err)
	}

	if err := s.provider.Upload(ctx, domain.Credential{AccessSecret: access}, "/"+name, req.Content); err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}

	s.logger.Info("file uploaded", "path", "/"+name)
	return nil
}
