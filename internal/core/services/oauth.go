package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/dropbox-connector/internal/core/ports/driven"
	"github.com/custodia-labs/dropbox-connector/internal/core/ports/driving"
)

// Verify interface compliance
var _ driving.OAuthService = (*OAuthService)(nil)

const defaultStateTTL = 10 * time.Minute

// OAuthService implements the browser handoff. It keeps no state: the CSRF
// state is a signed token bound to a per-browser value the caller stores in a
// cookie, and the credential leaves encoded in the redirect.
type OAuthService struct {
	provider driven.StorageProvider
	platform driven.AutomationPlatform
	codec    driven.CredentialCodec
	signer   driven.StateSigner
	stateTTL time.Duration
	logger   *slog.Logger
}

// OAuthServiceConfig holds dependencies for OAuthService.
type OAuthServiceConfig struct {
	Provider driven.StorageProvider
	Platform driven.AutomationPlatform
	Codec    driven.CredentialCodec
	Signer   driven.StateSigner
	StateTTL time.Duration
	Logger   *slog.Logger
}

// NewOAuthService creates a new OAuth service.
func NewOAuthService(cfg OAuthServiceConfig) *OAuthService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &OAuthService{
		provider: cfg.Provider,
		platform: cfg.Platform,
		codec:    cfg.Codec,
		signer:   cfg.Signer,
		stateTTL: orDefault(cfg.StateTTL, defaultStateTTL),
		logger:   logger,
	}
}

// Begin returns the provider consent URL with a fresh signed state and the
// browser binding the state is tied to.
func (s *OAuthService) Begin(ctx context.Context) (*driving.Handoff, error) {
	binding := uuid.NewString()
	state, err := s.signer.Issue(binding, s.stateTTL)
	if err != nil {
		return nil, fmt.Errorf("issue state: %w", err)
	}
	return &driving.Handoff{
		AuthURL:   s.provider.AuthorizeURL(state),
		Binding:   binding,
		ExpiresAt: time.Now().Add(s.stateTTL),
	}, nil
}

// Complete finishes the flow and returns where to send the browser.
// Any failure aborts the flow; there is no partial redirect.
func (s *OAuthService) Complete(ctx context.Context, req driving.CallbackRequest) (string, error) {
	if req.Error != "" {
		return "", &driving.OAuthError{Code: req.Error, Description: req.ErrorDescription}
	}

	if err := s.signer.Verify(req.State, req.Binding); err != nil {
		s.logger.Warn("oauth state rejected", "error", err)
		return "", driving.ErrOAuthInvalidState
	}

	if req.Code == "" {
		return "", driving.ErrOAuthMissingCode
	}

	grant, err := s.provider.ExchangeCode(ctx, req.Code)
	if err != nil {
		s.logger.Error("oauth code exchange failed", "error", err)
		return "", fmt.Errorf("%w: %w", driving.ErrOAuthExchangeFailed, err)
	}
	if !grant.Credential.HasRefresh() || grant.AccountID == "" {
		s.logger.Error("oauth grant incomplete",
			"has_refresh", grant.Credential.HasRefresh(),
			"has_account_id", grant.AccountID != "",
		)
		return "", driving.ErrOAuthIncompleteGrant
	}

	profile, err := s.provider.GetAccountProfile(ctx, grant.Credential)
	if err != nil {
		s.logger.Error("oauth account lookup failed", "account_id", grant.AccountID, "error", err)
		return "", fmt.Errorf("%w: %w", driving.ErrOAuthUserInfoFailed, err)
	}
	account := *profile
	account.AccountID = grant.AccountID

	accessState, err := s.codec.Encode(grant.Credential.AccessSecret)
	if err != nil {
		return "", fmt.Errorf("%w: %w", driving.ErrOAuthEncodeFailed, err)
	}
	refreshState, err := s.codec.Encode(grant.Credential.RefreshSecret)
	if err != nil {
		return "", fmt.Errorf("%w: %w", driving.ErrOAuthEncodeFailed, err)
	}

	s.logger.Info("account connected", "account_id", account.AccountID)
	return s.platform.ConnectedURL(account, accessState, refreshState), nil
}
