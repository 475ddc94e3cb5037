package driving

import (
	"context"
	"time"
)

// OAuthService runs the browser OAuth handoff.
// Nothing is persisted: the resulting credential pair leaves the service encoded.
type OAuthService interface {
	// Begin starts a flow for one browser.
	Begin(ctx context.Context) (*Handoff, error)

	// Complete exchanges the authorization code, encodes both secrets and
	// returns the automation platform URL to redirect the browser to.
	Complete(ctx context.Context, req CallbackRequest) (string, error)
}

// Handoff is the start of one browser flow.
// Binding must reach the callback through the browser, outside the URL.
type Handoff struct {
	// AuthURL is the provider consent URL the browser is redirected to.
	AuthURL string
	// Binding ties the signed state to this browser.
	Binding string
	// ExpiresAt is when the state stops being accepted.
	ExpiresAt time.Time
}

// CallbackRequest represents the OAuth callback from the provider.
// @Description OAuth callback parameters from provider redirect
type CallbackRequest struct {
	// Code is the authorization code from the provider.
	Code string `json:"code" example:"abc123"`

	// State is the signed CSRF token returned by the provider.
	State string `json:"state" example:"eyJhbGciOi..."`

	// Error is set if the provider returned an error.
	Error string `json:"error,omitempty" example:"access_denied"`

	// ErrorDescription provides details about the error.
	ErrorDescription string `json:"error_description,omitempty" example:"The user denied access"`

	// Binding is the value Begin handed to this browser.
	Binding string `json:"-"`
}

// OAuthError represents an OAuth-specific error.
type OAuthError struct {
	Code        string `json:"error" example:"invalid_state"`
	Description string `json:"error_description" example:"The state parameter is invalid or expired"`
}

func (e *OAuthError) Error() string {
	if e.Description != "" {
		return e.Code + ": " + e.Description
	}
	return e.Code
}

// Common OAuth errors
var (
	ErrOAuthInvalidState    = &OAuthError{Code: "invalid_state", Description: "The state parameter is invalid or expired"}
	ErrOAuthMissingCode     = &OAuthError{Code: "missing_code", Description: "The authorization code is missing"}
	ErrOAuthExchangeFailed  = &OAuthError{Code: "exchange_failed", Description: "Failed to exchange authorization code for tokens"}
	ErrOAuthIncompleteGrant = &OAuthError{Code: "incomplete_grant", Description: "The provider did not return a refresh token and account id"}
	ErrOAuthUserInfoFailed  = &OAuthError{Code: "user_info_failed", Description: "Failed to fetch account information"}
	ErrOAuthEncodeFailed    = &OAuthError{Code: "encode_failed", Description: "Failed to encode the credential"}
)
