package domain

import (
	"fmt"
	"log/slog"
)

// Credential is an OAuth access/refresh secret pair for one account.
// It only ever lives in memory for the duration of a request.
type Credential struct {
	AccessSecret  string `json:"-"` // Never serialize
	RefreshSecret string `json:"-"` // Never serialize
}

// HasRefresh reports whether the credential carries a refresh secret.
func (c Credential) HasRefresh() bool {
	return c.RefreshSecret != ""
}

// String redacts both secrets.
func (c Credential) String() string {
	return fmt.Sprintf("Credential{access:%s refresh:%s}", redact(c.AccessSecret), redact(c.RefreshSecret))
}

// LogValue implements slog.LogValuer so credentials never reach log output.
func (c Credential) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("has_access", c.AccessSecret != ""),
		slog.Bool("has_refresh", c.RefreshSecret != ""),
	)
}

func redact(s string) string {
	if s == "" {
		return "<empty>"
	}
	return "<redacted>"
}

// OAuthGrant is the result of an authorization-code exchange or a refresh.
type OAuthGrant struct {
	Credential Credential
	AccountID  string
	ExpiresIn  int // seconds, 0 if unknown
}

// AccountProfile identifies the owner of a provider account.
type AccountProfile struct {
	AccountID   string `json:"account_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// Label is the human-readable account label shown downstream.
func (p AccountProfile) Label() string {
	return fmt.Sprintf("%s (%s)", p.DisplayName, p.Email)
}
