package dropbox

import (
	"context"
	"net/url"

	"github.com/custodia-labs/dropbox-connector/internal/core/domain"
)

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	AccountID    string `json:"account_id"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// AuthorizeURL builds the Dropbox consent URL requesting offline access,
// so the code exchange also yields a refresh token.
func (c *Client) AuthorizeURL(state string) string {
	params := url.Values{
		"client_id":         {c.cfg.ClientID},
		"redirect_uri":      {c.cfg.RedirectURL},
		"response_type":     {"code"},
		"token_access_type": {"offline"},
	}
	if state != "" {
		params.Set("state", state)
	}
	return c.cfg.AuthorizeURL + "?" + params.Encode()
}

// ExchangeCode exchanges an authorization code for tokens.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*domain.OAuthGrant, error) {
	return c.token(ctx, "exchange code", map[string]string{
		"code":         code,
		"grant_type":   "authorization_code",
		"redirect_uri": c.cfg.RedirectURL,
	})
}

// Refresh obtains a new short-lived access token.
// Dropbox normally keeps the refresh token, so the grant's RefreshSecret is usually empty.
func (c *Client) Refresh(ctx context.Context, refreshSecret string) (*domain.OAuthGrant, error) {
	return c.token(ctx, "refresh token", map[string]string{
		"refresh_token": refreshSecret,
		"grant_type":    "refresh_token",
	})
}

func (c *Client) token(ctx context.Context, op string, form map[string]string) (*domain.OAuthGrant, error) {
	var result tokenResponse
	resp, err := c.api.R().
		SetContext(ctx).
		SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret).
		SetFormData(form).
		SetResult(&result).
		SetError(&apiError{}).
		Post("/oauth2/token")
	if err := check(op, resp, err); err != nil {
		return nil, err
	}

	return &domain.OAuthGrant{
		Credential: domain.Credential{
			AccessSecret:  result.AccessToken,
			RefreshSecret: result.RefreshToken,
		},
		AccountID: result.AccountID,
		ExpiresIn: result.ExpiresIn,
	}, nil
}
