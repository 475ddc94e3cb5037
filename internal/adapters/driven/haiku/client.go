package haiku

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/dropbox-connector/internal/core/domain"
	"github.com/custodia-labs/dropbox-connector/internal/core/ports/driven"
	"github.com/go-resty/resty/v2"
)

// Verify interface compliance
var _ driven.AutomationPlatform = (*Client)(nil)

// Config contains configuration for the Haiku platform client.
type Config struct {
	// BaseURL is the platform origin, e.g. https://wasmhaiku.com
	BaseURL string

	// AuthToken is sent verbatim in the Authorization header.
	AuthToken string

	// Timeout bounds each request. Zero means no client-side timeout.
	Timeout time.Duration
}

// DefaultConfig returns the hosted platform defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://wasmhaiku.com",
		Timeout: 30 * time.Second,
	}
}

// Client calls the automation platform's connector functions.
type Client struct {
	cfg    Config
	client *resty.Client
}

// NewClient creates a platform client.
func NewClient(cfg Config) *Client {
	client := resty.NewWithClient(&http.Client{Timeout: cfg.Timeout}).
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Authorization", cfg.AuthToken)
	return &Client{cfg: cfg, client: client}
}

// LookupCredential returns the encoded access state the platform stores for accountID.
func (c *Client) LookupCredential(ctx context.Context, accountID string) (string, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"author": accountID}).
		Post("/api/_funcs/_author_state")
	if err := check("lookup credential", resp, err); err != nil {
		return "", err
	}

	token := strings.TrimSpace(resp.String())
	if token == "" {
		return "", fmt.Errorf("lookup credential for %s: %w", accountID, domain.ErrNotFound)
	}
	return token, nil
}

type postRequest struct {
	User     string            `json:"user"`
	Text     string            `json:"text"`
	Triggers map[string]string `json:"triggers"`
}

// PostEvent forwards one event to the platform.
func (c *Client) PostEvent(ctx context.Context, event domain.SyncEvent) error {
	kind := event.Kind
	if kind == "" {
		kind = domain.EventKindFile
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(postRequest{
			User:     event.AccountID,
			Text:     event.SharedLink,
			Triggers: map[string]string{"event": kind},
		}).
		Post("/api/_funcs/_post")
	return check("post event", resp, err)
}

// ConnectedURL builds the landing page URL carrying the encoded credential pair.
func (c *Client) ConnectedURL(profile domain.AccountProfile, accessState, refreshState string) string {
	q := url.Values{}
	q.Set("authorId", profile.AccountID)
	q.Set("authorName", profile.Label())
	q.Set("authorState", accessState)
	q.Set("refreshState", refreshState)
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/api/connected?" + q.Encode()
}

func check(op string, resp *resty.Response, err error) error {
	if err != nil {
		return domain.NewTransportError(op, err)
	}
	if !resp.IsSuccess() {
		body := strings.TrimSpace(resp.String())
		if len(body) > 200 {
			body = body[:200]
		}
		return domain.NewRejectionError(op, resp.StatusCode(), body)
	}
	return nil
}
