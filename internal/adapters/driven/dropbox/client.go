package dropbox

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/dropbox-connector/internal/core/domain"
	"github.com/custodia-labs/dropbox-connector/internal/core/ports/driven"
	"github.com/go-resty/resty/v2"
)

// Verify interface compliance
var _ driven.StorageProvider = (*Client)(nil)

// Client talks to the Dropbox HTTP API.
// It issues exactly one request per call and never retries.
type Client struct {
	cfg     Config
	api     *resty.Client
	content *resty.Client
}

// NewClient creates a Dropbox client.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:     cfg,
		api:     newRestyClient(cfg.APIBaseURL, cfg.Timeout),
		content: newRestyClient(cfg.ContentBaseURL, cfg.Timeout),
	}
}

func newRestyClient(baseURL string, timeout time.Duration) *resty.Client {
	return resty.NewWithClient(&http.Client{Timeout: timeout}).
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json")
}

// apiError is the error envelope Dropbox returns on 4xx/5xx.
// RPC endpoints send an object under "error"; the OAuth endpoint sends a
// string plus error_description.
type apiError struct {
	Summary     string          `json:"error_summary"`
	Detail      json.RawMessage `json:"error"`
	Description string          `json:"error_description"`
}

// tag returns the .tag of an RPC error, or the OAuth error code.
func (e *apiError) tag() string {
	var code string
	if json.Unmarshal(e.Detail, &code) == nil {
		return code
	}
	var detail struct {
		Tag string `json:".tag"`
	}
	if json.Unmarshal(e.Detail, &detail) == nil {
		return detail.Tag
	}
	return ""
}

func (e *apiError) message() string {
	switch {
	case e.Summary != "":
		return e.Summary
	case e.Description != "":
		return e.Description
	default:
		return e.tag()
	}
}

// check maps a resty outcome onto the domain's remote error kinds.
func check(op string, resp *resty.Response, err error) error {
	if err != nil {
		if resp != nil && resp.StatusCode() != 0 && !resp.IsSuccess() {
			return domain.NewRejectionError(op, resp.StatusCode(), summary(resp))
		}
		return domain.NewTransportError(op, err)
	}
	if !resp.IsSuccess() {
		return domain.NewRejectionError(op, resp.StatusCode(), summary(resp))
	}
	return nil
}

func summary(resp *resty.Response) string {
	if e, ok := resp.Error().(*apiError); ok && e != nil {
		if msg := e.message(); msg != "" {
			return msg
		}
	}
	body := strings.TrimSpace(resp.String())
	if len(body) > 200 {
		body = body[:200]
	}
	return body
}
