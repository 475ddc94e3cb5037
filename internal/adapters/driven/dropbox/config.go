package dropbox

import "time"

// Config contains configuration for the Dropbox client.
type Config struct {
	// ClientID and ClientSecret identify the Dropbox app.
	ClientID     string
	ClientSecret string

	// RedirectURL is the OAuth callback registered for the app.
	RedirectURL string

	// AuthorizeURL is the browser consent endpoint.
	AuthorizeURL string

	// APIBaseURL serves RPC endpoints and the token endpoint.
	APIBaseURL string

	// ContentBaseURL serves upload endpoints.
	ContentBaseURL string

	// Timeout bounds each request. Zero means no client-side timeout.
	Timeout time.Duration
}

// DefaultConfig returns the production Dropbox endpoints.
func DefaultConfig() Config {
	return Config{
		AuthorizeURL:   "https://www.dropbox.com/oauth2/authorize",
		APIBaseURL:     "https://api.dropboxapi.com",
		ContentBaseURL: "https://content.dropboxapi.com",
		Timeout:        30 * time.Second,
	}
}
