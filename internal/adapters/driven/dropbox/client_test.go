package dropbox

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/custodia-labs/dropbox-connector/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCred = domain.Credential{AccessSecret: "sl.test-access"}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.ClientID = "app-key"
	cfg.ClientSecret = "app-secret"
	cfg.RedirectURL = "https://connector.test/auth"
	cfg.APIBaseURL = srv.URL
	cfg.ContentBaseURL = srv.URL
	return NewClient(cfg)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestClient_AuthorizeURL(t *testing.T) {
	c := NewClient(Config{
		ClientID:     "app-key",
		RedirectURL:  "https://connector.test/auth",
		AuthorizeURL: "https://www.dropbox.com/oauth2/authorize",
	})

	u, err := url.Parse(c.AuthorizeURL("signed-state"))
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "www.dropbox.com", u.Host)
	assert.Equal(t, "app-key", q.Get("client_id"))
	assert.Equal(t, "https://connector.test/auth", q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "offline", q.Get("token_access_type"))
	assert.Equal(t, "signed-state", q.Get("state"))
}

func TestClient_ExchangeCode(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth2/token", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "app-key", user)
		assert.Equal(t, "app-secret", pass)

		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "https://connector.test/auth", r.PostForm.Get("redirect_uri"))

		writeJSON(w, http.StatusOK, `{"access_token":"sl.a","refresh_token":"r-1","account_id":"dbid:1","expires_in":14400}`)
	}))

	grant, err := c.ExchangeCode(t.Context(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "sl.a", grant.Credential.AccessSecret)
	assert.Equal(t, "r-1", grant.Credential.RefreshSecret)
	assert.Equal(t, "dbid:1", grant.AccountID)
	assert.Equal(t, 14400, grant.ExpiresIn)
}

func TestClient_Refresh_Rejected(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		writeJSON(w, http.StatusBadRequest, `{"error":"invalid_grant","error_description":"refresh token is malformed"}`)
	}))

	_, err := c.Refresh(t.Context(), "bad")
	require.Error(t, err)

	var remote *domain.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, domain.RemoteRejection, remote.Kind)
	assert.Equal(t, http.StatusBadRequest, remote.StatusCode)
	assert.Equal(t, "refresh token is malformed", remote.Message)
}

func TestClient_GetAccountProfile(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/users/get_current_account", r.URL.Path)
		assert.Equal(t, "Bearer sl.test-access", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `{"account_id":"dbid:1","email":"ada@example.com","name":{"display_name":"Ada"}}`)
	}))

	profile, err := c.GetAccountProfile(t.Context(), testCred)
	require.NoError(t, err)
	assert.Equal(t, "dbid:1", profile.AccountID)
	assert.Equal(t, "Ada (ada@example.com)", profile.Label())
}

func TestClient_ListChangesPage(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/files/list_folder/continue", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "C1", body["cursor"])

		writeJSON(w, http.StatusOK, `{
			"entries": [
				{".tag":"file","path_lower":"/a.txt","name":"A.txt"},
				{".tag":"folder","path_lower":"/b"},
				{".tag":"deleted","path_lower":"/c"}
			],
			"cursor":"C2",
			"has_more":true
		}`)
	}))

	page, err := c.ListChangesPage(t.Context(), testCred, "C1")
	require.NoError(t, err)
	assert.Equal(t, "C2", page.Cursor)
	assert.True(t, page.HasMore)
	assert.Equal(t, []domain.ChangeEntry{
		{Kind: domain.EntryKindFile, Path: "/a.txt"},
		{Kind: domain.EntryKindFolder, Path: "/b"},
		{Kind: domain.EntryKindDeleted, Path: "/c"},
	}, page.Entries)
}

func TestClient_GetLatestCursor(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/files/list_folder/get_latest_cursor", r.URL.Path)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "", body["path"])
		assert.Equal(t, true, body["recursive"])
		assert.Equal(t, false, body["include_deleted"])
		assert.Equal(t, true, body["include_mounted_folders"])
		assert.Equal(t, true, body["include_has_explicit_shared_members"])
		assert.Equal(t, false, body["include_non_downloadable_files"])

		writeJSON(w, http.StatusOK, `{"cursor":"LATEST"}`)
	}))

	cursor, err := c.GetLatestCursor(t.Context(), testCred)
	require.NoError(t, err)
	assert.Equal(t, "LATEST", cursor)
}

func TestClient_CreatePublicLink(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body sharedLinkRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "/a.txt", body.Path)
		assert.Equal(t, "viewer", body.Settings.Access)
		assert.Equal(t, "public", body.Settings.Audience)
		assert.True(t, body.Settings.AllowDownload)

		writeJSON(w, http.StatusOK, `{"url":"https://www.dropbox.com/s/abc/a.txt?dl=0"}`)
	}))

	link, err := c.CreatePublicLink(t.Context(), testCred, "/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "https://www.dropbox.com/s/abc/a.txt?dl=0", link)
}

func TestClient_CreatePublicLink_AlreadyExists(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, `{
			"error_summary":"shared_link_already_exists/metadata/..",
			"error":{
				".tag":"shared_link_already_exists",
				"shared_link_already_exists":{".tag":"metadata","metadata":{"url":"https://www.dropbox.com/s/old/a.txt?dl=0"}}
			}
		}`)
	}))

	link, err := c.CreatePublicLink(t.Context(), testCred, "/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "https://www.dropbox.com/s/old/a.txt?dl=0", link)
}

func TestClient_CreatePublicLink_OtherConflict(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, `{"error_summary":"path/not_found/..","error":{".tag":"path"}}`)
	}))

	_, err := c.CreatePublicLink(t.Context(), testCred, "/gone.txt")
	require.Error(t, err)
	assert.True(t, domain.IsRejection(err))
	assert.Contains(t, err.Error(), "path/not_found")
}

func TestClient_Upload(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/files/upload", r.URL.Path)
		assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))

		var arg uploadArg
		assert.NoError(t, json.Unmarshal([]byte(r.Header.Get("Dropbox-API-Arg")), &arg))
		assert.Equal(t, "/report.pdf", arg.Path)
		assert.True(t, arg.Autorename)

		data, _ := io.ReadAll(r.Body)
		assert.Equal(t, "file-bytes", string(data))
		writeJSON(w, http.StatusOK, `{"name":"report.pdf"}`)
	}))

	err := c.Upload(t.Context(), testCred, "/report.pdf", strings.NewReader("file-bytes"))
	require.NoError(t, err)
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	cfg := DefaultConfig()
	cfg.APIBaseURL = srv.URL
	c := NewClient(cfg)

	_, err := c.ListChangesPage(t.Context(), testCred, "C1")
	require.Error(t, err)
	assert.True(t, domain.IsTransport(err), "expected transport error, got %v", err)
}
