package dropbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/custodia-labs/dropbox-connector/internal/core/domain"
	"github.com/go-resty/resty/v2"
)

type listFolderResponse struct {
	Entries []struct {
		Tag       string `json:".tag"`
		PathLower string `json:"path_lower"`
	} `json:"entries"`
	Cursor  string `json:"cursor"`
	HasMore bool   `json:"has_more"`
}

// latestCursorRequest asks for a cursor covering the whole account.
type latestCursorRequest struct {
	Path                            string `json:"path"`
	Recursive                       bool   `json:"recursive"`
	IncludeDeleted                  bool   `json:"include_deleted"`
	IncludeHasExplicitSharedMembers bool   `json:"include_has_explicit_shared_members"`
	IncludeMountedFolders           bool   `json:"include_mounted_folders"`
	IncludeNonDownloadableFiles     bool   `json:"include_non_downloadable_files"`
}

type sharedLinkSettings struct {
	Access        string `json:"access"`
	AllowDownload bool   `json:"allow_download"`
	Audience      string `json:"audience"`
}

type sharedLinkRequest struct {
	Path     string             `json:"path"`
	Settings sharedLinkSettings `json:"settings"`
}

type sharedLinkResponse struct {
	URL string `json:"url"`
}

// GetAccountProfile returns the identity of the token owner.
func (c *Client) GetAccountProfile(ctx context.Context, cred domain.Credential) (*domain.AccountProfile, error) {
	var result struct {
		AccountID string `json:"account_id"`
		Email     string `json:"email"`
		Name      struct {
			DisplayName string `json:"display_name"`
		} `json:"name"`
	}

	// users/get_current_account takes no arguments and rejects a JSON body.
	resp, err := c.api.R().
		SetContext(ctx).
		SetAuthToken(cred.AccessSecret).
		SetResult(&result).
		SetError(&apiError{}).
		Post("/2/users/get_current_account")
	if err := check("get current account", resp, err); err != nil {
		return nil, err
	}

	return &domain.AccountProfile{
		AccountID:   result.AccountID,
		Email:       result.Email,
		DisplayName: result.Name.DisplayName,
	}, nil
}

// ListChangesPage fetches one page of changes after cursor.
func (c *Client) ListChangesPage(ctx context.Context, cred domain.Credential, cursor string) (*domain.ChangePage, error) {
	var result listFolderResponse
	resp, err := c.api.R().
		SetContext(ctx).
		SetAuthToken(cred.AccessSecret).
		SetBody(map[string]string{"cursor": cursor}).
		SetResult(&result).
		SetError(&apiError{}).
		Post("/2/files/list_folder/continue")
	if err := check("list changes", resp, err); err != nil {
		return nil, err
	}

	page := &domain.ChangePage{
		Entries: make([]domain.ChangeEntry, 0, len(result.Entries)),
		Cursor:  result.Cursor,
		HasMore: result.HasMore,
	}
	for _, e := range result.Entries {
		page.Entries = append(page.Entries, domain.ChangeEntry{
			Kind: domain.EntryKind(e.Tag),
			Path: e.PathLower,
		})
	}
	return page, nil
}

// GetLatestCursor returns a cursor positioned at the current state of the account.
func (c *Client) GetLatestCursor(ctx context.Context, cred domain.Credential) (string, error) {
	var result struct {
		Cursor string `json:"cursor"`
	}
	resp, err := c.api.R().
		SetContext(ctx).
		SetAuthToken(cred.AccessSecret).
		SetBody(latestCursorRequest{
			Path:                            "",
			Recursive:                       true,
			IncludeDeleted:                  false,
			IncludeHasExplicitSharedMembers: true,
			IncludeMountedFolders:           true,
			IncludeNonDownloadableFiles:     false,
		}).
		SetResult(&result).
		SetError(&apiError{}).
		Post("/2/files/list_folder/get_latest_cursor")
	if err := check("get latest cursor", resp, err); err != nil {
		return "", err
	}
	return result.Cursor, nil
}

// CreatePublicLink creates a public view-only link for path.
// When a link already exists Dropbox answers 409 with its metadata; that URL is returned.
func (c *Client) CreatePublicLink(ctx context.Context, cred domain.Credential, path string) (string, error) {
	var result sharedLinkResponse
	resp, err := c.api.R().
		SetContext(ctx).
		SetAuthToken(cred.AccessSecret).
		SetBody(sharedLinkRequest{
			Path: path,
			Settings: sharedLinkSettings{
				Access:        "viewer",
				AllowDownload: true,
				Audience:      "public",
			},
		}).
		SetResult(&result).
		SetError(&apiError{}).
		Post("/2/sharing/create_shared_link_with_settings")

	checkErr := check("create shared link", resp, err)
	if checkErr == nil {
		return result.URL, nil
	}

	var remote *domain.RemoteError
	if errors.As(checkErr, &remote) && remote.StatusCode == http.StatusConflict {
		if link := existingLinkURL(resp); link != "" {
			return link, nil
		}
	}
	return "", checkErr
}

func existingLinkURL(resp *resty.Response) string {
	e, ok := resp.Error().(*apiError)
	if !ok || e == nil || e.tag() != "shared_link_already_exists" {
		return ""
	}
	var detail struct {
		Existing struct {
			Metadata struct {
				URL string `json:"url"`
			} `json:"metadata"`
		} `json:"shared_link_already_exists"`
	}
	if err := json.Unmarshal(e.Detail, &detail); err != nil {
		return ""
	}
	return detail.Existing.Metadata.URL
}

type uploadArg struct {
	Path       string `json:"path"`
	Mode       string `json:"mode"`
	Autorename bool   `json:"autorename"`
}

// Upload writes content to path. A name clash is resolved by Dropbox renaming the new file.
func (c *Client) Upload(ctx context.Context, cred domain.Credential, path string, content io.Reader) error {
	arg, err := json.Marshal(uploadArg{Path: path, Mode: "add", Autorename: true})
	if err != nil {
		return fmt.Errorf("encode upload arg: %w", err)
	}

	resp, err := c.content.R().
		SetContext(ctx).
		SetAuthToken(cred.AccessSecret).
		SetHeader("Dropbox-API-Arg", string(arg)).
		SetHeader("Content-Type", "application/octet-stream").
		SetBody(content).
		SetError(&apiError{}).
		Post("/2/files/upload")
	return check("upload", resp, err)
}
