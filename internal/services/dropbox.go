// Dropbox [Provider] implementation
//
// Talks to the Dropbox HTTP API v2 (files/list_folder, files/get_temporary_link).
// Listing metadata is kept opaque in FileDescriptor.ProviderMetadata so the
// duration and probe engines can mine it without this package knowing the shape.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/mcampolo/reeldeck/internal/models"
	"github.com/mcampolo/reeldeck/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	defaultAPIBase     = "https://api.dropboxapi.com"
	defaultContentBase = "https://content.dropboxapi.com"

	dropboxAuthURL  = "https://www.dropbox.com/oauth2/authorize"
	dropboxTokenURL = "https://api.dropboxapi.com/oauth2/token"
)

// OAuthConfig builds the oauth2 configuration for the Dropbox authorization-code flow.
func OAuthConfig(cfg shared.DropboxConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.AppKey,
		ClientSecret: cfg.AppSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:  dropboxAuthURL,
			TokenURL: dropboxTokenURL,
		},
	}
}

// DropboxProvider implements the Provider interface against the Dropbox API.
type DropboxProvider struct {
	apiBase     string
	contentBase string
	httpClient  *http.Client
	limiter     *rate.Limiter
	token       *oauth2.Token
	tokenSource oauth2.TokenSource
	oauthConfig *oauth2.Config
}

// DropboxOption configures a DropboxProvider.
type DropboxOption func(*DropboxProvider)

// WithBaseURLs overrides the API and content hosts, primarily for tests.
func WithBaseURLs(apiBase, contentBase string) DropboxOption {
	return func(d *DropboxProvider) {
		d.apiBase = apiBase
		d.contentBase = contentBase
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) DropboxOption {
	return func(d *DropboxProvider) {
		d.httpClient = client
	}
}

// NewDropboxProvider creates a Dropbox provider from app credentials.
//
// Requests are rate limited client-side; 429 responses are additionally mapped
// to [shared.ErrRateLimited].
func NewDropboxProvider(cfg shared.DropboxConfig, opts ...DropboxOption) *DropboxProvider {
	d := &DropboxProvider{
		apiBase:     defaultAPIBase,
		contentBase: defaultContentBase,
		httpClient:  http.DefaultClient,
		limiter:     rate.NewLimiter(rate.Limit(10), 20),
		oauthConfig: OAuthConfig(cfg),
	}

	if cfg.AccessToken != "" {
		d.token = &oauth2.Token{
			AccessToken:  cfg.AccessToken,
			RefreshToken: cfg.RefreshToken,
		}
		d.tokenSource = d.oauthConfig.TokenSource(context.Background(), d.token)
	}

	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns the provider name.
func (d *DropboxProvider) Name() string {
	return "Dropbox"
}

// Authenticate installs an access/refresh token pair for subsequent requests.
//
// Expects credentials["access_token"]; credentials["refresh_token"] is optional.
func (d *DropboxProvider) Authenticate(ctx context.Context, credentials map[string]string) error {
	accessToken, ok := credentials["access_token"]
	if !ok || accessToken == "" {
		return fmt.Errorf("%w: missing access_token in credentials", shared.ErrMissingCredentials)
	}

	d.token = &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: credentials["refresh_token"],
	}
	d.tokenSource = d.oauthConfig.TokenSource(ctx, d.token)
	return nil
}

// SetToken installs a token obtained from the OAuth callback flow.
func (d *DropboxProvider) SetToken(ctx context.Context, token *oauth2.Token) {
	d.token = token
	d.tokenSource = d.oauthConfig.TokenSource(ctx, token)
}

// GetOAuthConfig returns the provider's oauth2 configuration.
func (d *DropboxProvider) GetOAuthConfig() *oauth2.Config {
	return d.oauthConfig
}

// GetAuthURL builds the authorization URL for the given CSRF state token.
// Dropbox needs token_access_type=offline to issue a refresh token.
func (d *DropboxProvider) GetAuthURL(state string) string {
	return d.oauthConfig.AuthCodeURL(state, oauth2.SetAuthURLParam("token_access_type", "offline"))
}

type listFolderRequest struct {
	Path             string `json:"path"`
	Recursive        bool   `json:"recursive"`
	IncludeMediaInfo bool   `json:"include_media_info"`
}

type listFolderContinueRequest struct {
	Cursor string `json:"cursor"`
}

type listFolderResponse struct {
	Entries []map[string]any `json:"entries"`
	Cursor  string           `json:"cursor"`
	HasMore bool             `json:"has_more"`
}

// List retrieves all file descriptors under the folder, following pagination
// cursors until the listing is exhausted.
func (d *DropboxProvider) List(ctx context.Context, path string) ([]models.FileDescriptor, error) {
	// Dropbox addresses the root folder as "".
	if path == "/" {
		path = ""
	}

	body, err := json.Marshal(listFolderRequest{Path: path, IncludeMediaInfo: true})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var descriptors []models.FileDescriptor

	page, err := d.listPage(ctx, "/2/files/list_folder", body)
	if err != nil {
		return nil, err
	}
	descriptors = append(descriptors, entriesToDescriptors(page.Entries)...)

	for page.HasMore {
		body, err = json.Marshal(listFolderContinueRequest{Cursor: page.Cursor})
		if err != nil {
			return nil, fmt.Errorf("failed to encode continue request: %w", err)
		}
		page, err = d.listPage(ctx, "/2/files/list_folder/continue", body)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, entriesToDescriptors(page.Entries)...)
	}

	return descriptors, nil
}

func (d *DropboxProvider) listPage(ctx context.Context, endpoint string, body []byte) (*listFolderResponse, error) {
	respBody, err := d.doRequest(ctx, endpoint, body)
	if err != nil {
		return nil, err
	}

	var page listFolderResponse
	if err := json.Unmarshal(respBody, &page); err != nil {
		return nil, fmt.Errorf("%w: failed to decode listing: %v", shared.ErrAPIRequest, err)
	}
	return &page, nil
}

// entriesToDescriptors converts raw listing entries to descriptors, skipping
// folders and deleted entries. The full entry map is retained as opaque
// provider metadata.
func entriesToDescriptors(entries []map[string]any) []models.FileDescriptor {
	descriptors := make([]models.FileDescriptor, 0, len(entries))
	for _, entry := range entries {
		if tag, _ := entry[".tag"].(string); tag != "file" {
			continue
		}

		name, _ := entry["name"].(string)
		path, _ := entry["path_display"].(string)
		if path == "" {
			path, _ = entry["path_lower"].(string)
		}
		if path == "" {
			continue
		}

		var size int64
		if s, ok := entry["size"].(float64); ok {
			size = int64(s)
		}

		descriptors = append(descriptors, models.FileDescriptor{
			Name:             name,
			Path:             path,
			Size:             size,
			ProviderMetadata: entry,
		})
	}
	return descriptors
}

type temporaryLinkRequest struct {
	Path string `json:"path"`
}

type temporaryLinkResponse struct {
	Link string `json:"link"`
}

// TemporaryLink resolves a time-limited direct playback URL for the file at path.
func (d *DropboxProvider) TemporaryLink(ctx context.Context, path string) (string, error) {
	body, err := json.Marshal(temporaryLinkRequest{Path: path})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	respBody, err := d.doRequest(ctx, "/2/files/get_temporary_link", body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrStreamUnavailable, err)
	}

	var resp temporaryLinkResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("%w: failed to decode link: %v", shared.ErrStreamUnavailable, err)
	}
	if resp.Link == "" {
		return "", fmt.Errorf("%w: empty link for %s", shared.ErrStreamUnavailable, path)
	}
	return resp.Link, nil
}

// ThumbnailURL synthesizes a get_thumbnail_v2 URL from the path. No request is
// made; the URL is valid whenever the caller's token is.
func (d *DropboxProvider) ThumbnailURL(path string) string {
	arg := fmt.Sprintf(`{"resource":{".tag":"path","path":%q},"format":"jpeg","size":"w256h256"}`, path)
	return d.contentBase + "/2/files/get_thumbnail_v2?arg=" + url.QueryEscape(arg)
}

func (d *DropboxProvider) doRequest(ctx context.Context, endpoint string, body []byte) ([]byte, error) {
	if d.tokenSource == nil {
		return nil, shared.ErrNotAuthenticated
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	token, err := d.tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTokenExpired, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.apiBase+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, mapStatusError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

// mapStatusError translates Dropbox HTTP failures into the shared error taxonomy.
func mapStatusError(status int, body []byte) error {
	summary := errorSummary(body)

	switch {
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", shared.ErrUnauthorized, summary)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", shared.ErrRateLimited, summary)
	case status == http.StatusConflict:
		// Dropbox reports path errors as 409 with a path/not_found summary.
		if strings.Contains(summary, "not_found") {
			return fmt.Errorf("%w: %s", shared.ErrPathNotFound, summary)
		}
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, summary)
	default:
		return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, status, summary)
	}
}

func errorSummary(body []byte) string {
	var payload struct {
		ErrorSummary string `json:"error_summary"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.ErrorSummary != "" {
		return payload.ErrorSummary
	}
	return strings.TrimSpace(string(body))
}
