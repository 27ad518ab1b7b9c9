package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/driftnote/driftnote/internal/shared"
)

const (
	defaultBaseURL = "https://www.googleapis.com/drive/v3"

	// metadataFields keeps responses small; everything else drive returns
	// is ignored anyway.
	metadataFields = "id,name,mimeType,size,thumbnailLink"

	listPageSize = 1000
)

// GoogleDrive is a Client backed by the Google Drive v3 REST API using a
// long-lived refresh token.
type GoogleDrive struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	folderID   string
}

// GoogleDriveOptions configures a GoogleDrive client.
type GoogleDriveOptions struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	FolderID     string

	// BaseURL overrides the API endpoint. Leave empty outside tests.
	BaseURL string
}

// NewGoogleDrive builds a client whose transport refreshes access tokens
// automatically. Requests are rate limited to stay under drive's per-user
// quota.
func NewGoogleDrive(ctx context.Context, opts GoogleDriveOptions) (*GoogleDrive, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" || opts.RefreshToken == "" {
		return nil, fmt.Errorf("%w: drive credentials are not set", shared.ErrMissingConfig)
	}

	conf := &oauth2.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.google.com/o/oauth2/auth",
			TokenURL: "https://oauth2.googleapis.com/token",
		},
		Scopes:       []string{"https://www.googleapis.com/auth/drive.readonly"},
	}
	token := &oauth2.Token{RefreshToken: opts.RefreshToken}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &GoogleDrive{
		httpClient: conf.Client(ctx, token),
		limiter:    rate.NewLimiter(rate.Limit(10), 20),
		baseURL:    baseURL,
		folderID:   opts.FolderID,
	}, nil
}

// Metadata implements Client.
func (g *GoogleDrive) Metadata(ctx context.Context, fileID string) (*FileInfo, error) {
	endpoint := fmt.Sprintf("%s/files/%s?fields=%s", g.baseURL, url.PathEscape(fileID), url.QueryEscape(metadataFields))

	resp, err := g.do(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var info FileInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode file metadata: %w", err)
	}
	return &info, nil
}

// Open implements Client.
func (g *GoogleDrive) Open(ctx context.Context, fileID string) (io.ReadCloser, error) {
	endpoint := fmt.Sprintf("%s/files/%s?alt=media", g.baseURL, url.PathEscape(fileID))

	resp, err := g.do(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// OpenRange implements RangeOpener by forwarding a Range header upstream.
// Drive honors single ranges on alt=media downloads.
func (g *GoogleDrive) OpenRange(ctx context.Context, fileID string, start, end int64) (io.ReadCloser, error) {
	endpoint := fmt.Sprintf("%s/files/%s?alt=media", g.baseURL, url.PathEscape(fileID))

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode != http.StatusPartialContent && resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError(resp.StatusCode)
	}
	return resp.Body, nil
}

// List implements Client. It asks only for audio files inside the configured
// folder, ordered by name.
func (g *GoogleDrive) List(ctx context.Context, folderID, pageToken string) (*FileList, error) {
	if folderID == "" {
		folderID = g.folderID
	}
	if folderID == "" {
		return nil, fmt.Errorf("%w: drive folder id is not set", shared.ErrMissingConfig)
	}

	query := fmt.Sprintf("'%s' in parents and mimeType contains 'audio/' and trashed = false", folderID)

	params := url.Values{}
	params.Set("q", query)
	params.Set("fields", fmt.Sprintf("nextPageToken,files(%s)", metadataFields))
	params.Set("pageSize", fmt.Sprintf("%d", listPageSize))
	params.Set("orderBy", "name")
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	resp, err := g.do(ctx, g.baseURL+"/files?"+params.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var list FileList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to decode file list: %w", err)
	}
	return &list, nil
}

func (g *GoogleDrive) do(ctx context.Context, endpoint string) (*http.Response, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError(resp.StatusCode)
	}
	return resp, nil
}

func statusError(code int) error {
	if code == http.StatusNotFound {
		return shared.ErrFileNotFound
	}
	return fmt.Errorf("%w: upstream returned %d", shared.ErrUpstreamUnavailable, code)
}
