// Package client is the HTTP client for the driftnote API, used by the
// player to fetch catalogs and playlists from a running server.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/driftnote/driftnote/internal/shared"
	"github.com/driftnote/driftnote/internal/storage"
	"github.com/driftnote/driftnote/internal/track"
)

const passwordHeader = "X-Playlist-Password"

// Client talks to a driftnote server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the server at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// StreamURL returns the playback URL for a drive file.
func (c *Client) StreamURL(driveFileID string) string {
	return c.baseURL + "/api/stream/" + url.PathEscape(driveFileID)
}

// Songs fetches a page of the song catalog as playable tracks.
func (c *Client) Songs(ctx context.Context, search string, limit, offset int) ([]track.Track, int, error) {
	params := url.Values{}
	if search != "" {
		params.Set("search", search)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		params.Set("offset", strconv.Itoa(offset))
	}

	var body struct {
		Songs []storage.Song `json:"songs"`
		Total int            `json:"total"`
	}
	if err := c.get(ctx, "/api/songs?"+params.Encode(), "", &body); err != nil {
		return nil, 0, err
	}

	tracks := make([]track.Track, len(body.Songs))
	for i, song := range body.Songs {
		tracks[i] = song.Track()
	}
	return tracks, body.Total, nil
}

// Playlists fetches the playlist listing.
func (c *Client) Playlists(ctx context.Context, includePrivate bool) ([]storage.Playlist, error) {
	path := "/api/playlists"
	if includePrivate {
		path += "?includePrivate=true"
	}

	var playlists []storage.Playlist
	if err := c.get(ctx, path, "", &playlists); err != nil {
		return nil, err
	}
	return playlists, nil
}

// PlaylistTracks fetches a playlist and returns its songs, in order, as
// playable tracks. Protected playlists need the password.
func (c *Client) PlaylistTracks(ctx context.Context, id, password string) ([]track.Track, error) {
	var playlist storage.Playlist
	if err := c.get(ctx, "/api/playlists/"+url.PathEscape(id), password, &playlist); err != nil {
		return nil, err
	}

	tracks := make([]track.Track, len(playlist.Songs))
	for i, entry := range playlist.Songs {
		tracks[i] = entry.Song.Track()
	}
	return tracks, nil
}

func (c *Client) get(ctx context.Context, path, password string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if password != "" {
		req.Header.Set(passwordHeader, password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return shared.ErrInvalidPassword
	case http.StatusNotFound:
		return shared.ErrPlaylistNotFound
	default:
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
