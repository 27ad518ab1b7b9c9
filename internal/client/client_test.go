package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/driftnote/driftnote/internal/shared"
)

func TestPlaylistTracks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/playlists/p1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Playlist-Password"); got != "pw" {
			t.Errorf("password header missing, got %q", got)
		}
		w.Write([]byte(`{
			"id": "p1", "name": "Mix",
			"songs": [
				{"id": "e1", "position": 0, "song": {"id": "s1", "driveFileId": "d1", "name": "a.mp3", "title": "A"}},
				{"id": "e2", "position": 1, "song": {"id": "s2", "driveFileId": "d2", "name": "b.mp3"}}
			]
		}`))
	}))
	defer srv.Close()

	tracks, err := New(srv.URL).PlaylistTracks(context.Background(), "p1", "pw")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(tracks))
	}
	if tracks[0].ID != "s1" || tracks[0].Title != "A" || tracks[0].DriveFileID != "d1" {
		t.Errorf("track conversion wrong: %+v", tracks[0])
	}
}

func TestPlaylistTracksUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := New(srv.URL).PlaylistTracks(context.Background(), "p1", "wrong")
	if !errors.Is(err, shared.ErrInvalidPassword) {
		t.Errorf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestSongs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("search"); got != "road" {
			t.Errorf("search param missing, got %q", got)
		}
		w.Write([]byte(`{"songs":[{"id":"s1","driveFileId":"d1","name":"road.mp3"}],"total":7}`))
	}))
	defer srv.Close()

	tracks, total, err := New(srv.URL).Songs(context.Background(), "road", 10, 0)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if total != 7 || len(tracks) != 1 {
		t.Errorf("unexpected result: %d tracks, total %d", len(tracks), total)
	}
}

func TestStreamURL(t *testing.T) {
	c := New("http://localhost:4533")
	if got := c.StreamURL("abc 123"); got != "http://localhost:4533/api/stream/abc%20123" {
		t.Errorf("unexpected stream url %q", got)
	}
}
