package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/driftnote/driftnote/internal/shared"
	"github.com/driftnote/driftnote/internal/storage"
)

func testHandlers(t *testing.T) (*BasicRouter, *storage.SongRepository, *storage.PlaylistRepository) {
	t.Helper()

	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	songs := storage.NewSongRepository(db)
	playlists := storage.NewPlaylistRepository(db)
	logger := shared.NewLogger(io.Discard)

	router := NewBasicRouter()
	router.Handler(NewSongsHandler(songs, logger))
	router.Handler(NewPlaylistsHandler(playlists, logger))
	return router, songs, playlists
}

func doJSON(t *testing.T, router http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func mustSeedSong(t *testing.T, songs *storage.SongRepository, driveID, name string) *storage.Song {
	t.Helper()
	song := storage.Song{DriveFileID: driveID, Name: name, MimeType: "audio/mpeg", Size: 1}
	if err := songs.Upsert(&song); err != nil {
		t.Fatalf("failed to seed song: %v", err)
	}
	return &song
}

func TestSongsEndpoints(t *testing.T) {
	router, songs, _ := testHandlers(t)

	seeded := mustSeedSong(t, songs, "d1", "Highway.mp3")
	mustSeedSong(t, songs, "d2", "Backroad.mp3")

	rec := doJSON(t, router, http.MethodGet, "/api/songs?search=highway", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var list struct {
		Songs []storage.Song `json:"songs"`
		Total int            `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if list.Total != 1 || len(list.Songs) != 1 {
		t.Errorf("expected one match, got %+v", list)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/songs/"+seeded.ID, "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/songs/missing", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestPlaylistLifecycle(t *testing.T) {
	router, songs, _ := testHandlers(t)

	a := mustSeedSong(t, songs, "d1", "a.mp3")
	b := mustSeedSong(t, songs, "d2", "b.mp3")

	rec := doJSON(t, router, http.MethodPost, "/api/playlists",
		`{"name":"Road Trip","songIds":["`+a.ID+`"]}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created storage.Playlist
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/playlists/"+created.ID+"/songs",
		`{"songIds":["`+b.ID+`","`+a.ID+`"]}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var withSongs storage.Playlist
	if err := json.Unmarshal(rec.Body.Bytes(), &withSongs); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(withSongs.Songs) != 2 {
		t.Fatalf("expected 2 songs after dedupe, got %d", len(withSongs.Songs))
	}

	rec = doJSON(t, router, http.MethodPut, "/api/playlists/"+created.ID+"/reorder",
		`{"songIds":["`+b.ID+`","`+a.ID+`"]}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var reordered storage.Playlist
	if err := json.Unmarshal(rec.Body.Bytes(), &reordered); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if reordered.Songs[0].Song.ID != b.ID {
		t.Errorf("reorder did not move song to front")
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/playlists/"+created.ID+"/songs/"+a.ID, "", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/playlists/"+created.ID, "", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/playlists/"+created.ID, "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestPlaylistPasswordFlow(t *testing.T) {
	router, _, _ := testHandlers(t)

	rec := doJSON(t, router, http.MethodPost, "/api/playlists",
		`{"name":"Secret","isPublic":false,"password":"hunter2"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created storage.Playlist
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/playlists/"+created.ID, "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without password, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/playlists/"+created.ID, "",
		map[string]string{"X-Playlist-Password": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong password, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/playlists/"+created.ID, "",
		map[string]string{"X-Playlist-Password": "hunter2"})
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with password, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/api/playlists/"+created.ID+"/verify-password",
		`{"password":"hunter2"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var verdict map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &verdict); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !verdict["valid"] {
		t.Errorf("expected password to verify")
	}
}

func TestPlaylistCreateValidation(t *testing.T) {
	router, _, _ := testHandlers(t)

	rec := doJSON(t, router, http.MethodPost, "/api/playlists", `{"name":""}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty name, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/playlists", `not-json`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad body, got %d", rec.Code)
	}
}
