package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/driftnote/driftnote/internal/shared"
	"github.com/driftnote/driftnote/internal/storage"
)

// passwordHeader carries the plaintext playlist password. It is never stored
// or logged.
const passwordHeader = "X-Playlist-Password"

// PlaylistsHandler serves playlist CRUD and membership operations.
type PlaylistsHandler struct {
	playlists *storage.PlaylistRepository
	logger    *log.Logger
}

func NewPlaylistsHandler(playlists *storage.PlaylistRepository, logger *log.Logger) *PlaylistsHandler {
	return &PlaylistsHandler{playlists: playlists, logger: logger}
}

// Routes implements Handler.
func (h *PlaylistsHandler) Routes() []string {
	return []string{
		"GET /api/playlists",
		"POST /api/playlists",
		"GET /api/playlists/{id}",
		"PUT /api/playlists/{id}",
		"DELETE /api/playlists/{id}",
		"POST /api/playlists/{id}/verify-password",
		"POST /api/playlists/{id}/songs",
		"DELETE /api/playlists/{id}/songs/{songId}",
		"PUT /api/playlists/{id}/reorder",
	}
}

// ServeHTTP implements Handler.
func (h *PlaylistsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	songID := r.PathValue("songId")

	switch {
	case id == "":
		if r.Method == http.MethodPost {
			h.create(w, r)
		} else {
			h.list(w, r)
		}
	case songID != "":
		h.removeSong(w, r, id, songID)
	case r.Method == http.MethodPost && lastSegment(r) == "verify-password":
		h.verifyPassword(w, r, id)
	case r.Method == http.MethodPost && lastSegment(r) == "songs":
		h.addSongs(w, r, id)
	case r.Method == http.MethodPut && lastSegment(r) == "reorder":
		h.reorder(w, r, id)
	case r.Method == http.MethodPut:
		h.update(w, r, id)
	case r.Method == http.MethodDelete:
		h.delete(w, r, id)
	default:
		h.get(w, r, id)
	}
}

func lastSegment(r *http.Request) string {
	path := r.URL.Path
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

func (h *PlaylistsHandler) list(w http.ResponseWriter, r *http.Request) {
	includePrivate := r.URL.Query().Get("includePrivate") == "true"

	playlists, err := h.playlists.List(includePrivate)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if playlists == nil {
		playlists = []storage.Playlist{}
	}
	writeJSON(w, http.StatusOK, playlists)
}

func (h *PlaylistsHandler) create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string   `json:"name"`
		Description string   `json:"description"`
		IsPublic    *bool    `json:"isPublic"`
		Password    string   `json:"password"`
		SongIDs     []string `json:"songIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, h.logger, fmt.Errorf("%w: invalid JSON body", shared.ErrInvalidInput))
		return
	}

	playlist, err := h.playlists.Create(storage.CreatePlaylistInput{
		Name:        body.Name,
		Description: body.Description,
		IsPublic:    body.IsPublic,
		Password:    body.Password,
		SongIDs:     body.SongIDs,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, playlist)
}

func (h *PlaylistsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	playlist, err := h.playlists.Get(id, r.Header.Get(passwordHeader))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

func (h *PlaylistsHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		Name           *string `json:"name"`
		Description    *string `json:"description"`
		IsPublic       *bool   `json:"isPublic"`
		Password       string  `json:"password"`
		RemovePassword bool    `json:"removePassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, h.logger, fmt.Errorf("%w: invalid JSON body", shared.ErrInvalidInput))
		return
	}

	playlist, err := h.playlists.Update(id, storage.UpdatePlaylistInput{
		Name:           body.Name,
		Description:    body.Description,
		IsPublic:       body.IsPublic,
		Password:       body.Password,
		RemovePassword: body.RemovePassword,
	}, r.Header.Get(passwordHeader))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

func (h *PlaylistsHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.playlists.Delete(id, r.Header.Get(passwordHeader)); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PlaylistsHandler) verifyPassword(w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, h.logger, fmt.Errorf("%w: invalid JSON body", shared.ErrInvalidInput))
		return
	}

	valid, err := h.playlists.VerifyPassword(id, body.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

func (h *PlaylistsHandler) addSongs(w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		SongIDs []string `json:"songIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, h.logger, fmt.Errorf("%w: invalid JSON body", shared.ErrInvalidInput))
		return
	}
	if len(body.SongIDs) == 0 {
		writeError(w, h.logger, fmt.Errorf("%w: songIds is required", shared.ErrInvalidInput))
		return
	}

	if err := h.playlists.AddSongs(id, body.SongIDs, r.Header.Get(passwordHeader)); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.get(w, r, id)
}

func (h *PlaylistsHandler) removeSong(w http.ResponseWriter, r *http.Request, id, songID string) {
	if err := h.playlists.RemoveSong(id, songID, r.Header.Get(passwordHeader)); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PlaylistsHandler) reorder(w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		SongIDs []string `json:"songIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, h.logger, fmt.Errorf("%w: invalid JSON body", shared.ErrInvalidInput))
		return
	}

	if err := h.playlists.Reorder(id, body.SongIDs, r.Header.Get(passwordHeader)); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.get(w, r, id)
}
