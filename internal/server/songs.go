package server

import (
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/driftnote/driftnote/internal/storage"
)

// SongsHandler serves the song catalog.
type SongsHandler struct {
	songs  *storage.SongRepository
	logger *log.Logger
}

func NewSongsHandler(songs *storage.SongRepository, logger *log.Logger) *SongsHandler {
	return &SongsHandler{songs: songs, logger: logger}
}

// Routes implements Handler.
func (h *SongsHandler) Routes() []string {
	return []string{
		"GET /api/songs",
		"GET /api/songs/{id}",
	}
}

// ServeHTTP implements Handler.
func (h *SongsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if id := r.PathValue("id"); id != "" {
		h.get(w, r, id)
		return
	}
	h.list(w, r)
}

func (h *SongsHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := storage.SongFilter{
		Search: q.Get("search"),
		Artist: q.Get("artist"),
		Album:  q.Get("album"),
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset > 0 {
		filter.Offset = offset
	}

	songs, total, err := h.songs.List(filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if songs == nil {
		songs = []storage.Song{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"songs": songs,
		"total": total,
	})
}

func (h *SongsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	song, err := h.songs.Get(id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}
