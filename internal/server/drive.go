package server

import (
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/driftnote/driftnote/internal/drive"
	"github.com/driftnote/driftnote/internal/library"
)

// DriveHandler exposes the raw drive listing and triggers library syncs.
type DriveHandler struct {
	drive  drive.Client
	syncer *library.Syncer
	logger *log.Logger
}

func NewDriveHandler(driveClient drive.Client, syncer *library.Syncer, logger *log.Logger) *DriveHandler {
	return &DriveHandler{drive: driveClient, syncer: syncer, logger: logger}
}

// Routes implements Handler.
func (h *DriveHandler) Routes() []string {
	return []string{
		"GET /api/drive/files",
		"POST /api/drive/sync",
	}
}

// ServeHTTP implements Handler.
func (h *DriveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		h.sync(w, r)
		return
	}
	h.files(w, r)
}

func (h *DriveHandler) files(w http.ResponseWriter, r *http.Request) {
	list, err := h.drive.List(r.Context(), r.URL.Query().Get("folderId"), r.URL.Query().Get("pageToken"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *DriveHandler) sync(w http.ResponseWriter, r *http.Request) {
	synced, err := h.syncer.Sync(r.Context(), r.URL.Query().Get("folderId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"synced": synced})
}
