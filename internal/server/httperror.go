package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/driftnote/driftnote/internal/shared"
)

// AppError is the JSON error body returned by every handler.
type AppError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps a domain error onto an HTTP status and writes the JSON
// error body. Unrecognized errors become 500s and are logged; the body never
// echoes internal detail for those.
func writeError(w http.ResponseWriter, logger *log.Logger, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case errors.Is(err, shared.ErrInvalidInput):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, shared.ErrPasswordRequired), errors.Is(err, shared.ErrInvalidPassword):
		status = http.StatusUnauthorized
		message = err.Error()
	case errors.Is(err, shared.ErrSongNotFound),
		errors.Is(err, shared.ErrPlaylistNotFound),
		errors.Is(err, shared.ErrFileNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, shared.ErrUpstreamUnavailable):
		status = http.StatusBadGateway
		message = "Upstream drive unavailable"
	default:
		logger.Error("request failed", "error", err)
	}

	writeJSON(w, status, &AppError{Status: status, Message: message})
}
