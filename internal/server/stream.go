package server

import (
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/driftnote/driftnote/internal/drive"
)

// Audio rarely changes once uploaded, so clients may cache aggressively.
const streamCacheControl = "public, max-age=86400"

var rangePattern = regexp.MustCompile(`^bytes=(\d*)-(\d*)$`)

// StreamHandler proxies byte ranges of drive audio files to HTTP clients.
//
// Metadata is fetched before any body bytes are written, so upstream failures
// still produce a clean error status. Once streaming has started, a failure
// can only be logged and the connection dropped.
type StreamHandler struct {
	drive  drive.Client
	logger *log.Logger
}

func NewStreamHandler(driveClient drive.Client, logger *log.Logger) *StreamHandler {
	return &StreamHandler{drive: driveClient, logger: logger}
}

// Routes implements Handler.
func (h *StreamHandler) Routes() []string {
	return []string{"GET /api/stream/{fileId}"}
}

// ServeHTTP implements Handler.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("fileId")
	ctx := r.Context()

	info, err := h.drive.Metadata(ctx, fileID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	contentType := info.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Cache-Control", streamCacheControl)

	start, end, partial := parseRange(r.Header.Get("Range"), info.Size)
	length := end - start + 1

	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	if partial {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, info.Size))
		w.WriteHeader(http.StatusPartialContent)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	if r.Method == http.MethodHead || length <= 0 {
		return
	}

	if err := h.copyRange(w, r, fileID, start, length); err != nil {
		// Headers are already on the wire. Dropping the connection is
		// all that is left; range-aware clients will retry.
		h.logger.Error("stream interrupted", "file", fileID, "start", start, "error", err)
	}
}

// copyRange streams length bytes beginning at start. A drive that can serve
// ranges natively is asked for exactly the window; otherwise the full stream
// is opened and the prefix discarded.
func (h *StreamHandler) copyRange(w io.Writer, r *http.Request, fileID string, start, length int64) error {
	ctx := r.Context()

	if ranged, ok := h.drive.(drive.RangeOpener); ok {
		body, err := ranged.OpenRange(ctx, fileID, start, start+length-1)
		if err != nil {
			return err
		}
		defer body.Close()

		_, err = io.CopyN(w, body, length)
		if err == io.EOF {
			err = nil
		}
		return err
	}

	body, err := h.drive.Open(ctx, fileID)
	if err != nil {
		return err
	}
	defer body.Close()

	if start > 0 {
		if _, err := io.CopyN(io.Discard, body, start); err != nil {
			return err
		}
	}

	_, err = io.CopyN(w, body, length)
	if err == io.EOF {
		err = nil
	}
	return err
}

// parseRange resolves a Range header against the file size. Missing bounds
// default to the start and end of the file, and both bounds are clamped into
// [0, size-1]. An absent or malformed header selects the whole file with
// partial false.
func parseRange(header string, size int64) (start, end int64, partial bool) {
	end = size - 1
	if header == "" {
		return 0, end, false
	}

	m := rangePattern.FindStringSubmatch(header)
	if m == nil || (m[1] == "" && m[2] == "") {
		return 0, end, false
	}

	if m[1] != "" {
		start, _ = strconv.ParseInt(m[1], 10, 64)
	}
	if m[2] != "" {
		end, _ = strconv.ParseInt(m[2], 10, 64)
	}

	if start > size-1 {
		start = size - 1
	}
	if start < 0 {
		start = 0
	}
	if end < start {
		end = start
	}
	if end > size-1 {
		end = size - 1
	}

	return start, end, true
}
