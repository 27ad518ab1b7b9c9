package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/driftnote/driftnote/internal/drive"
	"github.com/driftnote/driftnote/internal/shared"
)

// fakeDrive serves one in-memory file. With ranges set it also implements
// drive.RangeOpener.
type fakeDrive struct {
	id       string
	data     []byte
	mimeType string
	failMeta bool
	failOpen bool
}

func (f *fakeDrive) Metadata(ctx context.Context, fileID string) (*drive.FileInfo, error) {
	if f.failMeta {
		return nil, shared.ErrUpstreamUnavailable
	}
	if fileID != f.id {
		return nil, shared.ErrFileNotFound
	}
	return &drive.FileInfo{ID: f.id, Name: "test.mp3", MimeType: f.mimeType, Size: int64(len(f.data))}, nil
}

func (f *fakeDrive) Open(ctx context.Context, fileID string) (io.ReadCloser, error) {
	if f.failOpen {
		return nil, shared.ErrUpstreamUnavailable
	}
	if fileID != f.id {
		return nil, shared.ErrFileNotFound
	}
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

func (f *fakeDrive) List(ctx context.Context, folderID, pageToken string) (*drive.FileList, error) {
	return &drive.FileList{}, nil
}

type rangedFakeDrive struct {
	fakeDrive
	lastStart, lastEnd int64
}

func (f *rangedFakeDrive) OpenRange(ctx context.Context, fileID string, start, end int64) (io.ReadCloser, error) {
	f.lastStart, f.lastEnd = start, end
	if end > int64(len(f.data))-1 {
		end = int64(len(f.data)) - 1
	}
	return io.NopCloser(bytes.NewReader(f.data[start : end+1])), nil
}

func streamRequest(t *testing.T, h *StreamHandler, fileID, rangeHeader string) *httptest.ResponseRecorder {
	t.Helper()

	router := NewBasicRouter()
	router.Handler(h)

	req := httptest.NewRequest(http.MethodGet, "/api/stream/"+fileID, nil)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func testData(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func TestStreamFullFile(t *testing.T) {
	data := testData(1000)
	h := NewStreamHandler(&fakeDrive{id: "f1", data: data, mimeType: "audio/mpeg"}, shared.NewLogger(io.Discard))

	rec := streamRequest(t, h, "f1", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "audio/mpeg" {
		t.Errorf("wrong content type %q", got)
	}
	if got := rec.Header().Get("Accept-Ranges"); got != "bytes" {
		t.Errorf("missing Accept-Ranges, got %q", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=86400" {
		t.Errorf("wrong cache control %q", got)
	}
	if got := rec.Header().Get("Content-Length"); got != "1000" {
		t.Errorf("wrong content length %q", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), data) {
		t.Errorf("body does not match file contents")
	}
}

func TestStreamPartialContent(t *testing.T) {
	data := testData(1000)
	h := NewStreamHandler(&fakeDrive{id: "f1", data: data, mimeType: "audio/mpeg"}, shared.NewLogger(io.Discard))

	rec := streamRequest(t, h, "f1", "bytes=100-199")

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("expected 206, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 100-199/1000" {
		t.Errorf("wrong content range %q", got)
	}
	if got := rec.Header().Get("Content-Length"); got != "100" {
		t.Errorf("wrong content length %q", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), data[100:200]) {
		t.Errorf("body does not match requested window")
	}
}

func TestStreamClampsOversizedRange(t *testing.T) {
	data := testData(1000)
	h := NewStreamHandler(&fakeDrive{id: "f1", data: data, mimeType: "audio/mpeg"}, shared.NewLogger(io.Discard))

	rec := streamRequest(t, h, "f1", "bytes=0-999999")

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("expected 206, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 0-999/1000" {
		t.Errorf("wrong content range %q", got)
	}
	if rec.Body.Len() != 1000 {
		t.Errorf("expected 1000 bytes, got %d", rec.Body.Len())
	}
}

func TestStreamOpenEndedRange(t *testing.T) {
	data := testData(1000)
	h := NewStreamHandler(&fakeDrive{id: "f1", data: data, mimeType: "audio/mpeg"}, shared.NewLogger(io.Discard))

	rec := streamRequest(t, h, "f1", "bytes=500-")

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("expected 206, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 500-999/1000" {
		t.Errorf("wrong content range %q", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), data[500:]) {
		t.Errorf("body does not match tail")
	}
}

func TestStreamMalformedRangeFallsBackToFull(t *testing.T) {
	data := testData(100)
	h := NewStreamHandler(&fakeDrive{id: "f1", data: data, mimeType: "audio/mpeg"}, shared.NewLogger(io.Discard))

	rec := streamRequest(t, h, "f1", "bytes=abc")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for malformed range, got %d", rec.Code)
	}
	if rec.Body.Len() != 100 {
		t.Errorf("expected full body, got %d bytes", rec.Body.Len())
	}
}

func TestStreamMetadataFailureBeforeBytes(t *testing.T) {
	h := NewStreamHandler(&fakeDrive{failMeta: true}, shared.NewLogger(io.Discard))

	rec := streamRequest(t, h, "f1", "bytes=0-100")

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("expected JSON error body, got %q", got)
	}
}

func TestStreamUnknownFile(t *testing.T) {
	h := NewStreamHandler(&fakeDrive{id: "other"}, shared.NewLogger(io.Discard))

	rec := streamRequest(t, h, "f1", "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestStreamUsesRangeOpener(t *testing.T) {
	data := testData(1000)
	fake := &rangedFakeDrive{fakeDrive: fakeDrive{id: "f1", data: data, mimeType: "audio/mpeg"}}
	h := NewStreamHandler(fake, shared.NewLogger(io.Discard))

	rec := streamRequest(t, h, "f1", "bytes=200-299")

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("expected 206, got %d", rec.Code)
	}
	if fake.lastStart != 200 || fake.lastEnd != 299 {
		t.Errorf("upstream asked for %d-%d, want 200-299", fake.lastStart, fake.lastEnd)
	}
	if !bytes.Equal(rec.Body.Bytes(), data[200:300]) {
		t.Errorf("body does not match requested window")
	}
}

func TestParseRange(t *testing.T) {
	cases := []struct {
		header     string
		size       int64
		start, end int64
		partial    bool
	}{
		{"", 1000, 0, 999, false},
		{"bytes=0-499", 1000, 0, 499, true},
		{"bytes=500-", 1000, 500, 999, true},
		{"bytes=0-999999", 1000, 0, 999, true},
		{"bytes=999999-", 1000, 999, 999, true},
		{"bytes=300-100", 1000, 300, 300, true},
		{"garbage", 1000, 0, 999, false},
		{"bytes=-", 1000, 0, 999, false},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s_%d", tc.header, tc.size), func(t *testing.T) {
			start, end, partial := parseRange(tc.header, tc.size)
			if start != tc.start || end != tc.end || partial != tc.partial {
				t.Errorf("parseRange(%q, %d) = (%d, %d, %v), want (%d, %d, %v)",
					tc.header, tc.size, start, end, partial, tc.start, tc.end, tc.partial)
			}
		})
	}
}
