package drive

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/time/rate"

	"github.com/driftnote/driftnote/internal/shared"
)

func testClient(srv *httptest.Server, folderID string) *GoogleDrive {
	return &GoogleDrive{
		httpClient: srv.Client(),
		limiter:    rate.NewLimiter(rate.Inf, 1),
		baseURL:    srv.URL,
		folderID:   folderID,
	}
}

func TestMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/abc" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("fields") == "" {
			t.Errorf("missing fields param")
		}
		w.Write([]byte(`{"id":"abc","name":"song.mp3","mimeType":"audio/mpeg","size":"4096"}`))
	}))
	defer srv.Close()

	info, err := testClient(srv, "").Metadata(context.Background(), "abc")
	if err != nil {
		t.Fatalf("metadata failed: %v", err)
	}
	if info.Size != 4096 {
		t.Errorf("expected size 4096, got %d", info.Size)
	}
	if info.MimeType != "audio/mpeg" {
		t.Errorf("expected audio/mpeg, got %s", info.MimeType)
	}
}

func TestMetadataNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(srv, "").Metadata(context.Background(), "missing")
	if !errors.Is(err, shared.ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound, got %v", err)
	}
}

func TestOpenRangeSendsHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Range"); got != "bytes=100-199" {
			t.Errorf("expected range header, got %q", got)
		}
		if r.URL.Query().Get("alt") != "media" {
			t.Errorf("missing alt=media")
		}
		w.WriteHeader(http.StatusPartialContent)
		w.Write(make([]byte, 100))
	}))
	defer srv.Close()

	body, err := testClient(srv, "").OpenRange(context.Background(), "abc", 100, 199)
	if err != nil {
		t.Fatalf("open range failed: %v", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(data) != 100 {
		t.Errorf("expected 100 bytes, got %d", len(data))
	}
}

func TestListQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if q != "'folder-1' in parents and mimeType contains 'audio/' and trashed = false" {
			t.Errorf("unexpected query %q", q)
		}
		if r.URL.Query().Get("pageToken") != "tok" {
			t.Errorf("missing page token")
		}
		w.Write([]byte(`{"files":[{"id":"a","name":"a.mp3","mimeType":"audio/mpeg","size":"1"}],"nextPageToken":"next"}`))
	}))
	defer srv.Close()

	list, err := testClient(srv, "folder-1").List(context.Background(), "", "tok")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list.Files) != 1 || list.NextPageToken != "next" {
		t.Errorf("unexpected list %+v", list)
	}
}

func TestListWithoutFolder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	_, err := testClient(srv, "").List(context.Background(), "", "")
	if !errors.Is(err, shared.ErrMissingConfig) {
		t.Errorf("expected ErrMissingConfig, got %v", err)
	}
}
