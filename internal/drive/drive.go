// Package drive talks to the cloud drive that holds the audio files.
package drive

import (
	"context"
	"io"
)

// FileInfo describes a single remote file.
type FileInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	Size         int64  `json:"size,string"`
	ThumbnailURL string `json:"thumbnailLink,omitempty"`
}

// FileList is one page of a folder listing.
type FileList struct {
	Files         []FileInfo `json:"files"`
	NextPageToken string     `json:"nextPageToken,omitempty"`
}

// Client is the capability the rest of the system needs from a cloud drive.
type Client interface {
	// Metadata fetches size and content type for a file without touching
	// its bytes.
	Metadata(ctx context.Context, fileID string) (*FileInfo, error)

	// Open streams the full contents of a file.
	Open(ctx context.Context, fileID string) (io.ReadCloser, error)

	// List returns one page of audio files in a folder. An empty pageToken
	// starts from the beginning.
	List(ctx context.Context, folderID, pageToken string) (*FileList, error)
}

// RangeOpener is implemented by clients that can ask the upstream for a byte
// range directly instead of discarding a prefix of the full stream.
type RangeOpener interface {
	OpenRange(ctx context.Context, fileID string, start, end int64) (io.ReadCloser, error)
}
