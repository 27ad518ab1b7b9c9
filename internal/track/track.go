// Package track provides shared type definitions used across the driftnote daemon.
package track

import (
	"path"
	"regexp"
	"strings"
)

// Track is a playable audio item backed by a file in the upstream drive.
// Tracks are copied by value; nothing mutates a Track after it is built.
type Track struct {
	ID              string  `json:"id"`
	DriveFileID     string  `json:"driveFileId"`
	Name            string  `json:"name"`
	Title           string  `json:"title,omitempty"`
	Artist          string  `json:"artist,omitempty"`
	Album           string  `json:"album,omitempty"`
	DurationSeconds float64 `json:"duration,omitempty"`
	MimeType        string  `json:"mimeType,omitempty"`
	Size            int64   `json:"size,omitempty"`
	ThumbnailURL    string  `json:"thumbnailUrl,omitempty"`
}

// DisplayTitle returns the title if set, otherwise the raw file name.
func (t Track) DisplayTitle() string {
	if t.Title != "" {
		return t.Title
	}
	return t.Name
}

// RepeatMode represents the repeat behavior at queue boundaries and track end.
type RepeatMode int

const (
	RepeatNone RepeatMode = iota
	RepeatAll
	RepeatOne
)

// String returns the string representation of the repeat mode.
func (r RepeatMode) String() string {
	switch r {
	case RepeatOne:
		return "one"
	case RepeatAll:
		return "all"
	default:
		return "none"
	}
}

// ParseRepeatMode parses a string into a RepeatMode.
func ParseRepeatMode(s string) RepeatMode {
	switch s {
	case "one":
		return RepeatOne
	case "all":
		return RepeatAll
	default:
		return RepeatNone
	}
}

// Cycle returns the next repeat mode in the fixed none -> all -> one -> none order.
func (r RepeatMode) Cycle() RepeatMode {
	switch r {
	case RepeatNone:
		return RepeatAll
	case RepeatAll:
		return RepeatOne
	default:
		return RepeatNone
	}
}

var titlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d+[.\-\s]+(.+)$`), // "01. Title" or "01 - Title"
	regexp.MustCompile(`^[^-]+ - (.+)$`),    // "Artist - Title"
}

// ExtractTitle derives a display title from a raw file name by stripping the
// extension and common track-number / artist prefixes.
func ExtractTitle(filename string) string {
	name := strings.TrimSuffix(filename, path.Ext(filename))

	for _, pattern := range titlePatterns {
		if m := pattern.FindStringSubmatch(name); m != nil {
			return strings.TrimSpace(m[1])
		}
	}

	return strings.TrimSpace(name)
}
