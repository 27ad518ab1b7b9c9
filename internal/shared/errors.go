package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Upstream storage errors
	ErrUpstreamUnavailable = fmt.Errorf("upstream storage unavailable")
	ErrFileNotFound        = fmt.Errorf("file not found")

	// Persistence errors
	ErrSongNotFound     = fmt.Errorf("song not found")
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")
	ErrPasswordRequired = fmt.Errorf("password required")
	ErrInvalidPassword  = fmt.Errorf("invalid password")

	// Input validation errors
	ErrInvalidInput = fmt.Errorf("invalid input")
)
