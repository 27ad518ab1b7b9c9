//go:build !linux

package media

// NewSession creates a media session on platforms without an integration.
// Playback works normally, the OS just does not show controls.
func NewSession() (Session, error) {
	return NewNoOpSession(), nil
}
