// Package media provides OS-level media session integration.
package media

// PlaybackState represents the playback state for media sessions
type PlaybackState int

const (
	StateStopped PlaybackState = iota
	StatePlaying
	StatePaused
)

// NowPlaying contains track metadata for media session display. Positions and
// durations are in seconds.
type NowPlaying struct {
	TrackID  string
	Title    string
	Artist   string
	Album    string
	Duration float64
	ArtURL   string
}

// LoopStatus represents the loop/repeat mode for MPRIS
type LoopStatus string

const (
	LoopNone     LoopStatus = "None"
	LoopTrack    LoopStatus = "Track"
	LoopPlaylist LoopStatus = "Playlist"
)

// Session is the interface for OS media session integration
type Session interface {
	// UpdateNowPlaying updates the currently playing track metadata
	UpdateNowPlaying(np NowPlaying) error

	// UpdatePlaybackState updates the playback state and position in seconds
	UpdatePlaybackState(state PlaybackState, position float64) error

	// UpdateShuffle updates the shuffle state
	UpdateShuffle(enabled bool) error

	// UpdateLoopStatus updates the repeat/loop mode
	UpdateLoopStatus(status LoopStatus) error

	// UpdateVolume updates the reported volume, 0.0 - 1.0
	UpdateVolume(volume float64) error

	// SetCommandHandler sets the handler for media commands (play, pause, etc.)
	SetCommandHandler(handler CommandHandler)

	// Close releases resources
	Close() error
}

// Command represents a media command from the OS
type Command int

const (
	CmdPlay Command = iota
	CmdPause
	CmdPlayPause
	CmdStop
	CmdNext
	CmdPrevious
	CmdSeek
	CmdSetShuffle
	CmdSetLoop
	CmdSetVolume
)

// String returns the command name
func (c Command) String() string {
	switch c {
	case CmdPlay:
		return "Play"
	case CmdPause:
		return "Pause"
	case CmdPlayPause:
		return "PlayPause"
	case CmdStop:
		return "Stop"
	case CmdNext:
		return "Next"
	case CmdPrevious:
		return "Previous"
	case CmdSeek:
		return "Seek"
	case CmdSetShuffle:
		return "SetShuffle"
	case CmdSetLoop:
		return "SetLoop"
	case CmdSetVolume:
		return "SetVolume"
	default:
		return "Unknown"
	}
}

// CommandHandler handles media commands from the OS
type CommandHandler interface {
	OnCommand(cmd Command, data any) error
}

// CommandHandlerFunc is a function adapter for CommandHandler
type CommandHandlerFunc func(cmd Command, data any) error

func (f CommandHandlerFunc) OnCommand(cmd Command, data any) error {
	return f(cmd, data)
}

// NoOpSession is a session that does nothing
// Used when media session integration is not available
type NoOpSession struct{}

// NewNoOpSession creates a new no-op session
func NewNoOpSession() *NoOpSession {
	return &NoOpSession{}
}

func (s *NoOpSession) UpdateNowPlaying(np NowPlaying) error { return nil }

func (s *NoOpSession) UpdatePlaybackState(state PlaybackState, position float64) error { return nil }

func (s *NoOpSession) UpdateShuffle(enabled bool) error { return nil }

func (s *NoOpSession) UpdateLoopStatus(status LoopStatus) error { return nil }

func (s *NoOpSession) UpdateVolume(volume float64) error { return nil }

func (s *NoOpSession) SetCommandHandler(handler CommandHandler) {}

func (s *NoOpSession) Close() error { return nil }
