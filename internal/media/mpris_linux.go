//go:build linux

package media

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	mprisInterface       = "org.mpris.MediaPlayer2"
	mprisPlayerInterface = "org.mpris.MediaPlayer2.Player"
	mprisBusName         = "org.mpris.MediaPlayer2.driftnote"
	mprisObjectPath      = "/org/mpris/MediaPlayer2"
)

// MPRISSession implements MPRIS media session for Linux
type MPRISSession struct {
	mu         sync.Mutex
	conn       *dbus.Conn
	handler    CommandHandler
	nowPlaying NowPlaying
	state      PlaybackState
	position   float64
	volume     float64
	shuffle    bool
	loopStatus LoopStatus
}

// NewSession creates a new MPRIS media session
func NewSession() (Session, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	reply, err := conn.RequestName(mprisBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, fmt.Errorf("bus name already taken")
	}

	session := &MPRISSession{
		conn:       conn,
		state:      StateStopped,
		volume:     1.0,
		loopStatus: LoopNone,
	}

	if err := session.exportInterfaces(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to export interfaces: %w", err)
	}

	return session, nil
}

func (s *MPRISSession) exportInterfaces() error {
	for _, iface := range []string{mprisInterface, mprisPlayerInterface, "org.freedesktop.DBus.Properties"} {
		if err := s.conn.Export(s, dbus.ObjectPath(mprisObjectPath), iface); err != nil {
			return err
		}
	}
	return nil
}

// UpdateNowPlaying updates the track metadata
func (s *MPRISSession) UpdateNowPlaying(np NowPlaying) error {
	s.mu.Lock()
	s.nowPlaying = np
	props := map[string]dbus.Variant{
		"Metadata": dbus.MakeVariant(s.metadataMapLocked()),
	}
	s.mu.Unlock()

	return s.emitPropertiesChanged(props)
}

// UpdatePlaybackState updates the playback state
func (s *MPRISSession) UpdatePlaybackState(state PlaybackState, position float64) error {
	s.mu.Lock()
	oldState := s.state
	s.state = state
	s.position = position
	props := map[string]dbus.Variant{
		"PlaybackStatus": dbus.MakeVariant(s.playbackStatusLocked()),
	}
	s.mu.Unlock()

	// Clients track position from rate, so only a state transition into
	// playing needs a Seeked signal to resynchronize them.
	if oldState != state && state == StatePlaying {
		s.emitSeeked(position)
	}

	return s.emitPropertiesChanged(props)
}

func (s *MPRISSession) emitSeeked(position float64) error {
	return s.conn.Emit(
		dbus.ObjectPath(mprisObjectPath),
		mprisPlayerInterface+".Seeked",
		microseconds(position),
	)
}

// UpdateShuffle updates the shuffle state
func (s *MPRISSession) UpdateShuffle(enabled bool) error {
	s.mu.Lock()
	s.shuffle = enabled
	s.mu.Unlock()

	return s.emitPropertiesChanged(map[string]dbus.Variant{
		"Shuffle": dbus.MakeVariant(enabled),
	})
}

// UpdateLoopStatus updates the loop/repeat mode
func (s *MPRISSession) UpdateLoopStatus(status LoopStatus) error {
	s.mu.Lock()
	s.loopStatus = status
	s.mu.Unlock()

	return s.emitPropertiesChanged(map[string]dbus.Variant{
		"LoopStatus": dbus.MakeVariant(string(status)),
	})
}

// UpdateVolume updates the reported volume
func (s *MPRISSession) UpdateVolume(volume float64) error {
	s.mu.Lock()
	s.volume = volume
	s.mu.Unlock()

	return s.emitPropertiesChanged(map[string]dbus.Variant{
		"Volume": dbus.MakeVariant(volume),
	})
}

// SetCommandHandler sets the handler for media commands
func (s *MPRISSession) SetCommandHandler(handler CommandHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
}

// Close releases resources
func (s *MPRISSession) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *MPRISSession) dispatch(cmd Command, data any) {
	s.mu.Lock()
	handler := s.handler
	s.mu.Unlock()

	if handler != nil {
		handler.OnCommand(cmd, data)
	}
}

// MPRIS DBus method implementations

// org.mpris.MediaPlayer2 methods

func (s *MPRISSession) Raise() *dbus.Error { return nil }

func (s *MPRISSession) Quit() *dbus.Error { return nil }

// org.mpris.MediaPlayer2.Player methods

func (s *MPRISSession) Play() *dbus.Error {
	s.dispatch(CmdPlay, nil)
	return nil
}

func (s *MPRISSession) Pause() *dbus.Error {
	s.dispatch(CmdPause, nil)
	return nil
}

func (s *MPRISSession) PlayPause() *dbus.Error {
	s.dispatch(CmdPlayPause, nil)
	return nil
}

func (s *MPRISSession) Stop() *dbus.Error {
	s.dispatch(CmdStop, nil)
	return nil
}

func (s *MPRISSession) Next() *dbus.Error {
	s.dispatch(CmdNext, nil)
	return nil
}

func (s *MPRISSession) Previous() *dbus.Error {
	s.dispatch(CmdPrevious, nil)
	return nil
}

func (s *MPRISSession) Seek(offset int64) *dbus.Error {
	s.mu.Lock()
	target := s.position + float64(offset)/1e6
	s.mu.Unlock()

	if target < 0 {
		target = 0
	}
	s.dispatch(CmdSeek, target)
	return nil
}

func (s *MPRISSession) SetPosition(trackID dbus.ObjectPath, position int64) *dbus.Error {
	s.dispatch(CmdSeek, float64(position)/1e6)
	return nil
}

// org.freedesktop.DBus.Properties methods

func (s *MPRISSession) Get(iface, prop string) (dbus.Variant, *dbus.Error) {
	all, dbusErr := s.GetAll(iface)
	if dbusErr != nil {
		return dbus.Variant{}, dbusErr
	}
	if v, ok := all[prop]; ok {
		return v, nil
	}
	return dbus.Variant{}, dbus.MakeFailedError(fmt.Errorf("unknown property: %s", prop))
}

func (s *MPRISSession) GetAll(iface string) (map[string]dbus.Variant, *dbus.Error) {
	switch iface {
	case mprisInterface:
		return map[string]dbus.Variant{
			"CanQuit":             dbus.MakeVariant(false),
			"CanRaise":            dbus.MakeVariant(false),
			"HasTrackList":        dbus.MakeVariant(false),
			"Identity":            dbus.MakeVariant("Driftnote"),
			"DesktopEntry":        dbus.MakeVariant("driftnote"),
			"SupportedUriSchemes": dbus.MakeVariant([]string{"http", "https"}),
			"SupportedMimeTypes":  dbus.MakeVariant([]string{"audio/mpeg"}),
		}, nil
	case mprisPlayerInterface:
		s.mu.Lock()
		defer s.mu.Unlock()
		return map[string]dbus.Variant{
			"PlaybackStatus": dbus.MakeVariant(s.playbackStatusLocked()),
			"Metadata":       dbus.MakeVariant(s.metadataMapLocked()),
			"Position":       dbus.MakeVariant(microseconds(s.position)),
			"Rate":           dbus.MakeVariant(1.0),
			"MinimumRate":    dbus.MakeVariant(1.0),
			"MaximumRate":    dbus.MakeVariant(1.0),
			"CanGoNext":      dbus.MakeVariant(true),
			"CanGoPrevious":  dbus.MakeVariant(true),
			"CanPlay":        dbus.MakeVariant(true),
			"CanPause":       dbus.MakeVariant(true),
			"CanSeek":        dbus.MakeVariant(true),
			"CanControl":     dbus.MakeVariant(true),
			"Volume":         dbus.MakeVariant(s.volume),
			"Shuffle":        dbus.MakeVariant(s.shuffle),
			"LoopStatus":     dbus.MakeVariant(string(s.loopStatus)),
		}, nil
	}
	return nil, dbus.MakeFailedError(fmt.Errorf("unknown interface: %s", iface))
}

func (s *MPRISSession) Set(iface, prop string, value dbus.Variant) *dbus.Error {
	if iface != mprisPlayerInterface {
		return nil
	}

	switch prop {
	case "Shuffle":
		enabled, ok := value.Value().(bool)
		if !ok {
			return dbus.MakeFailedError(fmt.Errorf("invalid type for Shuffle"))
		}
		s.mu.Lock()
		s.shuffle = enabled
		s.mu.Unlock()
		s.dispatch(CmdSetShuffle, enabled)
	case "LoopStatus":
		status, ok := value.Value().(string)
		if !ok {
			return dbus.MakeFailedError(fmt.Errorf("invalid type for LoopStatus"))
		}
		s.mu.Lock()
		s.loopStatus = LoopStatus(status)
		s.mu.Unlock()
		s.dispatch(CmdSetLoop, LoopStatus(status))
	case "Volume":
		volume, ok := value.Value().(float64)
		if !ok {
			return dbus.MakeFailedError(fmt.Errorf("invalid type for Volume"))
		}
		s.mu.Lock()
		s.volume = volume
		s.mu.Unlock()
		s.dispatch(CmdSetVolume, volume)
	}

	return nil
}

func (s *MPRISSession) playbackStatusLocked() string {
	switch s.state {
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	default:
		return "Stopped"
	}
}

func (s *MPRISSession) metadataMapLocked() map[string]dbus.Variant {
	m := make(map[string]dbus.Variant)

	trackPath := "/com/driftnote/track/current"
	m["mpris:trackid"] = dbus.MakeVariant(dbus.ObjectPath(trackPath))

	np := s.nowPlaying
	if np.Title != "" {
		m["xesam:title"] = dbus.MakeVariant(np.Title)
	}
	if np.Artist != "" {
		m["xesam:artist"] = dbus.MakeVariant([]string{np.Artist})
	}
	if np.Album != "" {
		m["xesam:album"] = dbus.MakeVariant(np.Album)
	}
	if np.Duration > 0 {
		m["mpris:length"] = dbus.MakeVariant(microseconds(np.Duration))
	}
	if np.ArtURL != "" {
		m["mpris:artUrl"] = dbus.MakeVariant(np.ArtURL)
	}

	return m
}

func (s *MPRISSession) emitPropertiesChanged(props map[string]dbus.Variant) error {
	return s.conn.Emit(
		dbus.ObjectPath(mprisObjectPath),
		"org.freedesktop.DBus.Properties.PropertiesChanged",
		mprisPlayerInterface,
		props,
		[]string{},
	)
}

func microseconds(seconds float64) int64 {
	return int64(seconds * 1e6)
}
