package media

import (
	"github.com/charmbracelet/log"

	"github.com/driftnote/driftnote/internal/player"
	"github.com/driftnote/driftnote/internal/queue"
	"github.com/driftnote/driftnote/internal/track"
)

// Bridge connects the queue and engine to an OS media session: engine and
// queue changes are published to the session, and session commands are routed
// back as ordinary queue and engine calls.
type Bridge struct {
	session Session
	queue   *queue.Manager
	engine  *player.Engine
	logger  *log.Logger
}

func NewBridge(session Session, q *queue.Manager, engine *player.Engine, logger *log.Logger) *Bridge {
	b := &Bridge{session: session, queue: q, engine: engine, logger: logger}
	session.SetCommandHandler(CommandHandlerFunc(b.onCommand))
	return b
}

// PublishPlayerState pushes an engine snapshot to the media session.
func (b *Bridge) PublishPlayerState(s player.State) {
	if s.Track != nil {
		np := NowPlaying{
			TrackID:  s.Track.ID,
			Title:    s.Track.DisplayTitle(),
			Artist:   s.Track.Artist,
			Album:    s.Track.Album,
			Duration: s.Duration,
			ArtURL:   s.Track.ThumbnailURL,
		}
		if err := b.session.UpdateNowPlaying(np); err != nil {
			b.logger.Warn("failed to update now playing", "error", err)
		}
	}

	state := StateStopped
	switch {
	case s.IsPlaying:
		state = StatePlaying
	case s.Track != nil:
		state = StatePaused
	}
	if err := b.session.UpdatePlaybackState(state, s.Position); err != nil {
		b.logger.Warn("failed to update playback state", "error", err)
	}

	if err := b.session.UpdateVolume(s.Volume); err != nil {
		b.logger.Warn("failed to update volume", "error", err)
	}
}

// PublishQueueState pushes a queue snapshot to the media session.
func (b *Bridge) PublishQueueState(s queue.State) {
	if err := b.session.UpdateShuffle(s.IsShuffled); err != nil {
		b.logger.Warn("failed to update shuffle", "error", err)
	}
	if err := b.session.UpdateLoopStatus(loopStatus(s.RepeatMode)); err != nil {
		b.logger.Warn("failed to update loop status", "error", err)
	}
}

func (b *Bridge) onCommand(cmd Command, data any) error {
	b.logger.Debug("media command", "command", cmd.String())

	switch cmd {
	case CmdPlay:
		b.engine.Play()
	case CmdPause:
		b.engine.Pause()
	case CmdPlayPause:
		b.engine.Toggle()
	case CmdStop:
		b.engine.Stop()
	case CmdNext:
		b.queue.Next()
	case CmdPrevious:
		b.queue.Previous()
	case CmdSeek:
		if position, ok := data.(float64); ok {
			b.engine.Seek(position)
		}
	case CmdSetShuffle:
		if enabled, ok := data.(bool); ok && enabled != b.queue.Snapshot().IsShuffled {
			b.queue.ToggleShuffle()
		}
	case CmdSetLoop:
		if status, ok := data.(LoopStatus); ok {
			b.queue.SetRepeat(repeatMode(status))
		}
	case CmdSetVolume:
		if volume, ok := data.(float64); ok {
			b.engine.SetVolume(volume)
		}
	}
	return nil
}

func loopStatus(mode track.RepeatMode) LoopStatus {
	switch mode {
	case track.RepeatOne:
		return LoopTrack
	case track.RepeatAll:
		return LoopPlaylist
	default:
		return LoopNone
	}
}

func repeatMode(status LoopStatus) track.RepeatMode {
	switch status {
	case LoopTrack:
		return track.RepeatOne
	case LoopPlaylist:
		return track.RepeatAll
	default:
		return track.RepeatNone
	}
}
