package player

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/driftnote/driftnote/internal/track"
)

// TrackEndFunc is called when the current track finishes naturally.
type TrackEndFunc func(t track.Track)

// StateChangeFunc is called after every observable state change.
type StateChangeFunc func(s State)

// SourceFunc builds the stream URL for a track.
type SourceFunc func(t track.Track) string

// State is a snapshot of the engine.
type State struct {
	Track     *track.Track `json:"track,omitempty"`
	IsPlaying bool         `json:"isPlaying"`
	Position  float64      `json:"position"`
	Duration  float64      `json:"duration"`
	Volume    float64      `json:"volume"`
	Muted     bool         `json:"muted"`
}

// Engine owns playback of the current track. Commands sent to the element are
// requests; the element's events are the authoritative record of what audio
// is doing, and the engine reconciles its state from them. Events never cause
// the engine to issue the same command back, which is what keeps a
// command/event echo from looping.
type Engine struct {
	mu      sync.RWMutex
	element Element
	source  SourceFunc
	logger  *log.Logger

	current   *track.Track
	isPlaying bool
	position  float64
	duration  float64
	volume    float64
	muted     bool

	// pendingAutoplay asks for one Play once the element has loaded the
	// source. It is cleared when that Play is issued, so a rebuffer of the
	// same source cannot start playback a second time.
	pendingAutoplay bool

	onTrackEnd    TrackEndFunc
	onStateChange StateChangeFunc
}

// NewEngine wires an engine to its element. The engine registers itself as
// the element's event handler.
func NewEngine(element Element, source SourceFunc, logger *log.Logger) *Engine {
	e := &Engine{
		element: element,
		source:  source,
		logger:  logger,
		volume:  1.0,
	}
	element.SetEventHandler(e.handleEvent)
	return e
}

// SetOnTrackEnd sets the callback invoked when a track finishes naturally.
func (e *Engine) SetOnTrackEnd(fn TrackEndFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onTrackEnd = fn
}

// SetOnStateChange sets the callback invoked after state changes.
func (e *Engine) SetOnStateChange(fn StateChangeFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onStateChange = fn
}

// SetCurrentTrack loads a new track into the element. With autoplay set,
// playback starts once the element reports the source loaded. A nil track
// unloads the element and stops playback.
func (e *Engine) SetCurrentTrack(t *track.Track, autoplay bool) {
	e.mu.Lock()
	if t == nil {
		e.current = nil
		e.isPlaying = false
		e.position = 0
		e.duration = 0
		e.pendingAutoplay = false
		e.mu.Unlock()

		e.element.Pause()
		e.notifyStateChange()
		return
	}

	loaded := *t
	e.current = &loaded
	e.isPlaying = false
	e.position = 0
	e.duration = t.DurationSeconds
	e.pendingAutoplay = autoplay
	sourceURL := e.source(loaded)
	e.mu.Unlock()

	e.element.Load(loaded, sourceURL)
	e.notifyStateChange()
}

// Play asks the element to start. The optimistic playing state is reverted
// if the element refuses, and confirmed by the element's own play event.
func (e *Engine) Play() {
	e.mu.Lock()
	if e.current == nil {
		e.mu.Unlock()
		return
	}
	e.isPlaying = true
	e.mu.Unlock()

	if err := e.element.Play(); err != nil {
		e.logger.Warn("playback start refused", "error", err)
		e.mu.Lock()
		e.isPlaying = false
		e.mu.Unlock()
	}
	e.notifyStateChange()
}

// Pause asks the element to stop advancing. Pausing while already paused is
// a no-op.
func (e *Engine) Pause() {
	e.mu.Lock()
	e.isPlaying = false
	e.mu.Unlock()

	e.element.Pause()
	e.notifyStateChange()
}

// Toggle plays when paused and pauses when playing.
func (e *Engine) Toggle() {
	if e.IsPlaying() {
		e.Pause()
	} else {
		e.Play()
	}
}

// Stop pauses and rewinds to the start of the current track.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.isPlaying = false
	e.position = 0
	e.mu.Unlock()

	e.element.Pause()
	e.element.Seek(0)
	e.notifyStateChange()
}

// Restart rewinds to the start of the current track and plays it.
func (e *Engine) Restart() {
	e.mu.Lock()
	e.position = 0
	e.mu.Unlock()

	e.element.Seek(0)
	e.Play()
}

// Seek moves the play position, clamped into the track's duration when it is
// known.
func (e *Engine) Seek(position float64) {
	e.mu.Lock()
	if position < 0 {
		position = 0
	}
	if e.duration > 0 && position > e.duration {
		position = e.duration
	}
	e.position = position
	e.mu.Unlock()

	e.element.Seek(position)
	e.notifyStateChange()
}

// SetVolume clamps volume into [0, 1] and applies it. Volume zero mutes;
// any other volume unmutes.
func (e *Engine) SetVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}

	e.mu.Lock()
	e.volume = volume
	e.muted = volume == 0
	muted := e.muted
	e.mu.Unlock()

	e.element.SetVolume(volume)
	e.element.SetMuted(muted)
	e.notifyStateChange()
}

// ToggleMute flips the muted flag.
func (e *Engine) ToggleMute() {
	e.mu.Lock()
	e.muted = !e.muted
	muted := e.muted
	e.mu.Unlock()

	e.element.SetMuted(muted)
	e.notifyStateChange()
}

// IsPlaying reports whether audio is currently advancing.
func (e *Engine) IsPlaying() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.isPlaying
}

// Position returns the current play position in seconds.
func (e *Engine) Position() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.position
}

// Status returns a snapshot of the engine's state.
func (e *Engine) Status() State {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := State{
		IsPlaying: e.isPlaying,
		Position:  e.position,
		Duration:  e.duration,
		Volume:    e.volume,
		Muted:     e.muted,
	}
	if e.current != nil {
		t := *e.current
		s.Track = &t
	}
	return s
}

// Close releases the underlying element.
func (e *Engine) Close() error {
	return e.element.Close()
}

// handleEvent reconciles engine state with what the element reports. Events
// for a track that is no longer current are dropped, which keeps a stale
// source from finishing or reporting progress on behalf of the new one.
func (e *Engine) handleEvent(ev Event) {
	e.mu.Lock()

	if e.current == nil || (ev.TrackID != "" && ev.TrackID != e.current.ID) {
		e.mu.Unlock()
		return
	}

	var startPlayback bool
	var ended *track.Track
	endedFn := e.onTrackEnd

	switch ev.Kind {
	case EventLoadedMetadata:
		if ev.Duration > 0 {
			e.duration = ev.Duration
		}
		if e.pendingAutoplay {
			e.pendingAutoplay = false
			startPlayback = true
		}

	case EventTimeUpdate:
		e.position = ev.Position
		if ev.Duration > 0 {
			e.duration = ev.Duration
		}

	case EventPlay:
		e.isPlaying = true

	case EventPause:
		e.isPlaying = false

	case EventEnded:
		e.isPlaying = false
		if e.duration > 0 {
			e.position = e.duration
		}
		finished := *e.current
		ended = &finished

	case EventError:
		e.isPlaying = false
		e.logger.Error("element error", "track", e.current.ID, "error", ev.Err)
	}

	e.mu.Unlock()

	if startPlayback {
		e.Play()
		return
	}

	e.notifyStateChange()

	if ended != nil && endedFn != nil {
		endedFn(*ended)
	}
}

func (e *Engine) notifyStateChange() {
	e.mu.RLock()
	fn := e.onStateChange
	e.mu.RUnlock()

	if fn != nil {
		fn(e.Status())
	}
}
