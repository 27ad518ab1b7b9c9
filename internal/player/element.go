// Package player drives playback of one track at a time on top of an audio
// element that mutates asynchronously.
package player

import (
	"github.com/driftnote/driftnote/internal/track"
)

// EventKind identifies a state change reported by an audio element.
type EventKind int

const (
	// EventLoadedMetadata fires once a source's duration is known.
	EventLoadedMetadata EventKind = iota
	// EventTimeUpdate fires periodically while audio advances.
	EventTimeUpdate
	// EventPlay fires when audio actually starts, whether or not the
	// start was requested through the engine.
	EventPlay
	// EventPause fires when audio actually stops advancing.
	EventPause
	// EventEnded fires when a track finishes naturally.
	EventEnded
	// EventError fires when the element cannot load or keep playing.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventLoadedMetadata:
		return "loadedmetadata"
	case EventTimeUpdate:
		return "timeupdate"
	case EventPlay:
		return "play"
	case EventPause:
		return "pause"
	case EventEnded:
		return "ended"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one asynchronous report from an audio element. TrackID names the
// source the event belongs to, which may no longer be the current one.
type Event struct {
	Kind     EventKind
	TrackID  string
	Position float64
	Duration float64
	Err      error
}

// EventHandler receives element events. Handlers are called from the
// element's own goroutine and must not block.
type EventHandler func(Event)

// Element is the audio primitive the engine drives. Commands are requests,
// not guarantees: the element reports what actually happened through events,
// and those reports are authoritative.
type Element interface {
	// Load replaces the element's source. Playback does not start until
	// Play is called.
	Load(t track.Track, sourceURL string)

	// Play asks the element to start. An error means the start was
	// refused and no EventPlay will follow.
	Play() error

	// Pause asks the element to stop advancing.
	Pause()

	// Seek moves the play position, clamped by the element to the
	// source's bounds.
	Seek(position float64)

	SetVolume(volume float64)
	SetMuted(muted bool)

	// SetEventHandler registers the handler for all subsequent events.
	SetEventHandler(handler EventHandler)

	// Close releases the element. No events fire after Close returns.
	Close() error
}
