// Package queue manages the playback queue.
package queue

import (
	"math/rand"
	"sync"
	"time"

	"github.com/driftnote/driftnote/internal/track"
)

// previousRestartThreshold is how far into a track Previous restarts it
// instead of going back.
const previousRestartThreshold = 3.0

// Engine is the playback capability the queue needs. Commands may be acted on
// asynchronously; IsPlaying and Position report the engine's latest
// reconciled state.
type Engine interface {
	SetCurrentTrack(t *track.Track, autoplay bool)
	Play()
	Pause()
	Stop()
	Restart()
	IsPlaying() bool
	Position() float64
}

// ChangeCallback is called when the queue state changes
type ChangeCallback func()

// State is a snapshot of the queue for persistence and inspection.
type State struct {
	Queue         []track.Track    `json:"queue"`
	OriginalOrder []track.Track    `json:"originalOrder"`
	CurrentIndex  int              `json:"currentIndex"`
	IsShuffled    bool             `json:"isShuffled"`
	RepeatMode    track.RepeatMode `json:"repeatMode"`
}

// Manager manages the playback queue. The queue slice is the playing order;
// while shuffled, originalOrder preserves the unshuffled order so shuffle can
// be undone. The two always hold the same set of tracks.
type Manager struct {
	mu            sync.RWMutex
	queue         []track.Track
	originalOrder []track.Track
	index         int // Position in queue, -1 when empty
	shuffled      bool
	repeat        track.RepeatMode
	rng           *rand.Rand
	engine        Engine
	onChange      ChangeCallback
}

// NewManager creates a new queue manager driving the given engine.
func NewManager(engine Engine) *Manager {
	return &Manager{
		queue:         make([]track.Track, 0),
		originalOrder: make([]track.Track, 0),
		index:         -1,
		engine:        engine,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetOnChange sets a callback to be called when the queue state changes
func (m *Manager) SetOnChange(callback ChangeCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = callback
}

// notifyChange calls the onChange callback if set (must be called without lock held)
func (m *Manager) notifyChange() {
	m.mu.RLock()
	callback := m.onChange
	m.mu.RUnlock()
	if callback != nil {
		callback()
	}
}

// SetQueue replaces the queue and starts playing from startIndex. Shuffle is
// reset; the new order is also the new original order.
func (m *Manager) SetQueue(tracks []track.Track, startIndex int) {
	m.mu.Lock()

	m.queue = make([]track.Track, len(tracks))
	copy(m.queue, tracks)
	m.originalOrder = make([]track.Track, len(tracks))
	copy(m.originalOrder, tracks)
	m.shuffled = false

	if len(m.queue) == 0 {
		m.index = -1
		m.mu.Unlock()
		m.engine.SetCurrentTrack(nil, false)
		m.notifyChange()
		return
	}

	if startIndex < 0 || startIndex >= len(m.queue) {
		startIndex = 0
	}
	m.index = startIndex
	current := m.queue[m.index]
	m.mu.Unlock()

	m.engine.SetCurrentTrack(&current, true)
	m.notifyChange()
}

// AddToQueue appends tracks to the end of both orders.
func (m *Manager) AddToQueue(tracks ...track.Track) {
	m.mu.Lock()
	m.queue = append(m.queue, tracks...)
	m.originalOrder = append(m.originalOrder, tracks...)
	m.mu.Unlock()
	m.notifyChange()
}

// RemoveFromQueue removes the track at index. Removing the track that is
// currently audible is refused; everything else adjusts the current index so
// the playing track keeps playing.
func (m *Manager) RemoveFromQueue(index int) {
	m.mu.Lock()

	if index < 0 || index >= len(m.queue) {
		m.mu.Unlock()
		return
	}
	if index == m.index && m.engine.IsPlaying() {
		m.mu.Unlock()
		return
	}

	removed := m.queue[index]
	m.queue = append(m.queue[:index], m.queue[index+1:]...)
	m.removeFromOriginalLocked(removed.ID)

	var unload bool
	var load *track.Track

	switch {
	case len(m.queue) == 0:
		m.index = -1
		unload = true
	case index < m.index:
		m.index--
	case index == m.index:
		// The paused current track went away. The next track slides
		// into its slot; at the end of the queue, step back.
		if m.index >= len(m.queue) {
			m.index = len(m.queue) - 1
		}
		next := m.queue[m.index]
		load = &next
	}

	m.mu.Unlock()

	if unload {
		m.engine.SetCurrentTrack(nil, false)
	} else if load != nil {
		m.engine.SetCurrentTrack(load, false)
	}
	m.notifyChange()
}

// ReorderQueue moves the track at from to position to. Moving the track that
// is currently audible is refused; other moves keep the current index
// attached to the same track.
func (m *Manager) ReorderQueue(from, to int) {
	m.mu.Lock()

	if from < 0 || from >= len(m.queue) || to < 0 || to >= len(m.queue) || from == to {
		m.mu.Unlock()
		return
	}
	if from == m.index && m.engine.IsPlaying() {
		m.mu.Unlock()
		return
	}

	var currentID string
	if m.index >= 0 {
		currentID = m.queue[m.index].ID
	}

	moved := m.queue[from]
	m.queue = append(m.queue[:from], m.queue[from+1:]...)
	m.queue = append(m.queue[:to], append([]track.Track{moved}, m.queue[to:]...)...)

	if currentID != "" {
		for i, t := range m.queue {
			if t.ID == currentID {
				m.index = i
				break
			}
		}
	}

	m.mu.Unlock()
	m.notifyChange()
}

// ClearQueue empties the queue and unloads the engine.
func (m *Manager) ClearQueue() {
	m.mu.Lock()
	m.queue = m.queue[:0]
	m.originalOrder = m.originalOrder[:0]
	m.index = -1
	m.mu.Unlock()

	m.engine.SetCurrentTrack(nil, false)
	m.notifyChange()
}

// Next advances to the following track. Repeat one restarts the same track
// instead of moving on, whether the advance was a manual skip or a natural
// end. With repeat all, the last track wraps to the first; otherwise
// advancing past the end stops playback and leaves the index on the last
// track.
func (m *Manager) Next() {
	m.advance()
}

// HandleTrackEnd advances after a track finishes naturally.
func (m *Manager) HandleTrackEnd() {
	m.advance()
}

func (m *Manager) advance() {
	m.mu.Lock()

	if len(m.queue) == 0 || m.index < 0 {
		m.mu.Unlock()
		return
	}

	if m.repeat == track.RepeatOne {
		m.mu.Unlock()
		m.engine.Restart()
		m.notifyChange()
		return
	}

	next := m.index + 1
	if next >= len(m.queue) {
		if m.repeat == track.RepeatAll {
			next = 0
		} else {
			// End of the queue. Keep the index on the last track so
			// Play resumes there.
			m.mu.Unlock()
			m.engine.Stop()
			m.notifyChange()
			return
		}
	}

	m.index = next
	current := m.queue[m.index]
	m.mu.Unlock()

	m.engine.SetCurrentTrack(&current, true)
	m.notifyChange()
}

// Previous restarts the current track when more than a few seconds in, and
// otherwise steps back. Stepping back from the first track wraps to the end
// under repeat all and restarts otherwise.
func (m *Manager) Previous() {
	m.mu.Lock()

	if len(m.queue) == 0 || m.index < 0 {
		m.mu.Unlock()
		return
	}

	if m.engine.Position() > previousRestartThreshold {
		m.mu.Unlock()
		m.engine.Restart()
		m.notifyChange()
		return
	}

	prev := m.index - 1
	if prev < 0 {
		if m.repeat != track.RepeatAll {
			m.mu.Unlock()
			m.engine.Restart()
			m.notifyChange()
			return
		}
		prev = len(m.queue) - 1
	}

	m.index = prev
	current := m.queue[m.index]
	m.mu.Unlock()

	m.engine.SetCurrentTrack(&current, true)
	m.notifyChange()
}

// GoToIndex jumps to the track at index and plays it.
func (m *Manager) GoToIndex(index int) {
	m.mu.Lock()

	if index < 0 || index >= len(m.queue) {
		m.mu.Unlock()
		return
	}

	m.index = index
	current := m.queue[m.index]
	m.mu.Unlock()

	m.engine.SetCurrentTrack(&current, true)
	m.notifyChange()
}

// ToggleShuffle flips shuffle. Enabling pins the current track at the front
// and shuffles the rest. Disabling restores the original order and finds the
// current track in it, falling back to the front if it was removed while
// shuffled.
func (m *Manager) ToggleShuffle() {
	m.mu.Lock()

	if len(m.queue) == 0 {
		m.mu.Unlock()
		return
	}

	if !m.shuffled {
		m.shuffled = true

		var rest []track.Track
		if m.index >= 0 {
			current := m.queue[m.index]
			rest = make([]track.Track, 0, len(m.queue)-1)
			for i, t := range m.queue {
				if i != m.index {
					rest = append(rest, t)
				}
			}
			m.rng.Shuffle(len(rest), func(i, j int) {
				rest[i], rest[j] = rest[j], rest[i]
			})
			m.queue = append([]track.Track{current}, rest...)
			m.index = 0
		} else {
			m.rng.Shuffle(len(m.queue), func(i, j int) {
				m.queue[i], m.queue[j] = m.queue[j], m.queue[i]
			})
		}
	} else {
		m.shuffled = false

		var currentID string
		if m.index >= 0 {
			currentID = m.queue[m.index].ID
		}

		m.queue = make([]track.Track, len(m.originalOrder))
		copy(m.queue, m.originalOrder)

		m.index = 0
		for i, t := range m.queue {
			if t.ID == currentID {
				m.index = i
				break
			}
		}
	}

	m.mu.Unlock()
	m.notifyChange()
}

// CycleRepeat steps the repeat mode through off, all, one.
func (m *Manager) CycleRepeat() {
	m.mu.Lock()
	m.repeat = m.repeat.Cycle()
	m.mu.Unlock()
	m.notifyChange()
}

// SetRepeat sets the repeat mode directly.
func (m *Manager) SetRepeat(mode track.RepeatMode) {
	m.mu.Lock()
	m.repeat = mode
	m.mu.Unlock()
	m.notifyChange()
}

// ResetPlaylist restores the original order from the front without starting
// playback.
func (m *Manager) ResetPlaylist() {
	m.mu.Lock()

	if len(m.originalOrder) == 0 {
		m.mu.Unlock()
		return
	}

	m.queue = make([]track.Track, len(m.originalOrder))
	copy(m.queue, m.originalOrder)
	m.shuffled = false
	m.index = 0
	current := m.queue[0]
	m.mu.Unlock()

	m.engine.SetCurrentTrack(&current, false)
	m.notifyChange()
}

// Current returns the current track, or nil when the queue is empty.
func (m *Manager) Current() *track.Track {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.index < 0 || m.index >= len(m.queue) {
		return nil
	}
	t := m.queue[m.index]
	return &t
}

// CurrentIndex returns the position of the current track, -1 when empty.
func (m *Manager) CurrentIndex() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index
}

// Snapshot returns a copy of the queue state.
func (m *Manager) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := State{
		Queue:         make([]track.Track, len(m.queue)),
		OriginalOrder: make([]track.Track, len(m.originalOrder)),
		CurrentIndex:  m.index,
		IsShuffled:    m.shuffled,
		RepeatMode:    m.repeat,
	}
	copy(s.Queue, m.queue)
	copy(s.OriginalOrder, m.originalOrder)
	return s
}

// Restore replaces the queue state without starting playback. Used when
// loading persisted state at startup.
func (m *Manager) Restore(s State) {
	m.mu.Lock()

	m.queue = make([]track.Track, len(s.Queue))
	copy(m.queue, s.Queue)
	m.originalOrder = make([]track.Track, len(s.OriginalOrder))
	copy(m.originalOrder, s.OriginalOrder)
	m.shuffled = s.IsShuffled
	m.repeat = s.RepeatMode

	m.index = -1
	if s.CurrentIndex >= 0 && s.CurrentIndex < len(m.queue) {
		m.index = s.CurrentIndex
	} else if len(m.queue) > 0 {
		m.index = 0
	}

	var load *track.Track
	if m.index >= 0 {
		current := m.queue[m.index]
		load = &current
	}
	m.mu.Unlock()

	if load != nil {
		m.engine.SetCurrentTrack(load, false)
	}
	m.notifyChange()
}

// removeFromOriginalLocked drops the first track with the given id from the
// original order. Matching by id rather than position keeps both orders
// holding the same set while shuffled. Caller holds m.mu.
func (m *Manager) removeFromOriginalLocked(id string) {
	for i, t := range m.originalOrder {
		if t.ID == id {
			m.originalOrder = append(m.originalOrder[:i], m.originalOrder[i+1:]...)
			return
		}
	}
}
