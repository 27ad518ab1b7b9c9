package player

import (
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/driftnote/driftnote/internal/shared"
	"github.com/driftnote/driftnote/internal/track"
)

// fakeElement records commands and lets tests inject events.
type fakeElement struct {
	mu      sync.Mutex
	handler EventHandler

	loads      []string
	playCalls  int
	pauseCalls int
	seeks      []float64
	volumes    []float64
	muteds     []bool
	playErr    error
}

func (f *fakeElement) Load(t track.Track, sourceURL string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads = append(f.loads, t.ID)
}

func (f *fakeElement) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playCalls++
	return f.playErr
}

func (f *fakeElement) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauseCalls++
}

func (f *fakeElement) Seek(position float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeks = append(f.seeks, position)
}

func (f *fakeElement) SetVolume(volume float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volumes = append(f.volumes, volume)
}

func (f *fakeElement) SetMuted(muted bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muteds = append(f.muteds, muted)
}

func (f *fakeElement) SetEventHandler(handler EventHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
}

func (f *fakeElement) Close() error { return nil }

func (f *fakeElement) fire(ev Event) {
	f.mu.Lock()
	handler := f.handler
	f.mu.Unlock()
	handler(ev)
}

func (f *fakeElement) plays() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playCalls
}

func testEngine(t *testing.T) (*Engine, *fakeElement) {
	t.Helper()
	el := &fakeElement{}
	eng := NewEngine(el, func(tr track.Track) string { return "http://localhost/stream/" + tr.DriveFileID }, shared.NewLogger(io.Discard))
	return eng, el
}

func sampleTrack(id string) *track.Track {
	return &track.Track{ID: id, DriveFileID: "d-" + id, Name: id + ".mp3"}
}

func TestAutoplayStartsOnceAfterLoad(t *testing.T) {
	eng, el := testEngine(t)

	eng.SetCurrentTrack(sampleTrack("t1"), true)
	if el.plays() != 0 {
		t.Fatalf("playback started before metadata")
	}

	el.fire(Event{Kind: EventLoadedMetadata, TrackID: "t1", Duration: 180})
	if el.plays() != 1 {
		t.Fatalf("expected one play call, got %d", el.plays())
	}

	// A repeated metadata event must not start the same track again.
	el.fire(Event{Kind: EventLoadedMetadata, TrackID: "t1", Duration: 180})
	if el.plays() != 1 {
		t.Errorf("duplicate metadata event restarted playback, %d play calls", el.plays())
	}

	if got := eng.Status().Duration; got != 180 {
		t.Errorf("expected duration 180, got %v", got)
	}
}

func TestReloadingSameTrackAutoplaysAgain(t *testing.T) {
	eng, el := testEngine(t)

	eng.SetCurrentTrack(sampleTrack("t1"), true)
	el.fire(Event{Kind: EventLoadedMetadata, TrackID: "t1", Duration: 60})
	if el.plays() != 1 {
		t.Fatalf("expected one play call, got %d", el.plays())
	}

	// A one-track queue under repeat all wraps back onto the same track.
	// The fresh load must autoplay just like the first one did.
	eng.SetCurrentTrack(sampleTrack("t1"), true)
	el.fire(Event{Kind: EventLoadedMetadata, TrackID: "t1", Duration: 60})
	if el.plays() != 2 {
		t.Errorf("reload of the same track did not autoplay, %d play calls", el.plays())
	}
}

func TestPlayEventDoesNotEcho(t *testing.T) {
	eng, el := testEngine(t)
	eng.SetCurrentTrack(sampleTrack("t1"), false)

	// The element reporting that it started must update state without
	// the engine issuing another play command.
	el.fire(Event{Kind: EventPlay, TrackID: "t1"})
	if !eng.IsPlaying() {
		t.Errorf("expected playing state after play event")
	}
	if el.plays() != 0 {
		t.Errorf("play event echoed back as a command, %d play calls", el.plays())
	}

	el.fire(Event{Kind: EventPause, TrackID: "t1"})
	if eng.IsPlaying() {
		t.Errorf("expected paused state after pause event")
	}
	if el.pauseCalls != 0 {
		t.Errorf("pause event echoed back as a command")
	}
}

func TestPlayRefusalClearsPlaying(t *testing.T) {
	eng, el := testEngine(t)
	el.playErr = errors.New("autoplay blocked")

	eng.SetCurrentTrack(sampleTrack("t1"), false)
	eng.Play()

	if eng.IsPlaying() {
		t.Errorf("expected playing cleared after refusal")
	}
}

func TestStaleEventsDropped(t *testing.T) {
	eng, el := testEngine(t)
	eng.SetCurrentTrack(sampleTrack("t1"), false)
	eng.SetCurrentTrack(sampleTrack("t2"), false)

	el.fire(Event{Kind: EventTimeUpdate, TrackID: "t1", Position: 42})
	if got := eng.Position(); got != 0 {
		t.Errorf("stale timeupdate applied, position %v", got)
	}

	var ended []string
	eng.SetOnTrackEnd(func(tr track.Track) { ended = append(ended, tr.ID) })

	el.fire(Event{Kind: EventEnded, TrackID: "t1"})
	if len(ended) != 0 {
		t.Errorf("stale ended event advanced the queue: %v", ended)
	}

	el.fire(Event{Kind: EventEnded, TrackID: "t2"})
	if len(ended) != 1 || ended[0] != "t2" {
		t.Errorf("expected end callback for t2, got %v", ended)
	}
}

func TestSeekClampsToDuration(t *testing.T) {
	eng, el := testEngine(t)
	eng.SetCurrentTrack(sampleTrack("t1"), false)
	el.fire(Event{Kind: EventLoadedMetadata, TrackID: "t1", Duration: 100})

	eng.Seek(500)
	if got := eng.Position(); got != 100 {
		t.Errorf("expected clamp to 100, got %v", got)
	}
	eng.Seek(-5)
	if got := eng.Position(); got != 0 {
		t.Errorf("expected clamp to 0, got %v", got)
	}
}

func TestVolumeClamps(t *testing.T) {
	eng, el := testEngine(t)

	eng.SetVolume(1.5)
	if got := eng.Status().Volume; got != 1 {
		t.Errorf("expected volume 1, got %v", got)
	}
	eng.SetVolume(-0.2)
	if got := eng.Status().Volume; got != 0 {
		t.Errorf("expected volume 0, got %v", got)
	}
	if len(el.volumes) != 2 || el.volumes[0] != 1 || el.volumes[1] != 0 {
		t.Errorf("clamped values not forwarded: %v", el.volumes)
	}
}

func TestVolumeZeroMutes(t *testing.T) {
	eng, el := testEngine(t)

	eng.SetVolume(0)
	if !eng.Status().Muted {
		t.Errorf("expected muted at volume 0")
	}
	if len(el.muteds) != 1 || !el.muteds[0] {
		t.Errorf("mute not forwarded to element: %v", el.muteds)
	}

	eng.SetVolume(0.5)
	if eng.Status().Muted {
		t.Errorf("expected unmuted after raising volume")
	}
}

func TestRestartSeeksToZeroAndPlays(t *testing.T) {
	eng, el := testEngine(t)
	eng.SetCurrentTrack(sampleTrack("t1"), false)
	el.fire(Event{Kind: EventLoadedMetadata, TrackID: "t1", Duration: 60})
	el.fire(Event{Kind: EventTimeUpdate, TrackID: "t1", Position: 30})

	eng.Restart()

	if got := eng.Position(); got != 0 {
		t.Errorf("expected position 0 after restart, got %v", got)
	}
	if len(el.seeks) == 0 || el.seeks[len(el.seeks)-1] != 0 {
		t.Errorf("expected seek to 0, got %v", el.seeks)
	}
	if el.plays() != 1 {
		t.Errorf("restart must resume playback, %d play calls", el.plays())
	}
}

func TestTrackEndUpdatesState(t *testing.T) {
	eng, el := testEngine(t)
	eng.SetCurrentTrack(sampleTrack("t1"), false)
	el.fire(Event{Kind: EventLoadedMetadata, TrackID: "t1", Duration: 60})
	el.fire(Event{Kind: EventPlay, TrackID: "t1"})

	el.fire(Event{Kind: EventEnded, TrackID: "t1"})

	s := eng.Status()
	if s.IsPlaying {
		t.Errorf("expected stopped after ended")
	}
	if s.Position != 60 {
		t.Errorf("expected position at duration, got %v", s.Position)
	}
}

func TestSetCurrentTrackNilUnloads(t *testing.T) {
	eng, el := testEngine(t)
	eng.SetCurrentTrack(sampleTrack("t1"), false)
	el.fire(Event{Kind: EventPlay, TrackID: "t1"})

	eng.SetCurrentTrack(nil, false)

	s := eng.Status()
	if s.Track != nil || s.IsPlaying || s.Position != 0 {
		t.Errorf("expected cleared state, got %+v", s)
	}
	if el.pauseCalls == 0 {
		t.Errorf("expected element paused on unload")
	}
}
