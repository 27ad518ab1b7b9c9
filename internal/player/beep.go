package player

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/driftnote/driftnote/internal/track"
)

const timeUpdateInterval = 500 * time.Millisecond

// BeepElement is an Element backed by the beep speaker. Each source is
// fetched fully into memory before decoding, so seeks never touch the
// network.
type BeepElement struct {
	mu sync.Mutex

	httpClient *http.Client
	logger     *log.Logger
	handler    EventHandler

	sampleRate  beep.SampleRate
	initialized bool

	// generation invalidates in-flight loads and stale done callbacks
	// when a newer source replaces them.
	generation uint64

	trackID  string
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume

	level float64
	muted bool

	tickerStop chan struct{}
	closed     bool
}

// NewBeepElement creates an element that downloads sources over HTTP.
func NewBeepElement(httpClient *http.Client, logger *log.Logger) *BeepElement {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &BeepElement{
		httpClient: httpClient,
		logger:     logger,
		sampleRate: beep.SampleRate(44100),
		level:      1.0,
	}
}

// SetEventHandler implements Element.
func (b *BeepElement) SetEventHandler(handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = handler
}

func (b *BeepElement) emit(ev Event) {
	b.mu.Lock()
	handler := b.handler
	closed := b.closed
	b.mu.Unlock()

	if handler != nil && !closed {
		handler(ev)
	}
}

// Load implements Element. The fetch and decode happen off the caller's
// goroutine; a loadedmetadata or error event reports the outcome.
func (b *BeepElement) Load(t track.Track, sourceURL string) {
	b.mu.Lock()
	b.generation++
	gen := b.generation
	b.unloadLocked()
	b.trackID = t.ID
	b.mu.Unlock()

	go b.fetchAndDecode(t.ID, sourceURL, gen)
}

func (b *BeepElement) fetchAndDecode(trackID, sourceURL string, gen uint64) {
	data, err := b.fetch(sourceURL)
	if err != nil {
		b.emit(Event{Kind: EventError, TrackID: trackID, Err: err})
		return
	}

	streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		b.emit(Event{Kind: EventError, TrackID: trackID, Err: fmt.Errorf("failed to decode audio: %w", err)})
		return
	}

	b.mu.Lock()
	if gen != b.generation || b.closed {
		b.mu.Unlock()
		streamer.Close()
		return
	}

	if !b.initialized {
		if err := speaker.Init(b.sampleRate, b.sampleRate.N(time.Second/10)); err != nil {
			b.mu.Unlock()
			streamer.Close()
			b.emit(Event{Kind: EventError, TrackID: trackID, Err: fmt.Errorf("failed to init speaker: %w", err)})
			return
		}
		b.initialized = true
	}

	resampled := beep.Resample(4, format.SampleRate, b.sampleRate, streamer)
	ctrl := &beep.Ctrl{Streamer: resampled, Paused: true}
	volume := &effects.Volume{Streamer: ctrl, Base: 2, Volume: volumeExponent(b.level), Silent: b.muted || b.level == 0}

	b.streamer = streamer
	b.format = format
	b.ctrl = ctrl
	b.volume = volume

	duration := format.SampleRate.D(streamer.Len()).Seconds()
	b.mu.Unlock()

	speaker.Play(beep.Seq(volume, beep.Callback(func() {
		// The callback runs under the speaker's own lock. Taking b.mu
		// or advancing the queue here would deadlock, so everything
		// moves to a fresh goroutine.
		go func() {
			b.mu.Lock()
			stale := gen != b.generation || b.closed
			b.mu.Unlock()
			if stale {
				return
			}
			b.emit(Event{Kind: EventEnded, TrackID: trackID})
		}()
	})))

	b.emit(Event{Kind: EventLoadedMetadata, TrackID: trackID, Duration: duration})
}

func (b *BeepElement) fetch(sourceURL string) ([]byte, error) {
	resp, err := b.httpClient.Get(sourceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, fmt.Errorf("source returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}
	return data, nil
}

// Play implements Element.
func (b *BeepElement) Play() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctrl == nil {
		return fmt.Errorf("no source loaded")
	}

	speaker.Lock()
	b.ctrl.Paused = false
	speaker.Unlock()

	b.startTickerLocked()
	go b.emit(Event{Kind: EventPlay, TrackID: b.trackID})
	return nil
}

// Pause implements Element.
func (b *BeepElement) Pause() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctrl == nil {
		return
	}

	speaker.Lock()
	b.ctrl.Paused = true
	speaker.Unlock()

	b.stopTickerLocked()
	go b.emit(Event{Kind: EventPause, TrackID: b.trackID})
}

// Seek implements Element.
func (b *BeepElement) Seek(position float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.streamer == nil {
		return
	}

	speaker.Lock()
	defer speaker.Unlock()

	samples := b.format.SampleRate.N(time.Duration(position * float64(time.Second)))
	if samples < 0 {
		samples = 0
	}
	if samples > b.streamer.Len() {
		samples = b.streamer.Len()
	}
	if err := b.streamer.Seek(samples); err != nil {
		b.logger.Warn("seek failed", "position", position, "error", err)
	}
}

// SetVolume implements Element.
func (b *BeepElement) SetVolume(volume float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.level = volume
	if b.volume == nil {
		return
	}

	speaker.Lock()
	b.volume.Volume = volumeExponent(volume)
	b.volume.Silent = b.muted || volume == 0
	speaker.Unlock()
}

// SetMuted implements Element.
func (b *BeepElement) SetMuted(muted bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.muted = muted
	if b.volume == nil {
		return
	}

	speaker.Lock()
	b.volume.Silent = muted || b.level == 0
	speaker.Unlock()
}

// Close implements Element.
func (b *BeepElement) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.generation++
	b.unloadLocked()
	return nil
}

// unloadLocked tears down the current source. Caller holds b.mu.
func (b *BeepElement) unloadLocked() {
	b.stopTickerLocked()

	if b.ctrl != nil {
		speaker.Lock()
		b.ctrl.Paused = true
		speaker.Unlock()
	}
	if b.streamer != nil {
		b.streamer.Close()
	}
	b.streamer = nil
	b.ctrl = nil
	b.volume = nil
	b.trackID = ""
}

// startTickerLocked begins periodic timeupdate events. Caller holds b.mu.
func (b *BeepElement) startTickerLocked() {
	if b.tickerStop != nil {
		return
	}
	stop := make(chan struct{})
	b.tickerStop = stop

	gen := b.generation
	trackID := b.trackID

	go func() {
		ticker := time.NewTicker(timeUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				b.mu.Lock()
				if gen != b.generation || b.streamer == nil {
					b.mu.Unlock()
					return
				}
				speaker.Lock()
				pos := b.streamer.Position()
				length := b.streamer.Len()
				speaker.Unlock()
				position := b.format.SampleRate.D(pos).Seconds()
				duration := b.format.SampleRate.D(length).Seconds()
				b.mu.Unlock()

				b.emit(Event{Kind: EventTimeUpdate, TrackID: trackID, Position: position, Duration: duration})
			}
		}
	}()
}

// stopTickerLocked halts timeupdate events. Caller holds b.mu.
func (b *BeepElement) stopTickerLocked() {
	if b.tickerStop != nil {
		close(b.tickerStop)
		b.tickerStop = nil
	}
}

// volumeExponent maps a linear [0, 1] level onto the volume effect's
// exponential scale. Zero is handled by the Silent flag.
func volumeExponent(level float64) float64 {
	if level <= 0 {
		return 0
	}
	return math.Log2(level)
}
