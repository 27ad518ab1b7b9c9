package control

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/driftnote/driftnote/internal/player"
	"github.com/driftnote/driftnote/internal/queue"
	"github.com/driftnote/driftnote/internal/track"
)

type stubElement struct {
	handler player.EventHandler
}

func (s *stubElement) Load(t track.Track, sourceURL string) {}
func (s *stubElement) Play() error                          { return nil }
func (s *stubElement) Pause()                               {}
func (s *stubElement) Seek(position float64)                {}
func (s *stubElement) SetVolume(volume float64)             {}
func (s *stubElement) SetMuted(muted bool)                  {}
func (s *stubElement) SetEventHandler(h player.EventHandler) {
	s.handler = h
}
func (s *stubElement) Close() error { return nil }

func testTracks() []track.Track {
	return []track.Track{
		{ID: "a", Name: "a.mp3", DriveFileID: "fa"},
		{ID: "b", Name: "b.mp3", DriveFileID: "fb"},
		{ID: "c", Name: "c.mp3", DriveFileID: "fc"},
	}
}

func startServer(t *testing.T) (*Client, *queue.Manager) {
	t.Helper()

	logger := log.New(os.Stderr)
	engine := player.NewEngine(&stubElement{}, func(tr track.Track) string { return tr.DriveFileID }, logger)
	q := queue.NewManager(engine)
	q.SetQueue(testTracks(), 0)

	socketPath := filepath.Join(t.TempDir(), "control.sock")
	server := NewServer(socketPath, q, engine, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		server.Start(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	var client *Client
	var err error
	for i := 0; i < 50; i++ {
		client, err = Dial(socketPath)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("Failed to connect to control socket: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return client, q
}

func TestStatusReportsQueue(t *testing.T) {
	client, _ := startServer(t)

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.QueueLength != 3 {
		t.Errorf("Expected queue length 3, got %d", status.QueueLength)
	}
	if status.CurrentIndex != 0 {
		t.Errorf("Expected current index 0, got %d", status.CurrentIndex)
	}
	if status.RepeatMode != "none" {
		t.Errorf("Expected repeat mode none, got %s", status.RepeatMode)
	}
}

func TestNextAdvancesQueue(t *testing.T) {
	client, q := startServer(t)

	if _, err := client.Send(CmdNext, nil); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if q.CurrentIndex() != 1 {
		t.Errorf("Expected index 1 after next, got %d", q.CurrentIndex())
	}
}

func TestQueueJump(t *testing.T) {
	client, q := startServer(t)

	if _, err := client.Send(CmdQueueJump, IndexData{Index: 2}); err != nil {
		t.Fatalf("Jump failed: %v", err)
	}
	if q.CurrentIndex() != 2 {
		t.Errorf("Expected index 2 after jump, got %d", q.CurrentIndex())
	}
}

func TestQueueFetch(t *testing.T) {
	client, _ := startServer(t)

	data, err := client.Queue()
	if err != nil {
		t.Fatalf("Queue failed: %v", err)
	}
	if len(data.State.Queue) != 3 {
		t.Fatalf("Expected 3 tracks, got %d", len(data.State.Queue))
	}
	if data.State.Queue[1].ID != "b" {
		t.Errorf("Expected second track b, got %s", data.State.Queue[1].ID)
	}
}

func TestShuffleToggle(t *testing.T) {
	client, q := startServer(t)

	if _, err := client.Send(CmdShuffle, nil); err != nil {
		t.Fatalf("Shuffle failed: %v", err)
	}
	if !q.Snapshot().IsShuffled {
		t.Error("Expected queue to be shuffled")
	}
}

func TestVolumeSetsEngine(t *testing.T) {
	client, _ := startServer(t)

	if _, err := client.Send(CmdVolume, VolumeData{Volume: 0.5}); err != nil {
		t.Fatalf("Volume failed: %v", err)
	}
	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.Player.Volume != 0.5 {
		t.Errorf("Expected volume 0.5, got %f", status.Player.Volume)
	}
}

func TestUnknownCommandFails(t *testing.T) {
	client, _ := startServer(t)

	resp, err := client.Send(CommandType("bogus"), nil)
	if err == nil {
		t.Fatal("Expected error for unknown command")
	}
	if resp == nil || resp.Success {
		t.Error("Expected failure response")
	}
}

func TestMalformedRequestKeepsConnectionAlive(t *testing.T) {
	client, _ := startServer(t)

	if _, err := client.conn.Write([]byte("not json\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	line, err := client.reader.ReadBytes('\n')
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(line) == 0 {
		t.Fatal("Expected error response")
	}

	// Connection still usable afterwards.
	if _, err := client.Status(); err != nil {
		t.Errorf("Status after malformed request failed: %v", err)
	}
}
