package control

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/driftnote/driftnote/internal/player"
	"github.com/driftnote/driftnote/internal/queue"
)

// SocketPath returns the control socket location inside the state directory.
func SocketPath(stateDir string) string {
	return filepath.Join(stateDir, "control.sock")
}

// Server exposes the running player over a unix socket. Requests are
// newline-delimited JSON, one Response per Request.
type Server struct {
	socketPath string
	queue      *queue.Manager
	engine     *player.Engine
	logger     *log.Logger

	mu       sync.Mutex
	listener net.Listener
	clients  map[net.Conn]struct{}
}

// NewServer creates a control server driving the given queue and engine.
func NewServer(socketPath string, q *queue.Manager, engine *player.Engine, logger *log.Logger) *Server {
	return &Server{
		socketPath: socketPath,
		queue:      q,
		engine:     engine,
		logger:     logger,
		clients:    make(map[net.Conn]struct{}),
	}
}

// Start listens on the socket until the context is cancelled. The socket file
// is created user-only and removed on shutdown.
func (s *Server) Start(ctx context.Context) error {
	if err := os.RemoveAll(s.socketPath); err != nil {
		return fmt.Errorf("failed to remove stale socket: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.socketPath, err)
	}
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.logger.Info("control socket listening", "path", s.socketPath)

	go s.acceptLoop(ctx)

	<-ctx.Done()

	s.mu.Lock()
	for conn := range s.clients {
		conn.Close()
	}
	s.mu.Unlock()

	listener.Close()
	os.RemoveAll(s.socketPath)
	return nil
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				s.logger.Warn("accept failed", "error", err)
				continue
			}
		}

		s.mu.Lock()
		s.clients[conn] = struct{}{}
		s.mu.Unlock()

		go s.handleConnection(ctx, conn)
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
	}()

	reader := bufio.NewReader(conn)
	encoder := json.NewEncoder(conn)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err != io.EOF {
				s.logger.Debug("control read failed", "error", err)
			}
			return
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			if err := encoder.Encode(Fail("invalid request: %v", err)); err != nil {
				return
			}
			continue
		}

		if err := encoder.Encode(s.handleRequest(&req)); err != nil {
			return
		}
	}
}

func (s *Server) handleRequest(req *Request) *Response {
	switch req.Cmd {
	case CmdPlay:
		s.engine.Play()
	case CmdPause:
		s.engine.Pause()
	case CmdToggle:
		s.engine.Toggle()
	case CmdStop:
		s.engine.Stop()
	case CmdNext:
		s.queue.Next()
	case CmdPrev:
		s.queue.Previous()
	case CmdSeek:
		var data SeekData
		if err := json.Unmarshal(req.Data, &data); err != nil {
			return Fail("invalid seek data: %v", err)
		}
		s.engine.Seek(data.Position)
	case CmdVolume:
		var data VolumeData
		if err := json.Unmarshal(req.Data, &data); err != nil {
			return Fail("invalid volume data: %v", err)
		}
		s.engine.SetVolume(data.Volume)
	case CmdMute:
		s.engine.ToggleMute()
	case CmdShuffle:
		s.queue.ToggleShuffle()
	case CmdRepeat:
		s.queue.CycleRepeat()
	case CmdStatus:
		return OK(s.status())
	case CmdGetQueue:
		return OK(QueueData{State: s.queue.Snapshot()})
	case CmdQueueJump:
		var data IndexData
		if err := json.Unmarshal(req.Data, &data); err != nil {
			return Fail("invalid jump data: %v", err)
		}
		s.queue.GoToIndex(data.Index)
	case CmdQueueRemove:
		var data IndexData
		if err := json.Unmarshal(req.Data, &data); err != nil {
			return Fail("invalid remove data: %v", err)
		}
		s.queue.RemoveFromQueue(data.Index)
	case CmdQueueMove:
		var data MoveData
		if err := json.Unmarshal(req.Data, &data); err != nil {
			return Fail("invalid move data: %v", err)
		}
		s.queue.ReorderQueue(data.From, data.To)
	case CmdQueueClear:
		s.queue.ClearQueue()
	case CmdQueueReset:
		s.queue.ResetPlaylist()
	default:
		return Fail("unknown command: %s", req.Cmd)
	}
	return OK(nil)
}

func (s *Server) status() StatusData {
	snap := s.queue.Snapshot()
	return StatusData{
		Player:       s.engine.Status(),
		CurrentIndex: snap.CurrentIndex,
		QueueLength:  len(snap.Queue),
		IsShuffled:   snap.IsShuffled,
		RepeatMode:   snap.RepeatMode.String(),
	}
}
