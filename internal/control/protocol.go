// Package control handles inter-process communication between the player
// daemon and local clients over a unix socket.
package control

import (
	"encoding/json"
	"fmt"

	"github.com/driftnote/driftnote/internal/player"
	"github.com/driftnote/driftnote/internal/queue"
)

// CommandType represents the type of command
type CommandType string

const (
	CmdPlay    CommandType = "play"
	CmdPause   CommandType = "pause"
	CmdToggle  CommandType = "toggle"
	CmdStop    CommandType = "stop"
	CmdNext    CommandType = "next"
	CmdPrev    CommandType = "prev"
	CmdSeek    CommandType = "seek"
	CmdVolume  CommandType = "volume"
	CmdMute    CommandType = "mute"
	CmdShuffle CommandType = "shuffle"
	CmdRepeat  CommandType = "repeat"
	CmdStatus  CommandType = "status"

	// Queue management commands
	CmdGetQueue    CommandType = "getQueue"
	CmdQueueJump   CommandType = "queueJump"
	CmdQueueRemove CommandType = "queueRemove"
	CmdQueueMove   CommandType = "queueMove"
	CmdQueueClear  CommandType = "queueClear"
	CmdQueueReset  CommandType = "queueReset"
)

// Request represents a client request
type Request struct {
	Cmd  CommandType     `json:"cmd"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Response represents a server response
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// SeekData is the payload for seek commands
type SeekData struct {
	Position float64 `json:"position"`
}

// VolumeData is the payload for volume commands
type VolumeData struct {
	Volume float64 `json:"volume"`
}

// IndexData is the payload for queue jump and remove commands
type IndexData struct {
	Index int `json:"index"`
}

// MoveData is the payload for queue move commands
type MoveData struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// StatusData is the payload returned by status requests
type StatusData struct {
	Player       player.State `json:"player"`
	CurrentIndex int          `json:"currentIndex"`
	QueueLength  int          `json:"queueLength"`
	IsShuffled   bool         `json:"isShuffled"`
	RepeatMode   string       `json:"repeatMode"`
}

// QueueData is the payload returned by getQueue requests
type QueueData struct {
	State queue.State `json:"state"`
}

// NewRequest builds a request with an encoded payload.
func NewRequest(cmd CommandType, data any) (*Request, error) {
	req := &Request{Cmd: cmd}
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request data: %w", err)
		}
		req.Data = encoded
	}
	return req, nil
}

// OK builds a success response with an encoded payload.
func OK(data any) *Response {
	resp := &Response{Success: true}
	if data != nil {
		if encoded, err := json.Marshal(data); err == nil {
			resp.Data = encoded
		}
	}
	return resp
}

// Fail builds an error response.
func Fail(format string, args ...any) *Response {
	return &Response{Success: false, Error: fmt.Sprintf(format, args...)}
}
