package control

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// Client talks to a running player daemon over its control socket.
type Client struct {
	conn    net.Conn
	reader  *bufio.Reader
	encoder *json.Encoder
}

// Dial connects to the control socket.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to player daemon: %w", err)
	}
	return &Client{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		encoder: json.NewEncoder(conn),
	}, nil
}

// Send issues a command and waits for the response.
func (c *Client) Send(cmd CommandType, data any) (*Response, error) {
	req, err := NewRequest(cmd, data)
	if err != nil {
		return nil, err
	}
	if err := c.encoder.Encode(req); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !resp.Success {
		return &resp, fmt.Errorf("%s", resp.Error)
	}
	return &resp, nil
}

// Status fetches the daemon's current playback status.
func (c *Client) Status() (*StatusData, error) {
	resp, err := c.Send(CmdStatus, nil)
	if err != nil {
		return nil, err
	}
	var status StatusData
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return nil, fmt.Errorf("failed to decode status: %w", err)
	}
	return &status, nil
}

// Queue fetches the daemon's current queue.
func (c *Client) Queue() (*QueueData, error) {
	resp, err := c.Send(CmdGetQueue, nil)
	if err != nil {
		return nil, err
	}
	var q QueueData
	if err := json.Unmarshal(resp.Data, &q); err != nil {
		return nil, fmt.Errorf("failed to decode queue: %w", err)
	}
	return &q, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
