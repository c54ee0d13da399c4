// ABOUTME: Client dials a controlsrv Server and exposes a stream of Snapshots plus a Post call
// ABOUTME: Runs a background read loop that routes snapshot and error frames onto two channels
package controlsrv

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/flowcast/audioworker/internal/worker"
)

// Client is a thin websocket client over the controlsrv wire protocol, used
// by cmd/outputmonitor to watch one outputworkerd instance without linking
// against its worker.Worker directly.
type Client struct {
	conn *websocket.Conn

	mu  sync.Mutex
	err error

	Snapshots chan worker.Snapshot
	Errors    chan string

	ctx    context.Context
	cancel context.CancelFunc
}

// Dial connects to a controlsrv Server at addr (host:port, no scheme) and
// starts the background read loop. Call Close when done.
func Dial(addr string) (*Client, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/control"}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("controlsrv: dial %s: %w", addr, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		conn:      conn,
		Snapshots: make(chan worker.Snapshot, 8),
		Errors:    make(chan string, 8),
		ctx:       ctx,
		cancel:    cancel,
	}
	go c.readLoop()
	return c, nil
}

// Post sends a command frame and returns immediately; the resulting
// Snapshot arrives on the Snapshots channel once the server acknowledges
// it, same as the wire protocol's push-after-every-command contract.
func (c *Client) Post(cmd worker.Command) error {
	return c.conn.WriteJSON(Message{Command: cmd.String()})
}

func (c *Client) readLoop() {
	defer close(c.Snapshots)
	defer close(c.Errors)

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			c.mu.Lock()
			c.err = err
			c.mu.Unlock()
			return
		}

		switch {
		case msg.Snapshot != nil:
			select {
			case c.Snapshots <- *msg.Snapshot:
			case <-c.ctx.Done():
				return
			}
		case msg.Error != "":
			select {
			case c.Errors <- msg.Error:
			case <-c.ctx.Done():
				return
			}
		}
	}
}

// Err returns the error that ended the read loop, if any.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close tears down the connection and stops the read loop.
func (c *Client) Close() error {
	c.cancel()
	return c.conn.Close()
}
