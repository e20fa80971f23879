package websocket

import (
	"context"
	"sync"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
)

// Client represents a single WebSocket connection and the set of lists it is
// subscribed to. The set is fixed at connect time; teardown releases it.
type Client struct {
	hub  *Hub
	conn *ws.Conn
	send chan []byte

	mu    sync.RWMutex
	lists map[int64]struct{}
}

// NewClient creates a Client tied to the given hub and connection, subscribed
// to the given lists.
func NewClient(hub *Hub, conn *ws.Conn, listIDs []int64) *Client {
	lists := make(map[int64]struct{}, len(listIDs))
	for _, id := range listIDs {
		lists[id] = struct{}{}
	}
	return &Client{
		hub:   hub,
		conn:  conn,
		send:  make(chan []byte, sendBufferSize),
		lists: lists,
	}
}

func (c *Client) subscribed(listID int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.lists[listID]
	return ok
}

// Run registers the client, starts the write pump, and runs the read pump.
// It blocks until the connection is closed, then unregisters.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writePump(ctx)
	c.readPump(ctx)
}

// readPump reads and discards all incoming messages. It returns on error
// (connection close), which triggers cleanup.
func (c *Client) readPump(ctx context.Context) {
	for {
		_, _, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
	}
}

// writePump drains the send channel and writes messages to the WebSocket.
// It also sends periodic pings to detect stale connections.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				// Hub closed the channel, connection is done
				return
			}
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
