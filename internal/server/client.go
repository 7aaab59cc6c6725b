// Package server manages individual WebSocket clients, handling read/write
// pumps and lifecycle control for each connection.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Tyrowin/livechat/internal/coordinator"
)

// Client is one WebSocket connection. It is the coordinator's recipient for
// that connection: outbound events are encoded and queued on send, and the
// write pump drains the queue in order.
type Client struct {
	id     string
	conn   *websocket.Conn
	coord  *coordinator.Coordinator
	log    *slog.Logger
	addr   string
	cfg    Config
	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// NewClient creates a Client with a fresh connection identifier. The send
// channel is buffered so that a slow peer never stalls the coordinator.
func NewClient(conn *websocket.Conn, coord *coordinator.Coordinator, log *slog.Logger, cfg Config, addr string) *Client {
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	id := uuid.NewString()

	return &Client{
		id:    id,
		conn:  conn,
		coord: coord,
		log:   log.With("conn", id, "addr", addr),
		addr:  addr,
		cfg:   cfg,
		send:  make(chan []byte, cfg.SendBufferSize),
	}
}

// ID returns the connection identifier.
func (c *Client) ID() string {
	return c.id
}

// Enqueue encodes out and queues it without blocking. When the queue is full
// the client gives up on the peer and closes itself; the resulting read error
// reports the disconnect to the coordinator.
func (c *Client) Enqueue(out coordinator.Outbound) error {
	frame, err := encodeOutbound(out)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return coordinator.ErrRecipientClosed
	}

	select {
	case c.send <- frame:
		return nil
	default:
		c.log.Warn("Send buffer full; closing connection", "buffer", cap(c.send))
		c.closeLocked()
		return ErrSendBufferFull
	}
}

// Close stops delivery. The write pump sends a close frame and tears the
// socket down. Calling Close more than once is safe.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout)); err != nil {
		c.log.Warn("Error setting initial read deadline", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout)); err != nil {
			c.log.Warn("Error setting read deadline in pong handler", "error", err)
		}
		return nil
	})
}

// handleReadError logs the read failure at the level it deserves.
func (c *Client) handleReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("Message exceeded maximum size", "limit", c.cfg.MaxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.log.Debug("Client disconnected", "reason", err)
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.log.Debug("Client connection closed", "reason", err)
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig):
		c.log.Warn("Unexpected WebSocket close", "error", err)
	default:
		c.log.Warn("WebSocket read error", "error", err)
	}
}

// processFrame decodes one inbound frame and hands the intent to the
// coordinator. Malformed frames are logged and dropped.
func (c *Client) processFrame(ctx context.Context, raw []byte) bool {
	in, err := decodeInbound(c.id, raw)
	if err != nil {
		c.log.Warn("Dropping invalid frame", "error", err)
		return false
	}

	if err := c.coord.Submit(ctx, in); err != nil {
		c.log.Debug("Coordinator rejected intent", "error", err)
		return false
	}
	return true
}

func (c *Client) readPump() {
	ctx := context.Background()
	defer func() {
		if err := c.coord.Disconnect(ctx, c.id); err != nil {
			c.log.Debug("Disconnect not delivered", "error", err)
		}
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Warn("Error closing connection in readPump", "error", err)
		}
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}
		c.processFrame(ctx, raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case frame, ok := <-c.send:
		return c.handleFrame(frame, ok)
	case <-ticker.C:
		return c.handlePing()
	}
}

// closeConnection safely closes the WebSocket connection with proper error handling
func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.log.Warn("Error closing connection in writePump", "error", err)
	}
}

// handleFrame writes one outgoing frame and returns false if the connection should be closed
func (c *Client) handleFrame(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		c.log.Warn("Error setting write deadline", "error", err)
		return false
	}

	if !ok {
		return c.writeCloseMessage()
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Warn("Error writing frame", "error", err)
		}
		return false
	}
	return true
}

// writeCloseMessage sends a close message to the client
func (c *Client) writeCloseMessage() bool {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.conn.WriteMessage(websocket.CloseMessage, msg); err != nil && !isExpectedCloseError(err) {
		c.log.Debug("Error writing close message", "error", err)
	}
	return false
}

// handlePing sends a ping message to keep the connection alive
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		c.log.Warn("Error setting write deadline for ping", "error", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.log.Debug("Error writing ping message", "error", err)
		return false
	}
	return true
}
