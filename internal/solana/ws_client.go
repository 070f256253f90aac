package solana

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// StreamConfig configures WebSocket stream behavior.
type StreamConfig struct {
	// ReconnectDelay is the fixed delay between reconnect attempts.
	ReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// HandshakeTimeout bounds the websocket dial.
	HandshakeTimeout time.Duration
	// OnReconnect, if set, is called after each successful reconnect.
	OnReconnect func()
}

// DefaultStreamConfig returns default stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		ReconnectDelay:   5 * time.Second,
		PingInterval:     30 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		HandshakeTimeout: 10 * time.Second,
	}
}

// WSStream implements StreamClient using gorilla/websocket.
//
// The stream is best-effort: on any connection loss it keeps retrying at a
// fixed delay with no attempt cap, unlike the primary RPC path which
// degrades after a bounded reconnect budget.
type WSStream struct {
	endpoint string
	config   StreamConfig
	log      *zap.SugaredLogger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	// handlers receive every raw message in registration order
	handlers   []func(message []byte)
	handlersMu sync.RWMutex

	reconnects atomic.Int64

	// done signals shutdown
	done chan struct{}
	wg   sync.WaitGroup

	// reconnecting indicates reconnection in progress
	reconnecting atomic.Bool
}

// NewWSStream creates a new stream client and connects to the endpoint.
func NewWSStream(ctx context.Context, endpoint string, config *StreamConfig, log *zap.SugaredLogger) (*WSStream, error) {
	cfg := DefaultStreamConfig()
	if config != nil {
		cfg = *config
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	c := &WSStream{
		endpoint: endpoint,
		config:   cfg,
		log:      log,
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	// Start reader goroutine
	c.wg.Add(1)
	go c.readLoop()

	// Start ping goroutine
	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// connect establishes WebSocket connection.
func (c *WSStream) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

// Send writes a JSON message to the stream.
func (c *WSStream) Send(ctx context.Context, v interface{}) error {
	if c.closed.Load() {
		return fmt.Errorf("stream closed")
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("not connected")
	}

	deadline := time.Now().Add(c.config.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.conn.SetWriteDeadline(deadline)

	if err := c.conn.WriteJSON(v); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// OnMessage registers a callback for every raw incoming message.
func (c *WSStream) OnMessage(fn func(message []byte)) {
	c.handlersMu.Lock()
	c.handlers = append(c.handlers, fn)
	c.handlersMu.Unlock()
}

// Reconnects returns how many times the stream has reconnected.
func (c *WSStream) Reconnects() int64 {
	return c.reconnects.Load()
}

// Close closes the stream connection.
func (c *WSStream) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()
	return nil
}

// readLoop reads messages from the stream and dispatches to handlers.
func (c *WSStream) readLoop() {
	defer c.wg.Done()

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			// Connection lost - reconnect at a fixed delay, forever
			if !c.reconnecting.Swap(true) {
				go c.reconnect()
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		c.dispatch(message)
	}
}

// reconnect retries the connection at the configured fixed delay until it
// succeeds or the client is closed. There is no attempt cap.
func (c *WSStream) reconnect() {
	defer c.reconnecting.Store(false)

	for !c.closed.Load() {
		select {
		case <-c.done:
			return
		case <-time.After(c.config.ReconnectDelay):
		}

		// Drop the dead connection so readLoop idles while we dial
		c.connMu.Lock()
		if c.conn != nil {
			c.conn.Close()
			c.conn = nil
		}
		c.connMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), c.config.HandshakeTimeout)
		err := c.connect(ctx)
		cancel()

		if err != nil {
			c.log.Warnw("stream reconnect failed",
				"endpoint", c.endpoint,
				"error", err,
			)
			continue
		}

		c.reconnects.Add(1)
		if c.config.OnReconnect != nil {
			c.config.OnReconnect()
		}
		c.log.Infow("stream reconnected", "endpoint", c.endpoint)
		return
	}
}

// dispatch runs every registered handler for one message. A panicking
// handler is isolated so the read loop survives.
func (c *WSStream) dispatch(message []byte) {
	c.handlersMu.RLock()
	handlers := make([]func([]byte), len(c.handlers))
	copy(handlers, c.handlers)
	c.handlersMu.RUnlock()

	for _, fn := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.log.Errorw("stream handler panicked", "panic", r)
				}
			}()
			fn(message)
		}()
	}
}

// pingLoop sends periodic ping frames to keep connection alive.
func (c *WSStream) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			c.connMu.Unlock()
		}
	}
}

// Compile-time interface check.
var _ StreamClient = (*WSStream)(nil)
