package peer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/peer-relay/internal/message"
)

// Errors
var (
	ErrNotConnected  = errors.New("not connected")
	ErrStaleConn     = errors.New("connection stale (no ping)")
	ErrAlreadyClosed = errors.New("already closed")
)

// Config configures a relay client.
type Config struct {
	URL              string        // Relay URL (e.g., wss://relay.example.com/ws)
	Origin           string        // Origin header sent during the handshake
	HandshakeTimeout time.Duration // Dial timeout
	PingTimeout      time.Duration // Max time without ping/pong before the connection is stale
	WriteTimeout     time.Duration // Write deadline for sends
	BufferSize       int           // Inbound frame channel buffer size
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		PingTimeout:      90 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       1000,
	}
}

// Client is one peer's connection to the relay.
type Client struct {
	cfg    Config
	logger *slog.Logger

	conn *websocket.Conn

	// Output channels
	frames chan message.Frame
	errors chan error
	done   chan struct{}

	// Write serialization
	writeMu sync.Mutex

	// State
	mu         sync.RWMutex
	connected  bool
	lastPingAt time.Time
	closed     bool
}

// NewClient creates a client. Call Connect before sending.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}

	return &Client{
		cfg:    cfg,
		logger: logger,
		frames: make(chan message.Frame, cfg.BufferSize),
		errors: make(chan error, 1),
		done:   make(chan struct{}),
	}
}

// Connect dials the relay and starts the read and heartbeat loops.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrAlreadyClosed
	}
	c.mu.Unlock()

	header := http.Header{}
	if c.cfg.Origin != "" {
		header.Set("Origin", c.cfg.Origin)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
		Proxy:            http.ProxyFromEnvironment,
	}

	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		return fmt.Errorf("dial relay: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.lastPingAt = time.Now()
	c.mu.Unlock()

	// Relay pings us; answer and record liveness.
	conn.SetPingHandler(func(data string) error {
		c.touch()
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})
	conn.SetPongHandler(func(string) error {
		c.touch()
		return nil
	})

	go c.readLoop()
	go c.heartbeatLoop()

	c.logger.Debug("connected to relay", "url", c.cfg.URL)

	return nil
}

// Close gracefully closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	conn := c.conn
	c.mu.Unlock()

	close(c.done)

	if conn != nil {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		return conn.Close()
	}

	return nil
}

// Send writes a text frame.
func (c *Client) Send(data []byte) error {
	return c.write(websocket.TextMessage, data)
}

// SendBinary writes a binary frame.
func (c *Client) SendBinary(data []byte) error {
	return c.write(websocket.BinaryMessage, data)
}

// SendEnvelope encodes env and writes it as a text frame.
func (c *Client) SendEnvelope(env message.Envelope) error {
	data, err := env.Encode()
	if err != nil {
		return err
	}
	return c.Send(data)
}

// Frames returns the channel of inbound frames. It is closed once the
// connection is gone, whether by Close or by the relay dropping it.
func (c *Client) Frames() <-chan message.Frame {
	return c.frames
}

// Errors returns the channel of connection errors.
func (c *Client) Errors() <-chan error {
	return c.errors
}

// Done is closed when Close is called or the connection fails.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *Client) write(messageType int, data []byte) error {
	c.mu.RLock()
	if !c.connected {
		c.mu.RUnlock()
		return ErrNotConnected
	}
	conn := c.conn
	c.mu.RUnlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return conn.WriteMessage(messageType, data)
}

func (c *Client) touch() {
	c.mu.Lock()
	c.lastPingAt = time.Now()
	c.mu.Unlock()
}

// readLoop reads frames and publishes them on the frames channel.
// It is the only sender on frames and closes it on exit.
func (c *Client) readLoop() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		close(c.frames)
	}()

	for {
		mt, data, err := c.conn.ReadMessage()
		receivedAt := time.Now()

		if err != nil {
			// Ignore errors after Close() is called
			select {
			case <-c.done:
				return
			default:
				c.reportError(err)
				c.Close()
				return
			}
		}

		kind := message.KindText
		if mt == websocket.BinaryMessage {
			kind = message.KindBinary
		}

		frame := message.Frame{
			Kind:       kind,
			Data:       data,
			ReceivedAt: receivedAt,
		}

		select {
		case c.frames <- frame:
		case <-c.done:
			return
		default:
			c.logger.Warn("frame buffer full, dropping frame")
		}
	}
}

// heartbeatLoop pings the relay and watches for a stale connection.
func (c *Client) heartbeatLoop() {
	interval := c.cfg.PingTimeout / 3
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.RLock()
			conn := c.conn
			lastPing := c.lastPingAt
			c.mu.RUnlock()

			c.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), time.Now().Add(c.cfg.WriteTimeout))
			c.writeMu.Unlock()
			if err != nil {
				c.logger.Debug("failed to send ping", "error", err)
			}

			if c.cfg.PingTimeout > 0 && time.Since(lastPing) > c.cfg.PingTimeout {
				c.logger.Warn("no ping received, connection stale",
					"last_ping", lastPing,
					"timeout", c.cfg.PingTimeout,
				)
				c.reportError(ErrStaleConn)
				c.Close()
				return
			}
		}
	}
}

func (c *Client) reportError(err error) {
	select {
	case c.errors <- err:
	default:
	}
}
