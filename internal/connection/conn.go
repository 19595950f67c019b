package connection

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/peer-relay/internal/message"
	"github.com/rickgao/peer-relay/internal/relay"
)

// Deps are the collaborators a Conn is wired to.
type Deps struct {
	Registry Registrar
	Relay    Forwarder
	Observer Observer // Optional
	Logger   *slog.Logger
}

// Conn is one peer connection on the relay.
type Conn struct {
	id         string
	remoteAddr string

	ws     *websocket.Conn
	cfg    Config
	logger *slog.Logger

	registry Registrar
	relay    Forwarder
	observer Observer

	// State transitions happen under mu; reads are lock-free.
	mu    sync.Mutex
	state atomic.Int32

	// Egress
	send chan message.Frame
	done chan struct{}
	wg   sync.WaitGroup
}

// New wraps an upgraded WebSocket. The Conn starts in Connecting and does
// nothing until Run.
func New(ws *websocket.Conn, cfg Config, deps Deps) *Conn {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Registry == nil {
		deps.Registry = nopRegistrar{}
	}
	if deps.Relay == nil {
		deps.Relay = nopForwarder{}
	}
	if cfg.SendBuffer < 1 {
		cfg.SendBuffer = DefaultConfig().SendBuffer
	}

	id := NewID()
	remoteAddr := ""
	if ws != nil {
		remoteAddr = ws.RemoteAddr().String()
	}

	c := &Conn{
		id:         id,
		remoteAddr: remoteAddr,
		ws:         ws,
		cfg:        cfg,
		logger:     deps.Logger.With("conn_id", id, "remote_addr", remoteAddr),
		registry:   deps.Registry,
		relay:      deps.Relay,
		observer:   deps.Observer,
		send:       make(chan message.Frame, cfg.SendBuffer),
		done:       make(chan struct{}),
	}
	c.state.Store(int32(StateConnecting))
	return c
}

// ID returns the connection identity.
func (c *Conn) ID() string {
	return c.id
}

// RemoteAddr returns the peer's network address.
func (c *Conn) RemoteAddr() string {
	return c.remoteAddr
}

// State returns the current lifecycle state.
func (c *Conn) State() State {
	return State(c.state.Load())
}

// IsOpen reports whether the connection accepts frames.
func (c *Conn) IsOpen() bool {
	return c.State() == StateOpen
}

// Done is closed once the connection starts closing.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Send queues a frame on the connection's egress path. It never blocks.
func (c *Conn) Send(frame message.Frame) error {
	if !c.IsOpen() {
		return ErrNotOpen
	}
	select {
	case <-c.done:
		return ErrNotOpen
	case c.send <- frame:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Run opens the connection and blocks until it is closed, either by the peer,
// by a transport error, by Close, or by ctx being cancelled.
func (c *Conn) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.State() != StateConnecting {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.state.Store(int32(StateOpen))
	c.registry.Add(c)
	c.mu.Unlock()

	c.notify(EventOpened, nil)
	c.logger.Info("connection opened")

	c.wg.Add(1)
	go c.writeLoop()

	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.done:
		}
	}()

	c.readLoop()
	c.Close()
	c.wg.Wait()
	return nil
}

// Close evicts the connection and shuts the transport down.
// Closing an already closing or closed connection is a no-op.
func (c *Conn) Close() error {
	c.mu.Lock()
	prev := c.State()
	if prev == StateClosing || prev == StateClosed {
		c.mu.Unlock()
		return nil
	}
	c.state.Store(int32(StateClosing))
	c.mu.Unlock()

	close(c.done)
	c.registry.Remove(c)

	var err error
	if c.ws != nil {
		c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(c.cfg.WriteTimeout),
		)
		err = c.ws.Close()
	}

	c.state.Store(int32(StateClosed))
	c.notify(EventClosed, nil)
	c.logger.Info("connection closed", "from", prev)
	return err
}

// readLoop forwards inbound frames until the transport fails.
func (c *Conn) readLoop() {
	if c.cfg.MaxMessageSize > 0 {
		c.ws.SetReadLimit(c.cfg.MaxMessageSize)
	}
	c.extendReadDeadline()
	c.ws.SetPongHandler(func(string) error {
		c.extendReadDeadline()
		return nil
	})

	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				c.reportError(err)
			}
			return
		}
		c.handleFrame(mt, data)
	}
}

func (c *Conn) handleFrame(mt int, data []byte) {
	var kind message.Kind
	switch mt {
	case websocket.TextMessage:
		kind = message.KindText
	case websocket.BinaryMessage:
		kind = message.KindBinary
	default:
		return
	}

	if !c.IsOpen() {
		return
	}

	c.relay.Forward(c, message.Frame{
		Kind:       kind,
		Data:       data,
		ReceivedAt: time.Now(),
	})
}

// writeLoop is the only writer of data frames on the connection.
func (c *Conn) writeLoop() {
	defer c.wg.Done()

	interval := c.cfg.PingInterval
	if interval <= 0 {
		interval = DefaultConfig().PingInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return

		case frame := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(frameType(frame.Kind), frame.Data); err != nil {
				c.reportError(err)
				c.Close()
				return
			}

		case <-ticker.C:
			deadline := time.Now().Add(c.cfg.WriteTimeout)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.reportError(err)
				c.Close()
				return
			}
		}
	}
}

func (c *Conn) extendReadDeadline() {
	if c.cfg.ReadTimeout > 0 {
		c.ws.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	}
}

// reportError logs a transport error. Errors caused by our own Close are ignored.
func (c *Conn) reportError(err error) {
	if !c.IsOpen() {
		return
	}
	c.logger.Warn("connection error", "error", err)
	c.notify(EventErrored, err)
}

func (c *Conn) notify(t EventType, err error) {
	if c.observer == nil {
		return
	}
	c.observer.Observe(Event{
		Type:       t,
		ConnID:     c.id,
		RemoteAddr: c.remoteAddr,
		At:         time.Now(),
		Err:        err,
	})
}

func frameType(k message.Kind) int {
	if k == message.KindBinary {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

type nopRegistrar struct{}

func (nopRegistrar) Add(relay.Receiver) bool    { return true }
func (nopRegistrar) Remove(relay.Receiver) bool { return true }

type nopForwarder struct{}

func (nopForwarder) Forward(relay.Receiver, message.Frame) relay.Result { return relay.Result{} }
