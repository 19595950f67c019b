package connection

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/peer-relay/internal/message"
	"github.com/rickgao/peer-relay/internal/relay"
)

// Errors
var (
	ErrNotOpen        = errors.New("connection not open")
	ErrSendQueueFull  = errors.New("send queue full")
	ErrAlreadyStarted = errors.New("connection already started")
)

// State is a connection's lifecycle position.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Config configures per-connection behavior.
type Config struct {
	SendBuffer     int           // Egress queue length per connection
	WriteTimeout   time.Duration // Write deadline for each frame
	ReadTimeout    time.Duration // Max time without a pong before the peer is considered gone
	PingInterval   time.Duration // Must be less than ReadTimeout
	MaxMessageSize int64         // Largest inbound frame accepted
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		SendBuffer:     256,
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		PingInterval:   54 * time.Second,
		MaxMessageSize: 64 * 1024,
	}
}

// Registrar is the membership set a Conn joins while Open.
type Registrar interface {
	Add(r relay.Receiver) bool
	Remove(r relay.Receiver) bool
}

// Forwarder receives every frame a Conn reads.
type Forwarder interface {
	Forward(source relay.Receiver, frame message.Frame) relay.Result
}

// EventType names a lifecycle event.
type EventType string

const (
	EventOpened  EventType = "opened"
	EventClosed  EventType = "closed"
	EventErrored EventType = "errored"
)

// Event describes a lifecycle transition or transport error.
type Event struct {
	Type       EventType
	ConnID     string
	RemoteAddr string
	At         time.Time
	Err        error // Set for EventErrored
}

// Observer is notified of lifecycle events. Observe runs on the connection's
// goroutines and must not block.
type Observer interface {
	Observe(evt Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe calls f(evt).
func (f ObserverFunc) Observe(evt Event) { f(evt) }

// Observers fans an event out to several observers.
type Observers []Observer

// Observe forwards evt to every observer.
func (o Observers) Observe(evt Event) {
	for _, obs := range o {
		if obs != nil {
			obs.Observe(evt)
		}
	}
}

// NewID returns a fresh connection identity.
func NewID() string {
	return uuid.NewString()
}
