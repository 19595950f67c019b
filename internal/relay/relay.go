package relay

import (
	"log/slog"

	"github.com/rickgao/peer-relay/internal/message"
	"github.com/rickgao/peer-relay/internal/metrics"
)

// Receiver is a registered connection as seen by the relay.
type Receiver interface {
	ID() string
	IsOpen() bool
	Send(frame message.Frame) error
}

// Membership provides point-in-time views of the registered receivers.
type Membership interface {
	Snapshot() []Receiver
}

// Result summarizes one Forward call.
type Result struct {
	Delivered int // Frames accepted by a receiver's egress queue
	Skipped   int // Receivers no longer Open
	Failed    int // Receivers whose Send returned an error
}

// Relay forwards frames between registered receivers.
type Relay struct {
	members Membership
	logger  *slog.Logger
	metrics *metrics.Counters
}

// Option configures a Relay.
type Option func(*Relay)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

// WithMetrics records broadcast outcomes into c.
func WithMetrics(c *metrics.Counters) Option {
	return func(r *Relay) {
		r.metrics = c
	}
}

// New creates a relay over members.
func New(members Membership, opts ...Option) *Relay {
	r := &Relay{
		members: members,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Forward delivers frame to every Open receiver except source.
func (r *Relay) Forward(source Receiver, frame message.Frame) Result {
	var res Result
	sourceID := ""
	if source != nil {
		sourceID = source.ID()
	}

	for _, rcv := range r.members.Snapshot() {
		if rcv.ID() == sourceID {
			continue
		}
		if !rcv.IsOpen() {
			res.Skipped++
			continue
		}
		if err := rcv.Send(frame); err != nil {
			res.Failed++
			r.logger.Warn("delivery failed",
				"source", sourceID,
				"receiver", rcv.ID(),
				"error", err,
			)
			continue
		}
		res.Delivered++
	}

	r.metrics.Broadcast(res.Delivered, res.Failed, res.Skipped)

	r.logger.Debug("frame forwarded",
		"source", sourceID,
		"kind", frame.Kind,
		"bytes", len(frame.Data),
		"delivered", res.Delivered,
		"skipped", res.Skipped,
		"failed", res.Failed,
	)
	return res
}
