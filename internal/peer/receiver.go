package peer

import (
	"context"
	"log/slog"

	"github.com/rickgao/peer-relay/internal/inbound"
	"github.com/rickgao/peer-relay/internal/message"
)

// Acceptor decides whether an api tag is worth queueing.
type Acceptor interface {
	Handles(api string) bool
}

// Receiver is the arrival side of a peer: it decodes frames into envelopes
// and queues the accepted ones for the consumer's tick. It never acts on an
// envelope itself.
type Receiver struct {
	queue  *inbound.Queue[message.Envelope]
	accept Acceptor
	logger *slog.Logger
}

// NewReceiver creates a receiver feeding queue. A nil accept queues everything.
func NewReceiver(queue *inbound.Queue[message.Envelope], accept Acceptor, logger *slog.Logger) *Receiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Receiver{
		queue:  queue,
		accept: accept,
		logger: logger,
	}
}

// HandleFrame processes one inbound frame. Returns true if an envelope was queued.
func (r *Receiver) HandleFrame(frame message.Frame) bool {
	if frame.Kind != message.KindText {
		r.logger.Debug("ignoring non-text frame",
			"kind", frame.Kind,
			"bytes", len(frame.Data),
		)
		return false
	}

	env, err := message.Decode(frame.Data)
	if err != nil {
		r.logger.Warn("dropping undecodable frame", "error", err, "bytes", len(frame.Data))
		return false
	}

	if r.accept != nil && !r.accept.Handles(env.API) {
		r.logger.Debug("dropping envelope with unhandled api",
			"api", env.API,
			"sender", env.Sender,
		)
		return false
	}

	if !r.queue.Enqueue(env) {
		r.logger.Debug("inbound queue closed, dropping envelope", "api", env.API)
		return false
	}
	return true
}

// Run consumes frames until ctx is cancelled or frames is closed.
func (r *Receiver) Run(ctx context.Context, frames <-chan message.Frame) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			r.HandleFrame(frame)
		}
	}
}
