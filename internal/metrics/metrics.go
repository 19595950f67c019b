package metrics

import (
	"sync/atomic"
)

// Counters holds relay counters. The zero value is ready to use and all
// methods are safe for concurrent use; a nil *Counters ignores updates.
type Counters struct {
	connectionsOpened atomic.Int64
	connectionsClosed atomic.Int64
	framesReceived    atomic.Int64
	deliveries        atomic.Int64
	deliveryFailures  atomic.Int64
	skippedReceivers  atomic.Int64
	transportErrors   atomic.Int64
}

// New creates a zeroed set of counters.
func New() *Counters {
	return &Counters{}
}

// ConnectionOpened records a connection entering Open.
func (c *Counters) ConnectionOpened() {
	if c != nil {
		c.connectionsOpened.Add(1)
	}
}

// ConnectionClosed records a connection reaching Closed.
func (c *Counters) ConnectionClosed() {
	if c != nil {
		c.connectionsClosed.Add(1)
	}
}

// TransportError records an error event on a connection.
func (c *Counters) TransportError() {
	if c != nil {
		c.transportErrors.Add(1)
	}
}

// Broadcast records the outcome of one fan-out.
func (c *Counters) Broadcast(delivered, failed, skipped int) {
	if c == nil {
		return
	}
	c.framesReceived.Add(1)
	c.deliveries.Add(int64(delivered))
	c.deliveryFailures.Add(int64(failed))
	c.skippedReceivers.Add(int64(skipped))
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	ConnectionsOpened int64 `json:"connections_opened"`
	ConnectionsClosed int64 `json:"connections_closed"`
	ConnectionsActive int64 `json:"connections_active"`
	FramesReceived    int64 `json:"frames_received"`
	Deliveries        int64 `json:"deliveries"`
	DeliveryFailures  int64 `json:"delivery_failures"`
	SkippedReceivers  int64 `json:"skipped_receivers"`
	TransportErrors   int64 `json:"transport_errors"`
}

// Snapshot returns the current counter values.
func (c *Counters) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	opened := c.connectionsOpened.Load()
	closed := c.connectionsClosed.Load()
	return Snapshot{
		ConnectionsOpened: opened,
		ConnectionsClosed: closed,
		ConnectionsActive: opened - closed,
		FramesReceived:    c.framesReceived.Load(),
		Deliveries:        c.deliveries.Load(),
		DeliveryFailures:  c.deliveryFailures.Load(),
		SkippedReceivers:  c.skippedReceivers.Load(),
		TransportErrors:   c.transportErrors.Load(),
	}
}
