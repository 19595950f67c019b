// Package peer implements the client side of the relay.
//
// A Client dials the relay and exposes inbound frames on a channel. A Receiver
// decodes those frames into envelopes on the arrival goroutine and queues
// them; the application drains the queue from its own tick (see package
// inbound) and dispatches by api tag, so application state is only ever
// touched from that tick.
package peer
