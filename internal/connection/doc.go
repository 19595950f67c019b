// Package connection implements the per-connection lifecycle handler.
//
// Each accepted WebSocket becomes a Conn that moves through
//
//	Connecting -> Open -> Closing -> Closed
//
// Entering Open registers the Conn and starts its loops:
//   - readLoop forwards every text or binary frame to the relay
//   - writeLoop is the single egress path, draining the send queue in order
//     and pinging the peer on an interval
//
// Close evicts the Conn from the registry and is idempotent. Transport errors
// are reported but do not evict on their own; the read loop ending is what
// closes the connection.
package connection
