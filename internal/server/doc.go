// Package server is the relay's HTTP surface.
//
// A Server owns one connection registry and one broadcast relay. Every
// WebSocket upgrade on the configured path becomes a connection.Conn wired to
// both; frames a peer sends are delivered to every other open peer.
//
// Endpoints:
//   - <path> (default /ws): WebSocket upgrade
//   - /health: liveness plus the live connection count
//   - /stats: relay counters as JSON
package server
