// Package metrics provides in-process counters for monitoring the relay.
//
// Key metrics:
//   - Connections opened, closed and currently active
//   - Frames received from peers
//   - Deliveries, per-receiver delivery failures and skipped receivers
//   - Transport errors reported by connections
//
// Counters are exposed as JSON on the relay's /stats endpoint.
package metrics
