// Package inbound decouples message arrival from message consumption.
//
// Arrival callbacks (a WebSocket read loop, a connection observer) run on their
// own goroutines. Consumers that own state which must only be mutated from one
// place run a fixed-period tick instead. The Queue is the single boundary
// between the two: producers Enqueue, the tick drains.
//
// Drain policies:
//   - DrainOne: one entry per tick
//   - DrainAll: every entry present when the tick started, in arrival order;
//     entries arriving during the drain wait for the next tick
package inbound
