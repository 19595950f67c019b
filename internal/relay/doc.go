// Package relay implements single-hop broadcast.
//
// Forward hands a frame received from one connection to every other
// registered connection that is currently Open. It does not inspect the
// payload, does not retry and does not wait for network delivery: each
// receiver owns a single egress queue, and Send only enqueues onto it.
//
// A failed Send (receiver closing, egress queue full) is logged and counted
// for that receiver only. It never stops delivery to the remaining receivers
// and is never reported to the sender.
package relay
