// Package journal records connection presence to PostgreSQL.
//
// Each opened, closed and errored lifecycle event becomes one row in the
// relay_presence table. Message payloads are never stored. Rows are queued
// in memory and written in batches; a slow or unavailable database costs
// journal rows, never relay throughput.
package journal
