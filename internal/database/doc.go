// Package database provides the PostgreSQL connection pool used by the
// presence journal.
package database
