package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultHost           = "0.0.0.0"
	DefaultPort           = 8443
	DefaultPath           = "/ws"
	DefaultSendBuffer     = 256
	DefaultWriteTimeout   = 10 * time.Second
	DefaultReadTimeout    = 60 * time.Second
	DefaultPingInterval   = 54 * time.Second
	DefaultMaxMessageSize = 64 * 1024
	DefaultDBPort         = 5432
	DefaultDBSSLMode      = "prefer"
	DefaultMaxConns       = 4
	DefaultMinConns       = 1
	DefaultBatchSize      = 100
	DefaultFlushInterval  = 2 * time.Second
	DefaultBufferSize     = 10000
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

func (c *RelayConfig) applyDefaults() {
	// Server defaults
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.Path == "" {
		c.Server.Path = DefaultPath
	}

	// Connections defaults
	if c.Connections.SendBuffer == 0 {
		c.Connections.SendBuffer = DefaultSendBuffer
	}
	if c.Connections.WriteTimeout == 0 {
		c.Connections.WriteTimeout = DefaultWriteTimeout
	}
	if c.Connections.ReadTimeout == 0 {
		c.Connections.ReadTimeout = DefaultReadTimeout
	}
	if c.Connections.PingInterval == 0 {
		c.Connections.PingInterval = DefaultPingInterval
	}
	if c.Connections.MaxMessageSize == 0 {
		c.Connections.MaxMessageSize = DefaultMaxMessageSize
	}

	// Journal defaults
	applyDBDefaults(&c.Journal.Database)
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultBatchSize
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = DefaultFlushInterval
	}
	if c.Journal.BufferSize == 0 {
		c.Journal.BufferSize = DefaultBufferSize
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
