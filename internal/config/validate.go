package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *RelayConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if !strings.HasPrefix(c.Server.Path, "/") {
		return fmt.Errorf("server.path must start with '/', got %q", c.Server.Path)
	}
	if (c.Server.TLS.CertFile == "") != (c.Server.TLS.KeyFile == "") {
		return errors.New("server.tls.cert_file and server.tls.key_file must be set together")
	}

	if c.Connections.SendBuffer < 1 {
		return errors.New("connections.send_buffer must be >= 1")
	}
	if c.Connections.PingInterval >= c.Connections.ReadTimeout {
		return fmt.Errorf("connections.ping_interval (%s) must be less than connections.read_timeout (%s)",
			c.Connections.PingInterval, c.Connections.ReadTimeout)
	}
	if c.Connections.MaxMessageSize < 1 {
		return errors.New("connections.max_message_size must be >= 1")
	}

	if c.Journal.Enabled {
		if err := c.Journal.Database.validate("journal.database"); err != nil {
			return err
		}
		if c.Journal.BatchSize < 1 {
			return errors.New("journal.batch_size must be >= 1")
		}
		if c.Journal.BufferSize < 1 {
			return errors.New("journal.buffer_size must be >= 1")
		}
	}

	if c.Tunnel.Enabled && c.Tunnel.AuthToken == "" {
		return errors.New("tunnel.authtoken is required when tunnel.enabled is true")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.URL == "" {
		if db.Host == "" {
			return fmt.Errorf("%s.host is required", prefix)
		}
		if db.Name == "" {
			return fmt.Errorf("%s.name is required", prefix)
		}
		if db.User == "" {
			return fmt.Errorf("%s.user is required", prefix)
		}
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
