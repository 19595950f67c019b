package config

import "time"

// RelayConfig is the root configuration for a relay instance.
type RelayConfig struct {
	Server      ServerConfig      `yaml:"server"`
	Connections ConnectionsConfig `yaml:"connections"`
	Journal     JournalConfig     `yaml:"journal"`
	Tunnel      TunnelConfig      `yaml:"tunnel"`
	Log         LogConfig         `yaml:"log"`
}

// ServerConfig holds the listener settings.
type ServerConfig struct {
	Host           string    `yaml:"host" env:"RELAY_HOST"`
	Port           int       `yaml:"port" env:"RELAY_PORT"`
	Path           string    `yaml:"path" env:"RELAY_PATH"`                                      // WebSocket endpoint
	AllowedOrigins []string  `yaml:"allowed_origins" env:"RELAY_ALLOWED_ORIGINS" envSeparator:","` // Empty = any origin
	TLS            TLSConfig `yaml:"tls"`
}

// TLSConfig enables wss:// on the listener when both files are set.
type TLSConfig struct {
	CertFile string `yaml:"cert_file" env:"RELAY_TLS_CERT_FILE"`
	KeyFile  string `yaml:"key_file" env:"RELAY_TLS_KEY_FILE"`
}

// Enabled reports whether TLS is configured.
func (t TLSConfig) Enabled() bool {
	return t.CertFile != "" && t.KeyFile != ""
}

// ConnectionsConfig holds per-connection settings.
type ConnectionsConfig struct {
	SendBuffer     int           `yaml:"send_buffer" env:"RELAY_SEND_BUFFER"`
	WriteTimeout   time.Duration `yaml:"write_timeout" env:"RELAY_WRITE_TIMEOUT"`
	ReadTimeout    time.Duration `yaml:"read_timeout" env:"RELAY_READ_TIMEOUT"`
	PingInterval   time.Duration `yaml:"ping_interval" env:"RELAY_PING_INTERVAL"`
	MaxMessageSize int64         `yaml:"max_message_size" env:"RELAY_MAX_MESSAGE_SIZE"`
}

// JournalConfig holds the presence journal settings.
// Note: the journal records connection lifecycle only, never payloads.
type JournalConfig struct {
	Enabled       bool          `yaml:"enabled" env:"RELAY_JOURNAL_ENABLED"`
	Database      DBConfig      `yaml:"database"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DBConfig holds a single database connection.
// URL, when set, takes precedence over the individual fields.
type DBConfig struct {
	URL      string `yaml:"url" env:"RELAY_DATABASE_URL"`
	Host     string `yaml:"host" env:"RELAY_DATABASE_HOST"`
	Port     int    `yaml:"port" env:"RELAY_DATABASE_PORT"`
	Name     string `yaml:"name" env:"RELAY_DATABASE_NAME"`
	User     string `yaml:"user" env:"RELAY_DATABASE_USER"`
	Password string `yaml:"password" env:"RELAY_DATABASE_PASSWORD"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// TunnelConfig holds the optional ngrok tunnel settings.
type TunnelConfig struct {
	Enabled   bool   `yaml:"enabled" env:"RELAY_TUNNEL_ENABLED"`
	AuthToken string `yaml:"authtoken" env:"RELAY_TUNNEL_AUTHTOKEN"`
	Domain    string `yaml:"domain" env:"RELAY_TUNNEL_DOMAIN"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level" env:"RELAY_LOG_LEVEL"`   // debug, info, warn, error
	Format string `yaml:"format" env:"RELAY_LOG_FORMAT"` // text, json
}
