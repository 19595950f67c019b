package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
server:
  host: 127.0.0.1
  port: 9000
  path: /ws
  allowed_origins:
    - https://game.example.com
connections:
  send_buffer: 64
  write_timeout: 5s
journal:
  enabled: true
  database:
    host: localhost
    name: relay
    user: relay
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Server.Path != "/ws" {
		t.Errorf("Server.Path = %q, want %q", cfg.Server.Path, "/ws")
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "https://game.example.com" {
		t.Errorf("Server.AllowedOrigins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Connections.SendBuffer != 64 {
		t.Errorf("Connections.SendBuffer = %d, want 64", cfg.Connections.SendBuffer)
	}
	if cfg.Connections.WriteTimeout != 5*time.Second {
		t.Errorf("Connections.WriteTimeout = %v, want 5s", cfg.Connections.WriteTimeout)
	}
	if !cfg.Journal.Enabled || cfg.Journal.Database.Name != "relay" {
		t.Errorf("Journal = %+v", cfg.Journal)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
journal:
  database:
    host: localhost
    name: relay
    user: relay
    password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Journal.Database.Password != "secret123" {
		t.Errorf("Password = %q, want %q", cfg.Journal.Database.Password, "secret123")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "read config file") {
		t.Errorf("error = %v, want read config file prefix", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTempFile(t, "server: [unclosed")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid yaml")
	}
	if !strings.Contains(err.Error(), "parse config yaml") {
		t.Errorf("error = %v, want parse config yaml prefix", err)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	path := writeTempFile(t, "server:\n  port: 9100\n")

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Server.Host != DefaultHost {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, DefaultHost)
	}
	if cfg.Server.Path != DefaultPath {
		t.Errorf("Server.Path = %q, want %q", cfg.Server.Path, DefaultPath)
	}
	if cfg.Connections.SendBuffer != DefaultSendBuffer {
		t.Errorf("SendBuffer = %d, want %d", cfg.Connections.SendBuffer, DefaultSendBuffer)
	}
	if cfg.Connections.PingInterval != DefaultPingInterval {
		t.Errorf("PingInterval = %v, want %v", cfg.Connections.PingInterval, DefaultPingInterval)
	}
	if cfg.Journal.Database.Port != DefaultDBPort {
		t.Errorf("Database.Port = %d, want %d", cfg.Journal.Database.Port, DefaultDBPort)
	}
	if cfg.Journal.BatchSize != DefaultBatchSize {
		t.Errorf("BatchSize = %d, want %d", cfg.Journal.BatchSize, DefaultBatchSize)
	}
	if cfg.Log.Level != DefaultLogLevel || cfg.Log.Format != DefaultLogFormat {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestLoadWithDefaults_EmptyPath(t *testing.T) {
	cfg, err := LoadWithDefaults("")
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestApplyEnv_Overrides(t *testing.T) {
	t.Setenv("RELAY_PORT", "9300")
	t.Setenv("RELAY_LOG_LEVEL", "debug")
	t.Setenv("RELAY_ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")

	path := writeTempFile(t, "server:\n  port: 9100\n  host: 10.0.0.1\n")
	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Server.Port != 9300 {
		t.Errorf("Server.Port = %d, want 9300 from env", cfg.Server.Port)
	}
	if cfg.Server.Host != "10.0.0.1" {
		t.Errorf("Server.Host = %q, file value should survive", cfg.Server.Host)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if len(cfg.Server.AllowedOrigins) != 2 {
		t.Errorf("AllowedOrigins = %v, want 2 entries", cfg.Server.AllowedOrigins)
	}
}

func TestApplyEnv_InvalidValue(t *testing.T) {
	t.Setenv("RELAY_PORT", "not-a-port")
	if _, err := LoadWithDefaults(""); err == nil {
		t.Fatal("expected error for non-numeric RELAY_PORT")
	}
}

func TestLoadAndValidate_WrapsError(t *testing.T) {
	path := writeTempFile(t, "log:\n  level: loud\n")
	_, err := LoadAndValidate(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "validate config") {
		t.Errorf("error = %v, want validate config prefix", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*RelayConfig)
		wantErr string
	}{
		{
			name:    "valid defaults",
			modify:  func(c *RelayConfig) {},
			wantErr: "",
		},
		{
			name:    "port out of range",
			modify:  func(c *RelayConfig) { c.Server.Port = 70000 },
			wantErr: "server.port",
		},
		{
			name:    "path without slash",
			modify:  func(c *RelayConfig) { c.Server.Path = "ws" },
			wantErr: "server.path",
		},
		{
			name:    "tls cert without key",
			modify:  func(c *RelayConfig) { c.Server.TLS.CertFile = "cert.pem" },
			wantErr: "server.tls",
		},
		{
			name:    "ping not below read timeout",
			modify:  func(c *RelayConfig) { c.Connections.PingInterval = c.Connections.ReadTimeout },
			wantErr: "connections.ping_interval",
		},
		{
			name:    "zero send buffer",
			modify:  func(c *RelayConfig) { c.Connections.SendBuffer = -1 },
			wantErr: "connections.send_buffer",
		},
		{
			name:    "journal without database host",
			modify:  func(c *RelayConfig) { c.Journal.Enabled = true },
			wantErr: "journal.database.host",
		},
		{
			name: "journal with url",
			modify: func(c *RelayConfig) {
				c.Journal.Enabled = true
				c.Journal.Database.URL = "postgres://relay@localhost/relay"
			},
			wantErr: "",
		},
		{
			name: "min conns above max",
			modify: func(c *RelayConfig) {
				c.Journal.Enabled = true
				c.Journal.Database.URL = "postgres://relay@localhost/relay"
				c.Journal.Database.MinConns = 10
			},
			wantErr: "min_conns",
		},
		{
			name:    "tunnel without token",
			modify:  func(c *RelayConfig) { c.Tunnel.Enabled = true },
			wantErr: "tunnel.authtoken",
		},
		{
			name:    "bad log format",
			modify:  func(c *RelayConfig) { c.Log.Format = "xml" },
			wantErr: "log.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestServerAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8080}
	if got := s.Addr(); got != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q", got)
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
