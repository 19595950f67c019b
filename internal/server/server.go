package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/peer-relay/internal/config"
	"github.com/rickgao/peer-relay/internal/connection"
	"github.com/rickgao/peer-relay/internal/metrics"
	"github.com/rickgao/peer-relay/internal/registry"
	"github.com/rickgao/peer-relay/internal/relay"
	"github.com/rickgao/peer-relay/internal/version"
)

const shutdownTimeout = 10 * time.Second

// Server accepts peers and relays their frames.
type Server struct {
	cfg     config.ServerConfig
	connCfg connection.Config
	logger  *slog.Logger

	registry *registry.Registry[relay.Receiver]
	relay    *relay.Relay
	metrics  *metrics.Counters
	observer connection.Observer

	upgrader websocket.Upgrader
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithObserver adds a lifecycle observer (e.g. the presence journal).
func WithObserver(obs connection.Observer) Option {
	return func(s *Server) {
		s.observer = obs
	}
}

// New creates a Server from the relay configuration.
func New(cfg *config.RelayConfig, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg.Server,
		connCfg:  ConnectionConfig(cfg.Connections),
		logger:   slog.Default(),
		registry: registry.New[relay.Receiver](),
		metrics:  metrics.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.Path == "" {
		s.cfg.Path = config.DefaultPath
	}

	s.relay = relay.New(s.registry,
		relay.WithLogger(s.logger),
		relay.WithMetrics(s.metrics),
	)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(s.cfg.AllowedOrigins),
	}
	return s
}

// ConnectionConfig converts the config section to per-connection settings,
// keeping defaults for unset fields.
func ConnectionConfig(c config.ConnectionsConfig) connection.Config {
	out := connection.DefaultConfig()
	if c.SendBuffer > 0 {
		out.SendBuffer = c.SendBuffer
	}
	if c.WriteTimeout > 0 {
		out.WriteTimeout = c.WriteTimeout
	}
	if c.ReadTimeout > 0 {
		out.ReadTimeout = c.ReadTimeout
	}
	if c.PingInterval > 0 {
		out.PingInterval = c.PingInterval
	}
	if c.MaxMessageSize > 0 {
		out.MaxMessageSize = c.MaxMessageSize
	}
	return out
}

// Registry returns the live connection set.
func (s *Server) Registry() *registry.Registry[relay.Receiver] {
	return s.registry
}

// Metrics returns the relay counters.
func (s *Server) Metrics() *metrics.Counters {
	return s.metrics
}

// Handler returns the HTTP handler serving all endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc(s.cfg.Path, s.ServeWS)
	return mux
}

// ServeWS upgrades the request and runs the connection until it closes.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, "websocket upgrade required", http.StatusBadRequest)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		s.logger.Warn("websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	c := connection.New(ws, s.connCfg, connection.Deps{
		Registry: s.registry,
		Relay:    s.relay,
		Observer: connection.Observers{connection.ObserverFunc(s.count), s.observer},
		Logger:   s.logger,
	})
	c.Run(r.Context())
}

// count feeds lifecycle events into the metrics counters.
func (s *Server) count(evt connection.Event) {
	switch evt.Type {
	case connection.EventOpened:
		s.metrics.ConnectionOpened()
	case connection.EventClosed:
		s.metrics.ConnectionClosed()
	case connection.EventErrored:
		s.metrics.TransportError()
	}
}

// CloseAll closes every open connection. Returns how many were closed.
func (s *Server) CloseAll() int {
	n := 0
	for _, r := range s.registry.Snapshot() {
		if c, ok := r.(interface{ Close() error }); ok {
			c.Close()
			n++
		}
	}
	return n
}

// ListenAndServe listens on the configured address and serves until ctx is
// cancelled. TLS is used when configured.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr(), err)
	}
	return s.serve(ctx, ln, s.cfg.TLS.Enabled())
}

// Serve serves plain HTTP on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	return s.serve(ctx, ln, false)
}

func (s *Server) serve(ctx context.Context, ln net.Listener, useTLS bool) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// Requests, and so connections, end with ctx
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		// Hijacked WebSocket connections are not tracked by Shutdown
		s.CloseAll()
		srv.Shutdown(shutdownCtx)
	}()

	scheme := "ws"
	if useTLS {
		scheme = "wss"
	}
	s.logger.Info("relay listening",
		"addr", ln.Addr().String(),
		"url", fmt.Sprintf("%s://%s%s", scheme, ln.Addr().String(), s.cfg.Path),
	)

	var err error
	if useTLS {
		err = srv.ServeTLS(ln, s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
	} else {
		err = srv.Serve(ln)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := struct {
		Status      string       `json:"status"`
		Version     version.Info `json:"version"`
		Connections int          `json:"connections"`
	}{
		Status:      "healthy",
		Version:     version.Get(),
		Connections: s.registry.Len(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.metrics.Snapshot())
}

// originChecker allows any origin when allowed is empty. Requests without an
// Origin header come from non-browser peers and are always accepted.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.ToLower(strings.TrimRight(o, "/"))] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.ToLower(strings.TrimRight(origin, "/"))]
		return ok
	}
}
