// Package tunnel exposes the relay through an ngrok HTTP endpoint so peers
// outside the local network can reach it without port forwarding.
package tunnel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/rickgao/peer-relay/internal/config"
)

// ErrNoAuthToken is returned when the tunnel is enabled without a token.
var ErrNoAuthToken = errors.New("tunnel authtoken is required")

// Listener is a public listener with a reachable URL.
type Listener interface {
	net.Listener
	URL() string
}

// Endpoint builds the ngrok endpoint configuration.
func Endpoint(cfg config.TunnelConfig) ngrokConfig.Tunnel {
	if cfg.Domain != "" {
		return ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.Domain))
	}
	return ngrokConfig.HTTPEndpoint()
}

// Listen opens the tunnel. The returned listener serves until closed or ctx
// is canceled.
func Listen(ctx context.Context, cfg config.TunnelConfig, logger *slog.Logger) (Listener, error) {
	if cfg.AuthToken == "" {
		return nil, ErrNoAuthToken
	}
	if logger == nil {
		logger = slog.Default()
	}

	tun, err := ngrok.Listen(ctx,
		Endpoint(cfg),
		ngrok.WithAuthtoken(cfg.AuthToken),
	)
	if err != nil {
		return nil, fmt.Errorf("start ngrok tunnel: %w", err)
	}

	logger.Info("tunnel established", "url", tun.URL(), "domain", cfg.Domain)
	return tun, nil
}
