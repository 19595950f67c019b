// relay accepts WebSocket peers and forwards every frame a peer sends to all
// other connected peers.
//
// Usage: go run ./cmd/relay --config configs/relay.example.yaml
//
// Every setting can also come from RELAY_* environment variables (or a .env
// file in the working directory), so --config is optional.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/peer-relay/internal/config"
	"github.com/rickgao/peer-relay/internal/database"
	"github.com/rickgao/peer-relay/internal/journal"
	"github.com/rickgao/peer-relay/internal/logging"
	"github.com/rickgao/peer-relay/internal/server"
	"github.com/rickgao/peer-relay/internal/tunnel"
	"github.com/rickgao/peer-relay/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	// Bootstrap logger until config is loaded
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// Load .env file if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to load .env file", "error", err)
	}

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err = logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	if err != nil {
		slog.Error("failed to configure logging", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	logger.Info("starting relay",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"addr", cfg.Server.Addr(),
		"path", cfg.Server.Path,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	var opts []server.Option
	opts = append(opts, server.WithLogger(logger))

	// Presence journal (optional)
	var j *journal.Journal
	if cfg.Journal.Enabled {
		logger.Info("connecting to journal database",
			"host", cfg.Journal.Database.Host,
			"database", cfg.Journal.Database.Name,
		)
		pool, err := database.Connect(ctx, cfg.Journal.Database)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := journal.EnsureSchema(ctx, pool); err != nil {
			logger.Error("failed to prepare journal schema", "error", err)
			os.Exit(1)
		}

		j = journal.New(journal.Config{
			BatchSize:     cfg.Journal.BatchSize,
			FlushInterval: cfg.Journal.FlushInterval,
			BufferSize:    cfg.Journal.BufferSize,
		}, pool, logger)
		if err := j.Start(ctx); err != nil {
			logger.Error("failed to start journal", "error", err)
			os.Exit(1)
		}
		opts = append(opts, server.WithObserver(j))
	}

	srv := server.New(cfg, opts...)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})

	if cfg.Tunnel.Enabled {
		g.Go(func() error {
			ln, err := tunnel.Listen(gctx, cfg.Tunnel, logger)
			if err != nil {
				return err
			}
			defer ln.Close()
			return srv.Serve(gctx, ln)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("relay stopped with error", "error", err)
	}

	logger.Info("shutting down...")

	if j != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		j.Stop(shutdownCtx)
	}

	logger.Info("relay stopped", "stats", srv.Metrics().Snapshot())
}
