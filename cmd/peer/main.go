// peer is a terminal client for the relay. Each line read from stdin is sent
// as a message envelope; envelopes relayed from other peers are printed.
//
// Usage: go run ./cmd/peer --url ws://localhost:8443/ws --name alice
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/peer-relay/internal/inbound"
	"github.com/rickgao/peer-relay/internal/logging"
	"github.com/rickgao/peer-relay/internal/message"
	"github.com/rickgao/peer-relay/internal/peer"
	"github.com/rickgao/peer-relay/internal/version"
)

func main() {
	// Load .env file if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "peer: failed to load .env file:", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	cmd := &cli.Command{
		Name:    "peer",
		Usage:   "send stdin lines to a relay and print what other peers send",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Value:   "ws://localhost:8443/ws",
				Usage:   "relay WebSocket URL",
				Sources: cli.EnvVars("RELAY_URL"),
			},
			&cli.StringFlag{
				Name:  "name",
				Usage: "sender name stamped on outgoing envelopes",
			},
			&cli.StringFlag{
				Name:  "api",
				Value: message.APIJSToUnity,
				Usage: "api tag for outgoing envelopes",
			},
			&cli.StringSliceFlag{
				Name:  "accept",
				Usage: "api tags to print (default: all)",
			},
			&cli.StringFlag{
				Name:  "origin",
				Usage: "Origin header for the handshake",
			},
			&cli.DurationFlag{
				Name:  "tick",
				Value: time.Second / 60,
				Usage: "interval between inbound queue drains",
			},
			&cli.BoolFlag{
				Name:  "drain-all",
				Value: true,
				Usage: "drain the whole queue each tick instead of one envelope",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
			},
		},
		Action: run,
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "peer:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	logger, err := logging.New(cmd.String("log-level"), "text", os.Stderr)
	if err != nil {
		return err
	}

	name := cmd.String("name")
	if name == "" {
		name, _ = os.Hostname()
	}

	cfg := peer.DefaultConfig()
	cfg.URL = cmd.String("url")
	cfg.Origin = cmd.String("origin")

	client := peer.NewClient(cfg, logger)
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()

	logger.Info("connected", "url", cfg.URL, "name", name)

	// Inbound: frames -> receiver -> queue -> ticker -> dispatcher
	dispatcher := message.NewDispatcher()
	printEnvelope := func(env message.Envelope) {
		fmt.Fprintf(os.Stdout, "[%s] %s\n", env.Sender, env.ValueString)
	}
	if accept := cmd.StringSlice("accept"); len(accept) > 0 {
		for _, api := range accept {
			dispatcher.Handle(api, printEnvelope)
		}
	} else {
		dispatcher.HandleDefault(printEnvelope)
	}

	queue := inbound.NewQueue[message.Envelope](64)
	receiver := peer.NewReceiver(queue, dispatcher, logger)

	tickCfg := inbound.TickerConfig{Interval: cmd.Duration("tick"), Mode: inbound.DrainOne}
	if cmd.Bool("drain-all") {
		tickCfg.Mode = inbound.DrainAll
	}
	ticker := inbound.NewTicker(tickCfg, queue, func(env message.Envelope) {
		if err := dispatcher.Dispatch(env); err != nil {
			logger.Warn("dispatch failed", "error", err)
		}
	}, logger)

	// Outbound: stdin lines. Scan can't be interrupted, so it stays outside the group.
	api := cmd.String("api")
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			env := message.Envelope{Sender: name, API: api, ValueString: scanner.Text()}
			if err := client.SendEnvelope(env); err != nil {
				logger.Warn("send failed", "error", err)
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return receiver.Run(gctx, client.Frames()) })
	g.Go(func() error { return ticker.Run(gctx) })
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case err := <-client.Errors():
				return fmt.Errorf("relay connection: %w", err)
			case <-client.Done():
				return errors.New("relay connection closed")
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
