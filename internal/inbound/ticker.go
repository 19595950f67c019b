package inbound

import (
	"context"
	"log/slog"
	"time"
)

// Mode selects how much of the queue a single tick consumes.
type Mode int

const (
	DrainOne Mode = iota
	DrainAll
)

// TickerConfig configures a Ticker.
type TickerConfig struct {
	Interval time.Duration // Time between ticks
	Mode     Mode
}

// DefaultTickerConfig returns a 60Hz drain-all ticker.
func DefaultTickerConfig() TickerConfig {
	return TickerConfig{
		Interval: time.Second / 60,
		Mode:     DrainAll,
	}
}

// Ticker consumes a Queue on a fixed schedule from a single goroutine.
// The handler is never called concurrently with itself.
type Ticker[T any] struct {
	cfg    TickerConfig
	queue  *Queue[T]
	handle func(T)
	logger *slog.Logger
}

// NewTicker creates a ticker that feeds queued entries to handle.
func NewTicker[T any](cfg TickerConfig, queue *Queue[T], handle func(T), logger *slog.Logger) *Ticker[T] {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultTickerConfig().Interval
	}
	return &Ticker[T]{
		cfg:    cfg,
		queue:  queue,
		handle: handle,
		logger: logger,
	}
}

// Run ticks until ctx is cancelled.
func (t *Ticker[T]) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.cfg.Interval)
	defer ticker.Stop()

	t.logger.Debug("inbound ticker started",
		"interval", t.cfg.Interval,
		"mode", t.cfg.Mode,
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.Tick()
		}
	}
}

// Tick performs one consumption step and returns the number of entries handled.
func (t *Ticker[T]) Tick() int {
	switch t.cfg.Mode {
	case DrainOne:
		item, ok := t.queue.DrainOne()
		if !ok {
			return 0
		}
		t.handle(item)
		return 1
	default:
		return t.queue.DrainAll(t.handle)
	}
}
