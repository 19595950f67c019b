package journal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rickgao/peer-relay/internal/connection"
	"github.com/rickgao/peer-relay/internal/inbound"
)

const schema = `
CREATE TABLE IF NOT EXISTS relay_presence (
	id          BIGSERIAL PRIMARY KEY,
	conn_id     TEXT        NOT NULL,
	event       TEXT        NOT NULL,
	remote_addr TEXT        NOT NULL DEFAULT '',
	error       TEXT        NOT NULL DEFAULT '',
	at          TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS relay_presence_conn_id_idx ON relay_presence (conn_id);
`

const insertPresence = `
	INSERT INTO relay_presence (conn_id, event, remote_addr, error, at)
	VALUES ($1, $2, $3, $4, $5)
`

// Batcher sends a pgx batch. *pgxpool.Pool satisfies it.
type Batcher interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Execer runs a single statement. *pgxpool.Pool satisfies it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// EnsureSchema creates the presence table if it does not exist.
func EnsureSchema(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create relay_presence: %w", err)
	}
	return nil
}

// Config configures batching.
type Config struct {
	BatchSize     int           // Rows per insert batch
	FlushInterval time.Duration // Max time a row waits before being written
	BufferSize    int           // Rows held in memory before new events are dropped
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		FlushInterval: 2 * time.Second,
		BufferSize:    10000,
	}
}

// Stats holds journal counters.
type Stats struct {
	Inserts int64
	Errors  int64
	Flushes int64
	Dropped int64
	Pending int
}

type row struct {
	ConnID     string
	Event      string
	RemoteAddr string
	Error      string
	At         time.Time
}

// Journal is a connection.Observer that persists lifecycle events.
type Journal struct {
	cfg    Config
	db     Batcher
	logger *slog.Logger

	queue *inbound.Queue[row]
	kick  chan struct{}

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	flushMu sync.Mutex

	// Metrics
	inserts atomic.Int64
	errors  atomic.Int64
	flushes atomic.Int64
	dropped atomic.Int64
}

// New creates a Journal. Call Start before events arrive.
func New(cfg Config, db Batcher, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	return &Journal{
		cfg:    cfg,
		db:     db,
		logger: logger.With("component", "journal"),
		queue:  inbound.NewQueue[row](cfg.BatchSize),
		kick:   make(chan struct{}, 1),
	}
}

// Observe queues a lifecycle event. It never blocks; events beyond
// BufferSize are dropped and counted.
func (j *Journal) Observe(evt connection.Event) {
	if j.queue.Len() >= j.cfg.BufferSize {
		j.dropped.Add(1)
		return
	}

	r := row{
		ConnID:     evt.ConnID,
		Event:      string(evt.Type),
		RemoteAddr: evt.RemoteAddr,
		At:         evt.At,
	}
	if evt.Err != nil {
		r.Error = evt.Err.Error()
	}
	if r.At.IsZero() {
		r.At = time.Now()
	}

	if !j.queue.Enqueue(r) {
		j.dropped.Add(1)
		return
	}

	if j.queue.Len() >= j.cfg.BatchSize {
		select {
		case j.kick <- struct{}{}:
		default:
		}
	}
}

// Start begins the flush loop.
func (j *Journal) Start(ctx context.Context) error {
	j.ctx, j.cancel = context.WithCancel(ctx)

	j.wg.Add(1)
	go j.flushLoop()

	j.logger.Info("journal started",
		"batch_size", j.cfg.BatchSize,
		"flush_interval", j.cfg.FlushInterval,
	)
	return nil
}

// Stop halts the flush loop and writes whatever is still queued.
func (j *Journal) Stop(ctx context.Context) error {
	j.logger.Info("stopping journal")

	if j.cancel != nil {
		j.cancel()
	}
	j.queue.Close()

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		j.logger.Warn("journal stop timed out")
		return ctx.Err()
	}

	// Final flush
	j.flushAll(ctx)

	j.logger.Info("journal stopped", "inserts", j.inserts.Load(), "dropped", j.dropped.Load())
	return nil
}

// Stats returns current counters.
func (j *Journal) Stats() Stats {
	return Stats{
		Inserts: j.inserts.Load(),
		Errors:  j.errors.Load(),
		Flushes: j.flushes.Load(),
		Dropped: j.dropped.Load(),
		Pending: j.queue.Len(),
	}
}

func (j *Journal) flushLoop() {
	defer j.wg.Done()

	ticker := time.NewTicker(j.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-j.ctx.Done():
			return
		case <-ticker.C:
			j.flushAll(j.ctx)
		case <-j.kick:
			j.flushAll(j.ctx)
		}
	}
}

// flushAll writes queued rows in BatchSize chunks until the queue is empty
// or a batch fails. Rows of a failed batch are discarded.
func (j *Journal) flushAll(ctx context.Context) {
	j.flushMu.Lock()
	defer j.flushMu.Unlock()

	for {
		rows := j.queue.DrainTo(j.cfg.BatchSize)
		if len(rows) == 0 {
			return
		}

		start := time.Now()
		if err := j.batchInsert(ctx, rows); err != nil {
			j.errors.Add(1)
			j.logger.Error("batch insert failed", "error", err, "count", len(rows))
			return
		}

		j.inserts.Add(int64(len(rows)))
		j.flushes.Add(1)
		j.logger.Debug("flushed presence",
			"count", len(rows),
			"duration", time.Since(start),
		)
	}
}

// batchInsert inserts rows using pgx.Batch.
func (j *Journal) batchInsert(ctx context.Context, rows []row) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertPresence, r.ConnID, r.Event, r.RemoteAddr, r.Error, r.At)
	}

	results := j.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}
