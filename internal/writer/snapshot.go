package writer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rickgao/portfolio-sync/internal/config"
	"github.com/rickgao/portfolio-sync/internal/metrics"
	"github.com/rickgao/portfolio-sync/internal/router"
	"github.com/rickgao/portfolio-sync/internal/store"
)

const insertSnapshotSQL = `
	INSERT INTO resource_snapshots (id, session_id, instance_id, resource, version, source, payload, observed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

// BatchSender sends a queued batch. *pgxpool.Pool satisfies it.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type snapshotRow struct {
	ID         uuid.UUID
	Resource   string
	Version    int64
	Source     string
	Payload    []byte
	ObservedAt time.Time
}

// SnapshotWriter appends store changes to the resource_snapshots table.
type SnapshotWriter struct {
	cfg       Config
	db        BatchSender
	sessionID uuid.UUID
	logger    *slog.Logger

	input *router.GrowableBuffer[store.Change]

	// Owned by the consume loop until it exits, then by Stop.
	batch []snapshotRow

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	stats Stats
}

// NewSnapshotWriter creates a writer. Call Observe for each change, usually
// by passing it to store.Subscribe.
func NewSnapshotWriter(cfg Config, db BatchSender, logger *slog.Logger) *SnapshotWriter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = cfg.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = config.DefaultFlushInterval
	}

	initial := min(cfg.BatchSize, cfg.BufferSize)
	return &SnapshotWriter{
		cfg:       cfg,
		db:        db,
		sessionID: uuid.New(),
		logger:    logger,
		input:     router.NewGrowableBuffer[store.Change](initial, cfg.BufferSize),
		batch:     make([]snapshotRow, 0, cfg.BatchSize),
	}
}

// SessionID identifies this process run in recorded rows.
func (w *SnapshotWriter) SessionID() uuid.UUID {
	return w.sessionID
}

// Observe queues a change. It never blocks; when the queue is full the
// oldest change is dropped.
func (w *SnapshotWriter) Observe(c store.Change) {
	accepted := w.input.Send(c)

	w.mu.Lock()
	w.stats.Received++
	if !accepted {
		w.stats.Dropped++
	}
	w.mu.Unlock()

	metrics.RecorderQueueDepth.Set(float64(w.input.Len()))
}

// Start begins consuming queued changes.
func (w *SnapshotWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.consumeLoop()

	w.logger.Info("snapshot writer started",
		"session_id", w.sessionID,
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop stops consuming and flushes what is left using ctx.
func (w *SnapshotWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping snapshot writer")

	if w.cancel != nil {
		w.cancel()
	}
	w.input.Close()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("snapshot writer stop timed out")
		return ctx.Err()
	}

	w.collect(0)
	for len(w.batch) > 0 {
		if err := w.flush(ctx); err != nil {
			return err
		}
		w.collect(0)
	}

	w.logger.Info("snapshot writer stopped")
	return nil
}

// Stats returns current counters.
func (w *SnapshotWriter) Stats() Stats {
	w.mu.Lock()
	stats := w.stats
	w.mu.Unlock()

	stats.Dropped += w.input.Stats().Dropped
	return stats
}

func (w *SnapshotWriter) consumeLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.input.Ready():
			w.collect(w.cfg.BatchSize - len(w.batch))
			if len(w.batch) >= w.cfg.BatchSize {
				w.flush(w.ctx)
			}
		case <-ticker.C:
			w.flush(w.ctx)
		}
	}
}

// collect moves up to max queued changes into the batch.
func (w *SnapshotWriter) collect(max int) {
	if max < 0 {
		return
	}
	for _, c := range w.input.DrainTo(max) {
		row, err := w.transform(c)
		if err != nil {
			w.logger.Error("encode snapshot", "resource", c.Resource, "version", c.Version, "error", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
			metrics.RecorderErrors.Inc()
			continue
		}
		w.batch = append(w.batch, row)
	}
	metrics.RecorderQueueDepth.Set(float64(w.input.Len()))
}

// transform converts a store change into a table row.
func (w *SnapshotWriter) transform(c store.Change) (snapshotRow, error) {
	payload, err := json.Marshal(c.Value)
	if err != nil {
		return snapshotRow{}, err
	}
	return snapshotRow{
		ID:         uuid.New(),
		Resource:   c.Resource.String(),
		Version:    int64(c.Version),
		Source:     string(c.Source),
		Payload:    payload,
		ObservedAt: c.At.UTC(),
	}, nil
}

// flush writes the current batch. A failed batch is logged and discarded.
func (w *SnapshotWriter) flush(ctx context.Context) error {
	if len(w.batch) == 0 {
		return nil
	}

	rows := w.batch
	w.batch = make([]snapshotRow, 0, w.cfg.BatchSize)

	start := time.Now()
	err := w.batchInsert(ctx, rows)
	metrics.RecorderFlushDuration.Observe(time.Since(start).Seconds())

	w.mu.Lock()
	defer w.mu.Unlock()

	if err != nil {
		w.stats.Errors++
		metrics.RecorderErrors.Inc()
		w.logger.Error("batch insert failed", "error", err, "count", len(rows))
		return err
	}

	w.stats.Inserts += int64(len(rows))
	w.stats.Flushes++
	metrics.RecorderBatchSize.Observe(float64(len(rows)))

	w.logger.Debug("flushed snapshots",
		"count", len(rows),
		"duration", time.Since(start),
	)
	return nil
}

// batchInsert inserts rows using pgx.Batch.
func (w *SnapshotWriter) batchInsert(ctx context.Context, rows []snapshotRow) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertSnapshotSQL,
			r.ID, w.sessionID, w.cfg.InstanceID, r.Resource, r.Version, r.Source, r.Payload, r.ObservedAt)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for i := range rows {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert snapshot %d of %d: %w", i+1, len(rows), err)
		}
	}
	return nil
}
