package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"YieldVault/internal/core"
	"YieldVault/internal/observability"
)

// PersistenceWorker drains the persist channel and batch-writes to Postgres.
// The engine sends on that channel with a blocking send, so a slow worker
// stalls the engine instead of losing events.
type PersistenceWorker struct {
	db           *sql.DB
	writer       *EventLogWriter
	inputChan    <-chan core.CoreOutput
	batchSize    int
	flushTimeout time.Duration
	metrics      *observability.Metrics
	logger       zerolog.Logger
}

func NewPersistenceWorker(
	db *sql.DB,
	inputChan <-chan core.CoreOutput,
	batchSize int,
	flushTimeout time.Duration,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *PersistenceWorker {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &PersistenceWorker{
		db:           db,
		writer:       NewEventLogWriter(db),
		inputChan:    inputChan,
		batchSize:    batchSize,
		flushTimeout: flushTimeout,
		metrics:      metrics,
		logger:       logger,
	}
}

// Run batches incoming outputs and flushes when the batch is full or the
// flush timeout expires. Blocks until ctx is cancelled or the input closes.
func (pw *PersistenceWorker) Run(ctx context.Context) error {
	batch := make([]EventRow, 0, pw.batchSize)

	timer := time.NewTimer(pw.flushTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			if len(batch) > 0 {
				if err := pw.flush(context.Background(), batch); err != nil {
					pw.logger.Error().Err(err).Int("events", len(batch)).Msg("final flush failed")
				}
			}
			return ctx.Err()

		case output, ok := <-pw.inputChan:
			if !ok {
				if len(batch) > 0 {
					if err := pw.flush(context.Background(), batch); err != nil {
						pw.logger.Error().Err(err).Int("events", len(batch)).Msg("final flush failed")
					}
				}
				return nil
			}

			batch = append(batch, RowFromOutput(output))
			if len(batch) >= pw.batchSize {
				if err := pw.flushWithRetry(ctx, batch); err != nil {
					pw.logger.Error().Err(err).Msg("batch flush failed after retries")
				}
				batch = batch[:0]
				timer.Reset(pw.flushTimeout)
			}

		case <-timer.C:
			if len(batch) > 0 {
				if err := pw.flushWithRetry(ctx, batch); err != nil {
					pw.logger.Error().Err(err).Msg("timeout flush failed after retries")
				}
				batch = batch[:0]
			}
			timer.Reset(pw.flushTimeout)
		}
	}
}

// flushWithRetry retries with exponential backoff until the write succeeds
// or ctx ends. It never drops a batch.
func (pw *PersistenceWorker) flushWithRetry(ctx context.Context, events []EventRow) error {
	backoff := 100 * time.Millisecond
	const maxBackoff = 30 * time.Second

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			pw.logger.Warn().
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Int("events", len(events)).
				Msg("persistence retry")
			select {
			case <-ctx.Done():
				// One last try outside the cancelled context.
				if err := pw.flush(context.Background(), events); err != nil {
					return fmt.Errorf("final flush on shutdown failed: %w", err)
				}
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}

		err := pw.flush(ctx, events)
		if err == nil {
			if attempt > 0 {
				pw.logger.Info().Int("retries", attempt).Msg("persistence flush succeeded")
			}
			return nil
		}

		if pw.metrics != nil {
			pw.metrics.PersistRetry.Inc()
		}
	}
}

func (pw *PersistenceWorker) flush(ctx context.Context, events []EventRow) error {
	start := time.Now()

	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		pw.countError("tx_begin")
		return err
	}
	defer tx.Rollback()

	if err := pw.writer.WriteEventBatch(ctx, tx, events); err != nil {
		pw.countError("write_events")
		return err
	}

	if err := tx.Commit(); err != nil {
		pw.countError("tx_commit")
		return err
	}

	if pw.metrics != nil {
		pw.metrics.PersistBatchDur.Observe(time.Since(start).Seconds())
		pw.metrics.PersistBatchSize.Observe(float64(len(events)))
		pw.metrics.PersistEventsWritten.Add(float64(len(events)))
		pw.metrics.PersistLastSequence.Set(float64(events[len(events)-1].Sequence))
	}
	return nil
}

func (pw *PersistenceWorker) countError(stage string) {
	if pw.metrics != nil {
		pw.metrics.PersistErrors.WithLabelValues(stage).Inc()
	}
}
