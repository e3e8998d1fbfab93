package projection

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"YieldVault/internal/core"
	"YieldVault/internal/observability"
)

const workerID = "fee_history"

// ProjectionWorker maintains projections.fee_history from engine output.
// Its channel is fed with a non-blocking send; if it falls behind, the
// table is rebuilt from the event log with RebuildFeeHistory.
type ProjectionWorker struct {
	db        *sql.DB
	inputChan <-chan core.CoreOutput
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

func NewProjectionWorker(db *sql.DB, inputChan <-chan core.CoreOutput, metrics *observability.Metrics, logger zerolog.Logger) *ProjectionWorker {
	return &ProjectionWorker{
		db:        db,
		inputChan: inputChan,
		metrics:   metrics,
		logger:    logger,
	}
}

// Run starts the projection worker loop.
func (pw *ProjectionWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case output, ok := <-pw.inputChan:
			if !ok {
				return nil
			}
			rec, ok := FeeRecordFromOutput(output)
			if !ok {
				continue
			}
			if err := pw.apply(ctx, rec); err != nil {
				// Eventually consistent; a rebuild recovers anything missed.
				pw.logger.Warn().Err(err).Int64("sequence", rec.Sequence).Msg("fee projection update failed")
				if pw.metrics != nil {
					pw.metrics.ProjectionErrors.Inc()
				}
			}
		}
	}
}

func (pw *ProjectionWorker) apply(ctx context.Context, rec FeeRecord) error {
	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var controller sql.NullString
	if rec.Controller != "" {
		controller = sql.NullString{String: rec.Controller, Valid: true}
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.fee_history
			(sequence, kind, controller, management, oracle, performance, treasury_shares, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (sequence) DO NOTHING
	`, rec.Sequence, rec.Kind, controller,
		rec.Management.String(), rec.Oracle.String(), rec.Performance.String(), rec.TreasuryShares.String(),
		rec.Timestamp); err != nil {
		return fmt.Errorf("insert fee record: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.watermark (worker_id, last_sequence, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (worker_id) DO UPDATE
			SET last_sequence = GREATEST(projections.watermark.last_sequence, $2), updated_at = NOW()
	`, workerID, rec.Sequence); err != nil {
		return fmt.Errorf("watermark update: %w", err)
	}

	return tx.Commit()
}

// RebuildFeeHistory recreates projections.fee_history from the event log.
// It returns the number of rows written.
func RebuildFeeHistory(ctx context.Context, db *sql.DB) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `TRUNCATE projections.fee_history`); err != nil {
		return 0, fmt.Errorf("truncate: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO projections.fee_history
			(sequence, kind, controller, management, oracle, performance, treasury_shares, timestamp)
		SELECT sequence, 'global', NULL,
			(payload->>'management')::numeric,
			(payload->>'oracle')::numeric,
			(payload->>'performance')::numeric,
			(payload->>'treasury_shares')::numeric,
			timestamp
		FROM event_log.events
		WHERE event_type = 'GlobalFeesCharged'
		UNION ALL
		SELECT sequence, 'exit', payload->>'controller',
			(payload->>'management_fee')::numeric,
			(payload->>'oracle_fee')::numeric,
			(payload->>'performance_fee')::numeric,
			(payload->>'treasury_shares')::numeric,
			timestamp
		FROM event_log.events
		WHERE event_type = 'Redeemed'
			AND (payload->>'management_fee')::numeric
			  + (payload->>'oracle_fee')::numeric
			  + (payload->>'performance_fee')::numeric > 0
	`)
	if err != nil {
		return 0, fmt.Errorf("rebuild fee history: %w", err)
	}
	n, _ := res.RowsAffected()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.watermark (worker_id, last_sequence, updated_at)
		SELECT $1, COALESCE(MAX(sequence), -1), NOW() FROM event_log.events
		ON CONFLICT (worker_id) DO UPDATE SET last_sequence = EXCLUDED.last_sequence, updated_at = NOW()
	`, workerID); err != nil {
		return 0, fmt.Errorf("watermark update: %w", err)
	}

	return n, tx.Commit()
}
