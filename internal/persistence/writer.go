package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"YieldVault/internal/core"
)

// EventRow represents a row in event_log.events.
type EventRow struct {
	Sequence       int64
	EventType      string
	IdempotencyKey string
	Payload        []byte // JSON-encoded event payload
	StateHash      []byte
	PrevHash       []byte
	Timestamp      time.Time
}

// RowFromOutput flattens an engine output into its event log row.
func RowFromOutput(out core.CoreOutput) EventRow {
	env := out.Envelope
	return EventRow{
		Sequence:       env.Sequence,
		EventType:      env.EventType.String(),
		IdempotencyKey: env.IdempotencyKey,
		Payload:        env.Payload,
		StateHash:      append([]byte(nil), env.StateHash[:]...),
		PrevHash:       append([]byte(nil), env.PrevHash[:]...),
		Timestamp:      env.Timestamp,
	}
}

// EventLogWriter writes envelopes to Postgres using multi-row INSERT.
type EventLogWriter struct {
	db *sql.DB
}

func NewEventLogWriter(db *sql.DB) *EventLogWriter {
	return &EventLogWriter{db: db}
}

const eventColumns = 7

// WriteEventBatch inserts events inside tx. Rows already present (same
// sequence) are skipped so a retried batch is harmless.
func (w *EventLogWriter) WriteEventBatch(ctx context.Context, tx *sql.Tx, events []EventRow) error {
	if len(events) == 0 {
		return nil
	}

	query, args := buildEventInsert(events)
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

func buildEventInsert(events []EventRow) (string, []interface{}) {
	values := make([]string, 0, len(events))
	args := make([]interface{}, 0, len(events)*eventColumns)

	for i, e := range events {
		base := i * eventColumns
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7,
		))
		args = append(args,
			e.Sequence, e.EventType, e.IdempotencyKey,
			e.Payload, e.StateHash, e.PrevHash, e.Timestamp,
		)
	}

	query := `INSERT INTO event_log.events
		(sequence, event_type, idempotency_key, payload, state_hash, prev_hash, timestamp)
		VALUES ` + strings.Join(values, ", ") + ` ON CONFLICT (sequence) DO NOTHING`
	return query, args
}

// MarshalPayload JSON-encodes v, falling back to an empty object.
func MarshalPayload(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
