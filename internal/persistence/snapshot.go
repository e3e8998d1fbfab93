package persistence

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"YieldVault/internal/core"
	"YieldVault/internal/observability"
)

// snapshotFormat is bumped whenever core.Snapshot changes incompatibly.
const snapshotFormat = 1

// ErrLogAheadOfSnapshot means events were logged after the newest snapshot.
// The engine cannot replay them (their effects depend on external calls),
// so startup stops and an operator reconciles.
var ErrLogAheadOfSnapshot = errors.New("event log is ahead of the latest snapshot")

// SnapshotStore saves and loads engine snapshots.
type SnapshotStore struct {
	db      *sql.DB
	metrics *observability.Metrics
}

func NewSnapshotStore(db *sql.DB, metrics *observability.Metrics) *SnapshotStore {
	return &SnapshotStore{db: db, metrics: metrics}
}

// Save persists snap. A second snapshot at the same sequence replaces the first.
func (s *SnapshotStore) Save(ctx context.Context, snap *core.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO event_log.snapshots
			(snapshot_id, sequence, data, state_hash, format_version, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (sequence) DO UPDATE SET data = $3, state_hash = $4, size_bytes = $6, created_at = $7
	`, uuid.New(), snap.Sequence, data, snap.StateHash[:], snapshotFormat, len(data), snap.CreatedAt)
	if err != nil {
		return fmt.Errorf("save snapshot %d: %w", snap.Sequence, err)
	}

	if s.metrics != nil {
		s.metrics.SnapshotTaken.Inc()
		s.metrics.SnapshotSizeBytes.Set(float64(len(data)))
	}
	return nil
}

// LoadLatest returns the newest snapshot, or nil on a cold start.
func (s *SnapshotStore) LoadLatest(ctx context.Context) (*core.Snapshot, error) {
	var (
		data    []byte
		version int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT data, format_version FROM event_log.snapshots
		ORDER BY sequence DESC
		LIMIT 1
	`).Scan(&data, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if version != snapshotFormat {
		return nil, fmt.Errorf("snapshot format %d, expected %d", version, snapshotFormat)
	}

	var snap core.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// LoadEventsFrom loads up to limit events starting at fromSequence.
func (s *SnapshotStore) LoadEventsFrom(ctx context.Context, fromSequence int64, limit int) ([]EventRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sequence, event_type, idempotency_key, payload, state_hash, prev_hash, timestamp
		FROM event_log.events
		WHERE sequence >= $1
		ORDER BY sequence ASC
		LIMIT $2
	`, fromSequence, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []EventRow
	for rows.Next() {
		var e EventRow
		if err := rows.Scan(
			&e.Sequence, &e.EventType, &e.IdempotencyKey,
			&e.Payload, &e.StateHash, &e.PrevHash, &e.Timestamp,
		); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// LatestSequence returns the highest logged sequence, or -1 for an empty log.
func (s *SnapshotStore) LatestSequence(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(sequence) FROM event_log.events`).Scan(&seq); err != nil {
		return 0, err
	}
	if !seq.Valid {
		return -1, nil
	}
	return seq.Int64, nil
}

// CheckRecoverable verifies that snap is the tip of the event log: nothing
// was logged after it and the last logged event carries the snapshot's hash.
// A nil snap is recoverable only from an empty log.
func (s *SnapshotStore) CheckRecoverable(ctx context.Context, snap *core.Snapshot) error {
	latest, err := s.LatestSequence(ctx)
	if err != nil {
		return fmt.Errorf("latest sequence: %w", err)
	}

	next := int64(0)
	if snap != nil {
		next = snap.Sequence
	}
	if latest >= next {
		return fmt.Errorf("%w: log at %d, snapshot resumes at %d", ErrLogAheadOfSnapshot, latest, next)
	}
	if snap == nil || latest < 0 {
		return nil
	}

	tail, err := s.LoadEventsFrom(ctx, latest, 1)
	if err != nil {
		return fmt.Errorf("load tail event: %w", err)
	}
	if len(tail) == 1 && tail[0].Sequence == snap.Sequence-1 && !bytes.Equal(tail[0].StateHash, snap.StateHash[:]) {
		return fmt.Errorf("snapshot hash %s does not match event %d hash %s",
			hex.EncodeToString(snap.StateHash[:]), tail[0].Sequence, hex.EncodeToString(tail[0].StateHash))
	}
	return nil
}

// VerifyChain checks that every event links to its predecessor's hash,
// starting from prev.
func VerifyChain(prev []byte, events []EventRow) error {
	for _, e := range events {
		if prev != nil && !bytes.Equal(e.PrevHash, prev) {
			return fmt.Errorf("hash chain broken at sequence %d", e.Sequence)
		}
		prev = e.StateHash
	}
	return nil
}
