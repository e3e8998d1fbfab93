package query

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"YieldVault/internal/observability"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// QueryService provides read-only access to the event log and snapshots.
// Every page carries as_of_sequence so callers can tell how fresh it is.
type QueryService struct {
	db      *pgxpool.Pool
	metrics *observability.Metrics
}

func NewQueryService(db *pgxpool.Pool, metrics *observability.Metrics) *QueryService {
	return &QueryService{db: db, metrics: metrics}
}

// ListEvents returns events matching f, newest first.
func (qs *QueryService) ListEvents(ctx context.Context, f EventFilter) (page *EventPage, err error) {
	defer qs.observe("list_events", time.Now(), &err)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	asOf, err := qs.latestSequence(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest sequence: %w", err)
	}

	query, args := buildEventQuery(f)
	rows, err := qs.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	page = &EventPage{Events: make([]EventRecord, 0), AsOfSequence: asOf}
	for rows.Next() {
		var (
			e    EventRecord
			hash []byte
		)
		if err := rows.Scan(&e.Sequence, &e.EventType, &e.IdempotencyKey, &e.Payload, &hash, &e.Timestamp); err != nil {
			return nil, err
		}
		e.StateHash = hex.EncodeToString(hash)
		page.Events = append(page.Events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if n := len(page.Events); n > 0 && n == clampLimit(f.Limit) {
		page.NextBefore = page.Events[n-1].Sequence
	}
	return page, nil
}

// ControllerHistory lists every event naming controller.
func (qs *QueryService) ControllerHistory(ctx context.Context, controller common.Address, before int64, limit int) (*EventPage, error) {
	return qs.ListEvents(ctx, EventFilter{
		Controller: strings.ToLower(controller.Hex()),
		Before:     before,
		Limit:      limit,
	})
}

// OperationHistory lists the dispatch and resolution events of one
// cross-chain operation.
func (qs *QueryService) OperationHistory(ctx context.Context, id uuid.UUID) (*EventPage, error) {
	return qs.ListEvents(ctx, EventFilter{OperationID: id.String(), Limit: maxLimit})
}

func buildEventQuery(f EventFilter) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	add := func(clause string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if f.EventType != "" {
		add("event_type = $%d", f.EventType)
	}
	if f.Controller != "" {
		add("payload->>'controller' = $%d", f.Controller)
	}
	if f.OperationID != "" {
		add("payload->>'operation_id' = $%d", f.OperationID)
	}
	if f.Before > 0 {
		add("sequence < $%d", f.Before)
	}

	query := `SELECT sequence, event_type, idempotency_key, payload, state_hash, timestamp
		FROM event_log.events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, clampLimit(f.Limit))
	query += fmt.Sprintf(" ORDER BY sequence DESC LIMIT $%d", len(args))
	return query, args
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultLimit
	case limit > maxLimit:
		return maxLimit
	}
	return limit
}

// FeeHistory reads projections.fee_history, newest first.
func (qs *QueryService) FeeHistory(ctx context.Context, f FeeFilter) (page *FeePage, err error) {
	defer qs.observe("fee_history", time.Now(), &err)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	page = &FeePage{Fees: make([]FeeEntry, 0), ProjectedThrough: -1}
	err = qs.db.QueryRow(ctx, `
		SELECT COALESCE(MAX(last_sequence), -1) FROM projections.watermark WHERE worker_id = 'fee_history'
	`).Scan(&page.ProjectedThrough)
	if err != nil {
		return nil, fmt.Errorf("projection watermark: %w", err)
	}

	query, args := buildFeeQuery(f)
	rows, err := qs.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	page.Fees, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (FeeEntry, error) {
		var (
			e          FeeEntry
			controller *string
		)
		err := row.Scan(&e.Sequence, &e.Kind, &controller,
			&e.Management, &e.Oracle, &e.Performance, &e.TreasuryShares, &e.Timestamp)
		if controller != nil {
			e.Controller = *controller
		}
		return e, err
	})
	if err != nil {
		return nil, err
	}

	if n := len(page.Fees); n > 0 && n == clampLimit(f.Limit) {
		page.NextBefore = page.Fees[n-1].Sequence
	}
	return page, nil
}

func buildFeeQuery(f FeeFilter) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	add := func(clause string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if f.Kind != "" {
		add("kind = $%d", f.Kind)
	}
	if f.Controller != "" {
		add("controller = $%d", f.Controller)
	}
	if f.Before > 0 {
		add("sequence < $%d", f.Before)
	}

	query := `SELECT sequence, kind, controller, management::text, oracle::text,
			performance::text, treasury_shares::text, timestamp
		FROM projections.fee_history`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, clampLimit(f.Limit))
	query += fmt.Sprintf(" ORDER BY sequence DESC LIMIT $%d", len(args))
	return query, args
}

// LatestSnapshot describes the newest snapshot, or nil if none exists.
func (qs *QueryService) LatestSnapshot(ctx context.Context) (info *SnapshotInfo, err error) {
	defer qs.observe("latest_snapshot", time.Now(), &err)
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var (
		s    SnapshotInfo
		hash []byte
	)
	err = qs.db.QueryRow(ctx, `
		SELECT sequence, state_hash, size_bytes, created_at
		FROM event_log.snapshots
		ORDER BY sequence DESC
		LIMIT 1
	`).Scan(&s.Sequence, &hash, &s.SizeBytes, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.StateHash = hex.EncodeToString(hash)
	return &s, nil
}

// --- Admin APIs ---

// VerifyIntegrity checks hash chain continuity, sequence gaps and that the
// newest snapshot sits on the chain.
func (qs *QueryService) VerifyIntegrity(ctx context.Context) (report *IntegrityReport, err error) {
	defer qs.observe("verify_integrity", time.Now(), &err)
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	report = &IntegrityReport{}
	if report.LatestSequence, err = qs.latestSequence(ctx); err != nil {
		return nil, err
	}

	if report.HashChainBreaks, err = qs.collectSequences(ctx, `
		SELECT e1.sequence
		FROM event_log.events e1
		JOIN event_log.events e2 ON e2.sequence = e1.sequence - 1
		WHERE e1.prev_hash <> e2.state_hash
		ORDER BY e1.sequence
		LIMIT 10
	`); err != nil {
		return nil, fmt.Errorf("hash chain: %w", err)
	}

	if report.SequenceGaps, err = qs.collectSequences(ctx, `
		SELECT e1.sequence
		FROM event_log.events e1
		LEFT JOIN event_log.events e2 ON e2.sequence = e1.sequence - 1
		WHERE e1.sequence > 0 AND e2.sequence IS NULL
		ORDER BY e1.sequence
		LIMIT 10
	`); err != nil {
		return nil, fmt.Errorf("sequence gaps: %w", err)
	}

	var mismatch bool
	err = qs.db.QueryRow(ctx, `
		SELECT COALESCE(bool_or(s.state_hash <> e.state_hash), FALSE)
		FROM (SELECT sequence, state_hash FROM event_log.snapshots ORDER BY sequence DESC LIMIT 1) s
		JOIN event_log.events e ON e.sequence = s.sequence - 1
	`).Scan(&mismatch)
	if err != nil {
		return nil, fmt.Errorf("snapshot tip: %w", err)
	}
	report.SnapshotMismatch = mismatch

	report.IsHealthy = len(report.HashChainBreaks) == 0 && len(report.SequenceGaps) == 0 && !mismatch
	return report, nil
}

// --- helpers ---

func (qs *QueryService) collectSequences(ctx context.Context, query string) ([]int64, error) {
	rows, err := qs.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func (qs *QueryService) latestSequence(ctx context.Context) (int64, error) {
	var seq int64
	err := qs.db.QueryRow(ctx, `SELECT COALESCE(MAX(sequence), -1) FROM event_log.events`).Scan(&seq)
	return seq, err
}

func (qs *QueryService) observe(method string, start time.Time, err *error) {
	if qs.metrics == nil {
		return
	}
	qs.metrics.QueryRequests.WithLabelValues(method).Inc()
	qs.metrics.QueryDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if *err != nil {
		code := "internal"
		if errors.Is(*err, context.DeadlineExceeded) {
			code = "timeout"
		}
		qs.metrics.QueryErrors.WithLabelValues(method, code).Inc()
	}
}
