package query

import (
	"encoding/json"
	"time"
)

// EventRecord is one logged engine event.
type EventRecord struct {
	Sequence       int64           `json:"sequence"`
	EventType      string          `json:"event_type"`
	IdempotencyKey string          `json:"idempotency_key"`
	Payload        json.RawMessage `json:"payload"`
	StateHash      string          `json:"state_hash"`
	Timestamp      time.Time       `json:"timestamp"`
}

// EventPage is a page of events, newest first. NextBefore is the cursor
// for the following page; zero when exhausted.
type EventPage struct {
	Events       []EventRecord `json:"events"`
	NextBefore   int64         `json:"next_before,omitempty"`
	AsOfSequence int64         `json:"as_of_sequence"`
}

// EventFilter narrows ListEvents. Zero values mean no filter.
type EventFilter struct {
	EventType   string
	Controller  string // lowercase hex, as stored in payloads
	OperationID string
	Before      int64 // exclusive upper bound on sequence
	Limit       int
}

// SnapshotInfo describes the newest stored snapshot.
type SnapshotInfo struct {
	Sequence  int64     `json:"sequence"`
	StateHash string    `json:"state_hash"`
	SizeBytes int       `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// IntegrityReport is the result of an integrity verification check.
type IntegrityReport struct {
	IsHealthy       bool    `json:"is_healthy"`
	LatestSequence  int64   `json:"latest_sequence"`
	HashChainBreaks []int64 `json:"hash_chain_breaks,omitempty"`
	SequenceGaps    []int64 `json:"sequence_gaps,omitempty"`
	// SnapshotMismatch is set when the newest snapshot's hash differs from
	// the event it claims to follow.
	SnapshotMismatch bool `json:"snapshot_mismatch,omitempty"`
}

// FeeEntry is one fee charge from the fee-history read model. Amounts are
// decimal strings in the vault's asset units.
type FeeEntry struct {
	Sequence       int64     `json:"sequence"`
	Kind           string    `json:"kind"`
	Controller     string    `json:"controller,omitempty"`
	Management     string    `json:"management"`
	Oracle         string    `json:"oracle"`
	Performance    string    `json:"performance"`
	TreasuryShares string    `json:"treasury_shares"`
	Timestamp      time.Time `json:"timestamp"`
}

// FeePage is a page of fee charges, newest first. ProjectedThrough is the
// last event sequence the read model has seen, -1 if none.
type FeePage struct {
	Fees             []FeeEntry `json:"fees"`
	NextBefore       int64      `json:"next_before,omitempty"`
	ProjectedThrough int64      `json:"projected_through"`
}

// FeeFilter narrows FeeHistory. Zero values mean no filter.
type FeeFilter struct {
	Kind       string
	Controller string
	Before     int64
	Limit      int
}
