// internal/state/inflight.go
package state

import (
	"sort"
	"time"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	fpmath "YieldVault/internal/math"
	"YieldVault/internal/types"
)

// OpKind distinguishes the two cross-chain operations.
type OpKind int32

const (
	OpKindInvest OpKind = iota + 1
	OpKindRedeem
)

func (k OpKind) String() string {
	switch k {
	case OpKindInvest:
		return "invest"
	case OpKindRedeem:
		return "redeem"
	default:
		return "unknown"
	}
}

// OpStatus is the lifecycle of a dispatched cross-chain operation.
type OpStatus int32

const (
	OpStatusDispatched OpStatus = iota
	OpStatusSettled
	OpStatusFailed
)

func (s OpStatus) String() string {
	switch s {
	case OpStatusDispatched:
		return "dispatched"
	case OpStatusSettled:
		return "settled"
	case OpStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CanTransitionTo validates status transitions. Settled and Failed are terminal.
func (s OpStatus) CanTransitionTo(next OpStatus) bool {
	validTransitions := map[OpStatus][]OpStatus{
		OpStatusDispatched: {
			OpStatusSettled,
			OpStatusFailed,
		},
	}

	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// VaultDelta is the optimistic change applied to one vault at dispatch.
type VaultDelta struct {
	VaultID types.VaultID `json:"vault_id"`
	ChainID types.ChainID `json:"chain_id"`
	Debt    sdkmath.Int   `json:"debt"`
	Shares  sdkmath.Int   `json:"shares"`
}

// Operation is the durable record of one dispatched cross-chain operation.
// For invests Assets is the amount still pending; for redeems it is the
// amount requested from the route.
type Operation struct {
	ID           uuid.UUID      `json:"id"`
	Kind         OpKind         `json:"kind"`
	Status       OpStatus       `json:"status"`
	Controller   common.Address `json:"controller"`
	Shape        string         `json:"shape,omitempty"`
	Shares       sdkmath.Int    `json:"shares"`
	Assets       sdkmath.Int    `json:"assets"`
	LocalAssets  sdkmath.Int    `json:"local_assets"`
	Deltas       []VaultDelta   `json:"deltas"`
	DispatchedAt time.Time      `json:"dispatched_at"`
	ResolvedAt   time.Time      `json:"resolved_at,omitempty"`
}

// InflightLedger tracks dispatched-but-unsettled cross-chain operations.
type InflightLedger struct {
	ops map[uuid.UUID]*Operation
	// Dispatch order, used for FIFO reversal of invest failures.
	order []uuid.UUID
}

func NewInflightLedger() *InflightLedger {
	return &InflightLedger{ops: make(map[uuid.UUID]*Operation)}
}

// Record stores a newly dispatched operation.
func (l *InflightLedger) Record(op *Operation) {
	op.Status = OpStatusDispatched
	l.ops[op.ID] = op
	l.order = append(l.order, op.ID)
}

// Get returns the operation for id.
func (l *InflightLedger) Get(id uuid.UUID) (*Operation, error) {
	op, ok := l.ops[id]
	if !ok {
		return nil, errorsmod.Wrapf(types.ErrUnknownOperation, "operation %s", id)
	}
	return op, nil
}

// Check verifies id is a pending operation of kind without changing it.
func (l *InflightLedger) Check(id uuid.UUID, kind OpKind) (*Operation, error) {
	op, err := l.Get(id)
	if err != nil {
		return nil, err
	}
	if op.Kind != kind {
		return nil, errorsmod.Wrapf(types.ErrUnknownOperation, "operation %s is %s, not %s", id, op.Kind, kind)
	}
	if op.Status != OpStatusDispatched {
		return nil, errorsmod.Wrapf(types.ErrOperationNotPending, "operation %s is %s", id, op.Status)
	}
	return op, nil
}

// Settle marks a pending operation settled.
func (l *InflightLedger) Settle(id uuid.UUID, kind OpKind, now time.Time) (*Operation, error) {
	return l.transition(id, kind, OpStatusSettled, now)
}

// Fail marks a pending operation failed. The caller reverses its deltas.
func (l *InflightLedger) Fail(id uuid.UUID, kind OpKind, now time.Time) (*Operation, error) {
	return l.transition(id, kind, OpStatusFailed, now)
}

func (l *InflightLedger) transition(id uuid.UUID, kind OpKind, next OpStatus, now time.Time) (*Operation, error) {
	op, err := l.Check(id, kind)
	if err != nil {
		return nil, err
	}
	if !op.Status.CanTransitionTo(next) {
		return nil, errorsmod.Wrapf(types.ErrOperationNotPending, "operation %s: %s -> %s", id, op.Status, next)
	}
	op.Status = next
	op.ResolvedAt = now
	return op, nil
}

// InvestReversal is the part of one invest operation undone by a failure.
type InvestReversal struct {
	OperationID uuid.UUID
	Assets      sdkmath.Int
	Shares      sdkmath.Int
}

// PlanInvestFailure works out, oldest first, which pending invests to
// vaultID an amount of failed assets reverses. amount is capped at the
// vault's pending total. Nothing is mutated.
func (l *InflightLedger) PlanInvestFailure(vaultID types.VaultID, amount sdkmath.Int) []InvestReversal {
	remaining := sdkmath.MinInt(amount, l.PendingInvest(vaultID))
	var out []InvestReversal
	for _, id := range l.order {
		if !remaining.IsPositive() {
			break
		}
		op := l.ops[id]
		if op.Kind != OpKindInvest || op.Status != OpStatusDispatched || len(op.Deltas) == 0 || op.Deltas[0].VaultID != vaultID {
			continue
		}

		take := sdkmath.MinInt(op.Assets, remaining)
		shares := op.Deltas[0].Shares
		if take.LT(op.Assets) {
			shares = fpmath.MulDiv(op.Deltas[0].Shares, take, op.Assets, fpmath.RoundDown)
		}
		out = append(out, InvestReversal{OperationID: id, Assets: take, Shares: shares})
		remaining = remaining.Sub(take)
	}
	return out
}

// ApplyInvestFailure applies reversals from PlanInvestFailure. Fully
// reversed operations become Failed; partial ones shrink.
func (l *InflightLedger) ApplyInvestFailure(reversals []InvestReversal, now time.Time) {
	for _, r := range reversals {
		op := l.ops[r.OperationID]
		op.Assets = op.Assets.Sub(r.Assets)
		op.Deltas[0].Debt = op.Deltas[0].Debt.Sub(r.Assets)
		op.Deltas[0].Shares = op.Deltas[0].Shares.Sub(r.Shares)
		if op.Assets.IsZero() {
			op.Status = OpStatusFailed
			op.ResolvedAt = now
		}
	}
}

// References reports whether any pending operation touches vaultID.
func (l *InflightLedger) References(vaultID types.VaultID) bool {
	for _, op := range l.ops {
		if op.Status != OpStatusDispatched {
			continue
		}
		for _, d := range op.Deltas {
			if d.VaultID == vaultID {
				return true
			}
		}
	}
	return false
}

// PendingInvest returns dispatched-but-unsettled invest assets for a vault.
func (l *InflightLedger) PendingInvest(vaultID types.VaultID) sdkmath.Int {
	total := sdkmath.ZeroInt()
	for _, op := range l.ops {
		if op.Kind == OpKindInvest && op.Status == OpStatusDispatched && len(op.Deltas) > 0 && op.Deltas[0].VaultID == vaultID {
			total = total.Add(op.Assets)
		}
	}
	return total
}

// TotalPendingXChainInvests sums every dispatched-but-unsettled invest.
func (l *InflightLedger) TotalPendingXChainInvests() sdkmath.Int {
	total := sdkmath.ZeroInt()
	for _, op := range l.ops {
		if op.Kind == OpKindInvest && op.Status == OpStatusDispatched {
			total = total.Add(op.Assets)
		}
	}
	return total
}

// Pending returns every dispatched operation in dispatch order.
func (l *InflightLedger) Pending() []*Operation {
	var out []*Operation
	for _, id := range l.order {
		if op := l.ops[id]; op.Status == OpStatusDispatched {
			out = append(out, op)
		}
	}
	return out
}

// All returns every known operation in dispatch order.
func (l *InflightLedger) All() []*Operation {
	out := make([]*Operation, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.ops[id])
	}
	return out
}

// Restore replaces the ledger, keeping dispatch order by DispatchedAt.
func (l *InflightLedger) Restore(ops []*Operation) {
	sorted := make([]*Operation, len(ops))
	copy(sorted, ops)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].DispatchedAt.Before(sorted[j].DispatchedAt) })

	l.ops = make(map[uuid.UUID]*Operation, len(sorted))
	l.order = make([]uuid.UUID, 0, len(sorted))
	for _, op := range sorted {
		l.ops[op.ID] = op
		l.order = append(l.order, op.ID)
	}
}
