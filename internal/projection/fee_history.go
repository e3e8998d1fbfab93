package projection

import (
	"strings"
	"time"

	sdkmath "cosmossdk.io/math"

	"YieldVault/internal/core"
	"YieldVault/internal/event"
)

// Fee record kinds.
const (
	KindGlobal = "global"
	KindExit   = "exit"
)

// FeeRecord is one row of projections.fee_history. Controller is empty for
// global accruals.
type FeeRecord struct {
	Sequence       int64
	Kind           string
	Controller     string
	Management     sdkmath.Int
	Oracle         sdkmath.Int
	Performance    sdkmath.Int
	TreasuryShares sdkmath.Int
	Timestamp      time.Time
}

// Total is the sum of the three fee components, in assets.
func (r FeeRecord) Total() sdkmath.Int {
	return r.Management.Add(r.Oracle).Add(r.Performance)
}

// FeeRecordFromOutput extracts the fee charge carried by out, if any.
// Exit events with no fee at all are skipped.
func FeeRecordFromOutput(out core.CoreOutput) (FeeRecord, bool) {
	rec := FeeRecord{Sequence: out.Envelope.Sequence, Timestamp: out.Envelope.Timestamp}

	switch e := out.Event.(type) {
	case *event.GlobalFeesCharged:
		rec.Kind = KindGlobal
		rec.Management, rec.Oracle, rec.Performance = e.Management, e.Oracle, e.Performance
		rec.TreasuryShares = e.TreasuryShares
	case *event.Redeemed:
		rec.Kind = KindExit
		rec.Controller = strings.ToLower(e.Controller.Hex())
		rec.Management, rec.Oracle, rec.Performance = e.ManagementFee, e.OracleFee, e.PerformanceFee
		rec.TreasuryShares = e.TreasuryShares
	default:
		return FeeRecord{}, false
	}

	for _, v := range []*sdkmath.Int{&rec.Management, &rec.Oracle, &rec.Performance, &rec.TreasuryShares} {
		if v.IsNil() {
			*v = sdkmath.ZeroInt()
		}
	}
	if rec.Kind == KindExit && rec.Total().IsZero() {
		return FeeRecord{}, false
	}
	return rec, true
}
