// internal/fees/fees.go
package fees

import (
	"time"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"

	fpmath "YieldVault/internal/math"
	"YieldVault/internal/types"
)

// Params are the annualized fee rates in basis points.
type Params struct {
	ManagementBps  uint64 `json:"management_bps"`
	PerformanceBps uint64 `json:"performance_bps"`
	OracleBps      uint64 `json:"oracle_bps"`
	HurdleBps      uint64 `json:"hurdle_bps"`
}

// Validate checks every rate is within 0..100%.
func (p Params) Validate() error {
	for name, bps := range map[string]uint64{
		"management":  p.ManagementBps,
		"performance": p.PerformanceBps,
		"oracle":      p.OracleBps,
		"hurdle":      p.HurdleBps,
	} {
		if bps > fpmath.BpsDenominator {
			return errorsmod.Wrapf(types.ErrInvalidBps, "%s rate %d", name, bps)
		}
	}
	return nil
}

// Exemptions are per-controller discounts subtracted from each rate.
// Values above the rate are stored as given and floored when applied.
type Exemptions struct {
	ManagementBps  uint64 `json:"management_bps"`
	PerformanceBps uint64 `json:"performance_bps"`
	OracleBps      uint64 `json:"oracle_bps"`
}

// Validate only bounds exemptions by 100%.
func (e Exemptions) Validate() error {
	if e.ManagementBps > fpmath.BpsDenominator || e.PerformanceBps > fpmath.BpsDenominator || e.OracleBps > fpmath.BpsDenominator {
		return errorsmod.Wrapf(types.ErrInvalidBps, "exemption (%d, %d, %d)", e.ManagementBps, e.PerformanceBps, e.OracleBps)
	}
	return nil
}

// Effective returns the rates after subtracting e, saturating at zero.
func (p Params) Effective(e Exemptions) Params {
	return Params{
		ManagementBps:  fpmath.SaturatingSubBps(p.ManagementBps, e.ManagementBps),
		PerformanceBps: fpmath.SaturatingSubBps(p.PerformanceBps, e.PerformanceBps),
		OracleBps:      fpmath.SaturatingSubBps(p.OracleBps, e.OracleBps),
		HurdleBps:      p.HurdleBps,
	}
}

// Breakdown itemizes one fee computation.
type Breakdown struct {
	Management   sdkmath.Int `json:"management"`
	Oracle       sdkmath.Int `json:"oracle"`
	Performance  sdkmath.Int `json:"performance"`
	HurdleReturn sdkmath.Int `json:"hurdle_return"`
	Duration     int64       `json:"duration_seconds"`
}

// Total sums the three fee kinds.
func (b Breakdown) Total() sdkmath.Int {
	return b.Management.Add(b.Oracle).Add(b.Performance)
}

func zeroBreakdown() Breakdown {
	return Breakdown{
		Management:   sdkmath.ZeroInt(),
		Oracle:       sdkmath.ZeroInt(),
		Performance:  sdkmath.ZeroInt(),
		HurdleReturn: sdkmath.ZeroInt(),
	}
}

func elapsed(from, to time.Time) int64 {
	if from.IsZero() || !to.After(from) {
		return 0
	}
	return int64(to.Sub(from) / time.Second)
}
