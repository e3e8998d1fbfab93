package fees

import (
	"time"

	sdkmath "cosmossdk.io/math"

	fpmath "YieldVault/internal/math"
)

// GlobalInput is the vault-wide state read by a periodic accrual.
type GlobalInput struct {
	TotalAssets     sdkmath.Int
	TotalSupply     sdkmath.Int
	Watermark       sdkmath.Int
	Decimals        uint8
	LastFeesCharged time.Time
	Now             time.Time
}

// SharePrice is total assets per whole share, 10^decimals when no supply.
func (in GlobalInput) SharePrice() sdkmath.Int {
	unit := fpmath.Pow10(in.Decimals)
	if !in.TotalSupply.IsPositive() {
		return unit
	}
	return fpmath.MulDiv(in.TotalAssets, unit, in.TotalSupply, fpmath.RoundDown)
}

// ChargeGlobal computes the fees accrued since the last global charge.
// Management and oracle fees are added to total assets before the
// performance check, and performance is measured against the assets
// implied by the watermark price.
func ChargeGlobal(in GlobalInput, p Params) Breakdown {
	out := zeroBreakdown()
	duration := elapsed(in.LastFeesCharged, in.Now)
	out.Duration = duration
	if duration == 0 {
		return out
	}

	out.Management = fpmath.Prorate(in.TotalAssets, p.ManagementBps, duration)
	out.Oracle = fpmath.Prorate(in.TotalAssets, p.OracleBps, duration)

	adjusted := in.TotalAssets.Add(out.Management).Add(out.Oracle)
	previous := fpmath.MulDiv(in.Watermark, in.TotalSupply, fpmath.Pow10(in.Decimals), fpmath.RoundDown)

	delta := adjusted.Sub(previous)
	if !delta.IsPositive() {
		return out
	}

	out.HurdleReturn = fpmath.Prorate(previous, p.HurdleBps, duration)
	if in.SharePrice().GT(in.Watermark) && delta.GT(out.HurdleReturn) {
		out.Performance = fpmath.ApplyBps(delta.Sub(out.HurdleReturn), p.PerformanceBps)
	}
	return out
}
