package fees

import (
	"time"

	sdkmath "cosmossdk.io/math"

	fpmath "YieldVault/internal/math"
)

// ExitInput describes one position leaving the vault.
type ExitInput struct {
	Assets          sdkmath.Int // Gross assets being withdrawn
	Shares          sdkmath.Int // Shares those assets were redeemed from
	EntrySharePrice sdkmath.Int
	SharePrice      sdkmath.Int // Price the redemption was fulfilled at
	Watermark       sdkmath.Int
	Decimals        uint8
	LastRedeem      time.Time
	LastFeesCharged time.Time
	Now             time.Time
	Exemptions      Exemptions
}

// ExitResult is the fee breakdown plus what the receiver gets.
type ExitResult struct {
	Breakdown
	CostBasis sdkmath.Int `json:"cost_basis"`
	Net       sdkmath.Int `json:"net"`
}

// ExitFees computes management, oracle and performance fees on a
// withdrawal. Proration starts at the later of the position's last redeem
// and the last global charge so swept periods are not billed twice.
func ExitFees(in ExitInput, p Params) ExitResult {
	out := ExitResult{Breakdown: zeroBreakdown(), CostBasis: sdkmath.ZeroInt(), Net: in.Assets}
	if !in.Assets.IsPositive() {
		out.Net = sdkmath.ZeroInt()
		return out
	}

	since := in.LastRedeem
	if in.LastFeesCharged.After(since) {
		since = in.LastFeesCharged
	}
	duration := elapsed(since, in.Now)
	out.Duration = duration

	rates := p.Effective(in.Exemptions)
	out.Management = fpmath.Prorate(in.Assets, rates.ManagementBps, duration)
	out.Oracle = fpmath.Prorate(in.Assets, rates.OracleBps, duration)

	net := fpmath.SaturatingSub(in.Assets, out.Management.Add(out.Oracle))

	if !in.EntrySharePrice.IsNil() && !in.Shares.IsNil() {
		out.CostBasis = fpmath.MulDiv(in.Shares, in.EntrySharePrice, fpmath.Pow10(in.Decimals), fpmath.RoundDown)
	}

	totalReturn := net.Sub(out.CostBasis)
	if totalReturn.IsPositive() && in.SharePrice.GT(in.Watermark) {
		out.HurdleReturn = fpmath.Prorate(net, p.HurdleBps, duration)
		if totalReturn.GT(out.HurdleReturn) {
			out.Performance = fpmath.ApplyBps(totalReturn.Sub(out.HurdleReturn), rates.PerformanceBps)
		}
	}

	out.Net = fpmath.SaturatingSub(in.Assets, out.Total())
	return out
}
