package fees_test

import (
	"testing"
	"time"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"YieldVault/internal/fees"
	"YieldVault/internal/types"
)

var (
	t0    = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	day   = 24 * time.Hour
	year  = 365 * day
	units = func(n int64) sdkmath.Int { return sdkmath.NewInt(n).MulRaw(1_000_000) }
)

func globalInput(totalAssets sdkmath.Int, elapsed time.Duration) fees.GlobalInput {
	return fees.GlobalInput{
		TotalAssets:     totalAssets,
		TotalSupply:     units(1000),
		Watermark:       sdkmath.NewInt(1_000_000),
		Decimals:        6,
		LastFeesCharged: t0,
		Now:             t0.Add(elapsed),
	}
}

func TestChargeGlobal_ManagementAndOracleProration(t *testing.T) {
	p := fees.Params{ManagementBps: 200, OracleBps: 100}
	out := fees.ChargeGlobal(globalInput(units(1000), year), p)

	assert.Equal(t, units(20), out.Management)
	assert.Equal(t, units(10), out.Oracle)
	assert.True(t, out.Performance.IsZero(), "price at watermark pays no performance")
	assert.Equal(t, units(30), out.Total())
	assert.Equal(t, int64(year/time.Second), out.Duration)
}

func TestChargeGlobal_Monotonic(t *testing.T) {
	p := fees.Params{ManagementBps: 150, OracleBps: 25}

	prev := fees.ChargeGlobal(globalInput(units(1000), time.Hour), p)
	for _, d := range []time.Duration{day, 7 * day, 30 * day, year} {
		cur := fees.ChargeGlobal(globalInput(units(1000), d), p)
		assert.True(t, cur.Management.GT(prev.Management), "duration %s", d)
		assert.True(t, cur.Oracle.GT(prev.Oracle), "duration %s", d)
		prev = cur
	}

	small := fees.ChargeGlobal(globalInput(units(1000), 30*day), p)
	large := fees.ChargeGlobal(globalInput(units(2000), 30*day), p)
	assert.True(t, large.Management.GT(small.Management))
	assert.True(t, large.Oracle.GT(small.Oracle))
}

func TestChargeGlobal_NoElapsedTime(t *testing.T) {
	out := fees.ChargeGlobal(globalInput(units(1000), 0), fees.Params{ManagementBps: 200})
	assert.True(t, out.Total().IsZero())
	assert.Zero(t, out.Duration)
}

func TestChargeGlobal_PerformanceAboveHurdle(t *testing.T) {
	p := fees.Params{PerformanceBps: 2000, HurdleBps: 600}
	out := fees.ChargeGlobal(globalInput(units(1100), 30*day), p)

	assert.Equal(t, sdkmath.NewInt(4_931_506), out.HurdleReturn)
	assert.Equal(t, sdkmath.NewInt(19_013_698), out.Performance)
}

func TestChargeGlobal_BelowHurdleOrWatermark(t *testing.T) {
	p := fees.Params{PerformanceBps: 2000, HurdleBps: 600}

	// 0.4% gain in 30 days is under a 6% annual hurdle (about 0.49%).
	out := fees.ChargeGlobal(globalInput(sdkmath.NewInt(1_004_000_000), 30*day), p)
	assert.True(t, out.Performance.IsZero())

	in := globalInput(units(1100), 30*day)
	in.Watermark = sdkmath.NewInt(1_100_000)
	out = fees.ChargeGlobal(in, p)
	assert.True(t, out.Performance.IsZero(), "price equal to watermark")

	in.Watermark = sdkmath.NewInt(1_200_000)
	out = fees.ChargeGlobal(in, p)
	assert.True(t, out.Performance.IsZero(), "price under watermark")
}

func exitInput() fees.ExitInput {
	return fees.ExitInput{
		Assets:          units(1100),
		Shares:          units(1000),
		EntrySharePrice: sdkmath.NewInt(1_000_000),
		SharePrice:      sdkmath.NewInt(1_100_000),
		Watermark:       sdkmath.NewInt(1_000_000),
		Decimals:        6,
		LastRedeem:      t0,
		LastFeesCharged: t0,
		Now:             t0.Add(30 * day),
	}
}

func TestExitFees_PerformanceOnExcessOverHurdle(t *testing.T) {
	out := fees.ExitFees(exitInput(), fees.Params{PerformanceBps: 2000, HurdleBps: 600})

	assert.True(t, out.Management.IsZero())
	assert.True(t, out.Oracle.IsZero())
	assert.Equal(t, units(1000), out.CostBasis)
	assert.Equal(t, sdkmath.NewInt(5_424_657), out.HurdleReturn)
	assert.Equal(t, sdkmath.NewInt(18_915_068), out.Performance)
	assert.Equal(t, sdkmath.NewInt(1_081_084_932), out.Net)
}

func TestExitFees_NoPerformanceAtOrBelowHurdle(t *testing.T) {
	in := exitInput()
	// Return of exactly the hurdle.
	in.Assets = sdkmath.NewInt(1_004_931_506)
	out := fees.ExitFees(in, fees.Params{PerformanceBps: 2000, HurdleBps: 600})
	assert.True(t, out.Performance.IsZero())

	in.Exemptions = fees.Exemptions{PerformanceBps: 5000}
	out = fees.ExitFees(in, fees.Params{PerformanceBps: 2000, HurdleBps: 600})
	assert.True(t, out.Performance.IsZero())
}

func TestExitFees_WatermarkGatesPerformance(t *testing.T) {
	in := exitInput()
	in.Watermark = sdkmath.NewInt(1_100_000)
	out := fees.ExitFees(in, fees.Params{PerformanceBps: 2000})
	assert.True(t, out.Performance.IsZero())
	assert.Equal(t, in.Assets, out.Net)
}

func TestExitFees_ProrationCappedAtLastGlobalCharge(t *testing.T) {
	in := exitInput()
	in.LastFeesCharged = t0.Add(20 * day)
	out := fees.ExitFees(in, fees.Params{ManagementBps: 365})

	assert.Equal(t, int64(10*day/time.Second), out.Duration)
	// 1100e6 * 365bps * 10/365 days = 1_100_000
	assert.Equal(t, sdkmath.NewInt(1_100_000), out.Management)
}

func TestExitFees_ExemptionsSaturate(t *testing.T) {
	p := fees.Params{ManagementBps: 200, OracleBps: 50, PerformanceBps: 2000}
	in := exitInput()
	in.Exemptions = fees.Exemptions{ManagementBps: 500, OracleBps: 50, PerformanceBps: 9000}

	out := fees.ExitFees(in, p)
	assert.True(t, out.Management.IsZero())
	assert.True(t, out.Oracle.IsZero())
	assert.True(t, out.Performance.IsZero())
	assert.Equal(t, in.Assets, out.Net)

	eff := p.Effective(fees.Exemptions{ManagementBps: 50})
	assert.Equal(t, uint64(150), eff.ManagementBps)
	assert.Equal(t, uint64(50), eff.OracleBps)
}

func TestExitFees_LossPaysNoPerformance(t *testing.T) {
	in := exitInput()
	in.Assets = units(900)
	out := fees.ExitFees(in, fees.Params{PerformanceBps: 2000})
	assert.True(t, out.Performance.IsZero())
	assert.Equal(t, units(900), out.Net)
}

func TestValidate(t *testing.T) {
	require.NoError(t, fees.Params{ManagementBps: 10_000}.Validate())
	assert.True(t, errorsmod.IsOf(fees.Params{HurdleBps: 10_001}.Validate(), types.ErrInvalidBps))
	require.NoError(t, fees.Exemptions{ManagementBps: 9_999}.Validate())
	assert.True(t, errorsmod.IsOf(fees.Exemptions{OracleBps: 20_000}.Validate(), types.ErrInvalidBps))
}
