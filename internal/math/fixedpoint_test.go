package math_test

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	fpmath "YieldVault/internal/math"
)

func TestMulDiv_FloorsOnce(t *testing.T) {
	// 7 * 3 / 2 = 10.5 -> 10
	got := fpmath.MulDiv(sdkmath.NewInt(7), sdkmath.NewInt(3), sdkmath.NewInt(2), fpmath.RoundDown)
	require.Equal(t, int64(10), got.Int64())

	got = fpmath.MulDiv(sdkmath.NewInt(7), sdkmath.NewInt(3), sdkmath.NewInt(2), fpmath.RoundUp)
	require.Equal(t, int64(11), got.Int64())
}

func TestMulDiv_ZeroDenominatorPanics(t *testing.T) {
	require.Panics(t, func() {
		fpmath.MulDiv(sdkmath.OneInt(), sdkmath.OneInt(), sdkmath.ZeroInt(), fpmath.RoundDown)
	})
}

func TestProrate_NoIntermediateTruncation(t *testing.T) {
	// 1100e6 at 6% for 30 days: 1100e6*600*2592000 / (31536000*10000) = 5424657.53...
	got := fpmath.Prorate(sdkmath.NewInt(1_100_000_000), 600, 30*24*3600)
	require.Equal(t, int64(5_424_657), got.Int64())

	// A one-second accrual on a small balance would be zero under step-wise division.
	got = fpmath.Prorate(sdkmath.NewInt(31_536_000), 10_000, 1)
	require.Equal(t, int64(1), got.Int64())
}

func TestProrate_MonotonicInDurationAndAmount(t *testing.T) {
	amount := sdkmath.NewInt(5_000_000_000)
	prev := sdkmath.ZeroInt()
	for _, seconds := range []int64{3600, 86400, 7 * 86400, 365 * 86400} {
		fee := fpmath.Prorate(amount, 200, seconds)
		require.True(t, fee.GT(prev), "fee must grow with duration: %s <= %s", fee, prev)
		prev = fee
	}

	small := fpmath.Prorate(sdkmath.NewInt(1_000_000_000), 200, 86400)
	large := fpmath.Prorate(sdkmath.NewInt(2_000_000_000), 200, 86400)
	require.True(t, large.GT(small))
}

func TestProrate_NonPositiveInputs(t *testing.T) {
	require.True(t, fpmath.Prorate(sdkmath.NewInt(100), 100, 0).IsZero())
	require.True(t, fpmath.Prorate(sdkmath.NewInt(100), 100, -5).IsZero())
	require.True(t, fpmath.Prorate(sdkmath.ZeroInt(), 100, 10).IsZero())
	require.True(t, fpmath.Prorate(sdkmath.NewInt(100), 0, 10).IsZero())
}

func TestSaturatingSubBps(t *testing.T) {
	require.Equal(t, uint64(150), fpmath.SaturatingSubBps(200, 50))
	require.Equal(t, uint64(0), fpmath.SaturatingSubBps(200, 200))
	require.Equal(t, uint64(0), fpmath.SaturatingSubBps(200, 9_000))
}

func TestComputeWeightedAverage(t *testing.T) {
	// First deposit takes the new value.
	got := fpmath.ComputeWeightedAverage(sdkmath.ZeroInt(), sdkmath.ZeroInt(), sdkmath.NewInt(100), sdkmath.NewInt(1_000_000))
	require.Equal(t, int64(1_000_000), got.Int64())

	// (100*1_000_000 + 50*1_300_000) / 150 = 1_100_000
	got = fpmath.ComputeWeightedAverage(sdkmath.NewInt(100), sdkmath.NewInt(1_000_000), sdkmath.NewInt(50), sdkmath.NewInt(1_300_000))
	require.Equal(t, int64(1_100_000), got.Int64())

	// (3*10 + 1*11) / 4 = 10.25 -> 10
	got = fpmath.ComputeWeightedAverage(sdkmath.NewInt(3), sdkmath.NewInt(10), sdkmath.NewInt(1), sdkmath.NewInt(11))
	require.Equal(t, int64(10), got.Int64())
}

func TestPow10(t *testing.T) {
	require.Equal(t, int64(1), fpmath.Pow10(0).Int64())
	require.Equal(t, int64(1_000_000), fpmath.Pow10(6).Int64())
	require.Equal(t, "1000000000000000000", fpmath.Pow10(18).String())
}
