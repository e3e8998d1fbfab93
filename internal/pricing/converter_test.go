package pricing_test

import (
	"context"
	"testing"
	"time"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"YieldVault/internal/pricing"
	"YieldVault/internal/registry"
	"YieldVault/internal/testutil"
	"YieldVault/internal/types"
)

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func remoteVault() *registry.SubVault {
	return &registry.SubVault{
		ChainID:    10,
		VaultID:    2,
		Address:    testutil.Addr(2),
		Decimals:   6,
		Oracle:     testutil.Addr(900),
		SharePrice: sdkmath.NewInt(1_000_000),
		Shares:     sdkmath.ZeroInt(),
		Debt:       sdkmath.ZeroInt(),
	}
}

func TestRemoteConversion_UsesOraclePrice(t *testing.T) {
	clock := testutil.NewFakeClock(t0)
	oracle := testutil.NewFakeOracle()
	v := remoteVault()
	oracle.Set(v.ChainID, v.Address, sdkmath.NewInt(1_250_000), t0)

	c := pricing.NewConverter(testutil.NewFakeLocalVaults(), oracle, clock, time.Hour)

	assets, err := c.AssetsForShares(context.Background(), v, sdkmath.NewInt(400_000_000), true)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(500_000_000), assets)

	shares, err := c.SharesForAssets(context.Background(), v, sdkmath.NewInt(500_000_000), true)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(400_000_000), shares)
}

func TestRemoteConversion_StaleOnlyWhenEnforced(t *testing.T) {
	clock := testutil.NewFakeClock(t0)
	oracle := testutil.NewFakeOracle()
	v := remoteVault()
	oracle.Set(v.ChainID, v.Address, sdkmath.NewInt(1_000_000), t0)
	c := pricing.NewConverter(testutil.NewFakeLocalVaults(), oracle, clock, time.Hour)

	clock.Advance(time.Hour)
	_, err := c.AssetsForShares(context.Background(), v, sdkmath.NewInt(1), true)
	require.NoError(t, err, "exactly at tolerance is still fresh")

	clock.Advance(time.Second)
	_, err = c.AssetsForShares(context.Background(), v, sdkmath.NewInt(1), true)
	assert.True(t, errorsmod.IsOf(err, types.ErrStalePrice))

	assets, err := c.AssetsForShares(context.Background(), v, sdkmath.NewInt(7), false)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(7), assets)
}

func TestCachedConversion_IgnoresOracle(t *testing.T) {
	c := pricing.NewConverter(testutil.NewFakeLocalVaults(), testutil.NewFakeOracle(), testutil.NewFakeClock(t0), 0)
	v := remoteVault()
	v.SharePrice = sdkmath.NewInt(980_000)

	assert.Equal(t, sdkmath.NewInt(588_000_000), c.CachedAssetsForShares(v, sdkmath.NewInt(600_000_000)))
	assert.Equal(t, sdkmath.NewInt(600_000_000), c.CachedSharesForAssets(v, sdkmath.NewInt(588_000_000)))
	assert.True(t, c.CachedSharesForAssets(v, sdkmath.ZeroInt()).IsZero())
	assert.Equal(t, pricing.DefaultStalenessTolerance, c.Tolerance())
}

func TestLocalConversion_DelegatesToVault(t *testing.T) {
	ctx := context.Background()
	local := testutil.NewFakeLocalVaults()
	addr := testutil.Addr(1)
	_, err := local.Deposit(ctx, addr, sdkmath.NewInt(1000))
	require.NoError(t, err)
	local.AddYield(addr, sdkmath.NewInt(100))

	v := &registry.SubVault{VaultID: 1, Address: addr, Decimals: 6, Local: true}
	c := pricing.NewConverter(local, testutil.NewFakeOracle(), testutil.NewFakeClock(t0), time.Hour)

	assets, err := c.AssetsForShares(ctx, v, sdkmath.NewInt(500), true)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(550), assets)

	price, err := c.RefreshPrice(ctx, v, true)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(1_100_000), price)
	assert.Equal(t, price, v.SharePrice)
}

func TestRefreshPrice_MissingReport(t *testing.T) {
	c := pricing.NewConverter(testutil.NewFakeLocalVaults(), testutil.NewFakeOracle(), testutil.NewFakeClock(t0), time.Hour)
	v := remoteVault()
	_, err := c.RefreshPrice(context.Background(), v, false)
	require.Error(t, err)
	assert.Equal(t, sdkmath.NewInt(1_000_000), v.SharePrice)
}
