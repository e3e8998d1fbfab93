// internal/pricing/converter.go
package pricing

import (
	"context"
	"time"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	fpmath "YieldVault/internal/math"
	"YieldVault/internal/registry"
	"YieldVault/internal/types"
)

// DefaultStalenessTolerance bounds the age of an oracle report used for
// execution-critical conversions.
const DefaultStalenessTolerance = time.Hour

// LocalVaults is the synchronous view of sub-vaults on the local chain.
type LocalVaults interface {
	ConvertToAssets(ctx context.Context, vault common.Address, shares sdkmath.Int) (sdkmath.Int, error)
	ConvertToShares(ctx context.Context, vault common.Address, assets sdkmath.Int) (sdkmath.Int, error)
	Deposit(ctx context.Context, vault common.Address, assets sdkmath.Int) (sdkmath.Int, error)
	Redeem(ctx context.Context, vault common.Address, shares sdkmath.Int) (sdkmath.Int, error)
}

// PriceReport is the last share price pushed for a remote vault.
type PriceReport struct {
	Price     sdkmath.Int
	UpdatedAt time.Time
}

// Oracle returns the latest share price report for a remote vault.
type Oracle interface {
	LatestSharePrice(ctx context.Context, chain types.ChainID, vault common.Address) (PriceReport, error)
}

// Converter converts between sub-vault shares and base assets.
type Converter struct {
	local     LocalVaults
	oracle    Oracle
	clock     types.Clock
	tolerance time.Duration
}

func NewConverter(local LocalVaults, oracle Oracle, clock types.Clock, tolerance time.Duration) *Converter {
	if tolerance <= 0 {
		tolerance = DefaultStalenessTolerance
	}
	return &Converter{
		local:     local,
		oracle:    oracle,
		clock:     clock,
		tolerance: tolerance,
	}
}

// Tolerance returns the configured staleness bound.
func (c *Converter) Tolerance() time.Duration {
	return c.tolerance
}

// AssetsForShares converts shares of v into assets. Remote vaults use the
// oracle report; when enforce is set an old report fails with ErrStalePrice.
func (c *Converter) AssetsForShares(ctx context.Context, v *registry.SubVault, shares sdkmath.Int, enforce bool) (sdkmath.Int, error) {
	if !shares.IsPositive() {
		return sdkmath.ZeroInt(), nil
	}
	if v.Local {
		assets, err := c.local.ConvertToAssets(ctx, v.Address, shares)
		if err != nil {
			return sdkmath.ZeroInt(), errorsmod.Wrapf(err, "convert to assets: vault %s", v.VaultID)
		}
		return assets, nil
	}

	report, err := c.report(ctx, v, enforce)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	return fpmath.MulDiv(report.Price, shares, fpmath.Pow10(v.Decimals), fpmath.RoundDown), nil
}

// SharesForAssets is the inverse of AssetsForShares.
func (c *Converter) SharesForAssets(ctx context.Context, v *registry.SubVault, assets sdkmath.Int, enforce bool) (sdkmath.Int, error) {
	if !assets.IsPositive() {
		return sdkmath.ZeroInt(), nil
	}
	if v.Local {
		shares, err := c.local.ConvertToShares(ctx, v.Address, assets)
		if err != nil {
			return sdkmath.ZeroInt(), errorsmod.Wrapf(err, "convert to shares: vault %s", v.VaultID)
		}
		return shares, nil
	}

	report, err := c.report(ctx, v, enforce)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	if !report.Price.IsPositive() {
		return sdkmath.ZeroInt(), errorsmod.Wrapf(types.ErrZeroSharePrice, "vault %s", v.VaultID)
	}
	return fpmath.MulDiv(assets, fpmath.Pow10(v.Decimals), report.Price, fpmath.RoundDown), nil
}

// CachedAssetsForShares uses the registry's cached price with no freshness check.
func (c *Converter) CachedAssetsForShares(v *registry.SubVault, shares sdkmath.Int) sdkmath.Int {
	return AssetsAtPrice(v, shares, v.SharePrice)
}

// CachedSharesForAssets uses the registry's cached price with no freshness check.
func (c *Converter) CachedSharesForAssets(v *registry.SubVault, assets sdkmath.Int) sdkmath.Int {
	return SharesAtPrice(v, assets, v.SharePrice)
}

// AssetsAtPrice values shares of v at an already quoted price.
func AssetsAtPrice(v *registry.SubVault, shares, price sdkmath.Int) sdkmath.Int {
	if !shares.IsPositive() || price.IsNil() {
		return sdkmath.ZeroInt()
	}
	return fpmath.MulDiv(price, shares, fpmath.Pow10(v.Decimals), fpmath.RoundDown)
}

// SharesAtPrice is the inverse of AssetsAtPrice. A zero price yields zero.
func SharesAtPrice(v *registry.SubVault, assets, price sdkmath.Int) sdkmath.Int {
	if !assets.IsPositive() || price.IsNil() || !price.IsPositive() {
		return sdkmath.ZeroInt()
	}
	return fpmath.MulDiv(assets, fpmath.Pow10(v.Decimals), price, fpmath.RoundDown)
}

// QuotePrice returns the current price of one whole share of v without
// touching the registry.
func (c *Converter) QuotePrice(ctx context.Context, v *registry.SubVault, enforce bool) (sdkmath.Int, error) {
	if v.Local {
		return c.AssetsForShares(ctx, v, fpmath.Pow10(v.Decimals), enforce)
	}
	report, err := c.report(ctx, v, enforce)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	return report.Price, nil
}

// RefreshPrice quotes v and stores the result as its cached price.
func (c *Converter) RefreshPrice(ctx context.Context, v *registry.SubVault, enforce bool) (sdkmath.Int, error) {
	price, err := c.QuotePrice(ctx, v, enforce)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	v.SharePrice = price
	return price, nil
}

func (c *Converter) report(ctx context.Context, v *registry.SubVault, enforce bool) (PriceReport, error) {
	report, err := c.oracle.LatestSharePrice(ctx, v.ChainID, v.Address)
	if err != nil {
		return PriceReport{}, errorsmod.Wrapf(err, "oracle: chain %s vault %s", v.ChainID, v.VaultID)
	}
	if report.Price.IsNil() {
		report.Price = sdkmath.ZeroInt()
	}
	if enforce && c.clock.Now().Sub(report.UpdatedAt) > c.tolerance {
		return PriceReport{}, errorsmod.Wrapf(types.ErrStalePrice,
			"chain %s vault %s updated %s", v.ChainID, v.VaultID, report.UpdatedAt.Format(time.RFC3339))
	}
	return report, nil
}
