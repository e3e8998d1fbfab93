// internal/state/global.go
package state

import (
	"time"

	sdkmath "cosmossdk.io/math"

	fpmath "YieldVault/internal/math"
)

// GlobalAccount holds the vault-wide totals.
// TotalAssets is always Idle + Debt.
type GlobalAccount struct {
	Decimals        uint8       `json:"decimals"`
	Idle            sdkmath.Int `json:"idle"`
	Debt            sdkmath.Int `json:"debt"`
	TotalSupply     sdkmath.Int `json:"total_supply"`
	Watermark       sdkmath.Int `json:"watermark"`
	LastFeesCharged time.Time   `json:"last_fees_charged"`
}

func NewGlobalAccount(decimals uint8, now time.Time) *GlobalAccount {
	return &GlobalAccount{
		Decimals:        decimals,
		Idle:            sdkmath.ZeroInt(),
		Debt:            sdkmath.ZeroInt(),
		TotalSupply:     sdkmath.ZeroInt(),
		Watermark:       fpmath.Pow10(decimals),
		LastFeesCharged: now,
	}
}

func (g *GlobalAccount) TotalAssets() sdkmath.Int {
	return g.Idle.Add(g.Debt)
}

// SharePrice is TotalAssets * 10^decimals / TotalSupply, floored.
func (g *GlobalAccount) SharePrice() sdkmath.Int {
	unit := fpmath.Pow10(g.Decimals)
	if !g.TotalSupply.IsPositive() {
		return unit
	}
	return fpmath.MulDiv(g.TotalAssets(), unit, g.TotalSupply, fpmath.RoundDown)
}

// ConvertToShares prices assets at the current share price, floored.
func (g *GlobalAccount) ConvertToShares(assets sdkmath.Int) sdkmath.Int {
	if !assets.IsPositive() {
		return sdkmath.ZeroInt()
	}
	totalAssets := g.TotalAssets()
	if !g.TotalSupply.IsPositive() || !totalAssets.IsPositive() {
		return assets
	}
	return fpmath.MulDiv(assets, g.TotalSupply, totalAssets, fpmath.RoundDown)
}

// ConvertToAssets values shares at the current share price, floored.
func (g *GlobalAccount) ConvertToAssets(shares sdkmath.Int) sdkmath.Int {
	if !shares.IsPositive() {
		return sdkmath.ZeroInt()
	}
	if !g.TotalSupply.IsPositive() {
		return shares
	}
	return fpmath.MulDiv(shares, g.TotalAssets(), g.TotalSupply, fpmath.RoundDown)
}

// Mint increases supply.
func (g *GlobalAccount) Mint(shares sdkmath.Int) {
	g.TotalSupply = g.TotalSupply.Add(shares)
}

// Burn decreases supply, never below zero.
func (g *GlobalAccount) Burn(shares sdkmath.Int) {
	g.TotalSupply = fpmath.SaturatingSub(g.TotalSupply, shares)
}

// RaiseWatermark moves the watermark to the current price if higher.
// Returns true when it moved.
func (g *GlobalAccount) RaiseWatermark() bool {
	price := g.SharePrice()
	if price.GT(g.Watermark) {
		g.Watermark = price
		return true
	}
	return false
}

// Clone returns an independent copy.
func (g *GlobalAccount) Clone() *GlobalAccount {
	c := *g
	return &c
}
