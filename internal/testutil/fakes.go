package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"YieldVault/internal/core"
	"YieldVault/internal/pricing"
	"YieldVault/internal/types"
)

// FakeClock is a manually advanced clock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type localVault struct {
	totalAssets sdkmath.Int
	totalShares sdkmath.Int
}

// FakeLocalVaults is an in-memory set of tokenized vaults on the local chain.
// A fresh vault prices shares 1:1 until yield is added.
type FakeLocalVaults struct {
	vaults map[common.Address]*localVault
	// FailRedeem makes every Redeem call return an error.
	FailRedeem bool
	// RedeemLossBps burns that share of every redemption's proceeds, as a
	// vault charging an exit penalty would.
	RedeemLossBps int64
}

func NewFakeLocalVaults() *FakeLocalVaults {
	return &FakeLocalVaults{vaults: make(map[common.Address]*localVault)}
}

func (f *FakeLocalVaults) vault(addr common.Address) *localVault {
	v, ok := f.vaults[addr]
	if !ok {
		v = &localVault{totalAssets: sdkmath.ZeroInt(), totalShares: sdkmath.ZeroInt()}
		f.vaults[addr] = v
	}
	return v
}

// AddYield grows the vault's assets without minting shares.
func (f *FakeLocalVaults) AddYield(addr common.Address, assets sdkmath.Int) {
	v := f.vault(addr)
	v.totalAssets = v.totalAssets.Add(assets)
}

func (f *FakeLocalVaults) ConvertToAssets(_ context.Context, addr common.Address, shares sdkmath.Int) (sdkmath.Int, error) {
	v := f.vault(addr)
	if v.totalShares.IsZero() {
		return shares, nil
	}
	return shares.Mul(v.totalAssets).Quo(v.totalShares), nil
}

func (f *FakeLocalVaults) ConvertToShares(_ context.Context, addr common.Address, assets sdkmath.Int) (sdkmath.Int, error) {
	v := f.vault(addr)
	if v.totalShares.IsZero() || v.totalAssets.IsZero() {
		return assets, nil
	}
	return assets.Mul(v.totalShares).Quo(v.totalAssets), nil
}

func (f *FakeLocalVaults) Deposit(ctx context.Context, addr common.Address, assets sdkmath.Int) (sdkmath.Int, error) {
	shares, _ := f.ConvertToShares(ctx, addr, assets)
	v := f.vault(addr)
	v.totalAssets = v.totalAssets.Add(assets)
	v.totalShares = v.totalShares.Add(shares)
	return shares, nil
}

func (f *FakeLocalVaults) Redeem(ctx context.Context, addr common.Address, shares sdkmath.Int) (sdkmath.Int, error) {
	if f.FailRedeem {
		return sdkmath.ZeroInt(), fmt.Errorf("redeem %s: vault paused", addr.Hex())
	}
	v := f.vault(addr)
	if shares.GT(v.totalShares) {
		return sdkmath.ZeroInt(), fmt.Errorf("redeem %s: %s shares exceeds supply %s", addr.Hex(), shares, v.totalShares)
	}
	assets, _ := f.ConvertToAssets(ctx, addr, shares)
	v.totalAssets = v.totalAssets.Sub(assets)
	v.totalShares = v.totalShares.Sub(shares)
	if f.RedeemLossBps > 0 {
		assets = assets.MulRaw(10_000 - f.RedeemLossBps).QuoRaw(10_000)
	}
	return assets, nil
}

type oracleKey struct {
	chain types.ChainID
	vault common.Address
}

// FakeOracle returns whatever report was last set for a vault.
type FakeOracle struct {
	reports map[oracleKey]pricing.PriceReport
}

func NewFakeOracle() *FakeOracle {
	return &FakeOracle{reports: make(map[oracleKey]pricing.PriceReport)}
}

func (o *FakeOracle) Set(chain types.ChainID, vault common.Address, price sdkmath.Int, at time.Time) {
	o.reports[oracleKey{chain, vault}] = pricing.PriceReport{Price: price, UpdatedAt: at}
}

func (o *FakeOracle) LatestSharePrice(_ context.Context, chain types.ChainID, vault common.Address) (pricing.PriceReport, error) {
	r, ok := o.reports[oracleKey{chain, vault}]
	if !ok {
		return pricing.PriceReport{}, fmt.Errorf("no price for chain %s vault %s", chain, vault.Hex())
	}
	return r, nil
}

// FakeGateway records every dispatch.
type FakeGateway struct {
	Liquidations []core.LiquidationRequest
	Invests      []core.InvestRequest
	// Err, when set, is returned from every dispatch.
	Err error
}

func (g *FakeGateway) liquidate(req core.LiquidationRequest) error {
	if g.Err != nil {
		return g.Err
	}
	g.Liquidations = append(g.Liquidations, req)
	return nil
}

func (g *FakeGateway) LiquidateSingleChainSingleVault(_ context.Context, req core.LiquidationRequest) error {
	return g.liquidate(req)
}

func (g *FakeGateway) LiquidateSingleChainMultiVault(_ context.Context, req core.LiquidationRequest) error {
	return g.liquidate(req)
}

func (g *FakeGateway) LiquidateMultiChainSingleVault(_ context.Context, req core.LiquidationRequest) error {
	return g.liquidate(req)
}

func (g *FakeGateway) LiquidateMultiChainMultiVault(_ context.Context, req core.LiquidationRequest) error {
	return g.liquidate(req)
}

func (g *FakeGateway) Invest(_ context.Context, req core.InvestRequest) error {
	if g.Err != nil {
		return g.Err
	}
	g.Invests = append(g.Invests, req)
	return nil
}

// FakeApprover tracks which vaults hold an approval.
type FakeApprover struct {
	Approved map[common.Address]bool
}

func NewFakeApprover() *FakeApprover {
	return &FakeApprover{Approved: make(map[common.Address]bool)}
}

func (a *FakeApprover) Approve(_ context.Context, vault common.Address) error {
	a.Approved[vault] = true
	return nil
}

func (a *FakeApprover) Revoke(_ context.Context, vault common.Address) error {
	delete(a.Approved, vault)
	return nil
}

// Addr builds a deterministic address from a small integer.
func Addr(n int64) common.Address {
	return common.BigToAddress(sdkmath.NewInt(n).BigInt())
}

// Units scales whole units by 10^6.
func Units(n int64) sdkmath.Int {
	return sdkmath.NewInt(n).MulRaw(1_000_000)
}

// TestConfig is core.DefaultConfig with the treasury set to Addr(9).
func TestConfig() core.Config {
	cfg := core.DefaultConfig()
	cfg.Treasury = Addr(9)
	return cfg
}
