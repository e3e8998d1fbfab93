package core

import (
	"context"
	"time"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"YieldVault/internal/event"
	"YieldVault/internal/fees"
	"YieldVault/internal/types"
)

// Deposit credits assets to idle and mints shares to controller at the
// current share price.
func (e *Engine) Deposit(ctx context.Context, controller common.Address, assets sdkmath.Int) (shares sdkmath.Int, err error) {
	if err = e.enter("deposit"); err != nil {
		return sdkmath.ZeroInt(), err
	}
	defer e.exit("deposit", time.Now(), &err)

	if e.shutdown {
		return sdkmath.ZeroInt(), types.ErrShutdown
	}
	if assets.IsNil() || !assets.IsPositive() {
		return sdkmath.ZeroInt(), errorsmod.Wrap(types.ErrInvalidAmount, "deposit must be positive")
	}

	price := e.global.SharePrice()
	shares = e.global.ConvertToShares(assets)
	if !shares.IsPositive() {
		return sdkmath.ZeroInt(), errorsmod.Wrapf(types.ErrInvalidAmount, "deposit of %s mints no shares", assets)
	}

	now := e.clock.Now()
	e.global.Idle = e.global.Idle.Add(assets)
	e.global.Mint(shares)
	e.positions.GetOrCreatePosition(controller).ApplyDeposit(shares, price, now)

	e.emit(&event.Deposited{
		Key:        e.keyFor(ctx),
		Controller: controller,
		Assets:     assets,
		Shares:     shares,
		SharePrice: price,
	})
	return shares, nil
}

// Donate adds assets to idle without minting shares.
func (e *Engine) Donate(ctx context.Context, from common.Address, assets sdkmath.Int) (err error) {
	if err = e.enter("donate"); err != nil {
		return err
	}
	defer e.exit("donate", time.Now(), &err)

	if assets.IsNil() || !assets.IsPositive() {
		return errorsmod.Wrap(types.ErrInvalidAmount, "donation must be positive")
	}
	e.global.Idle = e.global.Idle.Add(assets)

	e.emit(&event.Donated{Key: e.keyFor(ctx), From: from, Assets: assets})
	return nil
}

// RequestRedeem moves shares from the controller's balance into a pending
// redeem request. Fails while the deposit lock is running.
func (e *Engine) RequestRedeem(ctx context.Context, controller common.Address, shares sdkmath.Int) (err error) {
	if err = e.enter("request_redeem"); err != nil {
		return err
	}
	defer e.exit("request_redeem", time.Now(), &err)

	if e.shutdown {
		return types.ErrShutdown
	}
	if shares.IsNil() || !shares.IsPositive() {
		return errorsmod.Wrap(types.ErrInvalidAmount, "shares must be positive")
	}

	pos := e.positions.GetPosition(controller)
	if pos == nil || pos.Balance.LT(shares) {
		balance := sdkmath.ZeroInt()
		if pos != nil {
			balance = pos.Balance
		}
		return errorsmod.Wrapf(types.ErrInsufficientShares, "request %s, balance %s", shares, balance)
	}

	now := e.clock.Now()
	if pos.IsLocked(now, e.cfg.LockPeriod) {
		return errorsmod.Wrapf(types.ErrSharesLocked, "unlocks at %s", pos.UnlockedAt(e.cfg.LockPeriod).Format(time.RFC3339))
	}

	pos.Balance = pos.Balance.Sub(shares)
	e.requests.Request(controller, shares)

	e.emit(&event.RedeemRequested{Key: e.keyFor(ctx), Controller: controller, Shares: shares})
	return nil
}

// Redeem claims fulfilled shares, charges exit fees and returns the net
// assets paid to receiver. Fee assets stay in the vault and are matched
// by shares minted to the treasury.
func (e *Engine) Redeem(ctx context.Context, controller, receiver common.Address, shares sdkmath.Int) (res fees.ExitResult, err error) {
	if err = e.enter("redeem"); err != nil {
		return fees.ExitResult{}, err
	}
	defer e.exit("redeem", time.Now(), &err)

	if shares.IsNil() || !shares.IsPositive() {
		return fees.ExitResult{}, errorsmod.Wrap(types.ErrInvalidAmount, "shares must be positive")
	}

	req := e.requests.Get(controller)
	if shares.GT(req.ClaimableShares) {
		return fees.ExitResult{}, errorsmod.Wrapf(types.ErrInsufficientShares, "claim %s, claimable %s", shares, req.ClaimableShares)
	}
	fulfilledPrice := req.FulfilledPrice(e.cfg.Decimals)

	assets, err := e.requests.Claim(controller, shares)
	if err != nil {
		return fees.ExitResult{}, err
	}

	now := e.clock.Now()
	pos := e.positions.GetOrCreatePosition(controller)
	res = fees.ExitFees(fees.ExitInput{
		Assets:          assets,
		Shares:          shares,
		EntrySharePrice: pos.EntrySharePrice,
		SharePrice:      fulfilledPrice,
		Watermark:       e.global.Watermark,
		Decimals:        e.cfg.Decimals,
		LastRedeem:      pos.LastRedeem,
		LastFeesCharged: e.global.LastFeesCharged,
		Now:             now,
		Exemptions:      pos.Exemptions,
	}, e.cfg.Fees)

	treasuryShares := e.mintFees(res.Total(), now)
	e.global.Idle = e.global.Idle.Add(res.Total())
	pos.LastRedeem = now

	e.recordFees("exit", res.Breakdown)
	e.emit(&event.Redeemed{
		Key:            e.keyFor(ctx),
		Controller:     controller,
		Receiver:       receiver,
		Shares:         shares,
		Assets:         assets,
		NetAssets:      res.Net,
		ManagementFee:  res.Management,
		OracleFee:      res.Oracle,
		PerformanceFee: res.Performance,
		TreasuryShares: treasuryShares,
	})
	return res, nil
}

// mintFees issues treasury shares worth feeAssets at the current price.
func (e *Engine) mintFees(feeAssets sdkmath.Int, now time.Time) sdkmath.Int {
	if !feeAssets.IsPositive() {
		return sdkmath.ZeroInt()
	}
	price := e.global.SharePrice()
	shares := e.global.ConvertToShares(feeAssets)
	e.global.Mint(shares)
	e.positions.GetOrCreatePosition(e.cfg.Treasury).ApplyDeposit(shares, price, now)
	return shares
}

func (e *Engine) recordFees(scope string, b fees.Breakdown) {
	if e.metrics == nil {
		return
	}
	e.metrics.FeesCharged.WithLabelValues(scope, "management").Add(toFloat(b.Management))
	e.metrics.FeesCharged.WithLabelValues(scope, "oracle").Add(toFloat(b.Oracle))
	e.metrics.FeesCharged.WithLabelValues(scope, "performance").Add(toFloat(b.Performance))
}
