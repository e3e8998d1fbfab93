package core

import (
	"context"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"YieldVault/internal/event"
	"YieldVault/internal/fees"
)

// ChargeGlobalFees accrues management, oracle and performance fees since
// the last charge, mints them to the treasury and raises the watermark to
// the post-mint price. Returns the fee assets charged.
func (e *Engine) ChargeGlobalFees(ctx context.Context, caller common.Address) (total sdkmath.Int, err error) {
	if err = e.enter("charge_global_fees"); err != nil {
		return sdkmath.ZeroInt(), err
	}
	defer e.exit("charge_global_fees", time.Now(), &err)

	if err = e.roles.require(RoleManager, caller); err != nil {
		return sdkmath.ZeroInt(), err
	}

	now := e.clock.Now()
	b := fees.ChargeGlobal(fees.GlobalInput{
		TotalAssets:     e.global.TotalAssets(),
		TotalSupply:     e.global.TotalSupply,
		Watermark:       e.global.Watermark,
		Decimals:        e.cfg.Decimals,
		LastFeesCharged: e.global.LastFeesCharged,
		Now:             now,
	}, e.cfg.Fees)

	total = b.Total()
	shares := e.mintFees(total, now)
	e.global.RaiseWatermark()
	e.global.LastFeesCharged = now

	e.logger.Info().
		Str("management", b.Management.String()).
		Str("oracle", b.Oracle.String()).
		Str("performance", b.Performance.String()).
		Str("treasury_shares", shares.String()).
		Str("watermark", e.global.Watermark.String()).
		Int64("duration_s", b.Duration).
		Msg("global fees charged")

	e.recordFees("global", b)
	e.emit(&event.GlobalFeesCharged{
		Key:            e.keyFor(ctx),
		Management:     b.Management,
		Oracle:         b.Oracle,
		Performance:    b.Performance,
		TreasuryShares: shares,
		Watermark:      e.global.Watermark,
		Duration:       b.Duration,
	})
	return total, nil
}
