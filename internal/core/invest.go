package core

import (
	"context"
	"time"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"YieldVault/internal/event"
	fpmath "YieldVault/internal/math"
	"YieldVault/internal/state"
	"YieldVault/internal/types"
)

// Invest moves idle assets into a sub-vault. Local vaults are deposited
// into synchronously. Remote vaults are credited optimistically at the
// current oracle price and tracked as a pending invest until the gateway
// reports SettleInvest or NotifyFailedInvest. The returned id is uuid.Nil
// for local vaults.
func (e *Engine) Invest(ctx context.Context, caller common.Address, vaultID types.VaultID, assets sdkmath.Int) (opID uuid.UUID, err error) {
	if err = e.enter("invest"); err != nil {
		return uuid.Nil, err
	}
	defer e.exit("invest", time.Now(), &err)

	if err = e.roles.require(RoleManager, caller); err != nil {
		return uuid.Nil, err
	}
	if e.shutdown {
		return uuid.Nil, types.ErrShutdown
	}
	if assets.IsNil() || !assets.IsPositive() {
		return uuid.Nil, errorsmod.Wrap(types.ErrInvalidAmount, "invest amount must be positive")
	}
	v, err := e.registry.MustGet(vaultID)
	if err != nil {
		return uuid.Nil, err
	}
	if e.global.Idle.LT(assets) {
		return uuid.Nil, errorsmod.Wrapf(types.ErrInsufficientIdle, "invest %s, idle %s", assets, e.global.Idle)
	}

	var shares sdkmath.Int
	if v.Local {
		shares, err = e.local.Deposit(ctx, v.Address, assets)
		if err != nil {
			return uuid.Nil, errorsmod.Wrapf(err, "deposit into vault %s", vaultID)
		}
	} else {
		price, err := e.prices.QuotePrice(ctx, v, true)
		if err != nil {
			return uuid.Nil, err
		}
		if !price.IsPositive() {
			return uuid.Nil, errorsmod.Wrapf(types.ErrZeroSharePrice, "vault %s", vaultID)
		}
		shares = fpmath.MulDiv(assets, fpmath.Pow10(v.Decimals), price, fpmath.RoundDown)

		opID = uuid.New()
		req := InvestRequest{
			OperationID:    opID,
			ChainID:        v.ChainID,
			VaultID:        vaultID,
			Vault:          v.Address,
			Assets:         assets,
			ExpectedShares: shares,
		}
		if err = e.gateway.Invest(ctx, req); err != nil {
			return uuid.Nil, errorsmod.Wrapf(err, "dispatch invest to vault %s", vaultID)
		}
		v.SharePrice = price
	}

	if err = e.registry.AddShares(vaultID, shares); err != nil {
		return uuid.Nil, err
	}
	if err = e.registry.AddDebt(vaultID, assets); err != nil {
		return uuid.Nil, err
	}
	e.global.Idle = e.global.Idle.Sub(assets)
	e.global.Debt = e.global.Debt.Add(assets)

	if !v.Local {
		e.inflight.Record(&state.Operation{
			ID:     opID,
			Kind:   state.OpKindInvest,
			Shares: shares,
			Assets: assets,
			Deltas: []state.VaultDelta{{
				VaultID: vaultID,
				ChainID: v.ChainID,
				Debt:    assets,
				Shares:  shares,
			}},
			DispatchedAt: e.clock.Now(),
		})
		if e.metrics != nil {
			e.metrics.OperationsDispatched.WithLabelValues(state.OpKindInvest.String()).Inc()
		}
	}

	e.logger.Info().
		Str("vault_id", vaultID.String()).
		Str("assets", assets.String()).
		Str("shares", shares.String()).
		Bool("remote", !v.Local).
		Msg("invested")

	e.emit(&event.Invested{
		Key:         e.keyFor(ctx),
		OperationID: opID,
		VaultID:     vaultID,
		ChainID:     v.ChainID,
		Assets:      assets,
		Shares:      shares,
		Remote:      !v.Local,
	})
	return opID, nil
}
