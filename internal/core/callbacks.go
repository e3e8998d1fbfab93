package core

import (
	"context"
	"time"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"YieldVault/internal/event"
	"YieldVault/internal/state"
	"YieldVault/internal/types"
)

// Gateway callbacks. Each may be delivered more than once; a callback
// whose idempotency key was already applied returns nil without effect.

// FulfillSettledRequest completes a dispatched redeem. fulfilled is what
// the gateway actually delivered, local proceeds included, and becomes the
// controller's claimable assets.
func (e *Engine) FulfillSettledRequest(ctx context.Context, caller common.Address, opID uuid.UUID, controller common.Address, requested, fulfilled sdkmath.Int) (err error) {
	if err = e.enter("fulfill_settled_request"); err != nil {
		return err
	}
	defer e.exit("fulfill_settled_request", time.Now(), &err)

	if err = e.roles.require(RoleGateway, caller); err != nil {
		return err
	}
	if e.duplicate(ctx, event.EventTypeRequestFulfilled) {
		return nil
	}
	if fulfilled.IsNil() || fulfilled.IsNegative() {
		return errorsmod.Wrap(types.ErrInvalidAmount, "fulfilled assets must not be negative")
	}

	op, err := e.inflight.Check(opID, state.OpKindRedeem)
	if err != nil {
		return err
	}
	if op.Controller != controller {
		return errorsmod.Wrapf(types.ErrUnknownOperation, "operation %s belongs to %s", opID, op.Controller.Hex())
	}

	now := e.clock.Now()
	e.requests.Fulfill(controller, op.Shares, fulfilled)
	if _, err = e.inflight.Settle(opID, state.OpKindRedeem, now); err != nil {
		return err
	}
	e.resolved(state.OpKindRedeem, state.OpStatusSettled)

	if !requested.IsNil() && fulfilled.LT(requested) {
		e.logger.Warn().
			Str("operation_id", opID.String()).
			Str("requested", requested.String()).
			Str("fulfilled", fulfilled.String()).
			Msg("redeem settled below requested amount")
	}

	e.emit(&event.RequestFulfilled{
		Key:             e.keyFor(ctx),
		OperationID:     opID,
		Controller:      controller,
		Shares:          op.Shares,
		RequestedAssets: requested,
		FulfilledAssets: fulfilled,
	})
	return nil
}

// NotifyFailedLiquidation reverses a dispatched redeem: vault shares and
// debt come back, the local proceeds return to idle, and the controller's
// shares are re-minted into a pending request.
func (e *Engine) NotifyFailedLiquidation(ctx context.Context, caller common.Address, opID uuid.UUID) (err error) {
	if err = e.enter("notify_failed_liquidation"); err != nil {
		return err
	}
	defer e.exit("notify_failed_liquidation", time.Now(), &err)

	if err = e.roles.require(RoleGateway, caller); err != nil {
		return err
	}
	if e.duplicate(ctx, event.EventTypeLiquidationFailed) {
		return nil
	}

	op, err := e.inflight.Check(opID, state.OpKindRedeem)
	if err != nil {
		return err
	}

	debt := sdkmath.ZeroInt()
	for _, d := range op.Deltas {
		// A delisted vault cannot be restored; its delta is dropped.
		if _, ok := e.registry.Get(d.VaultID); !ok {
			e.logger.Warn().Str("vault_id", d.VaultID.String()).Msg("failed liquidation references delisted vault")
			continue
		}
		if err = e.registry.AddShares(d.VaultID, d.Shares); err != nil {
			return err
		}
		if err = e.registry.AddDebt(d.VaultID, d.Debt); err != nil {
			return err
		}
		debt = debt.Add(d.Debt)
	}
	e.global.Debt = e.global.Debt.Add(debt)
	e.global.Idle = e.global.Idle.Add(op.LocalAssets)
	e.global.Mint(op.Shares)
	e.requests.Request(op.Controller, op.Shares)

	if _, err = e.inflight.Fail(opID, state.OpKindRedeem, e.clock.Now()); err != nil {
		return err
	}
	e.resolved(state.OpKindRedeem, state.OpStatusFailed)

	e.logger.Warn().
		Str("operation_id", opID.String()).
		Str("controller", op.Controller.Hex()).
		Str("shares", op.Shares.String()).
		Msg("cross-chain liquidation failed, request restored")

	e.emit(&event.LiquidationFailed{
		Key:            e.keyFor(ctx),
		OperationID:    opID,
		Controller:     op.Controller,
		SharesRestored: op.Shares,
		IdleRestored:   op.LocalAssets,
		DebtRestored:   debt,
	})
	return nil
}

// SettleInvest confirms a remote invest and corrects the optimistic share
// count to what the remote vault actually minted.
func (e *Engine) SettleInvest(ctx context.Context, caller common.Address, opID uuid.UUID, actualShares sdkmath.Int) (err error) {
	if err = e.enter("settle_invest"); err != nil {
		return err
	}
	defer e.exit("settle_invest", time.Now(), &err)

	if err = e.roles.require(RoleGateway, caller); err != nil {
		return err
	}
	if e.duplicate(ctx, event.EventTypeInvestSettled) {
		return nil
	}
	if actualShares.IsNil() || actualShares.IsNegative() {
		return errorsmod.Wrap(types.ErrInvalidAmount, "actual shares must not be negative")
	}

	op, err := e.inflight.Check(opID, state.OpKindInvest)
	if err != nil {
		return err
	}
	delta := op.Deltas[0]
	if _, ok := e.registry.Get(delta.VaultID); !ok {
		return errorsmod.Wrapf(types.ErrVaultNotListed, "vault %s", delta.VaultID)
	}

	switch {
	case actualShares.GT(delta.Shares):
		err = e.registry.AddShares(delta.VaultID, actualShares.Sub(delta.Shares))
	case actualShares.LT(delta.Shares):
		_, err = e.registry.ReduceShares(delta.VaultID, delta.Shares.Sub(actualShares))
	}
	if err != nil {
		return err
	}

	if _, err = e.inflight.Settle(opID, state.OpKindInvest, e.clock.Now()); err != nil {
		return err
	}
	e.resolved(state.OpKindInvest, state.OpStatusSettled)

	e.emit(&event.InvestSettled{
		Key:            e.keyFor(ctx),
		OperationID:    opID,
		VaultID:        delta.VaultID,
		ExpectedShares: delta.Shares,
		ActualShares:   actualShares,
	})
	return nil
}

// NotifyFailedInvest returns amount of a vault's pending invests to idle,
// oldest first.
func (e *Engine) NotifyFailedInvest(ctx context.Context, caller common.Address, vaultID types.VaultID, amount sdkmath.Int) (err error) {
	if err = e.enter("notify_failed_invest"); err != nil {
		return err
	}
	defer e.exit("notify_failed_invest", time.Now(), &err)

	if err = e.roles.require(RoleGateway, caller); err != nil {
		return err
	}
	if e.duplicate(ctx, event.EventTypeInvestFailed) {
		return nil
	}
	if amount.IsNil() || !amount.IsPositive() {
		return errorsmod.Wrap(types.ErrInvalidAmount, "failed amount must be positive")
	}
	if _, err = e.registry.MustGet(vaultID); err != nil {
		return err
	}

	plan := e.inflight.PlanInvestFailure(vaultID, amount)
	if len(plan) == 0 {
		return errorsmod.Wrapf(types.ErrOperationNotPending, "no pending invest to vault %s", vaultID)
	}

	assets := sdkmath.ZeroInt()
	shares := sdkmath.ZeroInt()
	ids := make([]uuid.UUID, 0, len(plan))
	for _, r := range plan {
		assets = assets.Add(r.Assets)
		shares = shares.Add(r.Shares)
		ids = append(ids, r.OperationID)
	}

	reduced, err := e.registry.ReduceDebt(vaultID, assets)
	if err != nil {
		return err
	}
	if _, err = e.registry.ReduceShares(vaultID, shares); err != nil {
		return err
	}
	e.global.Debt = e.global.Debt.Sub(sdkmath.MinInt(e.global.Debt, reduced))
	e.global.Idle = e.global.Idle.Add(assets)

	now := e.clock.Now()
	e.inflight.ApplyInvestFailure(plan, now)
	for _, r := range plan {
		if op, err := e.inflight.Get(r.OperationID); err == nil && op.Status == state.OpStatusFailed {
			e.resolved(state.OpKindInvest, state.OpStatusFailed)
		}
	}

	e.logger.Warn().
		Str("vault_id", vaultID.String()).
		Str("amount", amount.String()).
		Str("reversed", assets.String()).
		Int("operations", len(ids)).
		Msg("cross-chain invest failed")

	e.emit(&event.InvestFailed{
		Key:            e.keyFor(ctx),
		VaultID:        vaultID,
		Amount:         assets,
		SharesReversed: shares,
		Operations:     ids,
	})
	return nil
}

func (e *Engine) resolved(kind state.OpKind, status state.OpStatus) {
	if e.metrics != nil {
		e.metrics.OperationsResolved.WithLabelValues(kind.String(), status.String()).Inc()
	}
}
