package core

import (
	"context"
	"time"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"YieldVault/internal/event"
	"YieldVault/internal/fees"
	"YieldVault/internal/registry"
	"YieldVault/internal/types"
)

// AddVaultParams lists a new sub-vault. Oracle is ignored for local vaults.
type AddVaultParams struct {
	ChainID      types.ChainID
	VaultID      types.VaultID
	Address      common.Address
	Decimals     uint8
	DeductionBps uint64
	Oracle       common.Address
}

// AddVault lists a sub-vault at its current share price and appends it to
// the local or cross-chain queue.
func (e *Engine) AddVault(ctx context.Context, caller common.Address, p AddVaultParams) (err error) {
	if err = e.enter("add_vault"); err != nil {
		return err
	}
	defer e.exit("add_vault", time.Now(), &err)

	if err = e.roles.require(RoleAdmin, caller); err != nil {
		return err
	}

	params := registry.AddParams{
		ChainID:      p.ChainID,
		VaultID:      p.VaultID,
		Address:      p.Address,
		Decimals:     p.Decimals,
		DeductionBps: p.DeductionBps,
		Oracle:       p.Oracle,
	}
	if err = e.registry.Validate(params); err != nil {
		return err
	}

	local := p.ChainID == e.cfg.LocalChain
	if local {
		params.Oracle = common.Address{}
	}
	probe := &registry.SubVault{
		ChainID:  p.ChainID,
		VaultID:  p.VaultID,
		Address:  p.Address,
		Decimals: p.Decimals,
		Oracle:   params.Oracle,
		Local:    local,
	}
	params.SharePrice, err = e.prices.QuotePrice(ctx, probe, false)
	if err != nil {
		return err
	}
	if !params.SharePrice.IsPositive() {
		return errorsmod.Wrapf(types.ErrZeroSharePrice, "vault %s", p.VaultID)
	}

	if local && e.approver != nil {
		if err = e.approver.Approve(ctx, p.Address); err != nil {
			return errorsmod.Wrapf(err, "approve vault %s", p.VaultID)
		}
	}

	v, err := e.registry.Add(params)
	if err != nil {
		return err
	}

	e.logger.Info().
		Str("vault_id", v.VaultID.String()).
		Str("chain_id", v.ChainID.String()).
		Bool("local", v.Local).
		Str("share_price", v.SharePrice.String()).
		Msg("vault added")

	e.emit(&event.VaultAdded{
		Key:        e.keyFor(ctx),
		VaultID:    v.VaultID,
		ChainID:    v.ChainID,
		Address:    v.Address,
		Decimals:   v.Decimals,
		Oracle:     v.Oracle,
		SharePrice: v.SharePrice,
		Local:      v.Local,
	})
	return nil
}

// RemoveVault delists a sub-vault whose share balance is worth nothing.
func (e *Engine) RemoveVault(ctx context.Context, caller common.Address, id types.VaultID) (err error) {
	if err = e.enter("remove_vault"); err != nil {
		return err
	}
	defer e.exit("remove_vault", time.Now(), &err)

	if err = e.roles.require(RoleAdmin, caller); err != nil {
		return err
	}

	v, err := e.registry.MustGet(id)
	if err != nil {
		return err
	}

	var value sdkmath.Int
	if v.Local {
		value, err = e.prices.AssetsForShares(ctx, v, v.Shares, false)
		if err != nil {
			return err
		}
	} else {
		value = e.prices.CachedAssetsForShares(v, v.Shares)
	}
	if value.IsPositive() {
		return errorsmod.Wrapf(types.ErrBalanceNotZero, "vault %s holds %s assets", id, value)
	}
	if e.inflight.References(id) {
		return errorsmod.Wrapf(types.ErrBalanceNotZero, "vault %s has unsettled cross-chain operations", id)
	}

	if v.Local && e.approver != nil {
		if err = e.approver.Revoke(ctx, v.Address); err != nil {
			return errorsmod.Wrapf(err, "revoke vault %s", id)
		}
	}

	if _, err = e.registry.Remove(id); err != nil {
		return err
	}
	if v.Debt.IsPositive() {
		// Nothing left to redeem; the attributed debt is a realized loss.
		e.global.Debt = e.global.Debt.Sub(sdkmath.MinInt(e.global.Debt, v.Debt))
		e.logger.Warn().Str("vault_id", id.String()).Str("debt", v.Debt.String()).Msg("writing off debt of removed vault")
	}

	e.emit(&event.VaultRemoved{
		Key:     e.keyFor(ctx),
		VaultID: id,
		ChainID: v.ChainID,
		Address: v.Address,
	})
	return nil
}

// SetWithdrawalQueue reorders the local or cross-chain queue.
func (e *Engine) SetWithdrawalQueue(ctx context.Context, caller common.Address, local bool, ids []types.VaultID) (err error) {
	if err = e.enter("set_withdrawal_queue"); err != nil {
		return err
	}
	defer e.exit("set_withdrawal_queue", time.Now(), &err)

	if err = e.roles.require(RoleAdmin, caller); err != nil {
		return err
	}
	if err = e.registry.SetQueue(local, ids); err != nil {
		return err
	}

	e.emit(&event.WithdrawalQueueSet{Key: e.keyFor(ctx), Local: local, Queue: ids})
	return nil
}

// SetFeeExemption stores per-controller discounts. Values above the fee
// rate are accepted and floored when fees are computed.
func (e *Engine) SetFeeExemption(ctx context.Context, caller, controller common.Address, ex fees.Exemptions) (err error) {
	if err = e.enter("set_fee_exemption"); err != nil {
		return err
	}
	defer e.exit("set_fee_exemption", time.Now(), &err)

	if err = e.roles.require(RoleAdmin, caller); err != nil {
		return err
	}
	if err = ex.Validate(); err != nil {
		return err
	}

	e.positions.GetOrCreatePosition(controller).Exemptions = ex

	e.emit(&event.FeeExemptionSet{
		Key:            e.keyFor(ctx),
		Controller:     controller,
		ManagementBps:  ex.ManagementBps,
		PerformanceBps: ex.PerformanceBps,
		OracleBps:      ex.OracleBps,
	})
	return nil
}

// SetEmergencyShutdown blocks deposits, new redeem requests and investing.
func (e *Engine) SetEmergencyShutdown(ctx context.Context, caller common.Address, active bool) (err error) {
	if err = e.enter("set_emergency_shutdown"); err != nil {
		return err
	}
	defer e.exit("set_emergency_shutdown", time.Now(), &err)

	if err = e.roles.require(RoleEmergency, caller); err != nil {
		return err
	}
	e.shutdown = active
	e.logger.Warn().Bool("active", active).Msg("emergency shutdown toggled")

	e.emit(&event.EmergencyShutdownSet{Key: e.keyFor(ctx), Active: active})
	return nil
}
