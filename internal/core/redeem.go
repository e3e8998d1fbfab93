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
	"YieldVault/internal/router"
	"YieldVault/internal/state"
	"YieldVault/internal/types"
)

// ProcessResult describes a processed redeem request. OperationID is
// uuid.Nil when no remote vault was touched and the request is already
// claimable.
type ProcessResult struct {
	OperationID uuid.UUID          `json:"operation_id"`
	Shares      sdkmath.Int        `json:"shares"`
	Assets      sdkmath.Int        `json:"assets"`
	Fulfilled   sdkmath.Int        `json:"fulfilled"`
	Route       *router.RouteCache `json:"route"`
}

// PreviewWithdrawalRoute plans a route for assets against current state
// without executing it.
func (e *Engine) PreviewWithdrawalRoute(ctx context.Context, assets sdkmath.Int) (route *router.RouteCache, err error) {
	if err = e.enter("preview_withdrawal_route"); err != nil {
		return nil, err
	}
	defer e.exit("preview_withdrawal_route", time.Now(), &err)

	return e.router.Plan(ctx, e.balances(), assets)
}

// ProcessRedeemRequest routes the controller's pending shares. Idle funds
// and local vaults are realized immediately; remote legs are dispatched to
// the gateway and settle through FulfillSettledRequest.
func (e *Engine) ProcessRedeemRequest(ctx context.Context, caller, controller common.Address) (res ProcessResult, err error) {
	if err = e.enter("process_redeem_request"); err != nil {
		return ProcessResult{}, err
	}
	defer e.exit("process_redeem_request", time.Now(), &err)

	if err = e.roles.require(RoleRelayer, caller); err != nil {
		return ProcessResult{}, err
	}

	shares := e.requests.Pending(controller)
	if !shares.IsPositive() {
		return ProcessResult{}, errorsmod.Wrapf(types.ErrNothingToProcess, "controller %s", controller.Hex())
	}
	target := e.global.ConvertToAssets(shares)

	// Remote legs are sized at fresh oracle prices; a stale report on any
	// remote vault the route needs fails here, before anything runs.
	route, err := e.router.PlanForExecution(ctx, e.balances(), target)
	if err != nil {
		return ProcessResult{}, err
	}

	if err = e.checkSlippage(route, route.LocalAssets()); err != nil {
		return ProcessResult{}, err
	}

	e.recordRoute(route)

	realizedLocal, err := e.executeLocalLegs(ctx, route.Local)
	if err != nil {
		return ProcessResult{}, err
	}
	// Local vaults may pay out less than quoted. Proceeds already realized
	// stay idle and the request stays pending.
	if err = e.checkSlippage(route, realizedLocal); err != nil {
		return ProcessResult{}, errorsmod.Wrap(err, "after local liquidation")
	}
	localAssets := route.IdleUsed.Add(realizedLocal)

	res = ProcessResult{Shares: shares, Assets: target, Route: route}
	if route.HasRemote() {
		res.OperationID = uuid.New()
		req := LiquidationRequest{
			OperationID:     res.OperationID,
			Controller:      controller,
			Shape:           route.Shape,
			Chains:          route.Remote,
			LocalAssets:     localAssets,
			RequestedAssets: target,
		}
		if err = dispatchLiquidation(ctx, e.gateway, req); err != nil {
			// Local legs already ran; their proceeds stay idle and the
			// request stays pending for another attempt.
			return ProcessResult{}, errorsmod.Wrapf(err, "dispatch %s liquidation", route.Shape)
		}
	}

	e.requests.TakePending(controller)
	e.global.Burn(shares)
	now := e.clock.Now()

	if !route.HasRemote() {
		e.global.Idle = fpmath.SaturatingSub(e.global.Idle, localAssets)
		e.requests.Fulfill(controller, shares, localAssets)
		res.Fulfilled = localAssets
	} else {
		deltas := make([]state.VaultDelta, 0, len(route.RemoteLegs()))
		for _, leg := range route.RemoteLegs() {
			reduced, err := e.applyLeg(leg)
			if err != nil {
				return ProcessResult{}, err
			}
			if price, ok := route.Prices[leg.VaultID]; ok {
				if err = e.registry.SetSharePrice(leg.VaultID, price); err != nil {
					return ProcessResult{}, err
				}
			}
			deltas = append(deltas, state.VaultDelta{
				VaultID: leg.VaultID,
				ChainID: leg.ChainID,
				Debt:    reduced,
				Shares:  leg.Shares,
			})
		}
		e.global.Idle = fpmath.SaturatingSub(e.global.Idle, localAssets)
		e.inflight.Record(&state.Operation{
			ID:           res.OperationID,
			Kind:         state.OpKindRedeem,
			Controller:   controller,
			Shape:        route.Shape.String(),
			Shares:       shares,
			Assets:       target,
			LocalAssets:  localAssets,
			Deltas:       deltas,
			DispatchedAt: now,
		})
		if e.metrics != nil {
			e.metrics.OperationsDispatched.WithLabelValues(state.OpKindRedeem.String()).Inc()
		}
	}

	e.logger.Info().
		Str("controller", controller.Hex()).
		Str("shares", shares.String()).
		Str("target", target.String()).
		Str("idle_used", route.IdleUsed.String()).
		Str("local_realized", realizedLocal.String()).
		Str("remote_assets", route.RemoteAssets().String()).
		Str("shape", route.Shape.String()).
		Str("operation_id", res.OperationID.String()).
		Msg("redeem request processed")

	e.emit(&event.RedeemProcessed{
		Key:          e.keyFor(ctx),
		Controller:   controller,
		OperationID:  res.OperationID,
		Shares:       shares,
		Assets:       target,
		IdleUsed:     route.IdleUsed,
		LocalAssets:  realizedLocal,
		RemoteAssets: route.RemoteAssets(),
		Shape:        route.Shape.String(),
	})
	return res, nil
}

func (e *Engine) balances() router.Balances {
	return router.Balances{Idle: e.global.Idle, Debt: e.global.Debt}
}

// checkSlippage rejects a route whose expected proceeds, idle plus local
// plus each remote leg after its bridge deduction, fall below MinAssetsBps
// of the target.
func (e *Engine) checkSlippage(route *router.RouteCache, local sdkmath.Int) error {
	expected := route.IdleUsed.Add(local)
	for _, leg := range route.RemoteLegs() {
		v, err := e.registry.MustGet(leg.VaultID)
		if err != nil {
			return err
		}
		expected = expected.Add(leg.Assets.Sub(fpmath.ApplyBps(leg.Assets, v.DeductionBps)))
	}
	minimum := fpmath.ApplyBps(route.Target, e.cfg.MinAssetsBps)
	if expected.LT(minimum) {
		return errorsmod.Wrapf(types.ErrInsufficientAssets, "expected %s, minimum %s", expected, minimum)
	}
	return nil
}

// executeLocalLegs redeems from local vaults in route order. Legs that
// completed before a failure are still applied so engine state matches the
// vaults.
func (e *Engine) executeLocalLegs(ctx context.Context, legs []router.Leg) (sdkmath.Int, error) {
	realized := sdkmath.ZeroInt()
	for _, leg := range legs {
		assets, err := e.local.Redeem(ctx, leg.Vault, leg.Shares)
		if err != nil {
			return realized, errorsmod.Wrapf(err, "redeem %s shares from vault %s", leg.Shares, leg.VaultID)
		}
		if _, err = e.applyLeg(leg); err != nil {
			return realized, err
		}
		e.global.Idle = e.global.Idle.Add(assets)
		realized = realized.Add(assets)
	}
	return realized, nil
}

// applyLeg removes a leg's shares and debt from its vault and the global debt.
func (e *Engine) applyLeg(leg router.Leg) (sdkmath.Int, error) {
	if _, err := e.registry.ReduceShares(leg.VaultID, leg.Shares); err != nil {
		return sdkmath.ZeroInt(), err
	}
	reduced, err := e.registry.ReduceDebt(leg.VaultID, leg.DebtReduction)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	e.global.Debt = fpmath.SaturatingSub(e.global.Debt, reduced)
	return reduced, nil
}

func (e *Engine) recordRoute(route *router.RouteCache) {
	if e.metrics == nil {
		return
	}
	e.metrics.RoutesPlanned.WithLabelValues(route.Shape.String()).Inc()
	if route.Shortfall.IsPositive() {
		e.metrics.RouteShortfalls.Inc()
	}
	e.metrics.RouteLegs.WithLabelValues("local").Observe(float64(len(route.Local)))
	e.metrics.RouteLegs.WithLabelValues("remote").Observe(float64(len(route.RemoteLegs())))
}
