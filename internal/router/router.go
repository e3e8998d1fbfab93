// internal/router/router.go
package router

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"

	"YieldVault/internal/pricing"
	"YieldVault/internal/registry"
	"YieldVault/internal/types"
)

// PendingInvests reports assets dispatched to remote vaults but not yet
// confirmed. Those assets cannot back a withdrawal.
type PendingInvests interface {
	TotalPendingXChainInvests() sdkmath.Int
}

// Balances are the global totals the router plans against.
type Balances struct {
	Idle sdkmath.Int
	Debt sdkmath.Int
}

// Router plans liquidation routes. It reads the registry and prices but
// never mutates either.
type Router struct {
	registry *registry.Registry
	prices   *pricing.Converter
	pending  PendingInvests
}

func NewRouter(reg *registry.Registry, prices *pricing.Converter, pending PendingInvests) *Router {
	return &Router{
		registry: reg,
		prices:   prices,
		pending:  pending,
	}
}

// Plan builds the route that frees target assets. A route that cannot be
// fully covered after both queues are exhausted is returned with a
// non-zero Shortfall rather than an error. Remote vaults are valued at
// their cached price, so the result is only an estimate for them.
func (r *Router) Plan(ctx context.Context, bal Balances, target sdkmath.Int) (*RouteCache, error) {
	return r.plan(ctx, bal, target, false)
}

// PlanForExecution is Plan with every remote vault the walk reaches sized
// at a fresh oracle price. A stale report on such a vault fails with
// ErrStalePrice. The quoted prices are returned in the route's Prices.
func (r *Router) PlanForExecution(ctx context.Context, bal Balances, target sdkmath.Int) (*RouteCache, error) {
	return r.plan(ctx, bal, target, true)
}

func (r *Router) plan(ctx context.Context, bal Balances, target sdkmath.Int, fresh bool) (*RouteCache, error) {
	if target.IsNil() || !target.IsPositive() {
		return nil, errorsmod.Wrap(types.ErrInvalidAmount, "route target must be positive")
	}

	totalAssets := bal.Idle.Add(bal.Debt)
	available := totalAssets
	if r.pending != nil {
		available = available.Sub(r.pending.TotalPendingXChainInvests())
	}
	if target.GT(available) {
		return nil, errorsmod.Wrapf(types.ErrInsufficientAvailableAssets,
			"target %s, available %s", target, available)
	}

	route := newRouteCache(target, bal.Idle, bal.Debt)
	if fresh {
		route.Prices = make(map[types.VaultID]sdkmath.Int)
	}

	if bal.Idle.GTE(target) {
		route.IdleUsed = target
		route.IdleAfter = bal.Idle.Sub(target)
		route.classify()
		return route, nil
	}

	route.IdleUsed = bal.Idle
	route.IdleAfter = sdkmath.ZeroInt()
	remaining := target.Sub(bal.Idle)

	var err error
	remaining, err = r.walk(ctx, route, r.registry.LocalQueue(), remaining)
	if err != nil {
		return nil, err
	}
	if remaining.IsPositive() {
		remaining, err = r.walk(ctx, route, r.registry.CrossChainQueue(), remaining)
		if err != nil {
			return nil, err
		}
	}

	route.Shortfall = remaining
	route.classify()
	return route, nil
}

// walk drains vaults in queue order until remaining is zero.
func (r *Router) walk(ctx context.Context, route *RouteCache, queue []types.VaultID, remaining sdkmath.Int) (sdkmath.Int, error) {
	for _, id := range queue {
		if !remaining.IsPositive() {
			break
		}
		v, ok := r.registry.Get(id)
		if !ok || !v.Shares.IsPositive() {
			continue
		}

		price, err := r.remotePrice(ctx, route, v)
		if err != nil {
			return remaining, err
		}

		maxRedeemable, err := r.maxRedeemable(ctx, v, price)
		if err != nil {
			return remaining, err
		}

		take := sdkmath.MinInt(maxRedeemable, remaining)
		if !take.IsPositive() {
			continue
		}

		var shares sdkmath.Int
		if remaining.GTE(maxRedeemable) {
			// Whole balance, no dust left behind.
			shares = v.Shares
		} else {
			shares, err = r.sharesFor(ctx, v, take, price)
			if err != nil {
				return remaining, err
			}
		}

		leg := Leg{
			ChainID:       v.ChainID,
			VaultID:       v.VaultID,
			Vault:         v.Address,
			Shares:        shares,
			Assets:        take,
			DebtReduction: sdkmath.MinInt(v.Debt, take),
		}
		if v.Local {
			route.addLocal(leg)
		} else {
			route.addRemote(leg)
		}
		remaining = remaining.Sub(take)
	}
	return remaining, nil
}

// remotePrice is the price a remote vault is sized at: a fresh enforced
// quote when the route carries Prices, the cached price otherwise. Local
// vaults return a nil Int and are always queried live.
func (r *Router) remotePrice(ctx context.Context, route *RouteCache, v *registry.SubVault) (sdkmath.Int, error) {
	if v.Local {
		return sdkmath.Int{}, nil
	}
	if route.Prices == nil {
		return v.SharePrice, nil
	}
	price, err := r.prices.QuotePrice(ctx, v, true)
	if err != nil {
		return sdkmath.Int{}, err
	}
	route.Prices[v.VaultID] = price
	return price, nil
}

// maxRedeemable values the vault's whole share balance.
func (r *Router) maxRedeemable(ctx context.Context, v *registry.SubVault, price sdkmath.Int) (sdkmath.Int, error) {
	if v.Local {
		return r.prices.AssetsForShares(ctx, v, v.Shares, true)
	}
	return pricing.AssetsAtPrice(v, v.Shares, price), nil
}

func (r *Router) sharesFor(ctx context.Context, v *registry.SubVault, assets, price sdkmath.Int) (sdkmath.Int, error) {
	if v.Local {
		return r.prices.SharesForAssets(ctx, v, assets, true)
	}
	return pricing.SharesAtPrice(v, assets, price), nil
}
