package state

import (
	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	fpmath "YieldVault/internal/math"
	"YieldVault/internal/types"
)

// RedeemRequest tracks one controller's asynchronous redemption.
type RedeemRequest struct {
	Controller      common.Address `json:"controller"`
	PendingShares   sdkmath.Int    `json:"pending_shares"`
	ClaimableShares sdkmath.Int    `json:"claimable_shares"`
	ClaimableAssets sdkmath.Int    `json:"claimable_assets"`
}

// FulfilledPrice is assets per whole claimable share, the price the
// redemption settled at.
func (r *RedeemRequest) FulfilledPrice(decimals uint8) sdkmath.Int {
	if !r.ClaimableShares.IsPositive() {
		return fpmath.Pow10(decimals)
	}
	return fpmath.MulDiv(r.ClaimableAssets, fpmath.Pow10(decimals), r.ClaimableShares, fpmath.RoundDown)
}

// RequestBook holds pending and claimable redeem balances per controller.
type RequestBook struct {
	requests map[common.Address]*RedeemRequest
}

func NewRequestBook() *RequestBook {
	return &RequestBook{requests: make(map[common.Address]*RedeemRequest)}
}

func (b *RequestBook) getOrCreate(controller common.Address) *RedeemRequest {
	r := b.requests[controller]
	if r == nil {
		r = &RedeemRequest{
			Controller:      controller,
			PendingShares:   sdkmath.ZeroInt(),
			ClaimableShares: sdkmath.ZeroInt(),
			ClaimableAssets: sdkmath.ZeroInt(),
		}
		b.requests[controller] = r
	}
	return r
}

// Get returns a copy of the controller's request state.
func (b *RequestBook) Get(controller common.Address) RedeemRequest {
	if r, ok := b.requests[controller]; ok {
		return *r
	}
	return RedeemRequest{
		Controller:      controller,
		PendingShares:   sdkmath.ZeroInt(),
		ClaimableShares: sdkmath.ZeroInt(),
		ClaimableAssets: sdkmath.ZeroInt(),
	}
}

// Request adds shares to the controller's pending amount.
func (b *RequestBook) Request(controller common.Address, shares sdkmath.Int) {
	r := b.getOrCreate(controller)
	r.PendingShares = r.PendingShares.Add(shares)
}

// Pending returns the controller's pending shares.
func (b *RequestBook) Pending(controller common.Address) sdkmath.Int {
	return b.Get(controller).PendingShares
}

// TakePending clears and returns the controller's pending shares.
func (b *RequestBook) TakePending(controller common.Address) sdkmath.Int {
	r, ok := b.requests[controller]
	if !ok {
		return sdkmath.ZeroInt()
	}
	shares := r.PendingShares
	r.PendingShares = sdkmath.ZeroInt()
	b.prune(r)
	return shares
}

// Fulfill moves a processed redemption into the claimable balance.
func (b *RequestBook) Fulfill(controller common.Address, shares, assets sdkmath.Int) {
	r := b.getOrCreate(controller)
	r.ClaimableShares = r.ClaimableShares.Add(shares)
	r.ClaimableAssets = r.ClaimableAssets.Add(assets)
}

// Claim consumes shares from the claimable balance and returns their
// assets pro rata, floored. Claiming the whole balance returns every
// remaining asset so no dust is stranded.
func (b *RequestBook) Claim(controller common.Address, shares sdkmath.Int) (sdkmath.Int, error) {
	r, ok := b.requests[controller]
	if !ok || !shares.IsPositive() || shares.GT(r.ClaimableShares) {
		available := sdkmath.ZeroInt()
		if ok {
			available = r.ClaimableShares
		}
		return sdkmath.ZeroInt(), errorsmod.Wrapf(types.ErrInsufficientShares,
			"claim %s, claimable %s", shares, available)
	}

	var assets sdkmath.Int
	if shares.Equal(r.ClaimableShares) {
		assets = r.ClaimableAssets
	} else {
		assets = fpmath.MulDiv(r.ClaimableAssets, shares, r.ClaimableShares, fpmath.RoundDown)
	}

	r.ClaimableShares = r.ClaimableShares.Sub(shares)
	r.ClaimableAssets = r.ClaimableAssets.Sub(assets)
	b.prune(r)
	return assets, nil
}

// TotalClaimableAssets sums assets reserved for claims.
func (b *RequestBook) TotalClaimableAssets() sdkmath.Int {
	total := sdkmath.ZeroInt()
	for _, r := range b.requests {
		total = total.Add(r.ClaimableAssets)
	}
	return total
}

// All returns a copy of every open request.
func (b *RequestBook) All() []RedeemRequest {
	out := make([]RedeemRequest, 0, len(b.requests))
	for _, r := range b.requests {
		out = append(out, *r)
	}
	return out
}

// Restore replaces the book contents.
func (b *RequestBook) Restore(requests []RedeemRequest) {
	b.requests = make(map[common.Address]*RedeemRequest, len(requests))
	for i := range requests {
		r := requests[i]
		b.requests[r.Controller] = &r
	}
}

func (b *RequestBook) prune(r *RedeemRequest) {
	if r.PendingShares.IsZero() && r.ClaimableShares.IsZero() && r.ClaimableAssets.IsZero() {
		delete(b.requests, r.Controller)
	}
}
