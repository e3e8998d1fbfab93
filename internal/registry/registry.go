// internal/registry/registry.go
package registry

import (
	"sort"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"YieldVault/internal/types"
)

// Registry holds the listed sub-vaults and the two withdrawal queues.
// Not safe for concurrent use; the engine owns it.
type Registry struct {
	localChain types.ChainID
	vaults     map[types.VaultID]*SubVault
	local      *WithdrawalQueue
	crossChain *WithdrawalQueue
}

// NewRegistry creates an empty registry for a vault deployed on localChain.
func NewRegistry(localChain types.ChainID, queueCapacity int) *Registry {
	return &Registry{
		localChain: localChain,
		vaults:     make(map[types.VaultID]*SubVault),
		local:      NewWithdrawalQueue(queueCapacity),
		crossChain: NewWithdrawalQueue(queueCapacity),
	}
}

// LocalChain returns the chain the vault itself lives on.
func (r *Registry) LocalChain() types.ChainID {
	return r.localChain
}

// AddParams describes a vault about to be listed. SharePrice is the
// initial price already resolved by the caller.
type AddParams struct {
	ChainID      types.ChainID
	VaultID      types.VaultID
	Address      common.Address
	Decimals     uint8
	DeductionBps uint64
	Oracle       common.Address
	SharePrice   sdkmath.Int
}

// Validate runs the listing guards without touching the registry.
func (r *Registry) Validate(p AddParams) error {
	if p.VaultID == 0 {
		return types.ErrZeroVaultID
	}
	if _, ok := r.vaults[p.VaultID]; ok {
		return errorsmod.Wrapf(types.ErrAlreadyListed, "vault %s", p.VaultID)
	}
	if p.DeductionBps > 10_000 {
		return errorsmod.Wrapf(types.ErrInvalidBps, "deduction %d", p.DeductionBps)
	}
	q := r.queueFor(p.ChainID == r.localChain)
	if q.Len() >= q.Capacity() {
		return errorsmod.Wrapf(types.ErrQueueFull, "capacity %d", q.Capacity())
	}
	return nil
}

// Add lists a vault and appends it to the matching queue.
func (r *Registry) Add(p AddParams) (*SubVault, error) {
	if err := r.Validate(p); err != nil {
		return nil, err
	}
	if p.SharePrice.IsNil() || !p.SharePrice.IsPositive() {
		return nil, errorsmod.Wrapf(types.ErrZeroSharePrice, "vault %s", p.VaultID)
	}

	local := p.ChainID == r.localChain
	if err := r.queueFor(local).Append(p.VaultID); err != nil {
		return nil, err
	}

	v := &SubVault{
		ChainID:      p.ChainID,
		VaultID:      p.VaultID,
		Address:      p.Address,
		Decimals:     p.Decimals,
		DeductionBps: p.DeductionBps,
		Oracle:       p.Oracle,
		Local:        local,
		SharePrice:   p.SharePrice,
		Shares:       sdkmath.ZeroInt(),
		Debt:         sdkmath.ZeroInt(),
	}
	r.vaults[p.VaultID] = v
	return v, nil
}

// Remove delists a vault. The caller checks the balance is zero first.
func (r *Registry) Remove(id types.VaultID) (*SubVault, error) {
	v, ok := r.vaults[id]
	if !ok {
		return nil, errorsmod.Wrapf(types.ErrVaultNotListed, "vault %s", id)
	}
	r.queueFor(v.Local).Remove(id)
	delete(r.vaults, id)
	return v, nil
}

// Get returns the live entry for id.
func (r *Registry) Get(id types.VaultID) (*SubVault, bool) {
	v, ok := r.vaults[id]
	return v, ok
}

// MustGet returns the entry or ErrVaultNotListed.
func (r *Registry) MustGet(id types.VaultID) (*SubVault, error) {
	v, ok := r.vaults[id]
	if !ok {
		return nil, errorsmod.Wrapf(types.ErrVaultNotListed, "vault %s", id)
	}
	return v, nil
}

// LocalQueue returns the local queue ids in priority order.
func (r *Registry) LocalQueue() []types.VaultID {
	return r.local.IDs()
}

// CrossChainQueue returns the cross-chain queue ids in priority order.
func (r *Registry) CrossChainQueue() []types.VaultID {
	return r.crossChain.IDs()
}

// SetQueue reorders one queue. ids must be the same set currently queued.
func (r *Registry) SetQueue(local bool, ids []types.VaultID) error {
	return r.queueFor(local).Reorder(ids)
}

// SetSharePrice updates the cached price of a listed vault.
func (r *Registry) SetSharePrice(id types.VaultID, price sdkmath.Int) error {
	v, err := r.MustGet(id)
	if err != nil {
		return err
	}
	v.SharePrice = price
	return nil
}

// AddDebt increases the vault's attributed debt.
func (r *Registry) AddDebt(id types.VaultID, amount sdkmath.Int) error {
	v, err := r.MustGet(id)
	if err != nil {
		return err
	}
	v.Debt = v.Debt.Add(amount)
	return nil
}

// ReduceDebt lowers the vault's debt by at most amount and returns the
// reduction actually applied.
func (r *Registry) ReduceDebt(id types.VaultID, amount sdkmath.Int) (sdkmath.Int, error) {
	v, err := r.MustGet(id)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	reduced := sdkmath.MinInt(v.Debt, amount)
	v.Debt = v.Debt.Sub(reduced)
	return reduced, nil
}

// AddShares credits shares held in the vault.
func (r *Registry) AddShares(id types.VaultID, shares sdkmath.Int) error {
	v, err := r.MustGet(id)
	if err != nil {
		return err
	}
	v.Shares = v.Shares.Add(shares)
	return nil
}

// ReduceShares debits at most shares and returns the amount removed.
func (r *Registry) ReduceShares(id types.VaultID, shares sdkmath.Int) (sdkmath.Int, error) {
	v, err := r.MustGet(id)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	reduced := sdkmath.MinInt(v.Shares, shares)
	v.Shares = v.Shares.Sub(reduced)
	return reduced, nil
}

// TotalDebt sums the debt of every listed vault.
func (r *Registry) TotalDebt() sdkmath.Int {
	total := sdkmath.ZeroInt()
	for _, v := range r.vaults {
		total = total.Add(v.Debt)
	}
	return total
}

// Vaults returns a copy of every entry ordered by id.
func (r *Registry) Vaults() []*SubVault {
	out := make([]*SubVault, 0, len(r.vaults))
	for _, v := range r.vaults {
		out = append(out, v.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VaultID < out[j].VaultID })
	return out
}

// Restore rebuilds the registry from snapshot data. Queue order is taken
// from the id slices, entries must already be listed in vaults.
func (r *Registry) Restore(vaults []*SubVault, localQueue, crossQueue []types.VaultID) error {
	r.vaults = make(map[types.VaultID]*SubVault, len(vaults))
	r.local = NewWithdrawalQueue(r.local.Capacity())
	r.crossChain = NewWithdrawalQueue(r.crossChain.Capacity())

	for _, v := range vaults {
		r.vaults[v.VaultID] = v.Clone()
	}
	for _, id := range localQueue {
		if _, ok := r.vaults[id]; !ok {
			return errorsmod.Wrapf(types.ErrVaultNotListed, "local queue entry %s", id)
		}
		if err := r.local.Append(id); err != nil {
			return err
		}
	}
	for _, id := range crossQueue {
		if _, ok := r.vaults[id]; !ok {
			return errorsmod.Wrapf(types.ErrVaultNotListed, "cross-chain queue entry %s", id)
		}
		if err := r.crossChain.Append(id); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) queueFor(local bool) *WithdrawalQueue {
	if local {
		return r.local
	}
	return r.crossChain
}
