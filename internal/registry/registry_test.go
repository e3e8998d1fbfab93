package registry_test

import (
	"testing"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"YieldVault/internal/registry"
	"YieldVault/internal/types"
)

const localChain types.ChainID = 1

func params(chain types.ChainID, id types.VaultID) registry.AddParams {
	return registry.AddParams{
		ChainID:    chain,
		VaultID:    id,
		Address:    common.BigToAddress(sdkmath.NewInt(int64(id)).BigInt()),
		Decimals:   6,
		SharePrice: sdkmath.NewInt(1_000_000),
	}
}

func TestCompact_NoHolesIsNoop(t *testing.T) {
	q := registry.NewWithdrawalQueue(5)
	for _, id := range []types.VaultID{3, 1, 2} {
		require.NoError(t, q.Append(id))
	}
	before := q.Slots()
	q.Compact()
	q.Compact()
	assert.Equal(t, before, q.Slots())
}

func TestCompact_PreservesOrderOfSurvivors(t *testing.T) {
	q := registry.NewWithdrawalQueue(6)
	for _, id := range []types.VaultID{10, 20, 30, 40, 50} {
		require.NoError(t, q.Append(id))
	}

	require.True(t, q.Remove(20))
	require.True(t, q.Remove(40))

	assert.Equal(t, []types.VaultID{10, 30, 50, 0, 0, 0}, q.Slots())
	assert.Equal(t, 3, q.Len())

	// Freed slots are reused from the tail.
	require.NoError(t, q.Append(60))
	assert.Equal(t, []types.VaultID{10, 30, 50, 60}, q.IDs())
}

func TestCompact_RemoveHeadAndTail(t *testing.T) {
	q := registry.NewWithdrawalQueue(4)
	for _, id := range []types.VaultID{1, 2, 3, 4} {
		require.NoError(t, q.Append(id))
	}
	require.True(t, q.Remove(1))
	require.True(t, q.Remove(4))
	require.False(t, q.Remove(99))
	assert.Equal(t, []types.VaultID{2, 3, 0, 0}, q.Slots())
}

func TestQueue_Full(t *testing.T) {
	q := registry.NewWithdrawalQueue(2)
	require.NoError(t, q.Append(1))
	require.NoError(t, q.Append(2))
	err := q.Append(3)
	assert.True(t, errorsmod.IsOf(err, types.ErrQueueFull))
}

func TestQueue_RejectsDuplicatesAndZero(t *testing.T) {
	q := registry.NewWithdrawalQueue(3)
	require.NoError(t, q.Append(7))
	assert.True(t, errorsmod.IsOf(q.Append(7), types.ErrAlreadyListed))
	assert.True(t, errorsmod.IsOf(q.Append(0), types.ErrZeroVaultID))
}

func TestQueue_Reorder(t *testing.T) {
	q := registry.NewWithdrawalQueue(4)
	for _, id := range []types.VaultID{1, 2, 3} {
		require.NoError(t, q.Append(id))
	}
	require.NoError(t, q.Reorder([]types.VaultID{3, 1, 2}))
	assert.Equal(t, []types.VaultID{3, 1, 2}, q.IDs())

	assert.True(t, errorsmod.IsOf(q.Reorder([]types.VaultID{3, 3, 2}), types.ErrInvalidQueue))
	assert.True(t, errorsmod.IsOf(q.Reorder([]types.VaultID{1, 2}), types.ErrInvalidQueue))
	assert.True(t, errorsmod.IsOf(q.Reorder([]types.VaultID{1, 2, 9}), types.ErrInvalidQueue))
	assert.Equal(t, []types.VaultID{3, 1, 2}, q.IDs())
}

func TestRegistry_AddRoutesToQueueByChain(t *testing.T) {
	r := registry.NewRegistry(localChain, 4)

	v, err := r.Add(params(localChain, 1))
	require.NoError(t, err)
	assert.True(t, v.Local)
	assert.True(t, v.Debt.IsZero())

	v, err = r.Add(params(42, 2))
	require.NoError(t, err)
	assert.True(t, v.IsRemote())

	assert.Equal(t, []types.VaultID{1}, r.LocalQueue())
	assert.Equal(t, []types.VaultID{2}, r.CrossChainQueue())
}

func TestRegistry_AddValidation(t *testing.T) {
	r := registry.NewRegistry(localChain, 4)
	_, err := r.Add(params(localChain, 1))
	require.NoError(t, err)

	_, err = r.Add(params(localChain, 1))
	assert.True(t, errorsmod.IsOf(err, types.ErrAlreadyListed))

	_, err = r.Add(params(localChain, 0))
	assert.True(t, errorsmod.IsOf(err, types.ErrZeroVaultID))

	p := params(localChain, 5)
	p.SharePrice = sdkmath.ZeroInt()
	_, err = r.Add(p)
	assert.True(t, errorsmod.IsOf(err, types.ErrZeroSharePrice))

	p = params(localChain, 6)
	p.DeductionBps = 10_001
	_, err = r.Add(p)
	assert.True(t, errorsmod.IsOf(err, types.ErrInvalidBps))

	// Failed adds leave nothing behind.
	assert.Equal(t, []types.VaultID{1}, r.LocalQueue())
	assert.Len(t, r.Vaults(), 1)
}

func TestRegistry_RemoveCompactsOwningQueue(t *testing.T) {
	r := registry.NewRegistry(localChain, 4)
	for _, id := range []types.VaultID{1, 2, 3} {
		_, err := r.Add(params(localChain, id))
		require.NoError(t, err)
	}
	_, err := r.Add(params(9, 4))
	require.NoError(t, err)

	_, err = r.Remove(2)
	require.NoError(t, err)
	assert.Equal(t, []types.VaultID{1, 3}, r.LocalQueue())
	assert.Equal(t, []types.VaultID{4}, r.CrossChainQueue())

	_, err = r.Remove(2)
	assert.True(t, errorsmod.IsOf(err, types.ErrVaultNotListed))
}

func TestRegistry_DebtBookkeeping(t *testing.T) {
	r := registry.NewRegistry(localChain, 4)
	_, err := r.Add(params(localChain, 1))
	require.NoError(t, err)
	_, err = r.Add(params(7, 2))
	require.NoError(t, err)

	require.NoError(t, r.AddDebt(1, sdkmath.NewInt(400)))
	require.NoError(t, r.AddDebt(2, sdkmath.NewInt(600)))
	assert.Equal(t, sdkmath.NewInt(1000), r.TotalDebt())

	reduced, err := r.ReduceDebt(1, sdkmath.NewInt(500))
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(400), reduced)

	v, _ := r.Get(1)
	assert.True(t, v.Debt.IsZero())
}

func TestRegistry_Restore(t *testing.T) {
	r := registry.NewRegistry(localChain, 4)
	for _, id := range []types.VaultID{1, 2} {
		_, err := r.Add(params(localChain, id))
		require.NoError(t, err)
	}
	_, err := r.Add(params(3, 3))
	require.NoError(t, err)
	require.NoError(t, r.SetQueue(true, []types.VaultID{2, 1}))

	restored := registry.NewRegistry(localChain, 4)
	require.NoError(t, restored.Restore(r.Vaults(), r.LocalQueue(), r.CrossChainQueue()))
	assert.Equal(t, []types.VaultID{2, 1}, restored.LocalQueue())
	assert.Equal(t, []types.VaultID{3}, restored.CrossChainQueue())

	err = restored.Restore(r.Vaults(), []types.VaultID{99}, nil)
	assert.True(t, errorsmod.IsOf(err, types.ErrVaultNotListed))
}

func TestRegistry_ShareBookkeeping(t *testing.T) {
	r := registry.NewRegistry(localChain, 4)
	_, err := r.Add(params(localChain, 1))
	require.NoError(t, err)

	require.NoError(t, r.AddShares(1, sdkmath.NewInt(250)))
	removed, err := r.ReduceShares(1, sdkmath.NewInt(300))
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(250), removed)

	assert.True(t, errorsmod.IsOf(r.AddShares(2, sdkmath.NewInt(1)), types.ErrVaultNotListed))
}
