package registry

import (
	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"YieldVault/internal/types"
)

// SubVault is one listed yield source.
type SubVault struct {
	ChainID      types.ChainID
	VaultID      types.VaultID
	Address      common.Address
	Decimals     uint8
	DeductionBps uint64
	Oracle       common.Address // Zero for vaults on the local chain
	Local        bool
	SharePrice   sdkmath.Int // Last reported price, 10^Decimals scaled
	Shares       sdkmath.Int // Sub-vault shares held on the vault's behalf
	Debt         sdkmath.Int // Assets currently attributed to this vault
}

// IsRemote reports whether the vault lives on another chain and is priced by oracle.
func (v *SubVault) IsRemote() bool {
	return !v.Local
}

// Clone returns a copy safe to mutate independently of the registry.
func (v *SubVault) Clone() *SubVault {
	c := *v
	return &c
}
