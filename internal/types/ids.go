package types

import "strconv"

// ChainID identifies a chain. The vault's own chain is configured at startup.
type ChainID uint64

// VaultID is the opaque identifier under which a sub-vault is listed.
// Zero is never a valid id.
type VaultID uint64

func (c ChainID) String() string {
	return strconv.FormatUint(uint64(c), 10)
}

func (v VaultID) String() string {
	return strconv.FormatUint(uint64(v), 10)
}
