package core

import (
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"

	"YieldVault/internal/fees"
	fpmath "YieldVault/internal/math"
	"YieldVault/internal/registry"
	"YieldVault/internal/types"
)

// Config is the static configuration of one vault.
type Config struct {
	LocalChain         types.ChainID
	Decimals           uint8
	QueueCapacity      int
	StalenessTolerance time.Duration
	// Minimum holding period before a deposit may be requested for redemption.
	LockPeriod time.Duration
	// Minimum share of the target a route must be expected to deliver.
	MinAssetsBps uint64
	Fees         fees.Params
	Treasury     common.Address
}

func DefaultConfig() Config {
	return Config{
		LocalChain:         1,
		Decimals:           6,
		QueueCapacity:      registry.DefaultQueueCapacity,
		StalenessTolerance: time.Hour,
		MinAssetsBps:       9_900,
	}
}

func (c Config) Validate() error {
	if c.MinAssetsBps > fpmath.BpsDenominator {
		return errorsmod.Wrapf(types.ErrInvalidBps, "min assets %d", c.MinAssetsBps)
	}
	if c.LockPeriod < 0 {
		return errorsmod.Wrapf(types.ErrInvalidAmount, "lock period %s", c.LockPeriod)
	}
	if c.Treasury == (common.Address{}) {
		return errorsmod.Wrap(types.ErrInvalidAmount, "treasury address is zero")
	}
	return c.Fees.Validate()
}
