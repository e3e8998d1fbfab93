// internal/state/position.go
package state

import (
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"YieldVault/internal/fees"
	fpmath "YieldVault/internal/math"
)

// PositionAccount is one controller's holding in the vault.
type PositionAccount struct {
	Controller      common.Address  `json:"controller"`
	Balance         sdkmath.Int     `json:"balance"`
	EntrySharePrice sdkmath.Int     `json:"entry_share_price"`
	LastRedeem      time.Time       `json:"last_redeem"`
	Exemptions      fees.Exemptions `json:"exemptions"`
	LockCheckpoint  int64           `json:"lock_checkpoint"` // Unix seconds, time-weighted over deposits
}

func (p *PositionAccount) IsEmpty() bool {
	return !p.Balance.IsPositive()
}

// ApplyDeposit folds newly minted shares into the cost basis and the lock
// checkpoint using balance-weighted averages, both floored.
func (p *PositionAccount) ApplyDeposit(shares, price sdkmath.Int, now time.Time) {
	if !shares.IsPositive() {
		return
	}

	p.EntrySharePrice = fpmath.ComputeWeightedAverage(p.Balance, p.EntrySharePrice, shares, price)
	checkpoint := fpmath.ComputeWeightedAverage(
		p.Balance, sdkmath.NewInt(p.LockCheckpoint),
		shares, sdkmath.NewInt(now.Unix()),
	)
	p.LockCheckpoint = checkpoint.Int64()

	if p.LastRedeem.IsZero() {
		p.LastRedeem = now
	}
	p.Balance = p.Balance.Add(shares)
}

// UnlockedAt returns when shares become redeemable under lockPeriod.
func (p *PositionAccount) UnlockedAt(lockPeriod time.Duration) time.Time {
	return time.Unix(p.LockCheckpoint, 0).UTC().Add(lockPeriod)
}

// IsLocked reports whether the minimum holding period is still running.
func (p *PositionAccount) IsLocked(now time.Time, lockPeriod time.Duration) bool {
	if lockPeriod <= 0 {
		return false
	}
	return now.Before(p.UnlockedAt(lockPeriod))
}
