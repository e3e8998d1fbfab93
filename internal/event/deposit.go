// internal/event/deposit.go
package event

import (
	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
)

type Deposited struct {
	Key        string         `json:"key"`
	Controller common.Address `json:"controller"`
	Assets     sdkmath.Int    `json:"assets"`
	Shares     sdkmath.Int    `json:"shares"`
	SharePrice sdkmath.Int    `json:"share_price"`
}

func (d *Deposited) IdempotencyKey() string {
	return d.Key
}

func (d *Deposited) EventType() EventType {
	return EventTypeDeposited
}

// Donated is a direct asset transfer into the vault. It raises idle
// without minting shares, so it accrues to every holder.
type Donated struct {
	Key    string         `json:"key"`
	From   common.Address `json:"from"`
	Assets sdkmath.Int    `json:"assets"`
}

func (d *Donated) IdempotencyKey() string { return d.Key }
func (d *Donated) EventType() EventType   { return EventTypeDonated }
