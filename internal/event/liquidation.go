// internal/event/liquidation.go
package event

import (
	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// LiquidationFailed reverses a dispatched cross-chain liquidation.
type LiquidationFailed struct {
	Key            string         `json:"key"`
	OperationID    uuid.UUID      `json:"operation_id"`
	Controller     common.Address `json:"controller"`
	SharesRestored sdkmath.Int    `json:"shares_restored"`
	IdleRestored   sdkmath.Int    `json:"idle_restored"`
	DebtRestored   sdkmath.Int    `json:"debt_restored"`
}

func (e *LiquidationFailed) IdempotencyKey() string { return e.Key }
func (e *LiquidationFailed) EventType() EventType   { return EventTypeLiquidationFailed }
