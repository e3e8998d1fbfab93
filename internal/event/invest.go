package event

import (
	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"

	"YieldVault/internal/types"
)

// Invested moves idle assets into a sub-vault. OperationID is set for
// remote vaults only.
type Invested struct {
	Key         string        `json:"key"`
	OperationID uuid.UUID     `json:"operation_id"`
	VaultID     types.VaultID `json:"vault_id"`
	ChainID     types.ChainID `json:"chain_id"`
	Assets      sdkmath.Int   `json:"assets"`
	Shares      sdkmath.Int   `json:"shares"`
	Remote      bool          `json:"remote"`
}

func (e *Invested) IdempotencyKey() string { return e.Key }
func (e *Invested) EventType() EventType   { return EventTypeInvested }

type InvestSettled struct {
	Key            string        `json:"key"`
	OperationID    uuid.UUID     `json:"operation_id"`
	VaultID        types.VaultID `json:"vault_id"`
	ExpectedShares sdkmath.Int   `json:"expected_shares"`
	ActualShares   sdkmath.Int   `json:"actual_shares"`
}

func (e *InvestSettled) IdempotencyKey() string { return e.Key }
func (e *InvestSettled) EventType() EventType   { return EventTypeInvestSettled }

type InvestFailed struct {
	Key            string        `json:"key"`
	VaultID        types.VaultID `json:"vault_id"`
	Amount         sdkmath.Int   `json:"amount"`
	SharesReversed sdkmath.Int   `json:"shares_reversed"`
	Operations     []uuid.UUID   `json:"operations"`
}

func (e *InvestFailed) IdempotencyKey() string { return e.Key }
func (e *InvestFailed) EventType() EventType   { return EventTypeInvestFailed }
