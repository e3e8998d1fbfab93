// internal/event/vault.go
package event

import (
	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"YieldVault/internal/types"
)

type VaultAdded struct {
	Key        string         `json:"key"`
	VaultID    types.VaultID  `json:"vault_id"`
	ChainID    types.ChainID  `json:"chain_id"`
	Address    common.Address `json:"address"`
	Decimals   uint8          `json:"decimals"`
	Oracle     common.Address `json:"oracle"`
	SharePrice sdkmath.Int    `json:"share_price"`
	Local      bool           `json:"local"`
}

func (e *VaultAdded) IdempotencyKey() string { return e.Key }
func (e *VaultAdded) EventType() EventType   { return EventTypeVaultAdded }

type VaultRemoved struct {
	Key     string         `json:"key"`
	VaultID types.VaultID  `json:"vault_id"`
	ChainID types.ChainID  `json:"chain_id"`
	Address common.Address `json:"address"`
}

func (e *VaultRemoved) IdempotencyKey() string { return e.Key }
func (e *VaultRemoved) EventType() EventType   { return EventTypeVaultRemoved }

type WithdrawalQueueSet struct {
	Key   string          `json:"key"`
	Local bool            `json:"local"`
	Queue []types.VaultID `json:"queue"`
}

func (e *WithdrawalQueueSet) IdempotencyKey() string { return e.Key }
func (e *WithdrawalQueueSet) EventType() EventType   { return EventTypeWithdrawalQueueSet }

type FeeExemptionSet struct {
	Key            string         `json:"key"`
	Controller     common.Address `json:"controller"`
	ManagementBps  uint64         `json:"management_bps"`
	PerformanceBps uint64         `json:"performance_bps"`
	OracleBps      uint64         `json:"oracle_bps"`
}

func (e *FeeExemptionSet) IdempotencyKey() string { return e.Key }
func (e *FeeExemptionSet) EventType() EventType   { return EventTypeFeeExemptionSet }

type EmergencyShutdownSet struct {
	Key    string `json:"key"`
	Active bool   `json:"active"`
}

func (e *EmergencyShutdownSet) IdempotencyKey() string { return e.Key }
func (e *EmergencyShutdownSet) EventType() EventType   { return EventTypeEmergencyShutdownSet }
