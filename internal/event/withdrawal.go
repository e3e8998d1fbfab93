// internal/event/withdrawal.go
package event

import (
	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

type RedeemRequested struct {
	Key        string         `json:"key"`
	Controller common.Address `json:"controller"`
	Shares     sdkmath.Int    `json:"shares"`
}

func (e *RedeemRequested) IdempotencyKey() string { return e.Key }
func (e *RedeemRequested) EventType() EventType   { return EventTypeRedeemRequested }

// RedeemProcessed is emitted once a pending request has been routed.
// OperationID is uuid.Nil when the route was local only.
type RedeemProcessed struct {
	Key          string         `json:"key"`
	Controller   common.Address `json:"controller"`
	OperationID  uuid.UUID      `json:"operation_id"`
	Shares       sdkmath.Int    `json:"shares"`
	Assets       sdkmath.Int    `json:"assets"`
	IdleUsed     sdkmath.Int    `json:"idle_used"`
	LocalAssets  sdkmath.Int    `json:"local_assets"`
	RemoteAssets sdkmath.Int    `json:"remote_assets"`
	Shape        string         `json:"shape"`
}

func (e *RedeemProcessed) IdempotencyKey() string { return e.Key }
func (e *RedeemProcessed) EventType() EventType   { return EventTypeRedeemProcessed }

type RequestFulfilled struct {
	Key             string         `json:"key"`
	OperationID     uuid.UUID      `json:"operation_id"`
	Controller      common.Address `json:"controller"`
	Shares          sdkmath.Int    `json:"shares"`
	RequestedAssets sdkmath.Int    `json:"requested_assets"`
	FulfilledAssets sdkmath.Int    `json:"fulfilled_assets"`
}

func (e *RequestFulfilled) IdempotencyKey() string { return e.Key }
func (e *RequestFulfilled) EventType() EventType   { return EventTypeRequestFulfilled }

// Redeemed is a claim of fulfilled assets, net of exit fees.
type Redeemed struct {
	Key            string         `json:"key"`
	Controller     common.Address `json:"controller"`
	Receiver       common.Address `json:"receiver"`
	Shares         sdkmath.Int    `json:"shares"`
	Assets         sdkmath.Int    `json:"assets"`
	NetAssets      sdkmath.Int    `json:"net_assets"`
	ManagementFee  sdkmath.Int    `json:"management_fee"`
	OracleFee      sdkmath.Int    `json:"oracle_fee"`
	PerformanceFee sdkmath.Int    `json:"performance_fee"`
	TreasuryShares sdkmath.Int    `json:"treasury_shares"`
}

func (e *Redeemed) IdempotencyKey() string { return e.Key }
func (e *Redeemed) EventType() EventType   { return EventTypeRedeemed }
