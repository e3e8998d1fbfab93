package event

import (
	"encoding/json"
	"time"
)

// EventType discriminator for event payloads
type EventType int32

const (
	EventTypeUnknown EventType = iota
	EventTypeVaultAdded
	EventTypeVaultRemoved
	EventTypeWithdrawalQueueSet
	EventTypeDeposited
	EventTypeRedeemRequested
	EventTypeRedeemProcessed
	EventTypeRequestFulfilled
	EventTypeLiquidationFailed
	EventTypeInvested
	EventTypeInvestSettled
	EventTypeInvestFailed
	EventTypeRedeemed
	EventTypeGlobalFeesCharged
	EventTypeFeeExemptionSet
	EventTypeEmergencyShutdownSet
	EventTypeDonated
)

// EventEnvelope wraps every event in the log
type EventEnvelope struct {
	// Global monotonic sequence assigned by the engine
	Sequence int64

	// Stable idempotency key (gateway message id for callbacks)
	IdempotencyKey string

	EventType EventType

	// Engine clock at the time the call was applied
	Timestamp time.Time

	// JSON-encoded event payload
	Payload []byte

	// SHA-256 of state AFTER applying this event
	StateHash [32]byte

	// Previous event's state hash (chain integrity)
	PrevHash [32]byte
}

// Event is the interface all event payloads must implement
type Event interface {
	// IdempotencyKey returns the stable dedup key
	IdempotencyKey() string

	// EventType returns the discriminator
	EventType() EventType
}

// Encode marshals an event payload for the envelope.
func Encode(evt Event) ([]byte, error) {
	return json.Marshal(evt)
}

var eventTypeNames = map[EventType]string{
	EventTypeVaultAdded:           "VaultAdded",
	EventTypeVaultRemoved:         "VaultRemoved",
	EventTypeWithdrawalQueueSet:   "WithdrawalQueueSet",
	EventTypeDeposited:            "Deposited",
	EventTypeRedeemRequested:      "RedeemRequested",
	EventTypeRedeemProcessed:      "RedeemProcessed",
	EventTypeRequestFulfilled:     "RequestFulfilled",
	EventTypeLiquidationFailed:    "LiquidationFailed",
	EventTypeInvested:             "Invested",
	EventTypeInvestSettled:        "InvestSettled",
	EventTypeInvestFailed:         "InvestFailed",
	EventTypeRedeemed:             "Redeemed",
	EventTypeGlobalFeesCharged:    "GlobalFeesCharged",
	EventTypeFeeExemptionSet:      "FeeExemptionSet",
	EventTypeEmergencyShutdownSet: "EmergencyShutdownSet",
	EventTypeDonated:              "Donated",
}

func (et EventType) String() string {
	if name, ok := eventTypeNames[et]; ok {
		return name
	}
	return "Unknown"
}

// ParseEventType is the inverse of String.
func ParseEventType(name string) EventType {
	for et, n := range eventTypeNames {
		if n == name {
			return et
		}
	}
	return EventTypeUnknown
}
