package ingestion

import (
	"context"
	"encoding/json"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"YieldVault/internal/types"
)

// CallbackHandler is the engine surface gateway callbacks drive.
type CallbackHandler interface {
	FulfillSettledRequest(ctx context.Context, caller common.Address, opID uuid.UUID, controller common.Address, requested, fulfilled sdkmath.Int) error
	NotifyFailedLiquidation(ctx context.Context, caller common.Address, opID uuid.UUID) error
	SettleInvest(ctx context.Context, caller common.Address, opID uuid.UUID, actualShares sdkmath.Int) error
	NotifyFailedInvest(ctx context.Context, caller common.Address, vaultID types.VaultID, amount sdkmath.Int) error
}

// Callback is a parsed gateway callback.
type Callback interface {
	Type() string
	Apply(ctx context.Context, h CallbackHandler, caller common.Address) error
}

// ParseCallback converts a raw NATS message into a typed callback.
func ParseCallback(raw RawEvent) (Callback, error) {
	switch raw.CallbackType {
	case CallbackFulfilled:
		return parseFulfilled(raw.Data)
	case CallbackLiquidationFailed:
		return parseLiquidationFailed(raw.Data)
	case CallbackInvestSettled:
		return parseInvestSettled(raw.Data)
	case CallbackInvestFailed:
		return parseInvestFailed(raw.Data)
	default:
		return nil, fmt.Errorf("unknown callback type: %s", raw.CallbackType)
	}
}

// --- JSON wire formats ---
// Amounts travel as base-10 strings; they routinely exceed 2^53.

type fulfilledJSON struct {
	OperationID     string `json:"operation_id"`
	Controller      string `json:"controller"`
	RequestedAssets string `json:"requested_assets"`
	FulfilledAssets string `json:"fulfilled_assets"`
}

// FulfilledCallback settles a cross-chain redeem.
type FulfilledCallback struct {
	OperationID     uuid.UUID
	Controller      common.Address
	RequestedAssets sdkmath.Int
	FulfilledAssets sdkmath.Int
}

func (c *FulfilledCallback) Type() string { return CallbackFulfilled }

func (c *FulfilledCallback) Apply(ctx context.Context, h CallbackHandler, caller common.Address) error {
	return h.FulfillSettledRequest(ctx, caller, c.OperationID, c.Controller, c.RequestedAssets, c.FulfilledAssets)
}

func parseFulfilled(data []byte) (*FulfilledCallback, error) {
	var j fulfilledJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse fulfilled: %w", err)
	}
	opID, err := uuid.Parse(j.OperationID)
	if err != nil {
		return nil, fmt.Errorf("parse operation_id: %w", err)
	}
	controller, err := parseAddress("controller", j.Controller)
	if err != nil {
		return nil, err
	}
	requested, err := parseAmount("requested_assets", j.RequestedAssets)
	if err != nil {
		return nil, err
	}
	fulfilled, err := parseAmount("fulfilled_assets", j.FulfilledAssets)
	if err != nil {
		return nil, err
	}
	return &FulfilledCallback{
		OperationID:     opID,
		Controller:      controller,
		RequestedAssets: requested,
		FulfilledAssets: fulfilled,
	}, nil
}

type operationJSON struct {
	OperationID  string `json:"operation_id"`
	ActualShares string `json:"actual_shares,omitempty"`
}

// LiquidationFailedCallback reverses a cross-chain redeem.
type LiquidationFailedCallback struct {
	OperationID uuid.UUID
}

func (c *LiquidationFailedCallback) Type() string { return CallbackLiquidationFailed }

func (c *LiquidationFailedCallback) Apply(ctx context.Context, h CallbackHandler, caller common.Address) error {
	return h.NotifyFailedLiquidation(ctx, caller, c.OperationID)
}

func parseLiquidationFailed(data []byte) (*LiquidationFailedCallback, error) {
	var j operationJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse liquidation_failed: %w", err)
	}
	opID, err := uuid.Parse(j.OperationID)
	if err != nil {
		return nil, fmt.Errorf("parse operation_id: %w", err)
	}
	return &LiquidationFailedCallback{OperationID: opID}, nil
}

// InvestSettledCallback confirms a remote invest.
type InvestSettledCallback struct {
	OperationID  uuid.UUID
	ActualShares sdkmath.Int
}

func (c *InvestSettledCallback) Type() string { return CallbackInvestSettled }

func (c *InvestSettledCallback) Apply(ctx context.Context, h CallbackHandler, caller common.Address) error {
	return h.SettleInvest(ctx, caller, c.OperationID, c.ActualShares)
}

func parseInvestSettled(data []byte) (*InvestSettledCallback, error) {
	var j operationJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse invest_settled: %w", err)
	}
	opID, err := uuid.Parse(j.OperationID)
	if err != nil {
		return nil, fmt.Errorf("parse operation_id: %w", err)
	}
	shares, err := parseAmount("actual_shares", j.ActualShares)
	if err != nil {
		return nil, err
	}
	return &InvestSettledCallback{OperationID: opID, ActualShares: shares}, nil
}

type investFailedJSON struct {
	VaultID uint64 `json:"vault_id"`
	Amount  string `json:"amount"`
}

// InvestFailedCallback returns failed invest assets to idle.
type InvestFailedCallback struct {
	VaultID types.VaultID
	Amount  sdkmath.Int
}

func (c *InvestFailedCallback) Type() string { return CallbackInvestFailed }

func (c *InvestFailedCallback) Apply(ctx context.Context, h CallbackHandler, caller common.Address) error {
	return h.NotifyFailedInvest(ctx, caller, c.VaultID, c.Amount)
}

func parseInvestFailed(data []byte) (*InvestFailedCallback, error) {
	var j investFailedJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse invest_failed: %w", err)
	}
	if j.VaultID == 0 {
		return nil, fmt.Errorf("parse vault_id: %w", types.ErrZeroVaultID)
	}
	amount, err := parseAmount("amount", j.Amount)
	if err != nil {
		return nil, err
	}
	return &InvestFailedCallback{VaultID: types.VaultID(j.VaultID), Amount: amount}, nil
}

func parseAmount(field, s string) (sdkmath.Int, error) {
	v, ok := sdkmath.NewIntFromString(s)
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("parse %s: invalid integer %q", field, s)
	}
	if v.IsNegative() {
		return sdkmath.Int{}, fmt.Errorf("parse %s: negative amount %s", field, s)
	}
	return v, nil
}

func parseAddress(field, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("parse %s: invalid address %q", field, s)
	}
	return common.HexToAddress(s), nil
}
