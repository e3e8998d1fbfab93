package core

import (
	"context"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"YieldVault/internal/router"
	"YieldVault/internal/types"
)

// LiquidationRequest is the remote part of a route handed to the gateway.
// LocalAssets (idle plus realized local liquidations) travel with it to
// the gateway receiver, which reports the combined amount on settlement.
type LiquidationRequest struct {
	OperationID     uuid.UUID           `json:"operation_id"`
	Controller      common.Address      `json:"controller"`
	Shape           router.Shape        `json:"shape"`
	Chains          []router.ChainRoute `json:"chains"`
	LocalAssets     sdkmath.Int         `json:"local_assets"`
	RequestedAssets sdkmath.Int         `json:"requested_assets"`
}

// InvestRequest moves idle assets into a remote vault.
type InvestRequest struct {
	OperationID    uuid.UUID      `json:"operation_id"`
	ChainID        types.ChainID  `json:"chain_id"`
	VaultID        types.VaultID  `json:"vault_id"`
	Vault          common.Address `json:"vault"`
	Assets         sdkmath.Int    `json:"assets"`
	ExpectedShares sdkmath.Int    `json:"expected_shares"`
}

// Gateway dispatches cross-chain work. Every call is fire-and-forget; the
// outcome arrives later through the engine's callback entry points.
type Gateway interface {
	LiquidateSingleChainSingleVault(ctx context.Context, req LiquidationRequest) error
	LiquidateSingleChainMultiVault(ctx context.Context, req LiquidationRequest) error
	LiquidateMultiChainSingleVault(ctx context.Context, req LiquidationRequest) error
	LiquidateMultiChainMultiVault(ctx context.Context, req LiquidationRequest) error
	Invest(ctx context.Context, req InvestRequest) error
}

// Approver grants and revokes the vault's asset allowance to local sub-vaults.
type Approver interface {
	Approve(ctx context.Context, vault common.Address) error
	Revoke(ctx context.Context, vault common.Address) error
}

func dispatchLiquidation(ctx context.Context, gw Gateway, req LiquidationRequest) error {
	switch req.Shape {
	case router.ShapeSingleChainSingleVault:
		return gw.LiquidateSingleChainSingleVault(ctx, req)
	case router.ShapeSingleChainMultiVault:
		return gw.LiquidateSingleChainMultiVault(ctx, req)
	case router.ShapeMultiChainSingleVault:
		return gw.LiquidateMultiChainSingleVault(ctx, req)
	case router.ShapeMultiChainMultiVault:
		return gw.LiquidateMultiChainMultiVault(ctx, req)
	default:
		return nil
	}
}
