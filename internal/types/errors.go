package types

import (
	errorsmod "cosmossdk.io/errors"
	"google.golang.org/grpc/codes"
)

// Codespace groups every error the vault engine can return.
const Codespace = "vault"

// Validation errors: the caller supplied something the registry cannot accept.
var (
	ErrAlreadyListed  = errorsmod.RegisterWithGRPCCode(Codespace, 2, codes.AlreadyExists, "vault already listed")
	ErrZeroVaultID    = errorsmod.RegisterWithGRPCCode(Codespace, 3, codes.InvalidArgument, "vault id is zero")
	ErrZeroSharePrice = errorsmod.RegisterWithGRPCCode(Codespace, 4, codes.InvalidArgument, "initial share price is zero")
	ErrBalanceNotZero = errorsmod.RegisterWithGRPCCode(Codespace, 5, codes.FailedPrecondition, "vault share balance is not zero")
	ErrVaultNotListed = errorsmod.RegisterWithGRPCCode(Codespace, 6, codes.NotFound, "vault not listed")
	ErrQueueFull      = errorsmod.RegisterWithGRPCCode(Codespace, 7, codes.ResourceExhausted, "withdrawal queue is full")
	ErrInvalidAmount  = errorsmod.RegisterWithGRPCCode(Codespace, 8, codes.InvalidArgument, "invalid amount")
	ErrInvalidBps     = errorsmod.RegisterWithGRPCCode(Codespace, 9, codes.InvalidArgument, "basis points out of range")
	ErrInvalidQueue   = errorsmod.RegisterWithGRPCCode(Codespace, 10, codes.InvalidArgument, "invalid withdrawal queue")
)

// Economic guards.
var (
	ErrInsufficientAvailableAssets = errorsmod.RegisterWithGRPCCode(Codespace, 20, codes.FailedPrecondition, "insufficient available assets")
	ErrInsufficientAssets          = errorsmod.RegisterWithGRPCCode(Codespace, 21, codes.FailedPrecondition, "insufficient assets after liquidation")
	ErrStalePrice                  = errorsmod.RegisterWithGRPCCode(Codespace, 22, codes.Unavailable, "stale oracle price")
	ErrSharesLocked                = errorsmod.RegisterWithGRPCCode(Codespace, 23, codes.FailedPrecondition, "shares are still locked")
	ErrNothingToProcess            = errorsmod.RegisterWithGRPCCode(Codespace, 24, codes.FailedPrecondition, "no pending redeem request")
	ErrInsufficientShares          = errorsmod.RegisterWithGRPCCode(Codespace, 25, codes.FailedPrecondition, "insufficient shares")
	ErrInsufficientIdle            = errorsmod.RegisterWithGRPCCode(Codespace, 26, codes.FailedPrecondition, "insufficient idle assets")
)

// Authorization and engine state.
var (
	ErrUnauthorized        = errorsmod.RegisterWithGRPCCode(Codespace, 30, codes.PermissionDenied, "unauthorized")
	ErrReentrantCall       = errorsmod.RegisterWithGRPCCode(Codespace, 31, codes.Aborted, "reentrant call")
	ErrShutdown            = errorsmod.RegisterWithGRPCCode(Codespace, 32, codes.Unavailable, "vault is in emergency shutdown")
	ErrOperationNotPending = errorsmod.RegisterWithGRPCCode(Codespace, 33, codes.FailedPrecondition, "operation is not pending")
	ErrUnknownOperation    = errorsmod.RegisterWithGRPCCode(Codespace, 34, codes.NotFound, "unknown cross-chain operation")
)
