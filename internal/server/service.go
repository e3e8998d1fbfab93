package server

import (
	"context"
	"strings"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"YieldVault/internal/core"
	"YieldVault/internal/fees"
	"YieldVault/internal/ingestion"
	"YieldVault/internal/observability"
	"YieldVault/internal/persistence"
	"YieldVault/internal/projection"
	"YieldVault/internal/query"
	"YieldVault/internal/registry"
	"YieldVault/internal/router"
	"YieldVault/internal/state"
	"YieldVault/internal/types"
)

// VaultService exposes the engine and the read side. Every engine call is
// submitted to the command queue; read-side calls go straight to Postgres.
type VaultService struct {
	queue     *ingestion.CommandQueue
	query     *query.QueryService
	snapshots *persistence.SnapshotStore
	health    *observability.HealthChecker
	logger    zerolog.Logger
}

func NewVaultService(
	queue *ingestion.CommandQueue,
	qs *query.QueryService,
	snapshots *persistence.SnapshotStore,
	health *observability.HealthChecker,
	logger zerolog.Logger,
) *VaultService {
	return &VaultService{
		queue:     queue,
		query:     qs,
		snapshots: snapshots,
		health:    health,
		logger:    logger,
	}
}

func (s *VaultService) exec(ctx context.Context, name string, fn func(eng *core.Engine) error) error {
	return s.queue.Submit(ctx, name, fn)
}

// Empty is returned by calls with nothing to report.
type Empty struct{}

// --- Admin ---

type AddVaultRequest struct {
	Caller       common.Address `json:"caller"`
	ChainID      types.ChainID  `json:"chain_id"`
	VaultID      types.VaultID  `json:"vault_id"`
	Address      common.Address `json:"address"`
	Decimals     uint8          `json:"decimals"`
	DeductionBps uint64         `json:"deduction_bps"`
	Oracle       common.Address `json:"oracle"`
}

func (s *VaultService) AddVault(ctx context.Context, req *AddVaultRequest) (*Empty, error) {
	err := s.exec(ctx, "add_vault", func(eng *core.Engine) error {
		return eng.AddVault(ctx, req.Caller, core.AddVaultParams{
			ChainID:      req.ChainID,
			VaultID:      req.VaultID,
			Address:      req.Address,
			Decimals:     req.Decimals,
			DeductionBps: req.DeductionBps,
			Oracle:       req.Oracle,
		})
	})
	return &Empty{}, err
}

type RemoveVaultRequest struct {
	Caller  common.Address `json:"caller"`
	VaultID types.VaultID  `json:"vault_id"`
}

func (s *VaultService) RemoveVault(ctx context.Context, req *RemoveVaultRequest) (*Empty, error) {
	err := s.exec(ctx, "remove_vault", func(eng *core.Engine) error {
		return eng.RemoveVault(ctx, req.Caller, req.VaultID)
	})
	return &Empty{}, err
}

type SetWithdrawalQueueRequest struct {
	Caller   common.Address  `json:"caller"`
	Local    bool            `json:"local"`
	VaultIDs []types.VaultID `json:"vault_ids"`
}

func (s *VaultService) SetWithdrawalQueue(ctx context.Context, req *SetWithdrawalQueueRequest) (*Empty, error) {
	err := s.exec(ctx, "set_withdrawal_queue", func(eng *core.Engine) error {
		return eng.SetWithdrawalQueue(ctx, req.Caller, req.Local, req.VaultIDs)
	})
	return &Empty{}, err
}

type SetFeeExemptionRequest struct {
	Caller     common.Address  `json:"caller"`
	Controller common.Address  `json:"controller"`
	Exemptions fees.Exemptions `json:"exemptions"`
}

func (s *VaultService) SetFeeExemption(ctx context.Context, req *SetFeeExemptionRequest) (*Empty, error) {
	err := s.exec(ctx, "set_fee_exemption", func(eng *core.Engine) error {
		return eng.SetFeeExemption(ctx, req.Caller, req.Controller, req.Exemptions)
	})
	return &Empty{}, err
}

type SetEmergencyShutdownRequest struct {
	Caller common.Address `json:"caller"`
	Active bool           `json:"active"`
}

func (s *VaultService) SetEmergencyShutdown(ctx context.Context, req *SetEmergencyShutdownRequest) (*Empty, error) {
	err := s.exec(ctx, "set_emergency_shutdown", func(eng *core.Engine) error {
		return eng.SetEmergencyShutdown(ctx, req.Caller, req.Active)
	})
	if err == nil && s.health != nil {
		s.health.SetShutdown(req.Active)
	}
	return &Empty{}, err
}

// --- Depositor flow ---

type DepositRequest struct {
	Controller common.Address `json:"controller"`
	Assets     sdkmath.Int    `json:"assets"`
}

type DepositResponse struct {
	Shares sdkmath.Int `json:"shares"`
}

func (s *VaultService) Deposit(ctx context.Context, req *DepositRequest) (*DepositResponse, error) {
	resp := &DepositResponse{}
	err := s.exec(ctx, "deposit", func(eng *core.Engine) (err error) {
		resp.Shares, err = eng.Deposit(ctx, req.Controller, req.Assets)
		return err
	})
	return resp, err
}

type DonateRequest struct {
	From   common.Address `json:"from"`
	Assets sdkmath.Int    `json:"assets"`
}

func (s *VaultService) Donate(ctx context.Context, req *DonateRequest) (*Empty, error) {
	err := s.exec(ctx, "donate", func(eng *core.Engine) error {
		return eng.Donate(ctx, req.From, req.Assets)
	})
	return &Empty{}, err
}

type RequestRedeemRequest struct {
	Controller common.Address `json:"controller"`
	Shares     sdkmath.Int    `json:"shares"`
}

func (s *VaultService) RequestRedeem(ctx context.Context, req *RequestRedeemRequest) (*Empty, error) {
	err := s.exec(ctx, "request_redeem", func(eng *core.Engine) error {
		return eng.RequestRedeem(ctx, req.Controller, req.Shares)
	})
	return &Empty{}, err
}

type RedeemRequest struct {
	Controller common.Address `json:"controller"`
	Receiver   common.Address `json:"receiver"`
	Shares     sdkmath.Int    `json:"shares"`
}

func (s *VaultService) Redeem(ctx context.Context, req *RedeemRequest) (*fees.ExitResult, error) {
	var res fees.ExitResult
	err := s.exec(ctx, "redeem", func(eng *core.Engine) (err error) {
		res, err = eng.Redeem(ctx, req.Controller, req.Receiver, req.Shares)
		return err
	})
	return &res, err
}

// --- Relayer / manager ---

type ProcessRedeemRequest struct {
	Caller     common.Address `json:"caller"`
	Controller common.Address `json:"controller"`
}

func (s *VaultService) ProcessRedeemRequest(ctx context.Context, req *ProcessRedeemRequest) (*core.ProcessResult, error) {
	var res core.ProcessResult
	err := s.exec(ctx, "process_redeem_request", func(eng *core.Engine) (err error) {
		res, err = eng.ProcessRedeemRequest(ctx, req.Caller, req.Controller)
		return err
	})
	return &res, err
}

type PreviewRouteRequest struct {
	Assets sdkmath.Int `json:"assets"`
}

func (s *VaultService) PreviewWithdrawalRoute(ctx context.Context, req *PreviewRouteRequest) (*router.RouteCache, error) {
	var route *router.RouteCache
	err := s.exec(ctx, "preview_withdrawal_route", func(eng *core.Engine) (err error) {
		route, err = eng.PreviewWithdrawalRoute(ctx, req.Assets)
		return err
	})
	return route, err
}

type InvestRequest struct {
	Caller  common.Address `json:"caller"`
	VaultID types.VaultID  `json:"vault_id"`
	Assets  sdkmath.Int    `json:"assets"`
}

type OperationResponse struct {
	OperationID uuid.UUID `json:"operation_id"`
}

func (s *VaultService) Invest(ctx context.Context, req *InvestRequest) (*OperationResponse, error) {
	resp := &OperationResponse{}
	err := s.exec(ctx, "invest", func(eng *core.Engine) (err error) {
		resp.OperationID, err = eng.Invest(ctx, req.Caller, req.VaultID, req.Assets)
		return err
	})
	return resp, err
}

type ChargeGlobalFeesRequest struct {
	Caller common.Address `json:"caller"`
}

type ChargeGlobalFeesResponse struct {
	Total sdkmath.Int `json:"total"`
}

func (s *VaultService) ChargeGlobalFees(ctx context.Context, req *ChargeGlobalFeesRequest) (*ChargeGlobalFeesResponse, error) {
	resp := &ChargeGlobalFeesResponse{}
	err := s.exec(ctx, "charge_global_fees", func(eng *core.Engine) (err error) {
		resp.Total, err = eng.ChargeGlobalFees(ctx, req.Caller)
		return err
	})
	return resp, err
}

// --- Gateway callbacks ---
//
// The NATS processor is the normal path. These exist for relayers that
// call in directly; IdempotencyKey plays the role of the message id.

type FulfillSettledRequest struct {
	Caller          common.Address `json:"caller"`
	IdempotencyKey  string         `json:"idempotency_key"`
	OperationID     uuid.UUID      `json:"operation_id"`
	Controller      common.Address `json:"controller"`
	RequestedAssets sdkmath.Int    `json:"requested_assets"`
	FulfilledAssets sdkmath.Int    `json:"fulfilled_assets"`
}

func (s *VaultService) FulfillSettledRequest(ctx context.Context, req *FulfillSettledRequest) (*Empty, error) {
	ctx = withKey(ctx, req.IdempotencyKey)
	err := s.exec(ctx, "fulfill_settled_request", func(eng *core.Engine) error {
		return eng.FulfillSettledRequest(ctx, req.Caller, req.OperationID, req.Controller, req.RequestedAssets, req.FulfilledAssets)
	})
	return &Empty{}, err
}

type OperationRequest struct {
	Caller         common.Address `json:"caller"`
	IdempotencyKey string         `json:"idempotency_key"`
	OperationID    uuid.UUID      `json:"operation_id"`
}

func (s *VaultService) NotifyFailedLiquidation(ctx context.Context, req *OperationRequest) (*Empty, error) {
	ctx = withKey(ctx, req.IdempotencyKey)
	err := s.exec(ctx, "notify_failed_liquidation", func(eng *core.Engine) error {
		return eng.NotifyFailedLiquidation(ctx, req.Caller, req.OperationID)
	})
	return &Empty{}, err
}

type SettleInvestRequest struct {
	Caller         common.Address `json:"caller"`
	IdempotencyKey string         `json:"idempotency_key"`
	OperationID    uuid.UUID      `json:"operation_id"`
	ActualShares   sdkmath.Int    `json:"actual_shares"`
}

func (s *VaultService) SettleInvest(ctx context.Context, req *SettleInvestRequest) (*Empty, error) {
	ctx = withKey(ctx, req.IdempotencyKey)
	err := s.exec(ctx, "settle_invest", func(eng *core.Engine) error {
		return eng.SettleInvest(ctx, req.Caller, req.OperationID, req.ActualShares)
	})
	return &Empty{}, err
}

type NotifyFailedInvestRequest struct {
	Caller         common.Address `json:"caller"`
	IdempotencyKey string         `json:"idempotency_key"`
	VaultID        types.VaultID  `json:"vault_id"`
	Amount         sdkmath.Int    `json:"amount"`
}

func (s *VaultService) NotifyFailedInvest(ctx context.Context, req *NotifyFailedInvestRequest) (*Empty, error) {
	ctx = withKey(ctx, req.IdempotencyKey)
	err := s.exec(ctx, "notify_failed_invest", func(eng *core.Engine) error {
		return eng.NotifyFailedInvest(ctx, req.Caller, req.VaultID, req.Amount)
	})
	return &Empty{}, err
}

func withKey(ctx context.Context, key string) context.Context {
	if key == "" {
		return ctx
	}
	return core.WithIdempotencyKey(ctx, key)
}

// --- Engine state ---

type GlobalResponse struct {
	state.GlobalAccount
	TotalAssets     sdkmath.Int     `json:"total_assets"`
	SharePrice      sdkmath.Int     `json:"share_price"`
	PendingInvests  sdkmath.Int     `json:"pending_xchain_invests"`
	Shutdown        bool            `json:"shutdown"`
	Sequence        int64           `json:"sequence"`
	LocalQueue      []types.VaultID `json:"local_queue"`
	CrossChainQueue []types.VaultID `json:"cross_chain_queue"`
}

func (s *VaultService) GetGlobal(ctx context.Context, _ *Empty) (*GlobalResponse, error) {
	resp := &GlobalResponse{}
	err := s.exec(ctx, "get_global", func(eng *core.Engine) error {
		g := eng.Global()
		resp.GlobalAccount = g
		resp.TotalAssets = g.TotalAssets()
		resp.SharePrice = g.SharePrice()
		resp.PendingInvests = eng.TotalPendingXChainInvests()
		resp.Shutdown = eng.IsShutdown()
		resp.Sequence = eng.Sequence()
		resp.LocalQueue, resp.CrossChainQueue = eng.Queues()
		return nil
	})
	return resp, err
}

type ListVaultsResponse struct {
	Vaults []*registry.SubVault `json:"vaults"`
}

func (s *VaultService) ListVaults(ctx context.Context, _ *Empty) (*ListVaultsResponse, error) {
	resp := &ListVaultsResponse{}
	err := s.exec(ctx, "list_vaults", func(eng *core.Engine) error {
		resp.Vaults = eng.Vaults()
		return nil
	})
	return resp, err
}

type ControllerRequest struct {
	Controller common.Address `json:"controller"`
}

type PositionResponse struct {
	Position *state.PositionAccount `json:"position,omitempty"`
	Request  state.RedeemRequest    `json:"request"`
}

func (s *VaultService) GetPosition(ctx context.Context, req *ControllerRequest) (*PositionResponse, error) {
	resp := &PositionResponse{}
	err := s.exec(ctx, "get_position", func(eng *core.Engine) error {
		if p, ok := eng.Position(req.Controller); ok {
			resp.Position = &p
		}
		resp.Request = eng.Request(req.Controller)
		return nil
	})
	return resp, err
}

type GetOperationRequest struct {
	OperationID uuid.UUID `json:"operation_id"`
}

func (s *VaultService) GetOperation(ctx context.Context, req *GetOperationRequest) (*state.Operation, error) {
	var op state.Operation
	err := s.exec(ctx, "get_operation", func(eng *core.Engine) (err error) {
		op, err = eng.Operation(req.OperationID)
		return err
	})
	return &op, err
}

type ListOperationsResponse struct {
	Operations []state.Operation `json:"operations"`
}

func (s *VaultService) ListPendingOperations(ctx context.Context, _ *Empty) (*ListOperationsResponse, error) {
	resp := &ListOperationsResponse{}
	err := s.exec(ctx, "list_pending_operations", func(eng *core.Engine) error {
		resp.Operations = eng.PendingOperations()
		return nil
	})
	return resp, err
}

// --- Read side ---

type ListEventsRequest struct {
	EventType   string `json:"type"`
	Controller  string `json:"controller"`
	OperationID string `json:"operation_id"`
	Before      int64  `json:"before,string,omitempty"`
	Limit       int    `json:"limit,string,omitempty"`
}

func (s *VaultService) ListEvents(ctx context.Context, req *ListEventsRequest) (*query.EventPage, error) {
	if req.Controller != "" {
		if !common.IsHexAddress(req.Controller) {
			return nil, status.Errorf(codes.InvalidArgument, "invalid controller %q", req.Controller)
		}
		// Payloads store addresses as lowercase hex.
		req.Controller = strings.ToLower(common.HexToAddress(req.Controller).Hex())
	}
	if req.OperationID != "" {
		if _, err := uuid.Parse(req.OperationID); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid operation_id: %v", err)
		}
	}
	return s.query.ListEvents(ctx, query.EventFilter{
		EventType:   req.EventType,
		Controller:  req.Controller,
		OperationID: req.OperationID,
		Before:      req.Before,
		Limit:       req.Limit,
	})
}

type FeeHistoryRequest struct {
	Kind       string `json:"kind"`
	Controller string `json:"controller"`
	Before     int64  `json:"before,string,omitempty"`
	Limit      int    `json:"limit,string,omitempty"`
}

// FeeHistory lists global accruals and exit fees from the read model.
func (s *VaultService) FeeHistory(ctx context.Context, req *FeeHistoryRequest) (*query.FeePage, error) {
	switch req.Kind {
	case "", projection.KindGlobal, projection.KindExit:
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown fee kind %q", req.Kind)
	}
	if req.Controller != "" {
		if !common.IsHexAddress(req.Controller) {
			return nil, status.Errorf(codes.InvalidArgument, "invalid controller %q", req.Controller)
		}
		req.Controller = strings.ToLower(common.HexToAddress(req.Controller).Hex())
	}
	return s.query.FeeHistory(ctx, query.FeeFilter{
		Kind:       req.Kind,
		Controller: req.Controller,
		Before:     req.Before,
		Limit:      req.Limit,
	})
}

type EventLogInfoResponse struct {
	EngineSequence int64               `json:"engine_sequence"`
	LatestSnapshot *query.SnapshotInfo `json:"latest_snapshot,omitempty"`
}

func (s *VaultService) GetEventLogInfo(ctx context.Context, _ *Empty) (*EventLogInfoResponse, error) {
	resp := &EventLogInfoResponse{}
	if err := s.exec(ctx, "event_log_info", func(eng *core.Engine) error {
		resp.EngineSequence = eng.Sequence()
		return nil
	}); err != nil {
		return nil, err
	}
	snap, err := s.query.LatestSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	resp.LatestSnapshot = snap
	return resp, nil
}

func (s *VaultService) VerifyIntegrity(ctx context.Context, _ *Empty) (*query.IntegrityReport, error) {
	return s.query.VerifyIntegrity(ctx)
}

type TakeSnapshotResponse struct {
	Sequence int64 `json:"sequence"`
}

// TakeSnapshot captures state on the engine goroutine and stores it.
func (s *VaultService) TakeSnapshot(ctx context.Context, _ *Empty) (*TakeSnapshotResponse, error) {
	var snap *core.Snapshot
	if err := s.exec(ctx, "take_snapshot", func(eng *core.Engine) error {
		snap = eng.Snapshot()
		return nil
	}); err != nil {
		return nil, err
	}
	if err := s.snapshots.Save(ctx, snap); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("sequence", snap.Sequence).Msg("snapshot taken on request")
	return &TakeSnapshotResponse{Sequence: snap.Sequence}, nil
}
