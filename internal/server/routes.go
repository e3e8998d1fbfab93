package server

import (
	"context"
	"net/http"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "yieldvault.v1.VaultService"

// route binds one VaultService method to a gRPC method name and an HTTP path.
type route struct {
	name       string
	httpMethod string
	path       string
	newReq     func() interface{}
	invoke     func(s *VaultService, ctx context.Context, req interface{}) (interface{}, error)
}

func rpc[Req, Resp any](name, httpMethod, path string, fn func(*VaultService, context.Context, *Req) (*Resp, error)) route {
	return route{
		name:       name,
		httpMethod: httpMethod,
		path:       path,
		newReq:     func() interface{} { return new(Req) },
		invoke: func(s *VaultService, ctx context.Context, req interface{}) (interface{}, error) {
			resp, err := fn(s, ctx, req.(*Req))
			if err != nil {
				return nil, err
			}
			return resp, nil
		},
	}
}

var routes = []route{
	// Admin
	rpc("AddVault", http.MethodPost, "/v1/admin/vaults", (*VaultService).AddVault),
	rpc("RemoveVault", http.MethodPost, "/v1/admin/vaults/remove", (*VaultService).RemoveVault),
	rpc("SetWithdrawalQueue", http.MethodPost, "/v1/admin/withdrawal-queue", (*VaultService).SetWithdrawalQueue),
	rpc("SetFeeExemption", http.MethodPost, "/v1/admin/fee-exemptions", (*VaultService).SetFeeExemption),
	rpc("SetEmergencyShutdown", http.MethodPost, "/v1/admin/emergency-shutdown", (*VaultService).SetEmergencyShutdown),
	rpc("TakeSnapshot", http.MethodPost, "/v1/admin/snapshots", (*VaultService).TakeSnapshot),
	rpc("VerifyIntegrity", http.MethodGet, "/v1/admin/integrity", (*VaultService).VerifyIntegrity),
	rpc("GetEventLogInfo", http.MethodGet, "/v1/admin/event-log", (*VaultService).GetEventLogInfo),

	// Depositors
	rpc("Deposit", http.MethodPost, "/v1/deposit", (*VaultService).Deposit),
	rpc("Donate", http.MethodPost, "/v1/donate", (*VaultService).Donate),
	rpc("RequestRedeem", http.MethodPost, "/v1/redeem/request", (*VaultService).RequestRedeem),
	rpc("Redeem", http.MethodPost, "/v1/redeem", (*VaultService).Redeem),

	// Relayer and manager
	rpc("ProcessRedeemRequest", http.MethodPost, "/v1/redeem/process", (*VaultService).ProcessRedeemRequest),
	rpc("PreviewWithdrawalRoute", http.MethodPost, "/v1/redeem/preview", (*VaultService).PreviewWithdrawalRoute),
	rpc("Invest", http.MethodPost, "/v1/invest", (*VaultService).Invest),
	rpc("ChargeGlobalFees", http.MethodPost, "/v1/fees/charge", (*VaultService).ChargeGlobalFees),

	// Gateway callbacks
	rpc("FulfillSettledRequest", http.MethodPost, "/v1/gateway/fulfilled", (*VaultService).FulfillSettledRequest),
	rpc("NotifyFailedLiquidation", http.MethodPost, "/v1/gateway/liquidation-failed", (*VaultService).NotifyFailedLiquidation),
	rpc("SettleInvest", http.MethodPost, "/v1/gateway/invest-settled", (*VaultService).SettleInvest),
	rpc("NotifyFailedInvest", http.MethodPost, "/v1/gateway/invest-failed", (*VaultService).NotifyFailedInvest),

	// State
	rpc("GetGlobal", http.MethodGet, "/v1/global", (*VaultService).GetGlobal),
	rpc("ListVaults", http.MethodGet, "/v1/vaults", (*VaultService).ListVaults),
	rpc("GetPosition", http.MethodGet, "/v1/positions/{controller}", (*VaultService).GetPosition),
	rpc("GetOperation", http.MethodGet, "/v1/operations/{operation_id}", (*VaultService).GetOperation),
	rpc("ListPendingOperations", http.MethodGet, "/v1/operations", (*VaultService).ListPendingOperations),
	rpc("ListEvents", http.MethodGet, "/v1/events", (*VaultService).ListEvents),
	rpc("FeeHistory", http.MethodGet, "/v1/fees", (*VaultService).FeeHistory),
}
