package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"YieldVault/internal/core"
	"YieldVault/internal/ingestion"
	"YieldVault/internal/observability"
	"YieldVault/internal/testutil"
	"YieldVault/internal/types"
)

var (
	admin = testutil.Addr(1)
	alice = testutil.Addr(100)
)

func newService(t *testing.T) *VaultService {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	roles := core.NewRoles()
	roles.Grant(core.RoleAdmin, admin)
	eng, err := core.NewEngine(testutil.TestConfig(), core.Deps{
		Clock:       testutil.NewFakeClock(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)),
		LocalVaults: testutil.NewFakeLocalVaults(),
		Oracle:      testutil.NewFakeOracle(),
		Gateway:     &testutil.FakeGateway{},
		Approver:    testutil.NewFakeApprover(),
		Roles:       roles,
		Logger:      zerolog.Nop(),
	})
	require.NoError(t, err)

	queue := ingestion.NewCommandQueue(8)
	go queue.Run(ctx, eng)
	return NewVaultService(queue, nil, nil, observability.NewHealthChecker(), zerolog.Nop())
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))

	out := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func TestHTTP_DepositThenReadState(t *testing.T) {
	h, err := NewHTTPHandler(newService(t), nil)
	require.NoError(t, err)

	rec, out := doJSON(t, h, http.MethodPost, "/v1/deposit", map[string]string{
		"controller": alice.Hex(),
		"assets":     "1000000000",
	})
	require.Equal(t, http.StatusOK, rec.Code, out)
	assert.Equal(t, "1000000000", out["shares"])

	rec, out = doJSON(t, h, http.MethodGet, "/v1/global", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1000000000", out["total_supply"])
	assert.Equal(t, "1000000000", out["idle"])
	assert.Equal(t, float64(1), out["sequence"])

	rec, out = doJSON(t, h, http.MethodGet, "/v1/positions/"+alice.Hex(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pos := out["position"].(map[string]interface{})
	assert.Equal(t, "1000000000", pos["balance"])
}

func TestHTTP_EngineErrorsCarryCodes(t *testing.T) {
	h, err := NewHTTPHandler(newService(t), nil)
	require.NoError(t, err)

	rec, out := doJSON(t, h, http.MethodPost, "/v1/redeem/request", map[string]string{
		"controller": alice.Hex(),
		"shares":     "5",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, types.Codespace, out["codespace"])
	assert.Equal(t, float64(25), out["abci_code"])

	rec, _ = doJSON(t, h, http.MethodPost, "/v1/admin/vaults", map[string]interface{}{
		"caller":   alice.Hex(),
		"chain_id": 1,
		"vault_id": 1,
		"address":  testutil.Addr(1001).Hex(),
		"decimals": 6,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, out = doJSON(t, h, http.MethodPost, "/v1/deposit", map[string]string{"assets": "not-a-number"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, out["codespace"])
}

func TestGRPC_JSONCodec(t *testing.T) {
	svc := newService(t)
	srv := NewGRPCServer("", "", svc, nil, zerolog.Nop())

	lis := bufconn.Listen(1 << 20)
	go srv.grpcServer.Serve(lis)
	t.Cleanup(srv.grpcServer.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype("json")),
	)
	require.NoError(t, err)
	defer conn.Close()

	ctx := context.Background()
	var dep DepositResponse
	require.NoError(t, conn.Invoke(ctx, "/"+ServiceName+"/Deposit", &DepositRequest{
		Controller: alice,
		Assets:     sdkmath.NewInt(2_000_000),
	}, &dep))
	assert.Equal(t, "2000000", dep.Shares.String())

	err = conn.Invoke(ctx, "/"+ServiceName+"/Deposit", &DepositRequest{
		Controller: alice,
		Assets:     sdkmath.ZeroInt(),
	}, &dep)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestToStatus(t *testing.T) {
	assert.NoError(t, toStatus(nil))
	assert.Equal(t, codes.Unavailable, status.Code(toStatus(errorsmod.Wrapf(types.ErrStalePrice, "vault %d", 2))))
	assert.Equal(t, codes.PermissionDenied, status.Code(toStatus(types.ErrUnauthorized)))
	assert.Equal(t, codes.Unavailable, status.Code(toStatus(ingestion.ErrQueueClosed)))
	assert.Equal(t, codes.DeadlineExceeded, status.Code(toStatus(context.DeadlineExceeded)))
}
