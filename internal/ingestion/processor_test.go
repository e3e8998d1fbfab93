package ingestion_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"YieldVault/internal/core"
	"YieldVault/internal/ingestion"
	"YieldVault/internal/router"
	"YieldVault/internal/testutil"
	"YieldVault/internal/types"
)

var (
	manager   = testutil.Addr(2)
	gatewayID = testutil.Addr(4)
	treasury  = testutil.Addr(9)
	alice     = testutil.Addr(100)
)

type ackRecorder struct {
	mu     sync.Mutex
	acks   int
	naks   int
	terms  int
	signal chan struct{}
}

func newAckRecorder() *ackRecorder {
	return &ackRecorder{signal: make(chan struct{}, 16)}
}

func (r *ackRecorder) bind(raw ingestion.RawEvent) ingestion.RawEvent {
	raw.AckFunc = func() { r.mu.Lock(); r.acks++; r.mu.Unlock(); r.signal <- struct{}{} }
	raw.NakFunc = func() { r.mu.Lock(); r.naks++; r.mu.Unlock(); r.signal <- struct{}{} }
	raw.TermFunc = func() { r.mu.Lock(); r.terms++; r.mu.Unlock(); r.signal <- struct{}{} }
	return raw
}

func (r *ackRecorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.signal:
	case <-time.After(2 * time.Second):
		t.Fatal("callback was never acknowledged")
	}
}

func (r *ackRecorder) counts() (int, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acks, r.naks, r.terms
}

// newPipeline wires an engine with one pending remote invest behind a
// command queue and a callback processor.
func newPipeline(t *testing.T) (*ingestion.CommandQueue, chan ingestion.RawEvent, uuid.UUID) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	clock := testutil.NewFakeClock(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	oracle := testutil.NewFakeOracle()
	remote := testutil.Addr(2002)
	oracle.Set(2, remote, sdkmath.NewInt(1_000_000), clock.Now())

	roles := core.NewRoles()
	roles.Grant(core.RoleAdmin, manager)
	roles.Grant(core.RoleManager, manager)
	roles.Grant(core.RoleGateway, gatewayID)

	cfg := core.DefaultConfig()
	cfg.Treasury = treasury
	eng, err := core.NewEngine(cfg, core.Deps{
		Clock:       clock,
		LocalVaults: testutil.NewFakeLocalVaults(),
		Oracle:      oracle,
		Gateway:     &testutil.FakeGateway{},
		Roles:       roles,
		Idempotency: core.NewIdempotencyChecker(time.Hour, nil, nil),
		Logger:      zerolog.Nop(),
	})
	require.NoError(t, err)

	queue := ingestion.NewCommandQueue(16)
	go queue.Run(ctx, eng)

	var opID uuid.UUID
	require.NoError(t, queue.Submit(ctx, "setup", func(e *core.Engine) error {
		if err := e.AddVault(ctx, manager, core.AddVaultParams{ChainID: 2, VaultID: 2, Address: remote, Decimals: 6, Oracle: testutil.Addr(3003)}); err != nil {
			return err
		}
		if _, err := e.Deposit(ctx, alice, testutil.Units(1000)); err != nil {
			return err
		}
		var err error
		opID, err = e.Invest(ctx, manager, 2, testutil.Units(600))
		return err
	}))

	input := make(chan ingestion.RawEvent, 8)
	proc := ingestion.NewCallbackProcessor(input, queue, gatewayID, nil, zerolog.Nop())
	go func() { _ = proc.Run(ctx) }()
	return queue, input, opID
}

func settleRaw(t *testing.T, opID uuid.UUID, msgID string) ingestion.RawEvent {
	raw := rawFromJSON(t, ingestion.CallbackInvestSettled, map[string]string{
		"operation_id":  opID.String(),
		"actual_shares": "590000000",
	})
	raw.MsgID = msgID
	return raw
}

func TestCallbackProcessor_AppliesAndDedupes(t *testing.T) {
	queue, input, opID := newPipeline(t)
	rec := newAckRecorder()

	input <- rec.bind(settleRaw(t, opID, "msg-1"))
	rec.wait(t)
	input <- rec.bind(settleRaw(t, opID, "msg-1"))
	rec.wait(t)

	acks, naks, terms := rec.counts()
	assert.Equal(t, 2, acks)
	assert.Zero(t, naks)
	assert.Zero(t, terms)

	require.NoError(t, queue.Submit(context.Background(), "check", func(e *core.Engine) error {
		v, _ := e.Vault(2)
		assert.Equal(t, "590000000", v.Shares.String())
		assert.True(t, e.TotalPendingXChainInvests().IsZero())
		return nil
	}))
}

func TestCallbackProcessor_EngineRejectionIsAcked(t *testing.T) {
	_, input, _ := newPipeline(t)
	rec := newAckRecorder()

	input <- rec.bind(settleRaw(t, uuid.New(), "msg-unknown"))
	rec.wait(t)

	acks, naks, _ := rec.counts()
	assert.Equal(t, 1, acks, "unknown operation is not retried")
	assert.Zero(t, naks)
}

func TestCallbackProcessor_ParseFailureIsTerminated(t *testing.T) {
	_, input, _ := newPipeline(t)
	rec := newAckRecorder()

	input <- rec.bind(ingestion.RawEvent{CallbackType: ingestion.CallbackInvestSettled, Data: []byte("not json")})
	rec.wait(t)

	_, _, terms := rec.counts()
	assert.Equal(t, 1, terms)
}

func TestCommandQueue_SubmitAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	queue := ingestion.NewCommandQueue(1)
	done := make(chan struct{})
	go func() { queue.Run(ctx, nil); close(done) }()
	cancel()
	<-done

	err := queue.Submit(context.Background(), "late", func(*core.Engine) error { return nil })
	assert.ErrorIs(t, err, ingestion.ErrQueueClosed)
}

type recordingPublisher struct {
	subjects []string
	bodies   [][]byte
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, data []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	p.subjects = append(p.subjects, subject)
	p.bodies = append(p.bodies, data)
	return &jetstream.PubAck{Stream: ingestion.DispatchStream}, nil
}

func TestNATSGateway_DispatchSubjects(t *testing.T) {
	pub := &recordingPublisher{}
	gw := ingestion.NewNATSGateway(pub, zerolog.Nop())
	ctx := context.Background()

	req := core.LiquidationRequest{
		OperationID:     uuid.New(),
		Controller:      alice,
		Shape:           router.ShapeMultiChainSingleVault,
		LocalAssets:     testutil.Units(400),
		RequestedAssets: testutil.Units(1000),
	}
	require.NoError(t, gw.LiquidateMultiChainSingleVault(ctx, req))
	require.NoError(t, gw.Invest(ctx, core.InvestRequest{OperationID: uuid.New(), ChainID: 10, VaultID: types.VaultID(3), Assets: testutil.Units(5), ExpectedShares: testutil.Units(5)}))

	require.Equal(t, []string{
		"vault.gateway.dispatch.liquidate.multi_chain_single_vault",
		"vault.gateway.dispatch.invest.10",
	}, pub.subjects)

	var decoded core.LiquidationRequest
	require.NoError(t, json.Unmarshal(pub.bodies[0], &decoded))
	assert.Equal(t, req.OperationID, decoded.OperationID)
	assert.Equal(t, router.ShapeMultiChainSingleVault, decoded.Shape)
	assert.Equal(t, "400000000", decoded.LocalAssets.String())
}
