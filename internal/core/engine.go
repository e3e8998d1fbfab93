package core

import (
	"context"
	"math/big"
	"strconv"
	"sync/atomic"
	"time"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"YieldVault/internal/event"
	"YieldVault/internal/observability"
	"YieldVault/internal/pricing"
	"YieldVault/internal/registry"
	"YieldVault/internal/router"
	"YieldVault/internal/state"
	"YieldVault/internal/types"
)

// Engine is the redemption coordinator. Every entry point runs to
// completion before the next one starts; a call that arrives while
// another is in progress fails with ErrReentrantCall.
type Engine struct {
	cfg   Config
	clock types.Clock

	registry  *registry.Registry
	prices    *pricing.Converter
	router    *router.Router
	global    *state.GlobalAccount
	positions *state.PositionManager
	requests  *state.RequestBook
	inflight  *state.InflightLedger
	roles     *Roles
	shutdown  bool

	local    pricing.LocalVaults
	gateway  Gateway
	approver Approver

	busy        atomic.Bool
	sequence    int64
	hasher      *StateHasher
	idempotency *IdempotencyChecker

	persistChan    chan<- CoreOutput
	publishChan    chan<- CoreOutput
	projectionChan chan<- CoreOutput

	metrics *observability.Metrics
	logger  zerolog.Logger
}

// CoreOutput is one emitted event on its way to persistence and NATS.
type CoreOutput struct {
	Envelope *event.EventEnvelope
	Event    event.Event
}

// Deps are the engine's collaborators. Channels, Idempotency and Metrics
// may be nil.
type Deps struct {
	Clock       types.Clock
	LocalVaults pricing.LocalVaults
	Oracle      pricing.Oracle
	Gateway     Gateway
	Approver    Approver
	Roles       *Roles
	Idempotency *IdempotencyChecker
	PersistChan chan<- CoreOutput
	PublishChan chan<- CoreOutput
	Metrics     *observability.Metrics
	Logger      zerolog.Logger

	// Read-model updates; dropped when full, rebuilt from the log.
	ProjectionChan chan<- CoreOutput
}

func NewEngine(cfg Config, deps Deps) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	clock := deps.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	roles := deps.Roles
	if roles == nil {
		roles = NewRoles()
	}

	reg := registry.NewRegistry(cfg.LocalChain, cfg.QueueCapacity)
	prices := pricing.NewConverter(deps.LocalVaults, deps.Oracle, clock, cfg.StalenessTolerance)
	inflight := state.NewInflightLedger()

	return &Engine{
		cfg:            cfg,
		clock:          clock,
		registry:       reg,
		prices:         prices,
		router:         router.NewRouter(reg, prices, inflight),
		global:         state.NewGlobalAccount(cfg.Decimals, clock.Now()),
		positions:      state.NewPositionManager(),
		requests:       state.NewRequestBook(),
		inflight:       inflight,
		roles:          roles,
		local:          deps.LocalVaults,
		gateway:        deps.Gateway,
		approver:       deps.Approver,
		hasher:         NewStateHasher(),
		idempotency:    deps.Idempotency,
		persistChan:    deps.PersistChan,
		publishChan:    deps.PublishChan,
		projectionChan: deps.ProjectionChan,
		metrics:        deps.Metrics,
		logger:         deps.Logger,
	}, nil
}

type idempotencyKeyCtx struct{}

// WithIdempotencyKey attaches an upstream dedup key (e.g. a NATS message
// id) to the call. Engine-originated calls get a fresh uuid.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKeyCtx{}, key)
}

func idempotencyKeyFrom(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(idempotencyKeyCtx{}).(string)
	return key, ok && key != ""
}

// enter acquires the engine for one call.
func (e *Engine) enter(call string) error {
	if !e.busy.CompareAndSwap(false, true) {
		e.reject(call, types.ErrReentrantCall)
		return errorsmod.Wrapf(types.ErrReentrantCall, "%s", call)
	}
	return nil
}

// exit releases the engine and records the outcome of call.
func (e *Engine) exit(call string, start time.Time, err *error) {
	e.busy.Store(false)
	if *err != nil {
		e.reject(call, *err)
		e.logger.Debug().Err(*err).Str("call", call).Msg("call rejected")
		return
	}
	if e.metrics != nil {
		e.metrics.EngineCallDuration.WithLabelValues(call).Observe(time.Since(start).Seconds())
	}
}

func (e *Engine) reject(call string, err error) {
	if e.metrics == nil {
		return
	}
	_, code, _ := errorsmod.ABCIInfo(err, false)
	e.metrics.EngineCallsRejected.WithLabelValues(call, strconv.FormatUint(uint64(code), 10)).Inc()
}

// duplicate reports whether a callback carrying an upstream key was
// already applied.
func (e *Engine) duplicate(ctx context.Context, eventType event.EventType) bool {
	if e.idempotency == nil {
		return false
	}
	key, ok := idempotencyKeyFrom(ctx)
	if !ok {
		return false
	}
	if e.idempotency.IsDuplicate(ctx, eventType.String(), key) {
		e.logger.Info().Str("event_type", eventType.String()).Str("key", key).Msg("duplicate callback dropped")
		return true
	}
	return false
}

func (e *Engine) keyFor(ctx context.Context) string {
	if key, ok := idempotencyKeyFrom(ctx); ok {
		return key
	}
	return uuid.NewString()
}

// emit seals evt into the hash chain and hands it to the output channels.
// Persistence is a blocking send; publishing and projection drop when full.
func (e *Engine) emit(evt event.Event) {
	payload, err := event.Encode(evt)
	if err != nil {
		// Payloads are plain structs; failure here is a programming error.
		panic("encode event " + evt.EventType().String() + ": " + err.Error())
	}

	prev := e.hasher.GetPrevHash()
	digest := e.computeStateDigest(payload)
	envelope := &event.EventEnvelope{
		Sequence:       e.sequence,
		IdempotencyKey: evt.IdempotencyKey(),
		EventType:      evt.EventType(),
		Timestamp:      e.clock.Now(),
		Payload:        payload,
		StateHash:      e.hasher.ComputeHash(e.sequence, evt.EventType(), digest),
		PrevHash:       prev,
	}
	e.sequence++

	out := CoreOutput{Envelope: envelope, Event: evt}
	if e.persistChan != nil {
		e.persistChan <- out
	}
	if e.publishChan != nil {
		select {
		case e.publishChan <- out:
		default:
			if e.metrics != nil {
				e.metrics.PublishDrops.Inc()
			}
		}
	}
	if e.projectionChan != nil {
		select {
		case e.projectionChan <- out:
		default:
			if e.metrics != nil {
				e.metrics.ProjectionDrops.Inc()
			}
		}
	}

	if e.idempotency != nil {
		e.idempotency.MarkProcessed(evt.EventType().String(), evt.IdempotencyKey())
	}
	e.observe(evt.EventType())
}

// computeStateDigest serializes the global totals followed by the event
// payload, which carries every per-entity change of the call.
func (e *Engine) computeStateDigest(payload []byte) []byte {
	g := e.global
	digest := make([]byte, 0, 128+len(payload))
	for _, v := range []sdkmath.Int{g.Idle, g.Debt, g.TotalSupply, g.Watermark} {
		s := v.String()
		digest = append(digest, byte(len(s)))
		digest = append(digest, s...)
	}
	digest = strconv.AppendInt(digest, g.LastFeesCharged.Unix(), 10)
	return append(digest, payload...)
}

func (e *Engine) observe(eventType event.EventType) {
	if e.metrics == nil {
		return
	}
	m := e.metrics
	m.EngineCallsApplied.WithLabelValues(eventType.String()).Inc()
	m.EngineSequence.Set(float64(e.sequence))
	m.IdleAssets.Set(toFloat(e.global.Idle))
	m.DebtAssets.Set(toFloat(e.global.Debt))
	m.TotalSupply.Set(toFloat(e.global.TotalSupply))
	m.SharePrice.Set(toFloat(e.global.SharePrice()))
	m.Watermark.Set(toFloat(e.global.Watermark))
	m.PendingInvest.Set(toFloat(e.inflight.TotalPendingXChainInvests()))
	m.OperationsInflight.Set(float64(len(e.inflight.Pending())))
}

func toFloat(i sdkmath.Int) float64 {
	f, _ := new(big.Float).SetInt(i.BigInt()).Float64()
	return f
}

// --- Read-only accessors, used by the server and tests ---

// Sequence returns the next sequence number to be assigned.
func (e *Engine) Sequence() int64 {
	return e.sequence
}

func (e *Engine) Global() state.GlobalAccount {
	return *e.global.Clone()
}

func (e *Engine) Position(controller common.Address) (state.PositionAccount, bool) {
	pos := e.positions.GetPosition(controller)
	if pos == nil {
		return state.PositionAccount{}, false
	}
	return *pos, true
}

func (e *Engine) Request(controller common.Address) state.RedeemRequest {
	return e.requests.Get(controller)
}

func (e *Engine) Vault(id types.VaultID) (registry.SubVault, bool) {
	v, ok := e.registry.Get(id)
	if !ok {
		return registry.SubVault{}, false
	}
	return *v.Clone(), true
}

func (e *Engine) Vaults() []*registry.SubVault {
	return e.registry.Vaults()
}

func (e *Engine) Queues() (local, crossChain []types.VaultID) {
	return e.registry.LocalQueue(), e.registry.CrossChainQueue()
}

func (e *Engine) Operation(id uuid.UUID) (state.Operation, error) {
	op, err := e.inflight.Get(id)
	if err != nil {
		return state.Operation{}, err
	}
	return *op, nil
}

func (e *Engine) PendingOperations() []state.Operation {
	pending := e.inflight.Pending()
	out := make([]state.Operation, len(pending))
	for i, op := range pending {
		out[i] = *op
	}
	return out
}

func (e *Engine) TotalPendingXChainInvests() sdkmath.Int {
	return e.inflight.TotalPendingXChainInvests()
}

func (e *Engine) IsShutdown() bool {
	return e.shutdown
}

func (e *Engine) Config() Config {
	return e.cfg
}
