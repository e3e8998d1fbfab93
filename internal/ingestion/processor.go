package ingestion

import (
	"context"
	"errors"
	"strconv"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"YieldVault/internal/core"
	"YieldVault/internal/observability"
)

// CallbackProcessor parses raw callbacks and applies them on the engine
// goroutine under the gateway identity.
type CallbackProcessor struct {
	input   <-chan RawEvent
	queue   *CommandQueue
	caller  common.Address
	metrics *observability.Metrics
	logger  zerolog.Logger
}

func NewCallbackProcessor(input <-chan RawEvent, queue *CommandQueue, caller common.Address, metrics *observability.Metrics, logger zerolog.Logger) *CallbackProcessor {
	return &CallbackProcessor{
		input:   input,
		queue:   queue,
		caller:  caller,
		metrics: metrics,
		logger:  logger,
	}
}

// Run processes callbacks until ctx ends or input closes.
func (p *CallbackProcessor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-p.input:
			if !ok {
				return nil
			}
			p.handle(ctx, raw)
		}
	}
}

func (p *CallbackProcessor) handle(ctx context.Context, raw RawEvent) {
	if p.metrics != nil {
		p.metrics.CallbacksReceived.WithLabelValues(raw.CallbackType).Inc()
	}

	cb, err := ParseCallback(raw)
	if err != nil {
		p.fail(raw, "parse", err)
		call(raw.TermFunc)
		return
	}

	applyCtx := ctx
	if raw.MsgID != "" {
		applyCtx = core.WithIdempotencyKey(ctx, raw.MsgID)
	}

	err = p.queue.Submit(ctx, "callback_"+cb.Type(), func(eng *core.Engine) error {
		return cb.Apply(applyCtx, eng, p.caller)
	})
	switch {
	case err == nil:
		call(raw.AckFunc)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrQueueClosed):
		call(raw.NakFunc)
	default:
		// Engine rejections are deterministic; redelivery cannot change them.
		_, code, _ := errorsmod.ABCIInfo(err, false)
		p.fail(raw, "code_"+strconv.FormatUint(uint64(code), 10), err)
		call(raw.AckFunc)
	}
}

func (p *CallbackProcessor) fail(raw RawEvent, reason string, err error) {
	if p.metrics != nil {
		p.metrics.CallbackErrors.WithLabelValues(raw.CallbackType, reason).Inc()
	}
	p.logger.Error().
		Err(err).
		Str("subject", raw.Subject).
		Str("msg_id", raw.MsgID).
		Str("reason", reason).
		Msg("gateway callback rejected")
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}
