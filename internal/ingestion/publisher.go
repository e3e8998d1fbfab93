package ingestion

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"YieldVault/internal/core"
)

// OutboundPublisher publishes emitted engine events for downstream
// consumers on vault.events.{event_type}.
type OutboundPublisher struct {
	js        Publisher
	inputChan <-chan core.CoreOutput
	logger    zerolog.Logger
}

// PublishableEvent is the outbound wire format.
type PublishableEvent struct {
	Sequence       int64           `json:"sequence"`
	EventType      string          `json:"event_type"`
	IdempotencyKey string          `json:"idempotency_key"`
	Payload        json.RawMessage `json:"payload"`
	StateHash      string          `json:"state_hash"`
	PrevHash       string          `json:"prev_hash"`
	Timestamp      time.Time       `json:"timestamp"`
}

func NewOutboundPublisher(js Publisher, inputChan <-chan core.CoreOutput, logger zerolog.Logger) *OutboundPublisher {
	return &OutboundPublisher{
		js:        js,
		inputChan: inputChan,
		logger:    logger,
	}
}

// Run starts the outbound publisher loop.
func (op *OutboundPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case out, ok := <-op.inputChan:
			if !ok {
				return nil
			}

			if err := op.publish(ctx, out); err != nil {
				// Non-fatal: downstream consumers can query the event log directly
				op.logger.Warn().Err(err).Int64("sequence", out.Envelope.Sequence).Msg("outbound publish failed")
			}
		}
	}
}

// ToPublishable converts an engine output to its wire form.
func ToPublishable(out core.CoreOutput) PublishableEvent {
	env := out.Envelope
	return PublishableEvent{
		Sequence:       env.Sequence,
		EventType:      env.EventType.String(),
		IdempotencyKey: env.IdempotencyKey,
		Payload:        json.RawMessage(env.Payload),
		StateHash:      hex.EncodeToString(env.StateHash[:]),
		PrevHash:       hex.EncodeToString(env.PrevHash[:]),
		Timestamp:      env.Timestamp,
	}
}

func (op *OutboundPublisher) publish(ctx context.Context, out core.CoreOutput) error {
	evt := ToPublishable(out)
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", eventsPrefix, evt.EventType)
	_, err = op.js.Publish(ctx, subject, data, jetstream.WithMsgID("seq-"+strconv.FormatInt(evt.Sequence, 10)))
	return err
}
