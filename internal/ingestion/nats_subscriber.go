package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

const (
	CallbackStream = "VAULT_GATEWAY_CALLBACKS"
	DispatchStream = "VAULT_GATEWAY_DISPATCH"
	EventsStream   = "VAULT_EVENTS"

	callbackPrefix = "vault.gateway.callbacks"
	dispatchPrefix = "vault.gateway.dispatch"
	eventsPrefix   = "vault.events"
)

// Callback types, one subject each.
const (
	CallbackFulfilled         = "fulfilled"
	CallbackLiquidationFailed = "liquidation_failed"
	CallbackInvestSettled     = "invest_settled"
	CallbackInvestFailed      = "invest_failed"
)

// RawEvent is one gateway callback as received from NATS, before parsing.
type RawEvent struct {
	Subject      string
	CallbackType string
	// MsgID is the Nats-Msg-Id header set by the gateway; it is the
	// callback's idempotency key.
	MsgID     string
	Data      []byte
	Timestamp time.Time
	AckFunc   func() // Processed, or rejected for good
	NakFunc   func() // Redeliver later
	TermFunc  func() // Unparseable, never redeliver
}

// SubjectConfig maps a NATS subject to a callback type.
type SubjectConfig struct {
	Subject      string
	CallbackType string
	ConsumerName string
	StreamName   string
}

// DefaultSubjects returns one durable consumer per callback type.
func DefaultSubjects() []SubjectConfig {
	types := []string{CallbackFulfilled, CallbackLiquidationFailed, CallbackInvestSettled, CallbackInvestFailed}
	out := make([]SubjectConfig, 0, len(types))
	for _, t := range types {
		out = append(out, SubjectConfig{
			Subject:      fmt.Sprintf("%s.%s.>", callbackPrefix, t),
			CallbackType: t,
			ConsumerName: "vault-cb-" + t,
			StreamName:   CallbackStream,
		})
	}
	return out
}

// NATSSubscriber consumes gateway callbacks from JetStream and hands them
// to the callback processor.
type NATSSubscriber struct {
	js        jetstream.JetStream
	eventChan chan<- RawEvent
	consumers []jetstream.ConsumeContext
	logger    zerolog.Logger
}

func NewNATSSubscriber(js jetstream.JetStream, eventChan chan<- RawEvent, logger zerolog.Logger) *NATSSubscriber {
	return &NATSSubscriber{
		js:        js,
		eventChan: eventChan,
		logger:    logger,
	}
}

// Subscribe creates JetStream consumers for all configured subjects.
// Consumers use explicit ACK, max_deliver=5, ack_wait=30s.
func (ns *NATSSubscriber) Subscribe(ctx context.Context, subjects []SubjectConfig) error {
	for _, cfg := range subjects {
		cfg := cfg
		consumer, err := ns.js.CreateOrUpdateConsumer(ctx, cfg.StreamName, jetstream.ConsumerConfig{
			Durable:       cfg.ConsumerName,
			FilterSubject: cfg.Subject,
			AckPolicy:     jetstream.AckExplicitPolicy,
			AckWait:       30 * time.Second,
			MaxDeliver:    5,
			DeliverPolicy: jetstream.DeliverAllPolicy,
		})
		if err != nil {
			return fmt.Errorf("create consumer %s: %w", cfg.ConsumerName, err)
		}

		consumerContext, err := consumer.Consume(func(msg jetstream.Msg) {
			raw := RawEvent{
				Subject:      msg.Subject(),
				CallbackType: cfg.CallbackType,
				MsgID:        msg.Headers().Get(nats.MsgIdHdr),
				Data:         msg.Data(),
				Timestamp:    time.Now(),
				AckFunc:      func() { _ = msg.Ack() },
				NakFunc:      func() { _ = msg.Nak() },
				TermFunc:     func() { _ = msg.Term() },
			}

			select {
			case ns.eventChan <- raw:
			case <-ctx.Done():
				_ = msg.Nak()
			}
		})
		if err != nil {
			return fmt.Errorf("consume %s: %w", cfg.ConsumerName, err)
		}

		ns.consumers = append(ns.consumers, consumerContext)
		ns.logger.Info().Str("subject", cfg.Subject).Str("consumer", cfg.ConsumerName).Msg("subscribed")
	}

	return nil
}

// EnsureStreams creates the callback, dispatch and outbound event streams.
// Streams use FileStorage, retention=Limits, max_age=72h and dedupe on
// Nats-Msg-Id within a 2 minute window.
func EnsureStreams(ctx context.Context, js jetstream.JetStream, logger zerolog.Logger) error {
	streams := []jetstream.StreamConfig{
		{Name: CallbackStream, Subjects: []string{callbackPrefix + ".>"}},
		{Name: DispatchStream, Subjects: []string{dispatchPrefix + ".>"}},
		{Name: EventsStream, Subjects: []string{eventsPrefix + ".>"}},
	}

	for _, cfg := range streams {
		cfg.Storage = jetstream.FileStorage
		cfg.Retention = jetstream.LimitsPolicy
		cfg.MaxAge = 72 * time.Hour
		cfg.Duplicates = 2 * time.Minute
		cfg.Replicas = 1
		if _, err := js.CreateOrUpdateStream(ctx, cfg); err != nil {
			return fmt.Errorf("create stream %s: %w", cfg.Name, err)
		}
		logger.Info().Str("stream", cfg.Name).Msg("ensured stream")
	}

	return nil
}

// Stop gracefully stops all consumers.
func (ns *NATSSubscriber) Stop() {
	for _, cc := range ns.consumers {
		cc.Stop()
	}
	ns.logger.Info().Msg("NATS subscribers stopped")
}

// ConnectNATS establishes a NATS connection and returns a JetStream context.
func ConnectNATS(url string, logger zerolog.Logger) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url,
		nats.Name("yieldvault"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info().Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}

	return nc, js, nil
}
