package ingestion

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"YieldVault/internal/core"
	"YieldVault/internal/router"
)

// Publisher is the subset of jetstream.JetStream used for dispatch.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSGateway dispatches liquidations and investments to the bridge
// relayers over JetStream. The operation id doubles as Nats-Msg-Id, so a
// retried dispatch is deduplicated by the stream.
type NATSGateway struct {
	js     Publisher
	logger zerolog.Logger
}

func NewNATSGateway(js Publisher, logger zerolog.Logger) *NATSGateway {
	return &NATSGateway{js: js, logger: logger}
}

// LiquidationSubject is the dispatch subject for one route shape.
func LiquidationSubject(shape router.Shape) string {
	return fmt.Sprintf("%s.liquidate.%s", dispatchPrefix, shape)
}

// InvestSubject is the dispatch subject for invests into vaults on chain.
func InvestSubject(req core.InvestRequest) string {
	return fmt.Sprintf("%s.invest.%s", dispatchPrefix, req.ChainID)
}

func (g *NATSGateway) LiquidateSingleChainSingleVault(ctx context.Context, req core.LiquidationRequest) error {
	return g.liquidate(ctx, req)
}

func (g *NATSGateway) LiquidateSingleChainMultiVault(ctx context.Context, req core.LiquidationRequest) error {
	return g.liquidate(ctx, req)
}

func (g *NATSGateway) LiquidateMultiChainSingleVault(ctx context.Context, req core.LiquidationRequest) error {
	return g.liquidate(ctx, req)
}

func (g *NATSGateway) LiquidateMultiChainMultiVault(ctx context.Context, req core.LiquidationRequest) error {
	return g.liquidate(ctx, req)
}

func (g *NATSGateway) liquidate(ctx context.Context, req core.LiquidationRequest) error {
	if err := g.publish(ctx, LiquidationSubject(req.Shape), req.OperationID.String(), req); err != nil {
		return err
	}
	g.logger.Info().
		Str("operation_id", req.OperationID.String()).
		Str("shape", req.Shape.String()).
		Int("chains", len(req.Chains)).
		Msg("liquidation dispatched")
	return nil
}

func (g *NATSGateway) Invest(ctx context.Context, req core.InvestRequest) error {
	if err := g.publish(ctx, InvestSubject(req), req.OperationID.String(), req); err != nil {
		return err
	}
	g.logger.Info().
		Str("operation_id", req.OperationID.String()).
		Str("vault_id", req.VaultID.String()).
		Str("assets", req.Assets.String()).
		Msg("invest dispatched")
	return nil
}

func (g *NATSGateway) publish(ctx context.Context, subject, msgID string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal dispatch: %w", err)
	}
	if _, err := g.js.Publish(ctx, subject, data, jetstream.WithMsgID(msgID)); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}
