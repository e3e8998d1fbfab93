package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/nats-io/nats.go/jetstream"

	"YieldVault/internal/pricing"
	"YieldVault/internal/types"
)

// PriceBucket is the JetStream key-value bucket oracle relayers write to.
const PriceBucket = "VAULT_SHARE_PRICES"

// ErrNoPrice is returned when no report exists for a vault.
var ErrNoPrice = errors.New("no share price reported")

// PriceGetter is the read subset of jetstream.KeyValue.
type PriceGetter interface {
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
}

type priceValue struct {
	Price     sdkmath.Int `json:"price"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// KVOracle reads remote share prices from a JetStream KV bucket keyed by
// "<chain>.<vault>". Staleness is judged by the converter, not here.
type KVOracle struct {
	kv PriceGetter
}

func NewKVOracle(kv PriceGetter) *KVOracle {
	return &KVOracle{kv: kv}
}

// PriceKey is the bucket key for a vault.
func PriceKey(chain types.ChainID, vault common.Address) string {
	return chain.String() + "." + strings.ToLower(vault.Hex())
}

func (o *KVOracle) LatestSharePrice(ctx context.Context, chain types.ChainID, vault common.Address) (pricing.PriceReport, error) {
	entry, err := o.kv.Get(ctx, PriceKey(chain, vault))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return pricing.PriceReport{}, fmt.Errorf("%w: chain %s vault %s", ErrNoPrice, chain, vault.Hex())
	}
	if err != nil {
		return pricing.PriceReport{}, err
	}

	var v priceValue
	if err := json.Unmarshal(entry.Value(), &v); err != nil {
		return pricing.PriceReport{}, fmt.Errorf("decode price for %s: %w", entry.Key(), err)
	}
	if v.Price.IsNil() {
		return pricing.PriceReport{}, fmt.Errorf("%w: empty report for %s", ErrNoPrice, entry.Key())
	}
	if v.UpdatedAt.IsZero() {
		v.UpdatedAt = entry.Created()
	}
	return pricing.PriceReport{Price: v.Price, UpdatedAt: v.UpdatedAt}, nil
}

// EnsurePriceBucket creates the bucket if missing.
func EnsurePriceBucket(ctx context.Context, js jetstream.JetStream) (jetstream.KeyValue, error) {
	return js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      PriceBucket,
		Description: "Latest share price per remote vault",
		History:     5,
	})
}
