package core

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"YieldVault/internal/observability"
)

// DefaultDedupTTL is how long a processed key stays in the in-memory tier.
const DefaultDedupTTL = 24 * time.Hour

// IdempotencyChecker implements two-tier deduplication of gateway
// callbacks: an expiring in-memory cache, then the Postgres event log.
type IdempotencyChecker struct {
	// Tier 1: in-memory, keys expire after ttl
	recent *cache.Cache
	ttl    time.Duration

	// Tier 2: Postgres (injected via interface)
	dbChecker DBIdempotencyChecker

	metrics *observability.Metrics
}

// DBIdempotencyChecker is the interface for Postgres dedup lookup
type DBIdempotencyChecker interface {
	IsDuplicate(ctx context.Context, eventType string, idempotencyKey string) (bool, error)
}

func NewIdempotencyChecker(ttl time.Duration, dbChecker DBIdempotencyChecker, metrics *observability.Metrics) *IdempotencyChecker {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &IdempotencyChecker{
		recent:    cache.New(ttl, ttl/4),
		ttl:       ttl,
		dbChecker: dbChecker,
		metrics:   metrics,
	}
}

func compositeKey(eventType, idempotencyKey string) string {
	return eventType + ":" + idempotencyKey
}

// IsDuplicate checks if a key has been processed (two-tier lookup).
func (ic *IdempotencyChecker) IsDuplicate(ctx context.Context, eventType string, idempotencyKey string) bool {
	key := compositeKey(eventType, idempotencyKey)

	if _, found := ic.recent.Get(key); found {
		ic.recordDuplicate(eventType, "memory")
		return true
	}

	if ic.dbChecker != nil {
		isDup, err := ic.dbChecker.IsDuplicate(ctx, eventType, idempotencyKey)
		if err != nil {
			// Treat as new; the engine's own status checks still reject replays.
			if ic.metrics != nil {
				ic.metrics.DedupTier2Errors.Inc()
			}
			return false
		}
		if isDup {
			ic.recordDuplicate(eventType, "postgres")
			ic.recent.Set(key, struct{}{}, cache.DefaultExpiration)
			return true
		}
	}

	return false
}

// MarkProcessed records a key after it was applied.
func (ic *IdempotencyChecker) MarkProcessed(eventType string, idempotencyKey string) {
	ic.recent.Set(compositeKey(eventType, idempotencyKey), struct{}{}, cache.DefaultExpiration)
	if ic.metrics != nil {
		ic.metrics.DedupCacheSize.Set(float64(ic.recent.ItemCount()))
	}
}

// Warm loads composite keys (eventType:key) recovered from Postgres on restart.
func (ic *IdempotencyChecker) Warm(keys []string) {
	for _, k := range keys {
		ic.recent.Set(k, struct{}{}, cache.DefaultExpiration)
	}
}

// Size returns the number of unexpired keys in memory.
func (ic *IdempotencyChecker) Size() int {
	return ic.recent.ItemCount()
}

func (ic *IdempotencyChecker) recordDuplicate(eventType, tier string) {
	if ic.metrics != nil {
		ic.metrics.IdempotencyDuplicates.WithLabelValues(eventType, tier).Inc()
	}
}

// Keys returns the unexpired composite keys, for snapshotting.
func (ic *IdempotencyChecker) Keys() []string {
	items := ic.recent.Items()
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	return keys
}
