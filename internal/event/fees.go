package event

import sdkmath "cosmossdk.io/math"

type GlobalFeesCharged struct {
	Key            string      `json:"key"`
	Management     sdkmath.Int `json:"management"`
	Oracle         sdkmath.Int `json:"oracle"`
	Performance    sdkmath.Int `json:"performance"`
	TreasuryShares sdkmath.Int `json:"treasury_shares"`
	Watermark      sdkmath.Int `json:"watermark"`
	Duration       int64       `json:"duration_seconds"`
}

func (e *GlobalFeesCharged) IdempotencyKey() string { return e.Key }
func (e *GlobalFeesCharged) EventType() EventType   { return EventTypeGlobalFeesCharged }
