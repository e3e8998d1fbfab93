package ingestion_test

import (
	"encoding/json"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"YieldVault/internal/ingestion"
	"YieldVault/internal/types"
)

func rawFromJSON(t *testing.T, callbackType string, v interface{}) ingestion.RawEvent {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return ingestion.RawEvent{
		Subject:      "vault.gateway.callbacks." + callbackType + ".1",
		CallbackType: callbackType,
		MsgID:        uuid.NewString(),
		Data:         data,
		Timestamp:    time.Now(),
	}
}

func TestParseFulfilled(t *testing.T) {
	opID := uuid.New()
	raw := rawFromJSON(t, ingestion.CallbackFulfilled, map[string]string{
		"operation_id":     opID.String(),
		"controller":       "0x00000000000000000000000000000000000000aa",
		"requested_assets": "1000000000",
		"fulfilled_assets": "988000000",
	})

	cb, err := ingestion.ParseCallback(raw)
	require.NoError(t, err)

	f, ok := cb.(*ingestion.FulfilledCallback)
	require.True(t, ok, "got %T", cb)
	assert.Equal(t, opID, f.OperationID)
	assert.Equal(t, common.HexToAddress("0xaa"), f.Controller)
	assert.Equal(t, "1000000000", f.RequestedAssets.String())
	assert.Equal(t, "988000000", f.FulfilledAssets.String())
	assert.Equal(t, ingestion.CallbackFulfilled, cb.Type())
}

func TestParseFulfilled_AmountsBeyondFloatPrecision(t *testing.T) {
	raw := rawFromJSON(t, ingestion.CallbackFulfilled, map[string]string{
		"operation_id":     uuid.NewString(),
		"controller":       "0x00000000000000000000000000000000000000aa",
		"requested_assets": "123456789012345678901234567890",
		"fulfilled_assets": "123456789012345678901234567889",
	})

	cb, err := ingestion.ParseCallback(raw)
	require.NoError(t, err)
	want, _ := sdkmath.NewIntFromString("123456789012345678901234567889")
	assert.True(t, want.Equal(cb.(*ingestion.FulfilledCallback).FulfilledAssets))
}

func TestParseLiquidationFailed(t *testing.T) {
	opID := uuid.New()
	raw := rawFromJSON(t, ingestion.CallbackLiquidationFailed, map[string]string{"operation_id": opID.String()})

	cb, err := ingestion.ParseCallback(raw)
	require.NoError(t, err)
	assert.Equal(t, opID, cb.(*ingestion.LiquidationFailedCallback).OperationID)
}

func TestParseInvestSettled(t *testing.T) {
	opID := uuid.New()
	raw := rawFromJSON(t, ingestion.CallbackInvestSettled, map[string]string{
		"operation_id":  opID.String(),
		"actual_shares": "590000000",
	})

	cb, err := ingestion.ParseCallback(raw)
	require.NoError(t, err)
	s := cb.(*ingestion.InvestSettledCallback)
	assert.Equal(t, opID, s.OperationID)
	assert.Equal(t, "590000000", s.ActualShares.String())
}

func TestParseInvestFailed(t *testing.T) {
	raw := rawFromJSON(t, ingestion.CallbackInvestFailed, map[string]interface{}{
		"vault_id": 7,
		"amount":   "450000000",
	})

	cb, err := ingestion.ParseCallback(raw)
	require.NoError(t, err)
	f := cb.(*ingestion.InvestFailedCallback)
	assert.Equal(t, types.VaultID(7), f.VaultID)
	assert.Equal(t, "450000000", f.Amount.String())
}

func TestParseCallback_Rejects(t *testing.T) {
	cases := []struct {
		name string
		raw  ingestion.RawEvent
	}{
		{"unknown type", rawFromJSON(t, "rebalanced", map[string]string{})},
		{"bad uuid", rawFromJSON(t, ingestion.CallbackLiquidationFailed, map[string]string{"operation_id": "nope"})},
		{"bad address", rawFromJSON(t, ingestion.CallbackFulfilled, map[string]string{
			"operation_id": uuid.NewString(), "controller": "0x12", "requested_assets": "1", "fulfilled_assets": "1",
		})},
		{"negative amount", rawFromJSON(t, ingestion.CallbackInvestSettled, map[string]string{
			"operation_id": uuid.NewString(), "actual_shares": "-5",
		})},
		{"float amount", rawFromJSON(t, ingestion.CallbackInvestFailed, map[string]interface{}{"vault_id": 1, "amount": "1.5"})},
		{"zero vault", rawFromJSON(t, ingestion.CallbackInvestFailed, map[string]interface{}{"vault_id": 0, "amount": "1"})},
		{"malformed json", ingestion.RawEvent{CallbackType: ingestion.CallbackInvestFailed, Data: []byte("{")}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ingestion.ParseCallback(tc.raw)
			assert.Error(t, err)
		})
	}
}

func TestDefaultSubjects(t *testing.T) {
	subjects := ingestion.DefaultSubjects()
	require.Len(t, subjects, 4)
	for _, s := range subjects {
		assert.Equal(t, ingestion.CallbackStream, s.StreamName)
		assert.Contains(t, s.Subject, s.CallbackType)
	}
}
