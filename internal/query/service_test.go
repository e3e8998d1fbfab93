package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildEventQuery_NoFilter(t *testing.T) {
	query, args := buildEventQuery(EventFilter{})

	assert.NotContains(t, query, "WHERE")
	assert.Contains(t, query, "ORDER BY sequence DESC LIMIT $1")
	assert.Equal(t, []interface{}{defaultLimit}, args)
}

func TestBuildEventQuery_AllFilters(t *testing.T) {
	query, args := buildEventQuery(EventFilter{
		EventType:   "Redeemed",
		Controller:  "0x00000000000000000000000000000000000000aa",
		OperationID: "op",
		Before:      50,
		Limit:       5000,
	})

	assert.Contains(t, query, "WHERE event_type = $1 AND payload->>'controller' = $2 AND payload->>'operation_id' = $3 AND sequence < $4")
	assert.Contains(t, query, "LIMIT $5")
	assert.Equal(t, []interface{}{"Redeemed", "0x00000000000000000000000000000000000000aa", "op", int64(50), maxLimit}, args)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, defaultLimit, clampLimit(0))
	assert.Equal(t, 7, clampLimit(7))
	assert.Equal(t, maxLimit, clampLimit(maxLimit+1))
}

func TestBuildFeeQuery(t *testing.T) {
	query, args := buildFeeQuery(FeeFilter{Kind: "exit", Controller: "0xab", Limit: 10})

	assert.Contains(t, query, "FROM projections.fee_history WHERE kind = $1 AND controller = $2")
	assert.Contains(t, query, "LIMIT $3")
	assert.Equal(t, []interface{}{"exit", "0xab", 10}, args)

	query, args = buildFeeQuery(FeeFilter{Before: 9})
	assert.Contains(t, query, "WHERE sequence < $1")
	assert.Equal(t, []interface{}{int64(9), defaultLimit}, args)
}
