package projection_test

import (
	"context"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"YieldVault/internal/core"
	"YieldVault/internal/event"
	"YieldVault/internal/persistence"
	"YieldVault/internal/projection"
	"YieldVault/internal/testutil"
)

var at = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func output(t *testing.T, seq int64, evt event.Event) core.CoreOutput {
	t.Helper()
	payload, err := event.Encode(evt)
	require.NoError(t, err)
	return core.CoreOutput{
		Envelope: &event.EventEnvelope{
			Sequence:       seq,
			IdempotencyKey: evt.IdempotencyKey(),
			EventType:      evt.EventType(),
			Timestamp:      at,
			Payload:        payload,
		},
		Event: evt,
	}
}

func globalFees() *event.GlobalFeesCharged {
	return &event.GlobalFeesCharged{
		Key:            "fees-1",
		Management:     sdkmath.NewInt(100),
		Oracle:         sdkmath.NewInt(20),
		Performance:    sdkmath.NewInt(300),
		TreasuryShares: sdkmath.NewInt(410),
		Watermark:      sdkmath.NewInt(1_100_000),
	}
}

func redeemed(controller int64, mgmt int64) *event.Redeemed {
	return &event.Redeemed{
		Key:            "redeem",
		Controller:     testutil.Addr(controller),
		Receiver:       testutil.Addr(controller),
		Shares:         testutil.Units(1),
		Assets:         testutil.Units(1),
		NetAssets:      testutil.Units(1).SubRaw(mgmt),
		ManagementFee:  sdkmath.NewInt(mgmt),
		OracleFee:      sdkmath.ZeroInt(),
		PerformanceFee: sdkmath.ZeroInt(),
		TreasuryShares: sdkmath.NewInt(mgmt),
	}
}

func TestFeeRecordFromOutput(t *testing.T) {
	rec, ok := projection.FeeRecordFromOutput(output(t, 7, globalFees()))
	require.True(t, ok)
	assert.Equal(t, projection.KindGlobal, rec.Kind)
	assert.Empty(t, rec.Controller)
	assert.Equal(t, int64(7), rec.Sequence)
	assert.Equal(t, "420", rec.Total().String())

	rec, ok = projection.FeeRecordFromOutput(output(t, 8, redeemed(100, 5)))
	require.True(t, ok)
	assert.Equal(t, projection.KindExit, rec.Kind)
	assert.Equal(t, "0x0000000000000000000000000000000000000064", rec.Controller)
	assert.Equal(t, "5", rec.Management.String())

	// Fee-free exits and non-fee events are not projected.
	_, ok = projection.FeeRecordFromOutput(output(t, 9, redeemed(100, 0)))
	assert.False(t, ok)
	_, ok = projection.FeeRecordFromOutput(output(t, 10, &event.Donated{Key: "d", Assets: sdkmath.NewInt(1)}))
	assert.False(t, ok)
}

func TestFeeHistory_WorkerAndRebuildAgree(t *testing.T) {
	testutil.RequireIntegration(t)
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	outs := []core.CoreOutput{
		output(t, 0, globalFees()),
		output(t, 1, redeemed(100, 0)),
		output(t, 2, redeemed(101, 3)),
	}

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	rows := make([]persistence.EventRow, len(outs))
	for i, o := range outs {
		rows[i] = persistence.RowFromOutput(o)
	}
	require.NoError(t, persistence.NewEventLogWriter(db).WriteEventBatch(ctx, tx, rows))
	require.NoError(t, tx.Commit())

	in := make(chan core.CoreOutput, len(outs))
	for _, o := range outs {
		in <- o
	}
	close(in)
	require.NoError(t, projection.NewProjectionWorker(db, in, nil, zerolog.Nop()).Run(ctx))

	count := func() int {
		var n int
		require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projections.fee_history`).Scan(&n))
		return n
	}
	assert.Equal(t, 2, count())

	n, err := projection.RebuildFeeHistory(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 2, count())

	var last int64
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT last_sequence FROM projections.watermark WHERE worker_id = 'fee_history'`).Scan(&last))
	assert.Equal(t, int64(2), last)
}
