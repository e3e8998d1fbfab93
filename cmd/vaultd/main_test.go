package main

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"YieldVault/internal/core"
)

func TestDefaultConfig_FromEnv(t *testing.T) {
	t.Setenv("VAULT_DECIMALS", "18")
	t.Setenv("VAULT_LOCK_PERIOD", "72h")
	t.Setenv("VAULT_PERFORMANCE_FEE_BPS", "2000")
	t.Setenv("VAULT_QUEUE_CAPACITY", "not-a-number")
	t.Setenv("VAULT_TREASURY", "0x0000000000000000000000000000000000000009")

	cfg := DefaultConfig()
	assert.Equal(t, 30, cfg.QueueCapacity)

	ec, err := cfg.EngineConfig()
	require.NoError(t, err)
	assert.Equal(t, uint8(18), ec.Decimals)
	assert.Equal(t, 72*time.Hour, ec.LockPeriod)
	assert.Equal(t, uint64(2000), ec.Fees.PerformanceBps)
	assert.Equal(t, common.HexToAddress("0x9"), ec.Treasury)
}

func TestEngineConfig_RequiresTreasury(t *testing.T) {
	t.Setenv("VAULT_TREASURY", "")
	_, err := DefaultConfig().EngineConfig()
	assert.Error(t, err)
}

func TestRoles(t *testing.T) {
	admin := "0x00000000000000000000000000000000000000a1"
	gw1 := "0x00000000000000000000000000000000000000b1"
	gw2 := "0x00000000000000000000000000000000000000b2"

	cfg := Config{Admins: admin, Gateways: gw1 + ", " + gw2}
	roles, err := cfg.Roles()
	require.NoError(t, err)

	assert.True(t, roles.Has(core.RoleAdmin, common.HexToAddress(admin)))
	assert.True(t, roles.Has(core.RoleGateway, common.HexToAddress(gw2)))
	assert.False(t, roles.Has(core.RoleManager, common.HexToAddress(admin)))

	first, err := firstAddress(cfg.Gateways)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(gw1), first)

	_, err = Config{Relayers: "0xnope"}.Roles()
	assert.Error(t, err)

	_, err = firstAddress("")
	assert.Error(t, err)
}
