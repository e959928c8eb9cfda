package bootstrap

import (
	"context"
	"testing"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/config"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/logging"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_InMemory(t *testing.T) {
	cfg := config.Load()
	cfg.LedgerBackend = config.BackendMemory
	cfg.PoolStore = config.BackendMemory
	cfg.RedisAddr = ""
	cfg.ClickHouseAddr = ""
	cfg.RPCUrl = ""

	svc, err := Build(context.Background(), cfg, logging.Discard(), observability.NewMetrics("test", prometheus.NewRegistry()))
	require.NoError(t, err)
	defer svc.Close()

	assert.NotNil(t, svc.Engine)
	assert.NotNil(t, svc.Bootstrapper)
	assert.NotNil(t, svc.Replay)
	assert.Nil(t, svc.History)
	assert.Nil(t, svc.Cluster)
	assert.Nil(t, svc.Redis)

	program, err := cfg.Program()
	require.NoError(t, err)
	assert.Equal(t, program, svc.Engine.ProgramID())
}

func TestBuild_RejectsInvalidConfig(t *testing.T) {
	cfg := config.Load()
	cfg.LedgerBackend = "sqlite"

	_, err := Build(context.Background(), cfg, logging.Discard(), observability.NewMetrics("test", prometheus.NewRegistry()))
	assert.Error(t, err)
}
