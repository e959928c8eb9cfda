package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, BackendMemory, cfg.LedgerBackend)
	assert.Equal(t, BackendMemory, cfg.PoolStore)
	assert.Equal(t, ":8080", cfg.APIAddr)
	assert.Equal(t, 2*time.Minute, cfg.SignatureTTL)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("LEDGER_BACKEND", "Postgres")
	t.Setenv("POOL_STORE", "redis")
	t.Setenv("POSTGRES_DSN", "postgres://localhost/swap")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("MAX_RETRIES", "not-a-number")
	t.Setenv("SIGNATURE_TTL", "45s")

	cfg := Load()
	assert.Equal(t, BackendPostgres, cfg.LedgerBackend)
	assert.Equal(t, BackendRedis, cfg.PoolStore)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, 5, cfg.MaxRetries, "bad values fall back to the default")
	assert.Equal(t, 45*time.Second, cfg.SignatureTTL)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad program id", func(c *Config) { c.ProgramID = "not-base58-0OIl" }},
		{"zero program id", func(c *Config) { c.ProgramID = "11111111111111111111111111111111" }},
		{"unknown ledger", func(c *Config) { c.LedgerBackend = "sqlite" }},
		{"postgres ledger without dsn", func(c *Config) { c.LedgerBackend = BackendPostgres }},
		{"redis store without addr", func(c *Config) { c.PoolStore = BackendRedis; c.DevMode = true }},
		{"durable store over memory ledger", func(c *Config) {
			c.PoolStore = BackendPostgres
			c.PostgresDSN = "postgres://localhost/swap"
		}},
		{"zero signature ttl", func(c *Config) { c.SignatureTTL = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadCLI(t *testing.T) {
	t.Setenv("WALLET_PRIVATE_KEY", "wallet-key")
	t.Setenv("SWAPENGINE_MAX_RETRIES", "7")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("api", "http://localhost:8080", "")
	require.NoError(t, flags.Parse([]string{"--api", "http://swap.internal:9000/"}))

	cfg, err := LoadCLI("", flags)
	require.NoError(t, err)
	assert.Equal(t, "http://swap.internal:9000", cfg.APIURL)
	assert.Equal(t, "wallet-key", cfg.PrivateKey)
	assert.Equal(t, 7, cfg.MaxRetries)
}

func TestLoadCLI_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swapengine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: http://from-file:8080\ntimeout: 5s\n"), 0o600))

	cfg, err := LoadCLI(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://from-file:8080", cfg.APIURL)
	assert.Equal(t, 5*time.Second, cfg.Timeout)

	_, err = LoadCLI(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}
