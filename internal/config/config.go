package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/constants"
	"github.com/gagliardetto/solana-go"
)

// Backend names accepted by LEDGER_BACKEND and POOL_STORE.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type Config struct {
	// Program identity every pool address is derived from
	ProgramID string

	// API settings
	APIAddr      string
	APIKey       string
	DevMode      bool
	RateLimit    float64
	SignatureTTL time.Duration

	// Backends
	LedgerBackend string
	PoolStore     string

	// Postgres settings
	PostgresDSN string

	// Redis settings
	RedisAddr string

	// ClickHouse settings; an empty address disables swap history
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// Solana RPC settings, used for read-only inspection
	RPCUrl string

	// HTTP client settings
	HTTPTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	// Logging
	LogLevel  string
	LogFormat string
	LogFile   string

	// Ledger retry settings
	LedgerMaxRetries   int
	LedgerRetryBackoff time.Duration
}

func Load() *Config {
	return &Config{
		ProgramID: getEnv("PROGRAM_ID", constants.DefaultProgramID),

		// API
		APIAddr:      getEnv("API_ADDR", ":8080"),
		APIKey:       getEnv("API_KEY", ""),
		DevMode:      getBoolEnv("DEV_MODE", false),
		RateLimit:    getFloatEnv("RATE_LIMIT", 20),
		SignatureTTL: getDurationEnv("SIGNATURE_TTL", constants.DefaultSignatureTTL),

		// Backends
		LedgerBackend: strings.ToLower(getEnv("LEDGER_BACKEND", BackendMemory)),
		PoolStore:     strings.ToLower(getEnv("POOL_STORE", BackendMemory)),

		// Postgres
		PostgresDSN: getEnv("POSTGRES_DSN", ""),

		// Redis
		RedisAddr: getEnv("REDIS_ADDR", ""),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "solana"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// RPC
		RPCUrl: getEnv("SOLANA_RPC_URL", ""),

		// HTTP
		HTTPTimeout:  getDurationEnv("HTTP_TIMEOUT", 30*time.Second),
		MaxRetries:   getIntEnv("MAX_RETRIES", 5),
		RetryBackoff: getDurationEnv("RETRY_BACKOFF", 2*time.Second),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
		LogFile:   getEnv("LOG_FILE", ""),

		// Ledger
		LedgerMaxRetries:   getIntEnv("LEDGER_MAX_RETRIES", constants.LedgerMaxRetries),
		LedgerRetryBackoff: getDurationEnv("LEDGER_RETRY_BACKOFF", constants.LedgerRetryBackoff),
	}
}

// Validate reports the first setting that cannot be used to start the API.
func (c *Config) Validate() error {
	if _, err := c.Program(); err != nil {
		return err
	}

	switch c.LedgerBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for LEDGER_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("unknown LEDGER_BACKEND %q", c.LedgerBackend)
	}

	switch c.PoolStore {
	case BackendMemory:
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for POOL_STORE=redis")
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for POOL_STORE=postgres")
		}
	default:
		return fmt.Errorf("unknown POOL_STORE %q", c.PoolStore)
	}

	// A memory ledger forgets every balance on restart while a durable pool
	// store would keep records pointing at reserves that no longer exist.
	if c.LedgerBackend == BackendMemory && c.PoolStore != BackendMemory && !c.DevMode {
		return fmt.Errorf("POOL_STORE=%s with an in-memory ledger requires DEV_MODE", c.PoolStore)
	}

	if c.SignatureTTL <= 0 {
		return fmt.Errorf("SIGNATURE_TTL must be positive")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("RATE_LIMIT must not be negative")
	}
	if c.MaxRetries < 0 || c.LedgerMaxRetries < 0 {
		return fmt.Errorf("retry counts must not be negative")
	}
	return nil
}

// Program parses ProgramID.
func (c *Config) Program() (solana.PublicKey, error) {
	id, err := solana.PublicKeyFromBase58(c.ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid PROGRAM_ID %q: %w", c.ProgramID, err)
	}
	if id.IsZero() {
		return solana.PublicKey{}, fmt.Errorf("PROGRAM_ID must not be the zero key")
	}
	return id, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
