package constants

import "time"

// PDA seed labels
const (
	AuthoritySeedLabel = "pool_authority"
	PoolSeedLabel      = "pool"
)

// DefaultProgramID is the program identity used when PROGRAM_ID is unset.
const DefaultProgramID = "GorTDpuWrsRf3THg5EpS2i3PLuncQZEhYRBi8ZBKSDo5"

// Redis keys
const (
	RedisKeyRecentSwaps = "swaps:recent"
	RedisKeyPoolIndex   = "pools:index"
	RedisKeyPoolPrefix  = "pools:"
	RedisKeyNoncePrefix = "nonce:"
)

// Redis Pub/Sub channels
const (
	PubSubChannelSwaps      = "swaps:all"
	PubSubChannelPoolPrefix = "swaps:pool:"
)

// Limits
const (
	MaxSeedLen      = 32
	MaxRecentSwaps  = 100
	MaxSwapsPerPage = 200
)

// Timeouts
const (
	DefaultSignatureTTL = 2 * time.Minute
	LedgerRetryBackoff  = 25 * time.Millisecond
	LedgerMaxRetries    = 5
)
