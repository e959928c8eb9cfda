package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/models"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/pool"
	"github.com/gagliardetto/solana-go"
)

var (
	// ErrPoolExists is returned when a pool record already exists at an address.
	ErrPoolExists = errors.New("pool already exists")
	// ErrPoolNotFound is returned when no pool record exists at an address.
	ErrPoolNotFound = errors.New("pool not found")
)

// PoolStore persists pool records. Records are created once and never
// updated or removed.
type PoolStore interface {
	// Create stores rec at addr, failing with ErrPoolExists if one is present.
	Create(ctx context.Context, addr solana.PublicKey, rec *pool.Record) error

	// Get returns the record at addr or ErrPoolNotFound.
	Get(ctx context.Context, addr solana.PublicKey) (*pool.Record, error)

	// List returns every stored pool keyed by address.
	List(ctx context.Context) (map[solana.PublicKey]*pool.Record, error)
}

// SwapCache defines the interface for caching and fanning out swap events
type SwapCache interface {
	// AddRecentSwap adds a swap to the recent swaps list
	AddRecentSwap(ctx context.Context, swap *models.SwapEvent) error

	// GetRecentSwaps retrieves the most recent swaps
	GetRecentSwaps(ctx context.Context, limit int64) ([]*models.SwapEvent, error)

	// PublishSwap publishes a swap event to subscribers
	PublishSwap(ctx context.Context, swap *models.SwapEvent) error

	// SubscribeSwaps subscribes to real-time swap events; pool filters to one
	// pool when non-empty. The channel closes when ctx is done.
	SubscribeSwaps(ctx context.Context, pool string) (<-chan *models.SwapEvent, error)

	// Ping checks if the cache is reachable
	Ping(ctx context.Context) error

	io.Closer
}

// SwapStore defines the interface for persistent swap history
type SwapStore interface {
	// InsertSwap inserts a swap event into the store
	InsertSwap(ctx context.Context, swap *models.SwapEvent) error

	// PoolVolume aggregates stored swaps for one pool
	PoolVolume(ctx context.Context, pool string) (*models.PoolVolume, error)

	// Ping checks if the store is reachable
	Ping(ctx context.Context) error

	io.Closer
}

// ReplayGuard remembers signed request nonces until they expire.
type ReplayGuard interface {
	// Remember records key and reports false if it was already recorded.
	Remember(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
