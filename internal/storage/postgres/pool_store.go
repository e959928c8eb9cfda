package postgres

import (
	"context"
	"fmt"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/pool"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/storage"
	"github.com/gagliardetto/solana-go"
)

// PoolStore implements storage.PoolStore using PostgreSQL. The encoded
// record is the source of truth; the key columns exist for querying.
type PoolStore struct {
	pool *Pool
}

// NewPoolStore creates a new PoolStore.
func NewPoolStore(pool *Pool) *PoolStore {
	return &PoolStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PoolStore = (*PoolStore)(nil)

// Create inserts a new pool. Returns ErrPoolExists if the address is taken.
func (s *PoolStore) Create(ctx context.Context, addr solana.PublicKey, rec *pool.Record) error {
	data, err := rec.Encode()
	if err != nil {
		return err
	}

	query := `
		INSERT INTO pools (
			address, seed, token_a_mint, token_b_mint, token_a_reserve, token_b_reserve, admin_authority, data
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = s.pool.Exec(ctx, query,
		addr.String(),
		rec.Seed,
		rec.TokenAMint.String(),
		rec.TokenBMint.String(),
		rec.TokenAReserve.String(),
		rec.TokenBReserve.String(),
		rec.AdminAuthority.String(),
		data,
	)
	if err != nil {
		if IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", storage.ErrPoolExists, addr)
		}
		return fmt.Errorf("insert pool: %w", err)
	}
	return nil
}

// Get returns the pool at addr.
func (s *PoolStore) Get(ctx context.Context, addr solana.PublicKey) (*pool.Record, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM pools WHERE address = $1`, addr.String()).Scan(&data)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", storage.ErrPoolNotFound, addr)
		}
		return nil, fmt.Errorf("get pool: %w", err)
	}
	return pool.Decode(data)
}

// List returns every pool ordered by creation time.
func (s *PoolStore) List(ctx context.Context) (map[solana.PublicKey]*pool.Record, error) {
	rows, err := s.pool.Query(ctx, `SELECT address, data FROM pools ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}
	defer rows.Close()

	out := make(map[solana.PublicKey]*pool.Record)
	for rows.Next() {
		var (
			address string
			data    []byte
		)
		if err := rows.Scan(&address, &data); err != nil {
			return nil, fmt.Errorf("scan pool: %w", err)
		}
		addr, err := solana.PublicKeyFromBase58(address)
		if err != nil {
			return nil, fmt.Errorf("parse pool address %q: %w", address, err)
		}
		rec, err := pool.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("decode pool %s: %w", address, err)
		}
		out[addr] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pools: %w", err)
	}
	return out, nil
}
