// Package memory provides in-process implementations of the storage
// interfaces for single-node deployments and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/pool"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/storage"
	"github.com/gagliardetto/solana-go"
)

// PoolStore keeps encoded pool records in a map.
type PoolStore struct {
	mu    sync.RWMutex
	pools map[solana.PublicKey][]byte
}

var _ storage.PoolStore = (*PoolStore)(nil)

// NewPoolStore creates an empty PoolStore.
func NewPoolStore() *PoolStore {
	return &PoolStore{pools: make(map[solana.PublicKey][]byte)}
}

// Create implements storage.PoolStore.
func (s *PoolStore) Create(ctx context.Context, addr solana.PublicKey, rec *pool.Record) error {
	data, err := rec.Encode()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pools[addr]; ok {
		return fmt.Errorf("%w: %s", storage.ErrPoolExists, addr)
	}
	s.pools[addr] = data
	return nil
}

// Get implements storage.PoolStore.
func (s *PoolStore) Get(ctx context.Context, addr solana.PublicKey) (*pool.Record, error) {
	s.mu.RLock()
	data, ok := s.pools[addr]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrPoolNotFound, addr)
	}
	return pool.Decode(data)
}

// List implements storage.PoolStore.
func (s *PoolStore) List(ctx context.Context) (map[solana.PublicKey]*pool.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[solana.PublicKey]*pool.Record, len(s.pools))
	for addr, data := range s.pools {
		rec, err := pool.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("decode pool %s: %w", addr, err)
		}
		out[addr] = rec
	}
	return out, nil
}
