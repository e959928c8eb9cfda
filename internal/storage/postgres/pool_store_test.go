package postgres

import (
	"context"
	"sync"
	"testing"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/pool"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/storage"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomKey(t *testing.T) solana.PublicKey {
	t.Helper()
	k, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return k.PublicKey()
}

func testRecord(t *testing.T, seed string) *pool.Record {
	return &pool.Record{
		TokenAMint:     randomKey(t),
		TokenBMint:     randomKey(t),
		TokenAReserve:  randomKey(t),
		TokenBReserve:  randomKey(t),
		AdminAuthority: randomKey(t),
		Seed:           []byte(seed),
	}
}

func TestPoolStore(t *testing.T) {
	db := setupTestDB(t)
	store := NewPoolStore(db)
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		addr := randomKey(t)
		rec := testRecord(t, "pool-1")
		require.NoError(t, store.Create(ctx, addr, rec))

		got, err := store.Get(ctx, addr)
		require.NoError(t, err)
		assert.Equal(t, rec, got)
	})

	t.Run("duplicate address", func(t *testing.T) {
		addr := randomKey(t)
		require.NoError(t, store.Create(ctx, addr, testRecord(t, "pool-2")))
		err := store.Create(ctx, addr, testRecord(t, "pool-2"))
		assert.ErrorIs(t, err, storage.ErrPoolExists)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := store.Get(ctx, randomKey(t))
		assert.ErrorIs(t, err, storage.ErrPoolNotFound)
	})

	t.Run("records are immutable", func(t *testing.T) {
		addr := randomKey(t)
		require.NoError(t, store.Create(ctx, addr, testRecord(t, "pool-3")))

		_, err := db.Exec(ctx, `UPDATE pools SET admin_authority = 'x' WHERE address = $1`, addr.String())
		assert.Error(t, err)
		_, err = db.Exec(ctx, `DELETE FROM pools WHERE address = $1`, addr.String())
		assert.Error(t, err)
	})

	t.Run("concurrent create has one winner", func(t *testing.T) {
		addr := randomKey(t)
		var (
			wg     sync.WaitGroup
			mu     sync.Mutex
			winner int
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := store.Create(ctx, addr, testRecord(t, "race")); err == nil {
					mu.Lock()
					winner++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, winner)
	})

	t.Run("list", func(t *testing.T) {
		all, err := store.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 4)
	})
}
