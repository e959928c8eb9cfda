package postgres

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/ledger"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/storage/migrations"
	pgstore "github.com/aman-zulfiqar/solana-pool-swap/internal/storage/postgres"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var programID = solana.MustPublicKeyFromBase58("GorTDpuWrsRf3THg5EpS2i3PLuncQZEhYRBi8ZBKSDo5")

func setupLedger(t *testing.T) *Ledger {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgstore.NewPool(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, migrations.RunPostgresMigrations(ctx, pool))

	t.Cleanup(func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return New(pool, Config{})
}

func randomKey(t *testing.T) solana.PublicKey {
	t.Helper()
	k, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return k.PublicKey()
}

func newAccount(t *testing.T, l *Ledger, mint, owner solana.PublicKey, amount uint64) solana.PublicKey {
	t.Helper()
	addr := randomKey(t)
	require.NoError(t, l.CreateAccount(context.Background(), ledger.TokenAccount{
		Address: addr, Mint: mint, Owner: owner, Amount: amount,
	}))
	return addr
}

func amountOf(t *testing.T, l *Ledger, addr solana.PublicKey) uint64 {
	t.Helper()
	a, err := l.Account(context.Background(), addr)
	require.NoError(t, err)
	return a.Amount
}

func TestLedger(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()

	t.Run("create and read", func(t *testing.T) {
		mint, owner := randomKey(t), randomKey(t)
		addr := newAccount(t, l, mint, owner, 7)

		a, err := l.Account(ctx, addr)
		require.NoError(t, err)
		assert.Equal(t, mint, a.Mint)
		assert.Equal(t, owner, a.Owner)
		assert.Equal(t, uint64(7), a.Amount)

		err = l.CreateAccount(ctx, ledger.TokenAccount{Address: addr, Mint: mint, Owner: owner})
		assert.ErrorIs(t, err, ledger.ErrAccountExists)

		_, err = l.Account(ctx, randomKey(t))
		assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
	})

	t.Run("mint to", func(t *testing.T) {
		addr := newAccount(t, l, randomKey(t), randomKey(t), 0)
		require.NoError(t, l.MintTo(ctx, addr, 1_000_000_000))
		assert.Equal(t, uint64(1_000_000_000), amountOf(t, l, addr))

		assert.ErrorIs(t, l.MintTo(ctx, addr, ledger.MaxAmount), ledger.ErrBalanceOverflow)
		assert.ErrorIs(t, l.MintTo(ctx, randomKey(t), 1), ledger.ErrAccountNotFound)
	})

	t.Run("transfer and rollback", func(t *testing.T) {
		mint, alice, bob := randomKey(t), randomKey(t), randomKey(t)
		src := newAccount(t, l, mint, alice, 100)
		dst := newAccount(t, l, mint, bob, 0)

		require.NoError(t, l.Atomic(ctx, func(tx ledger.Tx) error {
			return tx.Transfer(ctx, src, dst, ledger.User(alice), 40)
		}))
		assert.Equal(t, uint64(60), amountOf(t, l, src))
		assert.Equal(t, uint64(40), amountOf(t, l, dst))

		boom := errors.New("boom")
		err := l.Atomic(ctx, func(tx ledger.Tx) error {
			if err := tx.Transfer(ctx, src, dst, ledger.User(alice), 10); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, uint64(60), amountOf(t, l, src))

		err = l.Atomic(ctx, func(tx ledger.Tx) error {
			return tx.Transfer(ctx, src, dst, ledger.User(bob), 1)
		})
		assert.ErrorIs(t, err, ledger.ErrUnauthorized)
	})

	t.Run("program signer", func(t *testing.T) {
		prog, err := l.ClaimProgram(programID)
		require.NoError(t, err)

		seeds := [][]byte{[]byte("pool_authority"), []byte("pg")}
		pda, bump, err := solana.FindProgramAddress(seeds, programID)
		require.NoError(t, err)

		mint := randomKey(t)
		vault := newAccount(t, l, mint, pda, 10)
		dst := newAccount(t, l, mint, randomKey(t), 0)

		require.NoError(t, l.Atomic(ctx, func(tx ledger.Tx) error {
			return tx.Transfer(ctx, vault, dst, prog.Sign(seeds[0], seeds[1], []byte{bump}), 10)
		}))
		assert.Equal(t, uint64(0), amountOf(t, l, vault))
		assert.Equal(t, uint64(10), amountOf(t, l, dst))
	})

	t.Run("concurrent opposite transfers never overdraw", func(t *testing.T) {
		mint, alice, bob := randomKey(t), randomKey(t), randomKey(t)
		a := newAccount(t, l, mint, alice, 50)
		b := newAccount(t, l, mint, bob, 50)

		var wg sync.WaitGroup
		var moved atomic.Int64
		for i := 0; i < 20; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				if l.Atomic(ctx, func(tx ledger.Tx) error {
					return tx.Transfer(ctx, a, b, ledger.User(alice), 5)
				}) == nil {
					moved.Add(-5)
				}
			}()
			go func() {
				defer wg.Done()
				if l.Atomic(ctx, func(tx ledger.Tx) error {
					return tx.Transfer(ctx, b, a, ledger.User(bob), 5)
				}) == nil {
					moved.Add(5)
				}
			}()
		}
		wg.Wait()

		balA, balB := amountOf(t, l, a), amountOf(t, l, b)
		assert.Equal(t, uint64(100), balA+balB)
		assert.Equal(t, int64(50)+moved.Load(), int64(balA))
	})
}
