package swapengine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/authority"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/ledger"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/ledger/memory"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/observability"
	storemem "github.com/aman-zulfiqar/solana-pool-swap/internal/storage/memory"
	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testProgramID = solana.MustPublicKeyFromBase58("GorTDpuWrsRf3THg5EpS2i3PLuncQZEhYRBi8ZBKSDo5")

func randomKey(t *testing.T) solana.PublicKey {
	t.Helper()
	k, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return k.PublicKey()
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fixture is a ledger with two mints, a funded pool and a caller holding
// token A only.
type fixture struct {
	ctx     context.Context
	ledger  *memory.Ledger
	engine  *Engine
	cache   *storemem.SwapCache
	metrics *observability.Metrics

	mintA, mintB solana.PublicKey
	admin        solana.PublicKey
	caller       solana.PublicKey
	userA, userB solana.PublicKey

	pool *PoolInfo
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithLedger(t, memory.New(), nil)
}

func newFixtureWithLedger(t *testing.T, mem *memory.Ledger, l ledger.Ledger) *fixture {
	t.Helper()
	if l == nil {
		l = mem
	}
	f := &fixture{
		ctx:     context.Background(),
		ledger:  mem,
		cache:   storemem.NewSwapCache(),
		metrics: observability.NewMetrics("test", prometheus.NewRegistry()),
		mintA:   randomKey(t),
		mintB:   randomKey(t),
		admin:   randomKey(t),
		caller:  randomKey(t),
	}

	e, err := NewEngine(DefaultEngineConfig(testProgramID), Dependencies{
		Ledger:  l,
		Pools:   storemem.NewPoolStore(),
		Cache:   f.cache,
		Metrics: f.metrics,
		Logger:  quietLogger(),
	})
	require.NoError(t, err)
	f.engine = e

	f.pool = f.initPool(t, []byte("usdc-usdt"), 1000, 1000)
	f.userA = f.account(t, f.mintA, f.caller, 100)
	f.userB = f.account(t, f.mintB, f.caller, 0)
	return f
}

func (f *fixture) account(t *testing.T, mint, owner solana.PublicKey, amount uint64) solana.PublicKey {
	t.Helper()
	addr := randomKey(t)
	require.NoError(t, f.ledger.CreateAccount(f.ctx, ledger.TokenAccount{
		Address: addr, Mint: mint, Owner: owner, Amount: amount,
	}))
	return addr
}

func (f *fixture) initPool(t *testing.T, seed []byte, a, b uint64) *PoolInfo {
	t.Helper()
	auth, err := authority.Derive(testProgramID, seed)
	require.NoError(t, err)

	info, err := f.engine.Initialize(f.ctx, InitializeRequest{
		Seed:          seed,
		TokenAMint:    f.mintA,
		TokenBMint:    f.mintB,
		TokenAReserve: f.account(t, f.mintA, auth.Address, a),
		TokenBReserve: f.account(t, f.mintB, auth.Address, b),
		Creator:       f.admin,
	})
	require.NoError(t, err)
	return info
}

func (f *fixture) balance(t *testing.T, addr solana.PublicKey) uint64 {
	t.Helper()
	a, err := f.ledger.Account(f.ctx, addr)
	require.NoError(t, err)
	return a.Amount
}

func (f *fixture) request(amount uint64) SwapRequest {
	return SwapRequest{
		Pool:   f.pool.Address,
		Caller: f.caller,
		Accounts: SwapAccounts{
			UserTokenA: f.userA,
			UserTokenB: f.userB,
		},
		Amount: amount,
	}
}

// assertBalances checks caller A/B and pool A/B in that order.
func (f *fixture) assertBalances(t *testing.T, userA, userB, poolA, poolB uint64) {
	t.Helper()
	assert.Equal(t, userA, f.balance(t, f.userA), "caller token A")
	assert.Equal(t, userB, f.balance(t, f.userB), "caller token B")
	assert.Equal(t, poolA, f.balance(t, f.pool.Record.TokenAReserve), "pool token A")
	assert.Equal(t, poolB, f.balance(t, f.pool.Record.TokenBReserve), "pool token B")
}

func TestNewEngine_ClaimsProgramOnce(t *testing.T) {
	l := memory.New()
	deps := Dependencies{Ledger: l, Pools: storemem.NewPoolStore(), Logger: quietLogger(),
		Metrics: observability.NewMetrics("test", prometheus.NewRegistry())}

	_, err := NewEngine(DefaultEngineConfig(testProgramID), deps)
	require.NoError(t, err)

	_, err = NewEngine(DefaultEngineConfig(testProgramID), deps)
	assert.ErrorIs(t, err, ledger.ErrProgramClaimed)

	_, err = NewEngine(DefaultEngineConfig(solana.PublicKey{}), deps)
	assert.Error(t, err)
}

func TestInitialize_StoresRecord(t *testing.T) {
	f := newFixture(t)

	want, err := authority.Derive(testProgramID, []byte("usdc-usdt"))
	require.NoError(t, err)
	addr, err := authority.PoolAddress(testProgramID, []byte("usdc-usdt"))
	require.NoError(t, err)

	assert.Equal(t, addr, f.pool.Address)
	assert.Equal(t, want.Address, f.pool.Authority)
	assert.Equal(t, want.Bump, f.pool.Bump)

	got, err := f.engine.Pool(f.ctx, f.pool.Address)
	require.NoError(t, err)
	assert.Equal(t, f.mintA, got.Record.TokenAMint)
	assert.Equal(t, f.mintB, got.Record.TokenBMint)
	assert.Equal(t, f.admin, got.Record.AdminAuthority)
	assert.Equal(t, []byte("usdc-usdt"), got.Record.Seed)
}

func TestInitialize_Failures(t *testing.T) {
	f := newFixture(t)
	seed := []byte("second")
	auth, err := authority.Derive(testProgramID, seed)
	require.NoError(t, err)
	stranger := randomKey(t)

	good := func() InitializeRequest {
		return InitializeRequest{
			Seed:          seed,
			TokenAMint:    f.mintA,
			TokenBMint:    f.mintB,
			TokenAReserve: f.account(t, f.mintA, auth.Address, 0),
			TokenBReserve: f.account(t, f.mintB, auth.Address, 0),
			Creator:       f.admin,
		}
	}

	tests := []struct {
		name   string
		mutate func(r *InitializeRequest)
		want   error
	}{
		{"reserve owned by someone else", func(r *InitializeRequest) {
			r.TokenAReserve = f.account(t, f.mintA, stranger, 0)
		}, ErrInvalidOwner},
		{"reserve owned by another pool's authority", func(r *InitializeRequest) {
			r.TokenBReserve = f.account(t, f.mintB, f.pool.Authority, 0)
		}, ErrInvalidOwner},
		{"reserve holds the wrong mint", func(r *InitializeRequest) {
			r.TokenAReserve = f.account(t, f.mintB, auth.Address, 0)
		}, ErrInvalidMint},
		{"same mint twice", func(r *InitializeRequest) {
			r.TokenBMint = f.mintA
		}, ErrInvalidMint},
		{"missing reserve", func(r *InitializeRequest) {
			r.TokenBReserve = randomKey(t)
		}, ErrInvalidAccount},
		{"reserve reused", func(r *InitializeRequest) {
			r.TokenBReserve = r.TokenAReserve
		}, ErrInvalidAccount},
		{"empty seed", func(r *InitializeRequest) {
			r.Seed = nil
		}, ErrInvalidSeed},
		{"seed too long", func(r *InitializeRequest) {
			r.Seed = make([]byte, 33)
		}, ErrInvalidSeed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := good()
			tt.mutate(&req)

			_, err := f.engine.Initialize(f.ctx, req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			_, err = f.engine.Pool(f.ctx, f.mustPoolAddress(t, seed))
			assert.ErrorIs(t, err, ErrPoolNotFound, "no record after failed initialize")
		})
	}

	// the valid request still succeeds afterwards
	_, err = f.engine.Initialize(f.ctx, good())
	require.NoError(t, err)
}

func (f *fixture) mustPoolAddress(t *testing.T, seed []byte) solana.PublicKey {
	t.Helper()
	addr, err := f.engine.PoolAddress(seed)
	require.NoError(t, err)
	return addr
}

func TestInitialize_SameSeedTwice(t *testing.T) {
	f := newFixture(t)
	auth, err := authority.Derive(testProgramID, []byte("usdc-usdt"))
	require.NoError(t, err)

	_, err = f.engine.Initialize(f.ctx, InitializeRequest{
		Seed:          []byte("usdc-usdt"),
		TokenAMint:    f.mintA,
		TokenBMint:    f.mintB,
		TokenAReserve: f.account(t, f.mintA, auth.Address, 0),
		TokenBReserve: f.account(t, f.mintB, auth.Address, 0),
		Creator:       randomKey(t),
	})
	assert.ErrorIs(t, err, ErrPoolExists)

	got, err := f.engine.Pool(f.ctx, f.pool.Address)
	require.NoError(t, err)
	assert.Equal(t, f.admin, got.Record.AdminAuthority, "existing record untouched")
}

func TestSwapAToB_MovesOneToOne(t *testing.T) {
	f := newFixture(t)

	res, err := f.engine.SwapAToB(f.ctx, f.request(40))
	require.NoError(t, err)

	f.assertBalances(t, 60, 40, 1040, 960)
	assert.Equal(t, AToB, res.Direction)
	assert.Equal(t, uint64(40), res.Amount)
	assert.Equal(t, f.mintA, res.MintIn)
	assert.Equal(t, f.mintB, res.MintOut)
	assert.Equal(t, uint64(60), res.CallerIn)
	assert.Equal(t, uint64(40), res.CallerOut)
	assert.Equal(t, uint64(1040), res.ReserveIn)
	assert.Equal(t, uint64(960), res.ReserveOut)
	assert.NotEmpty(t, res.ID)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SwapsTotal.WithLabelValues("a_to_b", "ok")))
	assert.Equal(t, 40.0, testutil.ToFloat64(f.metrics.SwapVolume.WithLabelValues("a_to_b")))
}

func TestSwap_RoundTrip(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.SwapAToB(f.ctx, f.request(40))
	require.NoError(t, err)
	_, err = f.engine.SwapBToA(f.ctx, f.request(40))
	require.NoError(t, err)

	f.assertBalances(t, 100, 0, 1000, 1000)
}

func TestSwap_InsufficientCallerFunds(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.SwapAToB(f.ctx, f.request(5000))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, KindInsufficientFunds, Kind(err))
	f.assertBalances(t, 100, 0, 1000, 1000)

	_, err = f.engine.SwapBToA(f.ctx, f.request(1))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	f.assertBalances(t, 100, 0, 1000, 1000)
}

func TestSwap_InsufficientPoolReserve(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ledger.MintTo(f.ctx, f.userA, 2000))

	_, err := f.engine.SwapAToB(f.ctx, f.request(1500))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	f.assertBalances(t, 2100, 0, 1000, 1000)

	// draining the reserve exactly is allowed
	_, err = f.engine.SwapAToB(f.ctx, f.request(1000))
	require.NoError(t, err)
	f.assertBalances(t, 1100, 1000, 2000, 0)
}

func TestSwap_ZeroAmount(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.SwapAToB(f.ctx, f.request(0))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	// amount is checked before anything else, including the pool lookup
	req := f.request(0)
	req.Pool = randomKey(t)
	_, err = f.engine.SwapBToA(f.ctx, req)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	f.assertBalances(t, 100, 0, 1000, 1000)
}

func TestSwap_UnknownPool(t *testing.T) {
	f := newFixture(t)
	req := f.request(10)
	req.Pool = randomKey(t)

	_, err := f.engine.SwapAToB(f.ctx, req)
	assert.ErrorIs(t, err, ErrPoolNotFound)
}

func TestSwap_AccountValidation(t *testing.T) {
	f := newFixture(t)
	stranger := randomKey(t)
	otherMint := randomKey(t)

	tests := []struct {
		name   string
		mutate func(r *SwapRequest)
		want   error
	}{
		{"caller A account owned by someone else", func(r *SwapRequest) {
			r.Accounts.UserTokenA = f.account(t, f.mintA, stranger, 100)
		}, ErrInvalidOwner},
		{"caller B account owned by someone else", func(r *SwapRequest) {
			r.Accounts.UserTokenB = f.account(t, f.mintB, stranger, 0)
		}, ErrInvalidOwner},
		{"caller B account holds token A", func(r *SwapRequest) {
			r.Accounts.UserTokenB = f.account(t, f.mintA, f.caller, 0)
		}, ErrInvalidMint},
		{"caller B account holds a foreign mint", func(r *SwapRequest) {
			r.Accounts.UserTokenB = f.account(t, otherMint, f.caller, 0)
		}, ErrInvalidMint},
		{"substitute pool reserve", func(r *SwapRequest) {
			r.Accounts.PoolTokenB = f.account(t, f.mintB, f.pool.Authority, 1000)
		}, ErrInvalidAccount},
		{"pool reserves swapped", func(r *SwapRequest) {
			r.Accounts.PoolTokenA = f.pool.Record.TokenBReserve
			r.Accounts.PoolTokenB = f.pool.Record.TokenAReserve
		}, ErrInvalidMint},
		{"caller passes the pool reserve as destination", func(r *SwapRequest) {
			r.Accounts.UserTokenB = f.pool.Record.TokenBReserve
		}, ErrInvalidAccount},
		{"missing caller account", func(r *SwapRequest) {
			r.Accounts.UserTokenB = randomKey(t)
		}, ErrInvalidAccount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.request(40)
			tt.mutate(&req)

			_, err := f.engine.SwapAToB(f.ctx, req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			f.assertBalances(t, 100, 0, 1000, 1000)
		})
	}
}

func TestSwap_IndependentPoolsSameMints(t *testing.T) {
	f := newFixture(t)
	second := f.initPool(t, []byte("usdc-usdt-2"), 500, 500)

	assert.NotEqual(t, f.pool.Address, second.Address)
	assert.NotEqual(t, f.pool.Authority, second.Authority)

	req := f.request(40)
	req.Pool = second.Address
	_, err := f.engine.SwapAToB(f.ctx, req)
	require.NoError(t, err)

	assert.Equal(t, uint64(540), f.balance(t, second.Record.TokenAReserve))
	assert.Equal(t, uint64(460), f.balance(t, second.Record.TokenBReserve))
	f.assertBalances(t, 60, 40, 1000, 1000)

	// reserves of one pool cannot be used with the other
	req = f.request(10)
	req.Pool = second.Address
	req.Accounts.PoolTokenA = f.pool.Record.TokenAReserve
	_, err = f.engine.SwapAToB(f.ctx, req)
	assert.ErrorIs(t, err, ErrInvalidAccount)

	pools, err := f.engine.Pools(f.ctx)
	require.NoError(t, err)
	assert.Len(t, pools, 2)
}

func TestPools_SortedByAddress(t *testing.T) {
	f := newFixture(t)
	for _, seed := range []string{"usdc-dai", "usdt-dai", "usdc-pyusd", "dai-pyusd"} {
		f.initPool(t, []byte(seed), 100, 100)
	}

	first, err := f.engine.Pools(f.ctx)
	require.NoError(t, err)
	require.Len(t, first, 5)
	for i := 1; i < len(first); i++ {
		assert.Negative(t, bytes.Compare(first[i-1].Address[:], first[i].Address[:]),
			"pool %d out of order", i)
	}

	second, err := f.engine.Pools(f.ctx)
	require.NoError(t, err)
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Address, second[i].Address)
	}
}

// failingLedger makes the second transfer of every unit fail.
type failingLedger struct {
	*memory.Ledger
}

func (l failingLedger) Atomic(ctx context.Context, fn func(ledger.Tx) error) error {
	return l.Ledger.Atomic(ctx, func(tx ledger.Tx) error {
		return fn(&failingTx{Tx: tx})
	})
}

type failingTx struct {
	ledger.Tx
	transfers int
}

var errHostDown = errors.New("host unavailable")

func (t *failingTx) Transfer(ctx context.Context, from, to solana.PublicKey, signer ledger.Signer, amount uint64) error {
	t.transfers++
	if t.transfers == 2 {
		return errHostDown
	}
	return t.Tx.Transfer(ctx, from, to, signer, amount)
}

func TestSwap_SecondLegFailureRollsBack(t *testing.T) {
	mem := memory.New()
	f := newFixtureWithLedger(t, mem, failingLedger{mem})

	_, err := f.engine.SwapAToB(f.ctx, f.request(40))
	require.Error(t, err)
	assert.ErrorIs(t, err, errHostDown)
	assert.Equal(t, KindInternal, Kind(err))

	f.assertBalances(t, 100, 0, 1000, 1000)
}

func TestSwap_ConcurrentCallersConserveSupply(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ledger.MintTo(f.ctx, f.userA, 900))

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, _ = f.engine.SwapAToB(f.ctx, f.request(30))
			} else {
				_, _ = f.engine.SwapBToA(f.ctx, f.request(10))
			}
		}(i)
	}
	wg.Wait()

	totalA := f.balance(t, f.userA) + f.balance(t, f.pool.Record.TokenAReserve)
	totalB := f.balance(t, f.userB) + f.balance(t, f.pool.Record.TokenBReserve)
	assert.Equal(t, uint64(2000), totalA)
	assert.Equal(t, uint64(1000), totalB)
}

func TestSwap_PublishesEvent(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(f.ctx)
	defer cancel()

	ch, err := f.cache.SubscribeSwaps(ctx, f.pool.Address.String())
	require.NoError(t, err)

	res, err := f.engine.SwapAToB(f.ctx, f.request(25))
	require.NoError(t, err)

	ev := <-ch
	assert.Equal(t, res.ID, ev.ID)
	assert.Equal(t, "a_to_b", ev.Direction)
	assert.Equal(t, uint64(25), ev.AmountIn)
	assert.Equal(t, uint64(25), ev.AmountOut)

	recent, err := f.cache.GetRecentSwaps(f.ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, res.ID, recent[0].ID)

	// rejected swaps publish nothing
	_, err = f.engine.SwapAToB(f.ctx, f.request(0))
	require.Error(t, err)
	recent, err = f.cache.GetRecentSwaps(f.ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestInspect(t *testing.T) {
	f := newFixture(t)

	insp, err := f.engine.Inspect(f.ctx, f.pool.Address, nil)
	require.NoError(t, err)
	assert.True(t, insp.Healthy)
	assert.Empty(t, insp.Problems)
	require.NotNil(t, insp.ReserveA)
	assert.Equal(t, uint64(1000), insp.ReserveA.Amount)

	// a reader that no longer sees reserve B
	view := memory.New()
	require.NoError(t, view.CreateAccount(f.ctx, *insp.ReserveA))
	insp, err = f.engine.Inspect(f.ctx, f.pool.Address, view)
	require.NoError(t, err)
	assert.False(t, insp.Healthy)
	assert.Len(t, insp.Problems, 1)
	assert.Nil(t, insp.ReserveB)

	_, err = f.engine.Inspect(f.ctx, randomKey(t), nil)
	assert.ErrorIs(t, err, ErrPoolNotFound)
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("a-to-b")
	require.NoError(t, err)
	assert.Equal(t, AToB, d)

	d, err = ParseDirection("b_to_a")
	require.NoError(t, err)
	assert.Equal(t, BToA, d)

	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}

func TestKind(t *testing.T) {
	assert.Equal(t, ErrorKind(""), Kind(nil))
	assert.Equal(t, KindInternal, Kind(errors.New("boom")))
	assert.Equal(t, KindInvalidOwner, Kind(legError("deposit", ledger.ErrUnauthorized)))
	assert.Equal(t, KindInsufficientFunds, Kind(legError("withdraw", ledger.ErrInsufficientBalance)))
}
