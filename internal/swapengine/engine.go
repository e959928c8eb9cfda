package swapengine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/authority"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/ledger"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/models"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/observability"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/pool"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/storage"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// Engine is the main orchestrator for pool operations
type Engine struct {
	programID solana.PublicKey
	ledger    ledger.Ledger
	pools     storage.PoolStore
	cache     storage.SwapCache
	history   storage.SwapStore
	executor  *Executor
	metrics   *observability.Metrics
	logger    *logrus.Logger

	eventTimeout time.Duration
}

// EngineConfig holds configuration for the swap engine
type EngineConfig struct {
	// ProgramID is the identity all pool addresses are derived from.
	ProgramID solana.PublicKey

	// EventTimeout bounds best-effort event delivery after a swap.
	EventTimeout time.Duration
}

// DefaultEngineConfig returns sensible defaults
func DefaultEngineConfig(programID solana.PublicKey) EngineConfig {
	return EngineConfig{
		ProgramID:    programID,
		EventTimeout: 3 * time.Second,
	}
}

// Dependencies are the collaborators an Engine runs against. Cache,
// History, Metrics and Logger are optional.
type Dependencies struct {
	Ledger  ledger.Ledger
	Pools   storage.PoolStore
	Cache   storage.SwapCache
	History storage.SwapStore
	Metrics *observability.Metrics
	Logger  *logrus.Logger
}

// NewEngine creates an engine and claims the program capability on the
// ledger. Only one engine per program id can run against a ledger.
func NewEngine(cfg EngineConfig, deps Dependencies) (*Engine, error) {
	if cfg.ProgramID.IsZero() {
		return nil, fmt.Errorf("program id is required")
	}
	if deps.Ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if deps.Pools == nil {
		return nil, fmt.Errorf("pool store is required")
	}
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}
	if deps.Metrics == nil {
		deps.Metrics = observability.DefaultMetrics
	}
	if cfg.EventTimeout <= 0 {
		cfg.EventTimeout = 3 * time.Second
	}

	program, err := deps.Ledger.ClaimProgram(cfg.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("claim program: %w", err)
	}

	return &Engine{
		programID:    cfg.ProgramID,
		ledger:       deps.Ledger,
		pools:        deps.Pools,
		cache:        deps.Cache,
		history:      deps.History,
		executor:     NewExecutor(deps.Ledger, program),
		metrics:      deps.Metrics,
		logger:       deps.Logger,
		eventTimeout: cfg.EventTimeout,
	}, nil
}

// ProgramID returns the configured program identity.
func (e *Engine) ProgramID() solana.PublicKey { return e.programID }

// PoolAddress returns the address a pool with seed is stored under.
func (e *Engine) PoolAddress(seed []byte) (solana.PublicKey, error) {
	return authority.PoolAddress(e.programID, seed)
}

// Initialize creates a pool over two existing reserve accounts. The
// reserves must hold the declared mints and be owned by the pool authority
// derived from the seed. On any failure no record is written.
func (e *Engine) Initialize(ctx context.Context, req InitializeRequest) (*PoolInfo, error) {
	info, err := e.initialize(ctx, req)
	e.metrics.PoolsInitialized.WithLabelValues(outcome(err)).Inc()

	log := e.logger.WithFields(logrus.Fields{
		"seed":    string(req.Seed),
		"mint_a":  req.TokenAMint.String(),
		"mint_b":  req.TokenBMint.String(),
		"creator": req.Creator.String(),
	})
	if err != nil {
		log.WithError(err).WithField("kind", Kind(err)).Warn("pool initialize rejected")
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"pool":      info.Address.String(),
		"authority": info.Authority.String(),
	}).Info("pool initialized")
	return info, nil
}

func (e *Engine) initialize(ctx context.Context, req InitializeRequest) (*PoolInfo, error) {
	auth, err := authority.Derive(e.programID, req.Seed)
	if err != nil {
		return nil, err
	}
	addr, err := authority.PoolAddress(e.programID, req.Seed)
	if err != nil {
		return nil, err
	}
	if req.Creator.IsZero() {
		return nil, fmt.Errorf("%w: creator not supplied", ErrInvalidAccount)
	}
	if req.TokenAMint.Equals(req.TokenBMint) {
		return nil, fmt.Errorf("%w: token A and token B mints are both %s", ErrInvalidMint, req.TokenAMint)
	}
	if req.TokenAReserve.Equals(req.TokenBReserve) {
		return nil, fmt.Errorf("%w: reserves must be distinct accounts", ErrInvalidAccount)
	}

	if _, err := e.pools.Get(ctx, addr); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrPoolExists, addr)
	} else if !errors.Is(err, storage.ErrPoolNotFound) {
		return nil, fmt.Errorf("lookup pool: %w", err)
	}

	if err := e.checkReserve(ctx, "token A reserve", req.TokenAReserve, req.TokenAMint, auth.Address); err != nil {
		return nil, err
	}
	if err := e.checkReserve(ctx, "token B reserve", req.TokenBReserve, req.TokenBMint, auth.Address); err != nil {
		return nil, err
	}

	rec := &pool.Record{
		TokenAMint:     req.TokenAMint,
		TokenBMint:     req.TokenBMint,
		TokenAReserve:  req.TokenAReserve,
		TokenBReserve:  req.TokenBReserve,
		AdminAuthority: req.Creator,
		Seed:           auth.Seed,
	}
	if err := e.pools.Create(ctx, addr, rec); err != nil {
		return nil, err
	}

	return &PoolInfo{Address: addr, Authority: auth.Address, Bump: auth.Bump, Record: rec}, nil
}

func (e *Engine) checkReserve(ctx context.Context, name string, addr, mint, owner solana.PublicKey) error {
	acct, err := loadAccount(ctx, e.ledger, name, addr)
	if err != nil {
		return err
	}
	if !acct.Mint.Equals(mint) {
		return fmt.Errorf("%w: %s holds %s, expected %s", ErrInvalidMint, name, acct.Mint, mint)
	}
	if !acct.Owner.Equals(owner) {
		return fmt.Errorf("%w: %s owned by %s, not pool authority %s", ErrInvalidOwner, name, acct.Owner, owner)
	}
	return nil
}

// SwapAToB gives amount of token A and receives amount of token B.
func (e *Engine) SwapAToB(ctx context.Context, req SwapRequest) (*SwapResult, error) {
	return e.Swap(ctx, AToB, req)
}

// SwapBToA gives amount of token B and receives amount of token A.
func (e *Engine) SwapBToA(ctx context.Context, req SwapRequest) (*SwapResult, error) {
	return e.Swap(ctx, BToA, req)
}

// Swap exchanges req.Amount at a fixed 1:1 rate in direction dir.
func (e *Engine) Swap(ctx context.Context, dir Direction, req SwapRequest) (*SwapResult, error) {
	start := time.Now()
	e.metrics.SwapsInFlight.Inc()
	defer e.metrics.SwapsInFlight.Dec()

	res, err := e.swap(ctx, dir, req)
	e.metrics.RecordSwap(string(dir), outcome(err), req.Amount, time.Since(start))

	log := e.logger.WithFields(logrus.Fields{
		"pool":      req.Pool.String(),
		"caller":    req.Caller.String(),
		"direction": string(dir),
		"amount":    req.Amount,
	})
	if err != nil {
		log.WithError(err).WithField("kind", Kind(err)).Warn("swap rejected")
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"id":          res.ID,
		"reserve_in":  res.ReserveIn,
		"reserve_out": res.ReserveOut,
		"took":        res.Duration,
	}).Infof("swap succeeded, amount: %d", res.Amount)

	e.publish(res)
	return res, nil
}

func (e *Engine) swap(ctx context.Context, dir Direction, req SwapRequest) (*SwapResult, error) {
	if req.Amount == 0 {
		return nil, ErrInvalidAmount
	}
	info, err := e.Pool(ctx, req.Pool)
	if err != nil {
		return nil, err
	}
	auth := authority.Authority{Address: info.Authority, Bump: info.Bump, Seed: info.Record.Seed}
	return e.executor.Execute(ctx, info.Address, info.Record, auth, dir, req)
}

// Pool loads a pool record and re-derives its authority.
func (e *Engine) Pool(ctx context.Context, addr solana.PublicKey) (*PoolInfo, error) {
	rec, err := e.pools.Get(ctx, addr)
	if err != nil {
		return nil, err
	}
	auth, err := authority.Derive(e.programID, rec.Seed)
	if err != nil {
		return nil, fmt.Errorf("derive authority for %s: %w", addr, err)
	}
	return &PoolInfo{Address: addr, Authority: auth.Address, Bump: auth.Bump, Record: rec}, nil
}

// Pools lists every initialized pool ordered by address.
func (e *Engine) Pools(ctx context.Context) ([]*PoolInfo, error) {
	all, err := e.pools.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*PoolInfo, 0, len(all))
	for addr, rec := range all {
		auth, err := authority.Derive(e.programID, rec.Seed)
		if err != nil {
			return nil, fmt.Errorf("derive authority for %s: %w", addr, err)
		}
		out = append(out, &PoolInfo{Address: addr, Authority: auth.Address, Bump: auth.Bump, Record: rec})
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Address[:], out[j].Address[:]) < 0
	})
	return out, nil
}

// Account reads one token account from the ledger.
func (e *Engine) Account(ctx context.Context, addr solana.PublicKey) (*ledger.TokenAccount, error) {
	return e.ledger.Account(ctx, addr)
}

// Inspect reads both reserves through r (the engine's ledger when nil) and
// reports any binding the record promises that no longer holds.
func (e *Engine) Inspect(ctx context.Context, addr solana.PublicKey, r ledger.AccountReader) (*Inspection, error) {
	info, err := e.Pool(ctx, addr)
	if err != nil {
		return nil, err
	}
	if r == nil {
		r = e.ledger
	}

	out := &Inspection{PoolInfo: *info}
	check := func(name string, reserve, mint solana.PublicKey) *ledger.TokenAccount {
		acct, err := r.Account(ctx, reserve)
		if err != nil {
			out.Problems = append(out.Problems, fmt.Sprintf("%s %s: %v", name, reserve, err))
			return nil
		}
		if !acct.Mint.Equals(mint) {
			out.Problems = append(out.Problems, fmt.Sprintf("%s holds mint %s, expected %s", name, acct.Mint, mint))
		}
		if !acct.Owner.Equals(info.Authority) {
			out.Problems = append(out.Problems, fmt.Sprintf("%s owned by %s, expected %s", name, acct.Owner, info.Authority))
		}
		return acct
	}
	out.ReserveA = check("token A reserve", info.Record.TokenAReserve, info.Record.TokenAMint)
	out.ReserveB = check("token B reserve", info.Record.TokenBReserve, info.Record.TokenBMint)
	out.Healthy = len(out.Problems) == 0
	return out, nil
}

// publish delivers the swap event to the cache and history sinks. Delivery
// failures are logged and never affect the swap outcome.
func (e *Engine) publish(res *SwapResult) {
	if e.cache == nil && e.history == nil {
		return
	}
	ev := toEvent(res)

	ctx, cancel := context.WithTimeout(context.Background(), e.eventTimeout)
	defer cancel()

	if e.cache != nil {
		if err := e.cache.AddRecentSwap(ctx, ev); err != nil {
			e.eventError("recent", ev, err)
		}
		if err := e.cache.PublishSwap(ctx, ev); err != nil {
			e.eventError("pubsub", ev, err)
		}
	}
	if e.history != nil {
		if err := e.history.InsertSwap(ctx, ev); err != nil {
			e.eventError("history", ev, err)
		}
	}
}

func (e *Engine) eventError(sink string, ev *models.SwapEvent, err error) {
	e.metrics.EventPublishErrors.WithLabelValues(sink).Inc()
	e.logger.WithError(err).WithFields(logrus.Fields{
		"sink": sink,
		"id":   ev.ID,
		"pool": ev.Pool,
	}).Warn("failed to deliver swap event")
}

func toEvent(res *SwapResult) *models.SwapEvent {
	return &models.SwapEvent{
		ID:         res.ID,
		Timestamp:  res.ExecutedAt.UTC(),
		Pool:       res.Pool.String(),
		Caller:     res.Caller.String(),
		Direction:  string(res.Direction),
		MintIn:     res.MintIn.String(),
		MintOut:    res.MintOut.String(),
		AmountIn:   res.Amount,
		AmountOut:  res.Amount,
		ReserveIn:  res.ReserveIn,
		ReserveOut: res.ReserveOut,
		CallerIn:   res.CallerIn,
		CallerOut:  res.CallerOut,
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(Kind(err))
}
