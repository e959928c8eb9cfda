package swapengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/authority"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/ledger"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/pool"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

// Executor runs the two transfer legs of a swap inside one ledger unit.
// It is the only holder of the program capability.
type Executor struct {
	ledger  ledger.Ledger
	program *ledger.Program
	now     func() time.Time
}

func NewExecutor(l ledger.Ledger, program *ledger.Program) *Executor {
	return &Executor{ledger: l, program: program, now: time.Now}
}

// Execute checks preconditions in order (amount, caller balance, pool
// reserve, account bindings) and then moves amount caller->pool and
// pool->caller. Either both legs commit or neither does.
func (x *Executor) Execute(ctx context.Context, addr solana.PublicKey, rec *pool.Record, auth authority.Authority, dir Direction, req SwapRequest) (*SwapResult, error) {
	start := x.now()

	if req.Amount == 0 {
		return nil, ErrInvalidAmount
	}

	accts := req.Accounts
	if accts.PoolTokenA.IsZero() {
		accts.PoolTokenA = rec.TokenAReserve
	}
	if accts.PoolTokenB.IsZero() {
		accts.PoolTokenB = rec.TokenBReserve
	}

	l, err := resolveLegs(dir, rec, accts)
	if err != nil {
		return nil, err
	}

	res := &SwapResult{
		ID:        uuid.NewString(),
		Pool:      addr,
		Caller:    req.Caller,
		Direction: dir,
		MintIn:    l.mintIn,
		MintOut:   l.mintOut,
		Amount:    req.Amount,
	}

	err = x.ledger.Atomic(ctx, func(tx ledger.Tx) error {
		userSrc, err := loadAccount(ctx, tx, "user source", l.userSrc)
		if err != nil {
			return err
		}
		if userSrc.Amount < req.Amount {
			return fmt.Errorf("%w: caller holds %d, swap needs %d", ErrInsufficientFunds, userSrc.Amount, req.Amount)
		}

		poolDst, err := loadAccount(ctx, tx, "pool destination", l.poolDst)
		if err != nil {
			return err
		}
		if poolDst.Amount < req.Amount {
			return fmt.Errorf("%w: pool reserve holds %d, swap needs %d", ErrInsufficientFunds, poolDst.Amount, req.Amount)
		}

		if _, err := NewValidator(rec, auth.Address).Validate(ctx, tx, req.Caller, accts); err != nil {
			return err
		}

		if err := tx.Transfer(ctx, l.userSrc, l.poolSrc, ledger.User(req.Caller), req.Amount); err != nil {
			return legError("deposit", err)
		}
		if err := tx.Transfer(ctx, l.poolDst, l.userDst, x.program.Sign(auth.SignerSeeds()...), req.Amount); err != nil {
			return legError("withdraw", err)
		}

		return x.readBalances(ctx, tx, l, res)
	})
	if err != nil {
		return nil, err
	}

	res.ExecutedAt = x.now()
	res.Duration = res.ExecutedAt.Sub(start)
	return res, nil
}

func (x *Executor) readBalances(ctx context.Context, tx ledger.Tx, l legs, res *SwapResult) error {
	targets := []struct {
		addr solana.PublicKey
		dst  *uint64
	}{
		{l.userSrc, &res.CallerIn},
		{l.userDst, &res.CallerOut},
		{l.poolSrc, &res.ReserveIn},
		{l.poolDst, &res.ReserveOut},
	}
	for _, t := range targets {
		a, err := tx.Account(ctx, t.addr)
		if err != nil {
			return fmt.Errorf("read post-swap balance %s: %w", t.addr, err)
		}
		*t.dst = a.Amount
	}
	return nil
}

// legError maps ledger refusals that validation should have ruled out. They
// still surface as typed failures rather than a generic error.
func legError(leg string, err error) error {
	switch {
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return fmt.Errorf("%w: %s leg: %w", ErrInsufficientFunds, leg, err)
	case errors.Is(err, ledger.ErrMintMismatch):
		return fmt.Errorf("%w: %s leg: %w", ErrInvalidMint, leg, err)
	case errors.Is(err, ledger.ErrUnauthorized):
		return fmt.Errorf("%w: %s leg: %w", ErrInvalidOwner, leg, err)
	case errors.Is(err, ledger.ErrAccountNotFound):
		return fmt.Errorf("%w: %s leg: %w", ErrInvalidAccount, leg, err)
	}
	return fmt.Errorf("%s leg: %w", leg, err)
}
