package swapengine

import (
	"context"
	"errors"
	"fmt"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/ledger"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/pool"
	"github.com/gagliardetto/solana-go"
)

// ValidatedAccounts holds the four accounts after every binding check passed.
type ValidatedAccounts struct {
	PoolA, PoolB *ledger.TokenAccount
	UserA, UserB *ledger.TokenAccount
}

// Validator checks that the accounts supplied to a swap belong to the pool
// and the caller. It reads only; nothing is mutated before it passes.
type Validator struct {
	record    *pool.Record
	authority solana.PublicKey
}

func NewValidator(rec *pool.Record, authority solana.PublicKey) *Validator {
	return &Validator{record: rec, authority: authority}
}

// Validate runs every check over all four accounts and fails on the first
// violation.
func (v *Validator) Validate(ctx context.Context, r ledger.AccountReader, caller solana.PublicKey, accts SwapAccounts) (*ValidatedAccounts, error) {
	poolA, err := v.reserve(ctx, r, "pool token A", accts.PoolTokenA, v.record.TokenAMint, v.record.TokenAReserve)
	if err != nil {
		return nil, err
	}
	poolB, err := v.reserve(ctx, r, "pool token B", accts.PoolTokenB, v.record.TokenBMint, v.record.TokenBReserve)
	if err != nil {
		return nil, err
	}
	userA, err := v.user(ctx, r, "user token A", accts.UserTokenA, v.record.TokenAMint, caller)
	if err != nil {
		return nil, err
	}
	userB, err := v.user(ctx, r, "user token B", accts.UserTokenB, v.record.TokenBMint, caller)
	if err != nil {
		return nil, err
	}
	return &ValidatedAccounts{PoolA: poolA, PoolB: poolB, UserA: userA, UserB: userB}, nil
}

func (v *Validator) reserve(ctx context.Context, r ledger.AccountReader, name string, addr, mint, recorded solana.PublicKey) (*ledger.TokenAccount, error) {
	acct, err := loadAccount(ctx, r, name, addr)
	if err != nil {
		return nil, err
	}
	if !acct.Mint.Equals(mint) {
		return nil, fmt.Errorf("%w: %s holds %s, pool expects %s", ErrInvalidMint, name, acct.Mint, mint)
	}
	if !acct.Address.Equals(recorded) {
		return nil, fmt.Errorf("%w: %s is %s, pool reserve is %s", ErrInvalidAccount, name, acct.Address, recorded)
	}
	if !acct.Owner.Equals(v.authority) {
		return nil, fmt.Errorf("%w: %s owned by %s, not pool authority %s", ErrInvalidOwner, name, acct.Owner, v.authority)
	}
	return acct, nil
}

func (v *Validator) user(ctx context.Context, r ledger.AccountReader, name string, addr, mint, caller solana.PublicKey) (*ledger.TokenAccount, error) {
	acct, err := loadAccount(ctx, r, name, addr)
	if err != nil {
		return nil, err
	}
	if !acct.Mint.Equals(mint) {
		return nil, fmt.Errorf("%w: %s holds %s, pool expects %s", ErrInvalidMint, name, acct.Mint, mint)
	}
	if acct.Address.Equals(v.record.TokenAReserve) || acct.Address.Equals(v.record.TokenBReserve) {
		return nil, fmt.Errorf("%w: %s is a pool reserve", ErrInvalidAccount, name)
	}
	if !acct.Owner.Equals(caller) {
		return nil, fmt.Errorf("%w: %s owned by %s, not caller %s", ErrInvalidOwner, name, acct.Owner, caller)
	}
	return acct, nil
}

// loadAccount reads addr and maps a missing account to ErrInvalidAccount.
func loadAccount(ctx context.Context, r ledger.AccountReader, name string, addr solana.PublicKey) (*ledger.TokenAccount, error) {
	if addr.IsZero() {
		return nil, fmt.Errorf("%w: %s not supplied", ErrInvalidAccount, name)
	}
	acct, err := r.Account(ctx, addr)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return nil, fmt.Errorf("%w: %s %s does not exist", ErrInvalidAccount, name, addr)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return acct, nil
}
