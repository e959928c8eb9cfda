// Package ledger is the host-side token ledger the swap engine moves funds
// through. It owns account balances, authorizes debits and applies groups of
// transfers atomically.
package ledger

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrAccountNotFound     = errors.New("token account not found")
	ErrAccountExists       = errors.New("token account already exists")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUnauthorized        = errors.New("signer cannot authorize debit")
	ErrMintMismatch        = errors.New("source and destination mints differ")
	ErrBalanceOverflow     = errors.New("balance overflow")
	ErrProgramClaimed      = errors.New("program already claimed on this ledger")
)

// TokenAccount is a read-only view of one token account.
type TokenAccount struct {
	Address solana.PublicKey `json:"address"`
	Mint    solana.PublicKey `json:"mint"`
	Owner   solana.PublicKey `json:"owner"`
	Amount  uint64           `json:"amount"`
}

// AccountReader reads token accounts.
type AccountReader interface {
	Account(ctx context.Context, addr solana.PublicKey) (*TokenAccount, error)
}

// Tx is the view of the ledger inside an atomic unit.
type Tx interface {
	AccountReader
	// Transfer moves amount from one account to another. It either fully
	// applies or fails without effect.
	Transfer(ctx context.Context, from, to solana.PublicKey, signer Signer, amount uint64) error
}

// Ledger applies transfers atomically and issues program capabilities.
type Ledger interface {
	AccountReader
	// ClaimProgram returns the capability to sign for addresses derived from
	// id. Each id can be claimed once per ledger.
	ClaimProgram(id solana.PublicKey) (*Program, error)
	// Atomic runs fn and commits every transfer it made iff fn returns nil.
	// Concurrent units touching the same accounts are serialized.
	Atomic(ctx context.Context, fn func(Tx) error) error
}

// Bootstrapper creates and funds accounts outside of any program. It is used
// by tooling and tests to set up local ledgers.
type Bootstrapper interface {
	CreateAccount(ctx context.Context, acct TokenAccount) error
	MintTo(ctx context.Context, addr solana.PublicKey, amount uint64) error
}

// CheckTransfer applies the transfer rules shared by every backend and
// returns the new balances of from and to.
func CheckTransfer(reg *Registry, from, to *TokenAccount, signer Signer, amount uint64) (uint64, uint64, error) {
	if !from.Mint.Equals(to.Mint) {
		return 0, 0, ErrMintMismatch
	}
	if signer == nil || !signer.authorizes(reg, from.Owner) {
		return 0, 0, ErrUnauthorized
	}
	if from.Amount < amount {
		return 0, 0, ErrInsufficientBalance
	}
	if from.Address.Equals(to.Address) {
		return from.Amount, to.Amount, nil
	}
	if to.Amount > MaxAmount-amount {
		return 0, 0, ErrBalanceOverflow
	}
	return from.Amount - amount, to.Amount + amount, nil
}

// MaxAmount is the largest balance any backend can hold.
const MaxAmount = uint64(1<<63 - 1)
