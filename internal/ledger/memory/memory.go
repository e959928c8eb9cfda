// Package memory is an in-process ledger backend.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/ledger"
	"github.com/gagliardetto/solana-go"
)

// Ledger keeps balances in a map guarded by a single mutex. Atomic units run
// one at a time against a staged copy which is merged on success.
type Ledger struct {
	mu       sync.Mutex
	accounts map[solana.PublicKey]ledger.TokenAccount
	reg      *ledger.Registry
}

var (
	_ ledger.Ledger       = (*Ledger)(nil)
	_ ledger.Bootstrapper = (*Ledger)(nil)
)

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		accounts: make(map[solana.PublicKey]ledger.TokenAccount),
		reg:      ledger.NewRegistry(),
	}
}

// ClaimProgram implements ledger.Ledger.
func (l *Ledger) ClaimProgram(id solana.PublicKey) (*ledger.Program, error) {
	return l.reg.Claim(id)
}

// Account implements ledger.AccountReader.
func (l *Ledger) Account(ctx context.Context, addr solana.PublicKey) (*ledger.TokenAccount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.accounts[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ledger.ErrAccountNotFound, addr)
	}
	return &a, nil
}

// Atomic implements ledger.Ledger.
func (l *Ledger) Atomic(ctx context.Context, fn func(ledger.Tx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memTx{l: l, staged: make(map[solana.PublicKey]ledger.TokenAccount)}
	if err := fn(tx); err != nil {
		return err
	}
	for k, v := range tx.staged {
		l.accounts[k] = v
	}
	return nil
}

// CreateAccount implements ledger.Bootstrapper.
func (l *Ledger) CreateAccount(ctx context.Context, acct ledger.TokenAccount) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.accounts[acct.Address]; ok {
		return fmt.Errorf("%w: %s", ledger.ErrAccountExists, acct.Address)
	}
	if acct.Amount > ledger.MaxAmount {
		return ledger.ErrBalanceOverflow
	}
	l.accounts[acct.Address] = acct
	return nil
}

// MintTo implements ledger.Bootstrapper.
func (l *Ledger) MintTo(ctx context.Context, addr solana.PublicKey, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.accounts[addr]
	if !ok {
		return fmt.Errorf("%w: %s", ledger.ErrAccountNotFound, addr)
	}
	if amount > ledger.MaxAmount || a.Amount > ledger.MaxAmount-amount {
		return ledger.ErrBalanceOverflow
	}
	a.Amount += amount
	l.accounts[addr] = a
	return nil
}

type memTx struct {
	l      *Ledger
	staged map[solana.PublicKey]ledger.TokenAccount
}

func (t *memTx) get(addr solana.PublicKey) (ledger.TokenAccount, error) {
	if a, ok := t.staged[addr]; ok {
		return a, nil
	}
	a, ok := t.l.accounts[addr]
	if !ok {
		return ledger.TokenAccount{}, fmt.Errorf("%w: %s", ledger.ErrAccountNotFound, addr)
	}
	return a, nil
}

func (t *memTx) Account(ctx context.Context, addr solana.PublicKey) (*ledger.TokenAccount, error) {
	a, err := t.get(addr)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (t *memTx) Transfer(ctx context.Context, from, to solana.PublicKey, signer ledger.Signer, amount uint64) error {
	src, err := t.get(from)
	if err != nil {
		return err
	}
	dst, err := t.get(to)
	if err != nil {
		return err
	}

	srcBal, dstBal, err := ledger.CheckTransfer(t.l.reg, &src, &dst, signer, amount)
	if err != nil {
		return err
	}
	src.Amount, dst.Amount = srcBal, dstBal
	t.staged[from] = src
	t.staged[to] = dst
	return nil
}
