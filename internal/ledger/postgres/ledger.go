// Package postgres is a ledger backend storing token accounts in PostgreSQL.
// Atomic units map to database transactions; rows are locked with
// SELECT ... FOR UPDATE as they are read.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/constants"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/ledger"
	pgstore "github.com/aman-zulfiqar/solana-pool-swap/internal/storage/postgres"
	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

// Config tunes contention retries.
type Config struct {
	MaxRetries   int
	RetryBackoff time.Duration
	Logger       *logrus.Logger
}

// Ledger implements ledger.Ledger on a pgx pool.
type Ledger struct {
	pool   *pgstore.Pool
	reg    *ledger.Registry
	cfg    Config
	logger *logrus.Logger
}

var (
	_ ledger.Ledger       = (*Ledger)(nil)
	_ ledger.Bootstrapper = (*Ledger)(nil)
)

func New(pool *pgstore.Pool, cfg Config) *Ledger {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = constants.LedgerMaxRetries
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = constants.LedgerRetryBackoff
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Ledger{pool: pool, reg: ledger.NewRegistry(), cfg: cfg, logger: cfg.Logger}
}

func (l *Ledger) ClaimProgram(id solana.PublicKey) (*ledger.Program, error) {
	return l.reg.Claim(id)
}

func (l *Ledger) Account(ctx context.Context, addr solana.PublicKey) (*ledger.TokenAccount, error) {
	row := l.pool.QueryRow(ctx, `SELECT address, mint, owner, amount FROM token_accounts WHERE address = $1`, addr.String())
	return scanAccount(row, addr)
}

// Atomic runs fn in a transaction, retrying from the start when PostgreSQL
// aborts it for a deadlock or serialization failure.
func (l *Ledger) Atomic(ctx context.Context, fn func(ledger.Tx) error) error {
	var err error
	backoff := l.cfg.RetryBackoff

	for attempt := 0; attempt <= l.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			l.logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"backoff": backoff,
			}).WithError(err).Debug("retrying ledger transaction")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		err = l.runOnce(ctx, fn)
		if err == nil || !pgstore.IsRetryableTxError(err) {
			return err
		}
	}
	return fmt.Errorf("ledger transaction retries exceeded: %w", err)
}

func (l *Ledger) runOnce(ctx context.Context, fn func(ledger.Tx) error) error {
	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx, reg: l.reg}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// CreateAccount implements ledger.Bootstrapper.
func (l *Ledger) CreateAccount(ctx context.Context, acct ledger.TokenAccount) error {
	if acct.Amount > ledger.MaxAmount {
		return ledger.ErrBalanceOverflow
	}
	_, err := l.pool.Exec(ctx,
		`INSERT INTO token_accounts (address, mint, owner, amount) VALUES ($1, $2, $3, $4)`,
		acct.Address.String(), acct.Mint.String(), acct.Owner.String(), int64(acct.Amount),
	)
	if err != nil {
		if pgstore.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ledger.ErrAccountExists, acct.Address)
		}
		return fmt.Errorf("insert token account: %w", err)
	}
	return nil
}

// MintTo implements ledger.Bootstrapper.
func (l *Ledger) MintTo(ctx context.Context, addr solana.PublicKey, amount uint64) error {
	if amount > ledger.MaxAmount {
		return ledger.ErrBalanceOverflow
	}
	tag, err := l.pool.Exec(ctx, `
		UPDATE token_accounts
		SET amount = amount + $2, updated_at = now()
		WHERE address = $1 AND amount <= $3 - $2
	`, addr.String(), int64(amount), int64(ledger.MaxAmount))
	if err != nil {
		return fmt.Errorf("mint to: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := l.Account(ctx, addr); err != nil {
		return err
	}
	return ledger.ErrBalanceOverflow
}

type pgTx struct {
	tx  pgx.Tx
	reg *ledger.Registry
}

func (t *pgTx) Account(ctx context.Context, addr solana.PublicKey) (*ledger.TokenAccount, error) {
	row := t.tx.QueryRow(ctx, `SELECT address, mint, owner, amount FROM token_accounts WHERE address = $1 FOR UPDATE`, addr.String())
	return scanAccount(row, addr)
}

func (t *pgTx) Transfer(ctx context.Context, from, to solana.PublicKey, signer ledger.Signer, amount uint64) error {
	// Lock in address order so concurrent transfers over the same pair
	// cannot deadlock each other.
	first, second := from, to
	if to.String() < from.String() {
		first, second = to, from
	}
	a, err := t.Account(ctx, first)
	if err != nil {
		return err
	}
	b := a
	if !second.Equals(first) {
		if b, err = t.Account(ctx, second); err != nil {
			return err
		}
	}
	src, dst := a, b
	if !first.Equals(from) {
		src, dst = b, a
	}

	srcBal, dstBal, err := ledger.CheckTransfer(t.reg, src, dst, signer, amount)
	if err != nil {
		return err
	}
	if from.Equals(to) {
		return nil
	}

	update := `UPDATE token_accounts SET amount = $2, updated_at = now() WHERE address = $1`
	if _, err := t.tx.Exec(ctx, update, from.String(), int64(srcBal)); err != nil {
		return fmt.Errorf("debit %s: %w", from, err)
	}
	if _, err := t.tx.Exec(ctx, update, to.String(), int64(dstBal)); err != nil {
		return fmt.Errorf("credit %s: %w", to, err)
	}
	return nil
}

func scanAccount(row pgx.Row, addr solana.PublicKey) (*ledger.TokenAccount, error) {
	var (
		address, mint, owner string
		amount               int64
	)
	if err := row.Scan(&address, &mint, &owner, &amount); err != nil {
		if pgstore.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", ledger.ErrAccountNotFound, addr)
		}
		return nil, fmt.Errorf("scan token account: %w", err)
	}

	acct := &ledger.TokenAccount{Amount: uint64(amount)}
	var err error
	if acct.Address, err = solana.PublicKeyFromBase58(address); err != nil {
		return nil, fmt.Errorf("parse address: %w", err)
	}
	if acct.Mint, err = solana.PublicKeyFromBase58(mint); err != nil {
		return nil, fmt.Errorf("parse mint: %w", err)
	}
	if acct.Owner, err = solana.PublicKeyFromBase58(owner); err != nil {
		return nil, fmt.Errorf("parse owner: %w", err)
	}
	return acct, nil
}
