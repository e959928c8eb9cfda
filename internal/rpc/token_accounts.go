package rpc

import (
	"context"
	"fmt"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/ledger"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Token2022ProgramID owns token accounts created by the token-2022 program.
var Token2022ProgramID = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")

// TokenAccounts reads SPL token accounts from a cluster. It satisfies
// ledger.AccountReader so pool inspection can run against live state.
type TokenAccounts struct {
	client *Client
}

var _ ledger.AccountReader = (*TokenAccounts)(nil)

func NewTokenAccounts(client *Client) *TokenAccounts {
	return &TokenAccounts{client: client}
}

// Account fetches addr and decodes it as a token account.
func (t *TokenAccounts) Account(ctx context.Context, addr solana.PublicKey) (*ledger.TokenAccount, error) {
	res, err := t.client.GetAccountInfo(ctx, addr.String())
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", addr, err)
	}
	if res.Value == nil {
		return nil, fmt.Errorf("%w: %s", ledger.ErrAccountNotFound, addr)
	}

	programOwner, err := solana.PublicKeyFromBase58(res.Value.Owner)
	if err != nil {
		return nil, fmt.Errorf("account %s: bad owner program: %w", addr, err)
	}
	if !programOwner.Equals(solana.TokenProgramID) && !programOwner.Equals(Token2022ProgramID) {
		return nil, fmt.Errorf("account %s is owned by %s, not a token program", addr, programOwner)
	}

	data, err := res.Value.Bytes()
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", addr, err)
	}
	return DecodeTokenAccount(addr, data)
}

// DecodeTokenAccount parses the SPL token account layout. Token-2022
// accounts carry extensions after the base layout; they are ignored.
func DecodeTokenAccount(addr solana.PublicKey, data []byte) (*ledger.TokenAccount, error) {
	if len(data) < TokenAccountSize {
		return nil, fmt.Errorf("token account %s: %d bytes, want at least %d", addr, len(data), TokenAccountSize)
	}

	var layout tokenAccountLayout
	if err := bin.NewBinDecoder(data[:TokenAccountSize]).Decode(&layout); err != nil {
		return nil, fmt.Errorf("decode token account %s: %w", addr, err)
	}
	if layout.State == 0 {
		return nil, fmt.Errorf("token account %s is not initialized", addr)
	}

	return &ledger.TokenAccount{
		Address: addr,
		Mint:    layout.Mint,
		Owner:   layout.Owner,
		Amount:  layout.Amount,
	}, nil
}
