package server

import (
	"time"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/ledger"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/swapengine"
)

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Kind    string `json:"kind,omitempty"`    // Stable engine failure kind
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK        bool              `json:"ok"`
	ProgramID string            `json:"program_id"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// InitializePoolRequest creates a pool; signed by Creator
type InitializePoolRequest struct {
	Seed          string `json:"seed"`
	TokenAMint    string `json:"token_a_mint"`
	TokenBMint    string `json:"token_b_mint"`
	TokenAReserve string `json:"token_a_reserve"`
	TokenBReserve string `json:"token_b_reserve"`
	Creator       string `json:"creator"`
	ExpiresAt     int64  `json:"expires_at"` // unix seconds
	Signature     string `json:"signature"`  // base58 ed25519 over the canonical message
}

// SwapRequest swaps Amount in Direction; signed by Caller
type SwapRequest struct {
	Direction  string `json:"direction"` // a_to_b or b_to_a
	Amount     uint64 `json:"amount"`
	Caller     string `json:"caller"`
	UserTokenA string `json:"user_token_a"`
	UserTokenB string `json:"user_token_b"`
	PoolTokenA string `json:"pool_token_a,omitempty"` // defaults to the recorded reserve
	PoolTokenB string `json:"pool_token_b,omitempty"`
	ExpiresAt  int64  `json:"expires_at"`
	Signature  string `json:"signature"`
}

// PoolResponse is a pool record with its derived addresses
type PoolResponse struct {
	Address        string `json:"address"`
	Authority      string `json:"authority"`
	Bump           uint8  `json:"bump"`
	Seed           string `json:"seed"`
	TokenAMint     string `json:"token_a_mint"`
	TokenBMint     string `json:"token_b_mint"`
	TokenAReserve  string `json:"token_a_reserve"`
	TokenBReserve  string `json:"token_b_reserve"`
	AdminAuthority string `json:"admin_authority"`
}

func newPoolResponse(p *swapengine.PoolInfo) PoolResponse {
	return PoolResponse{
		Address:        p.Address.String(),
		Authority:      p.Authority.String(),
		Bump:           p.Bump,
		Seed:           string(p.Record.Seed),
		TokenAMint:     p.Record.TokenAMint.String(),
		TokenBMint:     p.Record.TokenBMint.String(),
		TokenAReserve:  p.Record.TokenAReserve.String(),
		TokenBReserve:  p.Record.TokenBReserve.String(),
		AdminAuthority: p.Record.AdminAuthority.String(),
	}
}

// AccountResponse is a token account view
type AccountResponse struct {
	Address string `json:"address"`
	Mint    string `json:"mint"`
	Owner   string `json:"owner"`
	Amount  uint64 `json:"amount"`
}

func newAccountResponse(a *ledger.TokenAccount) *AccountResponse {
	if a == nil {
		return nil
	}
	return &AccountResponse{
		Address: a.Address.String(),
		Mint:    a.Mint.String(),
		Owner:   a.Owner.String(),
		Amount:  a.Amount,
	}
}

// InspectResponse reports live reserve state for a pool
type InspectResponse struct {
	Pool     PoolResponse     `json:"pool"`
	Source   string           `json:"source"` // ledger or cluster
	ReserveA *AccountResponse `json:"reserve_a,omitempty"`
	ReserveB *AccountResponse `json:"reserve_b,omitempty"`
	Healthy  bool             `json:"healthy"`
	Problems []string         `json:"problems,omitempty"`
}

// SwapResponse reports a completed swap
type SwapResponse struct {
	ID         string    `json:"id"`
	Pool       string    `json:"pool"`
	Caller     string    `json:"caller"`
	Direction  string    `json:"direction"`
	MintIn     string    `json:"mint_in"`
	MintOut    string    `json:"mint_out"`
	Amount     uint64    `json:"amount"`
	CallerIn   uint64    `json:"caller_in"`
	CallerOut  uint64    `json:"caller_out"`
	ReserveIn  uint64    `json:"reserve_in"`
	ReserveOut uint64    `json:"reserve_out"`
	ExecutedAt time.Time `json:"executed_at"`
	TookMs     int64     `json:"took_ms"`
}

func newSwapResponse(r *swapengine.SwapResult) SwapResponse {
	return SwapResponse{
		ID:         r.ID,
		Pool:       r.Pool.String(),
		Caller:     r.Caller.String(),
		Direction:  string(r.Direction),
		MintIn:     r.MintIn.String(),
		MintOut:    r.MintOut.String(),
		Amount:     r.Amount,
		CallerIn:   r.CallerIn,
		CallerOut:  r.CallerOut,
		ReserveIn:  r.ReserveIn,
		ReserveOut: r.ReserveOut,
		ExecutedAt: r.ExecutedAt.UTC(),
		TookMs:     r.Duration.Milliseconds(),
	}
}

// CreateAccountRequest creates a token account (dev mode only)
type CreateAccountRequest struct {
	Address string `json:"address,omitempty"` // random when empty
	Mint    string `json:"mint"`
	Owner   string `json:"owner"`
	Amount  uint64 `json:"amount"`
}

// MintRequest credits an account (dev mode only)
type MintRequest struct {
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`
}
