package swapengine

import (
	"fmt"
	"time"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/ledger"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/pool"
	"github.com/gagliardetto/solana-go"
)

// Direction selects which asset the caller gives up.
type Direction string

const (
	AToB Direction = "a_to_b"
	BToA Direction = "b_to_a"
)

// ParseDirection accepts "a_to_b"/"b_to_a" and the "a-to-b" spelling.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "a_to_b", "a-to-b", "AToB":
		return AToB, nil
	case "b_to_a", "b-to-a", "BToA":
		return BToA, nil
	}
	return "", fmt.Errorf("unknown swap direction %q", s)
}

// InitializeRequest creates a pool bound to two pre-existing reserves.
type InitializeRequest struct {
	Seed          []byte
	TokenAMint    solana.PublicKey
	TokenBMint    solana.PublicKey
	TokenAReserve solana.PublicKey
	TokenBReserve solana.PublicKey
	Creator       solana.PublicKey // authenticated signer, recorded as admin
}

// SwapAccounts are the four token accounts a swap touches. Zero pool
// reserves default to the addresses stored in the pool record.
type SwapAccounts struct {
	PoolTokenA solana.PublicKey
	PoolTokenB solana.PublicKey
	UserTokenA solana.PublicKey
	UserTokenB solana.PublicKey
}

// SwapRequest is a 1:1 exchange request. Caller must already be
// authenticated as the owner of the user accounts.
type SwapRequest struct {
	Pool     solana.PublicKey
	Caller   solana.PublicKey
	Accounts SwapAccounts
	Amount   uint64
}

// PoolInfo is a pool record together with its derived addresses.
type PoolInfo struct {
	Address   solana.PublicKey `json:"address"`
	Authority solana.PublicKey `json:"authority"`
	Bump      uint8            `json:"bump"`
	Record    *pool.Record     `json:"record"`
}

// SwapResult reports a completed swap with post-swap balances.
type SwapResult struct {
	ID         string           `json:"id"`
	Pool       solana.PublicKey `json:"pool"`
	Caller     solana.PublicKey `json:"caller"`
	Direction  Direction        `json:"direction"`
	MintIn     solana.PublicKey `json:"mint_in"`
	MintOut    solana.PublicKey `json:"mint_out"`
	Amount     uint64           `json:"amount"`
	CallerIn   uint64           `json:"caller_in"`   // caller source balance
	CallerOut  uint64           `json:"caller_out"`  // caller destination balance
	ReserveIn  uint64           `json:"reserve_in"`  // pool source reserve
	ReserveOut uint64           `json:"reserve_out"` // pool destination reserve
	ExecutedAt time.Time        `json:"executed_at"`
	Duration   time.Duration    `json:"duration"`
}

// Inspection is a point-in-time check of a pool's reserves.
type Inspection struct {
	PoolInfo
	ReserveA *ledger.TokenAccount `json:"reserve_a,omitempty"`
	ReserveB *ledger.TokenAccount `json:"reserve_b,omitempty"`
	Healthy  bool                 `json:"healthy"`
	Problems []string             `json:"problems,omitempty"`
}

// legs resolves which accounts act as source and destination for dir.
type legs struct {
	userSrc, userDst solana.PublicKey
	poolSrc, poolDst solana.PublicKey
	mintIn, mintOut  solana.PublicKey
}

func resolveLegs(dir Direction, rec *pool.Record, accts SwapAccounts) (legs, error) {
	switch dir {
	case AToB:
		return legs{
			userSrc: accts.UserTokenA, userDst: accts.UserTokenB,
			poolSrc: accts.PoolTokenA, poolDst: accts.PoolTokenB,
			mintIn: rec.TokenAMint, mintOut: rec.TokenBMint,
		}, nil
	case BToA:
		return legs{
			userSrc: accts.UserTokenB, userDst: accts.UserTokenA,
			poolSrc: accts.PoolTokenB, poolDst: accts.PoolTokenA,
			mintIn: rec.TokenBMint, mintOut: rec.TokenAMint,
		}, nil
	}
	return legs{}, fmt.Errorf("unknown swap direction %q", dir)
}
