// Package authority derives the keyless addresses a pool uses for custody.
//
// Both the pool authority and the pool record address are program derived
// addresses: they are computed from the program id and the pool seed, fall
// off the ed25519 curve, and therefore have no private key. Only the program
// that owns the derivation can authorize transfers out of accounts they own.
package authority

import (
	"errors"
	"fmt"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/constants"
	"github.com/gagliardetto/solana-go"
)

var (
	ErrInvalidSeed     = errors.New("invalid pool seed")
	ErrInvalidProgram  = errors.New("invalid program id")
	ErrAddressMismatch = errors.New("derived address mismatch")
)

// Authority is a derived address together with the inputs needed to
// re-derive it for signing.
type Authority struct {
	Address solana.PublicKey
	Bump    uint8
	Seed    []byte
}

// ValidateSeed checks the pool seed length bounds.
func ValidateSeed(seed []byte) error {
	if len(seed) == 0 {
		return fmt.Errorf("%w: seed is empty", ErrInvalidSeed)
	}
	if len(seed) > constants.MaxSeedLen {
		return fmt.Errorf("%w: seed is %d bytes, max %d", ErrInvalidSeed, len(seed), constants.MaxSeedLen)
	}
	return nil
}

// Derive returns the pool authority for seed under programID.
func Derive(programID solana.PublicKey, seed []byte) (Authority, error) {
	return derive(programID, constants.AuthoritySeedLabel, seed)
}

// PoolAddress returns the address under which the pool record for seed is stored.
func PoolAddress(programID solana.PublicKey, seed []byte) (solana.PublicKey, error) {
	a, err := derive(programID, constants.PoolSeedLabel, seed)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return a.Address, nil
}

func derive(programID solana.PublicKey, label string, seed []byte) (Authority, error) {
	if programID.IsZero() {
		return Authority{}, ErrInvalidProgram
	}
	if err := ValidateSeed(seed); err != nil {
		return Authority{}, err
	}

	addr, bump, err := solana.FindProgramAddress([][]byte{[]byte(label), seed}, programID)
	if err != nil {
		return Authority{}, fmt.Errorf("find program address: %w", err)
	}

	return Authority{
		Address: addr,
		Bump:    bump,
		Seed:    append([]byte(nil), seed...),
	}, nil
}

// SignerSeeds returns the full seed list, bump included, that reproduces
// the authority address through CreateProgramAddress.
func (a Authority) SignerSeeds() [][]byte {
	return [][]byte{
		[]byte(constants.AuthoritySeedLabel),
		append([]byte(nil), a.Seed...),
		{a.Bump},
	}
}

// Verify re-derives the authority from its stored seed and bump and checks
// it still matches the recorded address.
func Verify(programID solana.PublicKey, a Authority) error {
	addr, err := solana.CreateProgramAddress(a.SignerSeeds(), programID)
	if err != nil {
		return fmt.Errorf("create program address: %w", err)
	}
	if !addr.Equals(a.Address) {
		return fmt.Errorf("%w: got %s, want %s", ErrAddressMismatch, addr, a.Address)
	}
	return nil
}
