// Package pool defines the persistent pool record and its account layout.
package pool

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/constants"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var (
	ErrBadDiscriminator = errors.New("pool record: bad discriminator")
	ErrShortData        = errors.New("pool record: data too short")
	ErrSeedTooLong      = errors.New("pool record: seed too long")
	ErrSameMint         = errors.New("pool record: token A and token B mints are equal")
)

// Discriminator prefixes every encoded record.
var Discriminator = accountDiscriminator("Pool")

const (
	// MinSize is the encoded size of a record with an empty seed.
	MinSize = 8 + 5*solana.PublicKeyLength + 4
	// MaxSize is the encoded size of a record with a maximum length seed.
	MaxSize = MinSize + constants.MaxSeedLen
)

// Record is the immutable identity binding of a pool. It has no setters;
// stores persist it once and never rewrite it.
type Record struct {
	TokenAMint     solana.PublicKey `json:"token_a_mint"`
	TokenBMint     solana.PublicKey `json:"token_b_mint"`
	TokenAReserve  solana.PublicKey `json:"token_a_reserve"`
	TokenBReserve  solana.PublicKey `json:"token_b_reserve"`
	AdminAuthority solana.PublicKey `json:"admin_authority"`
	Seed           []byte           `json:"seed"`
}

// Validate checks the structural invariants of a record.
func (r *Record) Validate() error {
	if len(r.Seed) > constants.MaxSeedLen {
		return fmt.Errorf("%w: %d bytes", ErrSeedTooLong, len(r.Seed))
	}
	if r.TokenAMint.Equals(r.TokenBMint) {
		return ErrSameMint
	}
	return nil
}

// MarshalWithEncoder writes the record body (without discriminator).
func (r Record) MarshalWithEncoder(enc *bin.Encoder) error {
	for _, k := range []solana.PublicKey{r.TokenAMint, r.TokenBMint, r.TokenAReserve, r.TokenBReserve, r.AdminAuthority} {
		if err := enc.WriteBytes(k[:], false); err != nil {
			return err
		}
	}
	if err := enc.WriteUint32(uint32(len(r.Seed)), binary.LittleEndian); err != nil {
		return err
	}
	return enc.WriteBytes(r.Seed, false)
}

// UnmarshalWithDecoder reads the record body (without discriminator).
func (r *Record) UnmarshalWithDecoder(dec *bin.Decoder) error {
	keys := []*solana.PublicKey{&r.TokenAMint, &r.TokenBMint, &r.TokenAReserve, &r.TokenBReserve, &r.AdminAuthority}
	for _, k := range keys {
		b, err := dec.ReadNBytes(solana.PublicKeyLength)
		if err != nil {
			return err
		}
		*k = solana.PublicKeyFromBytes(b)
	}
	n, err := dec.ReadUint32(binary.LittleEndian)
	if err != nil {
		return err
	}
	if n > constants.MaxSeedLen {
		return fmt.Errorf("%w: %d bytes", ErrSeedTooLong, n)
	}
	seed, err := dec.ReadNBytes(int(n))
	if err != nil {
		return err
	}
	r.Seed = append([]byte(nil), seed...)
	return nil
}

// Encode serializes the record as discriminator | body.
func (r *Record) Encode() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	buf := new(bytes.Buffer)
	buf.Grow(MinSize + len(r.Seed))
	buf.Write(Discriminator[:])
	if err := r.MarshalWithEncoder(bin.NewBorshEncoder(buf)); err != nil {
		return nil, fmt.Errorf("encode pool record: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses an encoded record and rejects one that Encode would refuse.
func Decode(data []byte) (*Record, error) {
	if len(data) < MinSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortData, len(data))
	}
	if !bytes.Equal(data[:8], Discriminator[:]) {
		return nil, ErrBadDiscriminator
	}
	var r Record
	if err := r.UnmarshalWithDecoder(bin.NewBorshDecoder(data[8:])); err != nil {
		return nil, fmt.Errorf("decode pool record: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("decode pool record: %w", err)
	}
	return &r, nil
}

func accountDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}
