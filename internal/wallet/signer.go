package wallet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrBadSignature = errors.New("signature does not match signer")
	ErrExpired      = errors.New("signed request expired")
)

// Intent is a request whose canonical bytes are signed by its caller.
type Intent interface {
	Message() []byte
	Expiry() time.Time
}

// SwapIntent is the signed content of a swap request. Empty pool token
// fields mean "use the reserves stored in the pool record".
type SwapIntent struct {
	Pool       string
	Direction  string
	Amount     uint64
	Caller     string
	UserTokenA string
	UserTokenB string
	PoolTokenA string
	PoolTokenB string
	ExpiresAt  int64 // unix seconds
}

func (i SwapIntent) Message() []byte {
	return canonical("swap",
		i.Pool,
		i.Direction,
		strconv.FormatUint(i.Amount, 10),
		i.Caller,
		i.UserTokenA,
		i.UserTokenB,
		i.PoolTokenA,
		i.PoolTokenB,
		strconv.FormatInt(i.ExpiresAt, 10),
	)
}

func (i SwapIntent) Expiry() time.Time { return time.Unix(i.ExpiresAt, 0) }

// InitializeIntent is the signed content of a pool initialize request.
type InitializeIntent struct {
	Seed          string
	TokenAMint    string
	TokenBMint    string
	TokenAReserve string
	TokenBReserve string
	Creator       string
	ExpiresAt     int64
}

func (i InitializeIntent) Message() []byte {
	return canonical("initialize",
		i.Seed,
		i.TokenAMint,
		i.TokenBMint,
		i.TokenAReserve,
		i.TokenBReserve,
		i.Creator,
		strconv.FormatInt(i.ExpiresAt, 10),
	)
}

func (i InitializeIntent) Expiry() time.Time { return time.Unix(i.ExpiresAt, 0) }

// canonical joins fields with '|'. The seed is the only free-form field and
// is quoted so it cannot shift the others.
func canonical(op string, fields ...string) []byte {
	var b strings.Builder
	b.WriteString("solana-pool-swap/v1|")
	b.WriteString(op)
	for _, f := range fields {
		b.WriteByte('|')
		b.WriteString(strconv.Quote(f))
	}
	return []byte(b.String())
}

// Sign returns the base58 signature over intent's canonical message.
func (w *Wallet) Sign(intent Intent) (string, error) {
	sig, err := w.priv.Sign(intent.Message())
	if err != nil {
		return "", fmt.Errorf("wallet: sign: %w", err)
	}
	return sig.String(), nil
}

// Verify checks that signature was produced by signer over intent and that
// intent has not expired at now.
func Verify(signer solana.PublicKey, intent Intent, signature string, now time.Time) error {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return fmt.Errorf("%w: malformed signature: %v", ErrBadSignature, err)
	}
	if !sig.Verify(signer, intent.Message()) {
		return ErrBadSignature
	}
	if !now.Before(intent.Expiry()) {
		return fmt.Errorf("%w at %s", ErrExpired, intent.Expiry().UTC().Format(time.RFC3339))
	}
	return nil
}
