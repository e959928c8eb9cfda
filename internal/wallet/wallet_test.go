package wallet

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ParsesBothFormats(t *testing.T) {
	w, err := Generate()
	require.NoError(t, err)

	fromB58, err := New(w.PrivateKeyBase58())
	require.NoError(t, err)
	assert.Equal(t, w.PublicKey(), fromB58.PublicKey())

	ints := make([]int, 0, 64)
	for _, b := range w.priv {
		ints = append(ints, int(b))
	}
	raw, err := json.Marshal(ints)
	require.NoError(t, err)

	fromJSON, err := New(string(raw))
	require.NoError(t, err)
	assert.Equal(t, w.Address(), fromJSON.Address())
}

func TestNew_Rejects(t *testing.T) {
	for _, in := range []string{"", "   ", "[1,2,3]", "[999]", "not-base58-0OIl", "3yZe7d"} {
		_, err := New(in)
		assert.Error(t, err, in)
	}
}

func TestSignVerify(t *testing.T) {
	w, err := Generate()
	require.NoError(t, err)
	now := time.Unix(1_700_000_000, 0)

	intent := SwapIntent{
		Pool:       "pool",
		Direction:  "a_to_b",
		Amount:     40,
		Caller:     w.Address(),
		UserTokenA: "ua",
		UserTokenB: "ub",
		ExpiresAt:  now.Add(time.Minute).Unix(),
	}
	sig, err := w.Sign(intent)
	require.NoError(t, err)

	require.NoError(t, Verify(w.PublicKey(), intent, sig, now))

	tampered := intent
	tampered.Amount = 41
	assert.ErrorIs(t, Verify(w.PublicKey(), tampered, sig, now), ErrBadSignature)

	other, err := Generate()
	require.NoError(t, err)
	assert.ErrorIs(t, Verify(other.PublicKey(), intent, sig, now), ErrBadSignature)

	assert.ErrorIs(t, Verify(w.PublicKey(), intent, sig, now.Add(time.Hour)), ErrExpired)
	assert.ErrorIs(t, Verify(w.PublicKey(), intent, "garbage", now), ErrBadSignature)
}

func TestCanonical_FieldsCannotShift(t *testing.T) {
	a := InitializeIntent{Seed: "a|b", TokenAMint: "c"}
	b := InitializeIntent{Seed: "a", TokenAMint: "b|c"}
	assert.NotEqual(t, a.Message(), b.Message())

	s := SwapIntent{Pool: "p"}
	i := InitializeIntent{Seed: "p"}
	assert.NotEqual(t, s.Message(), i.Message())
}
