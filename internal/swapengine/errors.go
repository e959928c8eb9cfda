package swapengine

import (
	"errors"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/authority"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/storage"
)

// Engine failures. Every error returned by the engine wraps exactly one of
// these, or a ledger/storage error when the host itself failed.
var (
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidMint       = errors.New("invalid mint")
	ErrInvalidOwner      = errors.New("invalid owner")
	ErrInvalidAccount    = errors.New("invalid account")
	ErrInvalidSeed       = authority.ErrInvalidSeed
	ErrPoolExists        = storage.ErrPoolExists
	ErrPoolNotFound      = storage.ErrPoolNotFound
)

// ErrorKind is the stable name of an engine failure.
type ErrorKind string

const (
	KindInvalidAmount     ErrorKind = "InvalidAmount"
	KindInsufficientFunds ErrorKind = "InsufficientFunds"
	KindInvalidMint       ErrorKind = "InvalidMint"
	KindInvalidOwner      ErrorKind = "InvalidOwner"
	KindInvalidAccount    ErrorKind = "InvalidAccount"
	KindInvalidSeed       ErrorKind = "InvalidSeed"
	KindPoolExists        ErrorKind = "PoolExists"
	KindPoolNotFound      ErrorKind = "PoolNotFound"
	KindInternal          ErrorKind = "Internal"
)

var kinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrInvalidAmount, KindInvalidAmount},
	{ErrInsufficientFunds, KindInsufficientFunds},
	{ErrInvalidMint, KindInvalidMint},
	{ErrInvalidOwner, KindInvalidOwner},
	{ErrInvalidAccount, KindInvalidAccount},
	{ErrInvalidSeed, KindInvalidSeed},
	{ErrPoolExists, KindPoolExists},
	{ErrPoolNotFound, KindPoolNotFound},
}

// Kind classifies err. It returns "" for nil and KindInternal for errors
// that did not originate from an engine check.
func Kind(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
