package rpc

import (
	"encoding/base64"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// RPCError represents a JSON-RPC error response
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// ResponseContext carries the slot a result was read at
type ResponseContext struct {
	Slot uint64 `json:"slot"`
}

// AccountInfo is the "value" of a getAccountInfo result
type AccountInfo struct {
	Data       []string `json:"data"` // [payload, encoding]
	Owner      string   `json:"owner"`
	Lamports   uint64   `json:"lamports"`
	Executable bool     `json:"executable"`
}

// Bytes decodes the base64 account payload.
func (a *AccountInfo) Bytes() ([]byte, error) {
	if len(a.Data) != 2 || a.Data[1] != "base64" {
		return nil, fmt.Errorf("unexpected account data encoding %v", a.Data)
	}
	return base64.StdEncoding.DecodeString(a.Data[0])
}

// AccountInfoResult is the result of getAccountInfo; Value is nil for a
// missing account
type AccountInfoResult struct {
	Context ResponseContext `json:"context"`
	Value   *AccountInfo    `json:"value"`
}

// AccountInfoResponse is the response from getAccountInfo
type AccountInfoResponse struct {
	Result *AccountInfoResult `json:"result"`
	Error  *RPCError          `json:"error"`
}

// TokenAccountSize is the length of an SPL token account.
const TokenAccountSize = 165

// tokenAccountLayout is the SPL token account layout.
type tokenAccountLayout struct {
	Mint                 solana.PublicKey
	Owner                solana.PublicKey
	Amount               uint64
	DelegateOption       [4]byte
	Delegate             solana.PublicKey
	State                uint8
	IsNativeOption       [4]byte
	IsNative             uint64
	DelegatedAmount      uint64
	CloseAuthorityOption [4]byte
	CloseAuthority       solana.PublicKey
}
