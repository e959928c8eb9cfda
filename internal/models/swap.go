package models

import "time"

// SwapEvent records one completed pool swap.
type SwapEvent struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Pool       string    `json:"pool"`
	Caller     string    `json:"caller"`
	Direction  string    `json:"direction"` // "a_to_b" or "b_to_a"
	MintIn     string    `json:"mint_in"`
	MintOut    string    `json:"mint_out"`
	AmountIn   uint64    `json:"amount_in"`
	AmountOut  uint64    `json:"amount_out"`
	ReserveIn  uint64    `json:"reserve_in"`  // pool source reserve after the swap
	ReserveOut uint64    `json:"reserve_out"` // pool destination reserve after the swap
	CallerIn   uint64    `json:"caller_in"`   // caller source balance after the swap
	CallerOut  uint64    `json:"caller_out"`  // caller destination balance after the swap
}
