package models

import "time"

// PoolVolume aggregates swap history for one pool.
type PoolVolume struct {
	Pool       string    `json:"pool"`
	SwapsAToB  uint64    `json:"swaps_a_to_b"`
	SwapsBToA  uint64    `json:"swaps_b_to_a"`
	VolumeAToB uint64    `json:"volume_a_to_b"`
	VolumeBToA uint64    `json:"volume_b_to_a"`
	LastSwapAt time.Time `json:"last_swap_at"`
}
