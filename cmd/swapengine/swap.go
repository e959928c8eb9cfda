package main

import (
	"fmt"
	"time"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/server"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/wallet"
	"github.com/spf13/cobra"
)

var (
	swapDirection string
	swapAmount    uint64
	swapUserA     string
	swapUserB     string
	swapPoolA     string
	swapPoolB     string

	recentLimit int
)

var swapCmd = &cobra.Command{
	Use:   "swap <pool>",
	Short: "Swap tokens 1:1 against a pool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := signer()
		if err != nil {
			return err
		}
		pool := args[0]

		req := server.SwapRequest{
			Direction:  swapDirection,
			Amount:     swapAmount,
			Caller:     w.Address(),
			UserTokenA: swapUserA,
			UserTokenB: swapUserB,
			PoolTokenA: swapPoolA,
			PoolTokenB: swapPoolB,
			ExpiresAt:  expiresAt(),
		}
		req.Signature, err = w.Sign(wallet.SwapIntent{
			Pool:       pool,
			Direction:  req.Direction,
			Amount:     req.Amount,
			Caller:     req.Caller,
			UserTokenA: req.UserTokenA,
			UserTokenB: req.UserTokenB,
			PoolTokenA: req.PoolTokenA,
			PoolTokenB: req.PoolTokenB,
			ExpiresAt:  req.ExpiresAt,
		})
		if err != nil {
			return err
		}

		res, err := api.Swap(cmd.Context(), pool, req)
		if err != nil {
			return err
		}
		fmt.Printf("success=true id=%s direction=%s amount=%d duration=%s\n",
			res.ID, res.Direction, res.Amount, time.Duration(res.TookMs)*time.Millisecond)
		fmt.Printf("  caller in=%d out=%d\n", res.CallerIn, res.CallerOut)
		fmt.Printf("  reserve in=%d out=%d\n", res.ReserveIn, res.ReserveOut)
		return nil
	},
}

var swapsCmd = &cobra.Command{
	Use:   "swaps",
	Short: "Query executed swaps",
}

var swapsRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show the most recent swaps",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		items, err := api.RecentSwaps(cmd.Context(), recentLimit)
		if err != nil {
			return err
		}
		for _, s := range items {
			fmt.Printf("%s %s pool=%s caller=%s %s amount=%d\n",
				s.Timestamp.Format(time.RFC3339), s.ID, s.Pool, s.Caller, s.Direction, s.AmountIn)
		}
		return nil
	},
}

func init() {
	f := swapCmd.Flags()
	f.StringVar(&swapDirection, "direction", "a_to_b", "a_to_b or b_to_a")
	f.Uint64Var(&swapAmount, "amount", 0, "amount in base units")
	f.StringVar(&swapUserA, "user-a", "", "your token A account")
	f.StringVar(&swapUserB, "user-b", "", "your token B account")
	f.StringVar(&swapPoolA, "pool-a", "", "pool token A reserve (defaults to the recorded reserve)")
	f.StringVar(&swapPoolB, "pool-b", "", "pool token B reserve (defaults to the recorded reserve)")
	_ = swapCmd.MarkFlagRequired("amount")
	_ = swapCmd.MarkFlagRequired("user-a")
	_ = swapCmd.MarkFlagRequired("user-b")

	swapsRecentCmd.Flags().IntVar(&recentLimit, "limit", 20, "number of swaps")
	swapsCmd.AddCommand(swapsRecentCmd)
}
