package main

import (
	"fmt"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/authority"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/server"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/wallet"
	"github.com/spf13/cobra"
)

var (
	initSeed     string
	initMintA    string
	initMintB    string
	initReserveA string
	initReserveB string

	inspectRPC bool
)

var poolsCmd = &cobra.Command{
	Use:   "pools",
	Short: "Create and inspect pools",
}

var poolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every pool",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		pools, err := api.Pools(cmd.Context())
		if err != nil {
			return err
		}
		for _, p := range pools {
			printPool(p)
		}
		return nil
	},
}

var poolsGetCmd = &cobra.Command{
	Use:   "get <pool>",
	Short: "Show one pool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := api.Pool(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printPool(*p)
		return nil
	},
}

var poolsAddressCmd = &cobra.Command{
	Use:   "address <seed>",
	Short: "Derive the pool and authority addresses for a seed",
	Long:  "Derive the pool and authority addresses for a seed. Reserve accounts must be owned by the authority before the pool can be created.",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		pid, err := programID()
		if err != nil {
			return err
		}
		seed := []byte(args[0])
		addr, err := authority.PoolAddress(pid, seed)
		if err != nil {
			return err
		}
		auth, err := authority.Derive(pid, seed)
		if err != nil {
			return err
		}
		fmt.Printf("pool=%s authority=%s bump=%d\n", addr, auth.Address, auth.Bump)
		return nil
	},
}

var poolsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a pool signed by the configured wallet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		w, err := signer()
		if err != nil {
			return err
		}

		req := server.InitializePoolRequest{
			Seed:          initSeed,
			TokenAMint:    initMintA,
			TokenBMint:    initMintB,
			TokenAReserve: initReserveA,
			TokenBReserve: initReserveB,
			Creator:       w.Address(),
			ExpiresAt:     expiresAt(),
		}
		req.Signature, err = w.Sign(wallet.InitializeIntent{
			Seed:          req.Seed,
			TokenAMint:    req.TokenAMint,
			TokenBMint:    req.TokenBMint,
			TokenAReserve: req.TokenAReserve,
			TokenBReserve: req.TokenBReserve,
			Creator:       req.Creator,
			ExpiresAt:     req.ExpiresAt,
		})
		if err != nil {
			return err
		}

		p, err := api.InitializePool(cmd.Context(), req)
		if err != nil {
			return err
		}
		printPool(*p)
		return nil
	},
}

var poolsInspectCmd = &cobra.Command{
	Use:   "inspect <pool>",
	Short: "Show reserve balances and binding problems",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := "ledger"
		if inspectRPC {
			source = "cluster"
		}
		insp, err := api.Inspect(cmd.Context(), args[0], source)
		if err != nil {
			return err
		}
		printPool(insp.Pool)
		fmt.Printf("source=%s healthy=%v\n", insp.Source, insp.Healthy)
		printAccount("reserve_a", insp.ReserveA)
		printAccount("reserve_b", insp.ReserveB)
		for _, p := range insp.Problems {
			fmt.Printf("  problem: %s\n", p)
		}
		return nil
	},
}

func init() {
	f := poolsInitCmd.Flags()
	f.StringVar(&initSeed, "seed", "", "pool seed")
	f.StringVar(&initMintA, "mint-a", "", "token A mint")
	f.StringVar(&initMintB, "mint-b", "", "token B mint")
	f.StringVar(&initReserveA, "reserve-a", "", "token A reserve account, owned by the pool authority")
	f.StringVar(&initReserveB, "reserve-b", "", "token B reserve account, owned by the pool authority")
	for _, name := range []string{"seed", "mint-a", "mint-b", "reserve-a", "reserve-b"} {
		_ = poolsInitCmd.MarkFlagRequired(name)
	}

	poolsInspectCmd.Flags().BoolVar(&inspectRPC, "rpc", false, "read reserves from the Solana cluster instead of the ledger")

	poolsCmd.AddCommand(poolsListCmd, poolsGetCmd, poolsAddressCmd, poolsInitCmd, poolsInspectCmd)
}

func printPool(p server.PoolResponse) {
	fmt.Printf("pool=%s seed=%q authority=%s bump=%d\n", p.Address, p.Seed, p.Authority, p.Bump)
	fmt.Printf("  token_a mint=%s reserve=%s\n", p.TokenAMint, p.TokenAReserve)
	fmt.Printf("  token_b mint=%s reserve=%s\n", p.TokenBMint, p.TokenBReserve)
	fmt.Printf("  admin=%s\n", p.AdminAuthority)
}

func printAccount(label string, a *server.AccountResponse) {
	if a == nil {
		fmt.Printf("  %s: unavailable\n", label)
		return
	}
	fmt.Printf("  %s address=%s mint=%s owner=%s amount=%d\n", label, a.Address, a.Mint, a.Owner, a.Amount)
}
