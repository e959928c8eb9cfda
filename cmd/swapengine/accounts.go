package main

import (
	"fmt"
	"strconv"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/rpc"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/server"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/wallet"
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
)

var (
	acctAddress string
	acctMint    string
	acctOwner   string
	acctAmount  uint64
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Token account helpers",
}

var accountsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a token account on a dev-mode ledger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		acct, err := api.CreateAccount(cmd.Context(), server.CreateAccountRequest{
			Address: acctAddress,
			Mint:    acctMint,
			Owner:   acctOwner,
			Amount:  acctAmount,
		})
		if err != nil {
			return err
		}
		printAccount("account", acct)
		return nil
	},
}

var accountsMintCmd = &cobra.Command{
	Use:   "mint <account> <amount>",
	Short: "Credit a token account on a dev-mode ledger",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", args[1], err)
		}
		acct, err := api.Mint(cmd.Context(), server.MintRequest{Address: args[0], Amount: amount})
		if err != nil {
			return err
		}
		printAccount("account", acct)
		return nil
	},
}

var accountsShowCmd = &cobra.Command{
	Use:   "show <account>",
	Short: "Read an SPL token account directly from the Solana cluster",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.RPCUrl == "" {
			return fmt.Errorf("no rpc url: set --rpc or SOLANA_RPC_URL")
		}
		addr, err := solana.PublicKeyFromBase58(args[0])
		if err != nil {
			return fmt.Errorf("invalid account %q: %w", args[0], err)
		}

		reader := rpc.NewTokenAccounts(rpc.NewClient(rpc.ClientConfig{
			BaseURL:      cfg.RPCUrl,
			Timeout:      cfg.Timeout,
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
			Logger:       logger,
		}))
		acct, err := reader.Account(cmd.Context(), addr)
		if err != nil {
			return err
		}
		fmt.Printf("address=%s mint=%s owner=%s amount=%d\n", acct.Address, acct.Mint, acct.Owner, acct.Amount)
		return nil
	},
}

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Signing key helpers",
}

var walletAddressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the configured wallet address",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		w, err := signer()
		if err != nil {
			return err
		}
		fmt.Println(w.Address())
		return nil
	},
}

var walletNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Generate a new keypair",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		w, err := wallet.Generate()
		if err != nil {
			return err
		}
		fmt.Printf("address=%s\nprivate_key=%s\n", w.Address(), w.PrivateKeyBase58())
		return nil
	},
}

func init() {
	f := accountsCreateCmd.Flags()
	f.StringVar(&acctAddress, "address", "", "account address (random when empty)")
	f.StringVar(&acctMint, "mint", "", "token mint")
	f.StringVar(&acctOwner, "owner", "", "account owner")
	f.Uint64Var(&acctAmount, "amount", 0, "opening balance")
	_ = accountsCreateCmd.MarkFlagRequired("mint")
	_ = accountsCreateCmd.MarkFlagRequired("owner")

	accountsCmd.AddCommand(accountsCreateCmd, accountsMintCmd, accountsShowCmd)
	walletCmd.AddCommand(walletAddressCmd, walletNewCmd)
}
