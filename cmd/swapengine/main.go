package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/client"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/config"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/constants"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/logging"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/wallet"
	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgFile      string
	signatureTTL time.Duration

	cfg    config.CLIConfig
	logger *logrus.Logger
	api    *client.Client

	rootCmd = &cobra.Command{
		Use:          "swapengine",
		Short:        "Operate 1:1 swap pools through the swap API",
		SilenceUsage: true,
	}
)

func loadEnv() {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	_ = godotenv.Load(filepath.Join(projectRoot, ".env"))
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default ./swapengine.yaml)")
	pf.String("api", "http://localhost:8080", "swap API base URL")
	pf.String("api-key", "", "API key sent as X-API-Key")
	pf.String("private-key", "", "signing key, base58 or JSON byte array")
	pf.String("rpc", "", "Solana RPC URL for direct account reads")
	pf.String("program-id", "", "program id used for local address derivation")
	pf.Duration("timeout", 30*time.Second, "request timeout")
	pf.Int("max-retries", 3, "retries for rate limited or failed requests")
	pf.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	pf.String("log-level", "info", "debug, info, warn or error")
	pf.DurationVar(&signatureTTL, "signature-ttl", time.Minute, "lifetime of signed requests")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.LoadCLI(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		logger, _, err = logging.New(logging.Config{Level: cfg.LogLevel})
		if err != nil {
			return err
		}
		api = client.New(client.Config{
			BaseURL:      cfg.APIURL,
			APIKey:       cfg.APIKey,
			Timeout:      cfg.Timeout,
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
			Logger:       logger,
		})
		return nil
	}

	rootCmd.AddCommand(
		healthCmd,
		walletCmd,
		poolsCmd,
		swapCmd,
		swapsCmd,
		accountsCmd,
	)
}

func main() {
	loadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check API health",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		h, err := api.Health(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("ok=%v program_id=%s\n", h.OK, h.ProgramID)
		for name, status := range h.Checks {
			fmt.Printf("  %s: %s\n", name, status)
		}
		return nil
	},
}

// signer loads the configured wallet.
func signer() (*wallet.Wallet, error) {
	if cfg.PrivateKey == "" {
		return nil, fmt.Errorf("no signing key: set --private-key or WALLET_PRIVATE_KEY")
	}
	return wallet.New(cfg.PrivateKey)
}

func expiresAt() int64 {
	return time.Now().Add(signatureTTL).Unix()
}

func programID() (solana.PublicKey, error) {
	id := cfg.ProgramID
	if id == "" {
		id = constants.DefaultProgramID
	}
	pk, err := solana.PublicKeyFromBase58(id)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid program id %q: %w", id, err)
	}
	return pk, nil
}
