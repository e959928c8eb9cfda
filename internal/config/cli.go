package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// CLIConfig holds settings for the operator CLI, merged from flags,
// SWAPENGINE_* environment variables and an optional config file.
type CLIConfig struct {
	APIURL       string
	APIKey       string
	PrivateKey   string
	RPCUrl       string
	ProgramID    string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
}

// LoadCLI merges config file, environment variables, and flags into CLIConfig.
// WALLET_PRIVATE_KEY and SOLANA_RPC_URL are honoured without the prefix so
// the CLI shares a .env file with the API.
func LoadCLI(cfgFile string, flags *pflag.FlagSet) (CLIConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("SWAPENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("api", "http://localhost:8080")
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")
	v.SetDefault("program-id", getEnv("PROGRAM_ID", ""))

	if err := v.BindEnv("private-key", "SWAPENGINE_PRIVATE_KEY", "WALLET_PRIVATE_KEY"); err != nil {
		return CLIConfig{}, fmt.Errorf("bind env: %w", err)
	}
	if err := v.BindEnv("rpc", "SWAPENGINE_RPC", "SOLANA_RPC_URL"); err != nil {
		return CLIConfig{}, fmt.Errorf("bind env: %w", err)
	}
	if err := v.BindEnv("api-key", "SWAPENGINE_API_KEY", "API_KEY"); err != nil {
		return CLIConfig{}, fmt.Errorf("bind env: %w", err)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return CLIConfig{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return CLIConfig{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("swapengine")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return CLIConfig{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return CLIConfig{
		APIURL:       strings.TrimRight(v.GetString("api"), "/"),
		APIKey:       v.GetString("api-key"),
		PrivateKey:   v.GetString("private-key"),
		RPCUrl:       v.GetString("rpc"),
		ProgramID:    v.GetString("program-id"),
		Timeout:      v.GetDuration("timeout"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
	}, nil
}
