// Command subscriber tails swap events published to Redis by the API.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/cache"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/config"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/constants"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/logging"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/models"
	"github.com/sirupsen/logrus"
)

func main() {
	pool := flag.String("pool", "", "only show swaps for this pool address")
	flag.Parse()

	cfg := config.Load()
	logger, closer, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		logrus.WithError(err).Fatal("invalid logging configuration")
	}
	defer closer.Close()

	if cfg.RedisAddr == "" {
		logger.Fatal("REDIS_ADDR is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: cfg.RedisAddr}, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}
	defer rc.Close()

	pubsub := cache.NewPubSubManager(rc.Client(), logger)

	handle := func(swap *models.SwapEvent) {
		logger.WithFields(logrus.Fields{
			"id":          swap.ID,
			"pool":        swap.Pool,
			"caller":      swap.Caller,
			"direction":   swap.Direction,
			"amount":      swap.AmountIn,
			"reserve_in":  swap.ReserveIn,
			"reserve_out": swap.ReserveOut,
		}).Info("swap")
	}

	logger.Info("subscriber running, press Ctrl+C to stop")

	if *pool != "" {
		err = pubsub.Subscribe(ctx, constants.PubSubChannelPoolPrefix+*pool, handle)
	} else {
		err = pubsub.Subscribe(ctx, constants.PubSubChannelSwaps, handle)
	}
	if err != nil && ctx.Err() == nil {
		logger.WithError(err).Fatal("subscription failed")
	}
	logger.Info("shutting down subscriber")
}
