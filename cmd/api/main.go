package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/bootstrap"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/cache"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/config"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/constants"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/logging"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/models"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/observability"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/server"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	// Get the project root directory (where go.mod is)
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// main is the entry point for the API server
// It wires the swap engine to its backends and serves it with graceful shutdown
func main() {
	// bootstrap logger until the configured one exists
	boot := logrus.New()
	boot.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})

	// load .env BEFORE anything reads os.Getenv
	loadEnv(boot)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		boot.WithError(err).Fatal("invalid configuration")
	}

	logger, logCloser, err := logging.New(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		boot.WithError(err).Fatal("invalid logging configuration")
	}
	defer logCloser.Close()

	// Cancelled on Ctrl+C or SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := bootstrap.Build(ctx, cfg, logger, observability.DefaultMetrics)
	if err != nil {
		logger.WithError(err).Fatal("failed to start services")
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.WithError(err).Warn("error closing backends")
		}
	}()

	// Create handlers with all dependencies injected
	h := &server.Handlers{
		Engine:       svc.Engine,
		Cache:        svc.Cache,
		History:      svc.History,
		Replay:       svc.Replay,
		Bootstrapper: svc.Bootstrapper,
		Cluster:      svc.Cluster,
		SignatureTTL: cfg.SignatureTTL,
		DevMode:      cfg.DevMode,
		Logger:       logger,
		Metrics:      observability.DefaultMetrics,
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:      cfg.APIAddr,
			DevMode:   cfg.DevMode,
			APIKey:    cfg.APIKey,
			RateLimit: cfg.RateLimit,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.WithField("addr", cfg.APIAddr).Info("api server starting")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return srv.Shutdown(context.Background())
	})

	// Log every swap that crosses Redis, including those from other replicas
	if svc.Redis != nil && logger.IsLevelEnabled(logrus.DebugLevel) {
		ps := cache.NewPubSubManager(svc.Redis.Client(), logger)
		g.Go(func() error {
			err := ps.PSubscribe(gctx, constants.PubSubChannelPoolPrefix+"*", func(ev *models.SwapEvent) {
				logger.WithFields(logrus.Fields{
					"pool":      ev.Pool,
					"direction": ev.Direction,
					"amount":    ev.AmountIn,
				}).Debug("swap event")
			})
			if err != nil {
				logger.WithError(err).Warn("swap event subscription ended")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("api server failed")
	}

	if err := srv.WaitClosed(context.Background()); err != nil {
		logger.WithError(err).Warn("server did not close cleanly")
	}
}
