// Package bootstrap wires the engine to the backends selected in config.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/cache"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/config"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/ledger"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/ledger/memory"
	pgledger "github.com/aman-zulfiqar/solana-pool-swap/internal/ledger/postgres"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/observability"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/rpc"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/storage"
	storemem "github.com/aman-zulfiqar/solana-pool-swap/internal/storage/memory"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/storage/migrations"
	pgstore "github.com/aman-zulfiqar/solana-pool-swap/internal/storage/postgres"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/swapengine"
	"github.com/sirupsen/logrus"
)

// Services is everything the API needs, built from one Config.
type Services struct {
	Engine *swapengine.Engine
	Ledger ledger.Ledger

	// Bootstrapper is set when the ledger supports account creation; the
	// API only exposes it in dev mode.
	Bootstrapper ledger.Bootstrapper

	Pools   storage.PoolStore
	Cache   storage.SwapCache
	History storage.SwapStore // nil without ClickHouse
	Replay  storage.ReplayGuard

	// Cluster reads live token accounts; nil without SOLANA_RPC_URL.
	Cluster ledger.AccountReader

	// Redis is non-nil when swap events flow through Redis.
	Redis *cache.RedisCache

	closers []io.Closer
}

// Build connects every configured backend, applies migrations and creates
// the engine. On error, anything already opened is closed.
func Build(ctx context.Context, cfg *config.Config, logger *logrus.Logger, metrics *observability.Metrics) (_ *Services, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	programID, err := cfg.Program()
	if err != nil {
		return nil, err
	}

	s := &Services{}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	var pg *pgstore.Pool
	if cfg.LedgerBackend == config.BackendPostgres || cfg.PoolStore == config.BackendPostgres {
		pg, err = pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, closeFunc(func() error { pg.Close(); return nil }))

		if err := migrations.RunPostgresMigrations(ctx, pg); err != nil {
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		logger.Info("postgres migrations applied")
	}

	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: cfg.RedisAddr}, logger)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, rc)
		s.Redis = rc
		s.Cache = rc
		s.Replay = cache.NewReplayGuard(rc.Client())
	} else {
		s.Cache = storemem.NewSwapCache()
		s.Replay = storemem.NewReplayGuard()
	}

	switch cfg.PoolStore {
	case config.BackendMemory:
		s.Pools = storemem.NewPoolStore()
	case config.BackendRedis:
		if s.Redis == nil {
			return nil, errors.New("redis pool store needs REDIS_ADDR")
		}
		if s.Pools, err = cache.NewPoolStore(s.Redis.Client(), logger); err != nil {
			return nil, err
		}
	case config.BackendPostgres:
		s.Pools = pgstore.NewPoolStore(pg)
	}

	switch cfg.LedgerBackend {
	case config.BackendMemory:
		l := memory.New()
		s.Ledger, s.Bootstrapper = l, l
	case config.BackendPostgres:
		l := pgledger.New(pg, pgledger.Config{
			MaxRetries:   cfg.LedgerMaxRetries,
			RetryBackoff: cfg.LedgerRetryBackoff,
			Logger:       logger,
		})
		s.Ledger, s.Bootstrapper = l, l
	}

	if cfg.ClickHouseAddr != "" {
		ch, err := cache.NewClickHouseStore(ctx, cache.ClickHouseConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, ch)
		if err := migrations.RunClickhouseMigrations(ctx, ch.Conn()); err != nil {
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		s.History = ch
	}

	if cfg.RPCUrl != "" {
		s.Cluster = rpc.NewTokenAccounts(rpc.NewClient(rpc.ClientConfig{
			BaseURL:      cfg.RPCUrl,
			Timeout:      cfg.HTTPTimeout,
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
			Logger:       logger,
		}))
	}

	deps := swapengine.Dependencies{
		Ledger:  s.Ledger,
		Pools:   s.Pools,
		Cache:   s.Cache,
		History: s.History,
		Metrics: metrics,
		Logger:  logger,
	}

	s.Engine, err = swapengine.NewEngine(swapengine.DefaultEngineConfig(programID), deps)
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"program_id": programID.String(),
		"ledger":     cfg.LedgerBackend,
		"pool_store": cfg.PoolStore,
		"redis":      s.Redis != nil,
		"history":    s.History != nil,
		"cluster":    s.Cluster != nil,
	}).Info("swap engine ready")

	return s, nil
}

// Close releases every backend connection in reverse order of opening.
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

type closeFunc func() error

func (f closeFunc) Close() error { return f() }
