package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/models"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/storage"
	"github.com/sirupsen/logrus"
)

// ClickHouseConfig holds connection settings for ClickHouse
type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Logger   *logrus.Logger
}

// ClickHouseStore appends swap events to the pool_swaps table.
type ClickHouseStore struct {
	conn   driver.Conn
	logger *logrus.Logger
}

var _ storage.SwapStore = (*ClickHouseStore)(nil)

func NewClickHouseStore(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseStore, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Username == "" {
		cfg.Username = "default"
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	cfg.Logger.WithFields(logrus.Fields{
		"addr":     cfg.Addr,
		"database": cfg.Database,
	}).Info("connected to ClickHouse")

	return &ClickHouseStore{conn: conn, logger: cfg.Logger}, nil
}

// Conn exposes the connection for migrations.
func (c *ClickHouseStore) Conn() driver.Conn { return c.conn }

func (c *ClickHouseStore) InsertSwap(ctx context.Context, swap *models.SwapEvent) error {
	query := `
		INSERT INTO pool_swaps (
			id, timestamp, pool, caller, direction, mint_in, mint_out,
			amount_in, amount_out, reserve_in, reserve_out
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := c.conn.Exec(ctx, query,
		swap.ID,
		swap.Timestamp,
		swap.Pool,
		swap.Caller,
		swap.Direction,
		swap.MintIn,
		swap.MintOut,
		swap.AmountIn,
		swap.AmountOut,
		swap.ReserveIn,
		swap.ReserveOut,
	)
	if err != nil {
		return fmt.Errorf("failed to insert swap: %w", err)
	}
	return nil
}

func (c *ClickHouseStore) PoolVolume(ctx context.Context, pool string) (*models.PoolVolume, error) {
	query := `
		SELECT
			countIf(direction = 'a_to_b'),
			countIf(direction = 'b_to_a'),
			sumIf(amount_in, direction = 'a_to_b'),
			sumIf(amount_in, direction = 'b_to_a'),
			max(timestamp)
		FROM pool_swaps
		WHERE pool = ?
	`

	out := &models.PoolVolume{Pool: pool}
	row := c.conn.QueryRow(ctx, query, pool)
	if err := row.Scan(&out.SwapsAToB, &out.SwapsBToA, &out.VolumeAToB, &out.VolumeBToA, &out.LastSwapAt); err != nil {
		return nil, fmt.Errorf("query pool volume: %w", err)
	}
	return out, nil
}

func (c *ClickHouseStore) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *ClickHouseStore) Close() error {
	return c.conn.Close()
}
