package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/constants"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/models"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisConfig holds connection settings for Redis
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisCache keeps the recent swaps list and publishes swap events over
// Redis Pub/Sub.
type RedisCache struct {
	client *redis.Client
	logger *logrus.Logger
}

var _ storage.SwapCache = (*RedisCache)(nil)

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(ctx context.Context, cfg RedisConfig, logger *logrus.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisCacheFromClient(client, logger), nil
}

// NewRedisCacheFromClient wraps an existing client
func NewRedisCacheFromClient(client *redis.Client, logger *logrus.Logger) *RedisCache {
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisCache{client: client, logger: logger}
}

// Client exposes the underlying client for stores sharing the connection
func (c *RedisCache) Client() *redis.Client { return c.client }

func (c *RedisCache) AddRecentSwap(ctx context.Context, swap *models.SwapEvent) error {
	data, err := json.Marshal(swap)
	if err != nil {
		return fmt.Errorf("marshal swap: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.LPush(ctx, constants.RedisKeyRecentSwaps, data)
	pipe.LTrim(ctx, constants.RedisKeyRecentSwaps, 0, constants.MaxRecentSwaps-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("add recent swap: %w", err)
	}
	return nil
}

func (c *RedisCache) GetRecentSwaps(ctx context.Context, limit int64) ([]*models.SwapEvent, error) {
	if limit <= 0 {
		limit = constants.MaxRecentSwaps
	}
	vals, err := c.client.LRange(ctx, constants.RedisKeyRecentSwaps, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("get recent swaps: %w", err)
	}

	out := make([]*models.SwapEvent, 0, len(vals))
	for _, v := range vals {
		var s models.SwapEvent
		if err := json.Unmarshal([]byte(v), &s); err != nil {
			c.logger.WithError(err).Warn("skipping malformed cached swap")
			continue
		}
		out = append(out, &s)
	}
	return out, nil
}

// PublishSwap publishes to the global channel and the pool channel
func (c *RedisCache) PublishSwap(ctx context.Context, swap *models.SwapEvent) error {
	data, err := json.Marshal(swap)
	if err != nil {
		return fmt.Errorf("marshal swap: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.Publish(ctx, constants.PubSubChannelSwaps, data)
	pipe.Publish(ctx, poolChannel(swap.Pool), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish swap: %w", err)
	}
	return nil
}

func (c *RedisCache) SubscribeSwaps(ctx context.Context, pool string) (<-chan *models.SwapEvent, error) {
	channel := constants.PubSubChannelSwaps
	if pool != "" {
		channel = poolChannel(pool)
	}

	ps := c.client.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	out := make(chan *models.SwapEvent, 64)
	go func() {
		defer close(out)
		defer ps.Close()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var s models.SwapEvent
				if err := json.Unmarshal([]byte(msg.Payload), &s); err != nil {
					c.logger.WithError(err).WithField("channel", msg.Channel).Warn("dropping malformed swap message")
					continue
				}
				select {
				case out <- &s:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func poolChannel(pool string) string {
	return constants.PubSubChannelPoolPrefix + pool
}
