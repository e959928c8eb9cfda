package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/constants"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/storage"
	"github.com/redis/go-redis/v9"
)

// ReplayGuard stores seen request signatures with SETNX and a TTL.
type ReplayGuard struct {
	client redis.Cmdable
}

var _ storage.ReplayGuard = (*ReplayGuard)(nil)

func NewReplayGuard(client redis.Cmdable) *ReplayGuard {
	return &ReplayGuard{client: client}
}

func (g *ReplayGuard) Remember(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := g.client.SetNX(ctx, constants.RedisKeyNoncePrefix+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("remember nonce: %w", err)
	}
	return ok, nil
}
