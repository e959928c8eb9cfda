package cache

import (
	"context"
	"fmt"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/constants"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/pool"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/storage"
	"github.com/gagliardetto/solana-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// createPool indexes the address and writes the record in one script.
// SADD runs first: if it fails the script aborts before the record exists.
var createPool = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('SADD', KEYS[2], ARGV[2])
redis.call('SET', KEYS[1], ARGV[1])
return 1
`)

// PoolStore persists encoded pool records in Redis. A record lives at
// pools:<address> and every address is listed in the pools:index set.
type PoolStore struct {
	client redis.Cmdable
	logger *logrus.Logger
}

var _ storage.PoolStore = (*PoolStore)(nil)

func NewPoolStore(client redis.Cmdable, logger *logrus.Logger) (*PoolStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &PoolStore{client: client, logger: logger}, nil
}

// Create writes the record and its index entry atomically; the first
// writer wins.
func (s *PoolStore) Create(ctx context.Context, addr solana.PublicKey, rec *pool.Record) error {
	data, err := rec.Encode()
	if err != nil {
		return err
	}

	created, err := createPool.Run(ctx, s.client,
		[]string{poolKey(addr), constants.RedisKeyPoolIndex},
		data, addr.String(),
	).Int()
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}
	if created == 0 {
		return fmt.Errorf("%w: %s", storage.ErrPoolExists, addr)
	}
	return nil
}

func (s *PoolStore) Get(ctx context.Context, addr solana.PublicKey) (*pool.Record, error) {
	val, err := s.client.Get(ctx, poolKey(addr)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: %s", storage.ErrPoolNotFound, addr)
	}
	if err != nil {
		return nil, fmt.Errorf("get pool: %w", err)
	}
	return pool.Decode(val)
}

// List returns every indexed pool. Index entries that do not parse or
// point at no record are logged and skipped.
func (s *PoolStore) List(ctx context.Context) (map[solana.PublicKey]*pool.Record, error) {
	members, err := s.client.SMembers(ctx, constants.RedisKeyPoolIndex).Result()
	if err != nil {
		return nil, fmt.Errorf("list pools index: %w", err)
	}

	out := make(map[solana.PublicKey]*pool.Record, len(members))
	if len(members) == 0 {
		return out, nil
	}

	addrs := make([]solana.PublicKey, 0, len(members))
	keys := make([]string, 0, len(members))
	for _, m := range members {
		addr, err := solana.PublicKeyFromBase58(m)
		if err != nil {
			s.logger.WithError(err).WithField("member", m).Warn("skipping malformed pool index entry")
			continue
		}
		addrs = append(addrs, addr)
		keys = append(keys, poolKey(addr))
	}
	if len(keys) == 0 {
		return out, nil
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget pools: %w", err)
	}

	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			s.logger.WithField("pool", addrs[i].String()).Warn("pool index entry has no record")
			continue
		}
		rec, err := pool.Decode([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("decode pool %s: %w", addrs[i], err)
		}
		out[addrs[i]] = rec
	}
	return out, nil
}

func poolKey(addr solana.PublicKey) string {
	return constants.RedisKeyPoolPrefix + addr.String()
}
