package memory

import (
	"context"
	"sync"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/constants"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/models"
	"github.com/aman-zulfiqar/solana-pool-swap/internal/storage"
)

const subscriberBuffer = 64

// SwapCache holds the most recent swaps and fans published events out to
// in-process subscribers. Slow subscribers drop events.
type SwapCache struct {
	mu     sync.Mutex
	recent []*models.SwapEvent // newest first
	subs   map[*subscriber]struct{}
	max    int
}

type subscriber struct {
	pool string
	ch   chan *models.SwapEvent
}

var _ storage.SwapCache = (*SwapCache)(nil)

// NewSwapCache creates a cache keeping constants.MaxRecentSwaps events.
func NewSwapCache() *SwapCache {
	return &SwapCache{
		subs: make(map[*subscriber]struct{}),
		max:  constants.MaxRecentSwaps,
	}
}

func (c *SwapCache) AddRecentSwap(ctx context.Context, swap *models.SwapEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.recent = append([]*models.SwapEvent{swap}, c.recent...)
	if len(c.recent) > c.max {
		c.recent = c.recent[:c.max]
	}
	return nil
}

func (c *SwapCache) GetRecentSwaps(ctx context.Context, limit int64) ([]*models.SwapEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := int(limit)
	if n <= 0 || n > len(c.recent) {
		n = len(c.recent)
	}
	out := make([]*models.SwapEvent, n)
	copy(out, c.recent[:n])
	return out, nil
}

func (c *SwapCache) PublishSwap(ctx context.Context, swap *models.SwapEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for s := range c.subs {
		if s.pool != "" && s.pool != swap.Pool {
			continue
		}
		select {
		case s.ch <- swap:
		default:
		}
	}
	return nil
}

func (c *SwapCache) SubscribeSwaps(ctx context.Context, pool string) (<-chan *models.SwapEvent, error) {
	s := &subscriber{pool: pool, ch: make(chan *models.SwapEvent, subscriberBuffer)}

	c.mu.Lock()
	c.subs[s] = struct{}{}
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		delete(c.subs, s)
		close(s.ch)
		c.mu.Unlock()
	}()

	return s.ch, nil
}

func (c *SwapCache) Ping(ctx context.Context) error { return nil }

func (c *SwapCache) Close() error { return nil }
