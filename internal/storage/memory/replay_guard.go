package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/storage"
)

// ReplayGuard remembers keys in process memory until they expire.
type ReplayGuard struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

var _ storage.ReplayGuard = (*ReplayGuard)(nil)

func NewReplayGuard() *ReplayGuard {
	return &ReplayGuard{seen: make(map[string]time.Time), now: time.Now}
}

func (g *ReplayGuard) Remember(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for k, exp := range g.seen {
		if now.After(exp) {
			delete(g.seen, k)
		}
	}
	if _, ok := g.seen[key]; ok {
		return false, nil
	}
	g.seen[key] = now.Add(ttl)
	return true, nil
}
