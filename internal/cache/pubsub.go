package cache

import (
	"context"
	"encoding/json"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// PubSubManager consumes swap events with callback handlers.
type PubSubManager struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewPubSubManager(client *redis.Client, logger *logrus.Logger) *PubSubManager {
	if logger == nil {
		logger = logrus.New()
	}
	return &PubSubManager{client: client, logger: logger}
}

// Subscribe delivers events published on channel until ctx is done.
func (p *PubSubManager) Subscribe(ctx context.Context, channel string, handler func(*models.SwapEvent)) error {
	ps := p.client.Subscribe(ctx, channel)
	return p.consume(ctx, ps, channel, handler)
}

// PSubscribe delivers events from every channel matching pattern
// (e.g. "swaps:pool:*").
func (p *PubSubManager) PSubscribe(ctx context.Context, pattern string, handler func(*models.SwapEvent)) error {
	ps := p.client.PSubscribe(ctx, pattern)
	return p.consume(ctx, ps, pattern, handler)
}

func (p *PubSubManager) consume(ctx context.Context, ps *redis.PubSub, name string, handler func(*models.SwapEvent)) error {
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return err
	}
	p.logger.WithField("channel", name).Info("subscribed")

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var swap models.SwapEvent
			if err := json.Unmarshal([]byte(msg.Payload), &swap); err != nil {
				p.logger.WithError(err).WithField("channel", msg.Channel).Warn("error unmarshaling swap")
				continue
			}
			handler(&swap)
		}
	}
}
