package broker

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/roomchat/relay/internal/observability"
)

// Redis is the broker backend for deployments that already run Redis; each
// room maps to one pub/sub channel. Delivery semantics match the memory
// backend: no backlog, every current subscriber sees every publication.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (b *Redis) channel(room string) string {
	return "chat:" + room
}

func (b *Redis) Publish(ctx context.Context, room string, payload []byte) error {
	return b.client.Publish(ctx, b.channel(room), payload).Err()
}

func (b *Redis) Subscribe(ctx context.Context, room string, sink Sink) (Subscription, error) {
	channelName := b.channel(room)
	pubsub := b.client.Subscribe(ctx, channelName)

	// Force the SUBSCRIBE round trip so a failure surfaces here rather than
	// silently in the pump goroutine.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	sub := &redisSub{pubsub: pubsub}

	go func() {
		log := observability.GetLogger(ctx)
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				log.Debug("broker: subscription loop stopping: context canceled",
					zap.String("channel", channelName))
				sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				sink.Deliver([]byte(msg.Payload))
			}
		}
	}()

	return sub, nil
}

type redisSub struct {
	pubsub *redis.PubSub
	once   sync.Once
}

func (s *redisSub) Close() {
	s.once.Do(func() {
		_ = s.pubsub.Close()
	})
}
