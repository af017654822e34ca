package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannel Redis pub/sub канал изменений
const DefaultChannel = "pharma:changes"

// MemoryBroker доставляет изменения только в локальный Hub (один экземпляр, тесты)
type MemoryBroker struct {
	hub *Hub
}

// NewMemoryBroker создаёт локальный broker
func NewMemoryBroker(hub *Hub) *MemoryBroker {
	return &MemoryBroker{hub: hub}
}

// Publish сразу рассылает изменение
func (b *MemoryBroker) Publish(_ context.Context, c Change) error {
	if c.At.IsZero() {
		c.At = time.Now().UTC()
	}
	b.hub.Broadcast(c)
	return nil
}

// RedisBroker публикует изменения в Redis канал; каждый экземпляр подписан и раздаёт их своему Hub
type RedisBroker struct {
	client  redis.UniversalClient
	channel string
	hub     *Hub
	logger  *zap.Logger
}

// NewRedisBroker создаёт broker поверх Redis pub/sub
func NewRedisBroker(client redis.UniversalClient, channel string, hub *Hub, logger *zap.Logger) *RedisBroker {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBroker{client: client, channel: channel, hub: hub, logger: logger}
}

// Publish сериализует изменение в JSON и публикует в канал
func (b *RedisBroker) Publish(ctx context.Context, c Change) error {
	if c.At.IsZero() {
		c.At = time.Now().UTC()
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

// Run подписывается на канал и пересылает изменения в Hub до отмены ctx
func (b *RedisBroker) Run(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	// ждём подтверждения подписки, иначе ранние публикации потеряются
	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}

	b.logger.Info("realtime broker subscribed", zap.String("channel", b.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("realtime broker stopped")
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var c Change
			if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
				b.logger.Warn("invalid realtime change payload", zap.Error(err))
				continue
			}
			b.hub.Broadcast(c)
		}
	}
}
