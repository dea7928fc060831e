package event

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultChannel = "backoffice:events"

// RedisBus publishes over Redis pub/sub so every instance's subscribers see
// every event. Delivery is at-most-once.
type RedisBus struct {
	client  *redis.Client
	channel string
	timeout time.Duration
}

func NewRedisBus(client *redis.Client, channel string) *RedisBus {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBus{client: client, channel: channel, timeout: 2 * time.Second}
}

func (b *RedisBus) Publish(e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		slog.Error("marshal event", "type", e.Type, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		slog.Error("publish event", "type", e.Type, "channel", b.channel, "error", err)
	}
}

// Subscribe returns once the subscription is confirmed by the server, so
// events published afterwards are not missed.
func (b *RedisBus) Subscribe() (<-chan Event, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	pubsub := b.client.Subscribe(ctx, b.channel)

	confirmCtx, confirmCancel := context.WithTimeout(ctx, b.timeout)
	if _, err := pubsub.Receive(confirmCtx); err != nil {
		slog.Error("subscribe to event channel", "channel", b.channel, "error", err)
	}
	confirmCancel()

	out := make(chan Event, subscriberBuffer)
	messages := pubsub.Channel()

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var e Event
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					slog.Warn("discarding malformed event", "channel", b.channel, "error", err)
					continue
				}
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			cancel()
			_ = pubsub.Close()
		})
	}

	return out, unsubscribe
}
