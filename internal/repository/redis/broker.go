package redis

import (
	"context"
	"encoding/json"

	"Uni_Connect/internal/realtime"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const realtimeChannelPrefix = "rt:"

// Broker 基于 Redis Pub/Sub 的 realtime.Broker，多实例部署时使用
type Broker struct {
	Client *redis.Client
	Log    *zap.Logger
}

func NewBroker(client *redis.Client, log *zap.Logger) *Broker {
	return &Broker{Client: client, Log: log}
}

func (b *Broker) Publish(ctx context.Context, ev realtime.Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.Client.Publish(ctx, realtimeChannelPrefix+ev.Topic, raw).Err()
}

func (b *Broker) Subscribe(ctx context.Context, topic string) (*realtime.Subscription, error) {
	if _, err := realtime.ParseTopic(topic); err != nil {
		return nil, err
	}
	ps := b.Client.Subscribe(ctx, realtimeChannelPrefix+topic)
	// 等待订阅确认，保证返回后发布的事件不会丢
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	sub := realtime.NewSubscription(ctx, topic, func() { _ = ps.Close() })
	go func() {
		for msg := range ps.Channel() {
			var ev realtime.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.Log.Warn("drop malformed realtime event", zap.String("topic", topic), zap.Error(err))
				continue
			}
			sub.Deliver(ev)
		}
	}()
	return sub, nil
}
