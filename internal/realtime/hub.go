package realtime

import (
	"context"
	"sync"
)

// Hub 进程内的 Broker，单实例部署或测试使用
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[*Subscription]struct{})}
}

func (h *Hub) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	if _, err := ParseTopic(topic); err != nil {
		return nil, err
	}
	sub := newSubscription(topic, nil)
	sub.release = func() { h.remove(topic, sub) }

	h.mu.Lock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*Subscription]struct{})
		h.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	h.mu.Unlock()

	// 登记完成后再监听 ctx，已结束的 ctx 会立即关闭并注销
	sub.watch(ctx)
	return sub, nil
}

func (h *Hub) Publish(_ context.Context, ev Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.topics[ev.Topic] {
		sub.Deliver(ev)
	}
	return nil
}

func (h *Hub) remove(topic string, sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.topics[topic]
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.topics, topic)
	}
}

// Subscribers 当前主题的订阅数
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
