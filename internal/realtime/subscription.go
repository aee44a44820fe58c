package realtime

import (
	"context"
	"sync"

	"Uni_Connect/internal/metrics"
)

const subscriptionBuffer = 64

// Subscription 由 Close 或其 ctx 结束时关闭，关闭后 Events 通道被关闭
type Subscription struct {
	Topic string

	mu      sync.RWMutex
	closed  bool
	ch      chan Event
	done    chan struct{}
	once    sync.Once
	release func()
}

// NewSubscription 供 Broker 实现使用，release 在关闭时调用一次
func NewSubscription(ctx context.Context, topic string, release func()) *Subscription {
	s := newSubscription(topic, release)
	s.watch(ctx)
	return s
}

func newSubscription(topic string, release func()) *Subscription {
	s := &Subscription{
		Topic:   topic,
		ch:      make(chan Event, subscriptionBuffer),
		done:    make(chan struct{}),
		release: release,
	}
	metrics.RealtimeSubscriptions.Inc()
	return s
}

// watch ctx 结束时关闭订阅；须在 release 设置之后调用
func (s *Subscription) watch(ctx context.Context) {
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()
}

func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Deliver 非阻塞投递；消费过慢时丢弃，客户端通过重新拉取补齐
func (s *Subscription) Deliver(ev Event) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- ev:
		return true
	default:
		return false
	}
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		if s.release != nil {
			s.release()
		}
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
		close(s.done)
		metrics.RealtimeSubscriptions.Dec()
	})
}

// Done 在订阅关闭后可读
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}
