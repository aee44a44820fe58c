package realtime

import (
	"context"
	"encoding/json"
)

// 变更类型
const (
	KindInsert = "insert"
	KindUpdate = "update"
	KindDelete = "delete"
)

// Event 一条行级变更，ID 为被变更记录的主键
type Event struct {
	Topic   string          `json:"topic"`
	Kind    string          `json:"kind"`
	ID      uint64          `json:"id"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent 把记录序列化为事件负载
func NewEvent(topic, kind string, id uint64, v any) (Event, error) {
	ev := Event{Topic: topic, Kind: kind, ID: id}
	if v != nil {
		raw, err := json.Marshal(v)
		if err != nil {
			return Event{}, err
		}
		ev.Payload = raw
	}
	return ev, nil
}

// Broker 按主题发布/订阅变更事件
type Broker interface {
	Subscribe(ctx context.Context, topic string) (*Subscription, error)
	Publish(ctx context.Context, ev Event) error
}
