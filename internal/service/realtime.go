package service

import (
	"context"

	"Uni_Connect/internal/realtime"

	"go.uber.org/zap"
)

// publish 提交后的实时推送，失败只记录日志
func publish(ctx context.Context, broker realtime.Broker, log *zap.Logger, topic, kind string, id uint64, v any) {
	if broker == nil {
		return
	}
	ev, err := realtime.NewEvent(topic, kind, id, v)
	if err == nil {
		err = broker.Publish(ctx, ev)
	}
	if err != nil {
		log.Warn("realtime publish failed", zap.String("topic", topic), zap.Uint64("id", id), zap.Error(err))
	}
}
