package service

import (
	"context"
	"time"

	"Uni_Connect/internal/metrics"
	"Uni_Connect/internal/model"
	"Uni_Connect/internal/pkg"
	"Uni_Connect/internal/repository/mysql"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Sender func(ctx context.Context, ob *model.Outbox) error

// OutboxRelayer 从 outbox 表读取领域事件并异步投递
type OutboxRelayer struct {
	repo      *mysql.OutboxRepository
	batchSize int
	maxRetry  int
	interval  time.Duration
	sender    Sender
	log       *zap.Logger
}

func NewOutboxRelayer(db *gorm.DB, sender Sender, interval time.Duration, batchSize, maxRetry int, log *zap.Logger) *OutboxRelayer {
	if interval <= 0 {
		interval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	if maxRetry <= 0 {
		maxRetry = 5
	}
	return &OutboxRelayer{
		repo:      &mysql.OutboxRepository{DB: db},
		batchSize: batchSize,
		maxRetry:  maxRetry,
		interval:  interval,
		sender:    sender,
		log:       log,
	}
}

// Run 定时投递，ctx 结束时返回
func (r *OutboxRelayer) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			r.drainOnce(ctx)
		}
	}
}

// drainOnce 投递一批，返回成功与失败的条数
func (r *OutboxRelayer) drainOnce(ctx context.Context) (sent, failed int) {
	rows, err := r.repo.List(ctx, r.batchSize, r.maxRetry)
	if err != nil {
		r.log.Warn("outbox query", zap.Error(err))
		return 0, 0
	}
	for i := range rows {
		ob := rows[i]
		if err = r.sender(ctx, &ob); err != nil {
			failed++
			metrics.OutboxRelayed.WithLabelValues(metrics.ResultFailed).Inc()
			r.log.Warn("outbox send",
				zap.Uint64("id", ob.ID),
				zap.String("event", ob.EventType),
				zap.Int("retry", ob.Retry),
				zap.Error(err))
			if err := r.repo.RetryUpdate(ctx, ob.ID); err != nil {
				r.log.Warn("outbox retry update", zap.Uint64("id", ob.ID), zap.Error(err))
			}
			continue
		}
		sent++
		metrics.OutboxRelayed.WithLabelValues(metrics.ResultOK).Inc()
		if err := r.repo.SuccessUpdate(ctx, ob.ID); err != nil {
			r.log.Warn("outbox success update", zap.Uint64("id", ob.ID), zap.Error(err))
		}
	}
	return sent, failed
}

// KafkaSender 以聚合 id 为 key，同一群或同一用户的事件进入同一分区
func KafkaSender(p *pkg.KafkaProducer) Sender {
	return func(ctx context.Context, ob *model.Outbox) error {
		return p.Send(ctx, pkg.MakeKeyFromID(ob.AggregateID), []byte(ob.Payload), map[string]string{
			"event_id":   ob.EventID,
			"event_type": ob.EventType,
		})
	}
}

// LogSender 未配置 kafka 时使用，只记录日志
func LogSender(log *zap.Logger) Sender {
	return func(ctx context.Context, ob *model.Outbox) error {
		log.Info("outbox event",
			zap.String("event_id", ob.EventID),
			zap.String("type", ob.EventType),
			zap.Uint64("aggregate_id", ob.AggregateID),
			zap.Uint64("actor_id", ob.ActorID),
			zap.String("payload", ob.Payload))
		return nil
	}
}
