package service

import (
	"context"

	"Uni_Connect/internal/metrics"
	"Uni_Connect/internal/model"
	"Uni_Connect/internal/realtime"
	"Uni_Connect/internal/repository/mysql"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const inboxLimit = 200

type NotificationService struct {
	repo   *mysql.NotificationRepository
	broker realtime.Broker
	log    *zap.Logger
}

func NewNotificationService(db *gorm.DB, broker realtime.Broker, log *zap.Logger) *NotificationService {
	return &NotificationService{
		repo:   &mysql.NotificationRepository{DB: db},
		broker: broker,
		log:    log,
	}
}

// FetchInbox 新的在前
func (s *NotificationService) FetchInbox(ctx context.Context, userID uint64) ([]model.Notification, error) {
	list, err := s.repo.ListByUser(ctx, userID, inboxLimit)
	if err != nil {
		return nil, storeErr(err, "list notifications")
	}
	for i := range list {
		// 元数据损坏的通知照常返回，序列化时不带 metadata
		if _, err := list[i].Meta(); err != nil {
			s.log.Warn("corrupt notification metadata",
				zap.Uint64("id", list[i].ID),
				zap.Uint64("user_id", userID),
				zap.Error(err))
		}
	}
	return list, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint64) (int64, error) {
	n, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, storeErr(err, "count unread")
	}
	return n, nil
}

// MarkRead 幂等，已读时不做任何写入；只能操作自己的通知
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint64) error {
	n, err := s.repo.FindOwned(ctx, userID, id)
	if err != nil {
		return storeErr(err, "load notification")
	}
	if n.Read {
		return nil
	}
	if err := s.repo.MarkRead(ctx, userID, id); err != nil {
		return storeErr(err, "mark read")
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint64) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, storeErr(err, "mark all read")
	}
	return n, nil
}

// Clear 永久删除
func (s *NotificationService) Clear(ctx context.Context, userID, id uint64) error {
	n, err := s.repo.Delete(ctx, userID, id)
	if err != nil {
		return storeErr(err, "delete notification")
	}
	if n == 0 {
		return ErrNotFound
	}
	publish(ctx, s.broker, s.log, realtime.UserTopic(userID), realtime.KindDelete, id, nil)
	return nil
}

func (s *NotificationService) ClearAll(ctx context.Context, userID uint64) (int64, error) {
	n, err := s.repo.DeleteAll(ctx, userID)
	if err != nil {
		return 0, storeErr(err, "delete notifications")
	}
	return n, nil
}

// Notify 逐条写入并推送到收件人的 user 主题；失败只记录，不影响已提交的主流程
// 返回成功写入的条数
func (s *NotificationService) Notify(ctx context.Context, ns ...*model.Notification) int {
	delivered := 0
	for _, n := range ns {
		if n == nil {
			continue
		}
		if err := s.repo.Create(ctx, n); err != nil {
			metrics.Notifications.WithLabelValues(metrics.ResultFailed).Inc()
			s.log.Warn("notification insert failed",
				zap.Uint64("user_id", n.UserID),
				zap.String("type", string(n.Type)),
				zap.Error(err))
			continue
		}
		delivered++
		metrics.Notifications.WithLabelValues(metrics.ResultOK).Inc()
		publish(ctx, s.broker, s.log, realtime.UserTopic(n.UserID), realtime.KindInsert, n.ID, n)
	}
	return delivered
}

// Fanout 向多个收件人发送同一条通知，收件人去重
func (s *NotificationService) Fanout(ctx context.Context, recipients []uint64, typ model.NotificationType, title, content string, meta model.Metadata) int {
	seen := make(map[uint64]struct{}, len(recipients))
	ns := make([]*model.Notification, 0, len(recipients))
	for _, uid := range recipients {
		if _, ok := seen[uid]; ok {
			continue
		}
		seen[uid] = struct{}{}
		n, err := model.NewNotification(uid, typ, title, content, meta)
		if err != nil {
			s.log.Error("build notification", zap.Uint64("user_id", uid), zap.Error(err))
			continue
		}
		ns = append(ns, n)
	}
	return s.Notify(ctx, ns...)
}
