package service

import (
	"context"
	"errors"
	"fmt"

	"Uni_Connect/internal/model"
	"Uni_Connect/internal/repository/mysql"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type FriendService struct {
	db       *gorm.DB
	friends  *mysql.FriendRepository
	users    *mysql.UserRepository
	notifier *NotificationService
	log      *zap.Logger
}

func NewFriendService(db *gorm.DB, notifier *NotificationService, log *zap.Logger) *FriendService {
	return &FriendService{
		db:       db,
		friends:  &mysql.FriendRepository{DB: db},
		users:    &mysql.UserRepository{DB: db},
		notifier: notifier,
		log:      log,
	}
}

// SendRequest 双方之间任一方向存在 pending 申请即视为重复
func (s *FriendService) SendRequest(ctx context.Context, senderID, receiverID uint64) (*model.FriendRequest, error) {
	if senderID == receiverID {
		return nil, validation("cannot befriend yourself")
	}
	sender, err := s.users.FindByID(ctx, senderID)
	if err != nil {
		return nil, storeErr(err, fmt.Sprintf("user %d", senderID))
	}
	if _, err := s.users.FindByID(ctx, receiverID); err != nil {
		return nil, storeErr(err, fmt.Sprintf("user %d", receiverID))
	}
	friends, err := s.friends.AreFriends(ctx, senderID, receiverID)
	if err != nil {
		return nil, storeErr(err, "check friendship")
	}
	if friends {
		return nil, fmt.Errorf("%w: already friends", ErrConflict)
	}
	if _, err := s.friends.FindPendingBetween(ctx, senderID, receiverID); err == nil {
		return nil, ErrDuplicateRequest
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storeErr(err, "load pending request")
	}

	req := &model.FriendRequest{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     model.FriendRequestPending,
		PendingKey: model.FriendPendingKey(senderID, receiverID),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := (&mysql.FriendRepository{DB: tx}).CreateRequest(ctx, req); err != nil {
			return err
		}
		return (&mysql.OutboxRepository{DB: tx}).Insert(ctx, mysql.EventFriendRequested, receiverID, senderID,
			map[string]any{"request_id": req.ID})
	})
	if err != nil {
		if mysql.IsDuplicate(err) {
			return nil, ErrDuplicateRequest
		}
		return nil, storeErr(err, "create friend request")
	}

	s.notifier.Fanout(ctx, []uint64{receiverID}, model.NotificationFriend, "New friend request",
		fmt.Sprintf("%s sent you a friend request", sender.Username),
		model.NewFriendMetadata(model.ActionFriendRequested, req.ID, senderID))
	return req, nil
}

// Respond 只有接收方可以处理；已处理的申请返回 ErrNotFound
func (s *FriendService) Respond(ctx context.Context, requestID, userID uint64, accept bool) (*model.FriendRequest, error) {
	req, err := s.friends.FindRequest(ctx, requestID)
	if err != nil {
		return nil, storeErr(err, fmt.Sprintf("friend request %d", requestID))
	}
	if req.ReceiverID != userID {
		return nil, ErrUnauthorized
	}
	if req.Status != model.FriendRequestPending {
		return nil, fmt.Errorf("%w: friend request %d already %s", ErrNotFound, requestID, req.Status)
	}

	status := model.FriendRequestRejected
	if accept {
		status = model.FriendRequestAccepted
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fr := &mysql.FriendRepository{DB: tx}
		n, err := fr.ResolveRequest(ctx, req.ID, status)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: friend request %d already resolved", ErrNotFound, req.ID)
		}
		if !accept {
			return nil
		}
		if _, err := fr.AddFriend(ctx, req.SenderID, req.ReceiverID); err != nil {
			return err
		}
		return (&mysql.OutboxRepository{DB: tx}).Insert(ctx, mysql.EventFriendAccepted, req.SenderID, userID,
			map[string]any{"request_id": req.ID})
	})
	if err != nil {
		return nil, storeErr(err, "respond friend request")
	}
	req.Status = status
	req.PendingKey = nil

	if accept {
		name := "Someone"
		if u, err := s.users.FindByID(ctx, userID); err == nil {
			name = u.Username
		}
		s.notifier.Fanout(ctx, []uint64{req.SenderID}, model.NotificationFriend, "Friend request accepted",
			fmt.Sprintf("%s accepted your friend request", name),
			model.NewFriendMetadata(model.ActionFriendAccepted, req.ID, userID))
	}
	return req, nil
}

func (s *FriendService) ListIncoming(ctx context.Context, userID uint64) ([]model.FriendRequestView, error) {
	list, err := s.friends.ListIncoming(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "list incoming requests")
	}
	return s.views(ctx, list, func(r model.FriendRequest) uint64 { return r.SenderID })
}

func (s *FriendService) ListOutgoing(ctx context.Context, userID uint64) ([]model.FriendRequestView, error) {
	list, err := s.friends.ListOutgoing(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "list outgoing requests")
	}
	return s.views(ctx, list, func(r model.FriendRequest) uint64 { return r.ReceiverID })
}

func (s *FriendService) views(ctx context.Context, list []model.FriendRequest, peer func(model.FriendRequest) uint64) ([]model.FriendRequestView, error) {
	ids := make([]uint64, 0, len(list))
	for _, r := range list {
		ids = append(ids, peer(r))
	}
	profiles, err := loadProfiles(ctx, s.users, ids)
	if err != nil {
		return nil, err
	}
	out := make([]model.FriendRequestView, 0, len(list))
	for _, r := range list {
		out = append(out, model.FriendRequestView{FriendRequest: r, User: profiles[peer(r)]})
	}
	return out, nil
}

// ListFriends 最近添加的在前
func (s *FriendService) ListFriends(ctx context.Context, userID uint64) ([]model.Profile, error) {
	ids, err := s.friends.FriendIDs(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "list friends")
	}
	profiles, err := loadProfiles(ctx, s.users, ids)
	if err != nil {
		return nil, err
	}
	out := make([]model.Profile, 0, len(ids))
	for _, id := range ids {
		if p, ok := profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *FriendService) RemoveFriend(ctx context.Context, userID, friendID uint64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := (&mysql.FriendRepository{DB: tx}).RemoveFriend(ctx, userID, friendID)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: not friends with %d", ErrNotFound, friendID)
		}
		return (&mysql.OutboxRepository{DB: tx}).Insert(ctx, mysql.EventUnfriend, friendID, userID, nil)
	})
	return storeErr(err, "remove friend")
}

func (s *FriendService) AreFriends(ctx context.Context, a, b uint64) (bool, error) {
	ok, err := s.friends.AreFriends(ctx, a, b)
	if err != nil {
		return false, storeErr(err, "check friendship")
	}
	return ok, nil
}

// Suggestions 同校优先，排除自己、已是好友和有待处理申请的用户
func (s *FriendService) Suggestions(ctx context.Context, userID uint64, limit int) ([]model.Profile, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	me, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, fmt.Sprintf("user %d", userID))
	}
	friendIDs, err := s.friends.FriendIDs(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "list friends")
	}
	pending, err := s.friends.PendingPeerIDs(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "list pending peers")
	}
	excluded := append(append([]uint64{userID}, friendIDs...), pending...)
	users, err := s.users.Suggestions(ctx, me.University, excluded, limit)
	if err != nil {
		return nil, storeErr(err, "suggest users")
	}
	return toProfiles(users), nil
}
