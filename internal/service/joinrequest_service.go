package service

import (
	"context"
	"errors"
	"fmt"

	"Uni_Connect/internal/metrics"
	"Uni_Connect/internal/model"
	"Uni_Connect/internal/repository/mysql"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type JoinRequestService struct {
	db       *gorm.DB
	groups   *mysql.GroupRepository
	members  *mysql.MemberRepository
	requests *mysql.JoinRequestRepository
	users    *mysql.UserRepository
	notifier *NotificationService
	log      *zap.Logger
}

func NewJoinRequestService(db *gorm.DB, notifier *NotificationService, log *zap.Logger) *JoinRequestService {
	return &JoinRequestService{
		db:       db,
		groups:   &mysql.GroupRepository{DB: db},
		members:  &mysql.MemberRepository{DB: db},
		requests: &mysql.JoinRequestRepository{DB: db},
		users:    &mysql.UserRepository{DB: db},
		notifier: notifier,
		log:      log,
	}
}

// Submit 非成员申请入群。只有 pending 状态的申请会阻止再次申请，被拒后可以重新申请
// 申请提交后通知群主与副管理员，通知失败不影响申请本身
func (s *JoinRequestService) Submit(ctx context.Context, groupID, userID uint64) (*model.JoinRequest, error) {
	g, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		return nil, storeErr(err, fmt.Sprintf("group %d", groupID))
	}
	role, err := roleOf(ctx, s.db, groupID, userID)
	if err != nil {
		return nil, err
	}
	if role.IsMember() {
		return nil, ErrAlreadyMember
	}
	if dup, err := s.hasPending(ctx, groupID, userID); err != nil {
		return nil, err
	} else if dup {
		metrics.JoinRequests.WithLabelValues("submit", metrics.ResultConflict).Inc()
		return nil, ErrDuplicateRequest
	}

	req := &model.JoinRequest{
		GroupID:    groupID,
		UserID:     userID,
		Status:     model.JoinRequestPending,
		PendingKey: model.JoinPendingKey(groupID, userID),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := (&mysql.JoinRequestRepository{DB: tx}).Create(ctx, req); err != nil {
			return err
		}
		return (&mysql.OutboxRepository{DB: tx}).Insert(ctx, mysql.EventJoinRequested, groupID, userID,
			map[string]any{"request_id": req.ID})
	})
	if err != nil {
		// 并发提交时由 pending_key 唯一索引兜底
		if dup, ferr := s.hasPending(ctx, groupID, userID); ferr == nil && dup {
			metrics.JoinRequests.WithLabelValues("submit", metrics.ResultConflict).Inc()
			return nil, ErrDuplicateRequest
		}
		metrics.JoinRequests.WithLabelValues("submit", metrics.ResultFailed).Inc()
		return nil, storeErr(err, "create join request")
	}
	metrics.JoinRequests.WithLabelValues("submit", metrics.ResultOK).Inc()

	managers, err := s.members.ListByRoles(ctx, groupID, model.RoleAdmin, model.RoleSecondaryAdmin)
	if err != nil {
		s.log.Warn("list group managers", zap.Uint64("group_id", groupID), zap.Error(err))
		return req, nil
	}
	s.notifier.Fanout(ctx, memberUserIDs(managers), model.NotificationGroupMember, "New join request",
		fmt.Sprintf("%s wants to join %s", s.displayName(ctx, userID), g.Name),
		model.NewJoinRequestMetadata(groupID, req.ID, userID))
	return req, nil
}

func (s *JoinRequestService) hasPending(ctx context.Context, groupID, userID uint64) (bool, error) {
	_, err := s.requests.FindPending(ctx, groupID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storeErr(err, "load pending request")
	}
	return true, nil
}

// Resolve 管理员或副管理员处理 pending 申请。
// 状态更新与成员写入在同一事务内完成；capacity 已满时整体回滚，申请保持 pending。
// 若用户已经是成员（并发审批或被直接拉入），申请仍记为 approved，但不重复写入成员，返回 ErrConflict。
func (s *JoinRequestService) Resolve(ctx context.Context, requestID, resolverID uint64, decision model.Decision) (*model.JoinRequest, error) {
	if !decision.Valid() {
		return nil, validation("unknown decision %q", decision)
	}
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, storeErr(err, fmt.Sprintf("join request %d", requestID))
	}
	if _, err := requireRole(ctx, s.db, req.GroupID, resolverID, canManage); err != nil {
		return nil, err
	}
	if req.Status != model.JoinRequestPending {
		return nil, fmt.Errorf("%w: join request %d already %s", ErrNotFound, requestID, req.Status)
	}
	g, err := s.groups.FindByID(ctx, req.GroupID)
	if err != nil {
		return nil, storeErr(err, fmt.Sprintf("group %d", req.GroupID))
	}

	approve := decision == model.DecisionApprove
	status := model.JoinRequestRejected
	event := mysql.EventJoinRejected
	if approve {
		status = model.JoinRequestApproved
		event = mysql.EventJoinApproved
	}
	conflict := false

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := (&mysql.JoinRequestRepository{DB: tx}).Resolve(ctx, req.ID, resolverID, status)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: join request %d already resolved", ErrNotFound, req.ID)
		}
		if approve {
			if conflict, err = s.admit(ctx, tx, g, req.UserID); err != nil {
				return err
			}
		}
		return (&mysql.OutboxRepository{DB: tx}).Insert(ctx, event, g.ID, resolverID, map[string]any{
			"request_id": req.ID,
			"user_id":    req.UserID,
			"conflict":   conflict,
		})
	})
	if err != nil {
		result := metrics.ResultFailed
		if errors.Is(err, ErrLimitExceeded) || errors.Is(err, ErrNotFound) {
			result = metrics.ResultRejected
		}
		metrics.JoinRequests.WithLabelValues(string(decision), result).Inc()
		return nil, storeErr(err, "resolve join request")
	}

	req.Status = status
	req.ResolvedBy = resolverID
	req.PendingKey = nil

	if conflict {
		metrics.JoinRequests.WithLabelValues(string(decision), metrics.ResultConflict).Inc()
		s.log.Warn("join request approved for existing member, membership insert skipped",
			zap.Uint64("request_id", req.ID),
			zap.Uint64("group_id", g.ID),
			zap.Uint64("user_id", req.UserID),
			zap.Uint64("resolver_id", resolverID))
		return req, fmt.Errorf("%w: user %d is already a member", ErrConflict, req.UserID)
	}
	metrics.JoinRequests.WithLabelValues(string(decision), metrics.ResultOK).Inc()

	s.notifyDecision(ctx, g, req, approve)
	return req, nil
}

// admit 在事务内写入成员；已是成员时返回 conflict=true
func (s *JoinRequestService) admit(ctx context.Context, tx *gorm.DB, g *model.Group, userID uint64) (bool, error) {
	mr := &mysql.MemberRepository{DB: tx}
	exists, err := mr.IsMember(ctx, g.ID, userID)
	if err != nil {
		return false, err
	}
	if exists {
		return true, nil
	}
	count, err := mr.Count(ctx, g.ID)
	if err != nil {
		return false, err
	}
	if count >= capacity(g) {
		return false, fmt.Errorf("%w: group is limited to %d members", ErrLimitExceeded, capacity(g))
	}
	inserted, err := mr.Join(ctx, &model.GroupMember{GroupID: g.ID, UserID: userID, Role: model.RoleMember})
	if err != nil {
		return false, err
	}
	return !inserted, nil
}

// notifyDecision 审批通过：通知申请人和当前主管理员；拒绝：只通知申请人
func (s *JoinRequestService) notifyDecision(ctx context.Context, g *model.Group, req *model.JoinRequest, approved bool) {
	meta := model.NewJoinDecisionMetadata(approved, g.ID, req.ID, req.UserID)
	if !approved {
		s.notifier.Fanout(ctx, []uint64{req.UserID}, model.NotificationGroupMember, "Join request rejected",
			fmt.Sprintf("Your request to join %s was rejected", g.Name), meta)
		return
	}
	s.notifier.Fanout(ctx, []uint64{req.UserID}, model.NotificationGroupMember, "Join request approved",
		fmt.Sprintf("You are now a member of %s", g.Name), meta)
	s.notifier.Fanout(ctx, []uint64{g.AdminID}, model.NotificationGroupMember, "New member joined",
		fmt.Sprintf("%s joined %s", s.displayName(ctx, req.UserID), g.Name),
		model.NewGroupEventMetadata(model.ActionMemberJoined, g.ID, req.UserID))
}

// ListPending 仅管理员与副管理员可见，新的在前
func (s *JoinRequestService) ListPending(ctx context.Context, groupID, actorID uint64) ([]model.JoinRequestView, error) {
	if _, err := s.groups.FindByID(ctx, groupID); err != nil {
		return nil, storeErr(err, fmt.Sprintf("group %d", groupID))
	}
	if _, err := requireRole(ctx, s.db, groupID, actorID, canManage); err != nil {
		return nil, err
	}
	list, err := s.requests.ListPending(ctx, groupID)
	if err != nil {
		return nil, storeErr(err, "list join requests")
	}
	ids := make([]uint64, 0, len(list))
	for _, r := range list {
		ids = append(ids, r.UserID)
	}
	profiles, err := loadProfiles(ctx, s.users, ids)
	if err != nil {
		return nil, err
	}
	out := make([]model.JoinRequestView, 0, len(list))
	for _, r := range list {
		out = append(out, model.JoinRequestView{JoinRequest: r, User: profiles[r.UserID]})
	}
	return out, nil
}

// Status 当前用户对该群最近一次申请，没有时返回 ErrNotFound
func (s *JoinRequestService) Status(ctx context.Context, groupID, userID uint64) (*model.JoinRequest, error) {
	req, err := s.requests.Latest(ctx, groupID, userID)
	if err != nil {
		return nil, storeErr(err, "load join request")
	}
	return req, nil
}

func (s *JoinRequestService) displayName(ctx context.Context, userID uint64) string {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "Someone"
	}
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}
