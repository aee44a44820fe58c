package service

import (
	"context"
	"fmt"
	"strings"

	"Uni_Connect/internal/model"
	"Uni_Connect/internal/repository/mysql"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type GroupService struct {
	db       *gorm.DB
	groups   *mysql.GroupRepository
	members  *mysql.MemberRepository
	users    *mysql.UserRepository
	notifier *NotificationService
	log      *zap.Logger
}

func NewGroupService(db *gorm.DB, notifier *NotificationService, log *zap.Logger) *GroupService {
	return &GroupService{
		db:       db,
		groups:   &mysql.GroupRepository{DB: db},
		members:  &mysql.MemberRepository{DB: db},
		users:    &mysql.UserRepository{DB: db},
		notifier: notifier,
		log:      log,
	}
}

// GroupPatch 为 nil 的字段保持不变
type GroupPatch struct {
	Name        *string              `json:"name"`
	Description *string              `json:"description"`
	ImageURL    *string              `json:"image_url"`
	Settings    *model.GroupSettings `json:"settings"`
}

func capacity(g *model.Group) int64 {
	if g.MaxMembers <= 0 {
		return model.DefaultMaxMembers
	}
	return int64(g.MaxMembers)
}

// Create 建群，创建者在同一事务内成为 admin
func (s *GroupService) Create(ctx context.Context, creatorID uint64, name, description, imageURL string) (*model.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validation("group name required")
	}
	g := &model.Group{
		Name:            name,
		Description:     strings.TrimSpace(description),
		ImageURL:        imageURL,
		CreatedBy:       creatorID,
		AdminID:         creatorID,
		SecondaryAdmins: []uint64{},
		MaxMembers:      model.DefaultMaxMembers,
		Settings:        model.DefaultGroupSettings(),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return (&mysql.GroupRepository{DB: tx}).Create(ctx, g)
	})
	if err != nil {
		return nil, storeErr(err, "create group")
	}
	s.log.Info("group created", zap.Uint64("group_id", g.ID), zap.Uint64("admin_id", creatorID))
	return g, nil
}

func (s *GroupService) Get(ctx context.Context, groupID uint64) (*model.Group, error) {
	g, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		return nil, storeErr(err, fmt.Sprintf("group %d", groupID))
	}
	return g, nil
}

func (s *GroupService) List(ctx context.Context, page, size int) ([]model.Group, error) {
	offset, limit := pageBounds(page, size)
	list, err := s.groups.List(ctx, offset, limit)
	if err != nil {
		return nil, storeErr(err, "list groups")
	}
	return list, nil
}

func (s *GroupService) ListForUser(ctx context.Context, userID uint64) ([]model.Group, error) {
	list, err := s.groups.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "list user groups")
	}
	return list, nil
}

func (s *GroupService) MemberCount(ctx context.Context, groupID uint64) (int64, error) {
	n, err := s.members.Count(ctx, groupID)
	if err != nil {
		return 0, storeErr(err, "count members")
	}
	return n, nil
}

// RoleOf 对外暴露的角色判定
func (s *GroupService) RoleOf(ctx context.Context, groupID, userID uint64) (model.GroupRole, error) {
	return roleOf(ctx, s.db, groupID, userID)
}

// CheckMembership 每次写操作前都应重新调用，不可缓存
func (s *GroupService) CheckMembership(ctx context.Context, groupID, userID uint64) (model.MembershipStatus, error) {
	role, err := roleOf(ctx, s.db, groupID, userID)
	if err != nil {
		return model.MembershipStatus{}, err
	}
	return model.MembershipStatus{IsMember: role.IsMember(), Role: role}, nil
}

// Update 改名、描述、头像与设置，管理员与副管理员可用；改名通知全体成员
func (s *GroupService) Update(ctx context.Context, groupID, actorID uint64, patch GroupPatch) (*model.Group, error) {
	g, err := s.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if _, err := requireRole(ctx, s.db, groupID, actorID, canManage); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	renamed := false
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, validation("group name required")
		}
		if name != g.Name {
			fields["name"] = name
			renamed = true
		}
	}
	if patch.Description != nil {
		fields["description"] = strings.TrimSpace(*patch.Description)
	}
	if patch.ImageURL != nil {
		fields["image_url"] = *patch.ImageURL
	}
	if patch.Settings != nil {
		fields["setting_allow_member_invites"] = patch.Settings.AllowMemberInvites
		fields["setting_allow_message_deletion"] = patch.Settings.AllowMessageDeletion
		fields["setting_allow_member_visibility"] = patch.Settings.AllowMemberVisibility
	}
	if len(fields) == 0 {
		return g, nil
	}
	if err := s.groups.Update(ctx, groupID, fields); err != nil {
		return nil, storeErr(err, "update group")
	}
	updated, err := s.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if renamed {
		if ids, err := s.memberIDs(ctx, groupID); err != nil {
			s.log.Warn("list members for rename notice", zap.Uint64("group_id", groupID), zap.Error(err))
		} else {
			s.notifier.Fanout(ctx, exclude(ids, actorID), model.NotificationInfo, "Group renamed",
				fmt.Sprintf("%s is now called %s", g.Name, updated.Name),
				model.NewGroupEventMetadata(model.ActionGroupRenamed, groupID, actorID))
		}
	}
	return updated, nil
}

// AssignSecondaryAdmins 仅主管理员可用；targetIDs 替换原有的副管理员集合
func (s *GroupService) AssignSecondaryAdmins(ctx context.Context, groupID, adminID uint64, targetIDs []uint64) error {
	g, err := s.Get(ctx, groupID)
	if err != nil {
		return err
	}
	if _, err := requireRole(ctx, s.db, groupID, adminID, isAdmin); err != nil {
		return err
	}
	targets := uniqueIDs(targetIDs)
	if len(targets) > model.MaxSecondaryAdmins {
		return fmt.Errorf("%w: at most %d secondary admins", ErrLimitExceeded, model.MaxSecondaryAdmins)
	}
	for _, id := range targets {
		if id == adminID {
			return validation("primary admin cannot be a secondary admin")
		}
	}
	if len(targets) > 0 {
		ms, err := s.members.ListByUsers(ctx, groupID, targets)
		if err != nil {
			return storeErr(err, "load target members")
		}
		if missing := missingIDs(targets, memberUserIDs(ms)); len(missing) > 0 {
			return fmt.Errorf("%w: user %d is not a member", ErrNotFound, missing[0])
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		mr := &mysql.MemberRepository{DB: tx}
		if err := mr.DemoteSecondaryAdmins(ctx, groupID, targets); err != nil {
			return err
		}
		if len(targets) > 0 {
			if _, err := mr.SetRole(ctx, groupID, targets, model.RoleSecondaryAdmin); err != nil {
				return err
			}
		}
		return (&mysql.GroupRepository{DB: tx}).SetSecondaryAdmins(ctx, groupID, targets)
	})
	if err != nil {
		return storeErr(err, "assign secondary admins")
	}

	for _, uid := range missingIDs(targets, g.SecondaryAdmins) {
		s.notifier.Fanout(ctx, []uint64{uid}, model.NotificationGroupMember, "You are now a group admin",
			fmt.Sprintf("You were made a secondary admin of %s", g.Name),
			model.NewGroupEventMetadata(model.ActionSecondaryAdminAssigned, groupID, uid))
	}
	return nil
}

// RemoveMember 自己退出走 Leave；副管理员只能移除普通成员，主管理员不可被移除
func (s *GroupService) RemoveMember(ctx context.Context, groupID, actorID, targetID uint64) error {
	if actorID == targetID {
		return s.Leave(ctx, groupID, actorID)
	}
	g, err := s.Get(ctx, groupID)
	if err != nil {
		return err
	}
	actorRole, err := requireRole(ctx, s.db, groupID, actorID, canManage)
	if err != nil {
		return err
	}
	targetRole, err := roleOf(ctx, s.db, groupID, targetID)
	if err != nil {
		return err
	}
	switch {
	case !targetRole.IsMember():
		return fmt.Errorf("%w: user %d is not a member", ErrNotFound, targetID)
	case targetRole == model.RoleAdmin:
		return fmt.Errorf("%w: primary admin cannot be removed", ErrUnauthorized)
	case actorRole == model.RoleSecondaryAdmin && targetRole == model.RoleSecondaryAdmin:
		return fmt.Errorf("%w: secondary admins can only remove members", ErrUnauthorized)
	}

	if err := s.removeMembership(ctx, groupID, targetID, actorID); err != nil {
		return err
	}
	s.notifier.Fanout(ctx, []uint64{targetID}, model.NotificationGroupMember, "Removed from group",
		fmt.Sprintf("You were removed from %s", g.Name),
		model.NewGroupEventMetadata(model.ActionMemberRemoved, groupID, targetID))
	return nil
}

// Leave 主管理员必须先转让
func (s *GroupService) Leave(ctx context.Context, groupID, userID uint64) error {
	if _, err := s.Get(ctx, groupID); err != nil {
		return err
	}
	role, err := roleOf(ctx, s.db, groupID, userID)
	if err != nil {
		return err
	}
	if !role.IsMember() {
		return fmt.Errorf("%w: not a member of group %d", ErrNotFound, groupID)
	}
	if role == model.RoleAdmin {
		return fmt.Errorf("%w: transfer the admin role before leaving", ErrUnauthorized)
	}
	return s.removeMembership(ctx, groupID, userID, userID)
}

func (s *GroupService) removeMembership(ctx context.Context, groupID, userID, actorID uint64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := (&mysql.MemberRepository{DB: tx}).Leave(ctx, groupID, userID)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: user %d is not a member", ErrNotFound, userID)
		}
		gr := &mysql.GroupRepository{DB: tx}
		g, err := gr.FindByID(ctx, groupID)
		if err != nil {
			return err
		}
		if containsID(g.SecondaryAdmins, userID) {
			if err := gr.SetSecondaryAdmins(ctx, groupID, exclude(g.SecondaryAdmins, userID)); err != nil {
				return err
			}
		}
		return (&mysql.OutboxRepository{DB: tx}).Insert(ctx, mysql.EventMemberRemoved, groupID, actorID,
			map[string]any{"user_id": userID})
	})
	return storeErr(err, "remove member")
}

// TransferAdmin 主管理员转让给现有成员，原管理员降为普通成员；群始终恰有一个主管理员
func (s *GroupService) TransferAdmin(ctx context.Context, groupID, adminID, targetID uint64) error {
	g, err := s.Get(ctx, groupID)
	if err != nil {
		return err
	}
	if _, err := requireRole(ctx, s.db, groupID, adminID, isAdmin); err != nil {
		return err
	}
	if targetID == adminID {
		return validation("already the primary admin")
	}
	targetRole, err := roleOf(ctx, s.db, groupID, targetID)
	if err != nil {
		return err
	}
	if !targetRole.IsMember() {
		return fmt.Errorf("%w: user %d is not a member", ErrNotFound, targetID)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		mr := &mysql.MemberRepository{DB: tx}
		if _, err := mr.SetRole(ctx, groupID, []uint64{targetID}, model.RoleAdmin); err != nil {
			return err
		}
		if _, err := mr.SetRole(ctx, groupID, []uint64{adminID}, model.RoleMember); err != nil {
			return err
		}
		gr := &mysql.GroupRepository{DB: tx}
		if err := gr.SetAdmin(ctx, groupID, targetID); err != nil {
			return err
		}
		// 事务内重新读取，避免覆盖并发修改的副管理员列表
		cur, err := gr.FindByID(ctx, groupID)
		if err != nil {
			return err
		}
		if containsID(cur.SecondaryAdmins, targetID) {
			return gr.SetSecondaryAdmins(ctx, groupID, exclude(cur.SecondaryAdmins, targetID))
		}
		return nil
	})
	if err != nil {
		return storeErr(err, "transfer admin")
	}
	s.notifier.Fanout(ctx, []uint64{targetID}, model.NotificationGroupMember, "You are now the group admin",
		fmt.Sprintf("You are now the admin of %s", g.Name),
		model.NewGroupEventMetadata(model.ActionAdminTransferred, groupID, targetID))
	return nil
}

// AddMembers 管理员直接拉人；开启 allow_member_invites 后普通成员也可以
// 返回本次真正加入的用户
func (s *GroupService) AddMembers(ctx context.Context, groupID, actorID uint64, userIDs []uint64) ([]uint64, error) {
	g, err := s.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	role, err := roleOf(ctx, s.db, groupID, actorID)
	if err != nil {
		return nil, err
	}
	if !role.CanManage() && !(role.IsMember() && g.Settings.AllowMemberInvites) {
		return nil, ErrUnauthorized
	}
	ids := uniqueIDs(userIDs)
	if len(ids) == 0 {
		return nil, validation("no users given")
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, storeErr(err, "load users")
	}
	if len(users) != len(ids) {
		found := make([]uint64, 0, len(users))
		for _, u := range users {
			found = append(found, u.ID)
		}
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, missingIDs(ids, found)[0])
	}

	var added []uint64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		mr := &mysql.MemberRepository{DB: tx}
		existing, err := mr.ListByUsers(ctx, groupID, ids)
		if err != nil {
			return err
		}
		fresh := missingIDs(ids, memberUserIDs(existing))
		count, err := mr.Count(ctx, groupID)
		if err != nil {
			return err
		}
		if count+int64(len(fresh)) > capacity(g) {
			return fmt.Errorf("%w: group is limited to %d members", ErrLimitExceeded, capacity(g))
		}
		ob := &mysql.OutboxRepository{DB: tx}
		for _, uid := range fresh {
			ok, err := mr.Join(ctx, &model.GroupMember{GroupID: groupID, UserID: uid, Role: model.RoleMember})
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			added = append(added, uid)
			if err := ob.Insert(ctx, mysql.EventMemberAdded, groupID, actorID, map[string]any{"user_id": uid}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "add members")
	}

	for _, uid := range added {
		s.notifier.Fanout(ctx, []uint64{uid}, model.NotificationGroupMember, "Added to group",
			fmt.Sprintf("You were added to %s", g.Name),
			model.NewGroupEventMetadata(model.ActionMemberAdded, groupID, uid))
	}
	return added, nil
}

// ListMembers 仅成员可见；关闭 allow_member_visibility 后只有管理员可见
func (s *GroupService) ListMembers(ctx context.Context, groupID, actorID uint64) ([]model.MemberProfile, error) {
	g, err := s.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	role, err := requireRole(ctx, s.db, groupID, actorID, isMember)
	if err != nil {
		return nil, err
	}
	if !g.Settings.AllowMemberVisibility && !role.CanManage() {
		return nil, fmt.Errorf("%w: member list is hidden", ErrUnauthorized)
	}
	ms, err := s.members.ListByRoles(ctx, groupID)
	if err != nil {
		return nil, storeErr(err, "list members")
	}
	profiles, err := loadProfiles(ctx, s.users, memberUserIDs(ms))
	if err != nil {
		return nil, err
	}
	out := make([]model.MemberProfile, 0, len(ms))
	for _, m := range ms {
		out = append(out, model.MemberProfile{
			Profile:  profiles[m.UserID],
			Role:     m.Role,
			JoinedAt: m.CreatedAt,
		})
	}
	return out, nil
}

// Delete 解散群：消息 -> 成员 -> 入群申请 -> 群，同一事务；提交后通知原成员
func (s *GroupService) Delete(ctx context.Context, groupID, adminID uint64) error {
	g, err := s.Get(ctx, groupID)
	if err != nil {
		return err
	}
	if _, err := requireRole(ctx, s.db, groupID, adminID, isAdmin); err != nil {
		return err
	}
	former, err := s.memberIDs(ctx, groupID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := (&mysql.GroupRepository{DB: tx}).Delete(ctx, groupID)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: group %d", ErrNotFound, groupID)
		}
		return (&mysql.OutboxRepository{DB: tx}).Insert(ctx, mysql.EventGroupDeleted, groupID, adminID,
			map[string]any{"name": g.Name, "members": len(former)})
	})
	if err != nil {
		return storeErr(err, "delete group")
	}
	s.log.Info("group deleted", zap.Uint64("group_id", groupID), zap.Int("members", len(former)))

	s.notifier.Fanout(ctx, exclude(former, adminID), model.NotificationWarning, "Group deleted",
		fmt.Sprintf("%s was deleted by its admin", g.Name),
		model.NewGroupEventMetadata(model.ActionGroupDeleted, groupID, 0))
	return nil
}

func (s *GroupService) memberIDs(ctx context.Context, groupID uint64) ([]uint64, error) {
	ms, err := s.members.ListByRoles(ctx, groupID)
	if err != nil {
		return nil, storeErr(err, "list members")
	}
	return memberUserIDs(ms), nil
}
