package service

import (
	"context"
	"testing"

	"Uni_Connect/internal/model"
	"Uni_Connect/internal/realtime"
	"Uni_Connect/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateGroup(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")

	_, err := e.groups.Create(ctx, a.ID, "   ", "", "")
	assert.ErrorIs(t, err, ErrValidation)

	g, err := e.groups.Create(ctx, a.ID, " CS101 ", "intro", "")
	require.NoError(t, err)
	assert.Equal(t, "CS101", g.Name)
	assert.Equal(t, model.DefaultMaxMembers, g.MaxMembers)

	role, err := e.groups.RoleOf(ctx, g.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, role)

	mine, err := e.groups.ListForUser(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, g.ID, mine[0].ID)
}

func TestAssignSecondaryAdmins_LimitExceeded(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	g := testutil.CreateGroup(t, e.db, "g", a.ID)
	var ids []uint64
	for _, name := range []string{"u1", "u2", "u3", "u4"} {
		u := testutil.CreateUser(t, e.db, name)
		testutil.AddMember(t, e.db, g.ID, u.ID, model.RoleMember)
		ids = append(ids, u.ID)
	}

	err := e.groups.AssignSecondaryAdmins(ctx, g.ID, a.ID, ids)
	assert.ErrorIs(t, err, ErrLimitExceeded)

	assert.EqualValues(t, 0, e.countRows(t, &model.GroupMember{}, "group_id = ? AND role = ?", g.ID, model.RoleSecondaryAdmin))
	fresh, err := e.groups.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, fresh.SecondaryAdmins)
}

func TestAssignSecondaryAdmins(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	s1 := testutil.CreateUser(t, e.db, "sam")
	s2 := testutil.CreateUser(t, e.db, "sue")
	outsider := testutil.CreateUser(t, e.db, "oscar")
	g := testutil.CreateGroup(t, e.db, "g", a.ID)
	testutil.AddMember(t, e.db, g.ID, s1.ID, model.RoleMember)
	testutil.AddMember(t, e.db, g.ID, s2.ID, model.RoleMember)

	require.NoError(t, e.groups.AssignSecondaryAdmins(ctx, g.ID, a.ID, []uint64{s1.ID}))
	role, _ := e.groups.RoleOf(ctx, g.ID, s1.ID)
	assert.Equal(t, model.RoleSecondaryAdmin, role)
	assert.Contains(t, actions(t, e.inbox(t, s1.ID)), model.ActionSecondaryAdminAssigned)

	// 副管理员不能再任命副管理员
	err := e.groups.AssignSecondaryAdmins(ctx, g.ID, s1.ID, []uint64{s2.ID})
	assert.ErrorIs(t, err, ErrUnauthorized)

	err = e.groups.AssignSecondaryAdmins(ctx, g.ID, a.ID, []uint64{outsider.ID})
	assert.ErrorIs(t, err, ErrNotFound)

	// 替换集合：s1 降回普通成员
	require.NoError(t, e.groups.AssignSecondaryAdmins(ctx, g.ID, a.ID, []uint64{s2.ID}))
	role, _ = e.groups.RoleOf(ctx, g.ID, s1.ID)
	assert.Equal(t, model.RoleMember, role)
	role, _ = e.groups.RoleOf(ctx, g.ID, s2.ID)
	assert.Equal(t, model.RoleSecondaryAdmin, role)
	fresh, err := e.groups.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint64{s2.ID}, fresh.SecondaryAdmins)
}

func TestRemoveMember_Authorization(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	s := testutil.CreateUser(t, e.db, "sam")
	s2 := testutil.CreateUser(t, e.db, "sue")
	m1 := testutil.CreateUser(t, e.db, "mike")
	m2 := testutil.CreateUser(t, e.db, "mona")
	g := testutil.CreateGroup(t, e.db, "g", a.ID)
	for _, u := range []*model.User{s, s2, m1, m2} {
		testutil.AddMember(t, e.db, g.ID, u.ID, model.RoleMember)
	}
	require.NoError(t, e.groups.AssignSecondaryAdmins(ctx, g.ID, a.ID, []uint64{s.ID, s2.ID}))

	// 普通成员不能移除他人
	assert.ErrorIs(t, e.groups.RemoveMember(ctx, g.ID, m1.ID, m2.ID), ErrUnauthorized)
	// 主管理员不可被移除
	assert.ErrorIs(t, e.groups.RemoveMember(ctx, g.ID, s.ID, a.ID), ErrUnauthorized)
	// 副管理员只能移除普通成员
	assert.ErrorIs(t, e.groups.RemoveMember(ctx, g.ID, s.ID, s2.ID), ErrUnauthorized)

	require.NoError(t, e.groups.RemoveMember(ctx, g.ID, s.ID, m2.ID))
	st, err := e.groups.CheckMembership(ctx, g.ID, m2.ID)
	require.NoError(t, err)
	assert.False(t, st.IsMember)
	assert.Contains(t, actions(t, e.inbox(t, m2.ID)), model.ActionMemberRemoved)

	assert.ErrorIs(t, e.groups.RemoveMember(ctx, g.ID, a.ID, m2.ID), ErrNotFound)

	// 自己退出
	require.NoError(t, e.groups.RemoveMember(ctx, g.ID, m1.ID, m1.ID))
	st, _ = e.groups.CheckMembership(ctx, g.ID, m1.ID)
	assert.False(t, st.IsMember)

	// 主管理员移除副管理员后，群上的副管理员集合同步更新
	require.NoError(t, e.groups.RemoveMember(ctx, g.ID, a.ID, s2.ID))
	fresh, err := e.groups.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint64{s.ID}, fresh.SecondaryAdmins)
}

func TestLeave_AdminMustTransferFirst(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	g := testutil.CreateGroup(t, e.db, "g", a.ID)
	testutil.AddMember(t, e.db, g.ID, b.ID, model.RoleMember)

	assert.ErrorIs(t, e.groups.Leave(ctx, g.ID, a.ID), ErrUnauthorized)

	assert.ErrorIs(t, e.groups.TransferAdmin(ctx, g.ID, b.ID, a.ID), ErrUnauthorized)
	require.NoError(t, e.groups.TransferAdmin(ctx, g.ID, a.ID, b.ID))

	fresh, err := e.groups.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, fresh.AdminID)
	role, _ := e.groups.RoleOf(ctx, g.ID, a.ID)
	assert.Equal(t, model.RoleMember, role)
	assert.Contains(t, actions(t, e.inbox(t, b.ID)), model.ActionAdminTransferred)

	require.NoError(t, e.groups.Leave(ctx, g.ID, a.ID))
	assert.EqualValues(t, 1, e.countRows(t, &model.GroupMember{}, "group_id = ? AND role = ?", g.ID, model.RoleAdmin))
}

func TestTransferAdmin_ToSecondaryAdmin(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	c := testutil.CreateUser(t, e.db, "carol")
	g := testutil.CreateGroup(t, e.db, "g", a.ID)
	testutil.AddMember(t, e.db, g.ID, b.ID, model.RoleMember)
	testutil.AddMember(t, e.db, g.ID, c.ID, model.RoleMember)
	require.NoError(t, e.groups.AssignSecondaryAdmins(ctx, g.ID, a.ID, []uint64{b.ID, c.ID}))

	require.NoError(t, e.groups.TransferAdmin(ctx, g.ID, a.ID, b.ID))

	fresh, err := e.groups.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, fresh.AdminID)
	assert.Equal(t, []uint64{c.ID}, fresh.SecondaryAdmins)
	role, _ := e.groups.RoleOf(ctx, g.ID, b.ID)
	assert.Equal(t, model.RoleAdmin, role)
	role, _ = e.groups.RoleOf(ctx, g.ID, c.ID)
	assert.Equal(t, model.RoleSecondaryAdmin, role)
}

func TestAddMembers(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	c := testutil.CreateUser(t, e.db, "carol")
	d := testutil.CreateUser(t, e.db, "dave")
	g := testutil.CreateGroup(t, e.db, "g", a.ID)

	added, err := e.groups.AddMembers(ctx, g.ID, a.ID, []uint64{b.ID, b.ID, a.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint64{b.ID}, added)
	assert.Contains(t, actions(t, e.inbox(t, b.ID)), model.ActionMemberAdded)

	// 默认不允许普通成员拉人
	_, err = e.groups.AddMembers(ctx, g.ID, b.ID, []uint64{c.ID})
	assert.ErrorIs(t, err, ErrUnauthorized)

	settings := model.DefaultGroupSettings()
	settings.AllowMemberInvites = true
	_, err = e.groups.Update(ctx, g.ID, a.ID, GroupPatch{Settings: &settings})
	require.NoError(t, err)
	added, err = e.groups.AddMembers(ctx, g.ID, b.ID, []uint64{c.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint64{c.ID}, added)

	_, err = e.groups.AddMembers(ctx, g.ID, a.ID, []uint64{9999})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, e.db.Model(&model.Group{}).Where("id = ?", g.ID).Update("max_members", 3).Error)
	_, err = e.groups.AddMembers(ctx, g.ID, a.ID, []uint64{d.ID})
	assert.ErrorIs(t, err, ErrLimitExceeded)
}

func TestListMembers_Visibility(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	outsider := testutil.CreateUser(t, e.db, "oscar")
	g := testutil.CreateGroup(t, e.db, "g", a.ID)
	testutil.AddMember(t, e.db, g.ID, b.ID, model.RoleMember)

	list, err := e.groups.ListMembers(ctx, g.ID, b.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, model.RoleAdmin, list[0].Role)
	assert.Equal(t, "bob", list[1].Username)

	_, err = e.groups.ListMembers(ctx, g.ID, outsider.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	settings := model.DefaultGroupSettings()
	settings.AllowMemberVisibility = false
	_, err = e.groups.Update(ctx, g.ID, a.ID, GroupPatch{Settings: &settings})
	require.NoError(t, err)

	_, err = e.groups.ListMembers(ctx, g.ID, b.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = e.groups.ListMembers(ctx, g.ID, a.ID)
	assert.NoError(t, err)
}

func TestUpdateGroup_RenameNotifiesMembers(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	g := testutil.CreateGroup(t, e.db, "old", a.ID)
	testutil.AddMember(t, e.db, g.ID, b.ID, model.RoleMember)

	name := "new"
	_, err := e.groups.Update(ctx, g.ID, b.ID, GroupPatch{Name: &name})
	assert.ErrorIs(t, err, ErrUnauthorized)

	blank := " "
	_, err = e.groups.Update(ctx, g.ID, a.ID, GroupPatch{Name: &blank})
	assert.ErrorIs(t, err, ErrValidation)

	updated, err := e.groups.Update(ctx, g.ID, a.ID, GroupPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Name)
	assert.Equal(t, []model.Action{model.ActionGroupRenamed}, actions(t, e.inbox(t, b.ID)))
	assert.Empty(t, e.inbox(t, a.ID))
}

func TestDeleteGroup(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	c := testutil.CreateUser(t, e.db, "carol")
	g := testutil.CreateGroup(t, e.db, "g", a.ID)
	testutil.AddMember(t, e.db, g.ID, b.ID, model.RoleMember)
	_, err := e.messages.SendGroupMessage(ctx, g.ID, b.ID, "hello", "")
	require.NoError(t, err)
	_, err = e.joins.Submit(ctx, g.ID, c.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, e.groups.Delete(ctx, g.ID, b.ID), ErrUnauthorized)
	require.NoError(t, e.groups.Delete(ctx, g.ID, a.ID))

	for _, uid := range []uint64{a.ID, b.ID} {
		st, err := e.groups.CheckMembership(ctx, g.ID, uid)
		require.NoError(t, err)
		assert.False(t, st.IsMember)
	}
	assert.EqualValues(t, 0, e.countRows(t, &model.GroupMember{}, "group_id = ?", g.ID))
	assert.EqualValues(t, 0, e.countRows(t, &model.GroupMessage{}, "group_id = ?", g.ID))
	assert.EqualValues(t, 0, e.countRows(t, &model.JoinRequest{}, "group_id = ?", g.ID))

	_, err = e.groups.Get(ctx, g.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.messages.ListGroupMessages(ctx, g.ID, b.ID, 0, 10)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.messages.AuthorizeTopic(ctx, b.ID, realtime.GroupTopic(g.ID))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, e.groups.Delete(ctx, g.ID, a.ID), ErrNotFound)

	assert.Contains(t, actions(t, e.inbox(t, b.ID)), model.ActionGroupDeleted)
}
