package testutil

import (
	"context"
	"fmt"
	"testing"

	"Uni_Connect/internal/model"
	"Uni_Connect/internal/repository/mysql"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// CreateUser 插入一个用户，用户名唯一
func CreateUser(t *testing.T, db *gorm.DB, username string) *model.User {
	t.Helper()
	u := &model.User{
		Username:   username,
		Email:      fmt.Sprintf("%s@uni.test", username),
		Password:   "x",
		FullName:   username,
		University: "Test University",
	}
	require.NoError(t, (&mysql.UserRepository{DB: db}).Create(context.Background(), u))
	return u
}

// CreateGroup 直接落库建群，创建者为 admin
func CreateGroup(t *testing.T, db *gorm.DB, name string, creatorID uint64) *model.Group {
	t.Helper()
	g := &model.Group{
		Name:       name,
		CreatedBy:  creatorID,
		AdminID:    creatorID,
		MaxMembers: model.DefaultMaxMembers,
		Settings:   model.DefaultGroupSettings(),
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		return (&mysql.GroupRepository{DB: tx}).Create(context.Background(), g)
	})
	require.NoError(t, err)
	return g
}

// AddMember 直接插入成员记录
func AddMember(t *testing.T, db *gorm.DB, groupID, userID uint64, role model.GroupRole) {
	t.Helper()
	ok, err := (&mysql.MemberRepository{DB: db}).Join(context.Background(), &model.GroupMember{
		GroupID: groupID,
		UserID:  userID,
		Role:    role,
	})
	require.NoError(t, err)
	require.True(t, ok)
}
