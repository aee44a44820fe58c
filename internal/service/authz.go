package service

import (
	"context"
	"errors"

	"Uni_Connect/internal/model"
	"Uni_Connect/internal/repository/mysql"

	"gorm.io/gorm"
)

// roleOf 群内角色的唯一判定入口；非成员返回 RoleNone
// db 可以是事务句柄，保证判定与后续写入读到同一份数据
func roleOf(ctx context.Context, db *gorm.DB, groupID, userID uint64) (model.GroupRole, error) {
	if userID == 0 {
		return model.RoleNone, nil
	}
	m, err := (&mysql.MemberRepository{DB: db}).Find(ctx, groupID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.RoleNone, nil
	}
	if err != nil {
		return model.RoleNone, storeErr(err, "load membership")
	}
	return m.Role, nil
}

// requireRole 角色不满足时返回 ErrUnauthorized
func requireRole(ctx context.Context, db *gorm.DB, groupID, userID uint64, ok func(model.GroupRole) bool) (model.GroupRole, error) {
	role, err := roleOf(ctx, db, groupID, userID)
	if err != nil {
		return role, err
	}
	if !ok(role) {
		return role, ErrUnauthorized
	}
	return role, nil
}

func isAdmin(r model.GroupRole) bool { return r == model.RoleAdmin }

func canManage(r model.GroupRole) bool { return r.CanManage() }

func isMember(r model.GroupRole) bool { return r.IsMember() }
