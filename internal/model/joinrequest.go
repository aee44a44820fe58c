package model

import (
	"fmt"
	"time"
)

type JoinRequestStatus string

const (
	JoinRequestPending  JoinRequestStatus = "pending"
	JoinRequestApproved JoinRequestStatus = "approved"
	JoinRequestRejected JoinRequestStatus = "rejected"
)

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// JoinRequest 入群申请；PendingKey 仅在 pending 时非空，唯一索引保证同一 (group,user) 至多一条 pending
type JoinRequest struct {
	ID         uint64            `gorm:"primaryKey" json:"id"`
	GroupID    uint64            `gorm:"not null;index:idx_jr_group_status,priority:1" json:"group_id"`
	UserID     uint64            `gorm:"not null;index" json:"user_id"`
	Status     JoinRequestStatus `gorm:"size:16;not null;index:idx_jr_group_status,priority:2" json:"status"`
	PendingKey *string           `gorm:"size:64;uniqueIndex" json:"-"`
	ResolvedBy uint64            `gorm:"not null;default:0" json:"resolved_by,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func JoinPendingKey(groupID, userID uint64) *string {
	k := fmt.Sprintf("%d:%d", groupID, userID)
	return &k
}

// JoinRequestView 带申请人资料的申请
type JoinRequestView struct {
	JoinRequest
	User Profile `json:"user"`
}
