package model

import (
	"fmt"
	"time"
)

type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "pending"
	FriendRequestAccepted FriendRequestStatus = "accepted"
	FriendRequestRejected FriendRequestStatus = "rejected"
)

type FriendRequest struct {
	ID         uint64              `gorm:"primaryKey" json:"id"`
	SenderID   uint64              `gorm:"not null;index" json:"sender_id"`
	ReceiverID uint64              `gorm:"not null;index" json:"receiver_id"`
	Status     FriendRequestStatus `gorm:"size:16;not null;index" json:"status"`
	PendingKey *string             `gorm:"size:64;uniqueIndex" json:"-"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// FriendPendingKey 与方向无关，A->B 与 B->A 共用同一个键
func FriendPendingKey(a, b uint64) *string {
	lo, hi := OrderedPair(a, b)
	k := fmt.Sprintf("%d:%d", lo, hi)
	return &k
}

// Friendship 无向边，UserID1 < UserID2
type Friendship struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	UserID1   uint64    `gorm:"not null;uniqueIndex:uk_friend_pair;index" json:"user_id1"`
	UserID2   uint64    `gorm:"not null;uniqueIndex:uk_friend_pair;index" json:"user_id2"`
	CreatedAt time.Time `json:"created_at"`
}

func (Friendship) TableName() string {
	return "friends"
}

func OrderedPair(a, b uint64) (uint64, uint64) {
	if a < b {
		return a, b
	}
	return b, a
}

// FriendRequestView 带对方资料的好友申请
type FriendRequestView struct {
	FriendRequest
	User Profile `json:"user"`
}
