package model

import "time"

const (
	DefaultMaxMembers  = 120
	MaxSecondaryAdmins = 3
)

// GroupRole 群内角色；RoleNone 表示非成员
type GroupRole string

const (
	RoleNone           GroupRole = ""
	RoleMember         GroupRole = "member"
	RoleSecondaryAdmin GroupRole = "secondary_admin"
	RoleAdmin          GroupRole = "admin"
)

// CanManage 管理员与副管理员可审批、改名、移除成员
func (r GroupRole) CanManage() bool {
	return r == RoleAdmin || r == RoleSecondaryAdmin
}

func (r GroupRole) IsMember() bool {
	return r != RoleNone
}

type GroupSettings struct {
	AllowMemberInvites    bool `gorm:"not null" json:"allow_member_invites"`
	AllowMessageDeletion  bool `gorm:"not null" json:"allow_message_deletion"`
	AllowMemberVisibility bool `gorm:"not null" json:"allow_member_visibility"`
}

func DefaultGroupSettings() GroupSettings {
	return GroupSettings{
		AllowMemberInvites:    false,
		AllowMessageDeletion:  true,
		AllowMemberVisibility: true,
	}
}

type Group struct {
	ID              uint64        `gorm:"primaryKey" json:"id"`
	Name            string        `gorm:"size:64;not null" json:"name"`
	Description     string        `gorm:"type:text" json:"description"`
	ImageURL        string        `gorm:"size:255" json:"image_url"`
	CreatedBy       uint64        `gorm:"not null;index" json:"created_by"`
	AdminID         uint64        `gorm:"not null;index" json:"admin_id"`
	SecondaryAdmins []uint64      `gorm:"serializer:json;type:text" json:"secondary_admins"`
	MaxMembers      int           `gorm:"not null;default:120" json:"max_members"`
	Settings        GroupSettings `gorm:"embedded;embeddedPrefix:setting_" json:"settings"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

type GroupMember struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	GroupID   uint64    `gorm:"not null;index;uniqueIndex:uk_group_user" json:"group_id"`
	UserID    uint64    `gorm:"not null;index;uniqueIndex:uk_group_user" json:"user_id"`
	Role      GroupRole `gorm:"size:16;not null;default:'member'" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MemberProfile 成员列表展示
type MemberProfile struct {
	Profile
	Role     GroupRole `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// MembershipStatus checkMembership 的返回值
type MembershipStatus struct {
	IsMember bool      `json:"is_member"`
	Role     GroupRole `json:"role,omitempty"`
}
