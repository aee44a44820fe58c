package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type NotificationType string

const (
	NotificationInfo        NotificationType = "info"
	NotificationSuccess     NotificationType = "success"
	NotificationWarning     NotificationType = "warning"
	NotificationError       NotificationType = "error"
	NotificationGroupMember NotificationType = "group_member"
	NotificationFriend      NotificationType = "friend"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationInfo, NotificationSuccess, NotificationWarning, NotificationError,
		NotificationGroupMember, NotificationFriend:
		return true
	}
	return false
}

// Action 通知元数据的标签，决定 metadata 的具体结构
type Action string

const (
	ActionJoinRequested          Action = "join_requested"
	ActionJoinApproved           Action = "join_request_approved"
	ActionJoinRejected           Action = "join_request_rejected"
	ActionMemberJoined           Action = "join_approved"
	ActionMemberAdded            Action = "member_added"
	ActionMemberRemoved          Action = "member_removed"
	ActionSecondaryAdminAssigned Action = "secondary_admin_assigned"
	ActionAdminTransferred       Action = "admin_transferred"
	ActionGroupRenamed           Action = "group_renamed"
	ActionGroupDeleted           Action = "group_deleted"
	ActionFriendRequested        Action = "friend_request"
	ActionFriendAccepted         Action = "friend_accepted"
)

var ErrInvalidMetadata = errors.New("invalid notification metadata")

type Metadata interface {
	Kind() Action
	Validate() error
}

// JoinRequestMetadata 发给管理员的入群申请提醒
type JoinRequestMetadata struct {
	Action    Action `json:"action"`
	GroupID   uint64 `json:"group_id"`
	RequestID uint64 `json:"request_id"`
	UserID    uint64 `json:"user_id"`
}

func NewJoinRequestMetadata(groupID, requestID, userID uint64) JoinRequestMetadata {
	return JoinRequestMetadata{Action: ActionJoinRequested, GroupID: groupID, RequestID: requestID, UserID: userID}
}

func (m JoinRequestMetadata) Kind() Action { return m.Action }

func (m JoinRequestMetadata) Validate() error {
	if m.Action != ActionJoinRequested {
		return fmt.Errorf("%w: unexpected action %q", ErrInvalidMetadata, m.Action)
	}
	if m.GroupID == 0 || m.RequestID == 0 || m.UserID == 0 {
		return fmt.Errorf("%w: group_id, request_id and user_id required", ErrInvalidMetadata)
	}
	return nil
}

// JoinDecisionMetadata 审批结果，发给申请人
type JoinDecisionMetadata struct {
	Action    Action `json:"action"`
	GroupID   uint64 `json:"group_id"`
	RequestID uint64 `json:"request_id"`
	UserID    uint64 `json:"user_id"`
}

func NewJoinDecisionMetadata(approved bool, groupID, requestID, userID uint64) JoinDecisionMetadata {
	action := ActionJoinRejected
	if approved {
		action = ActionJoinApproved
	}
	return JoinDecisionMetadata{Action: action, GroupID: groupID, RequestID: requestID, UserID: userID}
}

func (m JoinDecisionMetadata) Kind() Action { return m.Action }

func (m JoinDecisionMetadata) Validate() error {
	if m.Action != ActionJoinApproved && m.Action != ActionJoinRejected {
		return fmt.Errorf("%w: unexpected action %q", ErrInvalidMetadata, m.Action)
	}
	if m.GroupID == 0 || m.RequestID == 0 || m.UserID == 0 {
		return fmt.Errorf("%w: group_id, request_id and user_id required", ErrInvalidMetadata)
	}
	return nil
}

// GroupEventMetadata 群内成员变动、改名、解散等事件；UserID 为事件涉及的用户
type GroupEventMetadata struct {
	Action  Action `json:"action"`
	GroupID uint64 `json:"group_id"`
	UserID  uint64 `json:"user_id,omitempty"`
}

func NewGroupEventMetadata(action Action, groupID, userID uint64) GroupEventMetadata {
	return GroupEventMetadata{Action: action, GroupID: groupID, UserID: userID}
}

func (m GroupEventMetadata) Kind() Action { return m.Action }

func (m GroupEventMetadata) Validate() error {
	switch m.Action {
	case ActionMemberJoined, ActionMemberAdded, ActionMemberRemoved, ActionSecondaryAdminAssigned,
		ActionAdminTransferred:
		if m.UserID == 0 {
			return fmt.Errorf("%w: user_id required for %s", ErrInvalidMetadata, m.Action)
		}
	case ActionGroupRenamed, ActionGroupDeleted:
	default:
		return fmt.Errorf("%w: unexpected action %q", ErrInvalidMetadata, m.Action)
	}
	if m.GroupID == 0 {
		return fmt.Errorf("%w: group_id required", ErrInvalidMetadata)
	}
	return nil
}

// FriendMetadata 好友申请与通过
type FriendMetadata struct {
	Action    Action `json:"action"`
	RequestID uint64 `json:"request_id"`
	UserID    uint64 `json:"user_id"`
}

func NewFriendMetadata(action Action, requestID, userID uint64) FriendMetadata {
	return FriendMetadata{Action: action, RequestID: requestID, UserID: userID}
}

func (m FriendMetadata) Kind() Action { return m.Action }

func (m FriendMetadata) Validate() error {
	if m.Action != ActionFriendRequested && m.Action != ActionFriendAccepted {
		return fmt.Errorf("%w: unexpected action %q", ErrInvalidMetadata, m.Action)
	}
	if m.RequestID == 0 || m.UserID == 0 {
		return fmt.Errorf("%w: request_id and user_id required", ErrInvalidMetadata)
	}
	return nil
}

// DecodeMetadata 按 action 还原具体的元数据结构
func DecodeMetadata(raw string) (Metadata, error) {
	if raw == "" {
		return nil, nil
	}
	var head struct {
		Action Action `json:"action"`
	}
	if err := json.Unmarshal([]byte(raw), &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	var m Metadata
	switch head.Action {
	case ActionJoinRequested:
		var v JoinRequestMetadata
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
		}
		m = v
	case ActionJoinApproved, ActionJoinRejected:
		var v JoinDecisionMetadata
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
		}
		m = v
	case ActionFriendRequested, ActionFriendAccepted:
		var v FriendMetadata
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
		}
		m = v
	default:
		var v GroupEventMetadata
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
		}
		m = v
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

type Notification struct {
	ID           uint64           `gorm:"primaryKey" json:"id"`
	UserID       uint64           `gorm:"not null;index:idx_notify_user_read,priority:1" json:"user_id"`
	Title        string           `gorm:"size:128;not null" json:"title"`
	Content      string           `gorm:"type:text" json:"content"`
	Type         NotificationType `gorm:"size:32;not null" json:"type"`
	Read         bool             `gorm:"not null;index:idx_notify_user_read,priority:2" json:"read"`
	MetadataJSON string           `gorm:"column:metadata;type:text" json:"-"`
	CreatedAt    time.Time        `gorm:"index" json:"created_at"`
}

// NewNotification 构造时即校验元数据，渲染时无需再猜字段
func NewNotification(userID uint64, typ NotificationType, title, content string, meta Metadata) (*Notification, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: recipient required", ErrInvalidMetadata)
	}
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidMetadata, typ)
	}
	n := &Notification{UserID: userID, Type: typ, Title: title, Content: content}
	if meta != nil {
		if err := meta.Validate(); err != nil {
			return nil, err
		}
		raw, err := json.Marshal(meta)
		if err != nil {
			return nil, err
		}
		n.MetadataJSON = string(raw)
	}
	return n, nil
}

func (n *Notification) Meta() (Metadata, error) {
	return DecodeMetadata(n.MetadataJSON)
}

// MarshalJSON 附带解码后的 metadata；无法解码时省略该字段，错误由 Meta 返回给调用方
func (n Notification) MarshalJSON() ([]byte, error) {
	type alias Notification
	meta, _ := n.Meta()
	return json.Marshal(struct {
		alias
		Metadata Metadata `json:"metadata,omitempty"`
	}{alias: alias(n), Metadata: meta})
}
