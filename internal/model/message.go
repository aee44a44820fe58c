package model

import "time"

type GroupMessage struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	GroupID   uint64    `gorm:"not null;index:idx_gmsg_group_id,priority:1" json:"group_id"`
	SenderID  uint64    `gorm:"not null;index" json:"sender_id"`
	Content   string    `gorm:"type:text" json:"content"`
	ImageURL  string    `gorm:"size:255" json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type DirectMessage struct {
	ID         uint64    `gorm:"primaryKey" json:"id"`
	SenderID   uint64    `gorm:"not null;index:idx_dm_pair,priority:1" json:"sender_id"`
	ReceiverID uint64    `gorm:"not null;index:idx_dm_pair,priority:2" json:"receiver_id"`
	Content    string    `gorm:"type:text" json:"content"`
	ImageURL   string    `gorm:"size:255" json:"image_url,omitempty"`
	Read       bool      `gorm:"not null" json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}
