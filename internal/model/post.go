package model

import "time"

type Post struct {
	ID        uint64    `gorm:"primaryKey;index:idx_post_time_id,priority:2,sort:desc" json:"id"`
	AuthorID  uint64    `gorm:"not null;index:idx_author_time" json:"author_id"`
	Content   string    `gorm:"type:text" json:"content"`
	ImageURL  string    `gorm:"size:255" json:"image_url,omitempty"`
	Status    int       `gorm:"not null;default:0" json:"-"` // 0=normal 1=deleted
	LikeCount int64     `gorm:"not null;default:0" json:"like_count"`
	CreatedAt time.Time `gorm:"index:idx_post_time_id,priority:1,sort:desc" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	PostNormal  = 0
	PostDeleted = 1
)
