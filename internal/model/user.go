package model

import "time"

type User struct {
	ID         uint64    `gorm:"primaryKey" json:"id"`
	Username   string    `gorm:"uniqueIndex;size:32;not null" json:"username"`
	Password   string    `gorm:"size:255;not null" json:"-"`
	Email      string    `gorm:"uniqueIndex;size:64;not null" json:"email"`
	FullName   string    `gorm:"size:64" json:"full_name"`
	AvatarURL  string    `gorm:"size:255" json:"avatar_url"`
	University string    `gorm:"size:128;index" json:"university"`
	Bio        string    `gorm:"type:text" json:"bio"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Profile 对外公开的用户信息
type Profile struct {
	ID         uint64 `json:"id"`
	Username   string `json:"username"`
	FullName   string `json:"full_name"`
	AvatarURL  string `json:"avatar_url"`
	University string `json:"university"`
}

func (u *User) Profile() Profile {
	return Profile{
		ID:         u.ID,
		Username:   u.Username,
		FullName:   u.FullName,
		AvatarURL:  u.AvatarURL,
		University: u.University,
	}
}
