package model

import "time"

const (
	OutboxPending = 0
	OutboxSent    = 1
	OutboxFailed  = 2
)

// Outbox 领域事件表，与业务写入同一事务，由 OutboxRelayer 异步投递到 kafka
type Outbox struct {
	ID          uint64    `gorm:"primaryKey"`
	EventID     string    `gorm:"size:36;uniqueIndex;not null"`
	EventType   string    `gorm:"size:32;not null"`
	AggregateID uint64    `gorm:"not null;index"`
	ActorID     uint64    `gorm:"not null"`
	Payload     string    `gorm:"type:text;not null"`
	Status      int8      `gorm:"not null;default:0;index"` // 0=pending,1=sent,2=failed
	Retry       int       `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Outbox) TableName() string { return "social_outbox" }
