package model

import "time"

// Outbox 事务外发盒。processed_at 为空表示未投递；
// created_at 上建 WHERE processed_at IS NULL 的部分索引给轮询用。
type Outbox struct {
	ID          string     `gorm:"primaryKey;type:uuid"`
	EventType   string     `gorm:"type:varchar(32);not null"`
	AggregateID string     `gorm:"type:varchar(36);not null"`
	Payload     string     `gorm:"type:jsonb;not null"`
	RequestID   string     `gorm:"type:varchar(64)"`
	CreatedAt   time.Time  `gorm:"index:idx_outbox_pending,where:processed_at IS NULL;not null"`
	ProcessedAt *time.Time `gorm:"index"`
}

func (Outbox) TableName() string { return "outbox" }
