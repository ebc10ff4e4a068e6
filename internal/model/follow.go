package model

import "time"

// Follow 关注关系（follower 关注 followee）
type Follow struct {
	FollowerID string `gorm:"primaryKey;type:varchar(36);index:idx_follow_followee,priority:2"`
	FolloweeID string `gorm:"primaryKey;type:varchar(36);index:idx_follow_followee,priority:1"`
	// 复合主键即 (follower_id, followee_id) 唯一键，重复关注不落第二行
	CreatedAt time.Time `gorm:"index;not null"`
}

func (Follow) TableName() string { return "follows" }
