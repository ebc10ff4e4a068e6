package model

import "time"

// Post 内容主体。主键是 UUIDv7，id 的字节序即时间序，
// 作者页和时间线都按 id DESC 翻页。
type Post struct {
	ID        string    `gorm:"primaryKey;type:uuid"`
	UserID    string    `gorm:"type:varchar(36);index:idx_post_author;not null"`
	Content   string    `gorm:"type:varchar(1120);not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (Post) TableName() string { return "tweets" }
