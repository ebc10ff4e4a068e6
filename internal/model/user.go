package model

import "time"

// User 用户占位记录：首次被关注或首次带身份请求时落库
type User struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	CreatedAt time.Time `gorm:"not null"`
}

func (User) TableName() string { return "users" }
