// Package domain holds the value types, events and error kinds shared by
// the write path, the dispatcher and the materializer.
package domain

import (
	"strings"

	"github.com/google/uuid"
)

// UserID 用户标识。Value 包一层，让事件 JSON 里保持 {"value": "..."} 的线格式。
type UserID struct {
	Value uuid.UUID `json:"value"`
}

// ParseUserID 解析外部输入；空串与格式错误分别返回对应错误
func ParseUserID(s string) (UserID, error) {
	if strings.TrimSpace(s) == "" {
		return UserID{}, ErrUserIDEmpty
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, &InvalidUserIDError{Raw: s}
	}
	return UserID{Value: u}, nil
}

// UserIDFromTrusted 解析来自库表/消息键的标识；损坏即数据级故障，返回错误由调用方按 500 处理
func UserIDFromTrusted(s string) (UserID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, &InvalidUserIDError{Raw: s}
	}
	return UserID{Value: u}, nil
}

func (id UserID) String() string { return id.Value.String() }

func (id UserID) IsZero() bool { return id.Value == uuid.Nil }
