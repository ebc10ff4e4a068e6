package service

import (
	"encoding/base64"

	"github.com/google/uuid"
)

// encodeIDCursor 帖子游标：id 字符串的 base64
func encodeIDCursor(id string) string {
	return base64.StdEncoding.EncodeToString([]byte(id))
}

// decodeIDCursor 解出游标里的帖子 id；任何解析失败都当首页
func decodeIDCursor(cursor string) string {
	if cursor == "" {
		return ""
	}
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return ""
	}
	u, err := uuid.Parse(string(raw))
	if err != nil {
		return ""
	}
	return u.String()
}
