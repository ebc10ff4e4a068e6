package domain

import (
	"strings"
	"unicode/utf8"
)

// MaxContentLength 帖子正文上限（Unicode 码点数）
const MaxContentLength = 280

// ValidateContent 去除首尾空白后校验；返回入库用的正文
func ValidateContent(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", ErrEmptyContent
	}
	if n := utf8.RuneCountInString(trimmed); n > MaxContentLength {
		return "", &ContentTooLongError{Length: n, Max: MaxContentLength}
	}
	return trimmed, nil
}
