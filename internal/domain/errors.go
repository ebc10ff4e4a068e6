package domain

import (
	"errors"
	"fmt"
)

// 预期业务错误统一携带线上的错误码；HTTP 层只认 Code()。
type CodedError interface {
	error
	Code() string
}

type codedError struct {
	code string
	msg  string
}

func (e *codedError) Error() string { return e.msg }
func (e *codedError) Code() string  { return e.code }

var (
	ErrUserIDEmpty      = &codedError{code: "USER_ID_EMPTY", msg: "User ID cannot be empty"}
	ErrEmptyContent     = &codedError{code: "TWEET_CONTENT_EMPTY", msg: "Tweet content cannot be empty"}
	ErrSelfFollow       = &codedError{code: "SELF_FOLLOW", msg: "Cannot follow yourself"}
	ErrAlreadyFollowing = &codedError{code: "ALREADY_FOLLOWING", msg: "Already following this user"}
	ErrNotFollowing     = &codedError{code: "NOT_FOLLOWING", msg: "Not following this user"}
)

type InvalidUserIDError struct {
	Raw string
}

func (e *InvalidUserIDError) Error() string {
	return fmt.Sprintf("User ID must be a valid UUID format: %s", e.Raw)
}
func (e *InvalidUserIDError) Code() string { return "USER_ID_INVALID_FORMAT" }

type ContentTooLongError struct {
	Length int
	Max    int
}

func (e *ContentTooLongError) Error() string {
	return fmt.Sprintf("Tweet content exceeds %d characters (was %d)", e.Max, e.Length)
}
func (e *ContentTooLongError) Code() string { return "TWEET_CONTENT_TOO_LONG" }

// CodeOf 提取业务错误码；非预期错误返回 INTERNAL_ERROR
func CodeOf(err error) string {
	var ce CodedError
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return "INTERNAL_ERROR"
}
