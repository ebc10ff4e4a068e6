package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/microfeed/internal/reqctx"
)

// ErrorBody 统一错误响应 {error, message, requestId}
type ErrorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
}

// Pagination 游标分页元信息
type Pagination struct {
	NextCursor *string `json:"nextCursor"`
	HasMore    bool    `json:"hasMore"`
}

// PageBody 列表响应 {data, pagination}
type PageBody struct {
	Data       any        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// Page 输出分页响应；nextCursor 为空串时序列化为 null
func Page(c *gin.Context, data any, nextCursor string, hasMore bool) {
	var cursor *string
	if nextCursor != "" {
		cursor = &nextCursor
	}
	c.JSON(http.StatusOK, PageBody{Data: data, Pagination: Pagination{NextCursor: cursor, HasMore: hasMore}})
}

func Error(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorBody{
		Error:     code,
		Message:   message,
		RequestID: reqctx.RequestID(c.Request.Context()),
	})
}

func BadRequest(c *gin.Context, code, message string) {
	Error(c, http.StatusBadRequest, code, message)
}

func InternalError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "unexpected error")
}
