package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/microfeed/internal/api/middleware"
	"github.com/d60-Lab/microfeed/pkg/response"
)

// GetTimeline 主时间线
// @Summary 调用方的主时间线（物化缓存 + 大V按需合并）
// @Tags 时间线
// @Param id path string true "用户ID（只能看自己的）"
// @Param cursor query string false "上一页返回的游标"
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} response.PageBody
// @Failure 403 {object} response.ErrorBody
// @Router /api/v1/users/{id}/timeline [get]
func (h *Handler) GetTimeline(c *gin.Context) {
	caller, ok := middleware.Caller(c)
	if !ok {
		response.InternalError(c)
		return
	}
	if c.Param("id") != caller.String() {
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "You can only view your own timeline")
		return
	}
	posts, nextCursor, hasMore, err := h.tlSvc.GetTimeline(
		c.Request.Context(), caller, c.Query("cursor"), h.effectiveLimit(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Page(c, toPostViews(posts), nextCursor, hasMore)
}
