package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/microfeed/internal/api/middleware"
	"github.com/d60-Lab/microfeed/internal/domain"
	"github.com/d60-Lab/microfeed/pkg/response"
)

type createPostRequest struct {
	Content string `json:"content" binding:"required"`
}

// CreatePost 发帖
// @Summary 创建帖子（正文 ≤ 280 码点）
// @Tags 帖子
// @Accept json
// @Produce json
// @Param request body createPostRequest true "帖子内容"
// @Success 201 {object} postView
// @Failure 400 {object} response.ErrorBody
// @Router /api/v1/posts [post]
func (h *Handler) CreatePost(c *gin.Context) {
	caller, ok := middleware.Caller(c)
	if !ok {
		response.InternalError(c)
		return
	}
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "TWEET_CONTENT_EMPTY", "Tweet content cannot be empty")
		return
	}
	post, err := h.postSvc.CreatePost(c.Request.Context(), caller, req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, toPostView(*post))
}

// GetUserPosts 作者页
// @Summary 某作者的帖子，按时间倒序翻页
// @Tags 帖子
// @Param id path string true "用户ID"
// @Param cursor query string false "上一页返回的游标"
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} response.PageBody
// @Router /api/v1/users/{id}/posts [get]
func (h *Handler) GetUserPosts(c *gin.Context) {
	author, err := domain.ParseUserID(c.Param("id"))
	if err != nil {
		response.BadRequest(c, domain.CodeOf(err), err.Error())
		return
	}
	posts, nextCursor, hasMore, err := h.postSvc.GetUserPosts(
		c.Request.Context(), author, c.Query("cursor"), h.effectiveLimit(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Page(c, toPostViews(posts), nextCursor, hasMore)
}
