package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/microfeed/internal/api/middleware"
	"github.com/d60-Lab/microfeed/internal/domain"
	"github.com/d60-Lab/microfeed/pkg/response"
)

type followView struct {
	FollowerID string `json:"followerId"`
	FolloweeID string `json:"followeeId"`
	Status     string `json:"status"`
}

// Follow 关注
// @Summary 关注用户
// @Tags 关系链
// @Param id path string true "关注方ID（须与调用方一致）"
// @Param target path string true "被关注方ID"
// @Success 201 {object} followView
// @Failure 400 {object} response.ErrorBody
// @Failure 409 {object} response.ErrorBody
// @Router /api/v1/users/{id}/follow/{target} [post]
func (h *Handler) Follow(c *gin.Context) {
	follower, followee, ok := h.followPair(c)
	if !ok {
		return
	}
	if err := h.relSvc.Follow(c.Request.Context(), follower, followee); err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, followView{FollowerID: follower.String(), FolloweeID: followee.String(), Status: "followed"})
}

// Unfollow 取消关注
// @Summary 取消关注
// @Tags 关系链
// @Param id path string true "关注方ID（须与调用方一致）"
// @Param target path string true "被取关方ID"
// @Success 200 {object} followView
// @Failure 409 {object} response.ErrorBody
// @Router /api/v1/users/{id}/follow/{target} [delete]
func (h *Handler) Unfollow(c *gin.Context) {
	follower, followee, ok := h.followPair(c)
	if !ok {
		return
	}
	if err := h.relSvc.Unfollow(c.Request.Context(), follower, followee); err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, followView{FollowerID: follower.String(), FolloweeID: followee.String(), Status: "unfollowed"})
}

// followPair 解析路径两端并校验路径 id 就是调用方
func (h *Handler) followPair(c *gin.Context) (domain.UserID, domain.UserID, bool) {
	caller, ok := middleware.Caller(c)
	if !ok {
		response.InternalError(c)
		return domain.UserID{}, domain.UserID{}, false
	}
	if c.Param("id") != caller.String() {
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "User ID in path must match authenticated user")
		return domain.UserID{}, domain.UserID{}, false
	}
	followee, err := domain.ParseUserID(c.Param("target"))
	if err != nil {
		response.BadRequest(c, domain.CodeOf(err), err.Error())
		return domain.UserID{}, domain.UserID{}, false
	}
	return caller, followee, true
}

// GetFollowing 关注列表
// @Summary 某用户关注的人
// @Tags 关系链
// @Param id path string true "用户ID"
// @Param cursor query string false "上一页末行的关注时间（RFC3339）"
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} response.PageBody
// @Router /api/v1/users/{id}/following [get]
func (h *Handler) GetFollowing(c *gin.Context) {
	userID, err := domain.ParseUserID(c.Param("id"))
	if err != nil {
		response.BadRequest(c, domain.CodeOf(err), err.Error())
		return
	}
	rows, nextCursor, hasMore, err := h.relSvc.GetFollowing(
		c.Request.Context(), userID, c.Query("cursor"), h.effectiveLimit(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Page(c, toUserViews(rows), nextCursor, hasMore)
}

// GetFollowers 粉丝列表
// @Summary 某用户的粉丝
// @Tags 关系链
// @Param id path string true "用户ID"
// @Param cursor query string false "上一页末行的关注时间（RFC3339）"
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} response.PageBody
// @Router /api/v1/users/{id}/followers [get]
func (h *Handler) GetFollowers(c *gin.Context) {
	userID, err := domain.ParseUserID(c.Param("id"))
	if err != nil {
		response.BadRequest(c, domain.CodeOf(err), err.Error())
		return
	}
	rows, nextCursor, hasMore, err := h.relSvc.GetFollowers(
		c.Request.Context(), userID, c.Query("cursor"), h.effectiveLimit(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Page(c, toUserViews(rows), nextCursor, hasMore)
}
