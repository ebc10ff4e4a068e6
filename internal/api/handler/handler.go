package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/microfeed/config"
	"github.com/d60-Lab/microfeed/internal/domain"
	"github.com/d60-Lab/microfeed/internal/model"
	"github.com/d60-Lab/microfeed/internal/repository"
	"github.com/d60-Lab/microfeed/internal/service"
	"github.com/d60-Lab/microfeed/pkg/logger"
	"github.com/d60-Lab/microfeed/pkg/response"
)

type Handler struct {
	postSvc  *service.PostService
	relSvc   *service.RelationshipService
	tlSvc    *service.TimelineService
	adminSvc *service.AdminService
	timeline config.TimelineConfig
}

func New(
	postSvc *service.PostService,
	relSvc *service.RelationshipService,
	tlSvc *service.TimelineService,
	adminSvc *service.AdminService,
	timeline config.TimelineConfig,
) *Handler {
	return &Handler{postSvc: postSvc, relSvc: relSvc, tlSvc: tlSvc, adminSvc: adminSvc, timeline: timeline}
}

// postView 帖子响应体
type postView struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func toPostView(p model.Post) postView {
	return postView{ID: p.ID, UserID: p.UserID, Content: p.Content, CreatedAt: p.CreatedAt}
}

func toPostViews(posts []model.Post) []postView {
	out := make([]postView, len(posts))
	for i, p := range posts {
		out[i] = toPostView(p)
	}
	return out
}

// userView 关注列表里的用户
type userView struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserViews(rows []repository.FollowedUser) []userView {
	out := make([]userView, len(rows))
	for i, r := range rows {
		out[i] = userView{ID: r.UserID, CreatedAt: r.UserCreatedAt}
	}
	return out
}

// effectiveLimit 解析 limit 参数并夹在 [1, maxPageSize]
func (h *Handler) effectiveLimit(c *gin.Context) int {
	raw := c.Query("limit")
	if raw == "" {
		return h.timeline.DefaultPageSize
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return h.timeline.DefaultPageSize
	}
	if n > h.timeline.MaxPageSize {
		return h.timeline.MaxPageSize
	}
	return n
}

// writeError 业务错误按错误码映射状态位；其余 500
func writeError(c *gin.Context, err error) {
	var ce domain.CodedError
	if !errors.As(err, &ce) {
		logger.Error("request failed", zap.Error(err))
		response.InternalError(c)
		return
	}
	switch ce.Code() {
	case "ALREADY_FOLLOWING", "NOT_FOLLOWING":
		response.Error(c, http.StatusConflict, ce.Code(), ce.Error())
	default:
		response.BadRequest(c, ce.Code(), ce.Error())
	}
}
