package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/microfeed/internal/service"
	"github.com/d60-Lab/microfeed/pkg/response"
)

type resetResponse struct {
	Status    string              `json:"status"`
	Timestamp time.Time           `json:"timestamp"`
	Cleared   service.ClearResult `json:"cleared"`
}

// Health 存活探针
// @Summary 健康检查
// @Tags 管理
// @Success 200 {object} map[string]string
// @Router /actuator/health [get]
func (h *Handler) Health(c *gin.Context) {
	response.OK(c, gin.H{"status": "UP"})
}

// Stats 实体计数
// @Summary 系统统计
// @Tags 管理
// @Success 200 {object} service.DataCounts
// @Router /api/v1/demo/stats [get]
func (h *Handler) Stats(c *gin.Context) {
	counts, err := h.adminSvc.Stats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, counts)
}

// Reset 清空所有存储
// @Summary demo 重置
// @Tags 管理
// @Success 200 {object} resetResponse
// @Router /api/v1/demo/reset [post]
func (h *Handler) Reset(c *gin.Context) {
	result, err := h.adminSvc.Reset(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, resetResponse{Status: "reset_complete", Timestamp: time.Now(), Cleared: result})
}
