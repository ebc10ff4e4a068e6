package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d60-Lab/microfeed/internal/domain"
	"github.com/d60-Lab/microfeed/internal/repository"
	"github.com/d60-Lab/microfeed/internal/reqctx"
	"github.com/d60-Lab/microfeed/internal/sharding"
	"github.com/d60-Lab/microfeed/pkg/logger"
	"github.com/d60-Lab/microfeed/pkg/response"
)

const (
	userIDHeader    = "X-User-Id"
	requestIDHeader = "X-Request-Id"

	// CallerKey gin 上下文里已认证的 domain.UserID
	CallerKey = "caller"
)

var publicPrefixes = []string{
	"/actuator",
	"/api/v1/demo",
}

// RequestID 透传或生成请求 ID，并回写响应头
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if strings.TrimSpace(rid) == "" {
			rid = uuid.NewString()
		}
		c.Header(requestIDHeader, rid)
		rc := reqctx.From(c.Request.Context())
		rc.RequestID = rid
		c.Request = c.Request.WithContext(reqctx.With(c.Request.Context(), rc))
		c.Next()
	}
}

// Auth 信任上游校验过的 X-User-Id。认证通过后补占位用户行，
// 并把调用方、分片写进请求上下文。
func Auth(userRepo repository.UserRepository, router *sharding.Router) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, p := range publicPrefixes {
			if strings.HasPrefix(path, p) {
				c.Next()
				return
			}
		}

		header := c.GetHeader(userIDHeader)
		if strings.TrimSpace(header) == "" {
			logger.Warn("missing identity header", zap.String("path", path))
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing "+userIDHeader+" header")
			return
		}
		caller, err := domain.ParseUserID(header)
		if err != nil {
			response.BadRequest(c, domain.CodeOf(err), err.Error())
			return
		}

		rc := reqctx.From(c.Request.Context())
		rc.UserID = caller.String()
		rc.Shard = router.ShardFor(caller.String())
		ctx := reqctx.With(c.Request.Context(), rc)
		c.Request = c.Request.WithContext(ctx)

		// 先于任何业务操作保证调用方存在
		if err := userRepo.UpsertIfAbsent(ctx, caller.String()); err != nil {
			logger.Error("upsert caller", zap.Error(err))
			response.InternalError(c)
			return
		}

		c.Set(CallerKey, caller)
		c.Next()
	}
}

// Caller 取出已认证用户
func Caller(c *gin.Context) (domain.UserID, bool) {
	v, ok := c.Get(CallerKey)
	if !ok {
		return domain.UserID{}, false
	}
	id, ok := v.(domain.UserID)
	return id, ok
}
