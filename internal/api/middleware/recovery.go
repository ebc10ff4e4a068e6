package middleware

import (
	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/microfeed/pkg/logger"
	"github.com/d60-Lab/microfeed/pkg/response"
)

// Recovery panic 只打掉当前请求：记日志、上报 sentry、回 500
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.Any("panic", r),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"))
				if hub := sentry.CurrentHub(); hub.Client() != nil {
					hub.Recover(r)
				}
				response.InternalError(c)
			}
		}()
		c.Next()
	}
}
