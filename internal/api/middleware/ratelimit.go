package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/d60-Lab/microfeed/pkg/response"
)

// RateLimit 按调用方限流；无身份的请求按来源 IP
func RateLimit(perSec float64, burst int) gin.HandlerFunc {
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	get := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		l, ok := limiters[key]
		if !ok {
			l = rate.NewLimiter(rate.Limit(perSec), burst)
			limiters[key] = l
		}
		return l
	}

	return func(c *gin.Context) {
		key := c.GetHeader(userIDHeader)
		if key == "" {
			key = c.ClientIP()
		}
		if !get(key).Allow() {
			response.Error(c, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
			return
		}
		c.Next()
	}
}
