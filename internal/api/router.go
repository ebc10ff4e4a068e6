package api

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/microfeed/config"
	"github.com/d60-Lab/microfeed/internal/api/handler"
	"github.com/d60-Lab/microfeed/internal/api/middleware"
	"github.com/d60-Lab/microfeed/internal/repository"
	"github.com/d60-Lab/microfeed/internal/sharding"
)

// NewRouter 组装中间件与全部路由
func NewRouter(
	cfg *config.Config,
	h *handler.Handler,
	userRepo repository.UserRepository,
	router *sharding.Router,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(
		middleware.Recovery(),
		otelgin.Middleware("microfeed"),
		gzip.Gzip(gzip.DefaultCompression),
		middleware.RequestID(),
		middleware.RateLimit(cfg.Server.RateLimitPerSec, cfg.Server.RateLimitBurst),
		middleware.Auth(userRepo, router),
	)

	r.GET("/actuator/health", h.Health)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/posts", h.CreatePost)
		v1.GET("/users/:id/posts", h.GetUserPosts)
		v1.POST("/users/:id/follow/:target", h.Follow)
		v1.DELETE("/users/:id/follow/:target", h.Unfollow)
		v1.GET("/users/:id/following", h.GetFollowing)
		v1.GET("/users/:id/followers", h.GetFollowers)
		v1.GET("/users/:id/timeline", h.GetTimeline)

		demo := v1.Group("/demo")
		{
			demo.GET("/stats", h.Stats)
			demo.POST("/reset", h.Reset)
		}
	}

	return r
}
