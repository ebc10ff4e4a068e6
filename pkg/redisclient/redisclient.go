package redisclient

import (
	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/microfeed/config"
)

// New 按配置构建 redis 客户端
func New(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}
