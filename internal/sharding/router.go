// Package sharding routes storage calls to one of N relational shards by a
// pure, stable hash of the user id. With a single shard it is the identity.
package sharding

import (
	"context"
	"hash/fnv"

	"gorm.io/gorm"

	"github.com/d60-Lab/microfeed/internal/reqctx"
)

type Router struct {
	dbs []*gorm.DB
}

func NewRouter(dbs []*gorm.DB) *Router {
	if len(dbs) == 0 {
		panic("sharding: at least one database required")
	}
	return &Router{dbs: dbs}
}

// ShardFor 计算用户所属分片
func (r *Router) ShardFor(userID string) int {
	if len(r.dbs) == 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(r.dbs)))
}

// DB 返回该用户数据所在的库
func (r *Router) DB(userID string) *gorm.DB {
	return r.dbs[r.ShardFor(userID)]
}

// FromContext 按请求上下文中的分片号取库；上下文缺失时退回 0 号库
func (r *Router) FromContext(ctx context.Context) *gorm.DB {
	if s := reqctx.From(ctx).Shard; s > 0 && s < len(r.dbs) {
		return r.dbs[s]
	}
	return r.dbs[0]
}

// Each 遍历全部分片（统计、清空等全局操作用）
func (r *Router) Each(fn func(db *gorm.DB) error) error {
	for _, db := range r.dbs {
		if err := fn(db); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) ShardCount() int { return len(r.dbs) }
