package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/d60-Lab/microfeed/internal/repository"
	"github.com/d60-Lab/microfeed/pkg/logger"
	"github.com/d60-Lab/microfeed/pkg/metrics"
)

// DataCounts demo stats 响应
type DataCounts struct {
	Users               int64 `json:"users"`
	Tweets              int64 `json:"tweets"`
	Follows             int64 `json:"follows"`
	PendingOutboxEvents int64 `json:"pendingOutboxEvents"`
}

// ClearResult demo reset 清掉的数量
type ClearResult struct {
	Users              int64 `json:"users"`
	Tweets             int64 `json:"tweets"`
	Follows            int64 `json:"follows"`
	OutboxEvents       int64 `json:"outboxEvents"`
	TimelineKeys       int64 `json:"timelineKeys"`
	KafkaRecordsPurged int64 `json:"kafkaRecordsPurged"`
}

// TopicPurger 管理面里唯一触碰消息日志的口子
type TopicPurger interface {
	PurgeTopic(topic string) (int64, error)
}

// AdminService demo 统计与重置
type AdminService struct {
	userRepo   repository.UserRepository
	postRepo   repository.PostRepository
	followRepo repository.FollowRepository
	outboxRepo repository.OutboxRepository
	cache      repository.TimelineCache
	purger     TopicPurger
	topic      string
	metrics    *metrics.Registry
}

func NewAdminService(
	userRepo repository.UserRepository,
	postRepo repository.PostRepository,
	followRepo repository.FollowRepository,
	outboxRepo repository.OutboxRepository,
	cache repository.TimelineCache,
	purger TopicPurger,
	topic string,
	reg *metrics.Registry,
) *AdminService {
	return &AdminService{
		userRepo:   userRepo,
		postRepo:   postRepo,
		followRepo: followRepo,
		outboxRepo: outboxRepo,
		cache:      cache,
		purger:     purger,
		topic:      topic,
		metrics:    reg,
	}
}

func (s *AdminService) Stats(ctx context.Context) (DataCounts, error) {
	var counts DataCounts
	var err error
	if counts.Users, err = s.userRepo.Count(ctx); err != nil {
		return counts, err
	}
	if counts.Tweets, err = s.postRepo.Count(ctx); err != nil {
		return counts, err
	}
	if counts.Follows, err = s.followRepo.Count(ctx); err != nil {
		return counts, err
	}
	counts.PendingOutboxEvents, err = s.outboxRepo.CountUnprocessed(ctx)
	return counts, err
}

// Reset 清空库表、时间线缓存和事件主题，计数器归零
func (s *AdminService) Reset(ctx context.Context) (ClearResult, error) {
	logger.Warn("demo reset initiated")

	var result ClearResult
	var err error
	if result.OutboxEvents, err = s.outboxRepo.DeleteAll(ctx); err != nil {
		return result, err
	}
	if result.Follows, err = s.followRepo.DeleteAll(ctx); err != nil {
		return result, err
	}
	if result.Tweets, err = s.postRepo.DeleteAll(ctx); err != nil {
		return result, err
	}
	if result.Users, err = s.userRepo.DeleteAll(ctx); err != nil {
		return result, err
	}
	if result.TimelineKeys, err = s.cache.FlushAll(ctx); err != nil {
		return result, err
	}
	if s.purger != nil {
		n, err := s.purger.PurgeTopic(s.topic)
		if err != nil {
			// 主题清不掉不拦整个 reset，消费端本就幂等
			logger.Error("purge topic during reset", zap.Error(err))
		}
		result.KafkaRecordsPurged = n
	}

	s.metrics.ResetAll()
	logger.Warn("demo reset completed",
		zap.Int64("users", result.Users),
		zap.Int64("tweets", result.Tweets),
		zap.Int64("follows", result.Follows),
		zap.Int64("kafka", result.KafkaRecordsPurged))
	return result, nil
}
