package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d60-Lab/microfeed/internal/domain"
	"github.com/d60-Lab/microfeed/internal/id"
	"github.com/d60-Lab/microfeed/internal/model"
	"github.com/d60-Lab/microfeed/internal/mq"
	"github.com/d60-Lab/microfeed/internal/repository"
	"github.com/d60-Lab/microfeed/internal/reqctx"
	"github.com/d60-Lab/microfeed/internal/sharding"
	"github.com/d60-Lab/microfeed/pkg/logger"
	"github.com/d60-Lab/microfeed/pkg/metrics"
)

// Materializer 时间线物化器。分区内串行、重复投递幂等：
// 同分值 ZADD 与删除不存在成员都是空操作。
type Materializer struct {
	router     *sharding.Router
	cache      repository.TimelineCache
	postRepo   repository.PostRepository
	followRepo repository.FollowRepository
	threshold  int
	maxSize    int
	metrics    *metrics.Registry
}

func NewMaterializer(
	router *sharding.Router,
	cache repository.TimelineCache,
	postRepo repository.PostRepository,
	followRepo repository.FollowRepository,
	celebrityThreshold, maxTimelineSize int,
	reg *metrics.Registry,
) *Materializer {
	return &Materializer{
		router:     router,
		cache:      cache,
		postRepo:   postRepo,
		followRepo: followRepo,
		threshold:  celebrityThreshold,
		maxSize:    maxTimelineSize,
		metrics:    reg,
	}
}

// Handle 是消费组的入口。消息键即聚合 id，由它恢复分片上下文。
func (m *Materializer) Handle(ctx context.Context, rec mq.Record) error {
	eventType := rec.Headers["eventType"]

	if rec.Key != "" {
		if _, err := domain.UserIDFromTrusted(rec.Key); err != nil {
			return fmt.Errorf("corrupt aggregate key %q: %w", rec.Key, err)
		}
		ctx = reqctx.With(ctx, reqctx.RequestContext{
			RequestID: rec.Headers["requestId"],
			Shard:     m.router.ShardFor(rec.Key),
		})
	}

	switch eventType {
	case domain.EventPostCreated:
		return m.handlePostCreated(ctx, rec.Value)
	case domain.EventUserFollowed:
		return m.handleUserFollowed(ctx, rec.Value)
	case domain.EventUserUnfollowed:
		return m.handleUserUnfollowed(ctx, rec.Value)
	default:
		logger.Warn("unknown event type", zap.String("eventType", eventType))
		return nil
	}
}

// handlePostCreated 混合扇出：大 V 的帖子留给读路径按需合并，
// 其余作者写扩散到每个粉丝的时间线。
func (m *Materializer) handlePostCreated(ctx context.Context, payload []byte) error {
	var ev domain.PostCreated
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("decode POST_CREATED: %w", err)
	}
	author := ev.UserID.String()
	postID := ev.TweetID.String()
	score := id.ExtractTimestamp(ev.TweetID)

	followerCount, err := m.followRepo.CountFollowers(ctx, author)
	if err != nil {
		return err
	}
	if followerCount > int64(m.threshold) {
		logger.Debug("skipping fan-out for celebrity",
			zap.String("author", author),
			zap.Int64("followers", followerCount),
			zap.String("postId", postID))
		return nil
	}

	var fanoutErr error
	m.metrics.RecordFanout(func() {
		followerIDs, err := m.followRepo.FindAllFollowerIDs(ctx, author)
		if err != nil {
			fanoutErr = err
			return
		}
		logger.Debug("fan-out post",
			zap.String("postId", postID),
			zap.Int("followers", len(followerIDs)))
		for _, follower := range followerIDs {
			if err := m.cache.Add(ctx, follower, postID, score); err != nil {
				fanoutErr = err
				return
			}
		}
	})
	return fanoutErr
}

// handleUserFollowed 回填：被关注者最近 maxSize 条进关注者时间线。
// 被关注者是大 V 也回填 —— 一次有界回填便宜，持续扇出才贵。
func (m *Materializer) handleUserFollowed(ctx context.Context, payload []byte) error {
	var ev domain.UserFollowed
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("decode USER_FOLLOWED: %w", err)
	}

	recent, err := m.postRepo.FindByAuthorLatest(ctx, ev.FolloweeID.String(), m.maxSize)
	if err != nil {
		return err
	}
	if len(recent) == 0 {
		return nil
	}
	entries := make([]repository.PostScore, 0, len(recent))
	for _, p := range recent {
		score, err := scoreOf(p)
		if err != nil {
			return err
		}
		entries = append(entries, repository.PostScore{PostID: p.ID, Score: score})
	}
	if err := m.cache.AddMany(ctx, ev.FollowerID.String(), entries); err != nil {
		return err
	}
	logger.Debug("backfilled timeline",
		zap.String("follower", ev.FollowerID.String()),
		zap.String("followee", ev.FolloweeID.String()),
		zap.Int("posts", len(entries)))
	return nil
}

// handleUserUnfollowed 清除：被取关者近窗口内的帖子全部移出
func (m *Materializer) handleUserUnfollowed(ctx context.Context, payload []byte) error {
	var ev domain.UserUnfollowed
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("decode USER_UNFOLLOWED: %w", err)
	}

	recent, err := m.postRepo.FindByAuthorLatest(ctx, ev.FolloweeID.String(), m.maxSize)
	if err != nil {
		return err
	}
	if len(recent) == 0 {
		return nil
	}
	postIDs := make([]string, len(recent))
	for i, p := range recent {
		postIDs[i] = p.ID
	}
	if err := m.cache.RemoveMany(ctx, ev.FollowerID.String(), postIDs); err != nil {
		return err
	}
	logger.Debug("purged timeline",
		zap.String("follower", ev.FollowerID.String()),
		zap.String("followee", ev.FolloweeID.String()),
		zap.Int("posts", len(postIDs)))
	return nil
}

func scoreOf(p model.Post) (int64, error) {
	u, err := uuid.Parse(p.ID)
	if err != nil {
		return 0, err
	}
	return id.ExtractTimestamp(u), nil
}
