package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/microfeed/internal/domain"
	"github.com/d60-Lab/microfeed/internal/id"
	"github.com/d60-Lab/microfeed/internal/model"
	"github.com/d60-Lab/microfeed/internal/repository"
	"github.com/d60-Lab/microfeed/internal/reqctx"
	"github.com/d60-Lab/microfeed/internal/sharding"
	"github.com/d60-Lab/microfeed/pkg/logger"
	"github.com/d60-Lab/microfeed/pkg/metrics"
)

// RelationshipService 关系链：关注、取关、两侧列表
type RelationshipService struct {
	router     *sharding.Router
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
	outboxRepo repository.OutboxRepository
	idGen      *id.Generator
	metrics    *metrics.Registry
}

func NewRelationshipService(
	router *sharding.Router,
	followRepo repository.FollowRepository,
	userRepo repository.UserRepository,
	outboxRepo repository.OutboxRepository,
	idGen *id.Generator,
	reg *metrics.Registry,
) *RelationshipService {
	return &RelationshipService{
		router:     router,
		followRepo: followRepo,
		userRepo:   userRepo,
		outboxRepo: outboxRepo,
		idGen:      idGen,
		metrics:    reg,
	}
}

// Follow 建立关注；关系行与 USER_FOLLOWED 事件同事务。
// 被关注方可能还没有任何记录，先补占位用户行。
func (s *RelationshipService) Follow(ctx context.Context, follower, followee domain.UserID) error {
	if follower == followee {
		return domain.ErrSelfFollow
	}
	exists, err := s.followRepo.Exists(ctx, follower.String(), followee.String())
	if err != nil {
		return err
	}
	if exists {
		return domain.ErrAlreadyFollowing
	}

	follow := &model.Follow{
		FollowerID: follower.String(),
		FolloweeID: followee.String(),
		CreatedAt:  time.Now(),
	}
	event := domain.NewUserFollowed(s.idGen.Generate(), follower, followee)

	err = s.router.FromContext(ctx).WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.UpsertIfAbsentTx(tx, followee.String()); err != nil {
			return err
		}
		if err := s.followRepo.SaveTx(tx, follow); err != nil {
			return err
		}
		return s.outboxRepo.AppendTx(tx, event, reqctx.RequestID(ctx))
	})
	if err != nil {
		return err
	}

	s.metrics.IncFollows()
	logger.Info("follow completed",
		zap.String("follower", follower.String()),
		zap.String("followee", followee.String()))
	return nil
}

// Unfollow 解除关注；删除与 USER_UNFOLLOWED 事件同事务
func (s *RelationshipService) Unfollow(ctx context.Context, follower, followee domain.UserID) error {
	exists, err := s.followRepo.Exists(ctx, follower.String(), followee.String())
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFollowing
	}

	event := domain.NewUserUnfollowed(s.idGen.Generate(), follower, followee)
	err = s.router.FromContext(ctx).WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.followRepo.RemoveTx(tx, follower.String(), followee.String()); err != nil {
			return err
		}
		return s.outboxRepo.AppendTx(tx, event, reqctx.RequestID(ctx))
	})
	if err != nil {
		return err
	}

	s.metrics.IncUnfollows()
	logger.Info("unfollow completed",
		zap.String("follower", follower.String()),
		zap.String("followee", followee.String()))
	return nil
}

// GetFollowing 关注列表，游标为上一页末行的关注时间
func (s *RelationshipService) GetFollowing(ctx context.Context, userID domain.UserID, cursor string, limit int) ([]repository.FollowedUser, string, bool, error) {
	rows, err := s.followRepo.FindFollowing(ctx, userID.String(), cursor, limit+1)
	return pageFollows(rows, limit, err)
}

// GetFollowers 粉丝列表
func (s *RelationshipService) GetFollowers(ctx context.Context, userID domain.UserID, cursor string, limit int) ([]repository.FollowedUser, string, bool, error) {
	rows, err := s.followRepo.FindFollowers(ctx, userID.String(), cursor, limit+1)
	return pageFollows(rows, limit, err)
}

func pageFollows(rows []repository.FollowedUser, limit int, err error) ([]repository.FollowedUser, string, bool, error) {
	if err != nil {
		return nil, "", false, err
	}
	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	nextCursor := ""
	if hasMore {
		nextCursor = rows[len(rows)-1].FollowedAt.UTC().Format(time.RFC3339Nano)
	}
	return rows, nextCursor, hasMore, nil
}
