package service

import (
	"context"
	"time"
	"unicode/utf8"

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

// PostService 发帖与作者页
type PostService struct {
	router     *sharding.Router
	postRepo   repository.PostRepository
	outboxRepo repository.OutboxRepository
	idGen      *id.Generator
	metrics    *metrics.Registry
}

func NewPostService(
	router *sharding.Router,
	postRepo repository.PostRepository,
	outboxRepo repository.OutboxRepository,
	idGen *id.Generator,
	reg *metrics.Registry,
) *PostService {
	return &PostService{router: router, postRepo: postRepo, outboxRepo: outboxRepo, idGen: idGen, metrics: reg}
}

// CreatePost 校验正文，帖子与 POST_CREATED 事件在同一事务内落库
func (s *PostService) CreatePost(ctx context.Context, author domain.UserID, content string) (*model.Post, error) {
	trimmed, err := domain.ValidateContent(content)
	if err != nil {
		logger.Warn("post validation failed", zap.String("user", author.String()), zap.Error(err))
		return nil, err
	}

	postID := s.idGen.Generate()
	post := &model.Post{
		ID:        postID.String(),
		UserID:    author.String(),
		Content:   trimmed,
		CreatedAt: time.Now(),
	}
	event := domain.NewPostCreated(s.idGen.Generate(), postID, author, trimmed)

	err = s.router.FromContext(ctx).WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return err
		}
		return s.outboxRepo.AppendTx(tx, event, reqctx.RequestID(ctx))
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncPostsCreated()
	logger.Info("post created",
		zap.String("postId", post.ID),
		zap.String("userId", author.String()),
		zap.Int("chars", utf8.RuneCountInString(trimmed)))
	return post, nil
}

// GetUserPosts 作者历史翻页，游标为帖子 id
func (s *PostService) GetUserPosts(ctx context.Context, author domain.UserID, cursor string, limit int) ([]model.Post, string, bool, error) {
	cursorID := decodeIDCursor(cursor)
	posts, err := s.postRepo.FindByAuthor(ctx, author.String(), cursorID, limit+1)
	if err != nil {
		return nil, "", false, err
	}
	hasMore := len(posts) > limit
	if hasMore {
		posts = posts[:limit]
	}
	nextCursor := ""
	if hasMore {
		nextCursor = encodeIDCursor(posts[len(posts)-1].ID)
	}
	return posts, nextCursor, hasMore, nil
}
