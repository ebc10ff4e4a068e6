package service

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d60-Lab/microfeed/internal/domain"
	"github.com/d60-Lab/microfeed/internal/id"
	"github.com/d60-Lab/microfeed/internal/model"
	"github.com/d60-Lab/microfeed/internal/repository"
	"github.com/d60-Lab/microfeed/pkg/logger"
	"github.com/d60-Lab/microfeed/pkg/metrics"
)

// TimelineService 合并读路径：物化时间线 ∪ 关注的大 V 的按需读
type TimelineService struct {
	cache      repository.TimelineCache
	postRepo   repository.PostRepository
	followRepo repository.FollowRepository
	threshold  int
	metrics    *metrics.Registry
}

func NewTimelineService(
	cache repository.TimelineCache,
	postRepo repository.PostRepository,
	followRepo repository.FollowRepository,
	celebrityThreshold int,
	reg *metrics.Registry,
) *TimelineService {
	return &TimelineService{
		cache:      cache,
		postRepo:   postRepo,
		followRepo: followRepo,
		threshold:  celebrityThreshold,
		metrics:    reg,
	}
}

// GetTimeline 游标是 base64 的帖子 id，解成分值上界（不含）。
// 合并后按 id DESC —— id 即时间序，排序键始终是 id 内嵌的时间戳，
// 不是行里的 created_at。
func (s *TimelineService) GetTimeline(ctx context.Context, reader domain.UserID, cursor string, limit int) ([]model.Post, string, bool, error) {
	defer s.metrics.IncTimelineRequests()

	maxScore := decodeCursorToScore(cursor)

	cachedIDs, err := s.cache.Range(ctx, reader.String(), maxScore, limit+1)
	if err != nil {
		return nil, "", false, err
	}

	cached, err := s.postRepo.FindByIDs(ctx, cachedIDs)
	if err != nil {
		return nil, "", false, err
	}

	celebrity, err := s.fetchCelebrityPosts(ctx, reader, maxScore, limit)
	if err != nil {
		return nil, "", false, err
	}

	merged := mergePosts(cached, celebrity, limit+1)

	hasMore := len(merged) > limit
	if hasMore {
		merged = merged[:limit]
	}
	nextCursor := ""
	if hasMore && len(merged) > 0 {
		nextCursor = encodeIDCursor(merged[len(merged)-1].ID)
	}

	logger.Debug("timeline served",
		zap.String("user", reader.String()),
		zap.Int("cached", len(cached)),
		zap.Int("celebrity", len(celebrity)),
		zap.Bool("hasMore", hasMore))
	return merged, nextCursor, hasMore, nil
}

// fetchCelebrityPosts 逐个大 V 拉游标之前（分值 < maxScore）最近的 limit+1 条，
// 多取的一条让只有大 V 帖子的页也能判断 hasMore。读者关注的大 V 数量
// 预期是个位数，这里不做 N 路归并的上限控制。
func (s *TimelineService) fetchCelebrityPosts(ctx context.Context, reader domain.UserID, maxScore *int64, limit int) ([]model.Post, error) {
	celebs, err := s.followRepo.FindFollowedCelebrities(ctx, reader.String(), s.threshold)
	if err != nil {
		return nil, err
	}
	// 分值上界换成该毫秒最小的 id：id < bound 即分值 < maxScore
	bound := ""
	if maxScore != nil {
		var u uuid.UUID
		for i := 0; i < 6; i++ {
			u[i] = byte(*maxScore >> (40 - 8*i))
		}
		bound = u.String()
	}
	var out []model.Post
	for _, celeb := range celebs {
		posts, err := s.postRepo.FindByAuthor(ctx, celeb, bound, limit+1)
		if err != nil {
			return nil, err
		}
		for _, p := range posts {
			if maxScore != nil {
				u, err := uuid.Parse(p.ID)
				if err != nil || id.ExtractTimestamp(u) >= *maxScore {
					continue
				}
			}
			out = append(out, p)
		}
	}
	return out, nil
}

// mergePosts 去重后按 id DESC 取前 limit 条。
// 规范形式的 UUID 串比较与字节序一致。
func mergePosts(cached, celebrity []model.Post, limit int) []model.Post {
	seen := make(map[string]struct{}, len(cached)+len(celebrity))
	merged := make([]model.Post, 0, len(cached)+len(celebrity))
	for _, p := range append(append([]model.Post{}, cached...), celebrity...) {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		merged = append(merged, p)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ID > merged[j].ID })
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

func decodeCursorToScore(cursor string) *int64 {
	raw := decodeIDCursor(cursor)
	if raw == "" {
		return nil
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	score := id.ExtractTimestamp(u)
	return &score
}
