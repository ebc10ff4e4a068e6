package repository

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const timelineKeyPrefix = "timeline:"

// PostScore 时间线成员：帖子 id 加它内嵌的毫秒时间戳
type PostScore struct {
	PostID string
	Score  int64
}

// TimelineCache 每个读者一个 ZSET，score 即帖子时间戳。
// 写入自动按 maxSize 截断，淘汰最低分成员。
type TimelineCache interface {
	Add(ctx context.Context, reader, postID string, score int64) error
	AddMany(ctx context.Context, reader string, entries []PostScore) error
	Remove(ctx context.Context, reader, postID string) error
	RemoveMany(ctx context.Context, reader string, postIDs []string) error
	// Range 按 score DESC 取 id；maxScoreExclusive 非 nil 时只取 score < maxScore
	Range(ctx context.Context, reader string, maxScoreExclusive *int64, limit int) ([]string, error)
	Trim(ctx context.Context, reader string, maxSize int) error
	Size(ctx context.Context, reader string) (int64, error)
	FlushAll(ctx context.Context) (int64, error)
}

type timelineCache struct {
	rdb     *redis.Client
	maxSize int
}

func NewTimelineCache(rdb *redis.Client, maxSize int) TimelineCache {
	return &timelineCache{rdb: rdb, maxSize: maxSize}
}

func timelineKey(reader string) string { return timelineKeyPrefix + reader }

func (c *timelineCache) Add(ctx context.Context, reader, postID string, score int64) error {
	key := timelineKey(reader)
	pipe := c.rdb.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(score), Member: postID})
	pipe.ZRemRangeByRank(ctx, key, 0, int64(-c.maxSize-1))
	_, err := pipe.Exec(ctx)
	return err
}

func (c *timelineCache) AddMany(ctx context.Context, reader string, entries []PostScore) error {
	if len(entries) == 0 {
		return nil
	}
	members := make([]redis.Z, len(entries))
	for i, e := range entries {
		members[i] = redis.Z{Score: float64(e.Score), Member: e.PostID}
	}
	key := timelineKey(reader)
	pipe := c.rdb.Pipeline()
	pipe.ZAdd(ctx, key, members...)
	pipe.ZRemRangeByRank(ctx, key, 0, int64(-c.maxSize-1))
	_, err := pipe.Exec(ctx)
	return err
}

func (c *timelineCache) Remove(ctx context.Context, reader, postID string) error {
	return c.rdb.ZRem(ctx, timelineKey(reader), postID).Err()
}

func (c *timelineCache) RemoveMany(ctx context.Context, reader string, postIDs []string) error {
	if len(postIDs) == 0 {
		return nil
	}
	members := make([]interface{}, len(postIDs))
	for i, id := range postIDs {
		members[i] = id
	}
	return c.rdb.ZRem(ctx, timelineKey(reader), members...).Err()
}

func (c *timelineCache) Range(ctx context.Context, reader string, maxScoreExclusive *int64, limit int) ([]string, error) {
	key := timelineKey(reader)
	if maxScoreExclusive == nil {
		return c.rdb.ZRevRange(ctx, key, 0, int64(limit-1)).Result()
	}
	// score 是整数毫秒，max-1 即严格小于
	return c.rdb.ZRevRangeByScore(ctx, key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(*maxScoreExclusive-1, 10),
		Count: int64(limit),
	}).Result()
}

func (c *timelineCache) Trim(ctx context.Context, reader string, maxSize int) error {
	return c.rdb.ZRemRangeByRank(ctx, timelineKey(reader), 0, int64(-maxSize-1)).Err()
}

func (c *timelineCache) Size(ctx context.Context, reader string) (int64, error) {
	return c.rdb.ZCard(ctx, timelineKey(reader)).Result()
}

func (c *timelineCache) FlushAll(ctx context.Context) (int64, error) {
	var deleted int64
	iter := c.rdb.Scan(ctx, 0, timelineKeyPrefix+"*", 500).Iterator()
	keys := make([]string, 0, 512)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == 500 {
			n, err := c.rdb.Del(ctx, keys...).Result()
			deleted += n
			if err != nil {
				return deleted, err
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}
	if len(keys) > 0 {
		n, err := c.rdb.Del(ctx, keys...).Result()
		deleted += n
		if err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}
