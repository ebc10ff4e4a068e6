package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/microfeed/internal/model"
	"github.com/d60-Lab/microfeed/internal/sharding"
)

// FollowedUser 关注列表行：对端用户加关注时间（游标键）
type FollowedUser struct {
	UserID        string
	UserCreatedAt time.Time
	FollowedAt    time.Time
}

type FollowRepository interface {
	SaveTx(tx *gorm.DB, follow *model.Follow) error
	RemoveTx(tx *gorm.DB, followerID, followeeID string) error
	Exists(ctx context.Context, followerID, followeeID string) (bool, error)
	// FindFollowing / FindFollowers 按 follows.created_at DESC，
	// cursor 为上一页末行 FollowedAt 的 RFC3339 串
	FindFollowing(ctx context.Context, userID, cursor string, limit int) ([]FollowedUser, error)
	FindFollowers(ctx context.Context, userID, cursor string, limit int) ([]FollowedUser, error)
	FindAllFollowerIDs(ctx context.Context, userID string) ([]string, error)
	CountFollowers(ctx context.Context, userID string) (int64, error)
	// FindFollowedCelebrities 该用户关注的、粉丝数严格超过阈值的用户
	FindFollowedCelebrities(ctx context.Context, userID string, threshold int) ([]string, error)
	Count(ctx context.Context) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type followRepository struct {
	router *sharding.Router
}

func NewFollowRepository(router *sharding.Router) FollowRepository {
	return &followRepository{router: router}
}

func (r *followRepository) SaveTx(tx *gorm.DB, follow *model.Follow) error {
	// 幂等：重复关注不报错
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(follow).Error
}

func (r *followRepository) RemoveTx(tx *gorm.DB, followerID, followeeID string) error {
	return tx.Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&model.Follow{}).Error
}

func (r *followRepository) Exists(ctx context.Context, followerID, followeeID string) (bool, error) {
	var cnt int64
	err := r.router.FromContext(ctx).WithContext(ctx).
		Model(&model.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&cnt).Error
	return cnt > 0, err
}

func (r *followRepository) FindFollowing(ctx context.Context, userID, cursor string, limit int) ([]FollowedUser, error) {
	q := r.router.FromContext(ctx).WithContext(ctx).
		Table("follows f").
		Select("u.id AS user_id, u.created_at AS user_created_at, f.created_at AS followed_at").
		Joins("JOIN users u ON f.followee_id = u.id").
		Where("f.follower_id = ?", userID)
	return r.pageByFollowedAt(q, cursor, limit)
}

func (r *followRepository) FindFollowers(ctx context.Context, userID, cursor string, limit int) ([]FollowedUser, error) {
	q := r.router.FromContext(ctx).WithContext(ctx).
		Table("follows f").
		Select("u.id AS user_id, u.created_at AS user_created_at, f.created_at AS followed_at").
		Joins("JOIN users u ON f.follower_id = u.id").
		Where("f.followee_id = ?", userID)
	return r.pageByFollowedAt(q, cursor, limit)
}

func (r *followRepository) pageByFollowedAt(q *gorm.DB, cursor string, limit int) ([]FollowedUser, error) {
	if cursor != "" {
		t, err := time.Parse(time.RFC3339Nano, cursor)
		if err == nil {
			q = q.Where("f.created_at < ?", t)
		}
		// 解析不了的游标按首页处理
	}
	var rows []FollowedUser
	err := q.Order("f.created_at DESC").Limit(limit).Scan(&rows).Error
	return rows, err
}

func (r *followRepository) FindAllFollowerIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.router.FromContext(ctx).WithContext(ctx).
		Model(&model.Follow{}).
		Where("followee_id = ?", userID).
		Pluck("follower_id", &ids).Error
	return ids, err
}

func (r *followRepository) CountFollowers(ctx context.Context, userID string) (int64, error) {
	var cnt int64
	err := r.router.FromContext(ctx).WithContext(ctx).
		Model(&model.Follow{}).
		Where("followee_id = ?", userID).
		Count(&cnt).Error
	return cnt, err
}

func (r *followRepository) FindFollowedCelebrities(ctx context.Context, userID string, threshold int) ([]string, error) {
	var ids []string
	err := r.router.FromContext(ctx).WithContext(ctx).Raw(`
		SELECT f.followee_id
		FROM follows f
		WHERE f.follower_id = ?
		  AND (SELECT COUNT(*) FROM follows f2 WHERE f2.followee_id = f.followee_id) > ?
	`, userID, threshold).Scan(&ids).Error
	return ids, err
}

func (r *followRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.router.Each(func(db *gorm.DB) error {
		var cnt int64
		if err := db.WithContext(ctx).Model(&model.Follow{}).Count(&cnt).Error; err != nil {
			return err
		}
		total += cnt
		return nil
	})
	return total, err
}

func (r *followRepository) DeleteAll(ctx context.Context) (int64, error) {
	var total int64
	err := r.router.Each(func(db *gorm.DB) error {
		res := db.WithContext(ctx).Where("1 = 1").Delete(&model.Follow{})
		total += res.RowsAffected
		return res.Error
	})
	return total, err
}
