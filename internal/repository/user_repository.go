package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/microfeed/internal/model"
	"github.com/d60-Lab/microfeed/internal/sharding"
)

type UserRepository interface {
	// UpsertIfAbsent 主键冲突时不做任何事
	UpsertIfAbsent(ctx context.Context, userID string) error
	UpsertIfAbsentTx(tx *gorm.DB, userID string) error
	Exists(ctx context.Context, userID string) (bool, error)
	Count(ctx context.Context) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type userRepository struct {
	router *sharding.Router
}

func NewUserRepository(router *sharding.Router) UserRepository {
	return &userRepository{router: router}
}

func (r *userRepository) UpsertIfAbsent(ctx context.Context, userID string) error {
	return r.UpsertIfAbsentTx(r.router.FromContext(ctx).WithContext(ctx), userID)
}

func (r *userRepository) UpsertIfAbsentTx(tx *gorm.DB, userID string) error {
	u := &model.User{ID: userID, CreatedAt: time.Now()}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(u).Error
}

func (r *userRepository) Exists(ctx context.Context, userID string) (bool, error) {
	var cnt int64
	err := r.router.FromContext(ctx).WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Count(&cnt).Error
	return cnt > 0, err
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.router.Each(func(db *gorm.DB) error {
		var cnt int64
		if err := db.WithContext(ctx).Model(&model.User{}).Count(&cnt).Error; err != nil {
			return err
		}
		total += cnt
		return nil
	})
	return total, err
}

func (r *userRepository) DeleteAll(ctx context.Context) (int64, error) {
	var total int64
	err := r.router.Each(func(db *gorm.DB) error {
		res := db.WithContext(ctx).Where("1 = 1").Delete(&model.User{})
		total += res.RowsAffected
		return res.Error
	})
	return total, err
}
