package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/d60-Lab/microfeed/internal/model"
	"github.com/d60-Lab/microfeed/internal/sharding"
)

type PostRepository interface {
	Save(ctx context.Context, post *model.Post) error
	FindByID(ctx context.Context, id string) (*model.Post, error)
	// FindByAuthor 作者页翻页：cursorID 非空时只取 id < cursorID，id DESC
	FindByAuthor(ctx context.Context, author, cursorID string, limit int) ([]model.Post, error)
	FindByAuthorLatest(ctx context.Context, author string, limit int) ([]model.Post, error)
	// FindByIDs 不保证返回顺序
	FindByIDs(ctx context.Context, ids []string) ([]model.Post, error)
	Count(ctx context.Context) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type postRepository struct {
	router *sharding.Router
}

func NewPostRepository(router *sharding.Router) PostRepository {
	return &postRepository{router: router}
}

func (r *postRepository) Save(ctx context.Context, post *model.Post) error {
	return r.router.FromContext(ctx).WithContext(ctx).Create(post).Error
}

func (r *postRepository) FindByID(ctx context.Context, id string) (*model.Post, error) {
	var p model.Post
	err := r.router.FromContext(ctx).WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postRepository) FindByAuthor(ctx context.Context, author, cursorID string, limit int) ([]model.Post, error) {
	q := r.router.FromContext(ctx).WithContext(ctx).Where("user_id = ?", author)
	if cursorID != "" {
		q = q.Where("id < ?", cursorID)
	}
	var posts []model.Post
	err := q.Order("id DESC").Limit(limit).Find(&posts).Error
	return posts, err
}

func (r *postRepository) FindByAuthorLatest(ctx context.Context, author string, limit int) ([]model.Post, error) {
	return r.FindByAuthor(ctx, author, "", limit)
}

func (r *postRepository) FindByIDs(ctx context.Context, ids []string) ([]model.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var posts []model.Post
	err := r.router.FromContext(ctx).WithContext(ctx).Where("id IN ?", ids).Find(&posts).Error
	return posts, err
}

func (r *postRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.router.Each(func(db *gorm.DB) error {
		var cnt int64
		if err := db.WithContext(ctx).Model(&model.Post{}).Count(&cnt).Error; err != nil {
			return err
		}
		total += cnt
		return nil
	})
	return total, err
}

func (r *postRepository) DeleteAll(ctx context.Context) (int64, error) {
	var total int64
	err := r.router.Each(func(db *gorm.DB) error {
		res := db.WithContext(ctx).Where("1 = 1").Delete(&model.Post{})
		total += res.RowsAffected
		return res.Error
	})
	return total, err
}
