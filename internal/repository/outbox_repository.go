package repository

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/microfeed/internal/domain"
	"github.com/d60-Lab/microfeed/internal/model"
	"github.com/d60-Lab/microfeed/internal/sharding"
)

type OutboxRepository interface {
	// AppendTx 在调用方事务内追加事件记录
	AppendTx(tx *gorm.DB, event domain.Event, requestID string) error
	// ClaimBatch 按 created_at ASC 认领未处理记录。postgres 上带
	// FOR UPDATE SKIP LOCKED，多个 dispatcher 互不阻塞也不重复。
	ClaimBatch(tx *gorm.DB, limit int) ([]model.Outbox, error)
	MarkProcessed(tx *gorm.DB, ids []string) error
	CompactProcessedOlderThan(ctx context.Context, t time.Time) (int64, error)
	CountUnprocessed(ctx context.Context) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type outboxRepository struct {
	router *sharding.Router
}

func NewOutboxRepository(router *sharding.Router) OutboxRepository {
	return &outboxRepository{router: router}
}

func (r *outboxRepository) AppendTx(tx *gorm.DB, event domain.Event, requestID string) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	rec := &model.Outbox{
		ID:          event.ID().String(),
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		Payload:     string(payload),
		RequestID:   requestID,
		CreatedAt:   time.Now(),
	}
	return tx.Create(rec).Error
}

func (r *outboxRepository) ClaimBatch(tx *gorm.DB, limit int) ([]model.Outbox, error) {
	q := tx.Where("processed_at IS NULL").Order("created_at ASC").Limit(limit)
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}
	var batch []model.Outbox
	err := q.Find(&batch).Error
	return batch, err
}

func (r *outboxRepository) MarkProcessed(tx *gorm.DB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return tx.Model(&model.Outbox{}).
		Where("id IN ?", ids).
		Update("processed_at", time.Now()).Error
}

func (r *outboxRepository) CompactProcessedOlderThan(ctx context.Context, t time.Time) (int64, error) {
	var total int64
	err := r.router.Each(func(db *gorm.DB) error {
		res := db.WithContext(ctx).
			Where("processed_at IS NOT NULL AND processed_at < ?", t).
			Delete(&model.Outbox{})
		total += res.RowsAffected
		return res.Error
	})
	return total, err
}

func (r *outboxRepository) CountUnprocessed(ctx context.Context) (int64, error) {
	var total int64
	err := r.router.Each(func(db *gorm.DB) error {
		var cnt int64
		if err := db.WithContext(ctx).Model(&model.Outbox{}).
			Where("processed_at IS NULL").Count(&cnt).Error; err != nil {
			return err
		}
		total += cnt
		return nil
	})
	return total, err
}

func (r *outboxRepository) DeleteAll(ctx context.Context) (int64, error) {
	var total int64
	err := r.router.Each(func(db *gorm.DB) error {
		res := db.WithContext(ctx).Where("1 = 1").Delete(&model.Outbox{})
		total += res.RowsAffected
		return res.Error
	})
	return total, err
}
