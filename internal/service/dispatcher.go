package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/microfeed/internal/model"
	"github.com/d60-Lab/microfeed/internal/mq"
	"github.com/d60-Lab/microfeed/internal/repository"
	"github.com/d60-Lab/microfeed/internal/sharding"
	"github.com/d60-Lab/microfeed/pkg/logger"
	"github.com/d60-Lab/microfeed/pkg/metrics"
)

const dispatchTimeout = 30 * time.Second

// Dispatcher 外发盒轮询器：认领 → 发布 → 标记，全程一个事务。
// 发布后崩溃导致的重投由消费端幂等吸收。
type Dispatcher struct {
	router       *sharding.Router
	outboxRepo   repository.OutboxRepository
	producer     mq.Producer
	topic        string
	batchSize    int
	pollInterval time.Duration
	retention    time.Duration
	metrics      *metrics.Registry
}

func NewDispatcher(
	router *sharding.Router,
	outboxRepo repository.OutboxRepository,
	producer mq.Producer,
	topic string,
	batchSize int,
	pollInterval time.Duration,
	retention time.Duration,
	reg *metrics.Registry,
) *Dispatcher {
	if batchSize <= 0 {
		batchSize = 100
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &Dispatcher{
		router:       router,
		outboxRepo:   outboxRepo,
		producer:     producer,
		topic:        topic,
		batchSize:    batchSize,
		pollInterval: pollInterval,
		retention:    retention,
		metrics:      reg,
	}
}

// Start 启动轮询与每小时的压缩任务；返回停止函数
func (d *Dispatcher) Start() func(context.Context) error {
	stop := make(chan struct{})
	go d.pollLoop(stop)
	go d.compactLoop(stop)
	return func(ctx context.Context) error {
		close(stop)
		return nil
	}
}

func (d *Dispatcher) pollLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
			if err := d.ProcessOnce(ctx); err != nil {
				logger.Error("outbox dispatch tick", zap.Error(err))
			}
			cancel()
		}
	}
}

func (d *Dispatcher) compactLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
			if err := d.CompactOnce(ctx); err != nil {
				logger.Error("outbox compaction", zap.Error(err))
			}
			cancel()
		}
	}
}

// ProcessOnce 跑一轮：每个分片各自认领一批并发布
func (d *Dispatcher) ProcessOnce(ctx context.Context) error {
	return d.router.Each(func(db *gorm.DB) error {
		return d.drainShard(ctx, db)
	})
}

func (d *Dispatcher) drainShard(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batch, err := d.outboxRepo.ClaimBatch(tx, d.batchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		ids := make([]string, 0, len(batch))
		for _, rec := range batch {
			if err := d.publish(ctx, rec); err != nil {
				// 发布失败整事务回滚，下个 tick 重新认领
				return err
			}
			ids = append(ids, rec.ID)
		}
		if err := d.outboxRepo.MarkProcessed(tx, ids); err != nil {
			return err
		}

		d.metrics.AddOutboxPublished(len(batch))
		logger.Info("published outbox batch", zap.Int("count", len(batch)))
		return nil
	})
}

func (d *Dispatcher) publish(ctx context.Context, rec model.Outbox) error {
	msg := mq.Message{
		Key:   rec.AggregateID,
		Value: []byte(rec.Payload),
		Headers: map[string]string{
			"eventType": rec.EventType,
			"eventId":   rec.ID,
		},
	}
	if rec.RequestID != "" {
		msg.Headers["requestId"] = rec.RequestID
	}
	return d.producer.Send(ctx, d.topic, msg)
}

// CompactOnce 清掉处理完成超过保留窗口的记录
func (d *Dispatcher) CompactOnce(ctx context.Context) error {
	n, err := d.outboxRepo.CompactProcessedOlderThan(ctx, time.Now().Add(-d.retention))
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Info("compacted outbox", zap.Int64("rows", n))
	}
	return nil
}
