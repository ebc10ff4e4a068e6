package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/microfeed/internal/domain"
	"github.com/d60-Lab/microfeed/internal/mq"
)

func TestDispatcherPublishesWithHeadersAndMarks(t *testing.T) {
	s, producer := setupStack(t, 10000, 800)
	ctx := context.Background()
	alice := s.newUser(t)

	rc := requestScoped(ctx, "req-42")
	post, err := s.postSvc.CreatePost(rc, alice, "hello")
	require.NoError(t, err)

	require.NoError(t, s.dispatcher.ProcessOnce(ctx))

	msgs := producer.sent()
	require.Len(t, msgs, 1)
	msg := msgs[0]
	assert.Equal(t, alice.String(), msg.Key)
	assert.Equal(t, domain.EventPostCreated, msg.Headers["eventType"])
	assert.Equal(t, "req-42", msg.Headers["requestId"])
	assert.NotEmpty(t, msg.Headers["eventId"])
	assert.Contains(t, string(msg.Value), post.ID)

	n, err := s.outboxRepo.CountUnprocessed(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// 第二轮没有可认领的
	require.NoError(t, s.dispatcher.ProcessOnce(ctx))
	assert.Len(t, producer.sent(), 1)
}

func TestDispatcherRollsBackOnPublishFailure(t *testing.T) {
	s, producer := setupStack(t, 10000, 800)
	ctx := context.Background()
	alice := s.newUser(t)

	_, err := s.postSvc.CreatePost(ctx, alice, "hello")
	require.NoError(t, err)

	// 发布失败：整批回滚，记录留待下个 tick
	failed := errors.New("broker down")
	producer.deliver = func(context.Context, mq.Record) error { return failed }
	assert.Error(t, s.dispatcher.ProcessOnce(ctx))

	n, err := s.outboxRepo.CountUnprocessed(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// 恢复后重投成功
	producer.deliver = s.materializer.Handle
	require.NoError(t, s.dispatcher.ProcessOnce(ctx))
	n, err = s.outboxRepo.CountUnprocessed(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDispatcherPreservesPerAggregateOrder(t *testing.T) {
	s, producer := setupStack(t, 10000, 800)
	ctx := context.Background()
	alice := s.newUser(t)

	for _, c := range []string{"one", "two", "three"} {
		_, err := s.postSvc.CreatePost(ctx, alice, c)
		require.NoError(t, err)
	}
	require.NoError(t, s.dispatcher.ProcessOnce(ctx))

	msgs := producer.sent()
	require.Len(t, msgs, 3)
	assert.Contains(t, string(msgs[0].Value), "one")
	assert.Contains(t, string(msgs[1].Value), "two")
	assert.Contains(t, string(msgs[2].Value), "three")
}

func TestCompactOnce(t *testing.T) {
	s, _ := setupStack(t, 10000, 800)
	ctx := context.Background()
	alice := s.newUser(t)

	_, err := s.postSvc.CreatePost(ctx, alice, "old")
	require.NoError(t, err)
	require.NoError(t, s.dispatcher.ProcessOnce(ctx))

	// 保留窗口 1ns（传 0 会退回默认 24h）：处理完立刻可压缩
	d := NewDispatcher(s.router, s.outboxRepo, nil, "t", 100, time.Second, time.Nanosecond, s.reg)
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, d.CompactOnce(ctx))

	var cnt int64
	require.NoError(t, s.db.Table("outbox").Count(&cnt).Error)
	assert.Zero(t, cnt)
}

func TestDispatcherStartStop(t *testing.T) {
	s, producer := setupStack(t, 10000, 800)
	ctx := context.Background()
	alice := s.newUser(t)
	_, err := s.postSvc.CreatePost(ctx, alice, "ticked")
	require.NoError(t, err)

	d := NewDispatcher(s.router, s.outboxRepo, producer, "t", 100, 10*time.Millisecond, time.Hour, s.reg)
	stop := d.Start()
	defer func() { _ = stop(context.Background()) }()

	require.Eventually(t, func() bool {
		n, err := s.outboxRepo.CountUnprocessed(ctx)
		return err == nil && n == 0
	}, 5*time.Second, 20*time.Millisecond)
}
