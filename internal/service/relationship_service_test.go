package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/microfeed/internal/domain"
)

func TestFollowLifecycle(t *testing.T) {
	s, producer := setupStack(t, 10000, 800)
	ctx := context.Background()
	alice := s.newUser(t)
	bob := s.newUser(t)

	require.NoError(t, s.relSvc.Follow(ctx, alice, bob))

	exists, err := s.followRepo.Exists(ctx, alice.String(), bob.String())
	require.NoError(t, err)
	assert.True(t, exists)

	// 重复关注拒绝
	assert.ErrorIs(t, s.relSvc.Follow(ctx, alice, bob), domain.ErrAlreadyFollowing)

	require.NoError(t, s.relSvc.Unfollow(ctx, alice, bob))
	assert.ErrorIs(t, s.relSvc.Unfollow(ctx, alice, bob), domain.ErrNotFollowing)

	s.drive(t)
	msgs := producer.sent()
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.EventUserFollowed, msgs[0].Headers["eventType"])
	assert.Equal(t, domain.EventUserUnfollowed, msgs[1].Headers["eventType"])
	// 关注事件按关注方分区
	assert.Equal(t, alice.String(), msgs[0].Key)
	assert.Equal(t, alice.String(), msgs[1].Key)
}

func TestSelfFollowRejected(t *testing.T) {
	s, _ := setupStack(t, 10000, 800)
	alice := s.newUser(t)
	assert.ErrorIs(t, s.relSvc.Follow(context.Background(), alice, alice), domain.ErrSelfFollow)
}

func TestFollowUpsertsPlaceholderUser(t *testing.T) {
	s, _ := setupStack(t, 10000, 800)
	ctx := context.Background()
	alice := s.newUser(t)
	// ghost 从未发过帖也没登录过
	ghost := domain.UserID{Value: s.idGen.Generate()}

	require.NoError(t, s.relSvc.Follow(ctx, alice, ghost))

	exists, err := s.userRepo.Exists(ctx, ghost.String())
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGetFollowingAndFollowers(t *testing.T) {
	s, _ := setupStack(t, 10000, 800)
	ctx := context.Background()
	alice := s.newUser(t)
	bob := s.newUser(t)
	carol := s.newUser(t)

	require.NoError(t, s.relSvc.Follow(ctx, alice, bob))
	require.NoError(t, s.relSvc.Follow(ctx, alice, carol))
	require.NoError(t, s.relSvc.Follow(ctx, bob, carol))

	rows, _, hasMore, err := s.relSvc.GetFollowing(ctx, alice, "", 10)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.False(t, hasMore)

	rows, _, _, err = s.relSvc.GetFollowers(ctx, carol, "", 10)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	// limit+1 探测 hasMore，游标翻下一页
	rows, cursor, hasMore, err := s.relSvc.GetFollowing(ctx, alice, "", 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, hasMore)
	require.NotEmpty(t, cursor)

	rows, _, hasMore, err = s.relSvc.GetFollowing(ctx, alice, cursor, 1)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
