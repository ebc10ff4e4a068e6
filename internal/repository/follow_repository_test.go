package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/microfeed/internal/model"
)

func seedUser(t *testing.T, repo UserRepository, id string) {
	t.Helper()
	require.NoError(t, repo.UpsertIfAbsent(context.Background(), id))
}

func TestFollowSaveIsIdempotent(t *testing.T) {
	db, router := setupDB(t)
	repo := NewFollowRepository(router)
	ctx := context.Background()

	f := &model.Follow{FollowerID: "u1", FolloweeID: "u2", CreatedAt: time.Now()}
	require.NoError(t, repo.SaveTx(db, f))
	require.NoError(t, repo.SaveTx(db, &model.Follow{FollowerID: "u1", FolloweeID: "u2", CreatedAt: time.Now()}))

	cnt, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cnt)

	exists, err := repo.Exists(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists(ctx, "u2", "u1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFollowRemove(t *testing.T) {
	db, router := setupDB(t)
	repo := NewFollowRepository(router)
	ctx := context.Background()

	require.NoError(t, repo.SaveTx(db, &model.Follow{FollowerID: "u1", FolloweeID: "u2", CreatedAt: time.Now()}))
	require.NoError(t, repo.RemoveTx(db, "u1", "u2"))

	exists, err := repo.Exists(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.False(t, exists)

	// 删不存在的关系不报错
	require.NoError(t, repo.RemoveTx(db, "u1", "u2"))
}

func TestFollowerQueries(t *testing.T) {
	db, router := setupDB(t)
	repo := NewFollowRepository(router)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		follower := fmt.Sprintf("f%d", i)
		require.NoError(t, repo.SaveTx(db, &model.Follow{FollowerID: follower, FolloweeID: "star", CreatedAt: time.Now()}))
	}

	ids, err := repo.FindAllFollowerIDs(ctx, "star")
	require.NoError(t, err)
	assert.Len(t, ids, 5)

	cnt, err := repo.CountFollowers(ctx, "star")
	require.NoError(t, err)
	assert.Equal(t, int64(5), cnt)

	cnt, err = repo.CountFollowers(ctx, "f0")
	require.NoError(t, err)
	assert.Zero(t, cnt)
}

func TestFindFollowedCelebrities(t *testing.T) {
	db, router := setupDB(t)
	repo := NewFollowRepository(router)
	ctx := context.Background()

	// reader 关注 star（4 粉）和 niche（1 粉）
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.SaveTx(db, &model.Follow{FollowerID: fmt.Sprintf("f%d", i), FolloweeID: "star", CreatedAt: time.Now()}))
	}
	require.NoError(t, repo.SaveTx(db, &model.Follow{FollowerID: "reader", FolloweeID: "star", CreatedAt: time.Now()}))
	require.NoError(t, repo.SaveTx(db, &model.Follow{FollowerID: "reader", FolloweeID: "niche", CreatedAt: time.Now()}))

	celebs, err := repo.FindFollowedCelebrities(ctx, "reader", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"star"}, celebs)

	// 阈值是严格大于
	celebs, err = repo.FindFollowedCelebrities(ctx, "reader", 4)
	require.NoError(t, err)
	assert.Empty(t, celebs)
}

func TestFindFollowingPagination(t *testing.T) {
	db, router := setupDB(t)
	repo := NewFollowRepository(router)
	userRepo := NewUserRepository(router)
	ctx := context.Background()

	seedUser(t, userRepo, "reader")
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("u%d", i)
		seedUser(t, userRepo, id)
		require.NoError(t, repo.SaveTx(db, &model.Follow{
			FollowerID: "reader",
			FolloweeID: id,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	// 首页：最近关注的在前
	rows, err := repo.FindFollowing(ctx, "reader", "", 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "u4", rows[0].UserID)
	assert.Equal(t, "u2", rows[2].UserID)

	// 次页：游标是上一页末行的关注时间
	cursor := rows[2].FollowedAt.UTC().Format(time.RFC3339Nano)
	rows, err = repo.FindFollowing(ctx, "reader", cursor, 3)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "u1", rows[0].UserID)
	assert.Equal(t, "u0", rows[1].UserID)

	// 坏游标按首页
	rows, err = repo.FindFollowing(ctx, "reader", "garbage", 10)
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}

func TestFindFollowers(t *testing.T) {
	db, router := setupDB(t)
	repo := NewFollowRepository(router)
	userRepo := NewUserRepository(router)
	ctx := context.Background()

	seedUser(t, userRepo, "star")
	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("fan%d", i)
		seedUser(t, userRepo, id)
		require.NoError(t, repo.SaveTx(db, &model.Follow{FollowerID: id, FolloweeID: "star", CreatedAt: time.Now().Add(time.Duration(i) * time.Second)}))
	}

	rows, err := repo.FindFollowers(ctx, "star", "", 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "fan2", rows[0].UserID)
}
