package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T, maxSize int) TimelineCache {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewTimelineCache(rdb, maxSize)
}

func TestAddAndRange(t *testing.T) {
	cache := setupCache(t, 800)
	ctx := context.Background()

	require.NoError(t, cache.Add(ctx, "reader", "p1", 100))
	require.NoError(t, cache.Add(ctx, "reader", "p2", 200))
	require.NoError(t, cache.Add(ctx, "reader", "p3", 300))

	ids, err := cache.Range(ctx, "reader", nil, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"p3", "p2", "p1"}, ids)

	// 上界不含：maxScore=300 只给更旧的
	max := int64(300)
	ids, err = cache.Range(ctx, "reader", &max, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"p2", "p1"}, ids)

	ids, err = cache.Range(ctx, "reader", nil, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"p3", "p2"}, ids)
}

func TestAddIsIdempotent(t *testing.T) {
	cache := setupCache(t, 800)
	ctx := context.Background()

	require.NoError(t, cache.Add(ctx, "reader", "p1", 100))
	require.NoError(t, cache.Add(ctx, "reader", "p1", 100))

	n, err := cache.Size(ctx, "reader")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestAutoTrimKeepsNewest(t *testing.T) {
	cache := setupCache(t, 5)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, cache.Add(ctx, "reader", fmt.Sprintf("p%d", i), int64(i)))
	}

	n, err := cache.Size(ctx, "reader")
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	ids, err := cache.Range(ctx, "reader", nil, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"p9", "p8", "p7", "p6", "p5"}, ids)
}

func TestAddManyTrims(t *testing.T) {
	cache := setupCache(t, 3)
	ctx := context.Background()

	entries := make([]PostScore, 6)
	for i := range entries {
		entries[i] = PostScore{PostID: fmt.Sprintf("p%d", i), Score: int64(i)}
	}
	require.NoError(t, cache.AddMany(ctx, "reader", entries))
	require.NoError(t, cache.AddMany(ctx, "reader", nil))

	ids, err := cache.Range(ctx, "reader", nil, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"p5", "p4", "p3"}, ids)
}

func TestRemove(t *testing.T) {
	cache := setupCache(t, 800)
	ctx := context.Background()

	require.NoError(t, cache.AddMany(ctx, "reader", []PostScore{
		{PostID: "p1", Score: 1}, {PostID: "p2", Score: 2}, {PostID: "p3", Score: 3},
	}))
	require.NoError(t, cache.Remove(ctx, "reader", "p2"))
	require.NoError(t, cache.RemoveMany(ctx, "reader", []string{"p3", "absent"}))
	require.NoError(t, cache.RemoveMany(ctx, "reader", nil))

	ids, err := cache.Range(ctx, "reader", nil, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, ids)
}

func TestFlushAll(t *testing.T) {
	cache := setupCache(t, 800)
	ctx := context.Background()

	require.NoError(t, cache.Add(ctx, "r1", "p1", 1))
	require.NoError(t, cache.Add(ctx, "r2", "p2", 2))

	n, err := cache.FlushAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	size, err := cache.Size(ctx, "r1")
	require.NoError(t, err)
	assert.Zero(t, size)
}
