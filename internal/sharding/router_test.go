package sharding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/d60-Lab/microfeed/internal/reqctx"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	return db
}

func TestSingleShardIsIdentity(t *testing.T) {
	db := openDB(t)
	r := NewRouter([]*gorm.DB{db})

	assert.Equal(t, 0, r.ShardFor("anything"))
	assert.Same(t, db, r.DB("anything"))
	assert.Equal(t, 1, r.ShardCount())
}

func TestShardForIsStable(t *testing.T) {
	r := NewRouter([]*gorm.DB{openDB(t), openDB(t), openDB(t)})

	first := r.ShardFor("550e8400-e29b-41d4-a716-446655440000")
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, r.ShardFor("550e8400-e29b-41d4-a716-446655440000"))
	}
	assert.GreaterOrEqual(t, first, 0)
	assert.Less(t, first, 3)
}

func TestFromContext(t *testing.T) {
	dbs := []*gorm.DB{openDB(t), openDB(t)}
	r := NewRouter(dbs)

	// 无上下文走 0 号库
	assert.Same(t, dbs[0], r.FromContext(context.Background()))

	ctx := reqctx.With(context.Background(), reqctx.RequestContext{Shard: 1})
	assert.Same(t, dbs[1], r.FromContext(ctx))

	// 越界分片号兜底到 0
	ctx = reqctx.With(context.Background(), reqctx.RequestContext{Shard: 9})
	assert.Same(t, dbs[0], r.FromContext(ctx))
}

func TestEachVisitsAllShards(t *testing.T) {
	r := NewRouter([]*gorm.DB{openDB(t), openDB(t), openDB(t)})
	n := 0
	require.NoError(t, r.Each(func(db *gorm.DB) error { n++; return nil }))
	assert.Equal(t, 3, n)
}
