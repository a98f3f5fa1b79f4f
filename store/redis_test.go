package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/tuneflow/tuning"
)

func setupRedisStore(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	s := NewRedisStore(client, "test:", nil)
	return mr, s
}

func TestRedisStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) tuning.Store {
		_, s := setupRedisStore(t)
		return s
	})
}

func TestRedisStore_KeyLayout(t *testing.T) {
	mr, s := setupRedisStore(t)
	require.NoError(t, s.CreateParameter(context.Background(), temperature(t)))

	assert.True(t, mr.Exists("test:param:temperature"))
	names, err := mr.List("test:params:order")
	require.NoError(t, err)
	assert.Equal(t, []string{"temperature"}, names)
}

func TestRedisStore_CreateLeavesNothingOnFailure(t *testing.T) {
	mr, s := setupRedisStore(t)
	ctx := context.Background()

	// 顺序键类型错误，RPUSH 失败
	require.NoError(t, mr.Set("test:params:order", "not-a-list"))
	err := s.CreateParameter(ctx, temperature(t))
	require.Error(t, err)
	assert.NotErrorIs(t, err, tuning.ErrAlreadyExists)
	assert.False(t, mr.Exists("test:param:temperature"))

	// 修复后可以重新创建，且出现在列表中
	mr.Del("test:params:order")
	require.NoError(t, s.CreateParameter(ctx, temperature(t)))
	params, err := s.ListParameters(ctx)
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, "temperature", params[0].Name)

	assert.ErrorIs(t, s.CreateParameter(ctx, temperature(t)), tuning.ErrAlreadyExists)
	names, err := mr.List("test:params:order")
	require.NoError(t, err)
	assert.Equal(t, []string{"temperature"}, names, "a duplicate create does not touch the order list")
}

func TestRedisStore_FeedbackTrimmed(t *testing.T) {
	mr, s := setupRedisStore(t)
	ctx := context.Background()
	for i := 0; i < feedbackCap+5; i++ {
		require.NoError(t, s.RecordFeedback(ctx, &tuning.AgentFeedback{ID: "x", AgentID: "a", Score: 0.5}))
	}
	items, err := mr.List("test:feedback:a")
	require.NoError(t, err)
	assert.Len(t, items, feedbackCap)
}

func TestNew_SelectsBackend(t *testing.T) {
	s, err := New(Config{Type: TypeMemory}, Backends{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = New(Config{Type: TypeDatabase}, Backends{}, nil)
	assert.Error(t, err)

	_, err = New(Config{Type: "mongo"}, Backends{}, nil)
	assert.Error(t, err)
}
