package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *RedisClient {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := NewRedisClient(RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestRedisClient_GetSet(t *testing.T) {
	ctx := context.Background()
	client := newTestRedis(t)

	_, err := client.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, client.Set(ctx, "k", []byte("v"), time.Minute))

	val, err := client.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)

	require.NoError(t, client.Delete(ctx, "k"))
	_, err = client.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisClient_DeleteByPrefix(t *testing.T) {
	ctx := context.Background()
	client := newTestRedis(t)

	require.NoError(t, client.Set(ctx, "doc:a:1", []byte("1"), time.Minute))
	require.NoError(t, client.Set(ctx, "doc:a:2", []byte("2"), time.Minute))
	require.NoError(t, client.Set(ctx, "doc:b:1", []byte("3"), time.Minute))

	require.NoError(t, client.DeleteByPrefix(ctx, "doc:a:"))

	_, err := client.Get(ctx, "doc:a:1")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = client.Get(ctx, "doc:b:1")
	assert.NoError(t, err)
}

func TestMemoryClient_TTL(t *testing.T) {
	ctx := context.Background()
	client := NewMemoryClient(100)

	require.NoError(t, client.Set(ctx, "k", []byte("v"), 10*time.Millisecond))

	val, err := client.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)

	time.Sleep(20 * time.Millisecond)
	_, err = client.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestDocumentCacheKey_Deterministic(t *testing.T) {
	a := DocumentCacheKey("doc-1", "what is the total payment amount?")
	b := DocumentCacheKey("doc-1", "what is the total payment amount?")
	c := DocumentCacheKey("doc-1", "a different question")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "doc:doc-1:")
}
