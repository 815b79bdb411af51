package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"suitehub/internal/platform/config"
)

type testStruct struct {
	Name string
	Age  int
}

func setupTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cache, err := NewRedis(context.Background(), config.CacheConfig{RedisAddr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache, mr
}

func TestSetAndGet(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	expected := testStruct{Name: "Alice", Age: 30}
	require.NoError(t, cache.Set(ctx, "user:1", expected, time.Minute))

	var actual testStruct
	found, err := cache.Get(ctx, "user:1", &actual)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, expected, actual)
}

func TestGetNotFound(t *testing.T) {
	cache, _ := setupTestCache(t)

	var out testStruct
	found, err := cache.Get(context.Background(), "no_such_key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidate(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", "value", time.Minute))
	require.NoError(t, cache.Set(ctx, "b", "value", time.Minute))
	require.NoError(t, cache.Invalidate(ctx, "a", "b"))

	var out string
	found, err := cache.Get(ctx, "a", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetInvalidJSON(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Db.Set(ctx, "bad", []byte("not-json"), time.Minute).Err())

	var out testStruct
	found, err := cache.Get(ctx, "bad", &out)
	assert.False(t, found)
	assert.Error(t, err)
}

func TestNewFallsBackToNoop(t *testing.T) {
	c, err := New(context.Background(), config.CacheConfig{})
	require.NoError(t, err)
	assert.IsType(t, Noop{}, c)
}

func TestNewRedisInvalidAddr(t *testing.T) {
	c, err := NewRedis(context.Background(), config.CacheConfig{RedisAddr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond})
	assert.Nil(t, c)
	assert.Error(t, err)
}

func TestRemember(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	calls := 0
	load := func(context.Context) ([]string, error) {
		calls++
		return []string{"crm", "hrm"}, nil
	}

	first, err := Remember(ctx, cache, "apps", time.Minute, load)
	require.NoError(t, err)
	second, err := Remember(ctx, cache, "apps", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	mr.FastForward(2 * time.Minute)
	_, err = Remember(ctx, cache, "apps", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	_, err = Remember(ctx, cache, "broken", time.Minute, func(context.Context) (int, error) {
		return 0, errors.New("db down")
	})
	assert.Error(t, err)
	assert.False(t, mr.Exists("broken"))
}
