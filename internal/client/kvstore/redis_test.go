package kvstore

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRedisStore requires a Redis instance on localhost:6379.
func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skip("Redis not available, skipping integration test")
	}

	prefix := "scenesync-test-" + strconv.FormatInt(time.Now().UnixNano(), 10) + ":"
	s := NewRedisStore(client, prefix)
	t.Cleanup(func() {
		ctx := context.Background()
		keys, _ := s.Keys(ctx, "")
		_ = s.Delete(ctx, keys...)
		_ = s.Close()
	})
	return s
}

func TestRedisStore_SetGetDelete(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()

	v, err := s.Get(ctx, "absent")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, s.Set(ctx, "k", []byte("v")))
	v, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	require.NoError(t, s.Delete(ctx, "k"))
	v, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestRedisStore_ManyAndKeys(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetMany(ctx, []Entry{
		{Key: "scene/1/elements", Value: []byte("[]")},
		{Key: "scene/1/appstate", Value: []byte("{}")},
		{Key: "file/abc", Value: []byte{0xA1}},
	}))

	got, err := s.GetMany(ctx, []string{"scene/1/elements", "missing", "file/abc"})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("[]"), nil, {0xA1}}, got)

	keys, err := s.Keys(ctx, "scene/1/")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"scene/1/elements", "scene/1/appstate"}, keys)
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `a\*b\?c\[d\]`, escapeGlob("a*b?c[d]"))
	assert.Equal(t, "scene/1/", escapeGlob("scene/1/"))
}
