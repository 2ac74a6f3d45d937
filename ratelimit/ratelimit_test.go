package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "rl:u1-events", key(DefaultEventBucket, "u1"))
}

func TestAllowRedis(t *testing.T) {
	url := os.Getenv("HABITBOT_TEST_REDIS_URL")
	if url == "" {
		t.Skip("HABITBOT_TEST_REDIS_URL not set")
	}

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)

	rdb := redis.NewClient(opts)
	defer rdb.Close()

	ctx := context.Background()
	l := New(rdb, Bucket{Name: "test", Requests: 3, Time: time.Minute})
	id := uuid.NewString()
	defer rdb.Del(ctx, key(l.Bucket, id))

	for i := 0; i < 3; i++ {
		ok, _, err := l.Allow(ctx, id)
		require.NoError(t, err)
		assert.True(t, ok, "hit %d", i)
	}

	ok, retry, err := l.Allow(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Greater(t, retry, time.Duration(0))
	assert.LessOrEqual(t, retry, time.Minute)
}
