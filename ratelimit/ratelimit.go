// Fixed window rate limits kept in redis
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// A bucket allows Requests hits per Time window
type Bucket struct {
	Name     string
	Requests int
	Time     time.Duration
}

// Default bucket for inbound conversation events of one user
var DefaultEventBucket = Bucket{Name: "events", Requests: 20, Time: 10 * time.Second}

type Limiter struct {
	Redis  *redis.Client
	Bucket Bucket
}

func New(rdb *redis.Client, bucket Bucket) *Limiter {
	return &Limiter{Redis: rdb, Bucket: bucket}
}

func key(bucket Bucket, id string) string {
	return "rl:" + id + "-" + bucket.Name
}

// Allow counts one hit for id. When the bucket is exhausted it returns false
// and the time left until it resets.
func (l *Limiter) Allow(ctx context.Context, id string) (bool, time.Duration, error) {
	k := key(l.Bucket, id)

	n, err := l.Redis.Incr(ctx, k).Result()

	if err != nil {
		return false, 0, fmt.Errorf("rate limit incr: %w", err)
	}

	if n == 1 {
		if err := l.Redis.Expire(ctx, k, l.Bucket.Time).Err(); err != nil {
			return false, 0, fmt.Errorf("rate limit expire: %w", err)
		}
	}

	if n <= int64(l.Bucket.Requests) {
		return true, 0, nil
	}

	retryAfter, err := l.Redis.TTL(ctx, k).Result()

	if err != nil {
		return false, 0, fmt.Errorf("rate limit ttl: %w", err)
	}

	// A key left without expiry by a failed Expire never resets otherwise
	if retryAfter < 0 {
		l.Redis.Expire(ctx, k, l.Bucket.Time)
		retryAfter = l.Bucket.Time
	}

	return false, retryAfter, nil
}
