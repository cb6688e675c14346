package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// The count and the expiry must move together; INCR followed by a separate
// EXPIRE from the client would leave a keyless counter if the process dies in
// between.
var slidingCountScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

// RedisFixedWindowLimiter shares one counter per key across all instances
// behind the same Redis.
type RedisFixedWindowLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisFixedWindowLimiter(client redis.UniversalClient, prefix string) *RedisFixedWindowLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisFixedWindowLimiter{client: client, prefix: prefix}
}

func (l *RedisFixedWindowLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	if l.client == nil {
		return false, window, fmt.Errorf("redis client is nil")
	}
	if key == "" {
		key = "unknown"
	}
	windowMS := window.Milliseconds()
	if windowMS <= 0 {
		windowMS = 1000
	}

	raw, err := slidingCountScript.Run(ctx, l.client, []string{l.prefix + ":" + key}, windowMS).Result()
	if err != nil {
		return false, window, err
	}
	pair, ok := raw.([]interface{})
	if !ok || len(pair) != 2 {
		return false, window, fmt.Errorf("unexpected redis script response %T", raw)
	}
	count, ok1 := toInt64(pair[0])
	ttlMS, ok2 := toInt64(pair[1])
	if !ok1 || !ok2 {
		return false, window, fmt.Errorf("unexpected redis script values %v", pair)
	}
	if ttlMS <= 0 {
		ttlMS = windowMS
	}
	return count <= int64(limit), time.Duration(ttlMS) * time.Millisecond, nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}
