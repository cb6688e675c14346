package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisLimiterForTest(t *testing.T) (*RedisFixedWindowLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisFixedWindowLimiter(client, "rl-test"), mr
}

func TestRedisLimiterCountsPerKey(t *testing.T) {
	l, _ := newRedisLimiterForTest(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, _, err := l.Allow(ctx, "1.2.3.4", 3, 15*time.Minute)
		if err != nil {
			t.Fatalf("Allow returned error: %v", err)
		}
		if !ok {
			t.Fatalf("request %d should pass", i+1)
		}
	}

	ok, retryAfter, err := l.Allow(ctx, "1.2.3.4", 3, 15*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("fourth request should be blocked")
	}
	if retryAfter <= 0 || retryAfter > 15*time.Minute {
		t.Errorf("retryAfter = %v", retryAfter)
	}

	// Other keys are unaffected.
	if ok, _, _ := l.Allow(ctx, "5.6.7.8", 3, 15*time.Minute); !ok {
		t.Fatal("a different key must have its own counter")
	}
}

func TestRedisLimiterWindowExpiry(t *testing.T) {
	l, mr := newRedisLimiterForTest(t)
	ctx := context.Background()

	if ok, _, _ := l.Allow(ctx, "k", 1, time.Minute); !ok {
		t.Fatal("first request should pass")
	}
	if ok, _, _ := l.Allow(ctx, "k", 1, time.Minute); ok {
		t.Fatal("second request should be blocked")
	}

	mr.FastForward(61 * time.Second)

	if ok, _, _ := l.Allow(ctx, "k", 1, time.Minute); !ok {
		t.Fatal("request after expiry should pass")
	}
}

func TestRedisLimiterBackendError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := NewRedisFixedWindowLimiter(client, "rl-test")
	mr.Close()

	_, _, err := l.Allow(context.Background(), "k", 1, time.Minute)
	if err == nil {
		t.Fatal("expected error when redis is down")
	}
}
