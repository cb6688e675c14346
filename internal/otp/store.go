package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/soukly/platform/internal/domain"
)

// ErrNoPending covers both "never requested" and "expired"; callers must not
// be able to tell the two apart.
var ErrNoPending = errors.New("no pending registration")

const (
	pendingKeyPrefix = "otp:"
	counterKeyPrefix = "otp-request-count:"
)

// Store is the OTP cache contract the registration flow depends on. The
// counter bump must be atomic increment-with-expiry; a read-then-write
// sequence would let two near-simultaneous requests both pass the rate check.
type Store interface {
	SavePending(ctx context.Context, pending domain.PendingRegistration, ttl time.Duration) error
	GetPending(ctx context.Context, email string) (*domain.PendingRegistration, error)
	DeletePending(ctx context.Context, email string) error
	BumpRequestCount(ctx context.Context, email string, window time.Duration) (int64, error)
	ResetRequestCount(ctx context.Context, email string) error
}

var incrWithExpiryScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) SavePending(ctx context.Context, pending domain.PendingRegistration, ttl time.Duration) error {
	payload, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("marshal pending registration: %w", err)
	}
	// A repeat request overwrites the previous pending registration, keeping
	// at most one live per email.
	if err := s.client.Set(ctx, pendingKey(pending.Email), payload, ttl).Err(); err != nil {
		return fmt.Errorf("store pending registration: %w", err)
	}
	return nil
}

func (s *RedisStore) GetPending(ctx context.Context, email string) (*domain.PendingRegistration, error) {
	raw, err := s.client.Get(ctx, pendingKey(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoPending
		}
		return nil, fmt.Errorf("load pending registration: %w", err)
	}
	var pending domain.PendingRegistration
	if err := json.Unmarshal(raw, &pending); err != nil {
		return nil, fmt.Errorf("decode pending registration: %w", err)
	}
	return &pending, nil
}

func (s *RedisStore) DeletePending(ctx context.Context, email string) error {
	if err := s.client.Del(ctx, pendingKey(email)).Err(); err != nil {
		return fmt.Errorf("delete pending registration: %w", err)
	}
	return nil
}

func (s *RedisStore) BumpRequestCount(ctx context.Context, email string, window time.Duration) (int64, error) {
	windowMS := window.Milliseconds()
	if windowMS <= 0 {
		windowMS = 1000
	}
	raw, err := incrWithExpiryScript.Run(ctx, s.client, []string{counterKey(email)}, windowMS).Result()
	if err != nil {
		return 0, fmt.Errorf("bump request counter: %w", err)
	}
	count, ok := raw.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected redis script response type %T", raw)
	}
	return count, nil
}

func (s *RedisStore) ResetRequestCount(ctx context.Context, email string) error {
	if err := s.client.Del(ctx, counterKey(email)).Err(); err != nil {
		return fmt.Errorf("reset request counter: %w", err)
	}
	return nil
}

func pendingKey(email string) string { return pendingKeyPrefix + normalizeEmail(email) }
func counterKey(email string) string { return counterKeyPrefix + normalizeEmail(email) }

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
