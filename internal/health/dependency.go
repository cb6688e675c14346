package health

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type DBChecker struct {
	db *gorm.DB
}

func NewDBChecker(db *gorm.DB) Checker {
	if db == nil {
		return nil
	}
	return &DBChecker{db: db}
}

func (c *DBChecker) Check(ctx context.Context) Result {
	res := Result{Name: "db", Healthy: true}
	sqlDB, err := c.db.DB()
	if err != nil {
		res.Healthy = false
		res.Error = err.Error()
		return res
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		res.Healthy = false
		res.Error = err.Error()
	}
	return res
}

type RedisChecker struct {
	client redis.UniversalClient
}

func NewRedisChecker(client redis.UniversalClient) Checker {
	if client == nil {
		return nil
	}
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Check(ctx context.Context) Result {
	res := Result{Name: "redis", Healthy: true}
	if err := c.client.Ping(ctx).Err(); err != nil {
		res.Healthy = false
		res.Error = err.Error()
	}
	return res
}

// BackendChecker probes a proxied service's liveness endpoint; the gateway
// reports not-ready while its upstreams are down.
type BackendChecker struct {
	name   string
	url    string
	client *http.Client
}

func NewBackendChecker(name, baseURL string) Checker {
	if baseURL == "" {
		return nil
	}
	return &BackendChecker{
		name:   name,
		url:    baseURL + "/health/live",
		client: &http.Client{Timeout: 2 * time.Second},
	}
}

func (c *BackendChecker) Check(ctx context.Context) Result {
	res := Result{Name: c.name, Healthy: true}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		res.Healthy = false
		res.Error = err.Error()
		return res
	}
	resp, err := c.client.Do(req)
	if err != nil {
		res.Healthy = false
		res.Error = err.Error()
		return res
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		res.Healthy = false
		res.Error = resp.Status
	}
	return res
}
