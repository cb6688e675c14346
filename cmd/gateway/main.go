package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/soukly/platform/internal/config"
	"github.com/soukly/platform/internal/gateway"
	"github.com/soukly/platform/internal/health"
	"github.com/soukly/platform/internal/http/middleware"
	"github.com/soukly/platform/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	bootstrap := observability.NewBootstrapLogger(cfg)

	obs, err := observability.InitRuntime(ctx, cfg, bootstrap)
	if err != nil {
		log.Fatal(err)
	}
	logger := observability.InitLogger(cfg, obs.LoggerProvider)

	// The limiter degrades to a per-instance window when Redis is down;
	// the edge stays up either way.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	var limiter middleware.Limiter = middleware.NewRedisFixedWindowLimiter(redisClient, "rl:gateway")
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, using local rate limiting", "addr", cfg.RedisAddr, "error", err)
		limiter = middleware.NewLocalFixedWindowLimiter()
	}
	rl := middleware.NewRateLimiter(limiter,
		cfg.GatewayRateLimitMax, cfg.GatewayRateLimitWindow, middleware.FailOpen, "gateway", logger)

	readiness := health.NewProbeRunner(cfg.ReadinessProbeTimeout, cfg.ServerStartGracePeriod,
		health.NewBackendChecker("auth", cfg.GatewayAuthBackendURL),
		health.NewBackendChecker("catalog", cfg.GatewayCatalogBackendURL),
	)

	h, err := gateway.New(gateway.Config{
		Routes: []gateway.Route{
			{Prefix: "/api/v1/auth", Backend: cfg.GatewayAuthBackendURL, Name: "auth"},
			{Prefix: "/api/v1/users", Backend: cfg.GatewayAuthBackendURL, Name: "auth"},
			{Prefix: "/api/v1/products", Backend: cfg.GatewayCatalogBackendURL, Name: "catalog"},
		},
		CORSOrigins: cfg.CORSAllowedOrigins,
		RateLimiter: rl.Middleware(),
		Readiness:   readiness,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("gateway setup failed", "error", err)
		os.Exit(1)
	}

	srv := gateway.NewServer(":"+cfg.GatewayPort, h)
	go func() {
		logger.Info("gateway starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err.Error() != "http: Server closed" {
			log.Fatal(err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("gateway shutdown failed", "error", err)
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		logger.Error("observability shutdown failed", "error", err)
	}
	if err := redisClient.Close(); err != nil {
		logger.Error("redis close failed", "error", err)
	}
}
