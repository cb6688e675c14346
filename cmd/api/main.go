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
	"github.com/soukly/platform/internal/database"
	"github.com/soukly/platform/internal/events"
	"github.com/soukly/platform/internal/health"
	"github.com/soukly/platform/internal/http/handler"
	"github.com/soukly/platform/internal/http/middleware"
	"github.com/soukly/platform/internal/http/router"
	"github.com/soukly/platform/internal/mail"
	"github.com/soukly/platform/internal/observability"
	"github.com/soukly/platform/internal/otp"
	"github.com/soukly/platform/internal/repository"
	"github.com/soukly/platform/internal/security"
	"github.com/soukly/platform/internal/service"
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

	db, err := database.Open(cfg)
	if err != nil {
		logger.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		logger.Error("database migration failed", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("redis connection failed", "addr", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}

	var publisher events.Publisher = events.NewNoopPublisher()
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaUserEventTopic, logger)
	}

	var sender mail.Sender = mail.NewLogSender(logger)
	if cfg.MailDriver == "smtp" {
		sender = mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
	}

	users := repository.NewUserRepository(db)
	sessions := repository.NewSessionRepository(db)
	products := repository.NewProductRepository(db)

	jwtMgr := security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTAccessSecret, cfg.JWTRefreshSecret)
	cookies := security.NewCookieManager(cfg.CookieDomain, cfg.CookieSecure, cfg.CookieSameSite)

	registration := service.NewRegistrationService(users, otp.NewRedisStore(redisClient), sender, publisher, logger, service.RegistrationConfig{
		OTPLength:     cfg.OTPLength,
		OTPTTL:        cfg.OTPTTL,
		RequestMax:    cfg.OTPRequestMax,
		RequestWindow: cfg.OTPRequestWindow,
	})
	tokens := service.NewTokenService(sessions, jwtMgr, cfg.RefreshTokenPepper, cfg.JWTAccessTTL, cfg.JWTRefreshTTL, logger)
	auth := service.NewAuthService(users, tokens, publisher, logger)
	catalog := service.NewCatalogService(products, publisher, logger)

	apiLimiter := middleware.NewRateLimiter(
		middleware.NewRedisFixedWindowLimiter(redisClient, "rl:api"),
		cfg.APIRateLimitPerMin, time.Minute, middleware.FailOpen, "api", logger)
	authLimiter := middleware.NewRateLimiter(
		middleware.NewRedisFixedWindowLimiter(redisClient, "rl:auth"),
		cfg.AuthRateLimitPerMin, time.Minute, middleware.FailClosed, "auth", logger)

	readiness := health.NewProbeRunner(cfg.ReadinessProbeTimeout, cfg.ServerStartGracePeriod,
		health.NewDBChecker(db),
		health.NewRedisChecker(redisClient),
	)

	h := router.New(router.Dependencies{
		AuthHandler:     handler.NewAuthHandler(registration, auth, cookies, logger),
		UserHandler:     handler.NewUserHandler(auth, logger),
		ProductHandler:  handler.NewProductHandler(catalog, logger),
		JWTManager:      jwtMgr,
		Logger:          logger,
		CORSOrigins:     cfg.CORSAllowedOrigins,
		APIRateLimiter:  apiLimiter.Middleware(),
		AuthRateLimiter: authLimiter.Middleware(),
		Readiness:       readiness,
		EnableOTelHTTP:  cfg.OTELTracingEnabled,
		OTelServiceName: cfg.OTELServiceName,
	})

	srv := router.NewServer(":"+cfg.HTTPPort, h)
	go func() {
		logger.Info("api server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err.Error() != "http: Server closed" {
			log.Fatal(err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "error", err)
	}
	if err := publisher.Close(); err != nil {
		logger.Error("event publisher close failed", "error", err)
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		logger.Error("observability shutdown failed", "error", err)
	}
	if err := redisClient.Close(); err != nil {
		logger.Error("redis close failed", "error", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("database close failed", "error", err)
		}
	}
}
