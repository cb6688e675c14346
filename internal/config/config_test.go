package config

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/soukly")
	t.Setenv("JWT_ACCESS_SECRET", strings.Repeat("a", 32))
	t.Setenv("JWT_REFRESH_SECRET", strings.Repeat("b", 32))
	t.Setenv("REFRESH_TOKEN_PEPPER", strings.Repeat("p", 16))
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPPort != "8080" || cfg.GatewayPort != "8000" {
		t.Fatalf("unexpected ports: %s / %s", cfg.HTTPPort, cfg.GatewayPort)
	}
	if cfg.JWTAccessTTL != time.Hour {
		t.Fatalf("expected 1h access TTL, got %v", cfg.JWTAccessTTL)
	}
	if cfg.JWTRefreshTTL != 168*time.Hour {
		t.Fatalf("expected 7d refresh TTL, got %v", cfg.JWTRefreshTTL)
	}
	if cfg.OTPLength != 4 || cfg.OTPTTL != 5*time.Minute {
		t.Fatalf("unexpected OTP defaults: len=%d ttl=%v", cfg.OTPLength, cfg.OTPTTL)
	}
	if cfg.OTPRequestMax != 5 || cfg.OTPRequestWindow != 15*time.Minute {
		t.Fatalf("unexpected OTP rate defaults: max=%d window=%v", cfg.OTPRequestMax, cfg.OTPRequestWindow)
	}
	if cfg.GatewayRateLimitMax != 100 || cfg.GatewayRateLimitWindow != 15*time.Minute {
		t.Fatalf("unexpected gateway rate defaults: max=%d window=%v", cfg.GatewayRateLimitMax, cfg.GatewayRateLimitWindow)
	}
	if cfg.CookieSameSite != "lax" {
		t.Fatalf("expected lax default samesite, got %q", cfg.CookieSameSite)
	}
	// development env must not force secure cookies
	if cfg.CookieSecure {
		t.Fatal("expected insecure cookies in development by default")
	}
	if cfg.IsProduction() {
		t.Fatal("development env reported as production")
	}
}

func TestLoadProductionCookieSecureDefault(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_ENV", "production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.CookieSecure {
		t.Fatal("expected secure cookies by default in production")
	}
	if !cfg.IsProduction() {
		t.Fatal("expected production env")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing database", map[string]string{"DATABASE_URL": ""}, "DATABASE_URL is required"},
		{"short access secret", map[string]string{"JWT_ACCESS_SECRET": "short"}, "JWT_ACCESS_SECRET"},
		{"identical secrets", map[string]string{"JWT_REFRESH_SECRET": strings.Repeat("a", 32)}, "must differ"},
		{"invalid samesite", map[string]string{"COOKIE_SAMESITE": "whatever"}, "COOKIE_SAMESITE"},
		{"otp length", map[string]string{"OTP_LENGTH": "2"}, "OTP_LENGTH"},
		{"access ttl too long", map[string]string{"JWT_ACCESS_TTL": "3h"}, "JWT_ACCESS_TTL"},
		{"smtp without host", map[string]string{"MAIL_DRIVER": "smtp"}, "SMTP_HOST"},
		{"mail driver", map[string]string{"MAIL_DRIVER": "carrier-pigeon"}, "MAIL_DRIVER"},
		{"otp request max", map[string]string{"OTP_REQUEST_MAX": "0"}, "OTP_REQUEST_MAX"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestSplitCSVTrimsAndDropsEmpty(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://shop.soukly.dev , , https://sell.soukly.dev ")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092,broker-2:9092")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[0] != "https://shop.soukly.dev" {
		t.Fatalf("unexpected origins: %v", cfg.CORSAllowedOrigins)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "broker-2:9092" {
		t.Fatalf("unexpected brokers: %v", cfg.KafkaBrokers)
	}
}
