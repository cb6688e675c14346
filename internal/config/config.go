package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	HTTPPort    string
	GatewayPort string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTIssuer          string
	JWTAudience        string
	JWTAccessSecret    string
	JWTRefreshSecret   string
	JWTAccessTTL       time.Duration
	JWTRefreshTTL      time.Duration
	RefreshTokenPepper string

	CookieDomain   string
	CookieSecure   bool
	CookieSameSite string

	CORSAllowedOrigins []string

	OTPLength        int
	OTPTTL           time.Duration
	OTPRequestMax    int
	OTPRequestWindow time.Duration

	MailDriver   string
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	KafkaBrokers        []string
	KafkaUserEventTopic string

	AuthRateLimitPerMin int
	APIRateLimitPerMin  int

	GatewayAuthBackendURL    string
	GatewayCatalogBackendURL string
	GatewayRateLimitMax      int
	GatewayRateLimitWindow   time.Duration

	ReadinessProbeTimeout  time.Duration
	ServerStartGracePeriod time.Duration

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsExportInterval time.Duration
	OTELTraceSamplingRatio    float64
	OTELMetricsEnabled        bool
	OTELTracingEnabled        bool
	OTELLogsEnabled           bool
	OTELLogLevel              string
}

func Load() (*Config, error) {
	// Missing .env is fine; real deployments configure through the process
	// environment.
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "development")

	cfg := &Config{
		Env:         env,
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		GatewayPort: getEnv("GATEWAY_PORT", "8000"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JWTIssuer:          getEnv("JWT_ISSUER", "soukly-platform"),
		JWTAudience:        getEnv("JWT_AUDIENCE", "soukly-platform-api"),
		JWTAccessSecret:    os.Getenv("JWT_ACCESS_SECRET"),
		JWTRefreshSecret:   os.Getenv("JWT_REFRESH_SECRET"),
		RefreshTokenPepper: os.Getenv("REFRESH_TOKEN_PEPPER"),

		CookieDomain:   os.Getenv("COOKIE_DOMAIN"),
		CookieSecure:   getEnvBool("COOKIE_SECURE", !isLocalLikeEnv(env)),
		CookieSameSite: strings.ToLower(getEnv("COOKIE_SAMESITE", "lax")),

		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),

		OTPLength:     getEnvInt("OTP_LENGTH", 4),
		OTPRequestMax: getEnvInt("OTP_REQUEST_MAX", 5),

		MailDriver:   strings.ToLower(getEnv("MAIL_DRIVER", "log")),
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnv("SMTP_PORT", "465"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		MailFrom:     getEnv("MAIL_FROM", "no-reply@soukly.dev"),

		KafkaBrokers:        splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaUserEventTopic: getEnv("KAFKA_TOPIC_USER_EVENTS", "soukly.user-events"),

		AuthRateLimitPerMin: getEnvInt("AUTH_RATE_LIMIT_PER_MIN", 30),
		APIRateLimitPerMin:  getEnvInt("API_RATE_LIMIT_PER_MIN", 120),

		GatewayAuthBackendURL:    getEnv("GATEWAY_AUTH_BACKEND_URL", "http://localhost:8080"),
		GatewayCatalogBackendURL: getEnv("GATEWAY_CATALOG_BACKEND_URL", "http://localhost:8080"),
		GatewayRateLimitMax:      getEnvInt("GATEWAY_RATE_LIMIT_MAX", 100),

		OTELServiceName:          getEnv("OTEL_SERVICE_NAME", "soukly-platform"),
		OTELEnvironment:          getEnv("OTEL_ENVIRONMENT", env),
		OTELExporterOTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure: getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELTraceSamplingRatio:   getEnvFloat("OTEL_TRACE_SAMPLING_RATIO", 1.0),
		OTELMetricsEnabled:       getEnvBool("OTEL_METRICS_ENABLED", false),
		OTELTracingEnabled:       getEnvBool("OTEL_TRACING_ENABLED", false),
		OTELLogsEnabled:          getEnvBool("OTEL_LOGS_ENABLED", false),
		OTELLogLevel:             strings.ToLower(getEnv("OTEL_LOG_LEVEL", "info")),
	}

	var err error
	if cfg.JWTAccessTTL, err = parseDurationEnv("JWT_ACCESS_TTL", "1h"); err != nil {
		return nil, err
	}
	if cfg.JWTRefreshTTL, err = parseDurationEnv("JWT_REFRESH_TTL", "168h"); err != nil {
		return nil, err
	}
	if cfg.OTPTTL, err = parseDurationEnv("OTP_TTL", "5m"); err != nil {
		return nil, err
	}
	if cfg.OTPRequestWindow, err = parseDurationEnv("OTP_REQUEST_WINDOW", "15m"); err != nil {
		return nil, err
	}
	if cfg.GatewayRateLimitWindow, err = parseDurationEnv("GATEWAY_RATE_LIMIT_WINDOW", "15m"); err != nil {
		return nil, err
	}
	if cfg.ReadinessProbeTimeout, err = parseDurationEnv("READINESS_PROBE_TIMEOUT", "1s"); err != nil {
		return nil, err
	}
	if cfg.ServerStartGracePeriod, err = parseDurationEnv("SERVER_START_GRACE_PERIOD", "0s"); err != nil {
		return nil, err
	}
	if cfg.OTELMetricsExportInterval, err = parseDurationEnv("OTEL_METRICS_EXPORT_INTERVAL", "10s"); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if len(c.JWTAccessSecret) < 32 {
		errs = append(errs, "JWT_ACCESS_SECRET must be at least 32 chars")
	}
	if len(c.JWTRefreshSecret) < 32 {
		errs = append(errs, "JWT_REFRESH_SECRET must be at least 32 chars")
	}
	if c.JWTAccessSecret != "" && c.JWTAccessSecret == c.JWTRefreshSecret {
		errs = append(errs, "JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if len(c.RefreshTokenPepper) < 16 {
		errs = append(errs, "REFRESH_TOKEN_PEPPER must be at least 16 chars")
	}
	if !isValidSameSite(c.CookieSameSite) {
		errs = append(errs, "COOKIE_SAMESITE must be one of strict, lax, none")
	}
	if c.JWTAccessTTL <= 0 || c.JWTAccessTTL > time.Hour {
		errs = append(errs, "JWT_ACCESS_TTL must be between 1s and 1h")
	}
	if c.JWTRefreshTTL <= 0 || c.JWTRefreshTTL > (30*24*time.Hour) {
		errs = append(errs, "JWT_REFRESH_TTL must be between 1s and 30d")
	}
	if c.OTPLength < 4 || c.OTPLength > 10 {
		errs = append(errs, "OTP_LENGTH must be between 4 and 10")
	}
	if c.OTPTTL <= 0 {
		errs = append(errs, "OTP_TTL must be > 0")
	}
	if c.OTPRequestMax <= 0 {
		errs = append(errs, "OTP_REQUEST_MAX must be > 0")
	}
	if c.OTPRequestWindow <= 0 {
		errs = append(errs, "OTP_REQUEST_WINDOW must be > 0")
	}
	if c.MailDriver != "log" && c.MailDriver != "smtp" {
		errs = append(errs, "MAIL_DRIVER must be log or smtp")
	}
	if c.MailDriver == "smtp" && c.SMTPHost == "" {
		errs = append(errs, "SMTP_HOST is required when MAIL_DRIVER=smtp")
	}
	if c.AuthRateLimitPerMin <= 0 {
		errs = append(errs, "AUTH_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.APIRateLimitPerMin <= 0 {
		errs = append(errs, "API_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.GatewayRateLimitMax <= 0 {
		errs = append(errs, "GATEWAY_RATE_LIMIT_MAX must be > 0")
	}
	if c.GatewayRateLimitWindow <= 0 {
		errs = append(errs, "GATEWAY_RATE_LIMIT_WINDOW must be > 0")
	}
	if (c.OTELMetricsEnabled || c.OTELTracingEnabled || c.OTELLogsEnabled) && c.OTELExporterOTLPEndpoint == "" {
		errs = append(errs, "OTEL_EXPORTER_OTLP_ENDPOINT is required when OTel is enabled")
	}
	if c.OTELTraceSamplingRatio < 0 || c.OTELTraceSamplingRatio > 1 {
		errs = append(errs, "OTEL_TRACE_SAMPLING_RATIO must be between 0 and 1")
	}
	if !isValidLogLevel(c.OTELLogLevel) {
		errs = append(errs, "OTEL_LOG_LEVEL must be one of debug, info, warn, error")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) IsProduction() bool { return !isLocalLikeEnv(c.Env) }

func isLocalLikeEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "development", "dev", "local", "test":
		return true
	default:
		return false
	}
}

func isValidSameSite(v string) bool {
	switch v {
	case "strict", "lax", "none":
		return true
	default:
		return false
	}
}

func isValidLogLevel(v string) bool {
	switch v {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func parseDurationEnv(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, def))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trim := strings.TrimSpace(p)
		if trim != "" {
			out = append(out, trim)
		}
	}
	return out
}
