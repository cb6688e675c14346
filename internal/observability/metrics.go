package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/soukly/platform/internal/config"
)

const meterName = "github.com/soukly/platform"

// AppMetrics carries the domain counters. All recorders are nil-safe so call
// sites never guard on whether metrics were initialized.
type AppMetrics struct {
	registrationRequests metric.Int64Counter
	otpVerifications     metric.Int64Counter
	loginAttempts        metric.Int64Counter
	sessionRefreshes     metric.Int64Counter
	rateLimitDecisions   metric.Int64Counter
	proxyRequests        metric.Int64Counter
	requestDuration      metric.Float64Histogram
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := serviceResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))),
	)
	otel.SetMeterProvider(mp)

	if err := registerAppMetrics(mp.Meter(meterName)); err != nil {
		return nil, err
	}
	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func registerAppMetrics(meter metric.Meter) error {
	m := &AppMetrics{}
	var err error
	if m.registrationRequests, err = meter.Int64Counter("auth.registration.requests"); err != nil {
		return err
	}
	if m.otpVerifications, err = meter.Int64Counter("auth.otp.verifications"); err != nil {
		return err
	}
	if m.loginAttempts, err = meter.Int64Counter("auth.login.attempts"); err != nil {
		return err
	}
	if m.sessionRefreshes, err = meter.Int64Counter("auth.session.refreshes"); err != nil {
		return err
	}
	if m.rateLimitDecisions, err = meter.Int64Counter("http.ratelimit.decisions"); err != nil {
		return err
	}
	if m.proxyRequests, err = meter.Int64Counter("gateway.proxy.requests"); err != nil {
		return err
	}
	if m.requestDuration, err = meter.Float64Histogram("http.request.duration"); err != nil {
		return err
	}

	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()
	return nil
}

func current() *AppMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

func RecordRegistrationRequest(ctx context.Context, outcome string) {
	if m := current(); m != nil {
		m.registrationRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

func RecordOTPVerification(ctx context.Context, outcome string) {
	if m := current(); m != nil {
		m.otpVerifications.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

func RecordLoginAttempt(ctx context.Context, outcome string) {
	if m := current(); m != nil {
		m.loginAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

func RecordSessionRefresh(ctx context.Context, outcome string) {
	if m := current(); m != nil {
		m.sessionRefreshes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

func RecordRateLimitDecision(ctx context.Context, scope, decision string) {
	if m := current(); m != nil {
		m.rateLimitDecisions.Add(ctx, 1, metric.WithAttributes(
			attribute.String("scope", scope),
			attribute.String("decision", decision),
		))
	}
}

func RecordProxyRequest(ctx context.Context, backend string, status int) {
	if m := current(); m != nil {
		m.proxyRequests.Add(ctx, 1, metric.WithAttributes(
			attribute.String("backend", backend),
			attribute.Int("status", status),
		))
	}
}

func RecordRequestDuration(ctx context.Context, route string, seconds float64) {
	if m := current(); m != nil {
		m.requestDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("route", route)))
	}
}
