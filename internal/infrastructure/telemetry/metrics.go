package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"

	"github.com/blibbers/vibekit/internal/infrastructure/config"
)

// MeterProvider owns the global meter provider. Disabled telemetry falls back
// to the global no-op meter.
type MeterProvider struct {
	sdk    *sdkmetric.MeterProvider
	logger *zap.Logger
}

// NewMeterProvider installs a periodic OTLP/gRPC metrics exporter as the global meter provider
func NewMeterProvider(ctx context.Context, cfg config.TelemetryConfig, serviceName, version string, logger *zap.Logger) (*MeterProvider, error) {
	mp := &MeterProvider{logger: logger}
	if !cfg.Enabled {
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}

	res, err := newResource(serviceName, version)
	if err != nil {
		return nil, err
	}

	interval := cfg.MetricsInterval
	if interval <= 0 {
		interval = time.Minute
	}
	mp.sdk = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(mp.sdk)

	logger.Info("Metrics enabled", zap.Duration("export_interval", interval))
	return mp, nil
}

// Meter returns a meter scoped to this module
func (mp *MeterProvider) Meter() metric.Meter {
	if mp.sdk == nil {
		return otel.GetMeterProvider().Meter(instrumentationName)
	}
	return mp.sdk.Meter(instrumentationName)
}

// Shutdown flushes pending measurements
func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	if mp.sdk == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := mp.sdk.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	mp.logger.Info("Meter provider shut down")
	return nil
}

// WebhookMetrics counts inbound provider events and how long they took to apply
type WebhookMetrics struct {
	events   metric.Int64Counter
	duration metric.Float64Histogram
}

// NewWebhookMetrics registers the webhook instruments on meter
func NewWebhookMetrics(meter metric.Meter) (*WebhookMetrics, error) {
	events, err := meter.Int64Counter(
		"billing.webhook.events",
		metric.WithDescription("Provider webhook events by kind and outcome"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook event counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		"billing.webhook.duration",
		metric.WithDescription("Time spent verifying and applying a webhook event"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook duration histogram: %w", err)
	}

	return &WebhookMetrics{events: events, duration: duration}, nil
}

// Record adds one event observation
func (m *WebhookMetrics) Record(ctx context.Context, kind, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("event.kind", kind),
		attribute.String("outcome", outcome),
	)
	m.events.Add(ctx, 1, attrs)
	m.duration.Record(ctx, float64(elapsed)/float64(time.Millisecond), attrs)
}
