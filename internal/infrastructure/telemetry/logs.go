package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/blibbers/vibekit/internal/infrastructure/config"
)

// LoggerProvider exports zap records to the collector alongside the local sink
type LoggerProvider struct {
	sdk         *sdklog.LoggerProvider
	serviceName string
	logger      *zap.Logger
}

// NewLoggerProvider installs an OTLP/gRPC log exporter as the global logger provider
func NewLoggerProvider(ctx context.Context, cfg config.TelemetryConfig, serviceName, version string, logger *zap.Logger) (*LoggerProvider, error) {
	lp := &LoggerProvider{serviceName: serviceName, logger: logger}
	if !cfg.Enabled {
		return lp, nil
	}

	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP logs exporter: %w", err)
	}

	res, err := newResource(serviceName, version)
	if err != nil {
		return nil, err
	}

	lp.sdk = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)
	global.SetLoggerProvider(lp.sdk)
	return lp, nil
}

// Tee returns log with a second core that forwards records at or above level
// to the collector. With export disabled log is returned unchanged.
func (lp *LoggerProvider) Tee(log *zap.Logger, level zapcore.Level) *zap.Logger {
	if lp.sdk == nil {
		return log
	}
	bridge := otelzap.NewCore(lp.serviceName, otelzap.WithLoggerProvider(lp.sdk))
	filtered, err := zapcore.NewIncreaseLevelCore(bridge, level)
	if err != nil {
		log.Warn("Log export level rejected, exporting everything", zap.Error(err))
		filtered = bridge
	}
	return log.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, filtered)
	}))
}

// Shutdown flushes buffered records
func (lp *LoggerProvider) Shutdown(ctx context.Context) error {
	if lp.sdk == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := lp.sdk.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown logger provider: %w", err)
	}
	return nil
}
