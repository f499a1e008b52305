package telemetry

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/shantivaas/rental/internal/infrastructure/config"
)

// Providers bundles the three OTLP pipelines the server runs.
type Providers struct {
	Tracer *TracerProvider
	Meter  *MeterProvider
	Logs   *LoggerProvider
}

// Setup builds every pipeline from the telemetry section. Each signal is
// toggled on its own; disabled ones fall back to no-op globals.
func Setup(ctx context.Context, cfg config.TelemetryConfig, logger *zap.Logger) (*Providers, error) {
	tracer, err := NewTracerProvider(ctx, Config{
		Enabled:           cfg.Enabled,
		CollectorEndpoint: cfg.CollectorEndpoint,
		SamplingRatio:     cfg.SamplingRatio,
		ServiceName:       cfg.ServiceName,
		Insecure:          cfg.Insecure,
	}, logger)
	if err != nil {
		return nil, err
	}
	p := &Providers{Tracer: tracer}

	p.Meter, err = NewMeterProvider(ctx, MetricsConfig{
		Enabled:           cfg.MetricsEnabled,
		CollectorEndpoint: cfg.CollectorEndpoint,
		ExportInterval:    cfg.MetricsInterval,
		ServiceName:       cfg.ServiceName,
		Insecure:          cfg.Insecure,
	}, logger)
	if err != nil {
		_ = p.Shutdown(ctx)
		return nil, err
	}

	p.Logs, err = NewLoggerProvider(ctx, LogsConfig{
		Enabled:           cfg.LogsEnabled,
		CollectorEndpoint: cfg.CollectorEndpoint,
		ServiceName:       cfg.ServiceName,
		Insecure:          cfg.Insecure,
	}, logger)
	if err != nil {
		_ = p.Shutdown(ctx)
		return nil, err
	}
	return p, nil
}

// Bridge tees logger into the log pipeline at or above level.
func (p *Providers) Bridge(logger *zap.Logger, level zapcore.Level) *zap.Logger {
	if p.Logs == nil {
		return logger
	}
	return p.Logs.Bridge(logger, level)
}

// Shutdown flushes metrics first so the final collection still carries spans
// and log records that reference it.
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	if p.Meter != nil {
		errs = append(errs, p.Meter.Shutdown(ctx))
	}
	if p.Tracer != nil {
		errs = append(errs, p.Tracer.Shutdown(ctx))
	}
	if p.Logs != nil {
		errs = append(errs, p.Logs.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// DBTracingFromConfig derives the GORM tracing settings. Query spans need
// the tracer pipeline, so they are off whenever tracing is.
func DBTracingFromConfig(cfg config.TelemetryConfig, dbName string) DBTracingConfig {
	dbc := DefaultDBTracingConfig()
	dbc.Enabled = cfg.Enabled && cfg.DBTraceEnabled
	dbc.LogFullSQL = cfg.DBLogFullSQL
	dbc.DBName = dbName
	if cfg.DBSlowQueryThresh > 0 {
		dbc.SlowQueryThresh = cfg.DBSlowQueryThresh
	}
	return dbc
}
