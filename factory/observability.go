package factory

import (
	"context"
	"fmt"
	"strings"

	"github.com/markchipman/cofoundry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const tracerName = "github.com/markchipman/cofoundry"

// NewLogger builds a zap logger. Format "console" selects the development
// encoder; anything else logs JSON.
func NewLogger(cfg cofoundry.LoggingConfig) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}

	var zc zap.Config
	if strings.EqualFold(cfg.Format, "console") {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// SetupTracing installs a global OTLP/HTTP tracer provider when tracing is
// enabled with an endpoint. The returned tracer is nil otherwise. The shutdown
// func is always safe to call.
func SetupTracing(ctx context.Context, cfg cofoundry.ExecutionConfig) (trace.Tracer, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.EnableTracing || cfg.OTLPEndpoint == "" {
		return nil, noop, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.OTLPEndpoint))
	if err != nil {
		return nil, noop, fmt.Errorf("create otlp exporter: %w", err)
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "cofoundry"
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
	)
	otel.SetTracerProvider(tp)
	return tp.Tracer(tracerName), tp.Shutdown, nil
}
