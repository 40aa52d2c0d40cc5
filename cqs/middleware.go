package cqs

import (
	"context"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Middleware wraps a handler with cross-cutting behaviour.
type Middleware func(next Handler) Handler

// Chain applies middleware to h in reverse so the first listed is outermost.
func Chain(h Handler, mw ...Middleware) Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		if mw[i] != nil {
			h = mw[i](h)
		}
	}
	return h
}

// Recovery converts a handler panic into a *PanicError.
func Recovery() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, inv Invocation) (res any, err error) {
			defer func() {
				if r := recover(); r != nil {
					res = nil
					err = &PanicError{Name: inv.Name, Value: r, Stack: debug.Stack()}
				}
			}()
			return next(ctx, inv)
		}
	}
}

// Logging records each call. Calls slower than slow log at warn; slow <= 0
// disables that.
func Logging(logger *zap.Logger, slow time.Duration) Middleware {
	if logger == nil {
		logger = zap.L()
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, inv Invocation) (any, error) {
			start := time.Now()
			res, err := next(ctx, inv)
			elapsed := time.Since(start)

			fields := []zap.Field{
				zap.String("kind", string(inv.Kind)),
				zap.String("name", inv.Name),
				zap.Int("userId", inv.Context.UserID()),
				zap.Bool("elevated", inv.Context.IsElevated()),
				zap.Stringer("requestId", inv.Context.RequestID),
				zap.Duration("duration", elapsed),
			}
			switch {
			case err != nil:
				logger.Info("request failed", append(fields, zap.Error(err))...)
			case slow > 0 && elapsed > slow:
				logger.Warn("slow request", fields...)
			default:
				logger.Debug("request completed", fields...)
			}
			return res, err
		}
	}
}

// Tracing opens a span per call on tracer.
func Tracing(tracer trace.Tracer) Middleware {
	return func(next Handler) Handler {
		if tracer == nil {
			return next
		}
		return func(ctx context.Context, inv Invocation) (any, error) {
			ctx, span := tracer.Start(ctx, string(inv.Kind)+" "+inv.Name,
				trace.WithAttributes(
					attribute.String("cqs.kind", string(inv.Kind)),
					attribute.String("cqs.name", inv.Name),
					attribute.Int("cqs.user_id", inv.Context.UserID()),
					attribute.Bool("cqs.elevated", inv.Context.IsElevated()),
				),
			)
			defer span.End()

			res, err := next(ctx, inv)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return res, err
		}
	}
}

// Timeout bounds each call with d; d <= 0 leaves the context untouched.
func Timeout(d time.Duration) Middleware {
	return func(next Handler) Handler {
		if d <= 0 {
			return next
		}
		return func(ctx context.Context, inv Invocation) (any, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, inv)
		}
	}
}
