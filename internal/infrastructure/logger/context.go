package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	billIDKey    contextKey = "bill_id"
)

// WithContext returns a new context carrying logger
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored in ctx, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID stores the request ID in ctx
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID returns the request ID stored in ctx
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithBillID stores the bill being operated on in ctx
func WithBillID(ctx context.Context, billID string) context.Context {
	return context.WithValue(ctx, billIDKey, billID)
}

// GetBillID returns the bill ID stored in ctx
func GetBillID(ctx context.Context) string {
	if id, ok := ctx.Value(billIDKey).(string); ok {
		return id
	}
	return ""
}

// TraceFields returns trace_id and span_id of the active span, if any
func TraceFields(ctx context.Context) []zap.Field {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", spanCtx.TraceID().String()),
		zap.String("span_id", spanCtx.SpanID().String()),
	}
}

// L returns the context logger enriched with trace, request and bill fields.
//
//	logger.L(ctx).Info("bill settled", zap.Int("items", n))
func L(ctx context.Context) *zap.Logger {
	fields := TraceFields(ctx)
	if id := GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if id := GetBillID(ctx); id != "" {
		fields = append(fields, zap.String("bill_id", id))
	}
	l := FromContext(ctx)
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}
