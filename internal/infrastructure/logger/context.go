package logger

import (
	"context"

	"go.uber.org/zap"
)

// contextKey is a type for context keys used by the logger package
type contextKey string

const (
	// LoggerKey is the context key for the logger
	LoggerKey contextKey = "logger"
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// RunIDKey is the context key for the sync run ID
	RunIDKey contextKey = "run_id"
	// StoreIDKey is the context key for the Storefront store being processed
	StoreIDKey contextKey = "store_id"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context, returns a no-op logger if not found
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID adds request ID to context and returns enriched logger
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	return withField(ctx, logger, RequestIDKey, requestID)
}

// WithRunID adds the sync run ID to context and returns enriched logger
func WithRunID(ctx context.Context, logger *zap.Logger, runID string) (context.Context, *zap.Logger) {
	return withField(ctx, logger, RunIDKey, runID)
}

// WithStoreID adds the store ID to context and returns enriched logger
func WithStoreID(ctx context.Context, logger *zap.Logger, storeID string) (context.Context, *zap.Logger) {
	return withField(ctx, logger, StoreIDKey, storeID)
}

func withField(ctx context.Context, logger *zap.Logger, key contextKey, value string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, key, value)
	enriched := logger.With(zap.String(string(key), value))
	return WithContext(ctx, enriched), enriched
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, RequestIDKey)
}

// GetRunID retrieves the sync run ID from context
func GetRunID(ctx context.Context) string {
	return stringValue(ctx, RunIDKey)
}

// GetStoreID retrieves the store ID from context
func GetStoreID(ctx context.Context) string {
	return stringValue(ctx, StoreIDKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// ContextLogger logs with the request, run and store ids found in its context.
// Usage: logger.L(ctx).Info("message", zap.String("key", "value"))
type ContextLogger struct {
	logger *zap.Logger
}

// L returns a ContextLogger from the given context. Loggers stored by the With*
// helpers already carry the context ids.
func L(ctx context.Context) *ContextLogger {
	return &ContextLogger{logger: FromContext(ctx)}
}

// WithLogger returns a ContextLogger built on logger and enriched with the ids
// found in ctx
func WithLogger(ctx context.Context, logger *zap.Logger) *ContextLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, key := range []contextKey{RequestIDKey, RunIDKey, StoreIDKey} {
		if v := stringValue(ctx, key); v != "" {
			logger = logger.With(zap.String(string(key), v))
		}
	}
	return &ContextLogger{logger: logger}
}

// With creates a child ContextLogger with additional fields
func (cl *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	return &ContextLogger{logger: cl.logger.With(fields...)}
}

// Debug logs a debug level message
func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) {
	cl.logger.Debug(msg, fields...)
}

// Info logs an info level message
func (cl *ContextLogger) Info(msg string, fields ...zap.Field) {
	cl.logger.Info(msg, fields...)
}

// Warn logs a warning level message
func (cl *ContextLogger) Warn(msg string, fields ...zap.Field) {
	cl.logger.Warn(msg, fields...)
}

// Error logs an error level message
func (cl *ContextLogger) Error(msg string, fields ...zap.Field) {
	cl.logger.Error(msg, fields...)
}

// Zap returns the underlying zap.Logger
func (cl *ContextLogger) Zap() *zap.Logger {
	return cl.logger
}
