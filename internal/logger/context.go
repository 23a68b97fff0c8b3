package logger

import (
	"context"

	"go.uber.org/zap"
)

type contextKey struct{}

// WithContext returns a child context carrying l, typically the
// per-request logger the HTTP middleware builds.
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the logger carried by ctx. Contexts without one get
// a no-op logger, so callers never need a nil check.
func FromContext(ctx context.Context) *zap.Logger {
	l, ok := ctx.Value(contextKey{}).(*zap.Logger)
	if !ok {
		return zap.NewNop()
	}
	return l
}
