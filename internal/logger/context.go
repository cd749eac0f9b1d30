package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// ContextWithLogger stores a logger in the context.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the request logger, or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// WithModel scopes the context logger to one model so every line of a load
// or query carries its name.
func WithModel(ctx context.Context, name string) (context.Context, *zap.Logger) {
	l := FromContext(ctx).With(zap.String("model", name))
	return ContextWithLogger(ctx, l), l
}
