package logger

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// With stores a logger carrying fields in ctx. Later calls add to the
// fields already stored.
func With(ctx context.Context, fields ...any) context.Context {
	return context.WithValue(ctx, ctxKey{}, From(ctx).With(fields...))
}

// WithRequest tags the context logger with the shell request id.
func WithRequest(ctx context.Context, requestID string) context.Context {
	return With(ctx, "request_id", requestID)
}

// WithUser tags the context logger with the signed-in user.
func WithUser(ctx context.Context, userID int64, role string) context.Context {
	return With(ctx, slog.Group("user", "id", userID, "role", role))
}

func From(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return LoggerWrapper()
}
